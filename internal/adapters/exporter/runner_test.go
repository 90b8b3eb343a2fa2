package exporter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowboat-io/rowboat/internal/data"
	"github.com/rowboat-io/rowboat/internal/domain/model"
	"github.com/rowboat-io/rowboat/internal/service"
	"github.com/rowboat-io/rowboat/internal/sink"
)

type fakeExportRepo struct {
	mu       sync.Mutex
	exports  []model.Export
	listErr  error
	claimErr error
	claims   []string
	denyAll  bool
}

func (f *fakeExportRepo) List(ctx context.Context) ([]model.Export, error) {
	return f.ListEnabled(ctx)
}

func (f *fakeExportRepo) ListEnabled(_ context.Context) ([]model.Export, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.exports, nil
}

func (f *fakeExportRepo) GetByName(_ context.Context, name string) (*model.Export, error) {
	for i := range f.exports {
		if f.exports[i].Name == name {
			return &f.exports[i], nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeExportRepo) Upsert(_ context.Context, e *model.Export) (*model.Export, error) {
	return e, nil
}

func (f *fakeExportRepo) Delete(_ context.Context, _ string) (bool, error) {
	return false, nil
}

func (f *fakeExportRepo) Claim(_ context.Context, id string, _ time.Time, _ *time.Time) (bool, error) {
	if f.claimErr != nil {
		return false, f.claimErr
	}
	if f.denyAll {
		return false, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claims = append(f.claims, id)
	return true, nil
}

type fakeRunRepo struct {
	mu     sync.Mutex
	runs   []model.Run
	pruned []time.Time
}

func (f *fakeRunRepo) Insert(_ context.Context, run *model.Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, *run)
	return nil
}

func (f *fakeRunRepo) Recent(_ context.Context, _ int) ([]model.Run, error) {
	return f.runs, nil
}

func (f *fakeRunRepo) RecentByExport(_ context.Context, _ string, _ int) ([]model.Run, error) {
	return f.runs, nil
}

func (f *fakeRunRepo) Prune(_ context.Context, cutoff time.Time) (int64, error) {
	f.pruned = append(f.pruned, cutoff)
	return 0, nil
}

type fakeLock struct {
	denied   map[string]bool
	acquired []string
	released []string
}

func (f *fakeLock) Acquire(_ context.Context, name string, _ time.Duration) (bool, error) {
	if f.denied[name] {
		return false, nil
	}
	f.acquired = append(f.acquired, name)
	return true, nil
}

func (f *fakeLock) Release(_ context.Context, name string) error {
	f.released = append(f.released, name)
	return nil
}

type fakeDBLock struct {
	denied map[string]bool
	held   []string
}

func (f *fakeDBLock) TryWithExportLock(ctx context.Context, name string, fn func(context.Context) error) (bool, error) {
	if f.denied[name] {
		return false, nil
	}
	f.held = append(f.held, name)
	return true, fn(ctx)
}

type fakeRows struct{ rs *model.RowSet }

func (f *fakeRows) Fetch(_ context.Context, _ string) (*model.RowSet, error) {
	return f.rs, nil
}

type fakeSink struct {
	kind    model.SinkType
	outcome sink.Outcome
	count   int
}

func (f *fakeSink) Kind() model.SinkType { return f.kind }

func (f *fakeSink) Deliver(_ context.Context, _ sink.Payload) sink.Outcome {
	f.count++
	return f.outcome
}

func testExport(name string, lastRun *time.Time) model.Export {
	return model.Export{
		ID:        "id-" + name,
		Name:      name,
		Query:     "SELECT 1 AS n",
		SinkType:  model.SinkTypeFTP,
		Format:    model.FormatCSV,
		Schedule:  "0 * * * * *",
		Enabled:   true,
		LastRunAt: lastRun,
	}
}

func newTestRunner(t *testing.T, repo *fakeExportRepo, runs *fakeRunRepo, lock *fakeLock, dest *fakeSink) *Runner {
	t.Helper()

	tp := data.NewFixedTimeProvider(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := service.NewExporterService(service.ExporterServiceOptions{
		Rows: &fakeRows{rs: &model.RowSet{
			Columns: []string{"n"},
			Rows:    []model.Row{{{Column: "n", Value: int64(1)}}},
		}},
		Sinks:        []sink.Sink{dest},
		TimeProvider: tp,
	})

	runner, err := NewRunner(RunnerOptions{
		Exports:      repo,
		Runs:         runs,
		Lock:         lock,
		Exporter:     svc,
		TimeProvider: tp,
	})
	require.NoError(t, err)
	return runner
}

func TestRunnerTickRunsDueExports(t *testing.T) {
	past := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	repo := &fakeExportRepo{exports: []model.Export{
		testExport("due", &past),
		testExport("fresh", func() *time.Time {
			ts := time.Date(2026, 3, 1, 11, 59, 30, 0, time.UTC)
			return &ts
		}()),
	}}
	runs := &fakeRunRepo{}
	lock := &fakeLock{}
	dest := &fakeSink{kind: model.SinkTypeFTP, outcome: sink.Success()}
	runner := newTestRunner(t, repo, runs, lock, dest)

	now := time.Date(2026, 3, 1, 12, 0, 0, 500000000, time.UTC)
	processed, err := runner.Tick(context.Background(), now)
	require.NoError(t, err)

	// "fresh" last ran at 11:59:30 and the next minute boundary after that
	// is 12:00:00, so both exports fire.
	assert.Equal(t, 2, processed)
	assert.Equal(t, 2, dest.count)
	assert.Len(t, runs.runs, 2)
	assert.ElementsMatch(t, []string{"due", "fresh"}, lock.acquired)
	assert.ElementsMatch(t, []string{"due", "fresh"}, lock.released)
}

func TestRunnerTickSkipsNotDue(t *testing.T) {
	justRan := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := &fakeExportRepo{exports: []model.Export{testExport("recent", &justRan)}}
	runs := &fakeRunRepo{}
	dest := &fakeSink{kind: model.SinkTypeFTP, outcome: sink.Success()}
	runner := newTestRunner(t, repo, runs, &fakeLock{}, dest)

	processed, err := runner.Tick(context.Background(), justRan.Add(30*time.Second))
	require.NoError(t, err)

	assert.Zero(t, processed)
	assert.Zero(t, dest.count)
	assert.Empty(t, runs.runs)
}

func TestRunnerTickNeverRunExportIsDue(t *testing.T) {
	repo := &fakeExportRepo{exports: []model.Export{testExport("never-run", nil)}}
	runs := &fakeRunRepo{}
	dest := &fakeSink{kind: model.SinkTypeFTP, outcome: sink.Success()}
	runner := newTestRunner(t, repo, runs, &fakeLock{}, dest)

	processed, err := runner.Tick(context.Background(), time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, 1, processed)
	require.Len(t, runs.runs, 1)
	assert.Equal(t, model.RunStatusSuccess, runs.runs[0].Status)
}

func TestRunnerTickRespectsLock(t *testing.T) {
	repo := &fakeExportRepo{exports: []model.Export{testExport("held", nil)}}
	runs := &fakeRunRepo{}
	lock := &fakeLock{denied: map[string]bool{"held": true}}
	dest := &fakeSink{kind: model.SinkTypeFTP, outcome: sink.Success()}
	runner := newTestRunner(t, repo, runs, lock, dest)

	processed, err := runner.Tick(context.Background(), time.Now().UTC())
	require.NoError(t, err)

	assert.Zero(t, processed)
	assert.Zero(t, dest.count)
	assert.Empty(t, repo.claims)
}

func TestRunnerTickRespectsClaim(t *testing.T) {
	repo := &fakeExportRepo{
		exports: []model.Export{testExport("contested", nil)},
		denyAll: true,
	}
	runs := &fakeRunRepo{}
	dest := &fakeSink{kind: model.SinkTypeFTP, outcome: sink.Success()}
	runner := newTestRunner(t, repo, runs, &fakeLock{}, dest)

	processed, err := runner.Tick(context.Background(), time.Now().UTC())
	require.NoError(t, err)

	assert.Zero(t, processed, "lost claim means another replica ran it")
	assert.Zero(t, dest.count)
}

func TestRunnerTickRecordsSinkFailure(t *testing.T) {
	repo := &fakeExportRepo{exports: []model.Export{testExport("failing", nil)}}
	runs := &fakeRunRepo{}
	dest := &fakeSink{
		kind:    model.SinkTypeFTP,
		outcome: sink.Failuref("ftp store: broken pipe"),
	}
	runner := newTestRunner(t, repo, runs, &fakeLock{}, dest)

	processed, err := runner.Tick(context.Background(), time.Now().UTC())
	require.NoError(t, err, "sink failures never surface as tick errors")

	assert.Equal(t, 1, processed)
	require.Len(t, runs.runs, 1)
	assert.Equal(t, model.RunStatusSinkError, runs.runs[0].Status)
	assert.Contains(t, runs.runs[0].Error, "broken pipe")
}

func TestRunnerTickSkipsBadSchedule(t *testing.T) {
	bad := testExport("bad", nil)
	bad.Schedule = "not a schedule"
	repo := &fakeExportRepo{exports: []model.Export{bad, testExport("good", nil)}}
	runs := &fakeRunRepo{}
	dest := &fakeSink{kind: model.SinkTypeFTP, outcome: sink.Success()}
	runner := newTestRunner(t, repo, runs, &fakeLock{}, dest)

	processed, err := runner.Tick(context.Background(), time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, 1, processed, "bad schedule is skipped, not fatal")
}

func TestRunnerTickListError(t *testing.T) {
	repo := &fakeExportRepo{listErr: errors.New("connection refused")}
	runner := newTestRunner(t, repo, &fakeRunRepo{}, &fakeLock{},
		&fakeSink{kind: model.SinkTypeFTP, outcome: sink.Success()})

	_, err := runner.Tick(context.Background(), time.Now().UTC())
	require.Error(t, err)
}

func newDBLockRunner(t *testing.T, repo *fakeExportRepo, runs *fakeRunRepo, dbLock *fakeDBLock, dest *fakeSink) *Runner {
	t.Helper()

	tp := data.NewFixedTimeProvider(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := service.NewExporterService(service.ExporterServiceOptions{
		Rows: &fakeRows{rs: &model.RowSet{
			Columns: []string{"n"},
			Rows:    []model.Row{{{Column: "n", Value: int64(1)}}},
		}},
		Sinks:        []sink.Sink{dest},
		TimeProvider: tp,
	})

	runner, err := NewRunner(RunnerOptions{
		Exports:      repo,
		Runs:         runs,
		DBLock:       dbLock,
		Exporter:     svc,
		TimeProvider: tp,
	})
	require.NoError(t, err)
	return runner
}

func TestRunnerTickFallsBackToDBLock(t *testing.T) {
	repo := &fakeExportRepo{exports: []model.Export{testExport("solo", nil)}}
	runs := &fakeRunRepo{}
	dbLock := &fakeDBLock{}
	dest := &fakeSink{kind: model.SinkTypeFTP, outcome: sink.Success()}
	runner := newDBLockRunner(t, repo, runs, dbLock, dest)

	processed, err := runner.Tick(context.Background(), time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, 1, processed)
	assert.Equal(t, []string{"solo"}, dbLock.held)
	assert.Len(t, runs.runs, 1)
}

func TestRunnerTickRespectsDBLock(t *testing.T) {
	repo := &fakeExportRepo{exports: []model.Export{testExport("held", nil)}}
	runs := &fakeRunRepo{}
	dbLock := &fakeDBLock{denied: map[string]bool{"held": true}}
	dest := &fakeSink{kind: model.SinkTypeFTP, outcome: sink.Success()}
	runner := newDBLockRunner(t, repo, runs, dbLock, dest)

	processed, err := runner.Tick(context.Background(), time.Now().UTC())
	require.NoError(t, err)

	assert.Zero(t, processed)
	assert.Zero(t, dest.count)
	assert.Empty(t, repo.claims)
}

func TestNewRunnerValidation(t *testing.T) {
	_, err := NewRunner(RunnerOptions{})
	require.Error(t, err)
}
