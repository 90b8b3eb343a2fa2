package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowboat-io/rowboat/internal/data"
	"github.com/rowboat-io/rowboat/internal/domain/model"
	apperrors "github.com/rowboat-io/rowboat/internal/errors"
	"github.com/rowboat-io/rowboat/internal/sink"
)

type fakeExportStore struct {
	export    *model.Export
	denyClaim bool
	claimedAt []time.Time
}

func (f *fakeExportStore) List(context.Context) ([]model.Export, error) {
	if f.export == nil {
		return nil, nil
	}
	return []model.Export{*f.export}, nil
}

func (f *fakeExportStore) ListEnabled(ctx context.Context) ([]model.Export, error) {
	return f.List(ctx)
}

func (f *fakeExportStore) GetByName(_ context.Context, name string) (*model.Export, error) {
	if f.export == nil || f.export.Name != name {
		return nil, apperrors.NotFoundf("export %q not found", name)
	}
	return f.export, nil
}

func (f *fakeExportStore) Upsert(_ context.Context, e *model.Export) (*model.Export, error) {
	return e, nil
}

func (f *fakeExportStore) Delete(context.Context, string) (bool, error) {
	return false, nil
}

func (f *fakeExportStore) Claim(_ context.Context, _ string, ranAt time.Time, _ *time.Time) (bool, error) {
	if f.denyClaim {
		return false, nil
	}
	f.claimedAt = append(f.claimedAt, ranAt)
	return true, nil
}

type fakeRunStore struct {
	runs []model.Run
}

func (f *fakeRunStore) Insert(_ context.Context, run *model.Run) error {
	f.runs = append(f.runs, *run)
	return nil
}

func (f *fakeRunStore) Recent(context.Context, int) ([]model.Run, error) {
	return f.runs, nil
}

func (f *fakeRunStore) RecentByExport(context.Context, string, int) ([]model.Run, error) {
	return f.runs, nil
}

func (f *fakeRunStore) Prune(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type fakeRunLock struct {
	deny     bool
	released []string
}

func (f *fakeRunLock) Acquire(_ context.Context, _ string, _ time.Duration) (bool, error) {
	return !f.deny, nil
}

func (f *fakeRunLock) Release(_ context.Context, name string) error {
	f.released = append(f.released, name)
	return nil
}

func triggerExport() *model.Export {
	return &model.Export{
		ID:       "exp-1",
		Name:     "parts",
		Query:    "SELECT id, name FROM parts",
		SinkType: model.SinkTypeFTP,
		Format:   model.FormatCSV,
		Schedule: "0 0 6 * * *",
		Enabled:  true,
	}
}

func newTriggerService(store *fakeExportStore, runs *fakeRunStore, lock *fakeRunLock) *TriggerService {
	tp := data.NewFixedTimeProvider(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	exporter := NewExporterService(ExporterServiceOptions{
		Rows: &fakeRowFetcher{rs: sampleRowSet()},
		Sinks: []sink.Sink{
			&fakeSink{kind: model.SinkTypeFTP, outcome: sink.Success()},
		},
		TimeProvider: tp,
	})

	opts := TriggerServiceOptions{
		Exports:      store,
		Runs:         runs,
		Exporter:     exporter,
		TimeProvider: tp,
	}
	if lock != nil {
		opts.Lock = lock
	}
	return NewTriggerService(opts)
}

func TestTriggerRunSuccess(t *testing.T) {
	store := &fakeExportStore{export: triggerExport()}
	runs := &fakeRunStore{}
	lock := &fakeRunLock{}
	svc := newTriggerService(store, runs, lock)

	run, err := svc.TriggerRun(context.Background(), "parts")
	require.NoError(t, err)

	assert.Equal(t, model.RunStatusSuccess, run.Status)
	assert.Equal(t, 2, run.Rows)
	require.Len(t, runs.runs, 1)
	assert.Equal(t, []string{"parts"}, lock.released)

	// The manual run claims the firing, advancing last_run_at.
	require.Len(t, store.claimedAt, 1)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), store.claimedAt[0])
}

func TestTriggerRunUnknownExport(t *testing.T) {
	svc := newTriggerService(&fakeExportStore{}, &fakeRunStore{}, nil)

	_, err := svc.TriggerRun(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.CodeOf(err))
}

func TestTriggerRunLockHeld(t *testing.T) {
	store := &fakeExportStore{export: triggerExport()}
	runs := &fakeRunStore{}
	svc := newTriggerService(store, runs, &fakeRunLock{deny: true})

	_, err := svc.TriggerRun(context.Background(), "parts")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeConflict, apperrors.CodeOf(err))
	assert.Empty(t, runs.runs)
}

func TestTriggerRunClaimLost(t *testing.T) {
	store := &fakeExportStore{export: triggerExport(), denyClaim: true}
	runs := &fakeRunStore{}
	svc := newTriggerService(store, runs, nil)

	_, err := svc.TriggerRun(context.Background(), "parts")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeConflict, apperrors.CodeOf(err))
	assert.Empty(t, runs.runs)
}

func TestTriggerRunWithoutLock(t *testing.T) {
	store := &fakeExportStore{export: triggerExport()}
	runs := &fakeRunStore{}
	svc := newTriggerService(store, runs, nil)

	run, err := svc.TriggerRun(context.Background(), "parts")
	require.NoError(t, err)
	assert.True(t, run.Succeeded())
}
