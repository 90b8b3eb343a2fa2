package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/rowboat-io/rowboat/internal/errors"
)

func validExport() Export {
	return Export{
		Name:     "daily-orders",
		Query:    "SELECT id, total FROM orders",
		SinkType: SinkTypeFTP,
		Format:   FormatCSV,
		Schedule: "0 0 6 * * *",
	}
}

func TestExportValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Export)
		wantErr bool
		field   string
	}{
		{name: "valid ftp csv", mutate: func(*Export) {}},
		{name: "valid http json", mutate: func(e *Export) {
			e.SinkType = SinkTypeHTTP
			e.Format = FormatJSON
		}},
		{name: "missing name", mutate: func(e *Export) { e.Name = "  " }, wantErr: true, field: "name"},
		{name: "missing query", mutate: func(e *Export) { e.Query = "" }, wantErr: true, field: "query"},
		{name: "bad sink type", mutate: func(e *Export) { e.SinkType = "sftp" }, wantErr: true, field: "sink_type"},
		{name: "bad format", mutate: func(e *Export) { e.Format = "xml" }, wantErr: true, field: "format"},
		{name: "http requires json", mutate: func(e *Export) {
			e.SinkType = SinkTypeHTTP
			e.Format = FormatCSV
		}, wantErr: true, field: "format"},
		{name: "bad schedule", mutate: func(e *Export) { e.Schedule = "every day" }, wantErr: true, field: "schedule"},
		{name: "five field schedule rejected", mutate: func(e *Export) { e.Schedule = "0 6 * * *" }, wantErr: true, field: "schedule"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validExport()
			tt.mutate(&e)

			err := e.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperrors.ErrCodeValidation, appErr.Code)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

func TestExportOutputFilename(t *testing.T) {
	e := validExport()
	assert.Equal(t, DefaultFilename, e.OutputFilename())

	e.Filename = "orders.csv"
	assert.Equal(t, "orders.csv", e.OutputFilename())
}

func TestParseSchedule(t *testing.T) {
	sched, err := ParseSchedule("0 30 2 * * *")
	require.NoError(t, err)

	after := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	next := sched.Next(after)
	assert.Equal(t, time.Date(2026, 3, 1, 2, 30, 0, 0, time.UTC), next)
}

func TestScheduleDue(t *testing.T) {
	sched, err := ParseSchedule("0 0 * * * *") // top of every hour
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC)

	t.Run("never ran is due", func(t *testing.T) {
		assert.True(t, sched.Due(nil, now))
	})

	t.Run("fire time passed", func(t *testing.T) {
		last := now.Add(-2 * time.Hour)
		assert.True(t, sched.Due(&last, now))
	})

	t.Run("ran this hour", func(t *testing.T) {
		last := time.Date(2026, 3, 1, 12, 0, 1, 0, time.UTC)
		assert.False(t, sched.Due(&last, now))
	})
}
