package model

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/rowboat-io/rowboat/internal/errors"
)

// SinkType identifies where an export ships its payload.
type SinkType string

const (
	// SinkTypeFTP uploads the payload as a file to an FTP server.
	SinkTypeFTP SinkType = "ftp"
	// SinkTypeHTTP posts the payload to an HTTP endpoint.
	SinkTypeHTTP SinkType = "http"
)

// Format identifies the payload serialization.
type Format string

const (
	// FormatCSV is a delimited-text document with a header row.
	FormatCSV Format = "csv"
	// FormatJSON is an array of row objects with column order preserved.
	FormatJSON Format = "json"
)

// DefaultFilename is used when an export definition does not name its
// output file.
const DefaultFilename = "export.csv"

// Export is a named, scheduled extract-and-forward definition.
type Export struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Query is executed verbatim against the source database.
	Query string `json:"query"`

	SinkType SinkType `json:"sink_type"`
	Format   Format   `json:"format"`

	// Filename names the uploaded file for FTP deliveries.
	Filename string `json:"filename"`

	// Schedule is a six-field cron expression (seconds first), UTC.
	Schedule string `json:"schedule"`

	// Transform is an optional JMESPath expression applied to each row
	// object before JSON encoding. Empty means pass-through.
	Transform string `json:"transform,omitempty"`

	Enabled   bool       `json:"enabled"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ValidSinkTypes returns the accepted sink type names.
func ValidSinkTypes() []SinkType {
	return []SinkType{SinkTypeFTP, SinkTypeHTTP}
}

// Validate checks the definition for structural problems. It does not touch
// the network or parse the SQL; those fail at run time.
func (e *Export) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return apperrors.ValidationField("name", "export name is required")
	}
	if strings.TrimSpace(e.Query) == "" {
		return apperrors.ValidationField("query", "export query is required")
	}

	switch e.SinkType {
	case SinkTypeFTP, SinkTypeHTTP:
	default:
		return apperrors.ValidationField("sink_type",
			fmt.Sprintf("invalid sink type %q (valid: ftp, http)", e.SinkType))
	}

	switch e.Format {
	case FormatCSV, FormatJSON:
	case "":
		return apperrors.ValidationField("format", "export format is required")
	default:
		return apperrors.ValidationField("format",
			fmt.Sprintf("invalid format %q (valid: csv, json)", e.Format))
	}

	// The HTTP sink body is always the structured document.
	if e.SinkType == SinkTypeHTTP && e.Format != FormatJSON {
		return apperrors.ValidationField("format", "http sink requires json format")
	}

	if _, err := ParseSchedule(e.Schedule); err != nil {
		return apperrors.ValidationField("schedule", err.Error())
	}

	return nil
}

// OutputFilename returns the configured filename or the default.
func (e *Export) OutputFilename() string {
	if name := strings.TrimSpace(e.Filename); name != "" {
		return name
	}
	return DefaultFilename
}
