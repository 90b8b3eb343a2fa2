// Package payload serializes row sets into the documents shipped to sinks.
package payload

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"

	"github.com/rowboat-io/rowboat/internal/domain/model"
)

// Encode serializes the row set in the given format.
func Encode(format model.Format, rs *model.RowSet) ([]byte, error) {
	switch format {
	case model.FormatCSV:
		return EncodeCSV(rs)
	case model.FormatJSON:
		return EncodeJSON(rs)
	default:
		return nil, fmt.Errorf("unknown payload format %q", format)
	}
}

// EncodeCSV renders the row set as a delimited-text document: one header line
// with columns in first-seen order, then one line per record with values in
// the same order. Quoting follows RFC 4180; values pass through unchanged
// beyond stringification. An empty row set yields a header-only document.
func EncodeCSV(rs *model.RowSet) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(rs.Columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	record := make([]string, len(rs.Columns))
	for i, row := range rs.Rows {
		for j, f := range row {
			record[j] = model.StringValue(f.Value)
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv record %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeJSON renders the row set as an array of row objects. Each object's
// keys follow the record's column order. An empty row set yields [].
func EncodeJSON(rs *model.RowSet) ([]byte, error) {
	if rs.Len() == 0 {
		return []byte("[]"), nil
	}
	data, err := json.Marshal(rs.Rows)
	if err != nil {
		return nil, fmt.Errorf("encode json payload: %w", err)
	}
	return data, nil
}
