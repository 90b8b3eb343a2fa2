// Package model contains the domain types for rowboat exports.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Field is a single (column, value) pair within a row. Values are scalars:
// string, integer, float, boolean, time, or nil.
type Field struct {
	Column string
	Value  any
}

// Row is an ordered list of fields. Field order follows the column order of
// the query result, which downstream serialization depends on.
type Row []Field

// RowSet is the materialized result of an export query. Columns records
// first-seen column order; every row carries its fields in the same order.
type RowSet struct {
	Columns []string
	Rows    []Row
}

// Len returns the number of records in the set.
func (rs *RowSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Rows)
}

// Append adds a row to the set.
func (rs *RowSet) Append(row Row) {
	rs.Rows = append(rs.Rows, row)
}

// MarshalJSON encodes the row as a JSON object whose keys appear in field
// order. Map-based marshalling would sort keys alphabetically, which breaks
// the contract that payload attribute order follows column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Column)
		if err != nil {
			return nil, fmt.Errorf("marshal column %q: %w", f.Column, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(NormalizeScalar(f.Value))
		if err != nil {
			return nil, fmt.Errorf("marshal value for column %q: %w", f.Column, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Map converts the row to a plain map, losing field order. Used where order
// does not matter, e.g. as input to a JMESPath transform.
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r))
	for _, f := range r {
		m[f.Column] = NormalizeScalar(f.Value)
	}
	return m
}

// StringValue renders a scalar for delimited-text output. Null becomes the
// empty field; everything else is stringified without further coercion.
func StringValue(v any) string {
	switch val := NormalizeScalar(v).(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(val)
	}
}

// NormalizeScalar collapses driver-specific representations into the scalar
// set the payload formats understand. Byte slices from the database are text.
func NormalizeScalar(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case float32:
		return float64(val)
	default:
		return v
	}
}
