package payload

import (
	"encoding/json"
	"fmt"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/rowboat-io/rowboat/internal/domain/model"
)

// ValidateTransform checks a JMESPath expression without evaluating it.
func ValidateTransform(expr string) error {
	if expr == "" {
		return nil
	}
	if _, err := jmespath.Compile(expr); err != nil {
		return fmt.Errorf("compile transform %q: %w", expr, err)
	}
	return nil
}

// EncodeJSONTransformed applies the JMESPath expression to each row object
// and encodes the results as a JSON array. The transform operates on map
// form, so key order in the output follows the expression's shape rather
// than column order.
func EncodeJSONTransformed(expr string, rs *model.RowSet) ([]byte, error) {
	if expr == "" {
		return EncodeJSON(rs)
	}

	compiled, err := jmespath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile transform %q: %w", expr, err)
	}

	out := make([]any, 0, rs.Len())
	for i, row := range rs.Rows {
		result, searchErr := compiled.Search(row.Map())
		if searchErr != nil {
			return nil, fmt.Errorf("apply transform to record %d: %w", i, searchErr)
		}
		out = append(out, result)
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode transformed payload: %w", err)
	}
	return data, nil
}
