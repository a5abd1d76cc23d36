package apiclient

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// Field evaluates a JSONPath expression (e.g. "$.key") against a JSON body
// and returns the first match. Integers come back as int64. found is false
// when the path matches nothing.
func Field(body []byte, path string) (value any, found bool, err error) {
	expr, err := jp.ParseString(path)
	if err != nil {
		return nil, false, fmt.Errorf("invalid JSONPath %q: %w", path, err)
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, false, errors.New("response body is not JSON: empty body")
	}

	// oj keeps integers as int64 so large ids survive the round trip.
	data, err := oj.Parse(body)
	if err != nil {
		return nil, false, fmt.Errorf("response body is not JSON: %w", err)
	}

	results := expr.Get(data)
	if len(results) == 0 {
		return nil, false, nil
	}
	return results[0], true, nil
}
