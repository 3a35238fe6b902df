package tools

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// contentIDArg coerces a model-supplied content_id into a positive integer.
// Models emit numbers as JSON floats or, occasionally, as numeric strings.
func contentIDArg(v any) (int64, bool) {
	var id int64
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || n > math.MaxInt64 {
			return 0, false
		}
		id = int64(n)
	case int:
		id = int64(n)
	case int32:
		id = int64(n)
	case int64:
		id = n
	case json.Number:
		parsed, err := n.Int64()
		if err != nil {
			return 0, false
		}
		id = parsed
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, false
		}
		id = parsed
	default:
		return 0, false
	}
	return id, id > 0
}

// stringSliceArg keeps the string elements of a model-supplied array. A
// missing or empty array yields nil so the search applies no tag filter.
func stringSliceArg(v any) []string {
	var out []string
	switch items := v.(type) {
	case []string:
		out = append(out, items...)
	case []any:
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
