// internal/queue/sanitize.go
package queue

import (
	"errors"
	"fmt"
	"time"
)

// ErrBinaryPayload is returned when job data contains raw bytes. Binary
// blobs do not survive the JSON wire format and are rejected outright.
var ErrBinaryPayload = errors.New("binary data is not allowed in job payloads")

// SanitizeJobData normalizes job data before it enters a queue: timestamps
// become RFC3339 strings, opaque id types (anything with a String method)
// become strings, nested maps and slices are sanitized recursively, and
// binary payloads are rejected. The result is guaranteed to round-trip
// through encoding/json.
func SanitizeJobData(data map[string]interface{}) (map[string]interface{}, error) {
	if data == nil {
		return map[string]interface{}{}, nil
	}
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		sv, err := sanitizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = sv
	}
	return out, nil
}

func sanitizeValue(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return t, nil
	case time.Time:
		return t.Format(time.RFC3339), nil
	case *time.Time:
		if t == nil {
			return nil, nil
		}
		return t.Format(time.RFC3339), nil
	case []byte:
		return nil, ErrBinaryPayload
	case []interface{}:
		out := make([]interface{}, 0, len(t))
		for _, item := range t {
			sv, err := sanitizeValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, sv)
		}
		return out, nil
	case map[string]interface{}:
		return SanitizeJobData(t)
	case fmt.Stringer:
		return t.String(), nil
	default:
		return nil, fmt.Errorf("unsupported job data type %T", v)
	}
}

// safeNonNegative coerces n to a usable scheduling number: negative values
// fall back to the given default, mirroring how malformed delay/attempts
// options are treated as zero rather than failing the whole submission.
func safeNonNegative(n, fallback int) int {
	if n < 0 {
		return fallback
	}
	return n
}

func safeDelay(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
