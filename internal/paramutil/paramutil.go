// Package paramutil decodes trial specification fields with per-field
// defaults. Trial decoding never fails: a field that is absent or cannot be
// interpreted takes its default.
package paramutil

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gxo-labs/trialkit/internal/keys"
)

// ToFloat interprets v as a number. It accepts every Go integer and float
// kind, json.Number, and numeric strings. Non-finite results are rejected.
func ToFloat(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case float32:
		f = float64(n)
	case float64:
		f = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// MaxDuration caps decoded timings, about 146 years. Clock arithmetic on
// now+MaxDuration cannot overflow.
const MaxDuration = time.Duration(math.MaxInt64 / 2)

// GetMillis reads a millisecond timing field. Absent, non-numeric,
// non-finite and negative values return def. Values beyond MaxDuration are
// clamped to it. Zero is returned as zero and means the timer is disabled.
func GetMillis(params map[string]interface{}, key string, def time.Duration) time.Duration {
	f, ok := ToFloat(params[key])
	if !ok || f < 0 {
		return def
	}
	if f >= float64(MaxDuration/time.Millisecond) {
		return MaxDuration
	}
	return time.Duration(f * float64(time.Millisecond))
}

// GetInt reads a whole number. Fractional values are truncated.
func GetInt(params map[string]interface{}, key string, def int) int {
	f, ok := ToFloat(params[key])
	if !ok || f > math.MaxInt32 || f < math.MinInt32 {
		return def
	}
	return int(f)
}

// GetString reads a text field. Numbers are formatted without a trailing
// fraction so a YAML `digit: 3` reads as "3".
func GetString(params map[string]interface{}, key string, def string) string {
	switch v := params[key].(type) {
	case string:
		return v
	case nil, bool:
		return def
	default:
		if f, ok := ToFloat(v); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return def
	}
}

// GetEnum reads a case-insensitive choice. Values outside allowed return def.
func GetEnum(params map[string]interface{}, key string, def string, allowed ...string) string {
	s, ok := params[key].(string)
	if !ok {
		return def
	}
	s = strings.ToLower(strings.TrimSpace(s))
	for _, a := range allowed {
		if s == a {
			return a
		}
	}
	return def
}

// GetBool reads a flag. Strings accepted by strconv.ParseBool are honoured.
func GetBool(params map[string]interface{}, key string, def bool) bool {
	switch v := params[key].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return def
		}
		return b
	default:
		return def
	}
}

// GetKey reads a key binding and returns its canonical form. Empty or
// missing bindings fall back to def, which is normalized too.
func GetKey(params map[string]interface{}, key string, def string) string {
	raw, _ := params[key].(string)
	return keys.NormalizeOr(raw, def)
}

// Millis renders a decoded duration back as milliseconds for record echo fields.
func Millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
