package paramutil_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/gxo-labs/trialkit/internal/paramutil"
	"github.com/stretchr/testify/assert"
)

func TestGetMillis(t *testing.T) {
	def := 1500 * time.Millisecond
	params := map[string]interface{}{
		"int":      800,
		"float":    250.5,
		"string":   " 900 ",
		"json":     json.Number("120"),
		"zero":     0,
		"negative": -10,
		"nan":      math.NaN(),
		"inf":      math.Inf(1),
		"word":     "soon",
		"bool":     true,
		"huge":     1e13,
		"maxfloat": math.MaxFloat64,
	}

	tests := []struct {
		key  string
		want time.Duration
	}{
		{"int", 800 * time.Millisecond},
		{"float", 250500 * time.Microsecond},
		{"string", 900 * time.Millisecond},
		{"json", 120 * time.Millisecond},
		{"zero", 0},
		{"negative", def},
		{"nan", def},
		{"inf", def},
		{"word", def},
		{"bool", def},
		{"absent", def},
		{"huge", paramutil.MaxDuration},
		{"maxfloat", paramutil.MaxDuration},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, paramutil.GetMillis(params, tt.key, def))
		})
	}
}

func TestGetMillis_LargeValuesStayPositive(t *testing.T) {
	d := paramutil.GetMillis(map[string]interface{}{"trial_duration_ms": 1e13}, "trial_duration_ms", 0)
	assert.Positive(t, int64(d))
	assert.Equal(t, paramutil.MaxDuration, d)

	just := paramutil.GetMillis(map[string]interface{}{"t": 4e12}, "t", 0)
	assert.Equal(t, time.Duration(4e12)*time.Millisecond, just)
}

func TestGetIntAndString(t *testing.T) {
	params := map[string]interface{}{"digit": 3, "sdigit": "7", "fdigit": 2.0, "text": "H", "obj": map[string]interface{}{}}
	assert.Equal(t, 3, paramutil.GetInt(params, "digit", 1))
	assert.Equal(t, 7, paramutil.GetInt(params, "sdigit", 1))
	assert.Equal(t, 1, paramutil.GetInt(params, "text", 1))

	assert.Equal(t, "3", paramutil.GetString(params, "digit", "x"))
	assert.Equal(t, "2", paramutil.GetString(params, "fdigit", "x"))
	assert.Equal(t, "H", paramutil.GetString(params, "text", "x"))
	assert.Equal(t, "x", paramutil.GetString(params, "obj", "x"))
	assert.Equal(t, "x", paramutil.GetString(params, "absent", "x"))
}

func TestGetEnumBoolKey(t *testing.T) {
	params := map[string]interface{}{
		"dir":     " Right ",
		"bad":     "up",
		"flag":    true,
		"sflag":   "true",
		"badflag": "maybe",
		"k":       "J",
		"space":   "space",
		"empty":   "",
	}
	assert.Equal(t, "right", paramutil.GetEnum(params, "dir", "left", "left", "right"))
	assert.Equal(t, "left", paramutil.GetEnum(params, "bad", "left", "left", "right"))
	assert.True(t, paramutil.GetBool(params, "flag", false))
	assert.True(t, paramutil.GetBool(params, "sflag", false))
	assert.False(t, paramutil.GetBool(params, "badflag", false))
	assert.Equal(t, "j", paramutil.GetKey(params, "k", "f"))
	assert.Equal(t, " ", paramutil.GetKey(params, "space", "f"))
	assert.Equal(t, "f", paramutil.GetKey(params, "empty", "F"))
	assert.Equal(t, " ", paramutil.GetKey(params, "absent", "space"))
}
