package tmpl

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func newEngine(t *testing.T) *Engine {
	e := New(Config{})
	t.Cleanup(e.Close)
	return e
}

func render(t *testing.T, e *Engine, src string, vars map[string]any) string {
	t.Helper()
	tpl, err := e.Parse(src)
	require.NoError(t, err)
	out, err := tpl.Render(vars)
	require.NoError(t, err)
	return out
}

func TestRender(t *testing.T) {
	e := newEngine(t)
	tests := []struct {
		src  string
		vars map[string]any
		out  string
	}{
		{"{{ (1000 / value) | round(0) }}", map[string]any{"value": 100}, "10"},
		{"{{ value | round(1) }}", map[string]any{"value": 2.25}, "2.2"},
		{"{{ value | round }}", map[string]any{"value": 2.5}, "2"},
		{"{{ value | round }}", map[string]any{"value": 3.5}, "4"},
		{"{{ value | round(0, 'floor') }}", map[string]any{"value": 2.75}, "2"},
		{`{{ "#%02x%02x%02x" | format(red, green, blue)}}`, map[string]any{"red": 255, "green": 128, "blue": 63}, "#ff803f"},
		{"{{ value | int }}", map[string]any{"value": "42.7"}, "42"},
		{"{{ value | float }}", map[string]any{"value": "0.5"}, "0.5"},
		{"{{ value | int(7) }}", map[string]any{"value": "nope"}, "7"},
		{"{{ missing | default('none') }}", nil, "none"},
		{"{{ value | upper }}", map[string]any{"value": "on"}, "ON"},
		{"{{ value | trim | lower }}", map[string]any{"value": "  OFF "}, "off"},
		{"{{ value == 'ON' and 'yes' or 'no' }}", map[string]any{"value": "ON"}, "yes"},
		{"{{ value != 'ON' }}", map[string]any{"value": "ON"}, "False"},
		{"state: {{ value }}!", map[string]any{"value": "ON"}, "state: ON!"},
		{"plain", nil, "plain"},
		{"{{ {1, 2, 3} }}", nil, "1,2,3"},
		{"{{ string.format('%d|%d', 1, 2) }}", nil, "1|2"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.out, render(t, e, tt.src, tt.vars))
		})
	}
}

func TestExtract(t *testing.T) {
	e := newEngine(t)
	tests := []struct {
		src     string
		payload string
		out     string
	}{
		{"{{ value_json.hello }}", `{"hello": "ON"}`, "ON"},
		{"{{ value_json.hello }}", `{"hello": "50"}`, "50"},
		{`{{ value_json.hello | join(",") }}`, `{"hello": [1, 2, 3]}`, "1,2,3"},
		{`{{ value_json.hello | join(",") }}`, `{"hello": [0.123,0.123]}`, "0.123,0.123"},
		{"{{ value }}", "raw text", "raw text"},
		{"{{ value_json.a.b }}", `{"a": {"b": 12}}`, "12"},
	}
	for _, tt := range tests {
		tpl, err := e.Parse(tt.src)
		require.NoError(t, err)
		out, err := tpl.Extract([]byte(tt.payload))
		require.NoError(t, err)
		assert.Equal(t, tt.out, out, tt.src)
	}
}

func TestExtractNonJSON(t *testing.T) {
	e := newEngine(t)
	tpl, err := e.Parse("{{ value_json.hello }}")
	require.NoError(t, err)
	_, err = tpl.Extract([]byte("not json"))
	assert.ErrorIs(t, err, ErrEval)
}

func TestGlobalsDoNotLeak(t *testing.T) {
	e := newEngine(t)
	assert.Equal(t, "a", render(t, e, "{{ value }}", map[string]any{"value": "a"}))
	assert.Equal(t, "", render(t, e, "{{ value }}", nil))
}

func TestSyntaxErrors(t *testing.T) {
	e := newEngine(t)
	for _, src := range []string{
		"{{ value ",
		"{{ value | nosuchfilter }}",
		"{{ (value }}",
		"{{ }}",
		"{{ value + }}",
		"{% if value %}x{% endif %}",
		"{{ value | round(0 }}",
	} {
		_, err := e.Parse(src)
		assert.ErrorIs(t, err, ErrSyntax, src)
	}
}

func TestSandbox(t *testing.T) {
	e := newEngine(t)
	for _, src := range []string{
		"{{ dofile('/etc/passwd') }}",
		"{{ require('os') }}",
		"{{ os.exit(1) }}",
		"{{ io.open('/etc/passwd') }}",
	} {
		tpl, err := e.Parse(src)
		require.NoError(t, err, src)
		_, err = tpl.Render(nil)
		assert.ErrorIs(t, err, ErrEval, src)
	}
}

func TestTimeout(t *testing.T) {
	e := New(Config{Timeout: 20 * time.Millisecond})
	defer e.Close()
	tpl, err := e.Parse("{{ (function() while true do end end)() }}")
	require.NoError(t, err)
	start := time.Now()
	_, err = tpl.Render(nil)
	assert.ErrorIs(t, err, ErrEval)
	assert.Less(t, time.Since(start), 2*time.Second)

	// the VM stays usable afterwards
	assert.Equal(t, "ok", render(t, e, "{{ 'ok' }}", nil))
}
