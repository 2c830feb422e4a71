package tmpl

import (
	"github.com/XANi/mqttlight/light"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestTranslatorWithTemplates(t *testing.T) {
	e := newEngine(t)
	tr, err := light.New(light.Config{
		Name:                    "test",
		StateTopic:              "test_light_rgb/status",
		CommandTopic:            "test_light_rgb/set",
		BrightnessCommandTopic:  "test_light_rgb/brightness/set",
		RGBCommandTopic:         "test_light_rgb/rgb/set",
		ColorTempCommandTopic:   "test_light_rgb/color_temp/set",
		EffectCommandTopic:      "test_light_rgb/effect/set",
		HSCommandTopic:          "test_light_rgb/hs/set",
		WhiteValueCommandTopic:  "test_light_rgb/white_value/set",
		XYCommandTopic:          "test_light_rgb/xy/set",
		BrightnessStateTopic:    "test_light_rgb/brightness/status",
		ColorTempStateTopic:     "test_light_rgb/color_temp/status",
		EffectStateTopic:        "test_light_rgb/effect/status",
		HSStateTopic:            "test_light_rgb/hs/status",
		RGBStateTopic:           "test_light_rgb/rgb/status",
		WhiteValueStateTopic:    "test_light_rgb/white_value/status",
		XYStateTopic:            "test_light_rgb/xy/status",
		StateValueTemplate:      "{{ value_json.hello }}",
		BrightnessValueTemplate: "{{ value_json.hello }}",
		ColorTempValueTemplate:  "{{ value_json.hello }}",
		EffectValueTemplate:     "{{ value_json.hello }}",
		HSValueTemplate:         `{{ value_json.hello | join(",") }}`,
		RGBValueTemplate:        `{{ value_json.hello | join(",") }}`,
		WhiteValueTemplate:      "{{ value_json.hello }}",
		XYValueTemplate:         `{{ value_json.hello | join(",") }}`,
	}, e, nil)
	require.NoError(t, err)

	tr.HandleMessage("test_light_rgb/rgb/status", []byte(`{"hello": [1, 2, 3]}`))
	tr.HandleMessage("test_light_rgb/status", []byte(`{"hello": "ON"}`))
	tr.HandleMessage("test_light_rgb/brightness/status", []byte(`{"hello": "50"}`))
	tr.HandleMessage("test_light_rgb/color_temp/status", []byte(`{"hello": "300"}`))
	tr.HandleMessage("test_light_rgb/effect/status", []byte(`{"hello": "rainbow"}`))
	tr.HandleMessage("test_light_rgb/white_value/status", []byte(`{"hello": "75"}`))

	st := tr.State()
	assert.True(t, st.On)
	assert.Equal(t, 50, *st.Brightness)
	assert.Equal(t, light.RGB{R: 84, G: 169, B: 255}, light.HSToRGB(st.Color.HS()))
	assert.Equal(t, 300, *st.ColorTemp)
	assert.Equal(t, "rainbow", *st.Effect)
	assert.Equal(t, 75, *st.WhiteValue)

	tr.HandleMessage("test_light_rgb/hs/status", []byte(`{"hello": [100,50]}`))
	assert.Equal(t, light.HS{H: 100, S: 50}, tr.State().Color.HS())

	tr.HandleMessage("test_light_rgb/xy/status", []byte(`{"hello": [0.123,0.123]}`))
	assert.Equal(t, light.XY{X: 0.14, Y: 0.131}, light.HSToXY(tr.State().Color.HS()))

	_, ok := tr.HandleMessage("test_light_rgb/status", []byte(`not json`))
	assert.False(t, ok)
	assert.True(t, tr.State().On)
}

func TestTranslatorRejectsBrokenTemplate(t *testing.T) {
	e := newEngine(t)
	_, err := light.New(light.Config{
		CommandTopic:       "l/set",
		StateTopic:         "l/state",
		StateValueTemplate: "{{ value_json.hello | bogus }}",
	}, e, nil)
	assert.ErrorIs(t, err, light.ErrConfig)
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestCommandTemplates(t *testing.T) {
	e := newEngine(t)
	tr, err := light.New(light.Config{
		CommandTopic:             "l/set",
		RGBCommandTopic:          "l/rgb",
		RGBCommandTemplate:       `{{ "#%02x%02x%02x" | format(red, green, blue)}}`,
		ColorTempCommandTopic:    "l/ct",
		ColorTempCommandTemplate: "{{ (1000 / value) | round(0) }}",
		PayloadOn:                "on",
	}, e, nil)
	require.NoError(t, err)
	msgs := tr.TurnOn(light.Request{RGB: &light.RGB{R: 255, G: 128, B: 64}, ColorTemp: ptr(100)})
	require.Len(t, msgs, 3)
	assert.Equal(t, "#ff803f", msgs[0].Payload)
	assert.Equal(t, "10", msgs[1].Payload)
	assert.Equal(t, "on", msgs[2].Payload)
}

func ptr[T any](v T) *T { return &v }
