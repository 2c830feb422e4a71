package config

import (
	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(cfg.GetDefaultConfig()), &cfg))
	assert.Equal(t, "homeassistant", cfg.DiscoveryPrefix)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	require.Contains(t, cfg.Lights, "kitchen")
	l := cfg.Lights["kitchen"]
	assert.Equal(t, "kitchen/rgb/set", l.RGBCommandTopic)
	assert.Equal(t, "1", l.PayloadOn)
	assert.NoError(t, l.Validate())
}

func TestLightsFromYAML(t *testing.T) {
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(`
mqtt_address: tcp://broker:1883
lights:
  desk:
    name: Desk
    command_topic: desk/set
    brightness_command_topic: desk/bright
    brightness_scale: 100
    on_command_type: brightness
    effect_list: [rainbow, colorloop]
`), &cfg))
	l := cfg.Lights["desk"]
	assert.Equal(t, "Desk", l.Name)
	assert.Equal(t, 100, l.BrightnessScale)
	assert.EqualValues(t, "brightness", l.OnCommandType)
	assert.Equal(t, []string{"rainbow", "colorloop"}, l.EffectList)
}
