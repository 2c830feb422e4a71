package queue

import (
	"github.com/XANi/mqttlight/light"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestDiscoveryID(t *testing.T) {
	for topic, want := range map[string]string{
		"homeassistant/light/bla/config":      "discovery/bla",
		"homeassistant/light/node/bla/config": "discovery/node/bla",
		"homeassistant/light/config":          "",
		"homeassistant/light/a/b/c/config":    "",
		"homeassistant/light//config":         "",
		"homeassistant/light/bla/state":       "",
		"homeassistant/sensor/bla/config":     "",
		"other/light/bla/config":              "",
	} {
		id, ok := DiscoveryID("homeassistant", topic)
		assert.Equal(t, want != "", ok, topic)
		assert.Equal(t, want, id, topic)
	}
}

func TestParseDiscoveryAbbreviations(t *testing.T) {
	cfg, err := ParseDiscovery([]byte(`{
		"name": "Beer",
		"~": "home/beer",
		"cmd_t": "~/set",
		"stat_t": "~/state",
		"bri_cmd_t": "~/bright/set",
		"avty_t": "status/~",
		"fx_list": ["rainbow", "colorloop"],
		"uniq_id": "beer1",
		"dev": {"ids": "abc", "mf": "Brew", "mdl": "Keg", "sw": "1.0"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "Beer", cfg.Name)
	assert.Equal(t, "home/beer/set", cfg.CommandTopic)
	assert.Equal(t, "home/beer/state", cfg.StateTopic)
	assert.Equal(t, "home/beer/bright/set", cfg.BrightnessCommandTopic)
	assert.Equal(t, "status/home/beer", cfg.AvailabilityTopic)
	assert.Equal(t, []string{"rainbow", "colorloop"}, cfg.EffectList)
	assert.Equal(t, "beer1", cfg.UniqueID)
	require.NotNil(t, cfg.Device)
	assert.Equal(t, []string{"abc"}, cfg.Device.Identifiers)
	assert.Equal(t, "Brew", cfg.Device.Manufacturer)
	assert.Equal(t, "Keg", cfg.Device.Model)
	assert.Equal(t, "1.0", cfg.Device.SWVersion)
}

func TestParseDiscoveryCoercion(t *testing.T) {
	cfg, err := ParseDiscovery([]byte(`{
		"cmd_t": "test_light/set",
		"pl_on": 1,
		"pl_off": 0,
		"qos": "1",
		"ret": "true",
		"bri_scl": "100"
	}`))
	require.NoError(t, err)
	assert.Equal(t, "1", cfg.PayloadOn)
	assert.Equal(t, "0", cfg.PayloadOff)
	assert.Equal(t, byte(1), cfg.QoS)
	assert.True(t, cfg.Retain)
	assert.Equal(t, 100, cfg.BrightnessScale)

	_, err = ParseDiscovery([]byte(`{"cmd_t": "a", "qos": "high"}`))
	assert.ErrorIs(t, err, ErrInvalidDiscovery)
}

func TestParseDiscoveryRejects(t *testing.T) {
	_, err := ParseDiscovery([]byte(`{"cmd_t": "a", "schema": "json"}`))
	assert.ErrorIs(t, err, ErrUnsupportedSchema)

	_, err = ParseDiscovery([]byte(`{"cmd_t": "a", "platform": "zigbee"}`))
	assert.ErrorIs(t, err, ErrInvalidDiscovery)

	_, err = ParseDiscovery([]byte(`[1, 2]`))
	assert.ErrorIs(t, err, ErrInvalidDiscovery)

	cfg, err := ParseDiscovery([]byte(`{"cmd_t": "a", "platform": "mqtt", "schema": "basic"}`))
	require.NoError(t, err)
	assert.Equal(t, "a", cfg.CommandTopic)
}

func TestParseDiscoveryLeavesValidationToLight(t *testing.T) {
	cfg, err := ParseDiscovery([]byte(`{"name": "Beer"}`))
	require.NoError(t, err)
	assert.ErrorIs(t, cfg.Validate(), light.ErrConfig)
}
