package queue

import (
	"fmt"
	"github.com/XANi/mqttlight/light"
	"github.com/goccy/go-json"
	"strconv"
	"strings"
)

// abbreviations used by devices to keep discovery documents small
var abbreviations = map[string]string{
	"avty_t":           "availability_topic",
	"bri_cmd_t":        "brightness_command_topic",
	"bri_scl":          "brightness_scale",
	"bri_stat_t":       "brightness_state_topic",
	"bri_val_tpl":      "brightness_value_template",
	"clr_temp_cmd_tpl": "color_temp_command_template",
	"clr_temp_cmd_t":   "color_temp_command_topic",
	"clr_temp_stat_t":  "color_temp_state_topic",
	"clr_temp_val_tpl": "color_temp_value_template",
	"cmd_t":            "command_topic",
	"dev":              "device",
	"fx_cmd_t":         "effect_command_topic",
	"fx_list":          "effect_list",
	"fx_stat_t":        "effect_state_topic",
	"fx_val_tpl":       "effect_value_template",
	"hs_cmd_t":         "hs_command_topic",
	"hs_stat_t":        "hs_state_topic",
	"hs_val_tpl":       "hs_value_template",
	"json_attr_t":      "json_attributes_topic",
	"on_cmd_type":      "on_command_type",
	"opt":              "optimistic",
	"pl_avail":         "payload_available",
	"pl_not_avail":     "payload_not_available",
	"pl_off":           "payload_off",
	"pl_on":            "payload_on",
	"ret":              "retain",
	"rgb_cmd_tpl":      "rgb_command_template",
	"rgb_cmd_t":        "rgb_command_topic",
	"rgb_stat_t":       "rgb_state_topic",
	"rgb_val_tpl":      "rgb_value_template",
	"stat_t":           "state_topic",
	"stat_val_tpl":     "state_value_template",
	"uniq_id":          "unique_id",
	"whit_val_cmd_t":   "white_value_command_topic",
	"whit_val_scl":     "white_value_scale",
	"whit_val_stat_t":  "white_value_state_topic",
	"whit_val_tpl":     "white_value_template",
	"xy_cmd_t":         "xy_command_topic",
	"xy_stat_t":        "xy_state_topic",
	"xy_val_tpl":       "xy_value_template",
}

var deviceAbbreviations = map[string]string{
	"cns":  "connections",
	"ids":  "identifiers",
	"mf":   "manufacturer",
	"mdl":  "model",
	"sw":   "sw_version",
	"name": "name",
}

var stringKeys = []string{
	"name", "unique_id", "payload_on", "payload_off", "payload_available",
	"payload_not_available", "on_command_type",
}

var intKeys = []string{"qos", "brightness_scale", "white_value_scale", "rgb_scale"}

var boolKeys = []string{"retain", "optimistic"}

// DiscoveryID extracts the light id from <prefix>/light/[<node_id>/]<object_id>/config.
func DiscoveryID(prefix, topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, prefix+"/light/")
	if !ok {
		return "", false
	}
	rest, ok = strings.CutSuffix(rest, "/config")
	if !ok || rest == "" {
		return "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) > 2 {
		return "", false
	}
	for _, p := range parts {
		if p == "" {
			return "", false
		}
	}
	return "discovery/" + rest, true
}

// ParseDiscovery turns a discovery document into a light config. Validation
// of the result (command_topic and friends) is left to the light itself.
func ParseDiscovery(payload []byte) (light.Config, error) {
	var cfg light.Config
	var doc map[string]any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return cfg, fmt.Errorf("%w: %s", ErrInvalidDiscovery, err)
	}
	doc = expand(doc, abbreviations)
	if p, ok := doc["platform"]; ok {
		if p != "mqtt" {
			return cfg, fmt.Errorf("%w: platform %v", ErrInvalidDiscovery, p)
		}
		delete(doc, "platform")
	}
	if s, ok := doc["schema"]; ok {
		if s != "basic" && s != "default" {
			return cfg, fmt.Errorf("%w: %v", ErrUnsupportedSchema, s)
		}
		delete(doc, "schema")
	}
	if base, ok := doc["~"].(string); ok {
		for k, v := range doc {
			if s, ok := v.(string); ok && strings.HasSuffix(k, "_topic") {
				doc[k] = applyBase(s, base)
			}
		}
		delete(doc, "~")
	}
	if dev, ok := doc["device"].(map[string]any); ok {
		dev = expand(dev, deviceAbbreviations)
		if id, ok := dev["identifiers"].(string); ok {
			dev["identifiers"] = []any{id}
		}
		doc["device"] = dev
	}
	if err := coerce(doc); err != nil {
		return cfg, err
	}
	normalized, err := json.Marshal(doc)
	if err != nil {
		return cfg, fmt.Errorf("%w: %s", ErrInvalidDiscovery, err)
	}
	if err := json.Unmarshal(normalized, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %s", ErrInvalidDiscovery, err)
	}
	return cfg, nil
}

func expand(doc map[string]any, table map[string]string) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		if full, ok := table[k]; ok {
			k = full
		}
		out[k] = v
	}
	return out
}

func applyBase(topic, base string) string {
	switch {
	case strings.HasPrefix(topic, "~"):
		return base + topic[1:]
	case strings.HasSuffix(topic, "~"):
		return topic[:len(topic)-1] + base
	}
	return topic
}

// coerce fixes up loosely typed values such as payload_on: 1 or qos: "0".
func coerce(doc map[string]any) error {
	for _, k := range stringKeys {
		switch v := doc[k].(type) {
		case float64:
			doc[k] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			doc[k] = strconv.FormatBool(v)
		}
	}
	for _, k := range intKeys {
		if s, ok := doc[k].(string); ok {
			n, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				return fmt.Errorf("%w: %s must be a number, got %q", ErrInvalidDiscovery, k, s)
			}
			doc[k] = n
		}
	}
	for _, k := range boolKeys {
		if s, ok := doc[k].(string); ok {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return fmt.Errorf("%w: %s must be a boolean, got %q", ErrInvalidDiscovery, k, s)
			}
			doc[k] = b
		}
	}
	return nil
}
