package light

import (
	"fmt"
	"slices"
)

type OnCommandType string

const (
	OnCommandLast       OnCommandType = "last"
	OnCommandFirst      OnCommandType = "first"
	OnCommandBrightness OnCommandType = "brightness"
)

const (
	DefaultName                = "MQTT Light"
	DefaultPayloadOn           = "ON"
	DefaultPayloadOff          = "OFF"
	DefaultPayloadAvailable    = "online"
	DefaultPayloadNotAvailable = "offline"
	DefaultScale               = 255
)

type Device struct {
	Identifiers  []string   `yaml:"identifiers" json:"identifiers,omitempty"`
	Connections  [][]string `yaml:"connections" json:"connections,omitempty"`
	Manufacturer string     `yaml:"manufacturer" json:"manufacturer,omitempty"`
	Model        string     `yaml:"model" json:"model,omitempty"`
	Name         string     `yaml:"name" json:"name,omitempty"`
	SWVersion    string     `yaml:"sw_version" json:"sw_version,omitempty"`
}

// Config describes one light. Field names follow the Home Assistant MQTT light
// configuration so discovery documents and static YAML share a single shape.
type Config struct {
	Name     string  `yaml:"name" json:"name"`
	UniqueID string  `yaml:"unique_id" json:"unique_id"`
	Device   *Device `yaml:"device" json:"device,omitempty"`

	StateTopic   string `yaml:"state_topic" json:"state_topic"`
	CommandTopic string `yaml:"command_topic" json:"command_topic"`

	BrightnessStateTopic   string `yaml:"brightness_state_topic" json:"brightness_state_topic"`
	BrightnessCommandTopic string `yaml:"brightness_command_topic" json:"brightness_command_topic"`
	RGBStateTopic          string `yaml:"rgb_state_topic" json:"rgb_state_topic"`
	RGBCommandTopic        string `yaml:"rgb_command_topic" json:"rgb_command_topic"`
	HSStateTopic           string `yaml:"hs_state_topic" json:"hs_state_topic"`
	HSCommandTopic         string `yaml:"hs_command_topic" json:"hs_command_topic"`
	XYStateTopic           string `yaml:"xy_state_topic" json:"xy_state_topic"`
	XYCommandTopic         string `yaml:"xy_command_topic" json:"xy_command_topic"`
	ColorTempStateTopic    string `yaml:"color_temp_state_topic" json:"color_temp_state_topic"`
	ColorTempCommandTopic  string `yaml:"color_temp_command_topic" json:"color_temp_command_topic"`
	WhiteValueStateTopic   string `yaml:"white_value_state_topic" json:"white_value_state_topic"`
	WhiteValueCommandTopic string `yaml:"white_value_command_topic" json:"white_value_command_topic"`
	EffectStateTopic       string `yaml:"effect_state_topic" json:"effect_state_topic"`
	EffectCommandTopic     string `yaml:"effect_command_topic" json:"effect_command_topic"`
	AvailabilityTopic      string `yaml:"availability_topic" json:"availability_topic"`
	JSONAttributesTopic    string `yaml:"json_attributes_topic" json:"json_attributes_topic"`

	StateValueTemplate      string `yaml:"state_value_template" json:"state_value_template"`
	BrightnessValueTemplate string `yaml:"brightness_value_template" json:"brightness_value_template"`
	RGBValueTemplate        string `yaml:"rgb_value_template" json:"rgb_value_template"`
	HSValueTemplate         string `yaml:"hs_value_template" json:"hs_value_template"`
	XYValueTemplate         string `yaml:"xy_value_template" json:"xy_value_template"`
	ColorTempValueTemplate  string `yaml:"color_temp_value_template" json:"color_temp_value_template"`
	WhiteValueTemplate      string `yaml:"white_value_template" json:"white_value_template"`
	EffectValueTemplate     string `yaml:"effect_value_template" json:"effect_value_template"`

	RGBCommandTemplate       string `yaml:"rgb_command_template" json:"rgb_command_template"`
	ColorTempCommandTemplate string `yaml:"color_temp_command_template" json:"color_temp_command_template"`

	PayloadOn           string `yaml:"payload_on" json:"payload_on"`
	PayloadOff          string `yaml:"payload_off" json:"payload_off"`
	PayloadAvailable    string `yaml:"payload_available" json:"payload_available"`
	PayloadNotAvailable string `yaml:"payload_not_available" json:"payload_not_available"`

	BrightnessScale int           `yaml:"brightness_scale" json:"brightness_scale"`
	WhiteValueScale int           `yaml:"white_value_scale" json:"white_value_scale"`
	RGBScale        int           `yaml:"rgb_scale" json:"rgb_scale"`
	EffectList      []string      `yaml:"effect_list" json:"effect_list"`
	OnCommandType   OnCommandType `yaml:"on_command_type" json:"on_command_type"`
	QoS             byte          `yaml:"qos" json:"qos"`
	Retain          bool          `yaml:"retain" json:"retain"`
	Optimistic      bool          `yaml:"optimistic" json:"optimistic"`
}

// WithDefaults returns a copy of c with unset fields filled in.
func (c Config) WithDefaults() Config {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.PayloadOn == "" {
		c.PayloadOn = DefaultPayloadOn
	}
	if c.PayloadOff == "" {
		c.PayloadOff = DefaultPayloadOff
	}
	if c.PayloadAvailable == "" {
		c.PayloadAvailable = DefaultPayloadAvailable
	}
	if c.PayloadNotAvailable == "" {
		c.PayloadNotAvailable = DefaultPayloadNotAvailable
	}
	if c.BrightnessScale == 0 {
		c.BrightnessScale = DefaultScale
	}
	if c.WhiteValueScale == 0 {
		c.WhiteValueScale = DefaultScale
	}
	if c.RGBScale == 0 {
		c.RGBScale = DefaultScale
	}
	if c.OnCommandType == "" {
		c.OnCommandType = OnCommandLast
	}
	c.EffectList = slices.Clone(c.EffectList)
	return c
}

func (c *Config) Validate() error {
	if c.CommandTopic == "" {
		return fmt.Errorf("%w: command_topic is required", ErrConfig)
	}
	switch c.OnCommandType {
	case OnCommandLast, OnCommandFirst, OnCommandBrightness, "":
	default:
		return fmt.Errorf("%w: unknown on_command_type %q", ErrConfig, c.OnCommandType)
	}
	if c.BrightnessScale < 0 || c.WhiteValueScale < 0 || c.RGBScale < 0 {
		return fmt.Errorf("%w: scales must be positive", ErrConfig)
	}
	if c.QoS > 2 {
		return fmt.Errorf("%w: qos must be 0, 1 or 2, got %d", ErrConfig, c.QoS)
	}
	return nil
}

// StateTopicFor returns the topic carrying inbound updates for a.
func (c *Config) StateTopicFor(a Attr) string {
	switch a {
	case AttrState:
		return c.StateTopic
	case AttrBrightness:
		return c.BrightnessStateTopic
	case AttrRGB:
		return c.RGBStateTopic
	case AttrHS:
		return c.HSStateTopic
	case AttrXY:
		return c.XYStateTopic
	case AttrColorTemp:
		return c.ColorTempStateTopic
	case AttrWhiteValue:
		return c.WhiteValueStateTopic
	case AttrEffect:
		return c.EffectStateTopic
	case AttrAvailability:
		return c.AvailabilityTopic
	case AttrJSONAttributes:
		return c.JSONAttributesTopic
	}
	return ""
}

// CommandTopicFor returns the topic commands for a are published on.
func (c *Config) CommandTopicFor(a Attr) string {
	switch a {
	case AttrState:
		return c.CommandTopic
	case AttrBrightness:
		return c.BrightnessCommandTopic
	case AttrRGB:
		return c.RGBCommandTopic
	case AttrHS:
		return c.HSCommandTopic
	case AttrXY:
		return c.XYCommandTopic
	case AttrColorTemp:
		return c.ColorTempCommandTopic
	case AttrWhiteValue:
		return c.WhiteValueCommandTopic
	case AttrEffect:
		return c.EffectCommandTopic
	}
	return ""
}

func (c *Config) valueTemplate(a Attr) string {
	switch a {
	case AttrState:
		return c.StateValueTemplate
	case AttrBrightness:
		return c.BrightnessValueTemplate
	case AttrRGB:
		return c.RGBValueTemplate
	case AttrHS:
		return c.HSValueTemplate
	case AttrXY:
		return c.XYValueTemplate
	case AttrColorTemp:
		return c.ColorTempValueTemplate
	case AttrWhiteValue:
		return c.WhiteValueTemplate
	case AttrEffect:
		return c.EffectValueTemplate
	}
	return ""
}

// Supported returns capabilities that have a command topic. An rgb command
// topic implies brightness support since brightness can be expressed as rgb.
func (c *Config) Supported() AttrSet {
	var s AttrSet
	for _, a := range []Attr{AttrBrightness, AttrRGB, AttrHS, AttrXY, AttrColorTemp, AttrWhiteValue, AttrEffect} {
		if c.CommandTopicFor(a) != "" {
			s = s.With(a)
		}
	}
	if s.Has(AttrRGB) {
		s = s.With(AttrBrightness)
	}
	return s
}

// IsOptimistic reports whether a is assumed from commands rather than confirmed by a state topic.
func (c *Config) IsOptimistic(a Attr) bool {
	return c.Optimistic || c.StateTopicFor(a) == ""
}

// EffectAllowed reports whether effect may be used. An empty effect list allows any effect.
func (c *Config) EffectAllowed(effect string) bool {
	return len(c.EffectList) == 0 || slices.Contains(c.EffectList, effect)
}
