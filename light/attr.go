package light

import (
	"sort"
	"strings"
)

// Attr identifies one state-bearing attribute of a light.
type Attr uint8

const (
	AttrState Attr = iota
	AttrBrightness
	AttrRGB
	AttrHS
	AttrXY
	AttrColorTemp
	AttrWhiteValue
	AttrEffect
	AttrAvailability
	AttrJSONAttributes
	attrCount
)

var attrNames = [attrCount]string{
	AttrState:          "state",
	AttrBrightness:     "brightness",
	AttrRGB:            "rgb",
	AttrHS:             "hs",
	AttrXY:             "xy",
	AttrColorTemp:      "color_temp",
	AttrWhiteValue:     "white_value",
	AttrEffect:         "effect",
	AttrAvailability:   "availability",
	AttrJSONAttributes: "json_attributes",
}

func (a Attr) String() string {
	if a < attrCount {
		return attrNames[a]
	}
	return "unknown"
}

// AttrSet is a bitset of attributes.
type AttrSet uint16

func NewAttrSet(attrs ...Attr) AttrSet {
	var s AttrSet
	for _, a := range attrs {
		s = s.With(a)
	}
	return s
}

func (s AttrSet) With(a Attr) AttrSet { return s | 1<<a }
func (s AttrSet) Has(a Attr) bool     { return s&(1<<a) != 0 }
func (s AttrSet) Empty() bool         { return s == 0 }

func (s AttrSet) Attrs() []Attr {
	var out []Attr
	for a := Attr(0); a < attrCount; a++ {
		if s.Has(a) {
			out = append(out, a)
		}
	}
	return out
}

func (s AttrSet) String() string {
	names := make([]string, 0, attrCount)
	for _, a := range s.Attrs() {
		names = append(names, a.String())
	}
	return strings.Join(names, ",")
}

// TopicTable maps subscribed topics to the attributes they carry.
// It is built once from a Config and never modified; reconfiguration replaces it.
type TopicTable struct {
	routes map[string][]Attr
}

func newTopicTable(cfg *Config) TopicTable {
	t := TopicTable{routes: map[string][]Attr{}}
	add := func(topic string, a Attr) {
		if topic != "" {
			t.routes[topic] = append(t.routes[topic], a)
		}
	}
	add(cfg.StateTopic, AttrState)
	add(cfg.BrightnessStateTopic, AttrBrightness)
	add(cfg.RGBStateTopic, AttrRGB)
	add(cfg.HSStateTopic, AttrHS)
	add(cfg.XYStateTopic, AttrXY)
	add(cfg.ColorTempStateTopic, AttrColorTemp)
	add(cfg.WhiteValueStateTopic, AttrWhiteValue)
	add(cfg.EffectStateTopic, AttrEffect)
	add(cfg.AvailabilityTopic, AttrAvailability)
	add(cfg.JSONAttributesTopic, AttrJSONAttributes)
	return t
}

// Lookup returns attributes carried by topic, in dispatch order.
func (t TopicTable) Lookup(topic string) []Attr {
	return t.routes[topic]
}

// Topics returns the sorted list of topics to subscribe to.
func (t TopicTable) Topics() []string {
	out := make([]string, 0, len(t.routes))
	for topic := range t.routes {
		out = append(out, topic)
	}
	sort.Strings(out)
	return out
}
