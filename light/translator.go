package light

import (
	"errors"
	"fmt"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"math"
)

// Translator maps MQTT payloads to light state and light commands to MQTT
// payloads. It does no I/O and is not safe for concurrent use; the owner is
// expected to serialize calls.
type Translator struct {
	cfg       Config
	tpl       Templater
	templates templates
	table     TopicTable
	state     State
	log       *zap.SugaredLogger
}

// Update is the result of one inbound message that changed state.
type Update struct {
	Topic   string
	Changed AttrSet
	State   State
}

// New builds a translator. tpl may be nil when the config uses no templates.
func New(cfg Config, tpl Templater, log *zap.SugaredLogger) (*Translator, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	t := &Translator{tpl: tpl, log: log}
	if err := t.load(cfg); err != nil {
		return nil, err
	}
	// with no availability topic nothing can ever mark the light unavailable
	t.state.Available = t.cfg.AvailabilityTopic == ""
	return t, nil
}

func (t *Translator) load(cfg Config) error {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	compiled, err := compileTemplates(&cfg, t.tpl)
	if err != nil {
		return err
	}
	t.cfg = cfg
	t.templates = compiled
	t.table = newTopicTable(&t.cfg)
	return nil
}

// Reconfigure swaps config, templates and topic table at once. Known state is
// kept. On error the previous configuration stays active.
func (t *Translator) Reconfigure(cfg Config) error {
	hadAvailability := t.cfg.AvailabilityTopic != ""
	if err := t.load(cfg); err != nil {
		return err
	}
	if hadAvailability && t.cfg.AvailabilityTopic == "" {
		t.state.Available = true
	}
	return nil
}

func (t *Translator) Config() Config     { return t.cfg }
func (t *Translator) Table() TopicTable  { return t.table }
func (t *Translator) Topics() []string   { return t.table.Topics() }
func (t *Translator) Supported() AttrSet { return t.cfg.Supported() }

// State returns a copy of the current state.
func (t *Translator) State() State { return t.state.Clone() }

// Optimistic reports whether power state is assumed rather than reported by the device.
func (t *Translator) Optimistic() bool { return t.cfg.IsOptimistic(AttrState) }

// HandleMessage applies a payload received on topic. Topics that are not part
// of the current table are ignored. Malformed or rejected payloads are logged
// and leave state untouched.
func (t *Translator) HandleMessage(topic string, payload []byte) (Update, bool) {
	var changed AttrSet
	for _, a := range t.table.Lookup(topic) {
		set, err := t.handle(a, payload)
		if err != nil {
			t.log.Warnf("dropping %s update from %s: %s", a, topic, err)
			continue
		}
		changed |= set
	}
	if changed.Empty() {
		return Update{}, false
	}
	return Update{Topic: topic, Changed: changed, State: t.state.Clone()}, true
}

func (t *Translator) handle(a Attr, payload []byte) (AttrSet, error) {
	switch a {
	case AttrAvailability:
		return t.handleAvailability(string(payload))
	case AttrJSONAttributes:
		return t.handleAttributes(payload)
	}
	value, err := t.templates.value[a].Extract(payload)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrTemplate, err)
	}
	if value == "" {
		t.log.Debugf("ignoring empty %s payload", a)
		return 0, nil
	}
	switch a {
	case AttrState:
		switch value {
		case t.cfg.PayloadOn:
			t.state.On = true
		case t.cfg.PayloadOff:
			t.state.On = false
		default:
			return 0, fmt.Errorf("%w: %q is neither %q nor %q", ErrValidation, value, t.cfg.PayloadOn, t.cfg.PayloadOff)
		}
		return NewAttrSet(AttrState), nil
	case AttrBrightness:
		v, err := parseNumber(value)
		if err != nil {
			return 0, err
		}
		t.state.Brightness = ptr(scaleIn(v, t.cfg.BrightnessScale))
		return NewAttrSet(AttrBrightness), nil
	case AttrRGB:
		return t.handleRGB(value)
	case AttrHS:
		v, err := parseList(value, 2)
		if err != nil {
			return 0, err
		}
		hs := HS{H: clampHue(v[0]), S: math.Max(0, math.Min(v[1], 100))}
		t.state.Color = ptr(ColorFromHS(hs))
		return NewAttrSet(AttrHS), nil
	case AttrXY:
		v, err := parseList(value, 2)
		if err != nil {
			return 0, err
		}
		if v[0] < 0 || v[0] > 1 || v[1] < 0 || v[1] > 1 {
			return 0, fmt.Errorf("%w: xy %q out of range", ErrValidation, value)
		}
		t.state.Color = ptr(ColorFromXY(XY{X: v[0], Y: v[1]}))
		return NewAttrSet(AttrXY), nil
	case AttrColorTemp:
		v, err := parseInt(value)
		if err != nil {
			return 0, err
		}
		if v < 0 {
			return 0, fmt.Errorf("%w: negative color temperature %d", ErrValidation, v)
		}
		t.state.ColorTemp = ptr(v)
		return NewAttrSet(AttrColorTemp), nil
	case AttrWhiteValue:
		v, err := parseNumber(value)
		if err != nil {
			return 0, err
		}
		t.state.WhiteValue = ptr(scaleIn(v, t.cfg.WhiteValueScale))
		return NewAttrSet(AttrWhiteValue), nil
	case AttrEffect:
		if !t.cfg.EffectAllowed(value) {
			return 0, fmt.Errorf("%w: effect %q not in effect list", ErrValidation, value)
		}
		t.state.Effect = ptr(value)
		return NewAttrSet(AttrEffect), nil
	}
	return 0, nil
}

func (t *Translator) handleRGB(value string) (AttrSet, error) {
	v, err := parseList(value, 3)
	if err != nil {
		return 0, err
	}
	var ch [3]int
	for i := range v {
		ch[i] = scaleIn(v[i], t.cfg.RGBScale)
	}
	rgb := RGB{R: ch[0], G: ch[1], B: ch[2]}
	t.state.Color = ptr(ColorFromRGB(rgb))
	changed := NewAttrSet(AttrRGB)
	if t.cfg.BrightnessStateTopic == "" {
		t.state.Brightness = ptr(max(rgb.R, rgb.G, rgb.B))
		changed = changed.With(AttrBrightness)
	}
	return changed, nil
}

func (t *Translator) handleAvailability(value string) (AttrSet, error) {
	switch value {
	case t.cfg.PayloadAvailable:
		t.state.Available = true
	case t.cfg.PayloadNotAvailable:
		t.state.Available = false
	default:
		return 0, fmt.Errorf("%w: unknown availability payload %q", ErrValidation, value)
	}
	return NewAttrSet(AttrAvailability), nil
}

var errNotDictionary = errors.New("JSON result was not a dictionary")

func (t *Translator) handleAttributes(payload []byte) (AttrSet, error) {
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return 0, fmt.Errorf("%w: Erroneous JSON: %s", ErrParse, string(payload))
	}
	attrs, ok := decoded.(map[string]any)
	if !ok {
		return 0, fmt.Errorf("%w: %w", ErrValidation, errNotDictionary)
	}
	t.state.Attributes = attrs
	return NewAttrSet(AttrJSONAttributes), nil
}

func clampHue(h float64) float64 {
	if h < 0 {
		return 0
	}
	if h >= 360 {
		return math.Mod(h, 360)
	}
	return h
}

// Restore seeds state saved before a restart. Only attributes nothing will
// ever confirm are taken over; the rest wait for their state topic.
func (t *Translator) Restore(prev State) {
	c := &t.cfg
	if c.IsOptimistic(AttrState) {
		t.state.On = prev.On
	}
	if prev.Brightness != nil && c.IsOptimistic(AttrBrightness) {
		t.state.Brightness = ptr(clamp(*prev.Brightness, 0, 255))
	}
	if prev.Color != nil && (c.IsOptimistic(AttrRGB) || c.IsOptimistic(AttrHS) || c.IsOptimistic(AttrXY)) {
		t.state.Color = ptr(*prev.Color)
	}
	if prev.ColorTemp != nil && c.IsOptimistic(AttrColorTemp) {
		t.state.ColorTemp = ptr(*prev.ColorTemp)
	}
	if prev.WhiteValue != nil && c.IsOptimistic(AttrWhiteValue) {
		t.state.WhiteValue = ptr(clamp(*prev.WhiteValue, 0, 255))
	}
	if prev.Effect != nil && c.IsOptimistic(AttrEffect) && c.EffectAllowed(*prev.Effect) {
		t.state.Effect = ptr(*prev.Effect)
	}
}
