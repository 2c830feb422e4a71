package light

import (
	"strconv"
)

// Request carries the attributes a caller wants to change. Nil fields are left alone.
type Request struct {
	Brightness *int
	RGB        *RGB
	HS         *HS
	XY         *XY
	ColorTemp  *int
	WhiteValue *int
	Effect     *string
}

// Command is a power change plus optional attribute changes when turning on.
type Command struct {
	On bool
	Request
}

// Message is a single publish the owner of the translator has to send.
type Message struct {
	Topic   string
	Payload string
	QoS     byte
	Retain  bool
}

var colorAttrs = []Attr{AttrRGB, AttrHS, AttrXY}

// color returns the requested color. When several representations are given
// rgb wins over hs, hs over xy.
func (r *Request) color() (Color, AttrSet, bool) {
	var set AttrSet
	var c *Color
	if r.XY != nil {
		set = set.With(AttrXY)
		c = ptr(ColorFromXY(*r.XY))
	}
	if r.HS != nil {
		set = set.With(AttrHS)
		c = ptr(ColorFromHS(*r.HS))
	}
	if r.RGB != nil {
		set = set.With(AttrRGB)
		c = ptr(ColorFromRGB(*r.RGB))
	}
	if c == nil {
		return Color{}, 0, false
	}
	return *c, set, true
}

func (t *Translator) TurnOn(r Request) []Message {
	return t.Apply(Command{On: true, Request: r})
}

func (t *Translator) TurnOff() []Message {
	return t.Apply(Command{})
}

// Apply composes the messages for cmd in publish order and applies optimistic
// state for every attribute that has no state topic.
func (t *Translator) Apply(cmd Command) []Message {
	c := &t.cfg
	if !cmd.On {
		if c.IsOptimistic(AttrState) {
			t.state.On = false
		}
		return []Message{t.message(c.CommandTopic, c.PayloadOff)}
	}

	req := cmd.Request
	// an rgb-only request carries its intensity until something tracks brightness
	if req.Brightness == nil && req.RGB != nil && !t.tracksBrightness() &&
		(c.BrightnessCommandTopic != "" || c.RGBCommandTopic != "") {
		if m := max(req.RGB.R, req.RGB.G, req.RGB.B); m > 0 {
			req.Brightness = ptr(clamp(m, 0, 255))
		}
	}
	var out []Message
	switch c.OnCommandType {
	case OnCommandFirst:
		out = append(out, t.message(c.CommandTopic, c.PayloadOn))
	case OnCommandBrightness:
		if req.Brightness == nil {
			req.Brightness = ptr(t.impliedBrightness())
		}
	}

	color, requested, hasColor := req.color()
	if hasColor {
		out = append(out, t.composeColor(&req, color, requested)...)
	}
	if req.Brightness != nil {
		out = append(out, t.composeBrightness(*req.Brightness, hasColor)...)
	}
	if req.ColorTemp != nil && c.ColorTempCommandTopic != "" {
		payload, err := t.templates.colorTempCommand.Format(map[string]any{"value": *req.ColorTemp})
		if err != nil {
			t.log.Errorf("rendering color_temp command for %d: %s", *req.ColorTemp, err)
		} else {
			out = append(out, t.message(c.ColorTempCommandTopic, payload))
			if c.IsOptimistic(AttrColorTemp) {
				t.state.ColorTemp = ptr(*req.ColorTemp)
			}
		}
	}
	if req.Effect != nil && c.EffectCommandTopic != "" {
		if c.EffectAllowed(*req.Effect) {
			out = append(out, t.message(c.EffectCommandTopic, *req.Effect))
			if c.IsOptimistic(AttrEffect) {
				t.state.Effect = ptr(*req.Effect)
			}
		} else {
			t.log.Warnf("effect %q not in effect list, not sending", *req.Effect)
		}
	}
	if req.WhiteValue != nil && c.WhiteValueCommandTopic != "" {
		w := clamp(*req.WhiteValue, 0, 255)
		out = append(out, t.message(c.WhiteValueCommandTopic, strconv.Itoa(scaleOut(w, c.WhiteValueScale))))
		if c.IsOptimistic(AttrWhiteValue) {
			t.state.WhiteValue = ptr(w)
		}
	}
	if c.OnCommandType == OnCommandLast {
		out = append(out, t.message(c.CommandTopic, c.PayloadOn))
	}
	if c.IsOptimistic(AttrState) {
		t.state.On = true
	}
	return out
}

// impliedBrightness picks the brightness sent as the "on" signal when none was requested.
func (t *Translator) impliedBrightness() int {
	if t.tracksBrightness() {
		return *t.state.Brightness
	}
	return 255
}

func (t *Translator) tracksBrightness() bool {
	return t.state.Brightness != nil && *t.state.Brightness > 0
}

func (t *Translator) composeColor(req *Request, color Color, requested AttrSet) []Message {
	c := &t.cfg
	var targets []Attr
	for _, a := range colorAttrs {
		if requested.Has(a) && c.CommandTopicFor(a) != "" {
			targets = append(targets, a)
		}
	}
	// the device speaks another color space, translate
	if len(targets) == 0 {
		for _, a := range colorAttrs {
			if c.CommandTopicFor(a) != "" {
				targets = append(targets, a)
			}
		}
	}
	hs := color.HS()
	var out []Message
	for _, a := range targets {
		var payload string
		switch a {
		case AttrRGB:
			value := 100.0
			// without a brightness topic brightness travels inside the rgb value
			if c.BrightnessCommandTopic == "" {
				value = float64(t.brightnessFor(req)) / 255 * 100
			}
			p, err := t.renderRGB(HSVToRGB(hs.H, hs.S, value))
			if err != nil {
				t.log.Errorf("rendering rgb command: %s", err)
				continue
			}
			payload = p
			if c.BrightnessCommandTopic == "" && req.Brightness != nil && c.IsOptimistic(AttrBrightness) {
				t.state.Brightness = ptr(clamp(*req.Brightness, 0, 255))
			}
		case AttrHS:
			payload = formatPair(hs.H, hs.S)
		case AttrXY:
			xy := HSToXY(hs)
			payload = formatPair(xy.X, xy.Y)
		}
		out = append(out, t.message(c.CommandTopicFor(a), payload))
		if c.IsOptimistic(a) {
			t.state.Color = ptr(color)
		}
	}
	return out
}

func (t *Translator) brightnessFor(req *Request) int {
	if req.Brightness != nil {
		return clamp(*req.Brightness, 0, 255)
	}
	return t.impliedBrightness()
}

func (t *Translator) composeBrightness(brightness int, hasColor bool) []Message {
	c := &t.cfg
	b := clamp(brightness, 0, 255)
	var out []Message
	switch {
	case c.BrightnessCommandTopic != "":
		out = append(out, t.message(c.BrightnessCommandTopic, strconv.Itoa(scaleOut(b, c.BrightnessScale))))
	case !hasColor && c.RGBCommandTopic != "":
		hs := HS{}
		if t.state.Color != nil {
			hs = t.state.Color.HS()
		}
		payload, err := t.renderRGB(HSVToRGB(hs.H, hs.S, float64(b)/255*100))
		if err != nil {
			t.log.Errorf("rendering rgb command for brightness %d: %s", b, err)
			return nil
		}
		out = append(out, t.message(c.RGBCommandTopic, payload))
	default:
		return nil
	}
	if c.IsOptimistic(AttrBrightness) {
		t.state.Brightness = ptr(b)
	}
	return out
}

func (t *Translator) renderRGB(rgb RGB) (string, error) {
	if s := t.cfg.RGBScale; s != DefaultScale {
		rgb = RGB{R: scaleOut(rgb.R, s), G: scaleOut(rgb.G, s), B: scaleOut(rgb.B, s)}
	}
	return t.templates.rgbCommand.Format(map[string]any{
		"red":   rgb.R,
		"green": rgb.G,
		"blue":  rgb.B,
		"value": formatRGB(rgb),
	})
}

func (t *Translator) message(topic, payload string) Message {
	return Message{Topic: topic, Payload: payload, QoS: t.cfg.QoS, Retain: t.cfg.Retain}
}
