package entity

import (
	"github.com/XANi/mqttlight/light"
	"maps"
)

const (
	StateOn          = "on"
	StateOff         = "off"
	StateUnavailable = "unavailable"
)

// Feature bits as exposed in supported_features.
const (
	SupportBrightness = 1
	SupportColorTemp  = 2
	SupportEffect     = 4
	SupportColor      = 16
	SupportWhiteValue = 128
)

const (
	MinMireds = 153
	MaxMireds = 500
)

// Values shown for supported attributes nothing has reported yet.
const (
	defaultBrightness = 255
	defaultColorTemp  = 150
	defaultEffect     = "none"
	defaultWhiteValue = 255
)

type Report struct {
	EntityID   string         `json:"entity_id"`
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

func supportedFeatures(s light.AttrSet) int {
	f := 0
	if s.Has(light.AttrBrightness) {
		f |= SupportBrightness
	}
	if s.Has(light.AttrColorTemp) {
		f |= SupportColorTemp
	}
	if s.Has(light.AttrEffect) {
		f |= SupportEffect
	}
	if s.Has(light.AttrRGB) || s.Has(light.AttrHS) || s.Has(light.AttrXY) {
		f |= SupportColor
	}
	if s.Has(light.AttrWhiteValue) {
		f |= SupportWhiteValue
	}
	return f
}

// Report renders state the way it is shown to users: light attributes only
// while on, supported attributes with defaults until a value is known.
func (l *Light) Report() Report {
	l.Lock()
	defer l.Unlock()
	cfg := l.tr.Config()
	st := l.tr.State()
	supported := l.tr.Supported()
	features := supportedFeatures(supported)

	attrs := map[string]any{
		"friendly_name":      cfg.Name,
		"supported_features": features,
	}
	if st.Attributes != nil {
		maps.Copy(attrs, st.Attributes)
	}
	if l.tr.Optimistic() {
		attrs["assumed_state"] = true
	}
	if features&SupportColorTemp != 0 {
		attrs["min_mireds"] = MinMireds
		attrs["max_mireds"] = MaxMireds
	}
	if features&SupportEffect != 0 && len(cfg.EffectList) > 0 {
		attrs["effect_list"] = cfg.EffectList
	}

	r := Report{EntityID: l.entityID, State: StateOff, Attributes: attrs}
	switch {
	case !st.Available:
		r.State = StateUnavailable
		return r
	case !st.On:
		return r
	}
	r.State = StateOn

	if features&SupportBrightness != 0 {
		attrs["brightness"] = valueOr(st.Brightness, defaultBrightness)
	}
	if features&SupportColor != 0 {
		hs := light.HS{}
		if st.Color != nil {
			hs = st.Color.HS()
		}
		rgb := light.HSToRGB(hs)
		xy := light.HSToXY(hs)
		attrs["hs_color"] = []float64{light.Round(hs.H, 3), light.Round(hs.S, 3)}
		attrs["rgb_color"] = []int{rgb.R, rgb.G, rgb.B}
		attrs["xy_color"] = []float64{xy.X, xy.Y}
	}
	if features&SupportColorTemp != 0 {
		attrs["color_temp"] = valueOr(st.ColorTemp, defaultColorTemp)
	}
	if features&SupportEffect != 0 {
		attrs["effect"] = valueOr(st.Effect, defaultEffect)
	}
	if features&SupportWhiteValue != 0 {
		attrs["white_value"] = valueOr(st.WhiteValue, defaultWhiteValue)
	}
	return r
}

func valueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
