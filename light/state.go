package light

import "maps"

// State is the last known state of one light. Optional attributes stay nil
// until a value arrives from a state topic, an optimistic command or a restore.
type State struct {
	On         bool
	Available  bool
	Brightness *int
	Color      *Color
	ColorTemp  *int
	WhiteValue *int
	Effect     *string
	// Attributes holds the last dictionary received on the json attributes topic.
	Attributes map[string]any
}

// Has reports whether a value is known for a. Power and availability are always known.
func (s *State) Has(a Attr) bool {
	switch a {
	case AttrState, AttrAvailability:
		return true
	case AttrBrightness:
		return s.Brightness != nil
	case AttrRGB, AttrHS, AttrXY:
		return s.Color != nil
	case AttrColorTemp:
		return s.ColorTemp != nil
	case AttrWhiteValue:
		return s.WhiteValue != nil
	case AttrEffect:
		return s.Effect != nil
	case AttrJSONAttributes:
		return s.Attributes != nil
	}
	return false
}

// Set returns every attribute with a known value.
func (s *State) Set() AttrSet {
	var out AttrSet
	for a := Attr(0); a < attrCount; a++ {
		if s.Has(a) {
			out = out.With(a)
		}
	}
	return out
}

// Clone returns a deep copy safe to hand out of the owning translator.
func (s State) Clone() State {
	out := s
	out.Brightness = clonePtr(s.Brightness)
	out.Color = clonePtr(s.Color)
	out.ColorTemp = clonePtr(s.ColorTemp)
	out.WhiteValue = clonePtr(s.WhiteValue)
	out.Effect = clonePtr(s.Effect)
	if s.Attributes != nil {
		out.Attributes = maps.Clone(s.Attributes)
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func ptr[T any](v T) *T { return &v }
