package light

import "fmt"

// Extractor turns a raw payload into the effective payload of one attribute.
type Extractor interface {
	Extract(payload []byte) (string, error)
}

// Formatter renders a command payload from named values. "value" always holds
// the default rendering; color commands also get their components.
type Formatter interface {
	Format(vars map[string]any) (string, error)
}

// Templater compiles template sources into extractors and formatters.
type Templater interface {
	Extractor(src string) (Extractor, error)
	Formatter(src string) (Formatter, error)
}

// Identity passes payloads through untouched and formats commands with their default rendering.
type Identity struct{}

func (Identity) Extract(payload []byte) (string, error) {
	return string(payload), nil
}

func (Identity) Format(vars map[string]any) (string, error) {
	v, ok := vars["value"]
	if !ok {
		return "", fmt.Errorf("no value to format")
	}
	return fmt.Sprint(v), nil
}

type templates struct {
	value            [attrCount]Extractor
	rgbCommand       Formatter
	colorTempCommand Formatter
}

func compileTemplates(cfg *Config, t Templater) (templates, error) {
	var out templates
	for a := Attr(0); a < attrCount; a++ {
		out.value[a] = Identity{}
		src := cfg.valueTemplate(a)
		if src == "" {
			continue
		}
		if t == nil {
			return out, fmt.Errorf("%w: %s value template set but no template engine available", ErrConfig, a)
		}
		ex, err := t.Extractor(src)
		if err != nil {
			return out, fmt.Errorf("%w: %s value template: %w", ErrConfig, a, err)
		}
		out.value[a] = ex
	}
	var err error
	if out.rgbCommand, err = compileFormatter(t, "rgb", cfg.RGBCommandTemplate); err != nil {
		return out, err
	}
	if out.colorTempCommand, err = compileFormatter(t, "color_temp", cfg.ColorTempCommandTemplate); err != nil {
		return out, err
	}
	return out, nil
}

func compileFormatter(t Templater, name, src string) (Formatter, error) {
	if src == "" {
		return Identity{}, nil
	}
	if t == nil {
		return nil, fmt.Errorf("%w: %s command template set but no template engine available", ErrConfig, name)
	}
	f, err := t.Formatter(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %s command template: %w", ErrConfig, name, err)
	}
	return f, nil
}
