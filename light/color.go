package light

import (
	"math"
	"strconv"
)

type RGB struct{ R, G, B int }

// HS is hue in degrees [0,360) and saturation in percent [0,100].
type HS struct{ H, S float64 }

// XY is a CIE 1931 chromaticity coordinate.
type XY struct{ X, Y float64 }

type ColorMode uint8

const (
	ColorModeRGB ColorMode = iota + 1
	ColorModeHS
	ColorModeXY
)

func (m ColorMode) String() string {
	switch m {
	case ColorModeRGB:
		return "rgb"
	case ColorModeHS:
		return "hs"
	case ColorModeXY:
		return "xy"
	}
	return ""
}

func ParseColorMode(s string) (ColorMode, bool) {
	switch s {
	case "rgb":
		return ColorModeRGB, true
	case "hs":
		return ColorModeHS, true
	case "xy":
		return ColorModeXY, true
	}
	return 0, false
}

// Color keeps the representation it was last written in; the other two are
// converted on read so they can never go stale.
type Color struct {
	mode ColorMode
	rgb  RGB
	hs   HS
	xy   XY
}

func ColorFromRGB(c RGB) Color { return Color{mode: ColorModeRGB, rgb: c} }
func ColorFromHS(c HS) Color   { return Color{mode: ColorModeHS, hs: c} }
func ColorFromXY(c XY) Color   { return Color{mode: ColorModeXY, xy: c} }

func (c Color) Mode() ColorMode { return c.mode }

func (c Color) RGB() RGB {
	switch c.mode {
	case ColorModeHS:
		return HSToRGB(c.hs)
	case ColorModeXY:
		return XYToRGB(c.xy)
	}
	return c.rgb
}

func (c Color) HS() HS {
	switch c.mode {
	case ColorModeRGB:
		return RGBToHS(c.rgb)
	case ColorModeXY:
		return XYToHS(c.xy)
	}
	return c.hs
}

func (c Color) XY() XY {
	switch c.mode {
	case ColorModeRGB:
		return RGBToXY(c.rgb)
	case ColorModeHS:
		return HSToXY(c.hs)
	}
	return c.xy
}

// Components returns the authoritative representation as three numbers (xy and hs leave the last one 0).
func (c Color) Components() [3]float64 {
	switch c.mode {
	case ColorModeHS:
		return [3]float64{c.hs.H, c.hs.S, 0}
	case ColorModeXY:
		return [3]float64{c.xy.X, c.xy.Y, 0}
	}
	return [3]float64{float64(c.rgb.R), float64(c.rgb.G), float64(c.rgb.B)}
}

// ColorFromComponents is the inverse of Components.
func ColorFromComponents(mode ColorMode, v [3]float64) (Color, bool) {
	switch mode {
	case ColorModeRGB:
		return ColorFromRGB(RGB{int(v[0]), int(v[1]), int(v[2])}), true
	case ColorModeHS:
		return ColorFromHS(HS{v[0], v[1]}), true
	case ColorModeXY:
		return ColorFromXY(XY{v[0], v[1]}), true
	}
	return Color{}, false
}

// Round rounds to the given number of decimals using the exact binary value, ties to even.
func Round(x float64, decimals int) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(x, 'f', decimals, 64), 64)
	return r
}

// mod1 is a floored modulo by 1, always non-negative.
func mod1(x float64) float64 {
	m := math.Mod(x, 1)
	if m < 0 {
		m++
	}
	return m
}

func rgbToHSVf(r, g, b float64) (h, s, v float64) {
	maxc := math.Max(r, math.Max(g, b))
	minc := math.Min(r, math.Min(g, b))
	v = maxc
	if minc == maxc {
		return 0, 0, v
	}
	rangec := maxc - minc
	s = rangec / maxc
	rc := (maxc - r) / rangec
	gc := (maxc - g) / rangec
	bc := (maxc - b) / rangec
	switch {
	case r == maxc:
		h = bc - gc
	case g == maxc:
		h = 2.0 + rc - bc
	default:
		h = 4.0 + gc - rc
	}
	return mod1(h / 6.0), s, v
}

func hsvToRGBf(h, s, v float64) (r, g, b float64) {
	if s == 0 {
		return v, v, v
	}
	i := int(h * 6.0)
	f := h*6.0 - float64(i)
	p := v * (1.0 - s)
	q := v * (1.0 - s*f)
	t := v * (1.0 - s*(1.0-f))
	i %= 6
	if i < 0 {
		i += 6
	}
	switch i {
	case 0:
		return v, t, p
	case 1:
		return q, v, p
	case 2:
		return p, v, t
	case 3:
		return p, q, v
	case 4:
		return t, p, v
	}
	return v, p, q
}

// RGBToHSV returns hue in degrees, saturation and value in percent, each rounded to 3 decimals.
func RGBToHSV(c RGB) (h, s, v float64) {
	fh, fs, fv := rgbToHSVf(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0)
	return Round(fh*360, 3), Round(fs*100, 3), Round(fv*100, 3)
}

// HSVToRGB converts hue in degrees, saturation and value in percent. Channels are truncated.
func HSVToRGB(h, s, v float64) RGB {
	r, g, b := hsvToRGBf(h/360, s/100, v/100)
	return RGB{int(r * 255), int(g * 255), int(b * 255)}
}

func RGBToHS(c RGB) HS {
	h, s, _ := RGBToHSV(c)
	return HS{h, s}
}

// HSToRGB returns the color at full value.
func HSToRGB(c HS) RGB {
	return HSVToRGB(c.H, c.S, 100)
}

func gammaExpand(c float64) float64 {
	if c > 0.04045 {
		return math.Pow((c+0.055)/(1.0+0.055), 2.4)
	}
	return c / 12.92
}

func gammaCompress(c float64) float64 {
	if c <= 0.0031308 {
		return 12.92 * c
	}
	return (1.0+0.055)*math.Pow(c, 1.0/2.4) - 0.055
}

// RGBToXY converts with sRGB gamma and the Wide RGB D65 matrix, rounding to 3 decimals.
func RGBToXY(c RGB) XY {
	if c.R+c.G+c.B == 0 {
		return XY{}
	}
	r := gammaExpand(float64(c.R) / 255)
	g := gammaExpand(float64(c.G) / 255)
	b := gammaExpand(float64(c.B) / 255)

	x := r*0.664511 + g*0.154324 + b*0.162028
	y := r*0.283881 + g*0.668433 + b*0.047685
	z := r*0.000088 + g*0.072310 + b*0.986039

	return XY{Round(x/(x+y+z), 3), Round(y/(x+y+z), 3)}
}

// XYBrightnessToRGB converts a chromaticity at brightness 0..255.
func XYBrightnessToRGB(c XY, brightness int) RGB {
	bri := float64(brightness) / 255.
	if bri == 0 {
		return RGB{}
	}
	vy := c.Y
	if vy == 0 {
		vy += 0.00000000001
	}
	Y := bri
	X := (Y / vy) * c.X
	Z := (Y / vy) * (1 - c.X - vy)

	ch := [3]float64{
		X*1.656492 - Y*0.354851 - Z*0.255038,
		-X*0.707196 + Y*1.655397 + Z*0.036152,
		X*0.051713 - Y*0.121364 + Z*1.011530,
	}
	maxc := 0.0
	for i := range ch {
		ch[i] = math.Max(0, gammaCompress(ch[i]))
		maxc = math.Max(maxc, ch[i])
	}
	if maxc > 1 {
		for i := range ch {
			ch[i] /= maxc
		}
	}
	return RGB{int(ch[0] * 255), int(ch[1] * 255), int(ch[2] * 255)}
}

func XYToRGB(c XY) RGB {
	return XYBrightnessToRGB(c, 255)
}

func XYToHS(c XY) HS {
	return RGBToHS(XYToRGB(c))
}

func HSToXY(c HS) XY {
	return RGBToXY(HSToRGB(c))
}

// MiredToKelvin and KelvinToMired floor like the rest of the ecosystem does.
func MiredToKelvin(mired int) int {
	if mired <= 0 {
		return 0
	}
	return int(math.Floor(1000000 / float64(mired)))
}

func KelvinToMired(kelvin int) int {
	if kelvin <= 0 {
		return 0
	}
	return int(math.Floor(1000000 / float64(kelvin)))
}
