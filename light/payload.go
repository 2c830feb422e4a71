package light

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrParse, s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q is not a finite number", ErrParse, s)
	}
	return v, nil
}

func parseInt(s string) (int, error) {
	v, err := parseNumber(s)
	if err != nil {
		return 0, err
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %q is out of range", ErrParse, s)
	}
	return int(v), nil
}

// parseList splits a comma separated payload into exactly n numbers.
// Sequence results of value templates arrive in the same shape.
func parseList(s string, n int) ([]float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("%w: expected %d values, got %q", ErrParse, n, s)
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := parseNumber(p)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// scaleIn converts a device value in 0..scale to 0..255.
func scaleIn(v float64, scale int) int {
	return int(math.RoundToEven(math.Max(0, math.Min(v/float64(scale)*255, 255))))
}

// scaleOut converts 0..255 to the device range, never exceeding scale.
func scaleOut(v int, scale int) int {
	return min(int(math.RoundToEven(float64(v)/255*float64(scale))), scale)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// formatFloat renders a float the way commands have always been sent: shortest
// form, with a trailing ".0" on whole numbers.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}

func formatPair(a, b float64) string {
	return formatFloat(a) + "," + formatFloat(b)
}

func formatRGB(c RGB) string {
	return fmt.Sprintf("%d,%d,%d", c.R, c.G, c.B)
}
