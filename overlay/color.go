package overlay

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Color is an overlay fill color with red, green and blue channels. It is
// written into a Buffer in whatever channel order the Buffer uses.
type Color struct {
	R, G, B uint8
}

var ErrMalformedColor = errors.New("overlay: malformed color")

type colorJSON struct {
	R *float64 `json:"r"`
	G *float64 `json:"g"`
	B *float64 `json:"b"`
}

// ParseColor decodes a JSON object {"r","g","b"}. Every channel is required
// and must be a number in [0,255]; fractions are truncated.
func ParseColor(data []byte) (c Color, err error) {
	var raw colorJSON
	if err = json.Unmarshal(data, &raw); err != nil {
		return c, fmt.Errorf("%w: %v", ErrMalformedColor, err)
	}
	channels := [3]struct {
		name string
		v    *float64
		dst  *uint8
	}{
		{"r", raw.R, &c.R},
		{"g", raw.G, &c.G},
		{"b", raw.B, &c.B},
	}
	for _, ch := range channels {
		if ch.v == nil {
			return Color{}, fmt.Errorf("%w: missing channel %q", ErrMalformedColor, ch.name)
		}
		v := *ch.v
		if math.IsNaN(v) || v < 0 || v > 255 {
			return Color{}, fmt.Errorf("%w: channel %q out of range: %v", ErrMalformedColor, ch.name, v)
		}
		*ch.dst = uint8(v)
	}
	return c, nil
}

func (c *Color) UnmarshalJSON(data []byte) (err error) {
	*c, err = ParseColor(data)
	return
}

func (c Color) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`{"r":%d,"g":%d,"b":%d}`, c.R, c.G, c.B)), nil
}

func (c Color) String() string {
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
}

// ParseColorList parses the "r,g,b" form used in configuration.
func ParseColorList(s string) (c Color, err error) {
	var r, g, b int
	if _, err = fmt.Sscanf(s, "%d,%d,%d", &r, &g, &b); err != nil {
		return c, fmt.Errorf("%w: %q", ErrMalformedColor, s)
	}
	for _, v := range []int{r, g, b} {
		if v < 0 || v > 255 {
			return c, fmt.Errorf("%w: %q", ErrMalformedColor, s)
		}
	}
	return Color{R: uint8(r), G: uint8(g), B: uint8(b)}, nil
}
