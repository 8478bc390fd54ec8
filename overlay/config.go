package overlay

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidFraction = errors.New("overlay: size fraction must be in (0,1]")

// Config is the deployment-wide overlay selection. The zero value is not
// usable; build one with NewConfig.
type Config struct {
	shape    Shape
	fraction float64
}

func NewConfig(shape Shape, fraction float64) (Config, error) {
	if math.IsNaN(fraction) || fraction <= 0 || fraction > 1 {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidFraction, fraction)
	}
	switch shape {
	case Rectangle, Circle:
	default:
		return Config{}, fmt.Errorf("%w: %v", ErrUnknownShape, shape)
	}
	return Config{shape: shape, fraction: fraction}, nil
}

func (c Config) Shape() Shape          { return c.shape }
func (c Config) SizeFraction() float64 { return c.fraction }

// Draw applies the configured shape to b.
func (c Config) Draw(b *Buffer, color Color) *Buffer {
	return c.shape.Draw(b, color, c.fraction)
}

func (c Config) String() string {
	return fmt.Sprintf("%s@%.2f", c.shape, c.fraction)
}
