package geometry

import (
	"fmt"
	"math"
)

// Angle is a rotation in microdegrees. Positive angles are counter-clockwise.
type Angle int64

const (
	Deg0   Angle = 0
	Deg45  Angle = 45000000
	Deg90  Angle = 90000000
	Deg180 Angle = 180000000
	Deg270 Angle = 270000000
	Deg360 Angle = 360000000
)

// FromDeg converts degrees to an angle, rounding to the nearest microdegree.
func FromDeg(deg float64) Angle {
	return Angle(math.Round(deg * 1e6))
}

// FromRad converts radians to an angle.
func FromRad(rad float64) Angle {
	return FromDeg(rad * 180 / math.Pi)
}

// ParseAngle parses a decimal degree string exactly.
func ParseAngle(s string) (Angle, error) {
	v, err := parseFixed(s, 6)
	if err != nil {
		return 0, fmt.Errorf("failed to parse angle %q: %w", s, err)
	}
	return Angle(v), nil
}

func (a Angle) ToDeg() float64 { return float64(a) / 1e6 }

func (a Angle) ToRad() float64 { return a.ToDeg() * math.Pi / 180 }

// DegString formats the angle in degrees without trailing zeros.
func (a Angle) DegString() string { return formatFixed(int64(a), 6) }

func (a Angle) String() string { return a.DegString() + "°" }

// Mapped0To360 maps the angle into [0, 360).
func (a Angle) Mapped0To360() Angle {
	r := a % Deg360
	if r < 0 {
		r += Deg360
	}
	return r
}

// Mapped180 maps the angle into (-180, 180].
func (a Angle) Mapped180() Angle {
	r := a.Mapped0To360()
	if r > Deg180 {
		r -= Deg360
	}
	return r
}

// Abs returns the absolute value.
func (a Angle) Abs() Angle {
	if a < 0 {
		return -a
	}
	return a
}
