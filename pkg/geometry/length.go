// Package geometry provides the fixed-point board coordinate types.
//
// All board coordinates are integer nanometers. Arithmetic that could leave
// the representable range reports ErrOverflow instead of wrapping, and the
// constrained length types refuse invalid values at construction.
package geometry

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrOverflow is returned when a length operation leaves the valid range.
	ErrOverflow = errors.New("length overflow")
	// ErrRangeViolation is returned when a constrained length is constructed
	// from an out-of-range value.
	ErrRangeViolation = errors.New("value out of range")
	// ErrSyntax is returned for malformed length or angle strings.
	ErrSyntax = errors.New("invalid number syntax")
)

// Length is a signed distance in nanometers.
type Length int64

// Unit constants
const (
	Nanometer  Length = 1
	Micrometer Length = 1000
	Millimeter Length = 1000000
)

// MaxLength bounds every valid length so that sums of two lengths stay
// inside the polygon clipper's coordinate range.
const MaxLength Length = math.MaxInt64 / 4

// Mm converts a millimeter literal to a length, rounding to the nearest
// nanometer. Meant for constants and tests; use FromMm for untrusted input.
func Mm(mm float64) Length {
	return Length(math.Round(mm * float64(Millimeter)))
}

// FromMm converts millimeters to a length with range checking.
func FromMm(mm float64) (Length, error) {
	nm := math.Round(mm * float64(Millimeter))
	if math.IsNaN(nm) || math.Abs(nm) > float64(MaxLength) {
		return 0, fmt.Errorf("%g mm: %w", mm, ErrOverflow)
	}
	return Length(nm), nil
}

// ToMm returns the length in millimeters.
func (l Length) ToMm() float64 {
	return float64(l) / float64(Millimeter)
}

// Abs returns the absolute value.
func (l Length) Abs() Length {
	if l < 0 {
		return -l
	}
	return l
}

func (l Length) valid() bool {
	return l >= -MaxLength && l <= MaxLength
}

// Add returns l+o or ErrOverflow.
func (l Length) Add(o Length) (Length, error) {
	r := l + o
	if !l.valid() || !o.valid() || !r.valid() {
		return 0, fmt.Errorf("%d + %d: %w", l, o, ErrOverflow)
	}
	return r, nil
}

// Sub returns l-o or ErrOverflow.
func (l Length) Sub(o Length) (Length, error) {
	return l.Add(-o)
}

// Mul returns l*f or ErrOverflow.
func (l Length) Mul(f int64) (Length, error) {
	if l == 0 || f == 0 {
		return 0, nil
	}
	r := l * Length(f)
	if r/Length(f) != l || !r.valid() {
		return 0, fmt.Errorf("%d * %d: %w", l, f, ErrOverflow)
	}
	return r, nil
}

// MaxOf returns the larger of two lengths.
func MaxOf(a, b Length) Length {
	if a > b {
		return a
	}
	return b
}

// MinOf returns the smaller of two lengths.
func MinOf(a, b Length) Length {
	if a < b {
		return a
	}
	return b
}

// ParseLength parses a decimal millimeter string ("0.254", "-1.5", "3")
// exactly into nanometers.
func ParseLength(s string) (Length, error) {
	v, err := parseFixed(s, 6)
	if err != nil {
		return 0, fmt.Errorf("failed to parse length %q: %w", s, err)
	}
	l := Length(v)
	if !l.valid() {
		return 0, fmt.Errorf("failed to parse length %q: %w", s, ErrOverflow)
	}
	return l, nil
}

// MmString formats the length in millimeters without trailing zeros.
func (l Length) MmString() string {
	return formatFixed(int64(l), 6)
}

// String implements fmt.Stringer.
func (l Length) String() string {
	return l.MmString() + "mm"
}

// parseFixed parses a decimal string into an integer scaled by 10^decimals.
func parseFixed(s string, decimals int) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrSyntax
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" && fracPart == "" {
		return 0, ErrSyntax
	}
	fracPart = strings.TrimRight(fracPart, "0")
	if len(fracPart) > decimals {
		return 0, fmt.Errorf("more than %d decimals: %w", decimals, ErrSyntax)
	}
	fracPart += strings.Repeat("0", decimals-len(fracPart))

	var v int64
	for _, c := range intPart + fracPart {
		if c < '0' || c > '9' {
			return 0, ErrSyntax
		}
		if v > (math.MaxInt64-9)/10 {
			return 0, ErrOverflow
		}
		v = v*10 + int64(c-'0')
	}
	if neg {
		v = -v
	}
	return v, nil
}

func formatFixed(v int64, decimals int) string {
	sign := ""
	u := uint64(v)
	if v < 0 {
		sign = "-"
		u = uint64(-v)
	}
	scale := uint64(math.Pow10(decimals))
	intPart := u / scale
	frac := u % scale
	if frac == 0 {
		return fmt.Sprintf("%s%d", sign, intPart)
	}
	fs := fmt.Sprintf("%0*d", decimals, frac)
	return fmt.Sprintf("%s%d.%s", sign, intPart, strings.TrimRight(fs, "0"))
}

// UnsignedLength is a length that is never negative.
type UnsignedLength Length

// NewUnsignedLength validates l >= 0.
func NewUnsignedLength(l Length) (UnsignedLength, error) {
	if l < 0 || !l.valid() {
		return 0, fmt.Errorf("unsigned length %d: %w", l, ErrRangeViolation)
	}
	return UnsignedLength(l), nil
}

// MustUnsigned is NewUnsignedLength for values known to be valid.
func MustUnsigned(l Length) UnsignedLength {
	u, err := NewUnsignedLength(l)
	if err != nil {
		panic(err)
	}
	return u
}

// Length returns the plain length.
func (u UnsignedLength) Length() Length { return Length(u) }

func (u UnsignedLength) String() string { return Length(u).String() }

// PositiveLength is a length that is strictly greater than zero.
type PositiveLength Length

// NewPositiveLength validates l > 0.
func NewPositiveLength(l Length) (PositiveLength, error) {
	if l <= 0 || !l.valid() {
		return 0, fmt.Errorf("positive length %d: %w", l, ErrRangeViolation)
	}
	return PositiveLength(l), nil
}

// MustPositive is NewPositiveLength for values known to be valid.
func MustPositive(l Length) PositiveLength {
	p, err := NewPositiveLength(l)
	if err != nil {
		panic(err)
	}
	return p
}

// Length returns the plain length.
func (p PositiveLength) Length() Length { return Length(p) }

// Unsigned converts to an UnsignedLength.
func (p PositiveLength) Unsigned() UnsignedLength { return UnsignedLength(p) }

func (p PositiveLength) String() string { return Length(p).String() }
