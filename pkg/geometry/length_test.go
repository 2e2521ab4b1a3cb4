package geometry

import (
	"errors"
	"testing"
)

func TestParseLength(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Length
		wantErr bool
	}{
		{"fraction", "0.254", 254000, false},
		{"negative", "-1.5", -1500000, false},
		{"integer", "3", 3000000, false},
		{"leading dot", ".5", 500000, false},
		{"trailing zeros", "1.250000000", 1250000, false},
		{"plus sign", "+0.1", 100000, false},
		{"too precise", "1.0000001", 0, true},
		{"garbage", "abc", 0, true},
		{"empty", "", 0, true},
		{"lonely dot", ".", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLength(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLength(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLength(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestMmString(t *testing.T) {
	tests := []struct {
		in   Length
		want string
	}{
		{1500000, "1.5"},
		{-250000, "-0.25"},
		{0, "0"},
		{1, "0.000001"},
		{12000000, "12"},
	}
	for _, tt := range tests {
		if got := tt.in.MmString(); got != tt.want {
			t.Errorf("Length(%d).MmString() = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConstrainedLengths(t *testing.T) {
	if _, err := NewPositiveLength(0); !errors.Is(err, ErrRangeViolation) {
		t.Errorf("NewPositiveLength(0) error = %v, want ErrRangeViolation", err)
	}
	if _, err := NewPositiveLength(-1); !errors.Is(err, ErrRangeViolation) {
		t.Errorf("NewPositiveLength(-1) error = %v, want ErrRangeViolation", err)
	}
	if p, err := NewPositiveLength(1); err != nil || p != 1 {
		t.Errorf("NewPositiveLength(1) = %d, %v", p, err)
	}
	if _, err := NewUnsignedLength(-1); !errors.Is(err, ErrRangeViolation) {
		t.Errorf("NewUnsignedLength(-1) error = %v, want ErrRangeViolation", err)
	}
	if u, err := NewUnsignedLength(0); err != nil || u != 0 {
		t.Errorf("NewUnsignedLength(0) = %d, %v", u, err)
	}
}

func TestOverflow(t *testing.T) {
	if _, err := MaxLength.Add(1); !errors.Is(err, ErrOverflow) {
		t.Errorf("MaxLength+1 error = %v, want ErrOverflow", err)
	}
	if _, err := (-MaxLength).Sub(1); !errors.Is(err, ErrOverflow) {
		t.Errorf("-MaxLength-1 error = %v, want ErrOverflow", err)
	}
	if _, err := MaxLength.Mul(2); !errors.Is(err, ErrOverflow) {
		t.Errorf("MaxLength*2 error = %v, want ErrOverflow", err)
	}
	if got, err := Length(21).Mul(-2); err != nil || got != -42 {
		t.Errorf("21*-2 = %d, %v", got, err)
	}
	if _, err := FromMm(1e300); !errors.Is(err, ErrOverflow) {
		t.Errorf("FromMm(1e300) error = %v, want ErrOverflow", err)
	}
}

func TestPointCheckedArithmetic(t *testing.T) {
	tests := []struct {
		name    string
		p, o    Point
		want    Point
		wantErr bool
	}{
		{"small", Pt(Mm(1), Mm(2)), Pt(Mm(3), Mm(-4)), Pt(Mm(4), Mm(-2)), false},
		{"at limit", Pt(MaxLength-1, 0), Pt(1, 0), Pt(MaxLength, 0), false},
		{"x beyond", Pt(MaxLength, 0), Pt(1, 0), Point{}, true},
		{"y below", Pt(0, -MaxLength), Pt(0, -1), Point{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.p.CheckedAdd(tt.o)
			if tt.wantErr {
				if !errors.Is(err, ErrOverflow) {
					t.Fatalf("CheckedAdd error = %v, want ErrOverflow", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("CheckedAdd = %v, %v, want %v", got, err, tt.want)
			}
			if back, err := got.CheckedSub(tt.o); err != nil || back != tt.p {
				t.Errorf("CheckedSub = %v, %v, want %v", back, err, tt.p)
			}
		})
	}

	tr := Transform{Position: Pt(MaxLength, 0), Rotation: Deg90}
	if _, err := tr.CheckedMapPoint(Pt(0, Mm(-1))); !errors.Is(err, ErrOverflow) {
		t.Errorf("CheckedMapPoint error = %v, want ErrOverflow", err)
	}
	if got, err := tr.CheckedMapPoint(Pt(Mm(1), 0)); err != nil || got != Pt(MaxLength, Mm(1)) {
		t.Errorf("CheckedMapPoint = %v, %v", got, err)
	}
}

func TestAngle(t *testing.T) {
	if got := (-Deg90).Mapped0To360(); got != Deg270 {
		t.Errorf("(-90).Mapped0To360() = %v", got)
	}
	if got := Deg270.Mapped180(); got != -Deg90 {
		t.Errorf("270.Mapped180() = %v", got)
	}
	if got := Deg180.Mapped180(); got != Deg180 {
		t.Errorf("180.Mapped180() = %v", got)
	}
	a, err := ParseAngle("45.5")
	if err != nil || a != 45500000 {
		t.Errorf("ParseAngle(45.5) = %d, %v", a, err)
	}
	if got := a.DegString(); got != "45.5" {
		t.Errorf("DegString() = %q", got)
	}
}
