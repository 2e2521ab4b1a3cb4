package sexp

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/OpenTraceLab/OpenTraceFab/pkg/geometry"
)

func errorf(l *List, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if l != nil {
		return fmt.Errorf("%s: (%s): %s: %w", l.Pos(), l.Key(), msg, ErrSyntax)
	}
	return fmt.Errorf("%s: %w", msg, ErrSyntax)
}

// Key returns the leading symbol of the list, or "" if there is none.
func (l *List) Key() string {
	if len(l.Items) == 0 {
		return ""
	}
	if sym, ok := l.Items[0].(Symbol); ok {
		return string(sym)
	}
	return ""
}

// Children returns the sub-lists of the list in order.
func (l *List) Children() []*List {
	var out []*List
	for _, item := range l.Items {
		if sub, ok := item.(*List); ok {
			out = append(out, sub)
		}
	}
	return out
}

// Find returns the first child list with the given key.
// Example: Find("position") finds (position 1.0 2.0)
func (l *List) Find(key string) (*List, bool) {
	for _, item := range l.Items {
		if sub, ok := item.(*List); ok && sub.Key() == key {
			return sub, true
		}
	}
	return nil, false
}

// FindAll returns all child lists with the given key
func (l *List) FindAll(key string) []*List {
	var out []*List
	for _, item := range l.Items {
		if sub, ok := item.(*List); ok && sub.Key() == key {
			out = append(out, sub)
		}
	}
	return out
}

// Child is Find for mandatory children.
func (l *List) Child(key string) (*List, error) {
	if sub, ok := l.Find(key); ok {
		return sub, nil
	}
	return nil, errorf(l, "missing (%s ...)", key)
}

// Atom returns the atom at the given index as a string. Index 0 is the key,
// 1 is the first value.
func (l *List) Atom(index int) (string, error) {
	if index < 0 || index >= len(l.Items) {
		return "", errorf(l, "missing value %d", index)
	}
	switch v := l.Items[index].(type) {
	case Symbol:
		return string(v), nil
	case Quoted:
		return string(v), nil
	default:
		return "", errorf(l, "expected atom at index %d", index)
	}
}

// Length parses the atom at index as millimeters.
func (l *List) Length(index int) (geometry.Length, error) {
	s, err := l.Atom(index)
	if err != nil {
		return 0, err
	}
	v, err := geometry.ParseLength(s)
	if err != nil {
		return 0, errorf(l, "%v", err)
	}
	return v, nil
}

// UnsignedLength parses a length that must not be negative.
func (l *List) UnsignedLength(index int) (geometry.UnsignedLength, error) {
	v, err := l.Length(index)
	if err != nil {
		return 0, err
	}
	u, err := geometry.NewUnsignedLength(v)
	if err != nil {
		return 0, errorf(l, "%v", err)
	}
	return u, nil
}

// PositiveLength parses a length that must be greater than zero.
func (l *List) PositiveLength(index int) (geometry.PositiveLength, error) {
	v, err := l.Length(index)
	if err != nil {
		return 0, err
	}
	p, err := geometry.NewPositiveLength(v)
	if err != nil {
		return 0, errorf(l, "%v", err)
	}
	return p, nil
}

// Angle parses the atom at index as degrees.
func (l *List) Angle(index int) (geometry.Angle, error) {
	s, err := l.Atom(index)
	if err != nil {
		return 0, err
	}
	v, err := geometry.ParseAngle(s)
	if err != nil {
		return 0, errorf(l, "%v", err)
	}
	return v, nil
}

// Int parses the atom at index as a decimal integer.
func (l *List) Int(index int) (int, error) {
	s, err := l.Atom(index)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, errorf(l, "invalid integer %q", s)
	}
	return v, nil
}

// Bool parses "true" or "false".
func (l *List) Bool(index int) (bool, error) {
	s, err := l.Atom(index)
	if err != nil {
		return false, err
	}
	switch s {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, errorf(l, "invalid boolean %q", s)
}

// UUID parses the atom at index as a uuid.
func (l *List) UUID(index int) (uuid.UUID, error) {
	s, err := l.Atom(index)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, errorf(l, "invalid uuid %q", s)
	}
	return id, nil
}

// OptionalUUID parses a uuid where the symbol "none" means no value.
func (l *List) OptionalUUID(index int) (*uuid.UUID, error) {
	if s, err := l.Atom(index); err == nil && s == "none" {
		return nil, nil
	}
	id, err := l.UUID(index)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// Point parses two consecutive lengths starting at index.
func (l *List) Point(index int) (geometry.Point, error) {
	x, err := l.Length(index)
	if err != nil {
		return geometry.Point{}, err
	}
	y, err := l.Length(index + 1)
	if err != nil {
		return geometry.Point{}, err
	}
	return geometry.Pt(x, y), nil
}

// ChildAtom returns the first value of the mandatory child list key.
func (l *List) ChildAtom(key string) (string, error) {
	c, err := l.Child(key)
	if err != nil {
		return "", err
	}
	return c.Atom(1)
}

// Path parses all (vertex (position x y) (angle a)) children into a path.
func (l *List) Path() (geometry.Path, error) {
	var path geometry.Path
	for _, v := range l.FindAll("vertex") {
		pos, err := v.Child("position")
		if err != nil {
			return nil, err
		}
		pt, err := pos.Point(1)
		if err != nil {
			return nil, err
		}
		var angle geometry.Angle
		if a, ok := v.Find("angle"); ok {
			if angle, err = a.Angle(1); err != nil {
				return nil, err
			}
		}
		path = append(path, geometry.Vertex{Pos: pt, Angle: angle})
	}
	return path, nil
}

// PathList serializes a path as vertex lists appended to a new list.
func PathList(key string, p geometry.Path) *List {
	l := NewList(key)
	for _, v := range p {
		l.Add(NewList("vertex",
			NewList("position", Symbol(v.Pos.X.MmString()), Symbol(v.Pos.Y.MmString())),
			NewList("angle", Symbol(v.Angle.DegString())),
		))
	}
	return l
}
