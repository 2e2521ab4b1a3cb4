// Package sexp reads and writes the s-expression files describing projects
// and boards.
//
// Symbols and quoted strings are kept apart so that a file written back
// looks like the one that was read. Every parsed list remembers the line and
// column it started at, which parse errors report as line:col.
package sexp

import (
	"errors"
	"io"
	"strings"
)

// ErrSyntax is returned for malformed input.
var ErrSyntax = errors.New("invalid s-expression")

// Sexp represents an S-expression node: a Symbol, a Quoted string or a *List.
type Sexp interface {
	// IsLeaf returns true if this is an atom (not a list)
	IsLeaf() bool

	// String returns the serialized representation
	String() string
}

// Symbol represents an unquoted atom (identifier, number, uuid).
type Symbol string

func (s Symbol) IsLeaf() bool   { return true }
func (s Symbol) String() string { return string(s) }

// Quoted represents a quoted string atom.
type Quoted string

func (q Quoted) IsLeaf() bool { return true }

func (q Quoted) String() string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range string(q) {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// List represents a list of S-expressions. Line and Col locate the opening
// parenthesis of parsed lists and are zero for built ones.
type List struct {
	Items []Sexp
	Line  int
	Col   int
}

// Pos returns the position of the opening parenthesis.
func (l *List) Pos() Pos { return Pos{Line: l.Line, Col: l.Col} }

// NewList creates a list starting with the symbol key.
func NewList(key string, items ...Sexp) *List {
	return &List{Items: append([]Sexp{Symbol(key)}, items...)}
}

// Add appends items and returns the list for chaining.
func (l *List) Add(items ...Sexp) *List {
	l.Items = append(l.Items, items...)
	return l
}

func (l *List) IsLeaf() bool { return false }

// Len returns the number of elements in the list
func (l *List) Len() int {
	return len(l.Items)
}

// Get returns the element at the given index
func (l *List) Get(index int) Sexp {
	if index < 0 || index >= len(l.Items) {
		return nil
	}
	return l.Items[index]
}

// String serializes the list on a single line.
func (l *List) String() string {
	var b strings.Builder
	l.write(&b)
	return b.String()
}

func (l *List) write(b *strings.Builder) {
	b.WriteByte('(')
	for i, elem := range l.Items {
		if i > 0 {
			b.WriteByte(' ')
		}
		if sub, ok := elem.(*List); ok {
			sub.write(b)
		} else {
			b.WriteString(elem.String())
		}
	}
	b.WriteByte(')')
}

// Parse parses all top-level S-expressions from an io.Reader.
func Parse(r io.Reader) ([]Sexp, error) {
	return parseAll(r)
}

// ParseString parses S-expressions from a string.
func ParseString(s string) ([]Sexp, error) {
	return Parse(strings.NewReader(s))
}

// ParseRoot parses input that must hold exactly one list with the given key.
func ParseRoot(r io.Reader, key string) (*List, error) {
	nodes, err := Parse(r)
	if err != nil {
		return nil, err
	}
	if len(nodes) != 1 {
		return nil, errorf(nil, "expected exactly one root node, got %d", len(nodes))
	}
	root, ok := nodes[0].(*List)
	if !ok || root.Key() != key {
		return nil, errorf(nil, "expected root node (%s ...)", key)
	}
	return root, nil
}
