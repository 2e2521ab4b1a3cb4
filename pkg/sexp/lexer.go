package sexp

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// Pos is a 1-based line and column in the input. Columns count runes.
type Pos struct {
	Line int
	Col  int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

func syntaxErrorf(pos Pos, format string, args ...any) error {
	return fmt.Errorf("%s: %s: %w", pos, fmt.Sprintf(format, args...), ErrSyntax)
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokOpen
	tokClose
	tokSymbol
	tokQuoted
)

type token struct {
	kind tokenKind
	text string
	pos  Pos
}

// scanner splits input into tokens. A '#' at the start of a token begins a
// comment that runs to the end of the line.
type scanner struct {
	src []byte
	off int
	pos Pos
}

func newScanner(src []byte) *scanner {
	return &scanner{src: src, pos: Pos{Line: 1, Col: 1}}
}

func (s *scanner) atEOF() bool { return s.off >= len(s.src) }

func (s *scanner) peek() rune {
	r, _ := utf8.DecodeRune(s.src[s.off:])
	return r
}

func (s *scanner) advance() rune {
	r, n := utf8.DecodeRune(s.src[s.off:])
	s.off += n
	if r == '\n' {
		s.pos.Line++
		s.pos.Col = 1
	} else {
		s.pos.Col++
	}
	return r
}

func (s *scanner) skipBlank() {
	for !s.atEOF() {
		switch r := s.peek(); {
		case r == '#':
			for !s.atEOF() && s.advance() != '\n' {
			}
		case unicode.IsSpace(r):
			s.advance()
		default:
			return
		}
	}
}

func (s *scanner) scan() (token, error) {
	s.skipBlank()
	start := s.pos
	if s.atEOF() {
		return token{kind: tokEOF, pos: start}, nil
	}
	switch s.peek() {
	case '(':
		s.advance()
		return token{kind: tokOpen, text: "(", pos: start}, nil
	case ')':
		s.advance()
		return token{kind: tokClose, text: ")", pos: start}, nil
	case '"':
		return s.quoted(start)
	}
	return s.symbol(start), nil
}

func (s *scanner) quoted(start Pos) (token, error) {
	s.advance()
	var text []rune
	for {
		if s.atEOF() {
			return token{}, syntaxErrorf(start, "unterminated string")
		}
		switch r := s.advance(); r {
		case '"':
			return token{kind: tokQuoted, text: string(text), pos: start}, nil
		case '\\':
			if s.atEOF() {
				return token{}, syntaxErrorf(s.pos, "unterminated escape")
			}
			text = append(text, unescape(s.advance()))
		default:
			text = append(text, r)
		}
	}
}

// unescape maps the rune after a backslash. Unknown escapes stand for the
// rune itself, which covers \" and \\.
func unescape(r rune) rune {
	switch r {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	}
	return r
}

func (s *scanner) symbol(start Pos) token {
	from := s.off
	for !s.atEOF() {
		r := s.peek()
		if unicode.IsSpace(r) || r == '(' || r == ')' || r == '"' {
			break
		}
		s.advance()
	}
	return token{kind: tokSymbol, text: string(s.src[from:s.off]), pos: start}
}
