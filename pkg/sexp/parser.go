package sexp

import (
	"fmt"
	"io"
)

type parser struct {
	scan *scanner
	tok  token
}

func parseAll(r io.Reader) ([]Sexp, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read s-expressions: %w", err)
	}
	p := &parser{scan: newScanner(src)}
	var nodes []Sexp
	for {
		if err := p.next(); err != nil {
			return nil, err
		}
		if p.tok.kind == tokEOF {
			return nodes, nil
		}
		node, err := p.expr()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
}

func (p *parser) next() error {
	tok, err := p.scan.scan()
	p.tok = tok
	return err
}

func (p *parser) expr() (Sexp, error) {
	switch p.tok.kind {
	case tokOpen:
		return p.list()
	case tokSymbol:
		return Symbol(p.tok.text), nil
	case tokQuoted:
		return Quoted(p.tok.text), nil
	case tokClose:
		return nil, syntaxErrorf(p.tok.pos, "unexpected ')'")
	}
	return nil, syntaxErrorf(p.tok.pos, "unexpected end of input")
}

func (p *parser) list() (*List, error) {
	l := &List{Line: p.tok.pos.Line, Col: p.tok.pos.Col}
	for {
		if err := p.next(); err != nil {
			return nil, err
		}
		switch p.tok.kind {
		case tokClose:
			return l, nil
		case tokEOF:
			return nil, syntaxErrorf(p.tok.pos, "list opened at %s is not closed", l.Pos())
		}
		item, err := p.expr()
		if err != nil {
			return nil, err
		}
		l.Items = append(l.Items, item)
	}
}
