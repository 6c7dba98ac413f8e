// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package rules

import (
	"fmt"
	"io"
	"strconv"
	"text/scanner"
)

// Parse parses a list of rules from a reader.
// Readers with a Name method (like *os.File)
// have errors reported relative to that name.
func Parse(r io.Reader) ([]Rule, error) {
	name := ""
	if f, ok := r.(interface{ Name() string }); ok {
		name = f.Name()
	}
	return ParseFile(name, r)
}

// ParseFile is like Parse, but reports errors
// relative to the given file name.
func ParseFile(name string, r io.Reader) ([]Rule, error) {
	p, errp := newParser(name, r)
	s := p.src
	var rules []Rule
	for !p.atEOF() && s.ErrorCount == 0 {
		loc := s.Pos()
		conj := p.conj()
		if !p.arrow() {
			if p.ok() {
				s.Error(s, "expected '->'")
			}
			break
		}
		rules = append(rules, Rule{Location: loc, From: conj, To: p.term()})
	}
	if err := p.err(*errp); err != nil {
		return nil, err
	}
	return rules, nil
}

// ParseValue parses exactly one value
// (a list, string or integer) from r.
func ParseValue(name string, r io.Reader) (Value, error) {
	p, errp := newParser(name, r)
	v := p.value()
	if p.ok() && !p.atEOF() {
		p.src.Error(p.src, "unexpected trailing "+p.src.TokenText())
	}
	if err := p.err(*errp); err != nil {
		return nil, err
	}
	return v, nil
}

func newParser(name string, r io.Reader) (*parser, *error) {
	err := new(error)
	s := new(scanner.Scanner)
	s = s.Init(r)
	s.Position.Filename = name
	s.Error = func(s *scanner.Scanner, msg string) {
		s.ErrorCount++
		if *err == nil {
			*err = fmt.Errorf("%s:%d:%d: %s", s.Filename, s.Line, s.Column, msg)
		}
	}
	return &parser{src: s}, err
}

func (p *parser) err(first error) error {
	switch n := p.src.ErrorCount; {
	case n == 0:
		return nil
	case n == 1:
		return first
	default:
		return fmt.Errorf("%s (and %d other errors)", first, n-1)
	}
}

// parser is an LL(1) parser
type parser struct {
	src     *scanner.Scanner
	la      rune // lookahead character
	lavalid bool // lookahead is valid
}

// peek gets the lookahead character
// without updating the parser state
// (unless no lookahead char is present)
func (p *parser) peek() rune {
	if !p.lavalid {
		p.la = p.src.Scan()
		p.lavalid = true
	}
	return p.la
}

// next updates the lookahead token and returns it
func (p *parser) next() rune {
	r := p.peek()
	p.lavalid = false
	return r
}

func (p *parser) atEOF() bool {
	return p.peek() == scanner.EOF
}

func (p *parser) ok() bool {
	return p.src.ErrorCount == 0
}

func (p *parser) consume(r rune) bool {
	if p.peek() == r {
		p.lavalid = false
		return true
	}
	return false
}

func (p *parser) conj() []Value {
	if p.atEOF() {
		return nil
	}
	first := p.value()
	if !p.ok() {
		return nil
	}
	out := []Value{first}
	for p.ok() && p.consume(',') {
		v := p.value()
		if v == nil {
			break // error
		}
		out = append(out, v)
	}
	return out
}

func (p *parser) arrow() bool {
	return p.consume('-') && p.consume('>')
}

func unquote(x string) String {
	// the scanner should have already
	// validated the syntax here:
	out, err := strconv.Unquote(x)
	if err != nil {
		panic(err)
	}
	return String(out)
}

func unbacktick(x string) String {
	return String(x[1 : len(x)-1])
}

func (p *parser) value() Value {
	r := p.next()
	switch r {
	case scanner.RawString:
		return unbacktick(p.src.TokenText())
	case scanner.String:
		return unquote(p.src.TokenText())
	case scanner.Int:
		return p.integer()
	case '-':
		if p.next() != scanner.Int {
			p.src.Error(p.src, "expected integer after '-'")
			return nil
		}
		return -p.integer()
	case '(':
		return p.list()
	default:
		p.src.Error(p.src, "unexpected token "+scanner.TokenString(r)+" "+p.src.TokenText())
		return nil
	}
}

func (p *parser) integer() Int {
	i, err := strconv.ParseInt(p.src.TokenText(), 0, 64)
	if err != nil {
		p.src.Error(p.src, err.Error())
	}
	return Int(i)
}

func (p *parser) list() Value {
	var out []Term
	for r := p.peek(); r != ')' && p.ok(); r = p.peek() {
		if r == scanner.EOF {
			p.src.Error(p.src, "unexpected EOF in list")
			return nil
		}
		out = append(out, p.term())
	}
	p.next() // skip ')'
	return List(out)
}

func (p *parser) term() Term {
	switch r := p.next(); r {
	case scanner.RawString:
		return Term{
			Value:    unbacktick(p.src.TokenText()),
			Location: p.src.Pos(),
		}
	case scanner.String:
		return Term{
			Value:    unquote(p.src.TokenText()),
			Location: p.src.Pos(),
		}
	case scanner.Int:
		return Term{
			Value:    p.integer(),
			Location: p.src.Pos(),
		}
	case '-':
		pos := p.src.Pos()
		if p.next() != scanner.Int {
			p.src.Error(p.src, "expected integer after '-'")
			return Term{}
		}
		return Term{Value: -p.integer(), Location: pos}
	case '(':
		pos := p.src.Pos()
		return Term{
			Value:    p.list(),
			Location: pos,
		}
	case scanner.Ident:
		name := p.src.TokenText()
		pos := p.src.Pos()
		var v Value
		if p.consume(':') {
			v = p.value()
		}
		return Term{Name: name, Value: v, Location: pos}
	default:
		p.src.Error(p.src, "unexpected token "+scanner.TokenString(r))
	}
	return Term{}
}
