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

// Package rules defines the s-expression syntax
// shared by plan text, fragment templates and
// substitution records. The supported syntax is as follows:
//
//	comment = < go comment syntax >
//	string = < go double-quote syntax > | < go backtick syntax >
//	identifier = < go identifier >
//	rule = value {',' value} '->' term
//	term = (identifier ':' value) | identifier | value
//	value = list | string | integer
//	list = '(' item {space+ item} ')'
//
// For example:
//
//	// a filter that always passes
//	(f p0 a0 (i t0)), (i t1) -> ((TableEq t0 t1))
//
// The package assigns no meaning to the structure
// of a value; decoders use Split, Ident and Text
// to pick lists apart.
package rules

import (
	"fmt"
	"strconv"
	"strings"
	"text/scanner"

	"golang.org/x/exp/slices"
)

// Rule is one 'from, ... -> to' clause.
type Rule struct {
	// From is the comma-separated list
	// of values left of the arrow.
	From []Value
	// To is the term right of the arrow.
	To Term
	// Location is the position at
	// which the rule began.
	Location scanner.Position
}

// String implements fmt.Stringer
func (r *Rule) String() string {
	var out strings.Builder
	for i := range r.From {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(r.From[i].String())
	}
	out.WriteString(" -> ")
	out.WriteString(r.To.String())
	return out.String()
}

// Equal reports whether two rules are equal,
// ignoring their locations.
func (r *Rule) Equal(o *Rule) bool {
	return slices.EqualFunc(r.From, o.From, equal) && r.To.Equal(&o.To)
}

// Term is an optionally-named value.
// A term with a Name and no Value is
// a bare identifier.
type Term struct {
	Name  string
	Value Value

	// Location is the position of the term
	// in the source text, for error messages.
	Location scanner.Position
}

// String implements fmt.Stringer
//
// String returns the canonical textual
// representation of the Term t.
func (t *Term) String() string {
	if t.Name == "" {
		if t.Value != nil {
			return t.Value.String()
		}
		return "_"
	}
	if t.Value == nil {
		return t.Name
	}
	return t.Name + ":" + t.Value.String()
}

// Ident returns the name of a bare identifier.
func (t *Term) Ident() (string, bool) {
	return t.Name, t.Value == nil && t.Name != ""
}

// Text returns the name of a bare identifier
// or the contents of an unnamed string literal.
func (t *Term) Text() (string, bool) {
	if id, ok := t.Ident(); ok {
		return id, true
	}
	if s, ok := t.Value.(String); ok && t.Name == "" {
		return string(s), true
	}
	return "", false
}

// Equal reports whether two terms are equal,
// ignoring their locations.
func (t *Term) Equal(o *Term) bool {
	return t.Name == o.Name && equal(t.Value, o.Value)
}

// Value is one of List, String or Int
type Value interface {
	String() string
}

// List is a list of terms.
type List []Term

func (l List) String() string {
	var out strings.Builder
	out.WriteByte('(')
	for i := range l {
		if i > 0 {
			out.WriteString(" ")
		}
		out.WriteString(l[i].String())
	}
	out.WriteByte(')')
	return out.String()
}

// Split breaks a value of the form (head args...)
// into its head identifier and the remaining terms.
// what describes the head in error messages,
// e.g. "an operator".
func Split(v Value, what string) (*Term, List, error) {
	lst, ok := v.(List)
	if !ok || len(lst) == 0 {
		return nil, nil, fmt.Errorf("expected %s list, found %s", what, v)
	}
	head := &lst[0]
	if _, ok := head.Ident(); !ok {
		return nil, nil, fmt.Errorf("%s: expected %s name, found %s", head.Location, what, head.String())
	}
	return head, lst[1:], nil
}

// String is a literal Go string
type String string

// String returns the literal representation
// of s, *not* s itself. Cast s to a string if
// you want to use the raw string value.
func (s String) String() string { return strconv.Quote(string(s)) }

// Int is a literal integer
type Int int64

func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }

func equal(x, y Value) bool {
	if l, ok := x.(List); ok {
		if l2, ok := y.(List); ok {
			return slices.EqualFunc(l, l2, func(x, y Term) bool {
				return x.Equal(&y)
			})
		}
		return false
	}
	// String or Int
	return x == y
}
