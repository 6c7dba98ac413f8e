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
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		text string
		want []Rule
	}{
		{
			text: ` // some comment text
(x y), "isOkay()" -> z
(x y:("z")) -> (bar baz)
`,
			want: []Rule{
				{
					From: []Value{
						List{
							{Name: "x"},
							{Name: "y"},
						},
						String("isOkay()"),
					},
					To: Term{Name: "z"},
				},
				{
					From: []Value{
						List{
							{Name: "x"},
							{Name: "y", Value: List{{Value: String("z")}}},
						},
					},
					To: Term{
						Value: List{
							{Name: "bar"},
							{Name: "baz"},
						},
					},
				},
			},
		},
	}

	for i := range tests {
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			r := strings.NewReader(tests[i].text)
			rules, err := Parse(r)
			if err != nil {
				t.Fatal(err)
			}
			if len(rules) != len(tests[i].want) {
				t.Errorf("got %d rules out; wanted %d", len(rules), len(tests[i].want))
			}
			for j := range rules {
				if j >= len(tests[i].want) {
					break
				}
				if !rules[j].Equal(&tests[i].want[j]) {
					t.Errorf("got  rule %s", rules[j].String())
					t.Errorf("want rule %s", tests[i].want[j].String())
				}
			}
		})
	}
}

func TestParseValue(t *testing.T) {
	v, err := ParseValue("plan", strings.NewReader(`(limit 10 (input "r" q0) -3)`))
	if err != nil {
		t.Fatal(err)
	}
	want := List{
		{Name: "limit"},
		{Value: Int(10)},
		{Value: List{{Name: "input"}, {Value: String("r")}, {Name: "q0"}}},
		{Value: Int(-3)},
	}
	if !equal(v, want) {
		t.Errorf("got %s, want %s", v, want)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		text, err string
	}{
		{"(a b) (c)", "rec:1:7: expected '->'"},
		{"(a b", "unexpected EOF in list"},
		{"(a) -> (b)\n, (c) -> d", "rec:2:1: unexpected token"},
	}
	for i := range tests {
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			_, err := ParseFile("rec", strings.NewReader(tests[i].text))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tests[i].err) {
				t.Errorf("got error %q, want %q", err, tests[i].err)
			}
		})
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		text string
		head string
		args int
		err  string
	}{
		{text: `(input "r" q0)`, head: "input", args: 2},
		{text: `(limit)`, head: "limit"},
		{text: `()`, err: "expected an operator list"},
		{text: `"input"`, err: "expected an operator list"},
		{text: `("input" q0)`, err: "expected an operator name"},
		{text: `(x:(y) q0)`, err: "expected an operator name"},
	}
	for i := range tests {
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			v, err := ParseValue("split", strings.NewReader(tests[i].text))
			if err != nil {
				t.Fatal(err)
			}
			head, args, err := Split(v, "an operator")
			if tests[i].err != "" {
				if err == nil || !strings.Contains(err.Error(), tests[i].err) {
					t.Fatalf("got error %v, want %q", err, tests[i].err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if head.Name != tests[i].head || len(args) != tests[i].args {
				t.Errorf("got %s with %d args", head, len(args))
			}
		})
	}
}

func TestText(t *testing.T) {
	tests := []struct {
		term  Term
		text  string
		ident bool
		ok    bool
	}{
		{term: Term{Name: "q0"}, text: "q0", ident: true, ok: true},
		{term: Term{Value: String("users.id")}, text: "users.id", ok: true},
		{term: Term{Value: Int(3)}},
		{term: Term{Name: "x", Value: String("y")}},
		{term: Term{Value: List{{Name: "a"}}}},
	}
	for i := range tests {
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			text, ok := tests[i].term.Text()
			if ok != tests[i].ok || text != tests[i].text {
				t.Errorf("Text() = %q, %v", text, ok)
			}
			if _, ok := tests[i].term.Ident(); ok != tests[i].ident {
				t.Errorf("Ident() ok = %v", ok)
			}
		})
	}
}
