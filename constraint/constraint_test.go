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

package constraint

import (
	"fmt"
	"strings"
	"testing"

	"github.com/GitOfCharlie/WeTune-mirror-sub001/fragment"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/plan"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/rules"
)

type testEnv struct {
	tables map[*fragment.Symbol]*plan.Node
	attrs  map[*fragment.Symbol][]plan.Column
	aggs   map[*fragment.Symbol][]plan.AggFunc
	preds  map[*fragment.Symbol]string
	schema *plan.Schema
}

func newEnv() *testEnv {
	return &testEnv{
		tables: make(map[*fragment.Symbol]*plan.Node),
		attrs:  make(map[*fragment.Symbol][]plan.Column),
		aggs:   make(map[*fragment.Symbol][]plan.AggFunc),
		preds:  make(map[*fragment.Symbol]string),
		schema: &plan.Schema{},
	}
}

func (e *testEnv) Table(s *fragment.Symbol) (*plan.Node, bool) {
	n, ok := e.tables[s]
	return n, ok
}

func (e *testEnv) Attrs(s *fragment.Symbol) ([]plan.Column, bool) {
	c, ok := e.attrs[s]
	return c, ok
}

func (e *testEnv) Aggs(s *fragment.Symbol) ([]plan.AggFunc, bool) {
	a, ok := e.aggs[s]
	return a, ok
}

func (e *testEnv) Pred(s *fragment.Symbol) (string, bool) {
	p, ok := e.preds[s]
	return p, ok
}

func (e *testEnv) Schema() *plan.Schema { return e.schema }

func cols(lst ...string) []plan.Column {
	out := make([]plan.Column, len(lst))
	for i, s := range lst {
		c, ok := plan.ParseColumn(s)
		if !ok {
			panic("bad column " + s)
		}
		out[i] = c
	}
	return out
}

func parse(t *testing.T, sc fragment.Scope, text string) (Constraint, error) {
	t.Helper()
	v, err := rules.ParseValue("test", strings.NewReader(text))
	if err != nil {
		t.Fatal(err)
	}
	return Decode(v, sc)
}

func TestDecode(t *testing.T) {
	cases := []struct {
		text string
		err  string
	}{
		{text: "(TableEq t0 t1)"},
		{text: "(AttrsEq a0 a1)"},
		{text: "(AttrsEq g0 g1)"},
		{text: "(PredicateEq p0 p1)"},
		{text: "(PickFrom a0 t0 t1)"},
		{text: "(PickFrom a1 a0)"},
		{text: "(Reference t0 a0 t1 a1)"},
		{text: "(TableEq t0 a1)", err: "different kinds"},
		{text: "(AttrsEq t0 t1)", err: "Table symbol"},
		{text: "(PickFrom a0)", err: "at least one source"},
		{text: "(PickFrom a0 p0)", err: "source is a Predicate"},
		{text: "(Reference t0 a0 t1)", err: "takes 4 symbols"},
		{text: "(Subset a0 a1)", err: "unknown constraint"},
		{text: "(TableEq t0 x1)", err: "bad symbol name"},
	}
	for i := range cases {
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			sc := make(fragment.Scope)
			c, err := parse(t, sc, cases[i].text)
			if cases[i].err != "" {
				if err == nil || !strings.Contains(err.Error(), cases[i].err) {
					t.Fatalf("got error %v, want %q", err, cases[i].err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			n := fragment.NewNaming()
			for _, s := range c.Syms {
				n.Name(s)
			}
			if got := c.Format(n); got != cases[i].text {
				t.Errorf("got %s", got)
			}
		})
	}
}

func TestSet(t *testing.T) {
	t0, t1, t2 := &fragment.Symbol{Kind: fragment.Table}, &fragment.Symbol{Kind: fragment.Table}, &fragment.Symbol{Kind: fragment.Table}
	a0, a1 := &fragment.Symbol{Kind: fragment.Attrs}, &fragment.Symbol{Kind: fragment.Attrs}
	s, err := NewSet(
		Make(TableEq, t1, t0),
		Make(TableEq, t0, t1), // duplicate
		Make(TableEq, t1, t2),
		Make(PickFrom, a1, t2),
		Make(PickFrom, a0, t0),
		Make(AttrsEq, a0, a1),
	)
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 5 {
		t.Fatalf("len %d, want 5", s.Len())
	}
	if !s.Same(t0, t2) || s.Same(t0, a0) {
		t.Error("Same")
	}
	if len(s.Class(t2)) != 3 {
		t.Errorf("class %v", s.Class(t2))
	}
	if src, ok := s.Source(t2, []*fragment.Symbol{a0, t0, t1}); !ok || src != t0 {
		t.Error("Source")
	}
	if got := s.Sources(a1); len(got) != 1 || got[0][0] != t2 {
		t.Errorf("Sources %v", got)
	}
	n := fragment.NewNaming()
	for _, sym := range []*fragment.Symbol{t0, t1, t2, a0, a1} {
		n.Name(sym)
	}
	var lines []string
	for _, c := range s.Sorted(n) {
		lines = append(lines, c.Format(n))
	}
	want := "(TableEq t0 t1) (TableEq t1 t2) (AttrsEq a0 a1) (PickFrom a0 t0) (PickFrom a1 t2)"
	if got := strings.Join(lines, " "); got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
	if _, err := NewSet(Make(TableEq, t0, a0)); err == nil {
		t.Error("expected an error for an ill-kinded constraint")
	}
}

func TestEval(t *testing.T) {
	sc := make(fragment.Scope)
	sym := func(name string) *fragment.Symbol {
		s, err := sc.Lookup(name)
		if err != nil {
			t.Fatal(err)
		}
		return s
	}
	env := newEnv()
	users := plan.MustParse(`(input "users" "u")`)
	orders := plan.MustParse(`(input "orders" "o")`)
	join := plan.MustParse(`(inner ("u.id") ("o.uid") (input "users" "u") (input "orders" "o"))`)
	env.tables[sym("t0")] = users
	env.tables[sym("t1")] = plan.MustParse(`(input "users" "u")`)
	env.tables[sym("t2")] = orders
	env.tables[sym("t3")] = join
	env.attrs[sym("a0")] = cols("u.id")
	env.attrs[sym("a1")] = cols("u.id")
	env.attrs[sym("a2")] = cols("o.uid")
	env.attrs[sym("a3")] = cols("u.id", "o.uid")
	env.attrs[sym("a4")] = cols("u.id.x")
	env.preds[sym("p0")] = "gt"
	env.preds[sym("p1")] = "gt"
	env.preds[sym("p2")] = "lt"
	env.tables[sym("t4")] = plan.MustParse(`(filter "active" ("u.flag") (input "users" "u"))`)
	env.tables[sym("t5")] = plan.MustParse(`(filter "recent" ("o.at") (input "orders" "o"))`)
	env.tables[sym("t6")] = plan.MustParse(`(sort ("u.name") (proj ("u.id" "u.name") (input "users" "u")))`)
	env.aggs[sym("k0")] = []plan.AggFunc{{As: "n", Func: "count", Args: cols("o.uid")}}
	env.schema.AddForeignKey("orders", []string{"uid"}, "users", []string{"id"})

	cases := []struct {
		text string
		want bool
	}{
		{"(TableEq t0 t1)", true},
		{"(TableEq t0 t2)", false},
		{"(TableEq t0 t9)", false},
		{"(AttrsEq a0 a1)", true},
		{"(AttrsEq a0 a2)", false},
		{"(PredicateEq p0 p1)", true},
		{"(PredicateEq p0 p2)", false},
		{"(PickFrom a0 t0)", true},
		{"(PickFrom a2 t0)", false},
		{"(PickFrom a2 t0 t2)", true},
		{"(PickFrom a3 t3)", true},
		{"(PickFrom a3 t0)", false},
		{"(PickFrom a0 a3)", true},
		{"(PickFrom a4 a0)", true},
		{"(PickFrom a2 a0)", false},
		{"(PickFrom k0 t2)", true},
		{"(PickFrom k0 t0)", false},
		{"(Reference t2 a2 t0 a0)", true},
		{"(Reference t0 a0 t2 a2)", false},
		{"(Reference t2 a2 t0 a9)", false},
		// the referenced table must keep all of its rows
		{"(Reference t3 a2 t3 a0)", false},
		{"(Reference t3 a2 t0 a0)", true},
		{"(Reference t2 a2 t4 a0)", false},
		{"(Reference t5 a2 t0 a0)", true},
		{"(Reference t5 a2 t6 a0)", true},
		{"(Reference t5 a2 t4 a0)", false},
	}
	for i := range cases {
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			c, err := parse(t, sc, cases[i].text)
			if err != nil {
				t.Fatal(err)
			}
			if got := c.Eval(env); got != cases[i].want {
				t.Errorf("%s: got %v", cases[i].text, got)
			}
			if got := MustSet(c).Eval(env); got != cases[i].want {
				t.Errorf("%s: set got %v", cases[i].text, got)
			}
		})
	}
}
