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

package fragment

import (
	"errors"
	"fmt"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	texts := []string{
		"(p a0 (j a1 a2 (i t0) (i t1)))",
		"(q a0 (l a1 a2 (i t0) (f p0 a3 (i t1))))",
		"(j a0 a0 (i t0) (i t1))",
		"(s a0 (i t0) (q a1 (i t1)))",
		"(u (a g0 k0 (i t0)) (t (o a0 (i t1))))",
	}
	for i, text := range texts {
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			f, err := Parse(text)
			if err != nil {
				t.Fatal(err)
			}
			if got := f.String(); got != text {
				t.Errorf("got %s", got)
			}
			for _, s := range f.Symbols() {
				if s.Owner() != f {
					t.Error("symbol not owned by its fragment")
				}
			}
		})
	}
}

func TestSharedSymbol(t *testing.T) {
	f := MustParse("(j a0 a0 (i t0) (i t1))")
	if n := len(f.Symbols()); n != 3 {
		t.Errorf("got %d symbols", n)
	}
	l, r := f.Root.Keys()
	if l != r {
		t.Error("repeated name should decode to one symbol")
	}
}

func TestParseErrors(t *testing.T) {
	texts := []string{
		"(x t0)",
		"(i a0)",
		"(j a0 a1 (i t0))",
		"(f p0 a0 (i t0) (i t1))",
		"(i t)",
		"(q a0 foo)",
	}
	for _, text := range texts {
		if _, err := Parse(text); err == nil {
			t.Errorf("%s: expected an error", text)
		}
	}
}

func TestOwnership(t *testing.T) {
	f := MustParse("(q a0 (i t0))")
	if _, err := New(f.Root); !errors.Is(err, ErrOwned) {
		t.Errorf("got %v, want ErrOwned", err)
	}
	bad := &Op{Kind: Filter, Syms: []*Symbol{{Kind: Table}, {Kind: Attrs}}, Inputs: []*Op{NewInput()}}
	if _, err := New(bad); !errors.Is(err, ErrShape) {
		t.Errorf("got %v, want ErrShape", err)
	}
}

func TestCompareHash(t *testing.T) {
	a := MustParse("(p a0 (j a1 a2 (i t0) (i t1)))")
	b := MustParse("(p a5 (j a3 a3 (i t2) (i t9)))")
	c := MustParse("(q a0 (j a1 a2 (i t0) (i t1)))")
	if Compare(a.Root, b.Root) != 0 {
		t.Error("symbols must not affect Compare")
	}
	if a.Hash() != b.Hash() {
		t.Error("equal shapes must hash equally")
	}
	if a.Hash() == c.Hash() {
		t.Error("dedup flag should change the hash")
	}
	if Compare(c.Root, a.Root) >= 0 {
		t.Error("plain projection should sort before dedup projection")
	}
	f := MustParse("(f p0 a0 (i t0))")
	j := MustParse("(j a0 a1 (i t0) (i t1))")
	if Compare(j.Root, f.Root) >= 0 || Compare(f.Root, j.Root) <= 0 {
		t.Error("kinds should order joins before filters")
	}
	if s := a.Shape(); s != "p(j(i,i))" {
		t.Errorf("shape %s", s)
	}
}

func TestPrune(t *testing.T) {
	tests := []struct {
		text, rule string
	}{
		{"(j a0 a1 (i t0) (i t1))", "AllJoin"},
		{"(l a0 a1 (i t0) (i t1))", "AllJoin"},
		{"(s a0 (i t0) (p a1 (i t1)))", "MeaninglessDedup"},
		{"(f p0 a0 (s a1 (i t0) (i t1)))", "ReorderedFilter"},
		{"(j a0 a1 (i t0) (j a2 a3 (i t1) (i t2)))", "NonLeftDeepJoin"},
		{"(s a1 (f p0 a0 (i t0)) (i t1))", ""},
		{"(s a0 (i t0) (q a1 (i t1)))", ""},
		{"(p a0 (j a1 a2 (i t0) (i t1)))", ""},
	}
	for i := range tests {
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			f := MustParse(tests[i].text)
			got, _ := Prune(f.Root, DefaultRules())
			if got != tests[i].rule {
				t.Errorf("%s: matched %q, want %q", tests[i].text, got, tests[i].rule)
			}
		})
	}
}

func TestEnumerate(t *testing.T) {
	tests := []struct {
		opts Options
		want []string
	}{
		{
			opts: Options{Kinds: []Kind{Filter}, MaxOps: 2, Rules: []Rule{}},
			want: []string{"f(i)", "f(f(i))"},
		},
		{
			opts: Options{Kinds: []Kind{Proj}, MaxOps: 1},
			want: []string{"q(i)", "p(i)"},
		},
		{
			opts: Options{Kinds: []Kind{InnerJoin}, MaxOps: 1},
			want: nil,
		},
		{
			opts: Options{Kinds: []Kind{Union}, MaxOps: 2, Rules: []Rule{}},
			want: []string{"u(i,i)", "u(i,u(i,i))"},
		},
		{
			opts: Options{Kinds: []Kind{InnerJoin, Proj}, MaxOps: 2},
			want: []string{
				"j(i,q(i))", "j(i,p(i))", "j(j(i,i),i)", "j(q(i),i)", "j(p(i),i)",
				"q(i)", "q(j(i,i))", "q(q(i))", "q(p(i))",
				"p(i)", "p(j(i,i))", "p(q(i))", "p(p(i))",
			},
		},
	}
	for i := range tests {
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			frags := Enumerate(tests[i].opts)
			var got []string
			for _, f := range frags {
				got = append(got, f.Shape())
				if tests[i].opts.Rules != nil {
					continue
				}
				if rule, pruned := Prune(f.Root, DefaultRules()); pruned {
					t.Errorf("%s should have been pruned by %s", f, rule)
				}
			}
			if fmt.Sprint(got) != fmt.Sprint(tests[i].want) {
				t.Errorf("got  %v\nwant %v", got, tests[i].want)
			}
		})
	}
}

func TestCopy(t *testing.T) {
	f := MustParse("(j a0 a0 (i t0) (i t1))")
	c, m := Copy(f.Root)
	g := MustNew(c)
	if len(m) != 3 || len(g.Symbols()) != 3 {
		t.Fatalf("copied %d symbols", len(m))
	}
	for s, n := range m {
		if s == n || n.Owner() != g || n.Kind != s.Kind {
			t.Error("copy must use fresh symbols of the same kind")
		}
	}
}

func TestKindNamed(t *testing.T) {
	for k := Input; k < numKinds; k++ {
		got, ok := KindNamed(k.String())
		if !ok || got != k {
			t.Errorf("KindNamed(%q) = %v, %v", k.String(), got, ok)
		}
	}
	if _, ok := KindNamed("Join"); ok {
		t.Error("unexpected kind Join")
	}
}
