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

package plan

import (
	"fmt"
	"strings"
	"testing"

	"github.com/GitOfCharlie/WeTune-mirror-sub001/fragment"
)

func TestRoundTrip(t *testing.T) {
	cases := []string{
		`(input "users" "u")`,
		`(inner ("u.id") ("o.uid") (input "users" "u") (input "orders" "o"))`,
		`(left ("u.id" "u.x") ("o.uid" "o.y") (input "users" "u") (input "orders" "o"))`,
		`(filter "gt" ("u.age") (input "users" "u"))`,
		`(insub ("u.id") (input "users" "u") (proj ("o.uid") (input "orders" "o")))`,
		`(proj distinct ("u.id" "u.name") (input "users" "u"))`,
		`(agg "g" ("u.city") (("n" "count" "u.id") ("m" "max" "u.age")) (input "users" "u"))`,
		`(sort ("u.name") (input "users" "u"))`,
		`(limit 10 (input "users" "u"))`,
		`(union (input "a" "x") (input "b" "x"))`,
	}
	for i := range cases {
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			n, err := Parse(cases[i])
			if err != nil {
				t.Fatal(err)
			}
			if got := n.String(); got != cases[i] {
				t.Errorf("got  %s\nwant %s", got, cases[i])
			}
			n2, err := Parse(n.String())
			if err != nil {
				t.Fatal(err)
			}
			if !Equal(n, n2) {
				t.Error("reparsed plan not equal")
			}
			if Fingerprint(n) != Fingerprint(n2) {
				t.Error("fingerprints differ")
			}
		})
	}
}

func TestParseIdentifiers(t *testing.T) {
	n, err := Parse(`(filter gt ("u.age") (input users u))`)
	if err != nil {
		t.Fatal(err)
	}
	want := `(filter "gt" ("u.age") (input "users" "u"))`
	if got := n.String(); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		text, msg string
	}{
		{`(scan "t" "t")`, "unknown operator"},
		{`(input "t")`, "missing arguments"},
		{`(inner ("a.x") ("b.x" "b.y") (input "a" "a") (input "b" "b"))`, "differ in length"},
		{`(filter "p" ("nodot") (input "t" "t"))`, "expected a column"},
		{`(limit "ten" (input "t" "t"))`, "expected an integer"},
		{`(sort ("t.x"))`, "takes 1 inputs"},
		{`(agg "g" () ("n") (input "t" "t"))`, "expected (alias func args...)"},
	}
	for i := range cases {
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			_, err := Parse(cases[i].text)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), cases[i].msg) {
				t.Errorf("error %q does not mention %q", err, cases[i].msg)
			}
		})
	}
}

func TestReplace(t *testing.T) {
	root := MustParse(`(filter "p" ("u.a") (inner ("u.id") ("o.uid") (input "users" "u") (input "orders" "o")))`)
	repl := MustParse(`(input "orders2" "o")`)
	before := root.String()
	got := Replace(root, []int{0, 1}, repl)
	if root.String() != before {
		t.Fatal("Replace modified its input")
	}
	want := `(filter "p" ("u.a") (inner ("u.id") ("o.uid") (input "users" "u") (input "orders2" "o")))`
	if got.String() != want {
		t.Fatalf("got %s", got)
	}
	// untouched subtrees are shared
	if got.Inputs[0].Inputs[0] != root.Inputs[0].Inputs[0] {
		t.Error("left input was copied")
	}
	if At(got, []int{0, 1}) != repl {
		t.Error("At did not find the replacement")
	}
	if Replace(root, nil, repl) != repl {
		t.Error("empty path should replace the root")
	}
}

func TestWalk(t *testing.T) {
	root := MustParse(`(union (proj ("a.x") (input "a" "a")) (sort ("b.x") (input "b" "b")))`)
	var paths []string
	Walk(root, func(n *Node, path []int) bool {
		paths = append(paths, fmt.Sprintf("%s%v", n.Kind, path))
		return n.Kind != fragment.Sort
	})
	want := "Union[] Proj[0] Input[0 0] Sort[1]"
	if got := strings.Join(paths, " "); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	if root.Size() != 5 {
		t.Errorf("size %d", root.Size())
	}
	if s := Sources(root); len(s) != 2 || s[0].Table != "a" || s[1].Table != "b" {
		t.Errorf("sources %v", s)
	}
}

func TestProvides(t *testing.T) {
	cases := []struct {
		plan string
		col  string
		want bool
	}{
		{`(input "users" "u")`, "u.id", true},
		{`(input "users" "u")`, "o.id", false},
		{`(proj ("u.id") (input "users" "u"))`, "u.id", true},
		{`(proj ("u.id") (input "users" "u"))`, "u.name", false},
		{`(agg "g" ("u.city") (("n" "count" "u.id")) (input "users" "u"))`, "g.n", true},
		{`(agg "g" ("u.city") (("n" "count" "u.id")) (input "users" "u"))`, "u.id", false},
		{`(inner ("u.id") ("o.uid") (input "users" "u") (input "orders" "o"))`, "o.uid", true},
	}
	for i := range cases {
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			c, _ := ParseColumn(cases[i].col)
			if got := Provides(MustParse(cases[i].plan), c); got != cases[i].want {
				t.Errorf("got %v", got)
			}
		})
	}
}

func TestSchema(t *testing.T) {
	text := `
tables:
  - name: users
    columns: [id, name]
  - name: orders
    columns: [id, uid]
    foreign_keys:
      - columns: [uid]
        references: users
        ref_columns: [id]
`
	s, err := ParseSchema([]byte(text))
	if err != nil {
		t.Fatal(err)
	}
	if !s.References("orders", []string{"uid"}, "users", []string{"id"}) {
		t.Error("missing foreign key")
	}
	if s.References("users", []string{"id"}, "orders", []string{"uid"}) {
		t.Error("foreign key is not symmetric")
	}
	_, err = ParseSchema([]byte("tables:\n  - name: a\n  - name: a\n"))
	if err == nil {
		t.Error("expected duplicate table error")
	}
	_, err = ParseSchema([]byte("tables:\n  - name: a\n    colums: [x]\n"))
	if err == nil {
		t.Error("expected unknown field error")
	}
	var empty Schema
	empty.AddForeignKey("a", []string{"x"}, "b", []string{"y"})
	if !empty.References("a", []string{"x"}, "b", []string{"y"}) || len(empty.Tables) != 2 {
		t.Error("AddForeignKey")
	}
}

func TestSameRelation(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{`(input "r" "x")`, `(input "r" "y")`, true},
		{`(input "r" "x")`, `(input "s" "x")`, false},
		{
			`(filter "p" ("x.a") (input "r" "x"))`,
			`(filter "p" ("y.a") (input "r" "y"))`,
			true,
		},
		{
			`(filter "p" ("x.a") (input "r" "x"))`,
			`(filter "p" ("y.b") (input "r" "y"))`,
			false,
		},
		{
			// both aliases cannot map to one
			`(inner ("x.a") ("y.a") (input "r" "x") (input "r" "y"))`,
			`(inner ("z.a") ("z.a") (input "r" "z") (input "r" "z"))`,
			false,
		},
		{
			`(inner ("x.a") ("y.a") (input "r" "x") (input "r" "y"))`,
			`(inner ("v.a") ("w.a") (input "r" "v") (input "r" "w"))`,
			true,
		},
	}
	for i := range cases {
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			a, b := MustParse(cases[i].a), MustParse(cases[i].b)
			if got := SameRelation(a, b); got != cases[i].want {
				t.Errorf("got %v", got)
			}
			if got := SameRelation(b, a); got != cases[i].want {
				t.Errorf("reversed: got %v", got)
			}
		})
	}
}

func TestGraphviz(t *testing.T) {
	n := MustParse(`(filter "p" ("x.a") (ij ("x.a") ("y.a") (input "a" "x") (input "b" "y")))`)
	var b strings.Builder
	if err := Graphviz(n, &b); err != nil {
		t.Fatal(err)
	}
	want := `digraph plan {
n0 [label="filter \"p\" (\"x.a\")"];
n1 [label="inner (\"x.a\") (\"y.a\")"];
n2 [label="input \"a\" \"x\""];
n2 -> n1 [label="0"];
n3 [label="input \"b\" \"y\""];
n3 -> n1 [label="1"];
n1 -> n0;
}
`
	if got := b.String(); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestNormalizeFilters(t *testing.T) {
	const sub = `(proj ("o.uid") (input "orders" "o"))`
	cases := []struct {
		in, want string
	}{
		{
			in:   `(filter "p" ("u.a") (insub ("u.id") (input "users" "u") ` + sub + `))`,
			want: `(insub ("u.id") (filter "p" ("u.a") (input "users" "u")) ` + sub + `)`,
		},
		{
			in:   `(filter "p" ("u.a") (insub ("u.id") (insub ("u.x") (input "users" "u") ` + sub + `) ` + sub + `))`,
			want: `(insub ("u.id") (insub ("u.x") (filter "p" ("u.a") (input "users" "u")) ` + sub + `) ` + sub + `)`,
		},
		{
			in:   `(proj ("u.a") (filter "p" ("u.a") (filter "q" ("u.b") (insub ("u.id") (input "users" "u") ` + sub + `))))`,
			want: `(proj ("u.a") (insub ("u.id") (filter "p" ("u.a") (filter "q" ("u.b") (input "users" "u"))) ` + sub + `))`,
		},
		// the subquery side is normalized as well
		{
			in:   `(insub ("u.id") (input "users" "u") (filter "p" ("o.a") (insub ("o.uid") (input "orders" "o") ` + sub + `)))`,
			want: `(insub ("u.id") (input "users" "u") (insub ("o.uid") (filter "p" ("o.a") (input "orders" "o")) ` + sub + `))`,
		},
	}
	for i := range cases {
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			n := MustParse(cases[i].in)
			got := NormalizeFilters(n)
			if got.String() != cases[i].want {
				t.Errorf("got  %s\nwant %s", got, cases[i].want)
			}
			if n.String() != cases[i].in {
				t.Error("input was modified")
			}
			if again := NormalizeFilters(got); again != got {
				t.Error("normalizing twice changed the plan")
			}
		})
	}
	n := MustParse(`(filter "p" ("u.a") (input "users" "u"))`)
	if NormalizeFilters(n) != n {
		t.Error("normalized plan was copied")
	}
}
