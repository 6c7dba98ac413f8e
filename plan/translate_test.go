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
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/GitOfCharlie/WeTune-mirror-sub001/prover"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/tests"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/uexpr"
)

func equivalent(t *testing.T, p *prover.Prover, a, b string) bool {
	t.Helper()
	out := uexpr.Var("t")
	ea, err := Translate(MustParse(a), out)
	if err != nil {
		t.Fatal(err)
	}
	eb, err := Translate(MustParse(b), out)
	if err != nil {
		t.Fatal(err)
	}
	return p.Equivalent(ea, eb, []*uexpr.Tuple{out})
}

func TestTranslateEquivalence(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{
			// join commutativity
			`(inner ("u.id") ("o.uid") (input "users" "u") (input "orders" "o"))`,
			`(inner ("o.uid") ("u.id") (input "orders" "o") (input "users" "u"))`,
			true,
		},
		{
			// filter commutativity
			`(filter "p" ("u.a") (filter "q" ("u.b") (input "users" "u")))`,
			`(filter "q" ("u.b") (filter "p" ("u.a") (input "users" "u")))`,
			true,
		},
		{
			`(filter "p" ("u.a") (input "users" "u"))`,
			`(filter "q" ("u.a") (input "users" "u"))`,
			false,
		},
		{
			// ordering does not change a bag
			`(sort ("u.a") (input "users" "u"))`,
			`(input "users" "u")`,
			true,
		},
		{
			`(proj distinct ("u.a") (proj distinct ("u.a") (input "users" "u")))`,
			`(proj distinct ("u.a") (input "users" "u"))`,
			true,
		},
		{
			// duplicates matter
			`(proj ("u.a") (input "users" "u"))`,
			`(proj distinct ("u.a") (input "users" "u"))`,
			false,
		},
		{
			`(union (input "a" "x") (input "b" "x"))`,
			`(union (input "b" "x") (input "a" "x"))`,
			true,
		},
		{
			`(union (input "a" "x") (input "a" "x"))`,
			`(input "a" "x")`,
			false,
		},
		{
			`(limit 1 (input "a" "x"))`,
			`(limit 1 (input "a" "x"))`,
			true,
		},
		{
			`(limit 1 (input "a" "x"))`,
			`(limit 2 (input "a" "x"))`,
			false,
		},
	}
	for i := range cases {
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			c := &cases[i]
			if got := equivalent(t, &prover.Prover{}, c.a, c.b); got != c.want {
				t.Errorf("%s vs %s: got %v", c.a, c.b, got)
			}
			if got := equivalent(t, &prover.Prover{}, c.b, c.a); got != c.want {
				t.Errorf("%s vs %s: got %v", c.b, c.a, got)
			}
		})
	}
}

func TestTranslateForeignKey(t *testing.T) {
	fk := &prover.Prover{References: []prover.Reference{{
		From: "orders", FromCols: []string{"uid"},
		To: "users", ToCols: []string{"id"},
	}}}
	semi := `(insub ("o.uid") (input "orders" "o") (proj ("u.id") (input "users" "u")))`
	scan := `(input "orders" "o")`
	if equivalent(t, &prover.Prover{}, semi, scan) {
		t.Error("semi-join removed without a foreign key")
	}
	if !equivalent(t, fk, semi, scan) {
		t.Error("semi-join not removed under a foreign key")
	}
}

func TestTranslateErrors(t *testing.T) {
	cases := []string{
		`(filter "p" ("v.a") (input "users" "u"))`,
		`(inner ("u.id") ("u.id") (input "users" "u") (input "orders" "o"))`,
		`(insub ("u.id" "u.x") (input "users" "u") (proj ("o.uid") (input "orders" "o")))`,
		`(union (proj ("u.a" "u.b") (input "users" "u")) (input "orders" "o"))`,
	}
	for i := range cases {
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			_, err := Translate(MustParse(cases[i]), uexpr.Var("t"))
			var te *TranslateError
			if !errors.As(err, &te) {
				t.Fatalf("got %v, want a TranslateError", err)
			}
			if te.In == nil {
				t.Error("error is not attached to a node")
			}
		})
	}
	_, err := Translate(&Node{Kind: 42}, uexpr.Var("t"))
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("got %v, want ErrUnsupported", err)
	}
}

// TestEquivalenceFiles runs the cases in testdata/*.test:
// two plans, an optional schema and the expected
// verdict in the "equivalent" tag.
func TestEquivalenceFiles(t *testing.T) {
	files, err := filepath.Glob("testdata/*.test")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("no test cases")
	}
	for _, file := range files {
		file := file
		t.Run(filepath.Base(file), func(t *testing.T) {
			spec, err := tests.ReadSpecFile(file)
			if err != nil {
				t.Fatal(err)
			}
			if len(spec.Sections) < 2 {
				t.Fatalf("%d sections", len(spec.Sections))
			}
			want, err := strconv.ParseBool(spec.Tags["equivalent"])
			if err != nil {
				t.Fatalf("tag equivalent: %s", err)
			}
			p := &prover.Prover{}
			if len(spec.Sections) > 2 {
				s, err := ParseSchema([]byte(spec.Text(2)))
				if err != nil {
					t.Fatal(err)
				}
				p.References = s.Axioms()
			}
			if got := equivalent(t, p, spec.Text(0), spec.Text(1)); got != want {
				t.Errorf("got %v", got)
			}
			if got := equivalent(t, p, spec.Text(1), spec.Text(0)); got != want {
				t.Errorf("reversed: got %v", got)
			}
		})
	}
}
