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

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/GitOfCharlie/WeTune-mirror-sub001/enumerate"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/fragment"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/plan"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/subst"
)

func writeFile(t *testing.T, name, text string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(text), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestConfig(t *testing.T) {
	schema := writeFile(t, "schema.yaml", `
tables:
  - name: orders
    columns: [id, uid]
    foreign_keys:
      - columns: [uid]
        references: users
        ref_columns: [id]
  - name: users
    columns: [id]
`)
	file := writeFile(t, "wetune.yaml", fmt.Sprintf(`
enumerate:
  kinds: [InnerJoin, Filter]
  max_ops: 3
  max_vars: 5
  timeout: 1m
optimize:
  max_rounds: 4
  timeout: 250ms
schema: %s
`, schema))
	conf, err := loadConfig(file)
	if err != nil {
		t.Fatal(err)
	}
	ec, timeout, err := conf.enumConfig()
	if err != nil {
		t.Fatal(err)
	}
	if timeout != time.Minute || ec.Fragments.MaxOps != 3 || ec.Prover == nil || ec.Prover.MaxVars != 5 {
		t.Errorf("unexpected enumeration config %+v", ec)
	}
	if len(ec.Fragments.Kinds) != 2 || ec.Fragments.Kinds[0] != fragment.InnerJoin {
		t.Errorf("kinds %v", ec.Fragments.Kinds)
	}
	oc, err := conf.optimizerConfig()
	if err != nil {
		t.Fatal(err)
	}
	if oc.MaxRounds != 4 || oc.Timeout != 250*time.Millisecond {
		t.Errorf("unexpected optimizer config %+v", oc)
	}
	s, err := conf.schema("")
	if err != nil {
		t.Fatal(err)
	}
	if !s.References("orders", []string{"uid"}, "users", []string{"id"}) {
		t.Error("foreign key not loaded")
	}
	s, err = conf.schema(writeFile(t, "empty.yaml", "tables: []\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Tables) != 0 {
		t.Error("override ignored")
	}
}

func TestConfigErrors(t *testing.T) {
	run := []string{
		"enumerate:\n  kinds: [Join]\n",
		"enumerate:\n  kinds: [Input]\n",
		"enumerate:\n  timeout: soon\n",
		"optimize:\n  timeout: \"5\"\n",
	}
	for i, text := range run {
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			conf, err := loadConfig(writeFile(t, "c.yaml", text))
			if err != nil {
				t.Fatal(err)
			}
			_, _, err1 := conf.enumConfig()
			_, err2 := conf.optimizerConfig()
			if err1 == nil && err2 == nil {
				t.Error("expected an error")
			}
		})
	}
	if _, err := loadConfig(writeFile(t, "c.yaml", "enumerate:\n  max_opps: 3\n")); err == nil {
		t.Error("unknown field accepted")
	}
	if c, err := loadConfig(""); err != nil || c.Schema != "" {
		t.Error("empty configuration")
	}
}

func TestBankFiles(t *testing.T) {
	b := subst.NewBank(enumerate.Builtins()...)
	dir := t.TempDir()
	for _, name := range []string{"bank.txt", "bank.txt.zst", "bank.s2"} {
		file := filepath.Join(dir, name)
		if err := writeBank(file, b); err != nil {
			t.Fatal(err)
		}
		got := readBank(file)
		if got.Digest() != b.Digest() || got.Len() != b.Len() {
			t.Errorf("%s: bank changed", name)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Errorf("%d files left behind", len(entries))
	}
}

func TestReadPlans(t *testing.T) {
	text := `
# two statements
(input "users" "u")

(filter "p" ("u.a") (input "users" "u"))
`
	roots, err := readPlans(strings.NewReader(text))
	if err != nil {
		t.Fatal(err)
	}
	if len(roots) != 2 || roots[1].String() != `(filter "p" ("u.a") (input "users" "u"))` {
		t.Errorf("unexpected plans %v", roots)
	}
	_, err = readPlans(strings.NewReader("(input \"a\" \"a\")\n(bogus)\n"))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("got error %v", err)
	}
}

func TestWriteDot(t *testing.T) {
	file := filepath.Join(t.TempDir(), "statement-0.dot")
	writeDot(file, plan.MustParse(`(filter "p" ("x.a") (input "a" "x"))`))
	buf, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(buf), "digraph plan {") || !strings.Contains(string(buf), "n1 -> n0;") {
		t.Errorf("unexpected output:\n%s", buf)
	}
}
