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

package wetune

import (
	"go/parser"
	"go/token"
	"io/fs"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"golang.org/x/exp/slices"
)

// packages that must not touch the operating system
var pure = []string{
	"congruence",
	"constraint",
	"enumerate",
	"fragment",
	"optimizer",
	"plan",
	"prover",
	"rules",
	"subst",
	"uexpr",
}

// imports walks every non-test source file in the
// module and returns the imports of each package directory
func imports(t *testing.T) map[string][]string {
	out := make(map[string][]string)
	fset := token.NewFileSet()
	err := filepath.WalkDir(".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if p != "." && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") || name == "testdata") {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(p, ".go") || strings.HasSuffix(p, "_test.go") {
			return nil
		}
		f, err := parser.ParseFile(fset, p, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		dir := filepath.ToSlash(filepath.Dir(p))
		for _, imp := range f.Imports {
			name, err := strconv.Unquote(imp.Path.Value)
			if err != nil {
				return err
			}
			if !slices.Contains(out[dir], name) {
				out[dir] = append(out[dir], name)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestImports(t *testing.T) {
	all := imports(t)
	if len(all) == 0 {
		t.Fatal("no packages found")
	}
	for dir, list := range all {
		if slices.Contains(list, "testing") {
			t.Errorf("package %s imports \"testing\"", dir)
		}
		if !slices.Contains(pure, path.Clean(dir)) {
			continue
		}
		for _, bad := range []string{"os", "os/exec", "net"} {
			if slices.Contains(list, bad) {
				t.Errorf("package %s imports %q", dir, bad)
			}
		}
	}
}
