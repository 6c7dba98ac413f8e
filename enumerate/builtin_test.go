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

package enumerate

import (
	"fmt"
	"testing"

	"github.com/GitOfCharlie/WeTune-mirror-sub001/fragment"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/plan"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/subst"
)

func TestBuiltinForeignKey(t *testing.T) {
	var toLeft *subst.Substitution
	for _, s := range Builtins() {
		if s.G1.Root.Kind == fragment.LeftJoin {
			toLeft = s
		}
	}
	if toLeft == nil {
		t.Fatal("no inner to left join rewrite")
	}
	schema := &plan.Schema{}
	schema.AddForeignKey("orders", []string{"uid"}, "users", []string{"id"})
	cases := []struct {
		plan string
		want int
	}{
		{`(inner ("o.uid") ("u.id") (input "orders" "o") (input "users" "u"))`, 1},
		// only some users are joined
		{`(inner ("o.uid") ("u.id") (input "orders" "o") (filter "active" ("u.flag") (input "users" "u")))`, 0},
		{`(inner ("o.uid") ("u.id") (input "orders" "o") (inner ("u.id") ("v.id") (input "users" "u") (input "vips" "v")))`, 0},
		// dropping orders is fine
		{`(inner ("o.uid") ("u.id") (filter "recent" ("o.at") (input "orders" "o")) (input "users" "u"))`, 1},
		{`(inner ("o.uid") ("u.id") (input "orders" "o") (sort ("u.name") (input "users" "u")))`, 1},
	}
	for i := range cases {
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			root := plan.MustParse(cases[i].plan)
			if got := len(subst.Find(toLeft, root, schema)); got != cases[i].want {
				t.Errorf("got %d matches, want %d", got, cases[i].want)
			}
		})
	}
}
