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

	"github.com/GitOfCharlie/WeTune-mirror-sub001/prover"

	"golang.org/x/exp/slices"
	"sigs.k8s.io/yaml"
)

// ForeignKey declares that Columns of the owning
// table reference RefColumns of the table References.
type ForeignKey struct {
	Columns    []string `json:"columns"`
	References string   `json:"references"`
	RefColumns []string `json:"ref_columns"`
}

// TableDef describes one table of a schema.
type TableDef struct {
	Name        string       `json:"name"`
	Columns     []string     `json:"columns,omitempty"`
	ForeignKeys []ForeignKey `json:"foreign_keys,omitempty"`
}

// Schema is the set of tables a plan may reference.
// The zero Schema has no tables and no foreign keys.
type Schema struct {
	Tables []TableDef `json:"tables"`
}

// ParseSchema decodes a YAML (or JSON) schema description.
func ParseSchema(buf []byte) (*Schema, error) {
	s := new(Schema)
	if err := yaml.UnmarshalStrict(buf, s); err != nil {
		return nil, fmt.Errorf("plan: parsing schema: %w", err)
	}
	seen := make(map[string]bool)
	for i := range s.Tables {
		t := &s.Tables[i]
		if t.Name == "" {
			return nil, fmt.Errorf("plan: schema table %d has no name", i)
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("plan: duplicate schema table %q", t.Name)
		}
		seen[t.Name] = true
		for j := range t.ForeignKeys {
			fk := &t.ForeignKeys[j]
			if len(fk.Columns) == 0 || len(fk.Columns) != len(fk.RefColumns) {
				return nil, fmt.Errorf("plan: table %q: foreign key %d has mismatched columns", t.Name, j)
			}
		}
	}
	return s, nil
}

// Table returns the definition of the named table.
func (s *Schema) Table(name string) (*TableDef, bool) {
	if s == nil {
		return nil, false
	}
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i], true
		}
	}
	return nil, false
}

// References reports whether cols of table from are
// declared as a foreign key onto refCols of table to.
func (s *Schema) References(from string, cols []string, to string, refCols []string) bool {
	t, ok := s.Table(from)
	if !ok {
		return false
	}
	for i := range t.ForeignKeys {
		fk := &t.ForeignKeys[i]
		if fk.References == to && slices.Equal(fk.Columns, cols) && slices.Equal(fk.RefColumns, refCols) {
			return true
		}
	}
	return false
}

// AddForeignKey declares a foreign key, adding
// either table to the schema if it is missing.
func (s *Schema) AddForeignKey(from string, cols []string, to string, refCols []string) {
	if _, ok := s.Table(to); !ok {
		s.Tables = append(s.Tables, TableDef{Name: to})
	}
	t, ok := s.Table(from)
	if !ok {
		s.Tables = append(s.Tables, TableDef{Name: from})
		t = &s.Tables[len(s.Tables)-1]
	}
	t.ForeignKeys = append(t.ForeignKeys, ForeignKey{
		Columns:    slices.Clone(cols),
		References: to,
		RefColumns: slices.Clone(refCols),
	})
}

// Axioms returns the foreign keys of s as
// axioms for the prover.
func (s *Schema) Axioms() []prover.Reference {
	if s == nil {
		return nil
	}
	var out []prover.Reference
	for i := range s.Tables {
		for _, fk := range s.Tables[i].ForeignKeys {
			out = append(out, prover.Reference{
				From: s.Tables[i].Name, FromCols: fk.Columns,
				To: fk.References, ToCols: fk.RefColumns,
			})
		}
	}
	return out
}
