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

// Package tests provides common functions used in tests.
package tests

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
)

var sepdash = []byte("---")

// CaseSpec is the content of a test case file.
type CaseSpec struct {
	// Sections are the non-empty, non-comment
	// lines of each part of the file.
	Sections [][]string
	// Tags are the key-value pairs of lines
	// of the form "## key: value". Keys are
	// lower-cased.
	Tags map[string]string
}

// ReadSpec reads parts of a text separated by lines
// starting with `---`.
//
// Each part is a list of lines. Empty lines and lines
// starting with `#` are skipped; lines starting with
// `##` hold tags.
func ReadSpec(r io.Reader) (*CaseSpec, error) {
	spec := &CaseSpec{
		Sections: [][]string{{}},
		Tags:     make(map[string]string),
	}
	rd := bufio.NewScanner(r)
	lineno := 0
	for rd.Scan() {
		lineno++
		line := rd.Bytes()
		if bytes.HasPrefix(line, sepdash) {
			spec.Sections = append(spec.Sections, []string{})
			continue
		}
		if bytes.HasPrefix(line, []byte("##")) {
			key, value, ok := strings.Cut(string(line[2:]), ":")
			if !ok {
				return nil, fmt.Errorf("line %d: tag without ':'", lineno)
			}
			spec.Tags[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
			continue
		}
		// allow # line comments iff they begin the line
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		cur := len(spec.Sections) - 1
		spec.Sections[cur] = append(spec.Sections[cur], string(line))
	}
	if err := rd.Err(); err != nil {
		return nil, err
	}
	return spec, nil
}

// ReadSpecFile is like ReadSpec but reads
// the named file.
func ReadSpecFile(fname string) (*CaseSpec, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	spec, err := ReadSpec(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fname, err)
	}
	return spec, nil
}

// Text returns the lines of section i
// joined by newlines, or "" if there is
// no section i.
func (c *CaseSpec) Text(i int) string {
	if i >= len(c.Sections) {
		return ""
	}
	return strings.Join(c.Sections[i], "\n")
}
