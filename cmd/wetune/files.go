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
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/GitOfCharlie/WeTune-mirror-sub001/compr"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/plan"
	"github.com/GitOfCharlie/WeTune-mirror-sub001/subst"
)

// readBank reads a bank file, decompressing it
// according to its extension. Invalid records are
// reported and skipped.
func readBank(file string) *subst.Bank {
	f, err := os.Open(file)
	if err != nil {
		exitf("%s", err)
	}
	defer f.Close()
	r, err := compr.NewReader(f, compr.ByExtension(file))
	if err != nil {
		exitf("%s: %s", file, err)
	}
	defer r.Close()
	b, err := subst.ReadBank(r)
	if err != nil {
		var rec *subst.RecordError
		if !errors.As(err, &rec) {
			exitf("%s: %s", file, err)
		}
		for _, line := range strings.Split(err.Error(), "\n") {
			logf("%s: skipping %s", file, line)
		}
	}
	return b
}

// writeBank writes b to file, compressing it
// according to the extension of file. The file
// is replaced atomically.
func writeBank(file string, b *subst.Bank) error {
	tmp, err := os.CreateTemp(filepath.Dir(file), ".bank-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	w, err := compr.NewWriter(tmp, compr.ByExtension(file))
	if err != nil {
		tmp.Close()
		return err
	}
	if _, err := b.WriteTo(w); err != nil {
		tmp.Close()
		return err
	}
	if err := w.Close(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), file)
}

// readPlans reads one plan per line from r.
// Blank lines and lines starting with '#'
// are ignored.
func readPlans(r io.Reader) ([]*plan.Node, error) {
	var out []*plan.Node
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || text[0] == '#' {
			continue
		}
		n, err := plan.Parse(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, n)
	}
	return out, sc.Err()
}

// writeDot writes the graphviz rendering of n to file
func writeDot(file string, n *plan.Node) {
	f, err := os.Create(file)
	if err != nil {
		exitf("%s", err)
	}
	err = plan.Graphviz(n, f)
	if err2 := f.Close(); err == nil {
		err = err2
	}
	if err != nil {
		exitf("%s: %s", file, err)
	}
}
