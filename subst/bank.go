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

package subst

import (
	"bytes"
	"encoding/hex"
	"io"
	"sort"

	"github.com/GitOfCharlie/WeTune-mirror-sub001/fragment"

	"golang.org/x/crypto/blake2b"
)

// Bank is a deduplicated collection of substitutions
// indexed by the kind of the root of their G0.
//
// A Bank is filled before it is used for rewriting;
// once filled it is never modified and may be shared
// by concurrent readers.
type Bank struct {
	list   []*Substitution
	byKey  map[string]*Substitution
	byKind map[fragment.Kind][]*Substitution
}

// NewBank returns a bank holding subs.
func NewBank(subs ...*Substitution) *Bank {
	b := &Bank{}
	for _, s := range subs {
		b.Add(s)
	}
	return b
}

// Add adds s to the bank unless a substitution with
// the same key is already present. It reports
// whether s was added.
func (b *Bank) Add(s *Substitution) bool {
	if b.byKey == nil {
		b.byKey = make(map[string]*Substitution)
		b.byKind = make(map[fragment.Kind][]*Substitution)
	}
	if _, ok := b.byKey[s.Key()]; ok {
		return false
	}
	b.byKey[s.Key()] = s
	b.list = append(b.list, s)
	k := s.G0.Root.Kind
	b.byKind[k] = append(b.byKind[k], s)
	return true
}

// Len returns the number of substitutions in b.
func (b *Bank) Len() int { return len(b.list) }

// All returns the substitutions of b in the order
// they were added. The result must not be modified.
func (b *Bank) All() []*Substitution { return b.list }

// Contains reports whether b has a substitution
// with the same key as s.
func (b *Bank) Contains(s *Substitution) bool {
	_, ok := b.byKey[s.Key()]
	return ok
}

// Lookup returns the substitution with the given key.
func (b *Bank) Lookup(key string) (*Substitution, bool) {
	s, ok := b.byKey[key]
	return s, ok
}

// ForKind returns the substitutions whose
// G0 is rooted at an operator of kind k.
func (b *Bank) ForKind(k fragment.Kind) []*Substitution { return b.byKind[k] }

// Sorted returns the substitutions of b ordered by key.
func (b *Bank) Sorted() []*Substitution {
	out := append([]*Substitution(nil), b.list...)
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Reduce returns a bank without redundant
// substitutions: identity rewrites, rewrites that
// bind two predicates of G1 to the same predicate,
// and substitutions whose flip is already kept.
// Substitutions are considered in key order.
func (b *Bank) Reduce() *Bank {
	out := &Bank{}
	for _, s := range b.Sorted() {
		if s.Identity() || s.AliasedPreds() {
			continue
		}
		if out.Contains(s.Flip()) {
			continue
		}
		out.Add(s)
	}
	return out
}

// WriteTo writes the bank in canonical
// order to w as a bank file.
func (b *Bank) WriteTo(w io.Writer) (int64, error) {
	cw := &countWriter{w: w}
	err := Write(cw, b.Sorted())
	return cw.n, err
}

type countWriter struct {
	w io.Writer
	n int64
}

func (c *countWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// ReadBank reads a bank file into a new bank. Like
// Read, it returns the valid records even when some
// records are invalid.
func ReadBank(r io.Reader) (*Bank, error) {
	subs, err := Read(r)
	return NewBank(subs...), err
}

// Digest returns the hex-encoded BLAKE2b-256
// hash of the canonical text of the bank.
func (b *Bank) Digest() string {
	var buf bytes.Buffer
	b.WriteTo(&buf)
	sum := blake2b.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:])
}
