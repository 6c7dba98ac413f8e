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

package compr

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestByExtension(t *testing.T) {
	run := []struct {
		file, want string
	}{
		{"bank.txt", ""},
		{"bank", ""},
		{"bank.txt.zst", "zstd"},
		{"dir.zst/bank.zstd", "zstd"},
		{"bank.s2", "s2"},
		{"bank.gz", ""},
	}
	for i := range run {
		if got := ByExtension(run[i].file); got != run[i].want {
			t.Errorf("case %d: ByExtension(%q) = %q", i, run[i].file, got)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	text := strings.Repeat("(j a0 a1 (i t0) (i t1)), (j a2 a3 (i t2) (i t3)) -> ()\n====\n", 200)
	for i, name := range []string{"", "zstd", "zstd-better", "s2"} {
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewWriter(&buf, name)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := io.WriteString(w, text); err != nil {
				t.Fatal(err)
			}
			if err := w.Close(); err != nil {
				t.Fatal(err)
			}
			if name != "" && buf.Len() >= len(text) {
				t.Errorf("%s: %d bytes compressed to %d", name, len(text), buf.Len())
			}
			r, err := NewReader(&buf, name)
			if err != nil {
				t.Fatal(err)
			}
			defer r.Close()
			got, err := io.ReadAll(r)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != text {
				t.Error("mismatch")
			}
		})
	}
}

func TestUnknown(t *testing.T) {
	if _, err := NewWriter(io.Discard, "lz4"); err == nil {
		t.Error("expected an error for an unknown writer")
	}
	if _, err := NewReader(strings.NewReader(""), "lz4"); err == nil {
		t.Error("expected an error for an unknown reader")
	}
}
