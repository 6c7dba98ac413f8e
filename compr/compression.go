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

// Package compr wraps third-party compression
// libraries behind streams selected by name.
package compr

import (
	"fmt"
	"io"
	"path"
	"runtime"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
)

// ByExtension returns the name of the algorithm
// implied by the extension of file, or "" for
// files that are not compressed.
func ByExtension(file string) string {
	switch path.Ext(file) {
	case ".zst", ".zstd":
		return "zstd"
	case ".s2":
		return "s2"
	default:
		return ""
	}
}

// NewWriter returns a writer that compresses into w
// with the named algorithm: "zstd", "zstd-better",
// "s2" or "" for none. Close flushes the stream but
// does not close w.
func NewWriter(w io.Writer, name string) (io.WriteCloser, error) {
	switch name {
	case "":
		return nopCloser{w}, nil
	case "zstd":
		return zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
	case "zstd-better":
		return zstd.NewWriter(w,
			zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
			zstd.WithEncoderConcurrency(1))
	case "s2":
		return s2.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("compr: unknown algorithm %q", name)
	}
}

// NewReader returns a reader that decompresses r
// with the named algorithm. The "zstd" reader also
// reads streams written by "zstd-better".
func NewReader(r io.Reader, name string) (io.ReadCloser, error) {
	switch name {
	case "":
		return io.NopCloser(r), nil
	case "zstd", "zstd-better":
		// by default, concurrency is set to min(4, GOMAXPROCS);
		// we'd like it to *always* be GOMAXPROCS
		d, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(runtime.GOMAXPROCS(0)))
		if err != nil {
			return nil, err
		}
		return zstdReader{d}, nil
	case "s2":
		return io.NopCloser(s2.NewReader(r)), nil
	default:
		return nil, fmt.Errorf("compr: unknown algorithm %q", name)
	}
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// zstdReader adapts the Close method
// of *zstd.Decoder to io.Closer
type zstdReader struct {
	*zstd.Decoder
}

func (z zstdReader) Close() error {
	z.Decoder.Close()
	return nil
}
