// Copyright (C) 2023 Sneller, Inc.
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
	"testing"
)

func TestRoundTrip(t *testing.T) {
	for _, name := range []string{"zstd", "s2"} {
		t.Run(name, func(t *testing.T) {
			comp := Compression(name)
			if comp == nil {
				t.Fatalf("no compressor for %s", name)
			} else if n := comp.Name(); n != name {
				t.Fatalf("bad compressor name %q", n)
			}
			dec := Decompression(name)
			if dec == nil {
				t.Fatalf("no decompressor for %s", name)
			} else if n := dec.Name(); n != name {
				t.Fatalf("bad decompressor name %q", n)
			}
			ctl := bytes.Repeat([]byte("tpch_part_"), 1000)
			prefix := []byte("hdr")
			cmp := comp.Compress(ctl, append([]byte(nil), prefix...))
			if !bytes.HasPrefix(cmp, prefix) {
				t.Fatal("Compress did not append to dst")
			}
			dst := make([]byte, len(ctl))
			if err := dec.Decompress(cmp[len(prefix):], dst); err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(ctl, dst) {
				t.Error("mismatch")
			}
			// wrong output size is an error
			short := make([]byte, len(ctl)-1)
			if err := dec.Decompress(cmp[len(prefix):], short); err == nil {
				t.Error("expected an error decompressing into a short buffer")
			}
		})
	}
}

func TestUnknown(t *testing.T) {
	if c := Compression("lz4"); c != nil {
		t.Errorf("Compression(lz4) = %T", c)
	}
	if d := Decompression(""); d != nil {
		t.Errorf("Decompression(\"\") = %T", d)
	}
}
