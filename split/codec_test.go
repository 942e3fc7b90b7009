// Copyright 2023 Sneller, Inc.
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

package split_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/SnellerInc/partsplit/ion"
	"github.com/SnellerInc/partsplit/split"
)

func decodeBytes(t *testing.T, st *ion.Symtab, buf []byte) (split.Split, error) {
	d, _, err := ion.ReadDatum(st, buf)
	if err != nil {
		t.Fatal(err)
	}
	return split.Decode(d)
}

func TestDecodeUnknownKind(t *testing.T) {
	var st ion.Symtab
	var buf ion.Buffer
	buf.BeginList(-1)
	buf.WriteSymbol(st.Intern("no-such-connector"))
	buf.WriteNull()
	buf.EndList()
	_, err := decodeBytes(t, &st, buf.Bytes())
	if err == nil || !strings.Contains(err.Error(), "no-such-connector") {
		t.Fatalf("got %v", err)
	}
}

func TestDecodeShape(t *testing.T) {
	var st ion.Symtab
	kind := st.Intern("tpch")
	tcs := []struct {
		name  string
		build func(b *ion.Buffer)
	}{
		{"not-a-list", func(b *ion.Buffer) { b.WriteInt(1) }},
		{"empty", func(b *ion.Buffer) {
			b.BeginList(-1)
			b.EndList()
		}},
		{"kind-only", func(b *ion.Buffer) {
			b.BeginList(-1)
			b.WriteSymbol(kind)
			b.EndList()
		}},
		{"kind-is-string", func(b *ion.Buffer) {
			b.BeginList(-1)
			b.WriteString("tpch")
			b.WriteNull()
			b.EndList()
		}},
		{"three-items", func(b *ion.Buffer) {
			b.BeginList(-1)
			b.WriteSymbol(kind)
			b.WriteNull()
			b.WriteNull()
			b.EndList()
		}},
	}
	for i := range tcs {
		t.Run(tcs[i].name, func(t *testing.T) {
			var buf ion.Buffer
			tcs[i].build(&buf)
			if _, err := decodeBytes(t, &st, buf.Bytes()); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestConcurrentDecode(t *testing.T) {
	s := mksplit(t, "lineitem", 3, 7, "h1:1", "h2:2")
	var st ion.Symtab
	var buf ion.Buffer
	if err := split.Encode(s, &buf, &st); err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, _, err := ion.ReadDatum(&st, buf.Bytes())
			if err != nil {
				errs <- err
				return
			}
			out, err := split.Decode(d)
			if err != nil {
				errs <- err
				return
			}
			if c, ok := out.(split.Comparable); !ok || !c.Equal(s) || c.Hash() != s.Hash() {
				errs <- errNotEqual
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

type testError string

func (e testError) Error() string { return string(e) }

const errNotEqual = testError("decoded split is not equal to the original")
