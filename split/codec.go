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

package split

import (
	"fmt"
	"sync"

	"github.com/SnellerInc/partsplit/ion"
)

// DecodeFn reconstructs a Split from the
// body written by Encoder.Encode.
//
// A DecodeFn must be safe to call
// from multiple goroutines simultaneously.
type DecodeFn func(ion.Datum) (Split, error)

var (
	decLock  sync.Mutex
	decoders map[string]DecodeFn
)

// AddDecoder registers the decoding function
// for splits whose Encoder.Kind is kind.
// Connectors typically call AddDecoder from init.
func AddDecoder(kind string, fn DecodeFn) {
	decLock.Lock()
	defer decLock.Unlock()
	if decoders == nil {
		decoders = make(map[string]DecodeFn)
	}
	decoders[kind] = fn
}

func getDecoder(kind string) DecodeFn {
	decLock.Lock()
	defer decLock.Unlock()
	return decoders[kind]
}

// Encode writes s into dst as the two-element
// list [kind, body] so that Decode can select
// the matching DecodeFn. If Encode returns an
// error, the contents of dst are unspecified.
func Encode(s Encoder, dst *ion.Buffer, st *ion.Symtab) error {
	dst.BeginList(-1)
	dst.WriteSymbol(st.Intern(s.Kind()))
	if err := s.Encode(dst, st); err != nil {
		return fmt.Errorf("split.Encode: %s: %w", s.Kind(), err)
	}
	dst.EndList()
	return nil
}

// Decode decodes a split written by Encode.
//
// Errors from the registered DecodeFn are
// returned as-is, so a payload that violates
// a split's invariants yields an error for
// which errors.Is(err, ErrInvalidSplit) holds.
func Decode(d ion.Datum) (Split, error) {
	var kind string
	var body ion.Datum
	n := 0
	err := d.UnpackList(func(item ion.Datum) error {
		var err error
		switch n {
		case 0:
			kind, err = item.Symbol()
		case 1:
			body = item
		default:
			err = fmt.Errorf("unexpected item #%d", n)
		}
		n++
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("split.Decode: %w", err)
	}
	if n != 2 {
		return nil, fmt.Errorf("split.Decode: expected [kind, body], found %d items", n)
	}
	fn := getDecoder(kind)
	if fn == nil {
		return nil, fmt.Errorf("split.Decode: no decoder for kind %q", kind)
	}
	return fn(body)
}
