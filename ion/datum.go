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

package ion

import (
	"errors"
	"fmt"
	"math"
)

// Datum is a single encoded ion value
// along with the symbol table required
// to resolve the symbols within it.
//
// The zero value of Datum is an ion null.
// A Datum aliases the buffer it was read
// from; use Clone to detach it.
type Datum struct {
	st  *Symtab
	raw []byte
}

// Field is a structure field
// produced by Datum.UnpackStruct.
type Field struct {
	Label string
	Datum
}

var (
	errBVM      = errors.New("ion: unexpected BVM in value position")
	errOverflow = errors.New("ion: integer overflows int64")
)

// parse splits buf into the type descriptor
// of its first value, that value's body, and
// the bytes following the value
func parse(buf []byte) (byte, []byte, []byte, error) {
	if len(buf) == 0 {
		return 0, nil, nil, errTruncated
	}
	desc := buf[0]
	t, l := Type(desc>>4), desc&0xf
	buf = buf[1:]
	if l == 0xf {
		return desc, nil, buf, nil
	}
	switch t {
	case BoolType:
		if l > 1 {
			return 0, nil, nil, fmt.Errorf("ion: invalid bool descriptor %#x", desc)
		}
		return desc, nil, buf, nil
	case AnnotationType:
		if l == 0 {
			return 0, nil, nil, errBVM
		}
	case ReservedType:
		return 0, nil, nil, fmt.Errorf("ion: reserved type descriptor %#x", desc)
	}
	size := uint(l)
	if l == 0xe || (t == StructType && l == 1) {
		var err error
		size, buf, err = readuv(buf)
		if err != nil {
			return 0, nil, nil, err
		}
	}
	if uint(len(buf)) < size {
		return 0, nil, nil, errTruncated
	}
	return desc, buf[:size], buf[size:], nil
}

// ReadDatum reads the next value from buf
// and returns it along with the remaining bytes.
// Symbols are resolved against st, which may
// be nil if the value only uses system symbols.
func ReadDatum(st *Symtab, buf []byte) (Datum, []byte, error) {
	if IsBVM(buf) {
		return Datum{}, buf, errBVM
	}
	_, _, rest, err := parse(buf)
	if err != nil {
		return Datum{}, buf, err
	}
	n := len(buf) - len(rest)
	return Datum{st: st, raw: buf[:n:n]}, rest, nil
}

// Type returns the type of d.
func (d Datum) Type() Type {
	if len(d.raw) == 0 {
		return NullType
	}
	return Type(d.raw[0] >> 4)
}

// IsNull returns true if d is
// an untyped or a typed null.
func (d Datum) IsNull() bool {
	return len(d.raw) == 0 || d.raw[0]&0xf == 0xf
}

// Clone returns a copy of d that
// does not alias the original buffer.
func (d Datum) Clone() Datum {
	return Datum{st: d.st, raw: append([]byte(nil), d.raw...)}
}

func (d Datum) bad(want string) error {
	if d.IsNull() {
		return fmt.Errorf("ion: expected %s, found null", want)
	}
	return fmt.Errorf("ion: expected %s, found %s", want, d.Type())
}

func (d Datum) body() []byte {
	_, body, _, _ := parse(d.raw)
	return body
}

func (d Datum) magnitude() (uint64, error) {
	body := d.body()
	if len(body) > 8 {
		return 0, errOverflow
	}
	mag := uint64(0)
	for _, b := range body {
		mag = (mag << 8) | uint64(b)
	}
	return mag, nil
}

// Bool returns the value of a bool datum.
func (d Datum) Bool() (bool, error) {
	if d.Type() != BoolType || d.IsNull() {
		return false, d.bad("bool")
	}
	return d.raw[0]&0xf == 1, nil
}

// Int returns the value of an integer datum.
func (d Datum) Int() (int64, error) {
	t := d.Type()
	if (t != UintType && t != IntType) || d.IsNull() {
		return 0, d.bad("int")
	}
	mag, err := d.magnitude()
	if err != nil {
		return 0, err
	}
	if t == UintType {
		if mag > math.MaxInt64 {
			return 0, errOverflow
		}
		return int64(mag), nil
	}
	switch {
	case mag == 0:
		return 0, errors.New("ion: invalid negative zero")
	case mag > 1<<63:
		return 0, errOverflow
	}
	return -int64(mag), nil
}

func (d Datum) symbolID() (Symbol, error) {
	if d.Type() != SymbolType || d.IsNull() {
		return 0, d.bad("symbol")
	}
	mag, err := d.magnitude()
	return Symbol(mag), err
}

// Symbol returns the text of a symbol datum.
func (d Datum) Symbol() (string, error) {
	id, err := d.symbolID()
	if err != nil {
		return "", err
	}
	str, ok := d.st.Lookup(id)
	if !ok {
		return "", fmt.Errorf("ion: symbol %d not in symbol table", id)
	}
	return str, nil
}

// String returns the value of a string datum.
func (d Datum) String() (string, error) {
	if d.Type() != StringType || d.IsNull() {
		return "", d.bad("string")
	}
	return string(d.body()), nil
}

// UnpackList calls fn for each item in a list datum.
func (d Datum) UnpackList(fn func(Datum) error) error {
	if d.Type() != ListType || d.IsNull() {
		return d.bad("list")
	}
	body := d.body()
	for len(body) > 0 {
		item, rest, err := ReadDatum(d.st, body)
		if err != nil {
			return err
		}
		if err := fn(item); err != nil {
			return err
		}
		body = rest
	}
	return nil
}

func (d Datum) unpackStruct(fn func(Symbol, Datum) error) error {
	if d.Type() != StructType || d.IsNull() {
		return d.bad("struct")
	}
	body := d.body()
	for len(body) > 0 {
		sym, rest, err := readuv(body)
		if err != nil {
			return err
		}
		val, rest, err := ReadDatum(d.st, rest)
		if err != nil {
			return err
		}
		if err := fn(Symbol(sym), val); err != nil {
			return err
		}
		body = rest
	}
	return nil
}

// UnpackStruct calls fn for each field in a struct datum.
func (d Datum) UnpackStruct(fn func(Field) error) error {
	return d.unpackStruct(func(sym Symbol, val Datum) error {
		label, ok := d.st.Lookup(sym)
		if !ok {
			return fmt.Errorf("ion: symbol %d not in symbol table", sym)
		}
		return fn(Field{Label: label, Datum: val})
	})
}

// annotation returns the labels and
// the wrapped value of an annotation datum
func (d Datum) annotation() ([]Symbol, Datum, error) {
	if d.Type() != AnnotationType || d.IsNull() {
		return nil, Datum{}, d.bad("annotation")
	}
	body := d.body()
	size, body, err := readuv(body)
	if err != nil {
		return nil, Datum{}, err
	}
	if uint(len(body)) < size {
		return nil, Datum{}, errTruncated
	}
	labels := body[:size]
	var out []Symbol
	for len(labels) > 0 {
		var sym uint
		sym, labels, err = readuv(labels)
		if err != nil {
			return nil, Datum{}, err
		}
		out = append(out, Symbol(sym))
	}
	val, _, err := ReadDatum(d.st, body[size:])
	return out, val, err
}
