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

// Package ion implements the subset of the
// Amazon Ion binary format used to move split
// descriptors between processes.
//
// Values are written with a Buffer and a Symtab,
// and read back as Datum values that are unpacked
// field-by-field by the caller.
package ion

import (
	"errors"
	"math/bits"
)

// Type is the type of an ion value,
// as encoded in the high nibble of
// its type descriptor byte.
type Type byte

const (
	NullType Type = iota
	BoolType
	UintType // positive integer
	IntType  // negative integer
	FloatType
	DecimalType
	TimestampType
	SymbolType
	StringType
	ClobType
	BlobType
	ListType
	SexpType
	StructType
	AnnotationType
	ReservedType
)

func (t Type) String() string {
	switch t {
	case NullType:
		return "null"
	case BoolType:
		return "bool"
	case UintType, IntType:
		return "int"
	case FloatType:
		return "float"
	case DecimalType:
		return "decimal"
	case TimestampType:
		return "timestamp"
	case SymbolType:
		return "symbol"
	case StringType:
		return "string"
	case ClobType:
		return "clob"
	case BlobType:
		return "blob"
	case ListType:
		return "list"
	case SexpType:
		return "sexp"
	case StructType:
		return "struct"
	case AnnotationType:
		return "annotation"
	default:
		return "reserved"
	}
}

// Symbol is an interned ion symbol ID.
type Symbol uint

// bvm is the ion 1.0 binary version marker
var bvm = [4]byte{0xe0, 0x01, 0x00, 0xea}

// IsBVM returns whether buf begins with
// an ion binary version marker.
func IsBVM(buf []byte) bool {
	return len(buf) >= 4 && buf[0] == bvm[0] && buf[1] == bvm[1] &&
		buf[2] == bvm[2] && buf[3] == bvm[3]
}

var (
	errTruncated = errors.New("ion: truncated value")
	errBadLength = errors.New("ion: invalid length encoding")
)

// uvsize returns the encoded size
// of value as a VarUInt
func uvsize(value uint) int {
	// bits.Len(0) is 0, but zero
	// still takes one byte
	return (bits.Len(value|1) + 6) / 7
}

// putuv writes v as a VarUInt into dst,
// which must be exactly uvsize(v) bytes long
func putuv(dst []byte, v uint) {
	for i := len(dst) - 1; i >= 0; i-- {
		dst[i] = byte(v & 0x7f)
		v >>= 7
	}
	dst[len(dst)-1] |= 0x80
}

// readuv reads a VarUInt from the front of buf
func readuv(buf []byte) (uint, []byte, error) {
	out := uint(0)
	for i := range buf {
		if i >= 9 {
			return 0, buf, errBadLength
		}
		out = (out << 7) | uint(buf[i]&0x7f)
		if buf[i]&0x80 != 0 {
			return out, buf[i+1:], nil
		}
	}
	return 0, buf, errTruncated
}
