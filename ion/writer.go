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
	"io"
	"math/bits"
)

// Buffer buffers ion objects.
//
// Containers are opened with Begin* and closed
// with the matching End* call; the length prefix
// of each container is patched in when it is closed.
//
// The contents of Buffer can be
// inspected directly with Buffer.Bytes()
// or written to an io.Writer with
// Buffer.WriteTo.
type Buffer struct {
	buf  []byte
	open []int // offsets of open container descriptors
}

// Bytes returns the bytes written to the buffer.
func (b *Buffer) Bytes() []byte { return b.buf }

// Size returns the number of bytes written to the buffer.
func (b *Buffer) Size() int { return len(b.buf) }

// Reset discards the contents of the buffer.
func (b *Buffer) Reset() {
	b.buf = b.buf[:0]
	b.open = b.open[:0]
}

// Set sets the buffer used by 'b'
// and resets the state of the buffer.
// Subsequent calls to Write* functions
// on 'b' will append to the given buffer.
func (b *Buffer) Set(p []byte) {
	b.buf = p
	b.open = b.open[:0]
}

// WriteTo implements io.WriterTo.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.buf)
	return int64(n), err
}

func (b *Buffer) begin(tag Type) {
	b.open = append(b.open, len(b.buf))
	b.buf = append(b.buf, byte(tag<<4))
}

func (b *Buffer) end(tag Type, fn string) {
	n := len(b.open)
	if n == 0 {
		panic("ion.Buffer." + fn + "() without matching Begin")
	}
	off := b.open[n-1]
	if Type(b.buf[off]>>4) != tag {
		panic("ion.Buffer." + fn + "() called when current segment is a " + Type(b.buf[off]>>4).String())
	}
	b.open = b.open[:n-1]
	size := len(b.buf) - off - 1
	if size < 14 {
		b.buf[off] |= byte(size)
		return
	}
	// shift the body right to make
	// room for the VarUInt length
	ext := uvsize(uint(size))
	for i := 0; i < ext; i++ {
		b.buf = append(b.buf, 0)
	}
	copy(b.buf[off+1+ext:], b.buf[off+1:off+1+size])
	b.buf[off] |= 0xe
	putuv(b.buf[off+1:off+1+ext], uint(size))
}

// BeginStruct begins a structure.
// Fields of the structure should
// be written with paired calls
// to BeginField and one of the Write* methods,
// followed by Buffer.EndStruct.
//
// The hint is currently unused.
func (b *Buffer) BeginStruct(hint int) { b.begin(StructType) }

// EndStruct ends a structure.
//
// If EndStruct is not paired with a
// corresponding BeginStruct call, it
// will panic.
func (b *Buffer) EndStruct() { b.end(StructType, "EndStruct") }

// BeginList begins a list object.
// Subsequent calls to the Buffer.Write*
// methods will write list elements until
// Buffer.EndList is called.
func (b *Buffer) BeginList(hint int) { b.begin(ListType) }

// EndList ends a list object.
func (b *Buffer) EndList() { b.end(ListType, "EndList") }

// BeginAnnotation begins an annotation wrapper
// with the given labels. Exactly one value
// should be written before EndAnnotation.
func (b *Buffer) BeginAnnotation(labels ...Symbol) {
	b.begin(AnnotationType)
	size := 0
	for _, l := range labels {
		size += uvsize(uint(l))
	}
	b.putuv(uint(size))
	for _, l := range labels {
		b.putuv(uint(l))
	}
}

// EndAnnotation ends an annotation wrapper.
func (b *Buffer) EndAnnotation() { b.end(AnnotationType, "EndAnnotation") }

// BeginField begins a field of a structure.
func (b *Buffer) BeginField(sym Symbol) { b.putuv(uint(sym)) }

func (b *Buffer) putuv(v uint) {
	off := len(b.buf)
	for i := uvsize(v); i > 0; i-- {
		b.buf = append(b.buf, 0)
	}
	putuv(b.buf[off:], v)
}

// WriteNull writes an untyped ion NULL.
func (b *Buffer) WriteNull() { b.buf = append(b.buf, 0x0f) }

// WriteBool writes a bool.
func (b *Buffer) WriteBool(v bool) {
	if v {
		b.buf = append(b.buf, 0x11)
	} else {
		b.buf = append(b.buf, 0x10)
	}
}

// WriteInt writes a signed integer.
func (b *Buffer) WriteInt(i int64) {
	if i < 0 {
		// works for math.MinInt64 as well,
		// since the magnitude is unsigned
		b.writeint(uint64(-i), IntType)
		return
	}
	b.writeint(uint64(i), UintType)
}

// WriteUint writes an unsigned integer.
func (b *Buffer) WriteUint(u uint64) { b.writeint(u, UintType) }

// WriteSymbol writes a symbol ID.
func (b *Buffer) WriteSymbol(s Symbol) { b.writeint(uint64(s), SymbolType) }

func (b *Buffer) writeint(mag uint64, t Type) {
	size := (bits.Len64(mag) + 7) >> 3
	b.buf = append(b.buf, byte(t<<4)|byte(size))
	for size > 0 {
		size--
		b.buf = append(b.buf, byte(mag>>(size*8)))
	}
}

// WriteString writes a UTF-8 string.
func (b *Buffer) WriteString(s string) {
	if len(s) < 14 {
		b.buf = append(b.buf, byte(StringType<<4)|byte(len(s)))
	} else {
		b.buf = append(b.buf, byte(StringType<<4)|0xe)
		b.putuv(uint(len(s)))
	}
	b.buf = append(b.buf, s...)
}
