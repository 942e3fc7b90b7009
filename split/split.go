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

// Package split defines the contract between a
// connector that breaks a table scan into
// independent pieces of work and the scheduler
// that places those pieces on workers.
//
// A Split is an immutable value. Connectors
// construct splits through validating constructors
// that fail with ErrInvalidSplit; the scheduler
// only ever programs against the Split interface,
// and ships splits to workers with Encode and Decode.
package split

import (
	"github.com/SnellerInc/partsplit/ion"
)

// Split is one schedulable unit of a table scan.
//
// Implementations must be immutable and
// safe to share between goroutines.
type Split interface {
	// PartitionID is a stable, human-readable
	// identifier that is unique among the splits
	// of one table within a single plan.
	PartitionID() string

	// IsLastSplit returns true if no further
	// splits will be produced for the partition
	// group that this split belongs to.
	IsLastSplit() bool

	// PartitionKeys returns the predicates that
	// every row produced by this split satisfies.
	// It is empty when the connector has no notion
	// of partition keys.
	PartitionKeys() []PartitionKey

	// Addresses returns the hosts from which
	// this split can be read most efficiently,
	// in order of preference. An empty list
	// means the split can be scheduled anywhere.
	Addresses() []HostAddress

	// RemotelyAccessible returns false if the
	// split must be executed on one of Addresses.
	RemotelyAccessible() bool

	// Info returns a diagnostic representation
	// of the split for tracing. It is never used
	// to make scheduling decisions.
	Info() any
}

// Comparable is implemented by splits that
// can be compared by their logical identity.
// Two splits that are Equal must have the same Hash.
type Comparable interface {
	Split
	Equal(Split) bool
	Hash() uint64
}

// Encoder is implemented by splits that can
// be serialized with Encode. Kind names the
// DecodeFn registered with AddDecoder that
// can reconstruct the split.
type Encoder interface {
	Split
	Kind() string
	Encode(dst *ion.Buffer, st *ion.Symtab) error
}

// TableHandle is an opaque reference to
// the table that a split reads from.
// The split package never inspects a
// TableHandle; it only encodes it.
type TableHandle interface {
	// Encode should serialize the table handle
	// so that it can be decoded by the connector
	// that produced it.
	Encode(dst *ion.Buffer, st *ion.Symtab) error
}

// HandleKey returns a canonical encoding of h
// that is equal for handles that encode identically.
// It is suitable for use as part of an identity key.
func HandleKey(h TableHandle) ([]byte, error) {
	var st ion.Symtab
	var body, out ion.Buffer
	if err := h.Encode(&body, &st); err != nil {
		return nil, err
	}
	st.Marshal(&out, false)
	return append(out.Bytes(), body.Bytes()...), nil
}

// PartitionKey is a column predicate of
// the form Name = Value that holds for
// every row in a split.
type PartitionKey struct {
	Name  string
	Type  string
	Value string
}

func (p PartitionKey) String() string {
	return p.Name + "=" + p.Value
}

// Encode encodes p as an ion structure.
func (p PartitionKey) Encode(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginStruct(-1)
	dst.BeginField(st.Intern("name"))
	dst.WriteString(p.Name)
	dst.BeginField(st.Intern("type"))
	dst.WriteString(p.Type)
	dst.BeginField(st.Intern("value"))
	dst.WriteString(p.Value)
	dst.EndStruct()
}

// DecodePartitionKey decodes a PartitionKey
// produced by PartitionKey.Encode.
func DecodePartitionKey(d ion.Datum) (PartitionKey, error) {
	var p PartitionKey
	err := d.UnpackStruct(func(f ion.Field) error {
		var err error
		switch f.Label {
		case "name":
			p.Name, err = f.String()
		case "type":
			p.Type, err = f.String()
		case "value":
			p.Value, err = f.String()
		default:
			err = errUnexpectedField
		}
		return err
	})
	return p, err
}
