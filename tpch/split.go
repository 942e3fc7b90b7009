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

package tpch

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/SnellerInc/partsplit/ion"
	"github.com/SnellerInc/partsplit/split"

	"github.com/dchest/siphash"
	"golang.org/x/exp/slices"
)

// Kind is the split kind registered
// with split.AddDecoder for TPC-H splits.
const Kind = "tpch"

const partitionPrefix = "tpch_part_"

// just two fixed random values
const (
	hashKey0 = 0x5d1ec810febed702
	hashKey1 = 0x40fd7fee17262f71
)

func init() {
	split.AddDecoder(Kind, func(d ion.Datum) (split.Split, error) {
		s, err := DecodeSplit(d)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

var (
	_ split.Comparable  = &Split{}
	_ split.Encoder     = &Split{}
	_ split.TableHandle = Handle{}
)

// Split is part PartNumber of TotalParts
// of a TPC-H table. TPC-H data is generated
// on the worker, so a Split is never split
// further and is always the last split of
// its partition.
//
// A Split is immutable once constructed.
type Split struct {
	handle    Handle
	part      int
	total     int
	partition string
	addrs     []split.HostAddress

	// canonical encoding of (handle, part, total);
	// addrs are not part of the key
	key []byte
}

// NewSplit constructs a split for part partNumber
// of totalParts of the table referenced by h.
// The addresses are copied; nil is equivalent
// to an empty list.
//
// NewSplit returns an error wrapping
// split.ErrInvalidSplit if h is nil, if
// the inequality 0 <= partNumber < totalParts
// does not hold, or if an address fails
// HostAddress.Validate.
func NewSplit(h *Handle, partNumber, totalParts int, addrs []split.HostAddress) (*Split, error) {
	switch {
	case h == nil:
		return nil, split.Invalid("tableHandle is nil")
	case partNumber < 0:
		return nil, split.Invalid("partNumber must be >= 0 (got %d)", partNumber)
	case totalParts < 1:
		return nil, split.Invalid("totalParts must be >= 1 (got %d)", totalParts)
	case totalParts <= partNumber:
		return nil, split.Invalid("totalParts must be > partNumber (%d <= %d)", totalParts, partNumber)
	case totalParts > math.MaxInt32:
		return nil, split.Invalid("totalParts %d does not fit in 32 bits", totalParts)
	}
	for i := range addrs {
		if err := addrs[i].Validate(); err != nil {
			return nil, split.Invalid("hostAddresses[%d]: %s", i, err)
		}
	}
	key, err := identity(h, partNumber, totalParts)
	if err != nil {
		return nil, fmt.Errorf("tpch.NewSplit: %w", err)
	}
	s := &Split{
		handle:    *h,
		part:      partNumber,
		total:     totalParts,
		partition: partitionPrefix + strconv.Itoa(partNumber),
		key:       key,
	}
	if addrs == nil {
		s.addrs = []split.HostAddress{}
	} else {
		s.addrs = slices.Clone(addrs)
	}
	return s, nil
}

// WholeTable returns the single split
// that covers all of the table referenced by h.
func WholeTable(h *Handle) (*Split, error) {
	return NewSplit(h, 0, 1, nil)
}

func identity(h *Handle, part, total int) ([]byte, error) {
	key, err := split.HandleKey(h)
	if err != nil {
		return nil, err
	}
	var tmp [2 * binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], uint64(part))
	n += binary.PutUvarint(tmp[n:], uint64(total))
	return append(key, tmp[:n]...), nil
}

// Handle returns the table handle of the split.
func (s *Split) Handle() Handle { return s.handle }

// PartNumber returns the zero-based part number.
func (s *Split) PartNumber() int { return s.part }

// TotalParts returns the number of parts
// that the table was divided into.
func (s *Split) TotalParts() int { return s.total }

// PartitionID implements split.Split.PartitionID.
func (s *Split) PartitionID() string { return s.partition }

// IsLastSplit implements split.Split.IsLastSplit.
func (s *Split) IsLastSplit() bool { return true }

// PartitionKeys implements split.Split.PartitionKeys.
// TPC-H tables have no partition keys.
func (s *Split) PartitionKeys() []split.PartitionKey { return nil }

// Addresses implements split.Split.Addresses.
// The returned slice is a copy.
func (s *Split) Addresses() []split.HostAddress { return slices.Clone(s.addrs) }

// RemotelyAccessible implements split.Split.RemotelyAccessible.
func (s *Split) RemotelyAccessible() bool { return false }

// Info implements split.Split.Info.
func (s *Split) Info() any { return s }

// Equal returns true if other is a *Split
// for the same table, part number, and total
// number of parts as s. Addresses are ignored.
func (s *Split) Equal(other split.Split) bool {
	o, ok := other.(*Split)
	return ok && o != nil && bytes.Equal(s.key, o.key)
}

// Hash returns a hash of the identity of s.
// Splits that are Equal have the same Hash.
func (s *Split) Hash() uint64 {
	return siphash.Hash(hashKey0, hashKey1, s.key)
}

func (s *Split) String() string {
	return fmt.Sprintf("Split{tableHandle=%s, partNumber=%d, totalParts=%d}",
		s.handle, s.part, s.total)
}

// Kind implements split.Encoder.Kind.
func (s *Split) Kind() string { return Kind }

// Encode implements split.Encoder.Encode.
// The partition ID is not encoded;
// it is recomputed by DecodeSplit.
func (s *Split) Encode(dst *ion.Buffer, st *ion.Symtab) error {
	dst.BeginStruct(-1)
	dst.BeginField(st.Intern("tableHandle"))
	if err := s.handle.Encode(dst, st); err != nil {
		return err
	}
	dst.BeginField(st.Intern("partNumber"))
	dst.WriteInt(int64(s.part))
	dst.BeginField(st.Intern("totalParts"))
	dst.WriteInt(int64(s.total))
	dst.BeginField(st.Intern("hostAddresses"))
	split.EncodeAddresses(dst, s.addrs)
	dst.EndStruct()
	return nil
}

// DecodeSplit decodes a split written by Split.Encode.
// The decoded fields are validated exactly as
// NewSplit validates its arguments, so a well-formed
// payload with out-of-range values yields
// split.ErrInvalidSplit.
func DecodeSplit(d ion.Datum) (*Split, error) {
	var (
		h           *Handle
		part, total int64
		addrs       []split.HostAddress
		seen        = make(map[string]bool, 4)
	)
	err := d.UnpackStruct(func(f ion.Field) error {
		switch f.Label {
		case "tableHandle", "partNumber", "totalParts", "hostAddresses":
		default:
			return fmt.Errorf("%w %q", errUnexpectedField, f.Label)
		}
		if f.IsNull() {
			// treated the same as a missing field
			return nil
		}
		seen[f.Label] = true
		var err error
		switch f.Label {
		case "tableHandle":
			var th Handle
			th, err = DecodeHandle(f.Datum)
			h = &th
		case "partNumber":
			part, err = f.Int()
		case "totalParts":
			total, err = f.Int()
		case "hostAddresses":
			addrs, err = split.DecodeAddresses(f.Datum)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("tpch.DecodeSplit: %w", err)
	}
	for _, name := range []string{"tableHandle", "partNumber", "totalParts", "hostAddresses"} {
		if !seen[name] {
			return nil, split.Invalid("field %s is missing", name)
		}
	}
	if part < math.MinInt32 || part > math.MaxInt32 {
		return nil, split.Invalid("partNumber %d does not fit in 32 bits", part)
	}
	if total < math.MinInt32 || total > math.MaxInt32 {
		return nil, split.Invalid("totalParts %d does not fit in 32 bits", total)
	}
	return NewSplit(h, int(part), int(total), addrs)
}
