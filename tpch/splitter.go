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
	"context"
	"errors"
	"log"
	"math"
	"strconv"
	"time"

	"github.com/SnellerInc/partsplit/metrics"
	"github.com/SnellerInc/partsplit/split"

	"github.com/dchest/siphash"
)

// upper bound on the number of result slots
// allocated before any split has been built
const maxPrealloc = 4096

// Splitter enumerates the splits of a TPC-H table.
type Splitter struct {
	// Parts is the number of parts to divide
	// each table into. Values less than two
	// produce a single whole-table split.
	Parts int
	// Peers, if non-empty, is the set of workers
	// that splits are assigned to. Each part
	// prefers exactly one peer.
	Peers []split.HostAddress
	// Logger, if non-nil, receives one line
	// per enumerated table.
	Logger *log.Logger
	// Metrics, if non-nil, counts enumerated
	// and rejected splits.
	Metrics *metrics.Metrics
}

func (s *Splitter) logf(f string, args ...any) {
	if s.Logger != nil {
		s.Logger.Printf(f, args...)
	}
}

// Splits returns the splits for the table referenced by h,
// ordered by part number. If any split cannot be
// constructed, Splits returns the error and no splits.
func (s *Splitter) Splits(ctx context.Context, h *Handle) ([]*Split, error) {
	start := time.Now()
	lst, err := s.enumerate(ctx, h)
	if err != nil {
		if errors.Is(err, split.ErrInvalidSplit) {
			s.Metrics.Invalid(Kind, "construct")
		}
		return nil, err
	}
	s.Metrics.Enumerated(Kind, h.Table, len(lst), time.Since(start))
	return lst, nil
}

func (s *Splitter) enumerate(ctx context.Context, h *Handle) ([]*Split, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Parts <= 1 {
		whole, err := WholeTable(h)
		if err != nil {
			return nil, err
		}
		s.logf("tpch: %s: whole-table split", h)
		return []*Split{whole}, nil
	}
	if s.Parts > math.MaxInt32 {
		return nil, split.Invalid("totalParts %d does not fit in 32 bits", s.Parts)
	}
	capacity := s.Parts
	if capacity > maxPrealloc {
		capacity = maxPrealloc
	}
	out := make([]*Split, 0, capacity)
	for k := 0; k < s.Parts; k++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sp, err := NewSplit(h, k, s.Parts, s.place(h, k))
		if err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	s.logf("tpch: %s: %d splits over %d peers", h, len(out), len(s.Peers))
	return out, nil
}

// place picks the preferred peer for one part
// by hashing the table name and part number
func (s *Splitter) place(h *Handle, part int) []split.HostAddress {
	if len(s.Peers) == 0 || h == nil {
		return nil
	}
	buf := make([]byte, 0, len(h.Schema)+len(h.Table)+12)
	buf = append(buf, h.Schema...)
	buf = append(buf, '.')
	buf = append(buf, h.Table...)
	buf = append(buf, '/')
	buf = strconv.AppendInt(buf, int64(part), 10)
	i := siphash.Hash(hashKey0, hashKey1, buf) % uint64(len(s.Peers))
	return []split.HostAddress{s.Peers[i]}
}

// Encoders converts lst for use with
// split.EncodeBatch and split.WriteBatch.
func Encoders(lst []*Split) []split.Encoder {
	out := make([]split.Encoder, len(lst))
	for i := range lst {
		out[i] = lst[i]
	}
	return out
}
