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
	"context"
	"errors"
	"log"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/SnellerInc/partsplit/metrics"
	"github.com/SnellerInc/partsplit/split"
)

func TestSplitterWholeTable(t *testing.T) {
	for _, parts := range []int{-1, 0, 1} {
		var logbuf bytes.Buffer
		s := &Splitter{
			Parts:  parts,
			Peers:  hosts(t, "h1:8000", "h2:8000"),
			Logger: log.New(&logbuf, "", 0),
		}
		lst, err := s.Splits(context.Background(), orders(t))
		if err != nil {
			t.Fatal(err)
		}
		if len(lst) != 1 {
			t.Fatalf("Parts=%d: got %d splits", parts, len(lst))
		}
		sp := lst[0]
		if sp.PartNumber() != 0 || sp.TotalParts() != 1 || len(sp.Addresses()) != 0 {
			t.Errorf("Parts=%d: got %s with hosts %v", parts, sp, sp.Addresses())
		}
		if !strings.Contains(logbuf.String(), "tiny.orders") {
			t.Errorf("log output %q", logbuf.String())
		}
	}
}

func TestSplitterParts(t *testing.T) {
	peers := hosts(t, "h1:8000", "h2:8000", "h3:8000")
	s := &Splitter{Parts: 16, Peers: peers}
	lst, err := s.Splits(context.Background(), orders(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(lst) != 16 {
		t.Fatalf("got %d splits", len(lst))
	}
	var set split.Set
	for i, sp := range lst {
		if sp.PartNumber() != i || sp.TotalParts() != 16 {
			t.Errorf("split %d is %s", i, sp)
		}
		if !set.Add(sp) {
			t.Errorf("split %d is a duplicate", i)
		}
		addrs := sp.Addresses()
		if len(addrs) != 1 {
			t.Fatalf("split %d has hosts %v", i, addrs)
		}
		found := false
		for _, p := range peers {
			found = found || p == addrs[0]
		}
		if !found {
			t.Errorf("split %d host %v is not a peer", i, addrs[0])
		}
	}

	// placement is deterministic
	again, err := s.Splits(context.Background(), orders(t))
	if err != nil {
		t.Fatal(err)
	}
	for i := range lst {
		if !reflect.DeepEqual(lst[i].Addresses(), again[i].Addresses()) {
			t.Errorf("split %d placed on %v then %v", i, lst[i].Addresses(), again[i].Addresses())
		}
	}
}

func TestSplitterNoPeers(t *testing.T) {
	s := &Splitter{Parts: 4}
	lst, err := s.Splits(context.Background(), orders(t))
	if err != nil {
		t.Fatal(err)
	}
	for _, sp := range lst {
		if len(sp.Addresses()) != 0 {
			t.Errorf("%s has hosts %v", sp, sp.Addresses())
		}
	}
}

func TestSplitterErrors(t *testing.T) {
	s := &Splitter{Parts: 4}
	if _, err := s.Splits(context.Background(), nil); !errors.Is(err, split.ErrInvalidSplit) {
		t.Errorf("nil handle: %v", err)
	}
	for _, parts := range []int{math.MaxInt32 + 1, 3e9, 1 << 62} {
		big := &Splitter{Parts: parts}
		lst, err := big.Splits(context.Background(), orders(t))
		if !errors.Is(err, split.ErrInvalidSplit) {
			t.Errorf("Parts=%d: got %v, want ErrInvalidSplit", parts, err)
		}
		if lst != nil {
			t.Errorf("Parts=%d: got %d splits along with an error", parts, len(lst))
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	lst, err := s.Splits(ctx, orders(t))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled context: %v", err)
	}
	if lst != nil {
		t.Errorf("got %d splits along with an error", len(lst))
	}
}

func TestEncoders(t *testing.T) {
	s := &Splitter{Parts: 3}
	lst, err := s.Splits(context.Background(), orders(t))
	if err != nil {
		t.Fatal(err)
	}
	enc := Encoders(lst)
	if len(enc) != len(lst) {
		t.Fatalf("got %d encoders", len(enc))
	}
	for i := range enc {
		if enc[i].Kind() != Kind || enc[i].(*Split) != lst[i] {
			t.Errorf("encoder %d is %v", i, enc[i])
		}
	}
}

func TestSplitterMetrics(t *testing.T) {
	m := metrics.New("")
	s := &Splitter{Parts: 5, Metrics: m}
	if _, err := s.Splits(context.Background(), orders(t)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Splits(context.Background(), nil); err == nil {
		t.Fatal("expected an error")
	}
	var buf bytes.Buffer
	if err := m.WriteText(&buf); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`partsplit_splits_enumerated_total{connector="tpch",table="orders"} 5`,
		`partsplit_invalid_splits_total{connector="tpch",op="construct"} 1`,
	} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("metrics do not contain %q:\n%s", want, buf.String())
		}
	}
}
