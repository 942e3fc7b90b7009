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

package main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/SnellerInc/partsplit/metrics"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	text := `
schema: sf1
table: lineitem
parts: 4
peers:
  - 10.0.0.1:9000
  - 10.0.0.2:9000
compression: s2
`
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatal(err)
	}
	c := defaultConfig()
	if err := loadConfig(path, &c); err != nil {
		t.Fatal(err)
	}
	want := config{
		Schema:      "sf1",
		Table:       "lineitem",
		Parts:       4,
		Peers:       []string{"10.0.0.1:9000", "10.0.0.2:9000"},
		Compression: "s2",
	}
	if !reflect.DeepEqual(c, want) {
		t.Errorf("got %+v, want %+v", c, want)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("tabel: orders\n"), 0644); err != nil {
		t.Fatal(err)
	}
	c = defaultConfig()
	if err := loadConfig(bad, &c); err == nil {
		t.Error("expected an error for an unknown key")
	}
	if err := loadConfig(filepath.Join(dir, "missing.yaml"), &c); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestApplyFlags(t *testing.T) {
	fs := flag.CommandLine
	for _, kv := range [][2]string{
		{"table", "customer"},
		{"parts", "3"},
		{"peers", "a:1, b:2,,"},
	} {
		if err := fs.Set(kv[0], kv[1]); err != nil {
			t.Fatal(err)
		}
	}
	c := defaultConfig()
	c.Schema = "sf10"
	applyFlags(fs, &c)
	want := config{
		Schema:      "sf10",
		Table:       "customer",
		Parts:       3,
		Peers:       []string{"a:1", "b:2"},
		Compression: "zstd",
	}
	if !reflect.DeepEqual(c, want) {
		t.Errorf("got %+v, want %+v", c, want)
	}
}

func TestEnumPrint(t *testing.T) {
	c := defaultConfig()
	c.Parts = 3
	var out bytes.Buffer
	if err := enum(context.Background(), &c, &out); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines: %q", len(lines), out.String())
	}
	for i, line := range lines {
		want := "tpch_part_" + string(rune('0'+i)) + "\t"
		if !strings.HasPrefix(line, want) {
			t.Errorf("line %d: %q does not start with %q", i, line, want)
		}
		if !strings.Contains(line, "\tlocal\t[]") {
			t.Errorf("line %d: %q", i, line)
		}
	}

	c.Table = "nope"
	if err := enum(context.Background(), &c, &out); err == nil {
		t.Error("expected an error for an unknown table")
	}
}

func TestEnumRead(t *testing.T) {
	dir := t.TempDir()
	for _, algo := range []string{"zstd", "s2", "none"} {
		c := defaultConfig()
		c.Parts = 4
		c.Peers = []string{"10.0.0.1:9000"}
		c.Compression = algo
		c.Output = filepath.Join(dir, algo+".splits")
		var wrote bytes.Buffer
		if err := enum(context.Background(), &c, &wrote); err != nil {
			t.Fatalf("%s: %s", algo, err)
		}
		var got bytes.Buffer
		if err := read([]string{c.Output}, &got); err != nil {
			t.Fatalf("%s: %s", algo, err)
		}
		lines := strings.Split(strings.TrimSpace(got.String()), "\n")
		if len(lines) != 5 {
			t.Fatalf("%s: got %q", algo, got.String())
		}
		for _, line := range lines[:4] {
			if !strings.HasSuffix(line, "[10.0.0.1:9000]") {
				t.Errorf("%s: unexpected line %q", algo, line)
			}
		}
		// the trailing etag line matches what enum printed
		if lines[4] != strings.TrimSpace(wrote.String()) {
			t.Errorf("%s: etag line %q != %q", algo, lines[4], wrote.String())
		}
	}
	if err := read([]string{filepath.Join(dir, "missing")}, &bytes.Buffer{}); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestMetrics(t *testing.T) {
	stats = metrics.New("")
	defer func() { stats = nil }()

	dir := t.TempDir()
	c := defaultConfig()
	c.Parts = 2
	c.Output = filepath.Join(dir, "out.splits")
	if err := enum(context.Background(), &c, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	if err := read([]string{c.Output}, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	garbage := filepath.Join(dir, "garbage")
	if err := os.WriteFile(garbage, []byte("not a batch"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := read([]string{garbage}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected an error")
	}
	var buf bytes.Buffer
	if err := stats.WriteText(&buf); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`partsplit_splits_enumerated_total{connector="tpch",table="orders"} 2`,
		`partsplit_batches_written_total{compression="zstd"} 1`,
		`partsplit_batches_read_total{result="ok"} 1`,
		`partsplit_batches_read_total{result="error"} 1`,
	} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("metrics do not contain %q:\n%s", want, buf.String())
		}
	}
}

func TestEnumRemovesPartialOutput(t *testing.T) {
	c := defaultConfig()
	c.Compression = "lz4"
	c.Output = filepath.Join(t.TempDir(), "out.splits")
	if err := enum(context.Background(), &c, &bytes.Buffer{}); err == nil {
		t.Fatal("expected an error for an unknown compression")
	}
	if _, err := os.Stat(c.Output); !os.IsNotExist(err) {
		t.Errorf("output file left behind: %v", err)
	}
}
