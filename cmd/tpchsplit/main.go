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

// Command tpchsplit enumerates the splits of a
// TPC-H table and reads back batches of splits.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/SnellerInc/partsplit/metrics"
	"github.com/SnellerInc/partsplit/split"
	"github.com/SnellerInc/partsplit/tpch"

	"github.com/google/uuid"
)

var (
	dashc        string
	dashh        bool
	dashv        bool
	dasho        string
	dashschema   string
	dashtable    string
	dashparts    int
	dashpeers    string
	dashcompress string
	dashmetrics  bool
)

func init() {
	flag.StringVar(&dashc, "c", "", "YAML configuration file")
	flag.BoolVar(&dashh, "h", false, "show usage help")
	flag.BoolVar(&dashv, "v", false, "verbose")
	flag.StringVar(&dasho, "o", "", "output batch file for enum (default: print splits)")
	flag.StringVar(&dashschema, "schema", "", "TPC-H schema (tiny, sf1, ...)")
	flag.StringVar(&dashtable, "table", "", "TPC-H table")
	flag.IntVar(&dashparts, "parts", 0, "number of parts per table")
	flag.StringVar(&dashpeers, "peers", "", "comma-separated list of worker host:port addresses")
	flag.StringVar(&dashcompress, "compress", "", "batch compression (zstd, s2, none)")
	flag.BoolVar(&dashmetrics, "metrics", false, "print metrics to stderr on exit")
}

func exitf(f string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, f, args...)
	os.Exit(1)
}

var logger = log.New(io.Discard, "", log.LstdFlags)

// stats is nil unless -metrics is given
var stats *metrics.Metrics

// applyFlags copies explicitly-set flags over c
func applyFlags(fs *flag.FlagSet, c *config) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "o":
			c.Output = dasho
		case "schema":
			c.Schema = dashschema
		case "table":
			c.Table = dashtable
		case "parts":
			c.Parts = dashparts
		case "peers":
			c.Peers = splitList(dashpeers)
		case "compress":
			c.Compression = dashcompress
		}
	})
}

// enum enumerates the splits described by c and either
// prints them to w or writes them as a batch to c.Output
func enum(ctx context.Context, c *config, w io.Writer) error {
	planID := uuid.New()
	h, err := tpch.Stat(c.Schema, c.Table)
	if err != nil {
		return err
	}
	peers, err := split.ParseHostAddresses(c.Peers)
	if err != nil {
		return err
	}
	sp := &tpch.Splitter{
		Parts:   c.Parts,
		Peers:   peers,
		Logger:  logger,
		Metrics: stats,
	}
	logger.Printf("plan %s: enumerating %s", planID, h)
	lst, err := sp.Splits(ctx, h)
	if err != nil {
		return fmt.Errorf("plan %s: %w", planID, err)
	}
	if c.Output == "" {
		for _, s := range lst {
			printSplit(w, s)
		}
		return nil
	}
	f, err := os.Create(c.Output)
	if err != nil {
		return err
	}
	tag, err := split.WriteBatch(f, tpch.Encoders(lst), c.Compression)
	if err == nil {
		err = f.Close()
	} else {
		f.Close()
	}
	if err != nil {
		os.Remove(c.Output)
		return err
	}
	if info, err := os.Stat(c.Output); err == nil {
		stats.BatchWritten(c.Compression, int(info.Size()))
	}
	logger.Printf("plan %s: wrote %d splits to %s", planID, len(lst), c.Output)
	fmt.Fprintf(w, "%s %s\n", tag, c.Output)
	return nil
}

// read prints the splits in each batch file
func read(files []string, w io.Writer) error {
	for _, name := range files {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		b, err := split.ReadBatch(f)
		f.Close()
		stats.BatchRead(err)
		if errors.Is(err, split.ErrInvalidSplit) {
			stats.Invalid(tpch.Kind, "decode")
		}
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		logger.Printf("%s: %d splits", name, len(b.Splits))
		for _, s := range b.Splits {
			printSplit(w, s)
		}
		fmt.Fprintf(w, "%s %s\n", b.ETag(), name)
	}
	return nil
}

func printSplit(w io.Writer, s split.Split) {
	addrs := s.Addresses()
	hosts := make([]string, len(addrs))
	for i := range addrs {
		hosts[i] = addrs[i].String()
	}
	remote := "local"
	if s.RemotelyAccessible() {
		remote = "remote"
	}
	fmt.Fprintf(w, "%s\t%v\t%s\t[%s]\n", s.PartitionID(), s.Info(), remote, strings.Join(hosts, ","))
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "    %s [-v] [-metrics] [-c <config.yaml>] [-schema s] [-table t] [-parts n] [-peers h:p,...] [-o <file>] enum\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "        enumerate the splits of a table\n")
	fmt.Fprintf(os.Stderr, "    %s read <file>...\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "        print the splits in batch files\n")
	fmt.Fprintf(os.Stderr, "    %s tables\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "        list the TPC-H tables\n")
	fmt.Fprintf(os.Stderr, "flag usage:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 || dashh {
		usage()
		os.Exit(1)
	}
	if dashv {
		logger.SetOutput(os.Stderr)
	}
	if dashmetrics {
		stats = metrics.New("")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := run(ctx, args)
	if werr := stats.WriteText(os.Stderr); werr != nil {
		logger.Printf("writing metrics: %s", werr)
	}
	if err != nil {
		exitf("%s\n", err)
	}
}

func run(ctx context.Context, args []string) error {
	switch args[0] {
	case "enum":
		c := defaultConfig()
		if dashc != "" {
			if err := loadConfig(dashc, &c); err != nil {
				return err
			}
		}
		applyFlags(flag.CommandLine, &c)
		return enum(ctx, &c, os.Stdout)
	case "read":
		if len(args) < 2 {
			return errors.New("usage: read <file> ...")
		}
		return read(args[1:], os.Stdout)
	case "tables":
		for _, t := range tpch.Tables {
			fmt.Println(t)
		}
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}
