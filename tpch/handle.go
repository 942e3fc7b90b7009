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

// Package tpch implements a connector that
// exposes the TPC-H benchmark tables. Each
// table is scanned either as a single whole-table
// split or as a fixed number of numbered parts.
package tpch

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/SnellerInc/partsplit/ion"
)

// Tables lists the TPC-H tables in alphabetical order.
var Tables = []string{
	"customer",
	"lineitem",
	"nation",
	"orders",
	"part",
	"partsupp",
	"region",
	"supplier",
}

var (
	// ErrNoSuchTable is returned by Stat for
	// a table that is not part of TPC-H.
	ErrNoSuchTable = errors.New("tpch: no such table")
	// ErrNoSuchSchema is returned by Stat for
	// a schema that does not name a scale factor.
	ErrNoSuchSchema = errors.New("tpch: no such schema")

	errUnexpectedField = errors.New("unexpected field")
)

// Handle identifies one TPC-H table
// at one scale factor.
type Handle struct {
	// Schema is "tiny" or "sf<scale>", e.g. "sf1".
	Schema string
	Table  string
}

// Stat resolves a schema and table name into a Handle.
func Stat(schema, table string) (*Handle, error) {
	if !validSchema(schema) {
		return nil, fmt.Errorf("%w: %q", ErrNoSuchSchema, schema)
	}
	for _, t := range Tables {
		if t == table {
			return &Handle{Schema: schema, Table: table}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoSuchTable, table)
}

func validSchema(s string) bool {
	if s == "tiny" {
		return true
	}
	if !strings.HasPrefix(s, "sf") {
		return false
	}
	f, err := strconv.ParseFloat(s[2:], 64)
	return err == nil && f > 0
}

func (h Handle) String() string {
	return h.Schema + "." + h.Table
}

// Encode implements split.TableHandle.
func (h Handle) Encode(dst *ion.Buffer, st *ion.Symtab) error {
	dst.BeginStruct(-1)
	dst.BeginField(st.Intern("schema"))
	dst.WriteString(h.Schema)
	dst.BeginField(st.Intern("table"))
	dst.WriteString(h.Table)
	dst.EndStruct()
	return nil
}

// DecodeHandle decodes a Handle written by Handle.Encode.
func DecodeHandle(d ion.Datum) (Handle, error) {
	var h Handle
	err := d.UnpackStruct(func(f ion.Field) error {
		var err error
		switch f.Label {
		case "schema":
			h.Schema, err = f.String()
		case "table":
			h.Table, err = f.String()
		default:
			err = errUnexpectedField
		}
		return err
	})
	if err != nil {
		return Handle{}, fmt.Errorf("tpch.DecodeHandle: %w", err)
	}
	return h, nil
}
