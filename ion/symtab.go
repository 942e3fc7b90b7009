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
	"fmt"
)

var systemsyms = []string{
	"$0", // symbol zero is reserved
	"$ion",
	"$ion_1_0",
	"$ion_symbol_table",
	"name",
	"version",
	"imports",
	"symbols",
	"max_id",
	"$ion_shared_symbol_table",
}

const (
	dollarIonSymbolTable = 3
	symbolImports        = 6
	symbolSymbols        = 7
)

// Symtab is an ion symbol table.
//
// The zero value of Symtab is an empty
// symbol table containing only the
// ion system symbols.
type Symtab struct {
	interned []string // local symbols; ID = len(systemsyms)+index
	toindex  map[string]Symbol
}

// Reset resets a symbol table
// so that it no longer contains
// any symbols (except for the ion
// pre-defined symbols).
func (s *Symtab) Reset() {
	s.interned = s.interned[:0]
	for k := range s.toindex {
		delete(s.toindex, k)
	}
}

// MaxID returns the largest symbol ID
// in the table plus one.
func (s *Symtab) MaxID() int { return len(systemsyms) + len(s.interned) }

// Lookup returns the string associated
// with a symbol and whether or not the
// symbol is present in the table.
func (s *Symtab) Lookup(x Symbol) (string, bool) {
	if int(x) < len(systemsyms) {
		return systemsyms[x], x != 0
	}
	i := int(x) - len(systemsyms)
	if s != nil && i < len(s.interned) {
		return s.interned[i], true
	}
	return "", false
}

// Get gets the string associated
// with the given interned symbol,
// or returns the empty string
// when there is no symbol with
// the given association.
func (s *Symtab) Get(x Symbol) string {
	str, _ := s.Lookup(x)
	return str
}

// Intern interns the given string
// if it is not already interned
// and returns the associated Symbol
func (s *Symtab) Intern(x string) Symbol {
	for i := 1; i < len(systemsyms); i++ {
		if systemsyms[i] == x {
			return Symbol(i)
		}
	}
	if sym, ok := s.toindex[x]; ok {
		return sym
	}
	if s.toindex == nil {
		s.toindex = make(map[string]Symbol)
	}
	sym := Symbol(s.MaxID())
	s.interned = append(s.interned, x)
	s.toindex[x] = sym
	return sym
}

// Marshal writes the local symbols of s into
// dst as an ion symbol table, optionally with
// a BVM prefix so that the output can begin
// a fresh ion stream.
func (s *Symtab) Marshal(dst *Buffer, withBVM bool) {
	if withBVM {
		dst.buf = append(dst.buf, bvm[:]...)
	}
	// $ion_symbol_table::{ symbols: [ ... ] }
	dst.BeginAnnotation(dollarIonSymbolTable)
	dst.BeginStruct(-1)
	dst.BeginField(symbolSymbols)
	dst.BeginList(-1)
	for i := range s.interned {
		dst.WriteString(s.interned[i])
	}
	dst.EndList()
	dst.EndStruct()
	dst.EndAnnotation()
}

// Unmarshal reads a BVM and/or a symbol table
// from the front of src and returns the
// remaining bytes. A BVM resets the table;
// a symbol table that imports $ion_symbol_table
// appends to the current set of symbols.
func (s *Symtab) Unmarshal(src []byte) ([]byte, error) {
	if IsBVM(src) {
		s.Reset()
		src = src[4:]
	}
	if len(src) == 0 || Type(src[0]>>4) != AnnotationType {
		return src, nil
	}
	d, rest, err := ReadDatum(nil, src)
	if err != nil {
		return src, err
	}
	labels, body, err := d.annotation()
	if err != nil {
		return src, err
	}
	if len(labels) == 0 || labels[0] != dollarIonSymbolTable {
		// an ordinary annotated value
		return src, nil
	}
	var syms []string
	appending := false
	err = body.unpackStruct(func(sym Symbol, f Datum) error {
		switch sym {
		case symbolImports:
			if f.Type() == SymbolType {
				id, err := f.symbolID()
				if err != nil {
					return err
				}
				appending = id == dollarIonSymbolTable
			}
		case symbolSymbols:
			return f.UnpackList(func(item Datum) error {
				str, err := item.String()
				if err != nil {
					return err
				}
				syms = append(syms, str)
				return nil
			})
		}
		return nil
	})
	if err != nil {
		return src, fmt.Errorf("ion: reading symbol table: %w", err)
	}
	if !appending {
		s.Reset()
	}
	for i := range syms {
		if s.toindex == nil {
			s.toindex = make(map[string]Symbol)
		}
		sym := Symbol(s.MaxID())
		s.interned = append(s.interned, syms[i])
		if _, ok := s.toindex[syms[i]]; !ok {
			s.toindex[syms[i]] = sym
		}
	}
	return rest, nil
}
