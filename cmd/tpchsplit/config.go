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
	"fmt"
	"os"
	"strings"

	"sigs.k8s.io/yaml"
)

// config is the contents of the -c file.
// Command-line flags override file values.
type config struct {
	Schema      string   `json:"schema"`
	Table       string   `json:"table"`
	Parts       int      `json:"parts"`
	Peers       []string `json:"peers,omitempty"`
	Compression string   `json:"compression"`
	Output      string   `json:"output,omitempty"`
}

func defaultConfig() config {
	return config{
		Schema:      "tiny",
		Table:       "orders",
		Parts:       1,
		Compression: "zstd",
	}
}

// loadConfig reads a YAML (or JSON) config file
// over the values already present in c.
// Unknown keys are an error.
func loadConfig(path string, c *config) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.UnmarshalStrict(buf, c); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// splitList splits a comma-separated flag value,
// dropping empty elements
func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
