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

package split

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/SnellerInc/partsplit/ion"
)

// HostAddress is a network location hint.
// A zero Port means the port is unspecified.
type HostAddress struct {
	Host string
	Port int
}

// ParseHostAddress parses an address of the form
// "host", "host:port", or "[ipv6]:port".
func ParseHostAddress(s string) (HostAddress, error) {
	if s == "" {
		return HostAddress{}, fmt.Errorf("split.ParseHostAddress: empty address")
	}
	hasPort := strings.LastIndexByte(s, ':') > strings.LastIndexByte(s, ']')
	if strings.Count(s, ":") > 1 && !strings.HasPrefix(s, "[") {
		// bare IPv6 literal without a port
		hasPort = false
	}
	host, n := s, 0
	if !hasPort {
		if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
			host = s[1 : len(s)-1]
		}
	} else {
		var port string
		var err error
		host, port, err = net.SplitHostPort(s)
		if err != nil {
			return HostAddress{}, fmt.Errorf("split.ParseHostAddress: %w", err)
		}
		n, err = strconv.Atoi(port)
		if err != nil || n <= 0 || n > 65535 {
			return HostAddress{}, fmt.Errorf("split.ParseHostAddress: invalid port %q", port)
		}
	}
	if host == "" {
		return HostAddress{}, fmt.Errorf("split.ParseHostAddress: missing host in %q", s)
	}
	if strings.ContainsAny(host, "[]") {
		return HostAddress{}, fmt.Errorf("split.ParseHostAddress: invalid host in %q", s)
	}
	return HostAddress{Host: host, Port: n}, nil
}

// Validate returns an error if h cannot be
// written with String and parsed back by
// ParseHostAddress into the same value.
func (h HostAddress) Validate() error {
	switch {
	case h.Host == "":
		return fmt.Errorf("split.HostAddress: empty host")
	case h.Port < 0 || h.Port > 65535:
		return fmt.Errorf("split.HostAddress: invalid port %d", h.Port)
	case strings.ContainsAny(h.Host, "[]"):
		return fmt.Errorf("split.HostAddress: invalid host %q", h.Host)
	}
	back, err := ParseHostAddress(h.String())
	if err != nil {
		return err
	}
	if back != h {
		return fmt.Errorf("split.HostAddress: %+v does not round-trip (parsed as %+v)", h, back)
	}
	return nil
}

// ParseHostAddresses parses a list of
// addresses with ParseHostAddress.
func ParseHostAddresses(lst []string) ([]HostAddress, error) {
	out := make([]HostAddress, 0, len(lst))
	for i := range lst {
		h, err := ParseHostAddress(lst[i])
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

// String returns the address in a form
// accepted by ParseHostAddress.
func (h HostAddress) String() string {
	if h.Port == 0 {
		if strings.IndexByte(h.Host, ':') >= 0 {
			return "[" + h.Host + "]"
		}
		return h.Host
	}
	return net.JoinHostPort(h.Host, strconv.Itoa(h.Port))
}

// EncodeAddresses writes lst as an ion list of strings.
func EncodeAddresses(dst *ion.Buffer, lst []HostAddress) {
	dst.BeginList(-1)
	for i := range lst {
		dst.WriteString(lst[i].String())
	}
	dst.EndList()
}

// DecodeAddresses decodes a list written by
// EncodeAddresses. The result is never nil.
func DecodeAddresses(d ion.Datum) ([]HostAddress, error) {
	out := []HostAddress{}
	err := d.UnpackList(func(item ion.Datum) error {
		s, err := item.String()
		if err != nil {
			return err
		}
		h, err := ParseHostAddress(s)
		if err != nil {
			return err
		}
		out = append(out, h)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
