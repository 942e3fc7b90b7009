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
	"errors"
	"fmt"
)

// ErrInvalidSplit is returned when a split is
// constructed or decoded with arguments that
// violate its invariants. It indicates a bug
// in the connector and should never be retried.
var ErrInvalidSplit = errors.New("invalid split")

var errUnexpectedField = errors.New("unexpected field")

// Invalid returns an error wrapping ErrInvalidSplit
// with the given formatted detail.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidSplit, fmt.Sprintf(format, args...))
}
