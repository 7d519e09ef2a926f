// Copyright 2023 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package stream

import "github.com/pkg/errors"

// ErrDuplicatePartition is returned by AddPartition when the partition has
// already been added. It is fatal to the caller; StreamGroup state is left
// unchanged.
var ErrDuplicatePartition = errors.New("partition already added to stream group")

// ErrInvalidConfiguration is returned when desiredUnprocessed or a
// punctuation interval is non-positive.
var ErrInvalidConfiguration = errors.New("invalid stream group configuration")

// ErrEmptyChosenQueue indicates that the Chooser handed back a queue with
// no buffered records, an internal invariant violation. Process does not
// attempt to repair it; the error is surfaced to the caller.
var ErrEmptyChosenQueue = errors.New("chooser returned an empty queue")

// ErrClosed is returned by AddPartition, AddRecords, and Process once the
// StreamGroup has been closed.
var ErrClosed = errors.New("stream group is closed")
