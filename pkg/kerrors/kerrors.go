/*
Copyright 2013 The Camlistore Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package kerrors defines the error kinds the keyspace engine surfaces to
// its callers, used to decide on how to deal with each failure case.
package kerrors

import "errors"

// The error kinds of spec §7. Callers test for these with errors.Is;
// call sites wrap them with context via fmt.Errorf("%w: ...", kind).
var (
	// WrongKind is returned when an operation is applied to a value of
	// the wrong category (e.g. LPUSH on a string).
	WrongKind = errors.New("wrong kind of value")

	// NoSuchKey is returned where a command must fail on absence.
	NoSuchKey = errors.New("no such key")

	// Syntax is returned for malformed arguments, such as a non-integer
	// where an integer is required.
	Syntax = errors.New("syntax error")

	// OutOfRange is returned for an invalid database index or a numeric
	// overflow on an increment.
	OutOfRange = errors.New("value is out of range")

	// IOError is returned for a snapshot read/write failure. Fatal for
	// Load, surfaced (not fatal) for Save.
	IOError = errors.New("I/O error")

	// ChecksumMismatch is returned when a snapshot's trailing CRC-64
	// does not match the data that precedes it. Fatal for Load.
	ChecksumMismatch = errors.New("checksum mismatch")

	// FormatUnsupported is returned when a snapshot's major format
	// version falls outside the supported range. Fatal for Load.
	FormatUnsupported = errors.New("unsupported snapshot format version")

	// AlreadyInProgress is returned by Keyspace.BeginSnapshot when a
	// snapshot is already marked in progress.
	AlreadyInProgress = errors.New("snapshot already in progress")
)

// Is reports whether err is, or wraps, kind.
func Is(err error, kind error) bool {
	return errors.Is(err, kind)
}
