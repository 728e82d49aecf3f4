/*
Copyright 2014 the Camlistore authors.

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

// Package constants contains the keyspace engine's fixed, non-configurable
// constants: the snapshot file's magic and format version, its opcode
// bytes, and the default per-category encoding-promotion thresholds of
// spec §3.
//
// This is a leaf package, without dependencies.
package constants

// SnapshotTag is the 5-byte ASCII tag at the start of every snapshot file.
const SnapshotTag = "MKDBS"

// SnapshotVersion is the 4-digit, zero-padded decimal format version
// written immediately after SnapshotTag. Bump this whenever the wire
// format in pkg/rdb changes in a way old readers can't tolerate.
const SnapshotVersion = 1

// MinSupportedSnapshotVersion is the oldest format version this build's
// reader will accept.
const MinSupportedSnapshotVersion = 1

// Snapshot opcodes (spec §6).
const (
	OpExpireSeconds byte = 0xFD
	OpExpireMillis  byte = 0xFC
	OpSelectDB      byte = 0xFE
	OpEOF           byte = 0xFF
)

// Value-type tags written immediately before a key (spec §6).
const (
	TypeString       byte = 0
	TypeListLinked   byte = 1
	TypeSetHash      byte = 2
	TypeZSetSkiplist byte = 3
	TypeHashTable    byte = 4
	TypeHashZipmap   byte = 9 // legacy: recognized on load and rejected as unsupported; never written
	TypeListPacked   byte = 10
	TypeSetIntset    byte = 11
	TypeZSetPacked   byte = 12
	TypeHashPacked   byte = 13
)

// Default per-category promotion thresholds (spec §3's table). These are
// the defaults used when a Config does not override them.
const (
	DefaultListMaxZiplistEntries = 128
	DefaultListMaxZiplistValue   = 64
	DefaultSetMaxIntsetEntries   = 512
	DefaultZSetMaxZiplistEntries = 128
	DefaultZSetMaxZiplistValue   = 64
	DefaultHashMaxZiplistEntries = 128
	DefaultHashMaxZiplistValue   = 64

	// DefaultStringInlineCap is the small-inline-string cap for the
	// string category's compact encoding (spec §3 "length > small-inline
	// cap" promotion trigger).
	DefaultStringInlineCap = 44
)

// DefaultDBCount is the default number of logical databases (spec §3's
// dbnum) when not overridden by configuration.
const DefaultDBCount = 16

// LZFCompressMinLength is the raw string length a string must exceed
// before compression is even attempted.
const LZFCompressMinLength = 20
