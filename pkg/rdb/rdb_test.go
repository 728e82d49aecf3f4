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

package rdb

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/minikeydb/minikeydb/pkg/keyspace"
	"github.com/minikeydb/minikeydb/pkg/value"
)

func TestWriteLengthReadLengthBoundaries(t *testing.T) {
	cases := []uint64{0, 1, 63, 64, 16383, 16384, 1 << 20, math.MaxUint32}
	for _, n := range cases {
		var buf bytes.Buffer
		if err := writeLength(&buf, n); err != nil {
			t.Fatalf("writeLength(%d): %v", n, err)
		}
		r := newByteReader(buf.Bytes())
		got, err := readLength(r)
		if err != nil {
			t.Fatalf("readLength(%d): %v", n, err)
		}
		if got != n {
			t.Fatalf("round trip %d got %d", n, got)
		}
	}
}

func TestWriteLengthRejectsOverflow(t *testing.T) {
	var buf bytes.Buffer
	if err := writeLength(&buf, uint64(math.MaxUint32)+1); err == nil {
		t.Fatal("expected error for length exceeding 32 bits")
	}
}

func TestStringEncodingFastPaths(t *testing.T) {
	cases := [][]byte{
		[]byte("42"), []byte("-17"), []byte("30000"), []byte("-30000"),
		[]byte("70000"), []byte("-70000"), []byte("hello world"),
		[]byte(""), []byte("007"), []byte("+5"),
	}
	for _, in := range cases {
		var buf bytes.Buffer
		if err := writeString(&buf, in, false); err != nil {
			t.Fatalf("writeString(%q): %v", in, err)
		}
		r := bytes.NewReader(buf.Bytes())
		got, err := readString(r)
		if err != nil {
			t.Fatalf("readString(%q): %v", in, err)
		}
		if !bytes.Equal(got, in) {
			t.Fatalf("round trip %q got %q", in, got)
		}
	}
}

func TestStringEncodingLZFSubtype(t *testing.T) {
	in := []byte(strings.Repeat("abcdefgh", 20))
	var buf bytes.Buffer
	if err := writeString(&buf, in, true); err != nil {
		t.Fatal(err)
	}
	r := bytes.NewReader(buf.Bytes())
	got, err := readString(r)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, in) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(in))
	}
}

func TestDoubleEncodingRoundTrip(t *testing.T) {
	cases := []float64{0, 1, -1, 3.14159, -2.5e10, math.NaN(), math.Inf(1), math.Inf(-1)}
	for _, f := range cases {
		var buf bytes.Buffer
		if err := writeDouble(&buf, f); err != nil {
			t.Fatal(err)
		}
		r := bytes.NewReader(buf.Bytes())
		got, err := readDouble(r)
		if err != nil {
			t.Fatal(err)
		}
		if math.IsNaN(f) {
			if !math.IsNaN(got) {
				t.Fatalf("NaN round trip got %v", got)
			}
			continue
		}
		if got != f {
			t.Fatalf("round trip %v got %v", f, got)
		}
	}
}

func buildTestKeyspace(t *testing.T) (*keyspace.Keyspace, value.Config) {
	t.Helper()
	ks := keyspace.New(4)
	cfg := value.DefaultConfig()

	ks.Set(0, "str", value.NewString([]byte("hello"), cfg))
	ks.Set(0, "num", value.NewString([]byte("12345"), cfg))

	list := value.NewList()
	list.ListPush(false, cfg, []byte("a"), []byte("b"), []byte("c"))
	ks.Set(0, "list", list)

	bigList := value.NewList()
	for i := 0; i < 200; i++ {
		bigList.ListPush(false, cfg, []byte(strings.Repeat("x", 10)))
	}
	ks.Set(0, "biglist", bigList)

	set := value.NewSet()
	set.SetAdd(cfg, []byte("1"), []byte("2"), []byte("3"))
	ks.Set(0, "set", set)

	strSet := value.NewSet()
	strSet.SetAdd(cfg, []byte("alpha"), []byte("beta"))
	ks.Set(0, "strset", strSet)

	zset := value.NewZSet()
	zset.ZSetAdd([]byte("m1"), 1.5, cfg)
	zset.ZSetAdd([]byte("m2"), 2.5, cfg)
	ks.Set(0, "zset", zset)

	hash := value.NewHash()
	hash.HashSet([]byte("f1"), []byte("v1"), cfg)
	hash.HashSet([]byte("f2"), []byte("v2"), cfg)
	ks.Set(0, "hash", hash)

	ks.Set(1, "other-db", value.NewString([]byte("v"), cfg))

	deadline := time.Now().Add(time.Hour).UnixMilli()
	if err := ks.SetExpire(0, "str", deadline); err != nil {
		t.Fatal(err)
	}
	return ks, cfg
}

func collectKeys(t *testing.T, ks *keyspace.Keyspace, dbIndex int) map[string]*value.Value {
	t.Helper()
	out := map[string]*value.Value{}
	err := ks.Each(dbIndex, func(key string, v *value.Value, deadlineMs int64, hasDeadline bool) {
		out[key] = v
	})
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func valueSnapshot(t *testing.T, v *value.Value) any {
	t.Helper()
	switch v.Kind() {
	case value.KindString:
		b, err := v.StringGet()
		if err != nil {
			t.Fatal(err)
		}
		return string(b)
	case value.KindList:
		elems, err := v.ListElements()
		if err != nil {
			t.Fatal(err)
		}
		out := make([]string, len(elems))
		for i, e := range elems {
			out[i] = string(e)
		}
		return out
	case value.KindSet:
		members, err := v.SetMembers()
		if err != nil {
			t.Fatal(err)
		}
		out := make([]string, len(members))
		for i, m := range members {
			out[i] = string(m)
		}
		return out
	case value.KindZSet:
		pairs := v.ZSetAllPairs()
		out := make(map[string]float64, len(pairs))
		for _, p := range pairs {
			out[string(p.Member)] = p.Score
		}
		return out
	case value.KindHash:
		entries, err := v.HashEntries()
		if err != nil {
			t.Fatal(err)
		}
		out := map[string]string{}
		for _, e := range entries {
			out[string(e.Field)] = string(e.Value)
		}
		return out
	}
	return nil
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ks, _ := buildTestKeyspace(t)
	path := filepath.Join(t.TempDir(), "dump.snapshot")

	if err := Save(ks, path, value.DefaultConfig(), true); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := keyspace.New(4)
	if err := Load(loaded, path); err != nil {
		t.Fatalf("Load: %v", err)
	}

	for _, dbIndex := range []int{0, 1} {
		want := collectKeys(t, ks, dbIndex)
		got := collectKeys(t, loaded, dbIndex)
		if len(want) != len(got) {
			t.Fatalf("db %d: want %d keys, got %d", dbIndex, len(want), len(got))
		}
		for key, wantVal := range want {
			gotVal, ok := got[key]
			if !ok {
				t.Fatalf("db %d: key %q missing after reload", dbIndex, key)
			}
			if diff := cmp.Diff(valueSnapshot(t, wantVal), valueSnapshot(t, gotVal)); diff != "" {
				t.Fatalf("db %d key %q mismatch (-want +got):\n%s", dbIndex, key, diff)
			}
		}
	}

	deadline, ok, err := loaded.GetExpire(0, "str")
	if err != nil || !ok {
		t.Fatalf("GetExpire(str) after reload = %v, %v, %v", deadline, ok, err)
	}
}

func TestSaveLoadPreservesCompactVsExpandedEncoding(t *testing.T) {
	ks, _ := buildTestKeyspace(t)
	path := filepath.Join(t.TempDir(), "dump.snapshot")
	if err := Save(ks, path, value.DefaultConfig(), false); err != nil {
		t.Fatal(err)
	}

	loaded := keyspace.New(4)
	if err := Load(loaded, path); err != nil {
		t.Fatal(err)
	}

	got := collectKeys(t, loaded, 0)
	if got["list"].Encoding() != value.EncodingListPacked {
		t.Fatalf("list should stay packed, got encoding %v", got["list"].Encoding())
	}
	if got["biglist"].Encoding() != value.EncodingListLinked {
		t.Fatalf("biglist should have promoted to linked, got encoding %v", got["biglist"].Encoding())
	}
	if got["set"].Encoding() != value.EncodingSetIntset {
		t.Fatalf("integer set should stay intset, got encoding %v", got["set"].Encoding())
	}
	if got["strset"].Encoding() != value.EncodingSetHash {
		t.Fatalf("string set should use hash encoding, got encoding %v", got["strset"].Encoding())
	}
}

func TestLoadRejectsCorruptChecksum(t *testing.T) {
	ks, _ := buildTestKeyspace(t)
	path := filepath.Join(t.TempDir(), "dump.snapshot")
	if err := Save(ks, path, value.DefaultConfig(), false); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// Flip a byte in the middle of the body, leaving the trailer intact.
	mid := len(raw) / 2
	raw[mid] ^= 0xFF
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	loaded := keyspace.New(4)
	if err := Load(loaded, path); err == nil {
		t.Fatal("expected checksum mismatch error")
	}
}
