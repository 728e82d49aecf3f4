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

package value

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStringGetSetAppend(t *testing.T) {
	cfg := DefaultConfig()
	v := NewString([]byte("bar"), cfg)
	got, _ := v.StringGet()
	if string(got) != "bar" {
		t.Fatalf("StringGet() = %q; want bar", got)
	}
	n, err := v.StringAppend([]byte("baz"), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if n != 6 {
		t.Fatalf("StringAppend length = %d; want 6", n)
	}
	got, _ = v.StringGet()
	if string(got) != "barbaz" {
		t.Fatalf("after append = %q; want barbaz", got)
	}
}

func TestStringPromotesOnLength(t *testing.T) {
	cfg := DefaultConfig()
	v := NewString([]byte("short"), cfg)
	if v.Encoding() != EncodingStringInline {
		t.Fatalf("encoding = %v; want inline", v.Encoding())
	}
	long := make([]byte, cfg.StringInlineCap+1)
	for i := range long {
		long[i] = 'x'
	}
	v.StringSet(long, cfg)
	if v.Encoding() != EncodingStringRaw {
		t.Fatalf("encoding after long set = %v; want raw", v.Encoding())
	}
}

func TestStringIncrBy(t *testing.T) {
	cfg := DefaultConfig()
	v := NewString([]byte("10"), cfg)
	n, err := v.StringIncrBy(5, cfg)
	if err != nil || n != 15 {
		t.Fatalf("StringIncrBy = %d, %v; want 15, nil", n, err)
	}
	v2 := NewString([]byte("not-a-number"), cfg)
	if _, err := v2.StringIncrBy(1, cfg); err == nil {
		t.Fatal("StringIncrBy on non-integer should error")
	}
}

func TestListPushPopAndPromotion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ListMaxZiplistEntries = 3
	v := NewList()
	v.ListPush(false, cfg, []byte("a"), []byte("b"), []byte("c"))
	if v.Encoding() != EncodingListPacked {
		t.Fatalf("encoding = %v; want packed", v.Encoding())
	}
	v.ListPush(false, cfg, []byte("d"))
	if v.Encoding() != EncodingListLinked {
		t.Fatalf("encoding after overflow = %v; want linked", v.Encoding())
	}
	n, _ := v.ListLen()
	if n != 4 {
		t.Fatalf("Len() = %d; want 4", n)
	}
	head, err := v.ListPop(true)
	if err != nil || string(head) != "a" {
		t.Fatalf("ListPop(head) = %q, %v; want a, nil", head, err)
	}
}

func TestListRangeAndInsert(t *testing.T) {
	cfg := DefaultConfig()
	v := NewList()
	v.ListPush(false, cfg, []byte("a"), []byte("c"))
	if _, err := v.ListInsert(false, []byte("a"), []byte("b"), cfg); err != nil {
		t.Fatal(err)
	}
	got, err := v.ListRange(0, -1)
	if err != nil {
		t.Fatal(err)
	}
	var gotStrs []string
	for _, b := range got {
		gotStrs = append(gotStrs, string(b))
	}
	want := []string{"a", "b", "c"}
	if diff := cmp.Diff(want, gotStrs); diff != "" {
		t.Errorf("range mismatch (-want +got):\n%s", diff)
	}
}

func TestListRemove(t *testing.T) {
	cfg := DefaultConfig()
	v := NewList()
	v.ListPush(false, cfg, []byte("a"), []byte("b"), []byte("a"), []byte("a"))
	n, err := v.ListRemove([]byte("a"), 2)
	if err != nil || n != 2 {
		t.Fatalf("ListRemove = %d, %v; want 2, nil", n, err)
	}
	l, _ := v.ListLen()
	if l != 2 {
		t.Fatalf("Len() after remove = %d; want 2", l)
	}
}

func TestSetAddPromotionAndMembership(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SetMaxIntsetEntries = 2
	v := NewSet()
	v.SetAdd(cfg, []byte("1"), []byte("2"), []byte("3"))
	if v.Encoding() != EncodingSetHash {
		t.Fatalf("encoding after overflow = %v; want hash", v.Encoding())
	}
	card, _ := v.SetCard()
	if card != 3 {
		t.Fatalf("SetCard() = %d; want 3", card)
	}
	ok, _ := v.SetIsMember([]byte("2"))
	if !ok {
		t.Fatal("SetIsMember(2) = false; want true")
	}
}

func TestSetPromotesOnNonInteger(t *testing.T) {
	cfg := DefaultConfig()
	v := NewSet()
	v.SetAdd(cfg, []byte("1"), []byte("2"), []byte("3"))
	if v.Encoding() != EncodingSetIntset {
		t.Fatalf("encoding = %v; want intset", v.Encoding())
	}
	v.SetAdd(cfg, []byte("x"))
	if v.Encoding() != EncodingSetHash {
		t.Fatalf("encoding after non-integer add = %v; want hash", v.Encoding())
	}
	card, _ := v.SetCard()
	if card != 4 {
		t.Fatalf("SetCard() = %d; want 4", card)
	}
}

func TestSetAlgebra(t *testing.T) {
	cfg := DefaultConfig()
	a := NewSet()
	a.SetAdd(cfg, []byte("1"), []byte("2"), []byte("3"))
	b := NewSet()
	b.SetAdd(cfg, []byte("2"), []byte("3"), []byte("4"))

	inter, err := SetInter(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if len(inter) != 2 {
		t.Fatalf("SetInter len = %d; want 2", len(inter))
	}

	union, err := SetUnion(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if len(union) != 4 {
		t.Fatalf("SetUnion len = %d; want 4", len(union))
	}

	diff, err := SetDiff(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if len(diff) != 1 || string(diff[0]) != "1" {
		t.Fatalf("SetDiff = %v; want [1]", diff)
	}
}

func TestZSetAddRankAndRange(t *testing.T) {
	cfg := DefaultConfig()
	v := NewZSet()
	v.ZSetAdd([]byte("a"), 1, cfg)
	v.ZSetAdd([]byte("b"), 2, cfg)
	v.ZSetAdd([]byte("c"), 3, cfg)

	rank, ok, err := v.ZSetRank([]byte("c"), false)
	if err != nil || !ok || rank != 2 {
		t.Fatalf("ZSetRank(c) = %d, %v, %v; want 2, true, nil", rank, ok, err)
	}

	pairs, err := v.ZSetRangeByScore(ScoreRange{Min: 1, Max: 3, MinExcl: true})
	if err != nil {
		t.Fatal(err)
	}
	var members []string
	for _, p := range pairs {
		members = append(members, string(p.Member))
	}
	want := []string{"b", "c"}
	if diff := cmp.Diff(want, members); diff != "" {
		t.Errorf("range mismatch (-want +got):\n%s", diff)
	}
}

func TestZSetPromotesOnEntryCount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ZSetMaxZiplistEntries = 2
	v := NewZSet()
	v.ZSetAdd([]byte("a"), 1, cfg)
	v.ZSetAdd([]byte("b"), 2, cfg)
	if v.Encoding() != EncodingZSetPacked {
		t.Fatalf("encoding = %v; want packed", v.Encoding())
	}
	v.ZSetAdd([]byte("c"), 3, cfg)
	if v.Encoding() != EncodingZSetSkiplist {
		t.Fatalf("encoding after overflow = %v; want skiplist", v.Encoding())
	}
	n, _ := v.ZSetLen()
	if n != 3 {
		t.Fatalf("ZSetLen() = %d; want 3", n)
	}
}

func TestZSetRankAndRangeOnSkiplistEncoding(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ZSetMaxZiplistEntries = 1
	v := NewZSet()
	v.ZSetAdd([]byte("a"), 1, cfg)
	v.ZSetAdd([]byte("b"), 2, cfg)
	v.ZSetAdd([]byte("c"), 3, cfg)
	v.ZSetAdd([]byte("d"), 4, cfg)
	if v.Encoding() != EncodingZSetSkiplist {
		t.Fatalf("encoding = %v; want skiplist", v.Encoding())
	}

	rank, ok, err := v.ZSetRank([]byte("c"), false)
	if err != nil || !ok || rank != 2 {
		t.Fatalf("ZSetRank(c) = %d, %v, %v; want 2, true, nil", rank, ok, err)
	}
	revRank, ok, err := v.ZSetRank([]byte("c"), true)
	if err != nil || !ok || revRank != 1 {
		t.Fatalf("ZSetRank(c, reverse) = %d, %v, %v; want 1, true, nil", revRank, ok, err)
	}

	pairs, err := v.ZSetRangeByRank(1, 2, false)
	if err != nil {
		t.Fatal(err)
	}
	var members []string
	for _, p := range pairs {
		members = append(members, string(p.Member))
	}
	if diff := cmp.Diff([]string{"b", "c"}, members); diff != "" {
		t.Errorf("ZSetRangeByRank mismatch (-want +got):\n%s", diff)
	}

	revPairs, err := v.ZSetRangeByRank(0, 1, true)
	if err != nil {
		t.Fatal(err)
	}
	var revMembers []string
	for _, p := range revPairs {
		revMembers = append(revMembers, string(p.Member))
	}
	if diff := cmp.Diff([]string{"d", "c"}, revMembers); diff != "" {
		t.Errorf("ZSetRangeByRank(reverse) mismatch (-want +got):\n%s", diff)
	}

	scored, err := v.ZSetRangeByScore(ScoreRange{Min: 1, Max: 3, MinExcl: true})
	if err != nil {
		t.Fatal(err)
	}
	var scoredMembers []string
	for _, p := range scored {
		scoredMembers = append(scoredMembers, string(p.Member))
	}
	if diff := cmp.Diff([]string{"b", "c"}, scoredMembers); diff != "" {
		t.Errorf("ZSetRangeByScore mismatch (-want +got):\n%s", diff)
	}
}

func TestZSetIncrBy(t *testing.T) {
	cfg := DefaultConfig()
	v := NewZSet()
	v.ZSetAdd([]byte("a"), 1, cfg)
	score, err := v.ZSetIncrBy([]byte("a"), 4, cfg)
	if err != nil || score != 5 {
		t.Fatalf("ZSetIncrBy = %v, %v; want 5, nil", score, err)
	}
}

func TestHashSetGetDelAndPromotion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HashMaxZiplistEntries = 2
	v := NewHash()
	v.HashSet([]byte("f1"), []byte("a"), cfg)
	v.HashSet([]byte("f2"), []byte("b"), cfg)
	if v.Encoding() != EncodingHashPacked {
		t.Fatalf("encoding = %v; want packed", v.Encoding())
	}
	v.HashSet([]byte("f3"), []byte("c"), cfg)
	if v.Encoding() != EncodingHashTable {
		t.Fatalf("encoding after overflow = %v; want table", v.Encoding())
	}
	val, ok, err := v.HashGet([]byte("f2"))
	if err != nil || !ok || string(val) != "b" {
		t.Fatalf("HashGet(f2) = %q, %v, %v; want b, true, nil", val, ok, err)
	}
	if ok, _ := v.HashDel([]byte("f2")); !ok {
		t.Fatal("HashDel(f2) should report true")
	}
	n, _ := v.HashLen()
	if n != 2 {
		t.Fatalf("HashLen() = %d; want 2", n)
	}
}

func TestHashSetOverwriteKeepsFieldReadable(t *testing.T) {
	cfg := DefaultConfig()
	v := NewHash()
	isNew, _ := v.HashSet([]byte("name"), []byte("ada"), cfg)
	if !isNew {
		t.Fatal("first HashSet(name) should report a new field")
	}
	isNew, err := v.HashSet([]byte("name"), []byte("grace"), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if isNew {
		t.Fatal("overwriting HashSet(name) should report isNew=false")
	}
	val, ok, err := v.HashGet([]byte("name"))
	if err != nil || !ok || string(val) != "grace" {
		t.Fatalf("HashGet(name) = %q, %v, %v; want grace, true, nil", val, ok, err)
	}
	n, _ := v.HashLen()
	if n != 1 {
		t.Fatalf("HashLen() = %d; want 1", n)
	}
}

func TestHashEntriesPreservesInsertionOrderWhenCompact(t *testing.T) {
	cfg := DefaultConfig()
	v := NewHash()
	v.HashSet([]byte("f1"), []byte("a"), cfg)
	v.HashSet([]byte("f2"), []byte("b"), cfg)
	entries, err := v.HashEntries()
	if err != nil {
		t.Fatal(err)
	}
	want := []FieldValue{{[]byte("f1"), []byte("a")}, {[]byte("f2"), []byte("b")}}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestHashIncrBy(t *testing.T) {
	cfg := DefaultConfig()
	v := NewHash()
	n, err := v.HashIncrBy([]byte("counter"), 5, cfg)
	if err != nil || n != 5 {
		t.Fatalf("HashIncrBy on new field = %d, %v; want 5, nil", n, err)
	}
	n, err = v.HashIncrBy([]byte("counter"), -2, cfg)
	if err != nil || n != 3 {
		t.Fatalf("HashIncrBy on existing field = %d, %v; want 3, nil", n, err)
	}
}

func TestRefCounting(t *testing.T) {
	v := NewHash()
	if v.RefCount() != 1 {
		t.Fatalf("initial RefCount() = %d; want 1", v.RefCount())
	}
	v.Retain()
	if v.RefCount() != 2 {
		t.Fatalf("RefCount() after Retain = %d; want 2", v.RefCount())
	}
	if v.Release() {
		t.Fatal("Release() should not report zero yet")
	}
	if !v.Release() {
		t.Fatal("final Release() should report zero")
	}
}

func TestWrongKindErrors(t *testing.T) {
	cfg := DefaultConfig()
	v := NewString([]byte("x"), cfg)
	if _, err := v.ListLen(); err == nil {
		t.Fatal("ListLen on a string value should error")
	}
}
