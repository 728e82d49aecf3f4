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

package skiplist

import (
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func membersOf(nodes []*Node) []string {
	var out []string
	for _, n := range nodes {
		out = append(out, n.Member)
	}
	return out
}

func TestInsertOrdersByScoreThenMember(t *testing.T) {
	l := New()
	l.Insert("c", 1)
	l.Insert("a", 1)
	l.Insert("b", 0)
	want := []string{"b", "a", "c"}
	if diff := cmp.Diff(want, membersOf(l.All())); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestInsertUpdatesScoreAndReorders(t *testing.T) {
	l := New()
	l.Insert("a", 5)
	l.Insert("b", 1)
	if isNew := l.Insert("a", 0); isNew {
		t.Fatal("re-inserting an existing member should report false")
	}
	want := []string{"a", "b"}
	if diff := cmp.Diff(want, membersOf(l.All())); diff != "" {
		t.Errorf("order mismatch after score update (-want +got):\n%s", diff)
	}
	score, ok := l.Score("a")
	if !ok || score != 0 {
		t.Fatalf("Score(a) = %v, %v; want 0, true", score, ok)
	}
}

func TestRemove(t *testing.T) {
	l := New()
	l.Insert("a", 1)
	l.Insert("b", 2)
	if !l.Remove("a") {
		t.Fatal("Remove(a) should report true")
	}
	if l.Remove("a") {
		t.Fatal("second Remove(a) should report false")
	}
	if l.Len() != 1 {
		t.Fatalf("Len() = %d; want 1", l.Len())
	}
}

func TestRankAndByRank(t *testing.T) {
	l := New()
	for i, m := range []string{"a", "b", "c", "d", "e"} {
		l.Insert(m, float64(i))
	}
	for i, m := range []string{"a", "b", "c", "d", "e"} {
		rank, ok := l.Rank(m)
		if !ok || rank != i {
			t.Fatalf("Rank(%s) = %d, %v; want %d, true", m, rank, ok, i)
		}
		n := l.ByRank(i)
		if n == nil || n.Member != m {
			t.Fatalf("ByRank(%d) = %+v; want member %s", i, n, m)
		}
	}
	if _, ok := l.Rank("missing"); ok {
		t.Error("Rank(missing) should report false")
	}
	if n := l.ByRank(100); n != nil {
		t.Error("ByRank(100) should be nil for out-of-range rank")
	}
}

func TestRangeByRank(t *testing.T) {
	l := New()
	for i, m := range []string{"a", "b", "c", "d", "e"} {
		l.Insert(m, float64(i))
	}
	got := membersOf(l.RangeByRank(1, 3))
	want := []string{"b", "c", "d"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RangeByRank mismatch (-want +got):\n%s", diff)
	}
	if got := l.RangeByRank(10, 20); got != nil {
		t.Errorf("RangeByRank out of bounds = %v; want nil", got)
	}
}

func TestRangeByScore(t *testing.T) {
	l := New()
	l.Insert("a", 1)
	l.Insert("b", 2)
	l.Insert("c", 3)
	l.Insert("d", 4)
	got := membersOf(l.RangeByScore(2, 3))
	want := []string{"b", "c"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RangeByScore mismatch (-want +got):\n%s", diff)
	}
}

func TestManyInsertsMaintainSpanInvariant(t *testing.T) {
	l := New()
	const n = 500
	for i := 0; i < n; i++ {
		l.Insert("m"+strconv.Itoa(i), float64(n-i))
	}
	if l.Len() != n {
		t.Fatalf("Len() = %d; want %d", l.Len(), n)
	}
	all := l.All()
	for i := 1; i < len(all); i++ {
		if all[i-1].Score > all[i].Score {
			t.Fatalf("not ascending at %d: %v > %v", i, all[i-1].Score, all[i].Score)
		}
	}
	for i, n := range all {
		rank, ok := l.Rank(n.Member)
		if !ok || rank != i {
			t.Fatalf("Rank(%s) = %d, %v; want %d, true", n.Member, rank, ok, i)
		}
	}
}
