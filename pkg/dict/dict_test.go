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

package dict

import (
	"fmt"
	"testing"
)

func TestSetGetDelete(t *testing.T) {
	d := New()
	if !d.Set("a", 1) {
		t.Fatal("Set(a) on new key should report true")
	}
	if d.Set("a", 2) {
		t.Fatal("Set(a) overwrite should report false")
	}
	v, ok := d.Get("a")
	if !ok || v.(int) != 2 {
		t.Fatalf("Get(a) = %v, %v; want 2, true", v, ok)
	}
	if !d.Delete("a") {
		t.Fatal("Delete(a) should report true")
	}
	if d.Delete("a") {
		t.Fatal("second Delete(a) should report false")
	}
	if _, ok := d.Get("a"); ok {
		t.Fatal("Get(a) after delete should report false")
	}
}

func TestGrowthTriggersRehash(t *testing.T) {
	d := New()
	const n = 200
	for i := 0; i < n; i++ {
		d.Set(fmt.Sprintf("key-%d", i), i)
	}
	if d.Len() != n {
		t.Fatalf("Len() = %d; want %d", d.Len(), n)
	}
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("key-%d", i)
		v, ok := d.Get(key)
		if !ok || v.(int) != i {
			t.Fatalf("Get(%s) = %v, %v; want %d, true", key, v, ok, i)
		}
	}
}

func TestRehashCompletesViaStep(t *testing.T) {
	d := New()
	for i := 0; i < 100; i++ {
		d.Set(fmt.Sprintf("key-%d", i), i)
	}
	if !d.Rehashing() {
		t.Skip("table did not need to grow for this input size")
	}
	for i := 0; i < 100000 && d.Rehashing(); i++ {
		d.Step()
	}
	if d.Rehashing() {
		t.Fatal("Step() never drained the old table")
	}
	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("key-%d", i)
		if _, ok := d.Get(key); !ok {
			t.Fatalf("Get(%s) missing after rehash completed", key)
		}
	}
}

func TestSafeIteratorSurvivesMutation(t *testing.T) {
	d := New()
	for i := 0; i < 50; i++ {
		d.Set(fmt.Sprintf("key-%d", i), i)
	}
	it := d.NewSafeIterator()
	defer it.Close()
	seen := 0
	for it.Next() {
		seen++
		d.Set(fmt.Sprintf("extra-%d", seen), seen) // must not corrupt the scan
	}
	if seen < 50 {
		t.Fatalf("safe iterator saw %d entries; want at least 50", seen)
	}
}

func TestNonSafeIteratorVisitsAllKeys(t *testing.T) {
	d := New()
	want := map[string]bool{}
	for i := 0; i < 30; i++ {
		key := fmt.Sprintf("key-%d", i)
		d.Set(key, i)
		want[key] = true
	}
	it := d.NewIterator()
	got := map[string]bool{}
	for it.Next() {
		got[it.Key()] = true
	}
	if len(got) != len(want) {
		t.Fatalf("iterator visited %d keys; want %d", len(got), len(want))
	}
	for k := range want {
		if !got[k] {
			t.Errorf("iterator missed key %q", k)
		}
	}
}

func TestRandomKey(t *testing.T) {
	d := New()
	if _, ok := d.RandomKey(); ok {
		t.Fatal("RandomKey on empty dict should report false")
	}
	d.Set("only", 1)
	k, ok := d.RandomKey()
	if !ok || k != "only" {
		t.Fatalf("RandomKey() = %q, %v; want only, true", k, ok)
	}
}

func TestPauseRehashingBlocksStep(t *testing.T) {
	d := New()
	for i := 0; i < 100; i++ {
		d.Set(fmt.Sprintf("key-%d", i), i)
	}
	if !d.Rehashing() {
		t.Skip("table did not need to grow for this input size")
	}
	d.PauseRehashing()
	idx := d.rehashIdx
	d.Step()
	if d.rehashIdx != idx {
		t.Fatal("Step() made progress while rehashing was paused")
	}
	d.ResumeRehashing()
}
