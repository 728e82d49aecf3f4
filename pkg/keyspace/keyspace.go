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

// Package keyspace implements the database and expiration engine of
// spec §4.6/§4.7: a fixed-size array of logical databases, each holding
// a primary map and an expirations map, with lazy-on-access expiration
// and a replication-aware deletion policy.
package keyspace

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/minikeydb/minikeydb/pkg/dict"
	"github.com/minikeydb/minikeydb/pkg/kerrors"
	"github.com/minikeydb/minikeydb/pkg/value"
)

// assertInvariant panics if cond is false. An expirations entry with no
// corresponding primary entry (spec §9) is a corrupted database, not a
// recoverable condition, so it is checked here rather than papered over.
func assertInvariant(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("keyspace: invariant violated: "+format, args...))
	}
}

// Notifier is the external change-notification collaborator of spec §6.
type Notifier interface {
	NotifyModified(db int, key string)
	NotifyFlushed(db int, all bool)
}

// Propagator is the external append-log/replication collaborator of
// spec §6, invoked before an expiration's local delete completes so log
// and replica state never observe the expiration before its cause
// (spec §5's ordering guarantee).
type Propagator interface {
	Propagate(db int, argv []string)
}

// noopNotifier/-Propagator let Keyspace be used standalone (e.g. in
// tests) without a real dispatcher wired in.
type noopNotifier struct{}

func (noopNotifier) NotifyModified(int, string) {}
func (noopNotifier) NotifyFlushed(int, bool)    {}

type noopPropagator struct{}

func (noopPropagator) Propagate(int, []string) {}

// Database is one logical database: a primary key→value map and an
// expirations key→deadline map. The expirations map may only hold a key
// present in primary (spec §3's sharing invariant).
type Database struct {
	primary     *dict.Dict
	expirations *dict.Dict
}

func newDatabase() *Database {
	return &Database{primary: dict.New(), expirations: dict.New()}
}

// Len returns the number of live keys (expired-but-not-yet-swept keys
// are still counted here; expiration is lazy).
func (d *Database) Len() int { return d.primary.Len() }

// Keyspace is the fixed-size array of databases plus the global state of
// spec §3: dirty-change counter, last-snapshot timestamp, snapshot child
// id, and leader/follower role.
type Keyspace struct {
	dbs        []*Database
	dirty      int64
	lastSave   time.Time
	snapshotID *uuid.UUID // non-nil while a background save is in flight
	isFollower bool
	loading    bool

	keyspaceHits   int64
	keyspaceMisses int64

	notifier   Notifier
	propagator Propagator

	now func() time.Time
}

// New returns a Keyspace with dbCount databases.
func New(dbCount int) *Keyspace {
	ks := &Keyspace{
		dbs:        make([]*Database, dbCount),
		notifier:   noopNotifier{},
		propagator: noopPropagator{},
		now:        time.Now,
	}
	for i := range ks.dbs {
		ks.dbs[i] = newDatabase()
	}
	return ks
}

// SetNotifier wires in the dispatcher's change-notification collaborator.
func (ks *Keyspace) SetNotifier(n Notifier) { ks.notifier = n }

// SetPropagator wires in the append-log/replication collaborator.
func (ks *Keyspace) SetPropagator(p Propagator) { ks.propagator = p }

// SetFollower marks this node as a replication follower: expiration
// checks become read-only (spec §4.7 step 3).
func (ks *Keyspace) SetFollower(follower bool) { ks.isFollower = follower }

// SetLoading marks whether a snapshot load is in progress: expiration
// checks are suppressed entirely while true (spec §4.7 step 2).
func (ks *Keyspace) SetLoading(loading bool) { ks.loading = loading }

// DirtyCount returns the monotonic change counter.
func (ks *Keyspace) DirtyCount() int64 { return ks.dirty }

// HitMissCounts returns the cumulative lookup-read hit/miss counts (§4.6).
func (ks *Keyspace) HitMissCounts() (hits, misses int64) { return ks.keyspaceHits, ks.keyspaceMisses }

// db validates and returns the database at index i.
func (ks *Keyspace) db(i int) (*Database, error) {
	if i < 0 || i >= len(ks.dbs) {
		return nil, kerrors.OutOfRange
	}
	return ks.dbs[i], nil
}

// DBCount returns the number of logical databases.
func (ks *Keyspace) DBCount() int { return len(ks.dbs) }

// ---- expiration (spec §4.7) -------------------------------------------

// ExpireIfNeeded implements spec §4.7's contract. Returns true if key is
// (now considered) expired.
func (ks *Keyspace) ExpireIfNeeded(dbIndex int, key string) (expired bool, err error) {
	d, err := ks.db(dbIndex)
	if err != nil {
		return false, err
	}
	deadlineVal, has := d.expirations.Get(key)
	if !has {
		return false, nil
	}
	if _, ok := d.primary.Get(key); !ok {
		assertInvariant(false, "key %q has an expiration entry but no primary entry", key)
	}
	deadline := deadlineVal.(int64)
	if ks.loading {
		return false, nil
	}
	now := ks.now().UnixMilli()
	if ks.isFollower {
		return now > deadline, nil
	}
	if now <= deadline {
		return false, nil
	}
	ks.dirty++
	ks.propagator.Propagate(dbIndex, []string{"DEL", key})
	ks.deleteLocal(d, key)
	ks.notifier.NotifyModified(dbIndex, key)
	return true, nil
}

func (ks *Keyspace) deleteLocal(d *Database, key string) {
	d.expirations.Delete(key)
	d.primary.Delete(key)
}

// SetExpire upserts key's deadline (absolute ms since epoch).
// Precondition: key exists.
func (ks *Keyspace) SetExpire(dbIndex int, key string, deadlineMs int64) error {
	d, err := ks.db(dbIndex)
	if err != nil {
		return err
	}
	if _, ok := d.primary.Get(key); !ok {
		return kerrors.NoSuchKey
	}
	if !ks.isFollower && !ks.loading && deadlineMs <= ks.now().UnixMilli() {
		ks.dirty++
		ks.propagator.Propagate(dbIndex, []string{"DEL", key})
		ks.deleteLocal(d, key)
		ks.notifier.NotifyModified(dbIndex, key)
		return nil
	}
	d.expirations.Set(key, deadlineMs)
	return nil
}

// GetExpire returns key's deadline, or ok=false if it has none.
func (ks *Keyspace) GetExpire(dbIndex int, key string) (deadlineMs int64, ok bool, err error) {
	d, err := ks.db(dbIndex)
	if err != nil {
		return 0, false, err
	}
	v, has := d.expirations.Get(key)
	if !has {
		return 0, false, nil
	}
	return v.(int64), true, nil
}

// ClearExpire removes key's deadline, reporting whether one was removed.
func (ks *Keyspace) ClearExpire(dbIndex int, key string) (bool, error) {
	d, err := ks.db(dbIndex)
	if err != nil {
		return false, err
	}
	return d.expirations.Delete(key), nil
}

// TTLSeconds returns -2 if key is absent, -1 if it has no expiration, or
// the remaining seconds to deadline (rounded half-up) otherwise.
func (ks *Keyspace) TTLSeconds(dbIndex int, key string) (int64, error) {
	if _, err := ks.LookupRead(dbIndex, key); err == kerrors.NoSuchKey {
		return -2, nil
	} else if err != nil {
		return 0, err
	}
	deadline, ok, err := ks.GetExpire(dbIndex, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return -1, nil
	}
	remainingMs := deadline - ks.now().UnixMilli()
	if remainingMs < 0 {
		remainingMs = 0
	}
	return (remainingMs + 500) / 1000, nil
}

// ---- database operations (spec §4.6) ----------------------------------

// LookupRead resolves expiration then returns key's value, counting a
// miss or a hit. Access timestamp is touched unless a snapshot save is
// in flight (to preserve copy-on-write).
func (ks *Keyspace) LookupRead(dbIndex int, key string) (*value.Value, error) {
	if _, err := ks.ExpireIfNeeded(dbIndex, key); err != nil {
		return nil, err
	}
	d, err := ks.db(dbIndex)
	if err != nil {
		return nil, err
	}
	v, ok := d.primary.Get(key)
	if !ok {
		ks.keyspaceMisses++
		return nil, kerrors.NoSuchKey
	}
	ks.keyspaceHits++
	val := v.(*value.Value)
	if ks.snapshotID == nil {
		val.Touch(ks.now())
	}
	return val, nil
}

// LookupWrite is LookupRead without hit/miss accounting.
func (ks *Keyspace) LookupWrite(dbIndex int, key string) (*value.Value, error) {
	if _, err := ks.ExpireIfNeeded(dbIndex, key); err != nil {
		return nil, err
	}
	d, err := ks.db(dbIndex)
	if err != nil {
		return nil, err
	}
	v, ok := d.primary.Get(key)
	if !ok {
		return nil, kerrors.NoSuchKey
	}
	val := v.(*value.Value)
	if ks.snapshotID == nil {
		val.Touch(ks.now())
	}
	return val, nil
}

// Add inserts a new key. Precondition: key absent.
func (ks *Keyspace) Add(dbIndex int, key string, v *value.Value) error {
	d, err := ks.db(dbIndex)
	if err != nil {
		return err
	}
	if _, ok := d.primary.Get(key); ok {
		return kerrors.OutOfRange
	}
	d.primary.Set(key, v)
	ks.dirty++
	return nil
}

// Overwrite replaces an existing key's value, preserving its expiration.
// Precondition: key present.
func (ks *Keyspace) Overwrite(dbIndex int, key string, v *value.Value) error {
	d, err := ks.db(dbIndex)
	if err != nil {
		return err
	}
	if _, ok := d.primary.Get(key); !ok {
		return kerrors.NoSuchKey
	}
	d.primary.Set(key, v)
	ks.dirty++
	return nil
}

// Set is add-or-overwrite: clears any expiration and notifies.
func (ks *Keyspace) Set(dbIndex int, key string, v *value.Value) error {
	d, err := ks.db(dbIndex)
	if err != nil {
		return err
	}
	d.primary.Set(key, v)
	d.expirations.Delete(key)
	ks.dirty++
	ks.notifier.NotifyModified(dbIndex, key)
	return nil
}

// Delete removes key (expiration first, then primary), reporting
// whether it existed.
func (ks *Keyspace) Delete(dbIndex int, key string) (bool, error) {
	d, err := ks.db(dbIndex)
	if err != nil {
		return false, err
	}
	d.expirations.Delete(key)
	existed := d.primary.Delete(key)
	if existed {
		ks.dirty++
		ks.notifier.NotifyModified(dbIndex, key)
	}
	return existed, nil
}

// Exists reports whether key is present (after lazy expiration).
func (ks *Keyspace) Exists(dbIndex int, key string) (bool, error) {
	_, err := ks.LookupRead(dbIndex, key)
	if err == kerrors.NoSuchKey {
		return false, nil
	}
	return err == nil, err
}

// RandomKey samples the primary map uniformly at random, re-sampling if
// the drawn key turns out to be expired. Bounded by the database's key
// count so an all-expired database terminates instead of looping.
func (ks *Keyspace) RandomKey(dbIndex int) (string, bool, error) {
	d, err := ks.db(dbIndex)
	if err != nil {
		return "", false, err
	}
	attempts := d.primary.Len()
	for i := 0; i < attempts; i++ {
		key, ok := d.primary.RandomKey()
		if !ok {
			return "", false, nil
		}
		expired, err := ks.ExpireIfNeeded(dbIndex, key)
		if err != nil {
			return "", false, err
		}
		if !expired {
			return key, true, nil
		}
	}
	return "", false, nil
}

// Rename atomically moves src to dst including its expiration.
func (ks *Keyspace) Rename(dbIndex int, src, dst string, allowOverwrite bool) error {
	d, err := ks.db(dbIndex)
	if err != nil {
		return err
	}
	v, ok := d.primary.Get(src)
	if !ok {
		return kerrors.NoSuchKey
	}
	if _, exists := d.primary.Get(dst); exists {
		if !allowOverwrite {
			// §7 has no dedicated "destination exists" kind; OutOfRange
			// is the closest fit (RENAMENX on an existing dst is a
			// rejected precondition, not a different failure category).
			return kerrors.OutOfRange
		}
		d.expirations.Delete(dst)
	}
	deadline, hadExpire := d.expirations.Get(src)
	d.primary.Delete(src)
	d.expirations.Delete(src)
	d.primary.Set(dst, v)
	if hadExpire {
		d.expirations.Set(dst, deadline)
	}
	ks.dirty++
	ks.notifier.NotifyModified(dbIndex, src)
	ks.notifier.NotifyModified(dbIndex, dst)
	return nil
}

// Move relocates key from srcDB to dstDB. Fails if key is absent in src,
// present in dst, or srcDB==dstDB.
func (ks *Keyspace) Move(srcDB, dstDB int, key string) error {
	if srcDB == dstDB {
		return kerrors.OutOfRange
	}
	src, err := ks.db(srcDB)
	if err != nil {
		return err
	}
	dst, err := ks.db(dstDB)
	if err != nil {
		return err
	}
	v, ok := src.primary.Get(key)
	if !ok {
		return kerrors.NoSuchKey
	}
	if _, exists := dst.primary.Get(key); exists {
		return kerrors.OutOfRange
	}
	deadline, hadExpire := src.expirations.Get(key)
	src.primary.Delete(key)
	src.expirations.Delete(key)
	dst.primary.Set(key, v)
	if hadExpire {
		dst.expirations.Set(key, deadline)
	}
	ks.dirty++
	ks.notifier.NotifyModified(srcDB, key)
	ks.notifier.NotifyModified(dstDB, key)
	return nil
}

// FlushDB empties one database.
func (ks *Keyspace) FlushDB(dbIndex int) error {
	if _, err := ks.db(dbIndex); err != nil {
		return err
	}
	ks.dbs[dbIndex] = newDatabase()
	ks.dirty++
	ks.notifier.NotifyFlushed(dbIndex, false)
	return nil
}

// FlushAll empties every database.
func (ks *Keyspace) FlushAll() {
	for i := range ks.dbs {
		ks.dbs[i] = newDatabase()
	}
	ks.dirty++
	ks.notifier.NotifyFlushed(-1, true)
}

// ---- snapshot coordination (spec §4.8, §5) -----------------------------

// BeginSnapshot records that a background save child has started and
// pauses rehash on every database's primary and expirations dicts
// until EndSnapshot is called. Returns the synthetic child id
// standing in for the fork()-based child pid real Redis would use (spec
// §9's "Go has no fork" design note).
func (ks *Keyspace) BeginSnapshot() (uuid.UUID, error) {
	if ks.snapshotID != nil {
		return uuid.UUID{}, kerrors.AlreadyInProgress
	}
	id := uuid.New()
	ks.snapshotID = &id
	for _, d := range ks.dbs {
		d.primary.PauseRehashing()
		d.expirations.PauseRehashing()
	}
	return id, nil
}

// EndSnapshot clears the in-flight snapshot marker and resumes rehash.
func (ks *Keyspace) EndSnapshot() {
	if ks.snapshotID == nil {
		return
	}
	for _, d := range ks.dbs {
		d.primary.ResumeRehashing()
		d.expirations.ResumeRehashing()
	}
	ks.snapshotID = nil
	ks.lastSave = ks.now()
}

// SnapshotInProgress reports whether a background save is in flight.
func (ks *Keyspace) SnapshotInProgress() bool { return ks.snapshotID != nil }

// LastSave returns the timestamp of the most recently completed save.
func (ks *Keyspace) LastSave() time.Time { return ks.lastSave }

// Each calls fn for every key in dbIndex's primary map, with its
// deadline if it has one, without mutating state. Keys whose deadline
// has passed are still passed to fn; callers such as pkg/rdb's writer
// compare the deadline against their own clock and skip those keys.
func (ks *Keyspace) Each(dbIndex int, fn func(key string, v *value.Value, deadlineMs int64, hasDeadline bool)) error {
	d, err := ks.db(dbIndex)
	if err != nil {
		return err
	}
	it := d.primary.NewSafeIterator()
	defer it.Close()
	for it.Next() {
		key := it.Key()
		v := it.Value().(*value.Value)
		deadline, has := d.expirations.Get(key)
		if has {
			fn(key, v, deadline.(int64), true)
		} else {
			fn(key, v, 0, false)
		}
	}
	return nil
}

// LoadKey inserts key with v during snapshot load (spec §4.11), applying
// deadlineMs if hasDeadline. If this node is the leader and deadlineMs
// is already in the past, the key is dropped instead of inserted.
func (ks *Keyspace) LoadKey(dbIndex int, key string, v *value.Value, deadlineMs int64, hasDeadline bool) error {
	d, err := ks.db(dbIndex)
	if err != nil {
		return err
	}
	if hasDeadline && !ks.isFollower && deadlineMs <= ks.now().UnixMilli() {
		return nil
	}
	d.primary.Set(key, v)
	if hasDeadline {
		d.expirations.Set(key, deadlineMs)
	}
	return nil
}
