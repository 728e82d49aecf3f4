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

// Package rdb implements the binary snapshot codec of spec §4.8–4.11/§6:
// a writer that captures the entire keyspace to a temp file and commits
// it via rename, and a reader that replays that file back into a fresh
// Keyspace. The on-disk format is a magic header, a stream of opcodes
// and key/value records, and a trailing CRC-64 checksum.
package rdb

import (
	"bufio"
	"fmt"
	"hash/crc64"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/minikeydb/minikeydb/pkg/constants"
	"github.com/minikeydb/minikeydb/pkg/kerrors"
	"github.com/minikeydb/minikeydb/pkg/keyspace"
	"github.com/minikeydb/minikeydb/pkg/value"
)

var crcTable = crc64.MakeTable(crc64.ISO)

// Save writes the entire keyspace to path: magic header, then for each
// non-empty database a select-db opcode followed by its keys, then an
// eof opcode and CRC-64 trailer. The write lands in a temp file next to
// path and is committed with an atomic rename (spec §4.8 step 6).
func Save(ks *keyspace.Keyspace, path string, cfg value.Config, compress bool) error {
	dir := filepath.Dir(path)
	tmpPath := filepath.Join(dir, fmt.Sprintf("temp-%d.snapshot", os.Getpid()))

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("%w: creating temp snapshot: %v", kerrors.IOError, err)
	}
	cw := &checksumWriter{w: bufio.NewWriter(f), table: crcTable}

	if err := writeSnapshot(cw, ks, cfg, compress); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := cw.w.Flush(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: flushing snapshot: %v", kerrors.IOError, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: syncing snapshot: %v", kerrors.IOError, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: closing snapshot: %v", kerrors.IOError, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: committing snapshot: %v", kerrors.IOError, err)
	}
	log.Printf("rdb: saved snapshot to %s", path)
	return nil
}

func writeSnapshot(cw *checksumWriter, ks *keyspace.Keyspace, cfg value.Config, compress bool) error {
	if _, err := io.WriteString(cw, constants.SnapshotTag); err != nil {
		return ioErr(err)
	}
	if _, err := fmt.Fprintf(cw, "%04d", constants.SnapshotVersion); err != nil {
		return ioErr(err)
	}

	now := time.Now().UnixMilli()
	for dbIndex := 0; dbIndex < ks.DBCount(); dbIndex++ {
		var count int
		ks.Each(dbIndex, func(string, *value.Value, int64, bool) { count++ })
		if count == 0 {
			continue
		}
		if err := writeOp(cw, constants.OpSelectDB); err != nil {
			return err
		}
		if err := writeLength(cw, uint64(dbIndex)); err != nil {
			return err
		}
		var writeErr error
		ks.Each(dbIndex, func(key string, v *value.Value, deadlineMs int64, hasDeadline bool) {
			if writeErr != nil {
				return
			}
			if hasDeadline && deadlineMs <= now {
				return
			}
			if hasDeadline {
				if err := writeOp(cw, constants.OpExpireMillis); err != nil {
					writeErr = err
					return
				}
				if err := writeUint64LE(cw, uint64(deadlineMs)); err != nil {
					writeErr = err
					return
				}
			}
			if err := writeValue(cw, key, v, cfg, compress); err != nil {
				writeErr = err
			}
		})
		if writeErr != nil {
			return writeErr
		}
	}

	if err := writeOp(cw, constants.OpEOF); err != nil {
		return err
	}
	sum := cw.sum
	return writeUint64LE(cw.w, sum)
}

func ioErr(err error) error {
	return fmt.Errorf("%w: %v", kerrors.IOError, err)
}

func writeOp(w io.Writer, op byte) error {
	_, err := w.Write([]byte{op})
	if err != nil {
		return ioErr(err)
	}
	return nil
}

// Load replays the snapshot at path into ks, which must already exist
// with the same database count. Any truncation or I/O error is fatal
// (spec §4.11).
func Load(ks *keyspace.Keyspace, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: opening snapshot: %v", kerrors.IOError, err)
	}
	defer f.Close()

	ks.SetLoading(true)
	defer ks.SetLoading(false)

	raw, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("%w: reading snapshot: %v", kerrors.IOError, err)
	}
	if len(raw) < len(constants.SnapshotTag)+4 {
		return fmt.Errorf("%w: snapshot truncated before magic", kerrors.IOError)
	}
	body := raw[:len(raw)-8]
	trailer := raw[len(raw)-8:]

	r := newByteReader(body)
	tag := make([]byte, len(constants.SnapshotTag))
	if _, err := io.ReadFull(r, tag); err != nil || string(tag) != constants.SnapshotTag {
		return fmt.Errorf("%w: bad snapshot magic", kerrors.FormatUnsupported)
	}
	verBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, verBuf); err != nil {
		return fmt.Errorf("%w: truncated version field", kerrors.IOError)
	}
	var version int
	if _, err := fmt.Sscanf(string(verBuf), "%04d", &version); err != nil {
		return fmt.Errorf("%w: unparsable version field", kerrors.FormatUnsupported)
	}
	if version < constants.MinSupportedSnapshotVersion || version > constants.SnapshotVersion {
		return fmt.Errorf("%w: snapshot version %d", kerrors.FormatUnsupported, version)
	}

	stored := leUint64(trailer)
	if stored != 0 {
		computed := crc64.Checksum(raw[:len(raw)-8], crcTable)
		if computed != stored {
			return fmt.Errorf("%w: snapshot CRC-64", kerrors.ChecksumMismatch)
		}
	}

	dbIndex := 0
	var pendingDeadline int64
	hasPending := false
	for {
		op, err := r.ReadByte()
		if err != nil {
			return fmt.Errorf("%w: snapshot ended without eof opcode", kerrors.IOError)
		}
		switch op {
		case constants.OpEOF:
			return nil
		case constants.OpSelectDB:
			n, err := readLength(r)
			if err != nil {
				return err
			}
			dbIndex = int(n)
		case constants.OpExpireMillis:
			buf := make([]byte, 8)
			if _, err := io.ReadFull(r, buf); err != nil {
				return ioErr(err)
			}
			pendingDeadline = int64(leUint64(buf))
			hasPending = true
		case constants.OpExpireSeconds:
			buf := make([]byte, 4)
			if _, err := io.ReadFull(r, buf); err != nil {
				return ioErr(err)
			}
			pendingDeadline = int64(leUint32(buf)) * 1000
			hasPending = true
		default:
			key, v, err := readValue(r, op)
			if err != nil {
				return err
			}
			if err := ks.LoadKey(dbIndex, string(key), v, pendingDeadline, hasPending); err != nil {
				return err
			}
			hasPending = false
		}
	}
}
