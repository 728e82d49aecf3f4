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

package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/minikeydb/minikeydb/pkg/glob"
	"github.com/minikeydb/minikeydb/pkg/kerrors"
	"github.com/minikeydb/minikeydb/pkg/strutil"
	"github.com/minikeydb/minikeydb/pkg/value"
)

// session is the mutable state a single repl/one-shot invocation carries
// across commands: which of the engine's databases is currently selected.
type session struct {
	e     *engine
	dbIdx int
}

// commandFunc runs one command's args (excluding the command name itself)
// against the session and returns the line to print, or an error.
type commandFunc func(s *session, args []string) (string, error)

var commandTable = map[string]commandFunc{
	"select":    cmdSelect,
	"dbsize":    cmdDBSize,
	"flushdb":   cmdFlushDB,
	"flushall":  cmdFlushAll,
	"keys":      cmdKeys,
	"randomkey": cmdRandomKey,
	"exists":    cmdExists,
	"del":       cmdDel,
	"type":      cmdType,
	"ttl":       cmdTTL,
	"expire":    cmdExpire,
	"persist":   cmdPersist,
	"rename":    cmdRename,
	"renamenx":  cmdRenameNX,
	"move":      cmdMove,

	"get":    cmdGet,
	"set":    cmdSet,
	"append": cmdAppend,
	"strlen": cmdStrlen,
	"incrby": cmdIncrBy,
	"incr":   cmdIncr,
	"decr":   cmdDecr,

	"lpush":   cmdListPush(true),
	"rpush":   cmdListPush(false),
	"lpop":    cmdListPop(true),
	"rpop":    cmdListPop(false),
	"llen":    cmdLLen,
	"lindex":  cmdLIndex,
	"lrange":  cmdLRange,
	"lrem":    cmdLRem,
	"linsert": cmdLInsert,

	"sadd":        cmdSAdd,
	"srem":        cmdSRem,
	"sismember":   cmdSIsMember,
	"scard":       cmdSCard,
	"smembers":    cmdSMembers,
	"srandmember": cmdSRandMember,
	"spop":        cmdSPop,
	"sinter":      cmdSetAlgebra(value.SetInter),
	"sunion":      cmdSetAlgebra(value.SetUnion),
	"sdiff":       cmdSetAlgebra(value.SetDiff),

	"zadd":            cmdZAdd,
	"zrem":            cmdZRem,
	"zscore":          cmdZScore,
	"zincrby":         cmdZIncrBy,
	"zcard":           cmdZCard,
	"zrank":           cmdZRank(false),
	"zrevrank":        cmdZRank(true),
	"zrange":          cmdZRange(false),
	"zrevrange":       cmdZRange(true),
	"zrangebyscore":   cmdZRangeByScore,
	"zcount":          cmdZCount,

	"hset":     cmdHSet,
	"hget":     cmdHGet,
	"hdel":     cmdHDel,
	"hexists":  cmdHExists,
	"hlen":     cmdHLen,
	"hkeys":    cmdHKeys,
	"hvals":    cmdHVals,
	"hgetall":  cmdHGetAll,
	"hincrby":  cmdHIncrBy,

	"save": cmdSave,
}

func dispatch(s *session, line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	name := strings.ToLower(fields[0])
	fn, ok := commandTable[name]
	if !ok {
		return "", fmt.Errorf("%w: unknown command %q", kerrors.Syntax, fields[0])
	}
	// Run key and value arguments through strutil.StringFromBytes: an
	// argument equal to one of its common strings (the category names and
	// "expire") shares that string's backing array; every other argument
	// is a plain copy. The keyspace itself does no interning.
	args := fields[1:]
	for i, a := range args {
		args[i] = strutil.StringFromBytes([]byte(a))
	}
	return fn(s, args)
}

func requireArgs(args []string, n int, usage string) error {
	if len(args) != n {
		return fmt.Errorf("%w: usage: %s", kerrors.Syntax, usage)
	}
	return nil
}

func requireMinArgs(args []string, n int, usage string) error {
	if len(args) < n {
		return fmt.Errorf("%w: usage: %s", kerrors.Syntax, usage)
	}
	return nil
}

// ---- admin ---------------------------------------------------------------

func cmdSelect(s *session, args []string) (string, error) {
	if err := requireArgs(args, 1, "select <db>"); err != nil {
		return "", err
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 || n >= s.e.ks.DBCount() {
		return "", fmt.Errorf("%w: invalid db index %q", kerrors.OutOfRange, args[0])
	}
	s.dbIdx = n
	return "OK", nil
}

func cmdDBSize(s *session, args []string) (string, error) {
	count := 0
	if err := s.e.ks.Each(s.dbIdx, func(string, *value.Value, int64, bool) { count++ }); err != nil {
		return "", err
	}
	return strconv.Itoa(count), nil
}

func cmdFlushDB(s *session, args []string) (string, error) {
	if err := s.e.ks.FlushDB(s.dbIdx); err != nil {
		return "", err
	}
	return "OK", nil
}

func cmdFlushAll(s *session, args []string) (string, error) {
	s.e.ks.FlushAll()
	return "OK", nil
}

func cmdKeys(s *session, args []string) (string, error) {
	if err := requireArgs(args, 1, "keys <pattern>"); err != nil {
		return "", err
	}
	pattern := []byte(args[0])
	var matched []string
	err := s.e.ks.Each(s.dbIdx, func(key string, v *value.Value, deadlineMs int64, hasDeadline bool) {
		if glob.Match(pattern, []byte(key)) {
			matched = append(matched, key)
		}
	})
	if err != nil {
		return "", err
	}
	return strings.Join(matched, "\n"), nil
}

func cmdRandomKey(s *session, args []string) (string, error) {
	key, ok, err := s.e.ks.RandomKey(s.dbIdx)
	if err != nil {
		return "", err
	}
	if !ok {
		return "(nil)", nil
	}
	return key, nil
}

func cmdExists(s *session, args []string) (string, error) {
	if err := requireArgs(args, 1, "exists <key>"); err != nil {
		return "", err
	}
	ok, err := s.e.ks.Exists(s.dbIdx, args[0])
	if err != nil {
		return "", err
	}
	return boolReply(ok), nil
}

func cmdDel(s *session, args []string) (string, error) {
	if err := requireMinArgs(args, 1, "del <key> [key ...]"); err != nil {
		return "", err
	}
	n := 0
	for _, key := range args {
		ok, err := s.e.ks.Delete(s.dbIdx, key)
		if err != nil {
			return "", err
		}
		if ok {
			n++
		}
	}
	return strconv.Itoa(n), nil
}

func cmdType(s *session, args []string) (string, error) {
	if err := requireArgs(args, 1, "type <key>"); err != nil {
		return "", err
	}
	v, err := lookupRead(s, args[0])
	if err != nil {
		if errors.Is(err, kerrors.NoSuchKey) {
			return "none", nil
		}
		return "", err
	}
	return v.Kind().String(), nil
}

func cmdTTL(s *session, args []string) (string, error) {
	if err := requireArgs(args, 1, "ttl <key>"); err != nil {
		return "", err
	}
	ttl, err := s.e.ks.TTLSeconds(s.dbIdx, args[0])
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(ttl, 10), nil
}

func cmdExpire(s *session, args []string) (string, error) {
	if err := requireArgs(args, 2, "expire <key> <seconds>"); err != nil {
		return "", err
	}
	secs, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: seconds must be an integer", kerrors.Syntax)
	}
	ok, err := s.e.ks.Exists(s.dbIdx, args[0])
	if err != nil {
		return "", err
	}
	if !ok {
		return boolReply(false), nil
	}
	deadline := time.Now().Add(time.Duration(secs) * time.Second).UnixMilli()
	if err := s.e.ks.SetExpire(s.dbIdx, args[0], deadline); err != nil {
		return "", err
	}
	return boolReply(true), nil
}

func cmdPersist(s *session, args []string) (string, error) {
	if err := requireArgs(args, 1, "persist <key>"); err != nil {
		return "", err
	}
	ok, err := s.e.ks.ClearExpire(s.dbIdx, args[0])
	if err != nil {
		return "", err
	}
	return boolReply(ok), nil
}

func cmdRename(s *session, args []string) (string, error) {
	if err := requireArgs(args, 2, "rename <src> <dst>"); err != nil {
		return "", err
	}
	if err := s.e.ks.Rename(s.dbIdx, args[0], args[1], true); err != nil {
		return "", err
	}
	return "OK", nil
}

func cmdRenameNX(s *session, args []string) (string, error) {
	if err := requireArgs(args, 2, "renamenx <src> <dst>"); err != nil {
		return "", err
	}
	if err := s.e.ks.Rename(s.dbIdx, args[0], args[1], false); err != nil {
		return boolReply(false), nil
	}
	return boolReply(true), nil
}

func cmdMove(s *session, args []string) (string, error) {
	if err := requireArgs(args, 2, "move <key> <db>"); err != nil {
		return "", err
	}
	dst, err := strconv.Atoi(args[1])
	if err != nil {
		return "", fmt.Errorf("%w: db must be an integer", kerrors.Syntax)
	}
	if err := s.e.ks.Move(s.dbIdx, dst, args[0]); err != nil {
		return boolReply(false), nil
	}
	return boolReply(true), nil
}

func boolReply(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func lookupRead(s *session, key string) (*value.Value, error) {
	return s.e.ks.LookupRead(s.dbIdx, key)
}

func lookupWrite(s *session, key string) (*value.Value, error) {
	return s.e.ks.LookupWrite(s.dbIdx, key)
}
