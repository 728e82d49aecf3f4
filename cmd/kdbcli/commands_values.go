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

	"github.com/minikeydb/minikeydb/pkg/kerrors"
	"github.com/minikeydb/minikeydb/pkg/value"
)

// getOrCreate fetches key's value, creating it with newFn (and adding it
// to the keyspace) if absent. Returns WrongKind if key exists but isn't
// of kind.
func getOrCreate(s *session, key string, kind value.Kind, newFn func() *value.Value) (*value.Value, error) {
	v, err := lookupWrite(s, key)
	if errors.Is(err, kerrors.NoSuchKey) {
		v = newFn()
		if err := s.e.ks.Add(s.dbIdx, key, v); err != nil {
			return nil, err
		}
		return v, nil
	}
	if err != nil {
		return nil, err
	}
	if v.Kind() != kind {
		return nil, kerrors.WrongKind
	}
	return v, nil
}

func replyBytes(b []byte, ok bool) string {
	if !ok {
		return "(nil)"
	}
	return string(b)
}

func replyBytesList(items [][]byte) string {
	lines := make([]string, len(items))
	for i, b := range items {
		lines[i] = string(b)
	}
	return strings.Join(lines, "\n")
}

func replyFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// ---- string ----------------------------------------------------------

func cmdGet(s *session, args []string) (string, error) {
	if err := requireArgs(args, 1, "get <key>"); err != nil {
		return "", err
	}
	v, err := lookupRead(s, args[0])
	if errors.Is(err, kerrors.NoSuchKey) {
		return "(nil)", nil
	}
	if err != nil {
		return "", err
	}
	b, err := v.StringGet()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func cmdSet(s *session, args []string) (string, error) {
	if err := requireArgs(args, 2, "set <key> <value>"); err != nil {
		return "", err
	}
	if err := s.e.ks.Set(s.dbIdx, args[0], value.NewString([]byte(args[1]), s.e.cfg.ValueConfig)); err != nil {
		return "", err
	}
	return "OK", nil
}

func cmdAppend(s *session, args []string) (string, error) {
	if err := requireArgs(args, 2, "append <key> <value>"); err != nil {
		return "", err
	}
	v, err := getOrCreate(s, args[0], value.KindString, func() *value.Value {
		return value.NewString(nil, s.e.cfg.ValueConfig)
	})
	if err != nil {
		return "", err
	}
	n, err := v.StringAppend([]byte(args[1]), s.e.cfg.ValueConfig)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(n), nil
}

func cmdStrlen(s *session, args []string) (string, error) {
	if err := requireArgs(args, 1, "strlen <key>"); err != nil {
		return "", err
	}
	v, err := lookupRead(s, args[0])
	if errors.Is(err, kerrors.NoSuchKey) {
		return "0", nil
	}
	if err != nil {
		return "", err
	}
	n, err := v.StringLen()
	if err != nil {
		return "", err
	}
	return strconv.Itoa(n), nil
}

func incrByCommand(s *session, key string, delta int64) (string, error) {
	v, err := getOrCreate(s, key, value.KindString, func() *value.Value {
		return value.NewString([]byte("0"), s.e.cfg.ValueConfig)
	})
	if err != nil {
		return "", err
	}
	n, err := v.StringIncrBy(delta, s.e.cfg.ValueConfig)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n, 10), nil
}

func cmdIncrBy(s *session, args []string) (string, error) {
	if err := requireArgs(args, 2, "incrby <key> <delta>"); err != nil {
		return "", err
	}
	delta, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: delta must be an integer", kerrors.Syntax)
	}
	return incrByCommand(s, args[0], delta)
}

func cmdIncr(s *session, args []string) (string, error) {
	if err := requireArgs(args, 1, "incr <key>"); err != nil {
		return "", err
	}
	return incrByCommand(s, args[0], 1)
}

func cmdDecr(s *session, args []string) (string, error) {
	if err := requireArgs(args, 1, "decr <key>"); err != nil {
		return "", err
	}
	return incrByCommand(s, args[0], -1)
}

// ---- list --------------------------------------------------------------

func cmdListPush(head bool) commandFunc {
	return func(s *session, args []string) (string, error) {
		if err := requireMinArgs(args, 2, "lpush/rpush <key> <value> [value ...]"); err != nil {
			return "", err
		}
		v, err := getOrCreate(s, args[0], value.KindList, value.NewList)
		if err != nil {
			return "", err
		}
		vals := make([][]byte, len(args)-1)
		for i, a := range args[1:] {
			vals[i] = []byte(a)
		}
		n, err := v.ListPush(head, s.e.cfg.ValueConfig, vals...)
		if err != nil {
			return "", err
		}
		return strconv.Itoa(n), nil
	}
}

func cmdListPop(head bool) commandFunc {
	return func(s *session, args []string) (string, error) {
		if err := requireArgs(args, 1, "lpop/rpop <key>"); err != nil {
			return "", err
		}
		v, err := lookupWrite(s, args[0])
		if errors.Is(err, kerrors.NoSuchKey) {
			return "(nil)", nil
		}
		if err != nil {
			return "", err
		}
		b, err := v.ListPop(head)
		if err != nil {
			return "", err
		}
		if n, _ := v.ListLen(); n == 0 {
			s.e.ks.Delete(s.dbIdx, args[0])
		}
		return string(b), nil
	}
}

func cmdLLen(s *session, args []string) (string, error) {
	if err := requireArgs(args, 1, "llen <key>"); err != nil {
		return "", err
	}
	v, err := lookupRead(s, args[0])
	if errors.Is(err, kerrors.NoSuchKey) {
		return "0", nil
	}
	if err != nil {
		return "", err
	}
	n, err := v.ListLen()
	if err != nil {
		return "", err
	}
	return strconv.Itoa(n), nil
}

func cmdLIndex(s *session, args []string) (string, error) {
	if err := requireArgs(args, 2, "lindex <key> <index>"); err != nil {
		return "", err
	}
	i, err := strconv.Atoi(args[1])
	if err != nil {
		return "", fmt.Errorf("%w: index must be an integer", kerrors.Syntax)
	}
	v, err := lookupRead(s, args[0])
	if errors.Is(err, kerrors.NoSuchKey) {
		return "(nil)", nil
	}
	if err != nil {
		return "", err
	}
	b, err := v.ListIndex(i)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func cmdLRange(s *session, args []string) (string, error) {
	if err := requireArgs(args, 3, "lrange <key> <start> <stop>"); err != nil {
		return "", err
	}
	start, err1 := strconv.Atoi(args[1])
	stop, err2 := strconv.Atoi(args[2])
	if err1 != nil || err2 != nil {
		return "", fmt.Errorf("%w: start/stop must be integers", kerrors.Syntax)
	}
	v, err := lookupRead(s, args[0])
	if errors.Is(err, kerrors.NoSuchKey) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	items, err := v.ListRange(start, stop)
	if err != nil {
		return "", err
	}
	return replyBytesList(items), nil
}

func cmdLRem(s *session, args []string) (string, error) {
	if err := requireArgs(args, 3, "lrem <key> <count> <value>"); err != nil {
		return "", err
	}
	count, err := strconv.Atoi(args[1])
	if err != nil {
		return "", fmt.Errorf("%w: count must be an integer", kerrors.Syntax)
	}
	v, err := lookupWrite(s, args[0])
	if errors.Is(err, kerrors.NoSuchKey) {
		return "0", nil
	}
	if err != nil {
		return "", err
	}
	n, err := v.ListRemove([]byte(args[2]), count)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(n), nil
}

func cmdLInsert(s *session, args []string) (string, error) {
	if err := requireArgs(args, 4, "linsert <key> before|after <pivot> <value>"); err != nil {
		return "", err
	}
	var before bool
	switch strings.ToLower(args[1]) {
	case "before":
		before = true
	case "after":
		before = false
	default:
		return "", fmt.Errorf("%w: must be BEFORE or AFTER", kerrors.Syntax)
	}
	v, err := lookupWrite(s, args[0])
	if errors.Is(err, kerrors.NoSuchKey) {
		return "0", nil
	}
	if err != nil {
		return "", err
	}
	n, err := v.ListInsert(before, []byte(args[2]), []byte(args[3]), s.e.cfg.ValueConfig)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(n), nil
}

// ---- set ---------------------------------------------------------------

func cmdSAdd(s *session, args []string) (string, error) {
	if err := requireMinArgs(args, 2, "sadd <key> <member> [member ...]"); err != nil {
		return "", err
	}
	v, err := getOrCreate(s, args[0], value.KindSet, value.NewSet)
	if err != nil {
		return "", err
	}
	members := make([][]byte, len(args)-1)
	for i, a := range args[1:] {
		members[i] = []byte(a)
	}
	n, err := v.SetAdd(s.e.cfg.ValueConfig, members...)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(n), nil
}

func cmdSRem(s *session, args []string) (string, error) {
	if err := requireMinArgs(args, 2, "srem <key> <member> [member ...]"); err != nil {
		return "", err
	}
	v, err := lookupWrite(s, args[0])
	if errors.Is(err, kerrors.NoSuchKey) {
		return "0", nil
	}
	if err != nil {
		return "", err
	}
	members := make([][]byte, len(args)-1)
	for i, a := range args[1:] {
		members[i] = []byte(a)
	}
	n, err := v.SetRemove(members...)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(n), nil
}

func cmdSIsMember(s *session, args []string) (string, error) {
	if err := requireArgs(args, 2, "sismember <key> <member>"); err != nil {
		return "", err
	}
	v, err := lookupRead(s, args[0])
	if errors.Is(err, kerrors.NoSuchKey) {
		return boolReply(false), nil
	}
	if err != nil {
		return "", err
	}
	ok, err := v.SetIsMember([]byte(args[1]))
	if err != nil {
		return "", err
	}
	return boolReply(ok), nil
}

func cmdSCard(s *session, args []string) (string, error) {
	if err := requireArgs(args, 1, "scard <key>"); err != nil {
		return "", err
	}
	v, err := lookupRead(s, args[0])
	if errors.Is(err, kerrors.NoSuchKey) {
		return "0", nil
	}
	if err != nil {
		return "", err
	}
	n, err := v.SetCard()
	if err != nil {
		return "", err
	}
	return strconv.Itoa(n), nil
}

func cmdSMembers(s *session, args []string) (string, error) {
	if err := requireArgs(args, 1, "smembers <key>"); err != nil {
		return "", err
	}
	v, err := lookupRead(s, args[0])
	if errors.Is(err, kerrors.NoSuchKey) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	members, err := v.SetMembers()
	if err != nil {
		return "", err
	}
	return replyBytesList(members), nil
}

func cmdSRandMember(s *session, args []string) (string, error) {
	if err := requireArgs(args, 1, "srandmember <key>"); err != nil {
		return "", err
	}
	v, err := lookupRead(s, args[0])
	if errors.Is(err, kerrors.NoSuchKey) {
		return "(nil)", nil
	}
	if err != nil {
		return "", err
	}
	b, ok, err := v.SetRandomMember()
	if err != nil {
		return "", err
	}
	return replyBytes(b, ok), nil
}

func cmdSPop(s *session, args []string) (string, error) {
	if err := requireArgs(args, 1, "spop <key>"); err != nil {
		return "", err
	}
	v, err := lookupWrite(s, args[0])
	if errors.Is(err, kerrors.NoSuchKey) {
		return "(nil)", nil
	}
	if err != nil {
		return "", err
	}
	b, ok, err := v.SetPopRandom()
	if err != nil {
		return "", err
	}
	if n, _ := v.SetCard(); n == 0 {
		s.e.ks.Delete(s.dbIdx, args[0])
	}
	return replyBytes(b, ok), nil
}

func cmdSetAlgebra(fn func(sets ...*value.Value) ([][]byte, error)) commandFunc {
	return func(s *session, args []string) (string, error) {
		if err := requireMinArgs(args, 1, "sinter/sunion/sdiff <key> [key ...]"); err != nil {
			return "", err
		}
		sets := make([]*value.Value, 0, len(args))
		for _, key := range args {
			v, err := lookupRead(s, key)
			if errors.Is(err, kerrors.NoSuchKey) {
				sets = append(sets, value.NewSet())
				continue
			}
			if err != nil {
				return "", err
			}
			sets = append(sets, v)
		}
		result, err := fn(sets...)
		if err != nil {
			return "", err
		}
		return replyBytesList(result), nil
	}
}

// ---- zset ----------------------------------------------------------------

func cmdZAdd(s *session, args []string) (string, error) {
	if err := requireMinArgs(args, 3, "zadd <key> <score> <member> [score member ...]"); err != nil {
		return "", err
	}
	if (len(args)-1)%2 != 0 {
		return "", fmt.Errorf("%w: zadd needs score/member pairs", kerrors.Syntax)
	}
	v, err := getOrCreate(s, args[0], value.KindZSet, value.NewZSet)
	if err != nil {
		return "", err
	}
	added := 0
	for i := 1; i < len(args); i += 2 {
		score, err := strconv.ParseFloat(args[i], 64)
		if err != nil {
			return "", fmt.Errorf("%w: score must be a float", kerrors.Syntax)
		}
		isNew, err := v.ZSetAdd([]byte(args[i+1]), score, s.e.cfg.ValueConfig)
		if err != nil {
			return "", err
		}
		if isNew {
			added++
		}
	}
	return strconv.Itoa(added), nil
}

func cmdZRem(s *session, args []string) (string, error) {
	if err := requireMinArgs(args, 2, "zrem <key> <member> [member ...]"); err != nil {
		return "", err
	}
	v, err := lookupWrite(s, args[0])
	if errors.Is(err, kerrors.NoSuchKey) {
		return "0", nil
	}
	if err != nil {
		return "", err
	}
	n := 0
	for _, m := range args[1:] {
		ok, err := v.ZSetRemove([]byte(m))
		if err != nil {
			return "", err
		}
		if ok {
			n++
		}
	}
	return strconv.Itoa(n), nil
}

func cmdZScore(s *session, args []string) (string, error) {
	if err := requireArgs(args, 2, "zscore <key> <member>"); err != nil {
		return "", err
	}
	v, err := lookupRead(s, args[0])
	if errors.Is(err, kerrors.NoSuchKey) {
		return "(nil)", nil
	}
	if err != nil {
		return "", err
	}
	score, ok, err := v.ZSetScore([]byte(args[1]))
	if err != nil {
		return "", err
	}
	if !ok {
		return "(nil)", nil
	}
	return replyFloat(score), nil
}

func cmdZIncrBy(s *session, args []string) (string, error) {
	if err := requireArgs(args, 3, "zincrby <key> <delta> <member>"); err != nil {
		return "", err
	}
	delta, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return "", fmt.Errorf("%w: delta must be a float", kerrors.Syntax)
	}
	v, err := getOrCreate(s, args[0], value.KindZSet, value.NewZSet)
	if err != nil {
		return "", err
	}
	score, err := v.ZSetIncrBy([]byte(args[2]), delta, s.e.cfg.ValueConfig)
	if err != nil {
		return "", err
	}
	return replyFloat(score), nil
}

func cmdZCard(s *session, args []string) (string, error) {
	if err := requireArgs(args, 1, "zcard <key>"); err != nil {
		return "", err
	}
	v, err := lookupRead(s, args[0])
	if errors.Is(err, kerrors.NoSuchKey) {
		return "0", nil
	}
	if err != nil {
		return "", err
	}
	n, err := v.ZSetLen()
	if err != nil {
		return "", err
	}
	return strconv.Itoa(n), nil
}

func cmdZRank(reverse bool) commandFunc {
	return func(s *session, args []string) (string, error) {
		if err := requireArgs(args, 2, "zrank/zrevrank <key> <member>"); err != nil {
			return "", err
		}
		v, err := lookupRead(s, args[0])
		if errors.Is(err, kerrors.NoSuchKey) {
			return "(nil)", nil
		}
		if err != nil {
			return "", err
		}
		rank, ok, err := v.ZSetRank([]byte(args[1]), reverse)
		if err != nil {
			return "", err
		}
		if !ok {
			return "(nil)", nil
		}
		return strconv.Itoa(rank), nil
	}
}

func replyPairs(pairs []value.Pair) string {
	lines := make([]string, len(pairs))
	for i, p := range pairs {
		lines[i] = fmt.Sprintf("%s %s", p.Member, replyFloat(p.Score))
	}
	return strings.Join(lines, "\n")
}

func cmdZRange(reverse bool) commandFunc {
	return func(s *session, args []string) (string, error) {
		if err := requireArgs(args, 3, "zrange/zrevrange <key> <start> <stop>"); err != nil {
			return "", err
		}
		start, err1 := strconv.Atoi(args[1])
		stop, err2 := strconv.Atoi(args[2])
		if err1 != nil || err2 != nil {
			return "", fmt.Errorf("%w: start/stop must be integers", kerrors.Syntax)
		}
		v, err := lookupRead(s, args[0])
		if errors.Is(err, kerrors.NoSuchKey) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		pairs, err := v.ZSetRangeByRank(start, stop, reverse)
		if err != nil {
			return "", err
		}
		return replyPairs(pairs), nil
	}
}

func cmdZRangeByScore(s *session, args []string) (string, error) {
	if err := requireArgs(args, 3, "zrangebyscore <key> <min> <max>"); err != nil {
		return "", err
	}
	r, err := parseScoreRange(args[1], args[2])
	if err != nil {
		return "", err
	}
	v, err := lookupRead(s, args[0])
	if errors.Is(err, kerrors.NoSuchKey) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	pairs, err := v.ZSetRangeByScore(r)
	if err != nil {
		return "", err
	}
	return replyPairs(pairs), nil
}

func cmdZCount(s *session, args []string) (string, error) {
	if err := requireArgs(args, 3, "zcount <key> <min> <max>"); err != nil {
		return "", err
	}
	r, err := parseScoreRange(args[1], args[2])
	if err != nil {
		return "", err
	}
	v, err := lookupRead(s, args[0])
	if errors.Is(err, kerrors.NoSuchKey) {
		return "0", nil
	}
	if err != nil {
		return "", err
	}
	n, err := v.ZSetCountInRange(r)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(n), nil
}

// parseScoreRange parses the "(bound" exclusive-prefix convention shared
// by ZRANGEBYSCORE and ZCOUNT.
func parseScoreRange(minArg, maxArg string) (value.ScoreRange, error) {
	min, minExcl, err := parseScoreBound(minArg)
	if err != nil {
		return value.ScoreRange{}, err
	}
	max, maxExcl, err := parseScoreBound(maxArg)
	if err != nil {
		return value.ScoreRange{}, err
	}
	return value.ScoreRange{Min: min, Max: max, MinExcl: minExcl, MaxExcl: maxExcl}, nil
}

func parseScoreBound(s string) (float64, bool, error) {
	excl := strings.HasPrefix(s, "(")
	if excl {
		s = s[1:]
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: score bound must be a float", kerrors.Syntax)
	}
	return f, excl, nil
}

// ---- hash ------------------------------------------------------------

func cmdHSet(s *session, args []string) (string, error) {
	if err := requireMinArgs(args, 3, "hset <key> <field> <value> [field value ...]"); err != nil {
		return "", err
	}
	if (len(args)-1)%2 != 0 {
		return "", fmt.Errorf("%w: hset needs field/value pairs", kerrors.Syntax)
	}
	v, err := getOrCreate(s, args[0], value.KindHash, value.NewHash)
	if err != nil {
		return "", err
	}
	pairs := make([]value.FieldValue, 0, (len(args)-1)/2)
	for i := 1; i < len(args); i += 2 {
		pairs = append(pairs, value.FieldValue{Field: []byte(args[i]), Value: []byte(args[i+1])})
	}
	n, err := v.HashSetFields(s.e.cfg.ValueConfig, pairs...)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(n), nil
}

func cmdHGet(s *session, args []string) (string, error) {
	if err := requireArgs(args, 2, "hget <key> <field>"); err != nil {
		return "", err
	}
	v, err := lookupRead(s, args[0])
	if errors.Is(err, kerrors.NoSuchKey) {
		return "(nil)", nil
	}
	if err != nil {
		return "", err
	}
	b, ok, err := v.HashGet([]byte(args[1]))
	if err != nil {
		return "", err
	}
	return replyBytes(b, ok), nil
}

func cmdHDel(s *session, args []string) (string, error) {
	if err := requireMinArgs(args, 2, "hdel <key> <field> [field ...]"); err != nil {
		return "", err
	}
	v, err := lookupWrite(s, args[0])
	if errors.Is(err, kerrors.NoSuchKey) {
		return "0", nil
	}
	if err != nil {
		return "", err
	}
	n := 0
	for _, f := range args[1:] {
		ok, err := v.HashDel([]byte(f))
		if err != nil {
			return "", err
		}
		if ok {
			n++
		}
	}
	return strconv.Itoa(n), nil
}

func cmdHExists(s *session, args []string) (string, error) {
	if err := requireArgs(args, 2, "hexists <key> <field>"); err != nil {
		return "", err
	}
	v, err := lookupRead(s, args[0])
	if errors.Is(err, kerrors.NoSuchKey) {
		return boolReply(false), nil
	}
	if err != nil {
		return "", err
	}
	ok, err := v.HashExists([]byte(args[1]))
	if err != nil {
		return "", err
	}
	return boolReply(ok), nil
}

func cmdHLen(s *session, args []string) (string, error) {
	if err := requireArgs(args, 1, "hlen <key>"); err != nil {
		return "", err
	}
	v, err := lookupRead(s, args[0])
	if errors.Is(err, kerrors.NoSuchKey) {
		return "0", nil
	}
	if err != nil {
		return "", err
	}
	n, err := v.HashLen()
	if err != nil {
		return "", err
	}
	return strconv.Itoa(n), nil
}

func cmdHKeys(s *session, args []string) (string, error) {
	if err := requireArgs(args, 1, "hkeys <key>"); err != nil {
		return "", err
	}
	v, err := lookupRead(s, args[0])
	if errors.Is(err, kerrors.NoSuchKey) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	keys, err := v.HashKeys()
	if err != nil {
		return "", err
	}
	return replyBytesList(keys), nil
}

func cmdHVals(s *session, args []string) (string, error) {
	if err := requireArgs(args, 1, "hvals <key>"); err != nil {
		return "", err
	}
	v, err := lookupRead(s, args[0])
	if errors.Is(err, kerrors.NoSuchKey) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	vals, err := v.HashValues()
	if err != nil {
		return "", err
	}
	return replyBytesList(vals), nil
}

func cmdHGetAll(s *session, args []string) (string, error) {
	if err := requireArgs(args, 1, "hgetall <key>"); err != nil {
		return "", err
	}
	v, err := lookupRead(s, args[0])
	if errors.Is(err, kerrors.NoSuchKey) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	entries, err := v.HashEntries()
	if err != nil {
		return "", err
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = fmt.Sprintf("%s %s", e.Field, e.Value)
	}
	return strings.Join(lines, "\n"), nil
}

func cmdHIncrBy(s *session, args []string) (string, error) {
	if err := requireArgs(args, 3, "hincrby <key> <field> <delta>"); err != nil {
		return "", err
	}
	delta, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: delta must be an integer", kerrors.Syntax)
	}
	v, err := getOrCreate(s, args[0], value.KindHash, value.NewHash)
	if err != nil {
		return "", err
	}
	n, err := v.HashIncrBy([]byte(args[1]), delta, s.e.cfg.ValueConfig)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n, 10), nil
}
