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
	"github.com/minikeydb/minikeydb/pkg/rdb"
)

// cmdSave is the repl-mode "save" command: a synchronous, in-line
// snapshot write (spec §4.8's "synchronous write while no writer is
// active" alternative from §9, chosen over a forked child; see
// SPEC_FULL.md §5).
func cmdSave(s *session, args []string) (string, error) {
	if err := requireArgs(args, 0, "save"); err != nil {
		return "", err
	}
	if err := rdb.Save(s.e.ks, s.e.cfg.SnapshotPath, s.e.cfg.ValueConfig, s.e.cfg.Compress); err != nil {
		return "", err
	}
	return "OK", nil
}
