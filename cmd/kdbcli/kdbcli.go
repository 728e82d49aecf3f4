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

// Command kdbcli is the command-line surface for the minikeydb keyspace
// engine: one-shot subcommands (save, load, info, dumpconfig) and an
// interactive repl mode, all operating on an in-process engine instance.
// Snapshots are saved and loaded in-process through pkg/rdb. There is
// no daemon or network listener here — network dispatch and replication
// are boundary contracts (pkg/keyspace's Notifier and Propagator) that a
// separate server process would wire up.
package main

import (
	"github.com/minikeydb/minikeydb/pkg/cmdmain"
)

func main() {
	cmdmain.Main()
}
