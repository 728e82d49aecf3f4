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
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/minikeydb/minikeydb/pkg/buildinfo"
	"github.com/minikeydb/minikeydb/pkg/cmdmain"
	"github.com/minikeydb/minikeydb/pkg/rdb"
	"github.com/minikeydb/minikeydb/pkg/types"
	"github.com/minikeydb/minikeydb/pkg/value"
)

// saveCmd is the one-shot "save" mode: load whatever snapshot exists,
// immediately write it back out. Mostly useful to reformat/recompress an
// existing snapshot or to create an empty one.
type saveCmd struct {
	configPath string
}

func init() {
	cmdmain.RegisterCommand("save", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		c := &saveCmd{}
		flags.StringVar(&c.configPath, "config", "", "path to a kdbcli config file")
		return c
	})
}

func (c *saveCmd) Describe() string { return "Write the current (possibly empty) keyspace to its snapshot file." }
func (c *saveCmd) Usage()           {}

func (c *saveCmd) RunCommand(args []string) error {
	if len(args) != 0 {
		return errors.New("save takes no arguments")
	}
	cfg, err := loadEngineConfig(c.configPath)
	if err != nil {
		return err
	}
	e := newEngine(cfg)
	if _, err := os.Stat(cfg.SnapshotPath); err == nil {
		if err := rdb.Load(e.ks, cfg.SnapshotPath); err != nil {
			return err
		}
	}
	return rdb.Save(e.ks, cfg.SnapshotPath, cfg.ValueConfig, cfg.Compress)
}

// loadCmd is the one-shot "load" mode: read a snapshot and report its key
// counts per database, without starting a repl.
type loadCmd struct {
	configPath string
}

func init() {
	cmdmain.RegisterCommand("load", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		c := &loadCmd{}
		flags.StringVar(&c.configPath, "config", "", "path to a kdbcli config file")
		return c
	})
}

func (c *loadCmd) Describe() string { return "Load the snapshot file and print per-database key counts." }
func (c *loadCmd) Usage()           {}

func (c *loadCmd) RunCommand(args []string) error {
	if len(args) != 0 {
		return errors.New("load takes no arguments")
	}
	cfg, err := loadEngineConfig(c.configPath)
	if err != nil {
		return err
	}
	e := newEngine(cfg)
	if err := rdb.Load(e.ks, cfg.SnapshotPath); err != nil {
		return err
	}
	for i := 0; i < e.ks.DBCount(); i++ {
		n := 0
		e.ks.Each(i, func(string, *value.Value, int64, bool) { n++ })
		if n > 0 {
			fmt.Fprintf(cmdmain.Stdout, "db%d: %d keys\n", i, n)
		}
	}
	return nil
}

// infoCmd reports build and snapshot metadata as JSON, for scripting.
type infoCmd struct {
	configPath string
}

func init() {
	cmdmain.RegisterCommand("info", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		c := &infoCmd{}
		flags.StringVar(&c.configPath, "config", "", "path to a kdbcli config file")
		return c
	})
}

func (c *infoCmd) Describe() string { return "Print build and snapshot-file metadata as JSON." }
func (c *infoCmd) Usage()           {}

type infoReport struct {
	Version      string         `json:"version"`
	SnapshotPath string         `json:"snapshotPath"`
	SnapshotSize string         `json:"snapshotSize"`
	ModifiedAt   types.Time3339 `json:"modifiedAt"`
}

func (c *infoCmd) RunCommand(args []string) error {
	cfg, err := loadEngineConfig(c.configPath)
	if err != nil {
		return err
	}
	report := infoReport{
		Version:      buildinfo.Summary(),
		SnapshotPath: cfg.SnapshotPath,
		SnapshotSize: "0 B",
	}
	if fi, err := os.Stat(cfg.SnapshotPath); err == nil {
		report.SnapshotSize = humanize.Bytes(uint64(fi.Size()))
		report.ModifiedAt = types.Time3339(fi.ModTime())
	}
	enc := json.NewEncoder(cmdmain.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// dumpconfigCmd prints the effective configuration (defaults overlaid
// with the config file) as JSON, mirroring camtool's dumpconfig mode.
type dumpconfigCmd struct {
	configPath string
}

func init() {
	cmdmain.RegisterCommand("dumpconfig", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		c := &dumpconfigCmd{}
		flags.StringVar(&c.configPath, "config", "", "path to a kdbcli config file")
		return c
	})
}

func (c *dumpconfigCmd) Describe() string { return "Dump the effective engine configuration." }
func (c *dumpconfigCmd) Usage()           {}

func (c *dumpconfigCmd) RunCommand(args []string) error {
	cfg, err := loadEngineConfig(c.configPath)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmdmain.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}
