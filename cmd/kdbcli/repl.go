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
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/peterh/liner"

	"github.com/minikeydb/minikeydb/pkg/cmdmain"
	"github.com/minikeydb/minikeydb/pkg/rdb"
)

// replCmd is the interactive mode: a line-editing shell (history,
// arrow-key recall) in front of dispatch, operating on one in-process
// engine for the life of the process.
type replCmd struct {
	configPath string
	noLoad     bool
}

func init() {
	cmdmain.RegisterCommand("repl", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		c := &replCmd{}
		flags.StringVar(&c.configPath, "config", "", "path to a kdbcli config file")
		flags.BoolVar(&c.noLoad, "no-load", false, "start with an empty keyspace instead of loading the snapshot file")
		return c
	})
}

func (c *replCmd) Describe() string {
	return "Start an interactive shell against an in-process keyspace engine."
}

func (c *replCmd) Examples() []string { return []string{"", "-config kdbcli.json"} }
func (c *replCmd) Usage()             {}

func (c *replCmd) RunCommand(args []string) error {
	if len(args) != 0 {
		return errors.New("repl takes no arguments")
	}
	cfg, err := loadEngineConfig(c.configPath)
	if err != nil {
		return err
	}
	e := newEngine(cfg)
	if !c.noLoad {
		if _, err := os.Stat(cfg.SnapshotPath); err == nil {
			if err := rdb.Load(e.ks, cfg.SnapshotPath); err != nil {
				return fmt.Errorf("loading %s: %w", cfg.SnapshotPath, err)
			}
		}
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	s := &session{e: e}
	for {
		prompt := fmt.Sprintf("kdb[%d]> ", s.dbIdx)
		input, err := line.Prompt(prompt)
		if err == liner.ErrPromptAborted || err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("repl: %v", err)
			break
		}
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		reply, err := dispatch(s, input)
		if err != nil {
			fmt.Fprintf(cmdmain.Stdout, "(error) %v\n", err)
			continue
		}
		fmt.Fprintln(cmdmain.Stdout, reply)
	}
	return nil
}
