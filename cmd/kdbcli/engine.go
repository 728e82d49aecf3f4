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
	"fmt"
	"os"

	"github.com/minikeydb/minikeydb/pkg/constants"
	"github.com/minikeydb/minikeydb/pkg/jsonconfig"
	"github.com/minikeydb/minikeydb/pkg/keyspace"
	"github.com/minikeydb/minikeydb/pkg/value"
)

// engineConfig holds the settings spec §3's table and §4.8/§4.10 name as
// configurable: database count, per-category promotion thresholds, and
// the snapshot file's path and compression toggle.
type engineConfig struct {
	DBCount      int
	SnapshotPath string
	Compress     bool
	ValueConfig  value.Config
}

func defaultEngineConfig() engineConfig {
	return engineConfig{
		DBCount:      constants.DefaultDBCount,
		SnapshotPath: "dump.mkdbs",
		Compress:     true,
		ValueConfig:  value.DefaultConfig(),
	}
}

// loadEngineConfig reads path as a jsonconfig.Obj (tolerating comments and
// trailing commas via hujson) and overlays it onto the defaults. A missing
// file is not an error: kdbcli runs with defaults when unconfigured.
func loadEngineConfig(path string) (engineConfig, error) {
	cfg := defaultEngineConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	obj, err := jsonconfig.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg.DBCount = obj.OptionalInt("dbnum", cfg.DBCount)
	cfg.SnapshotPath = obj.OptionalString("snapshotPath", cfg.SnapshotPath)
	cfg.Compress = obj.OptionalBool("compress", cfg.Compress)

	vc := cfg.ValueConfig
	vc.ListMaxZiplistEntries = obj.OptionalInt("listMaxZiplistEntries", vc.ListMaxZiplistEntries)
	vc.ListMaxZiplistValue = obj.OptionalInt("listMaxZiplistValue", vc.ListMaxZiplistValue)
	vc.SetMaxIntsetEntries = obj.OptionalInt("setMaxIntsetEntries", vc.SetMaxIntsetEntries)
	vc.ZSetMaxZiplistEntries = obj.OptionalInt("zsetMaxZiplistEntries", vc.ZSetMaxZiplistEntries)
	vc.ZSetMaxZiplistValue = obj.OptionalInt("zsetMaxZiplistValue", vc.ZSetMaxZiplistValue)
	vc.HashMaxZiplistEntries = obj.OptionalInt("hashMaxZiplistEntries", vc.HashMaxZiplistEntries)
	vc.HashMaxZiplistValue = obj.OptionalInt("hashMaxZiplistValue", vc.HashMaxZiplistValue)
	vc.StringInlineCap = obj.OptionalInt("stringInlineCap", vc.StringInlineCap)
	cfg.ValueConfig = vc

	if err := obj.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// engine bundles the in-process keyspace with the config used to build
// values within it, so every command mode shares one construction path.
type engine struct {
	ks  *keyspace.Keyspace
	cfg engineConfig
}

func newEngine(cfg engineConfig) *engine {
	return &engine{
		ks:  keyspace.New(cfg.DBCount),
		cfg: cfg,
	}
}
