// -*- mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2017-2018 Canonical Ltd
// Copyright (C) 2018 IOTech Ltd
// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/circutor/fieldctl/internal/common"
)

// LoadConfig loads the local configuration file at confDir (defaulting
// to the current directory) and returns the parsed Config with its
// defaults applied.
func LoadConfig(confDir string) (*common.Config, error) {
	fmt.Fprintf(os.Stdout, "Init: confDir: %s\n", confDir)

	return loadConfigFromFile(confDir)
}

func loadConfigFromFile(confDir string) (config *common.Config, err error) {
	if len(confDir) == 0 {
		confDir = "."
	}

	path := filepath.Join(confDir, common.ConfigFileName)
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("could not create absolute path to load configuration: %s; %v", path, err)
	}
	fmt.Fprintf(os.Stdout, "Loading configuration from: %s\n", absPath)

	// encoding/json doesn't panic on malformed input the way the TOML
	// decoder used to, but keep the recover guard: a Config zero value
	// with a deeply nested RawMessage field can still trip stdlib
	// reflection bugs on exotic inputs, and a clear error beats a
	// crashed process either way.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("could not load configuration file; invalid JSON (%s): %v", path, r)
		}
	}()

	contents, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not load configuration file (%s): %v\nBe sure to change to program folder or set working directory", path, err)
	}

	config = &common.Config{}
	if err := json.Unmarshal(contents, config); err != nil {
		return nil, fmt.Errorf("unable to parse configuration file (%s): %v", path, err)
	}

	config.ApplyDefaults()

	return config, nil
}
