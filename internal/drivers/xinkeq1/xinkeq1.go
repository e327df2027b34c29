// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

// Package xinkeq1 reserves the xinkeQ1 protocol_kind tag for a
// Xinke Q1-series display controller. Only the TCP endpoint
// configuration is parsed so far; command framing is not yet
// implemented, so every read/write/execute call is a no-op against
// the validated endpoint.
package xinkeq1

import (
	"encoding/json"

	"github.com/circutor/fieldctl/internal/channel"
	"github.com/circutor/fieldctl/internal/common"
	"github.com/circutor/fieldctl/pkg/models"
)

func init() {
	channel.RegisterDriver("xinkeQ1", New)
}

// Driver is the Xinke Q1 placeholder.
type Driver struct {
	channelID uint32
	addr      string
	port      int

	models.UnimplementedMethods
}

type driverConfig struct {
	Addr string `json:"addr"`
	Port int    `json:"port"`
}

// New constructs a xinkeQ1 driver, validating its TCP endpoint.
func New(channelID uint32, arguments json.RawMessage) (models.Driver, error) {
	var cfg driverConfig
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &cfg); err != nil {
			return nil, common.NewConfigError("xinkeQ1: invalid arguments: %v", err)
		}
	}
	if cfg.Addr == "" {
		return nil, common.NewConfigError("xinkeQ1: missing addr")
	}
	if cfg.Port == 0 {
		return nil, common.NewConfigError("xinkeQ1: missing port")
	}

	return &Driver{channelID: channelID, addr: cfg.Addr, port: cfg.Port}, nil
}

func (d *Driver) Name() string { return "xinkeQ1" }

func (d *Driver) Read(uint32) (int32, error) { return 0, nil }

func (d *Driver) Write(uint32, int32) error { return nil }

func (d *Driver) Execute(string, json.RawMessage) (json.RawMessage, error) {
	return json.RawMessage(`{"status":"ok"}`), nil
}

func (d *Driver) GetStatus() (json.RawMessage, error) {
	return json.Marshal(map[string]interface{}{"connected": true, "addr": d.addr, "port": d.port})
}
