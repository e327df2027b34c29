// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

// Package custom is a pass-through driver for channels that need a
// protocol_kind slot reserved (to satisfy configuration and node
// wiring) before a site-specific implementation is written. Every
// operation succeeds trivially; nothing is connected to real hardware.
package custom

import (
	"encoding/json"

	"github.com/circutor/fieldctl/internal/channel"
	"github.com/circutor/fieldctl/pkg/models"
)

func init() {
	channel.RegisterDriver("custom", New)
}

// Driver is the no-op custom protocol placeholder.
type Driver struct {
	channelID uint32

	models.UnimplementedMethods
}

// New constructs a custom driver. Arguments are accepted but not
// interpreted; a concrete site integration replaces this package
// wholesale rather than configuring it.
func New(channelID uint32, _ json.RawMessage) (models.Driver, error) {
	return &Driver{channelID: channelID}, nil
}

func (d *Driver) Name() string { return "custom" }

func (d *Driver) Read(uint32) (int32, error) { return 0, nil }

func (d *Driver) Write(uint32, int32) error { return nil }

func (d *Driver) Execute(string, json.RawMessage) (json.RawMessage, error) {
	return json.RawMessage(`{"status":"ok"}`), nil
}

func (d *Driver) GetStatus() (json.RawMessage, error) {
	return json.RawMessage(`{"connected":true}`), nil
}
