// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

// Package modbusslave reserves the modbus-slave protocol_kind tag for
// channels where this device acts as a Modbus slave rather than a
// master. Device-list/register-map configuration is not yet parsed;
// every operation succeeds trivially until a concrete slave
// implementation is wired in.
package modbusslave

import (
	"encoding/json"

	"github.com/circutor/fieldctl/internal/channel"
	"github.com/circutor/fieldctl/pkg/models"
)

func init() {
	channel.RegisterDriver("modbus-slave", New)
}

// Driver is the modbus-slave placeholder.
type Driver struct {
	channelID uint32

	models.UnimplementedMethods
}

// New constructs a modbus-slave driver. device_list and map
// configuration are accepted as opaque arguments for now.
func New(channelID uint32, _ json.RawMessage) (models.Driver, error) {
	return &Driver{channelID: channelID}, nil
}

func (d *Driver) Name() string { return "modbus-slave" }

func (d *Driver) Read(uint32) (int32, error) { return 0, nil }

func (d *Driver) Write(uint32, int32) error { return nil }

func (d *Driver) Execute(string, json.RawMessage) (json.RawMessage, error) {
	return json.RawMessage(`{"status":"ok"}`), nil
}

func (d *Driver) GetStatus() (json.RawMessage, error) {
	return json.RawMessage(`{"connected":true}`), nil
}
