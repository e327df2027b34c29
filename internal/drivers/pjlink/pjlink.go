// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

// Package pjlink implements a minimal PJLink projector-control driver:
// a fresh TCP connection per command, issuing power on/off/status
// queries. It does not support the generic scalar read/write surface.
package pjlink

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/circutor/fieldctl/internal/channel"
	"github.com/circutor/fieldctl/internal/common"
	"github.com/circutor/fieldctl/pkg/models"
)

func init() {
	channel.RegisterDriver("pjlink", New)
}

const commandTimeout = 3 * time.Second

// Driver is a PJLink projector-control driver.
type Driver struct {
	channelID uint32
	addr      string
	port      int
	password  string

	models.UnimplementedMethods
}

type driverConfig struct {
	Addr     string `json:"addr"`
	Port     int    `json:"port"`
	Password string `json:"password"`
}

// New constructs a PJLink driver from a channel's merged arguments.
func New(channelID uint32, arguments json.RawMessage) (models.Driver, error) {
	var cfg driverConfig
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &cfg); err != nil {
			return nil, common.NewConfigError("pjlink: invalid arguments: %v", err)
		}
	}
	if cfg.Addr == "" {
		return nil, common.NewConfigError("pjlink: missing addr")
	}
	if cfg.Port == 0 {
		cfg.Port = 4352
	}

	return &Driver{
		channelID: channelID,
		addr:      cfg.Addr,
		port:      cfg.Port,
		password:  cfg.Password,
	}, nil
}

func (d *Driver) Name() string { return "pjlink" }

// sendCommand opens a fresh TCP connection, drains the PJLink greeting
// line, sends cmd as a query, and returns the projector's response.
func (d *Driver) sendCommand(cmd string) (string, error) {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", d.addr, d.port), commandTimeout)
	if err != nil {
		return "", common.NewConnectionError("pjlink: connect %s:%d: %v", d.addr, d.port, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(commandTimeout))

	greeting := make([]byte, 1024)
	if _, err := conn.Read(greeting); err != nil {
		return "", common.NewConnectionError("pjlink: read greeting: %v", err)
	}

	request := fmt.Sprintf("%%1%s ?\r", cmd)
	if _, err := conn.Write([]byte(request)); err != nil {
		return "", common.NewConnectionError("pjlink: write command: %v", err)
	}

	buf := make([]byte, 1024)
	n, err := conn.Read(buf)
	if err != nil {
		return "", common.NewConnectionError("pjlink: read response: %v", err)
	}
	return string(buf[:n]), nil
}

// Execute dispatches powerOn/powerOff/getPowerState; this is the
// primary surface PJLink is driven through.
func (d *Driver) Execute(command string, _ json.RawMessage) (json.RawMessage, error) {
	switch command {
	case "powerOn":
		if _, err := d.sendCommand("POWR 1"); err != nil {
			return nil, err
		}
		return json.RawMessage(`{"status":"ok"}`), nil
	case "powerOff":
		if _, err := d.sendCommand("POWR 0"); err != nil {
			return nil, err
		}
		return json.RawMessage(`{"status":"ok"}`), nil
	case "getPowerState":
		resp, err := d.sendCommand("POWR")
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]string{"state": resp})
	default:
		return nil, common.NewProtocolError("pjlink: unknown command %q", command)
	}
}

// GetStatus reports static reachability; PJLink has no persistent
// connection to probe.
func (d *Driver) GetStatus() (json.RawMessage, error) {
	return json.Marshal(map[string]interface{}{"connected": true, "addr": d.addr, "port": d.port})
}

// Write is unsupported: PJLink is driven entirely through Execute's
// named power commands, not scalar addresses.
func (d *Driver) Write(uint32, int32) error {
	return common.NewProtocolError("pjlink: write is not supported, use Execute")
}

// Read is unsupported for the same reason as Write.
func (d *Driver) Read(uint32) (int32, error) {
	return 0, common.NewProtocolError("pjlink: read is not supported, use Execute")
}
