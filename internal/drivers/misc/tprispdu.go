// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

package misc

import (
	"encoding/json"
	"fmt"
	"time"

	mb "github.com/goburrow/modbus"

	"github.com/circutor/fieldctl/internal/channel"
	"github.com/circutor/fieldctl/internal/common"
	"github.com/circutor/fieldctl/pkg/models"
)

func init() {
	channel.RegisterDriver("tpris-pdu", NewTprisPdu)
}

const (
	addrSwitchStatus uint16 = 0x0030
	addrSwitchSingle uint16 = 0x0034

	actionOff byte = 0x01
	actionOn  byte = 0x02

	tprisTimeout = 3 * time.Second
)

// TprisPdu drives an 8-outlet power distribution unit over Modbus TCP:
// all eight switches can be read or written as one bitmask register,
// or addressed individually through a packed switch-id/action
// register.
type TprisPdu struct {
	addr    string
	port    uint16
	slaveID byte

	models.UnimplementedMethods
}

type tprisPduConfig struct {
	Addr    string `json:"addr"`
	IP      string `json:"ip"`
	Port    uint16 `json:"port"`
	SlaveID uint8  `json:"slave_id"`
}

// NewTprisPdu constructs a tpris-pdu driver.
func NewTprisPdu(_ uint32, arguments json.RawMessage) (models.Driver, error) {
	var cfg tprisPduConfig
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &cfg); err != nil {
			return nil, common.NewConfigError("tpris-pdu: invalid arguments: %v", err)
		}
	}

	addr := cfg.Addr
	if addr == "" {
		addr = cfg.IP
	}
	if addr == "" {
		return nil, common.NewConfigError("tpris-pdu: missing addr or ip")
	}

	port := cfg.Port
	if port == 0 {
		port = 502
	}
	slaveID := cfg.SlaveID
	if slaveID == 0 {
		slaveID = 2
	}

	return &TprisPdu{addr: addr, port: port, slaveID: slaveID}, nil
}

func (d *TprisPdu) Name() string { return "tpris-pdu" }

func (d *TprisPdu) connect() (mb.Client, *mb.TCPClientHandler, error) {
	handler := mb.NewTCPClientHandler(fmt.Sprintf("%s:%d", d.addr, d.port))
	handler.Timeout = tprisTimeout
	handler.SlaveId = d.slaveID
	if err := handler.Connect(); err != nil {
		return nil, nil, common.NewConnectionError("tpris-pdu: connect %s:%d: %v", d.addr, d.port, err)
	}
	return mb.NewClient(handler), handler, nil
}

// readSwitchStatus returns the raw 8-bit mask (bit0=switch 1) read
// from addr.
func (d *TprisPdu) readSwitchStatus(addr uint16) (byte, error) {
	client, handler, err := d.connect()
	if err != nil {
		return 0, err
	}
	defer handler.Close()

	raw, err := client.ReadHoldingRegisters(addr, 1)
	if err != nil {
		return 0, common.NewConnectionError("tpris-pdu: read switch status: %v", err)
	}
	if len(raw) < 2 {
		return 0, common.NewProtocolError("tpris-pdu: short register response")
	}
	return raw[1], nil
}

func (d *TprisPdu) writeSwitchAll(addr uint16, value uint16) error {
	client, handler, err := d.connect()
	if err != nil {
		return err
	}
	defer handler.Close()

	if _, err := client.WriteSingleRegister(addr, value); err != nil {
		return common.NewConnectionError("tpris-pdu: write switch mask: %v", err)
	}
	return nil
}

func (d *TprisPdu) writeSwitchSingle(addr uint16, switchID byte, on bool) error {
	if switchID < 1 || switchID > 8 {
		return common.NewConfigError("tpris-pdu: switch id must be between 1 and 8, got %d", switchID)
	}

	action := actionOff
	if on {
		action = actionOn
	}
	value := uint16(switchID)<<8 | uint16(action)

	client, handler, err := d.connect()
	if err != nil {
		return err
	}
	defer handler.Close()

	if _, err := client.WriteSingleRegister(addr, value); err != nil {
		return common.NewConnectionError("tpris-pdu: write single switch: %v", err)
	}
	return nil
}

// Write turns switch id (1-8) on (value>0) or off.
func (d *TprisPdu) Write(id uint32, value int32) error {
	if id < 1 || id > 8 {
		return common.NewConfigError("tpris-pdu: switch id must be between 1 and 8, got %d", id)
	}
	return d.writeSwitchSingle(addrSwitchSingle, byte(id), value > 0)
}

// Read reports the on/off state (1/0) of switch id (1-8).
func (d *TprisPdu) Read(id uint32) (int32, error) {
	if id < 1 || id > 8 {
		return 0, common.NewConfigError("tpris-pdu: switch id must be between 1 and 8, got %d", id)
	}
	raw, err := d.readSwitchStatus(addrSwitchStatus)
	if err != nil {
		return 0, err
	}
	return int32((raw >> (id - 1)) & 1), nil
}
