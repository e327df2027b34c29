// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

// Package screennjlgplc implements the Nanjing Longgang PLC screen
// control protocol, a Modbus-ASCII-derived framing with a start byte
// ':', a trailing \r\n, and an 8-bit LRC checksum over the ASCII hex
// payload.
package screennjlgplc

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/circutor/fieldctl/internal/channel"
	"github.com/circutor/fieldctl/internal/common"
	"github.com/circutor/fieldctl/pkg/models"
)

func init() {
	channel.RegisterDriver("screen-njlg-plc", New)
}

const (
	startByte      = 0x3A
	commandLength  = 21
	responseLength = 17
	defaultTimeout = 3 * time.Second

	opOpen  = "01"
	opClose = "02"
)

var endBytes = [2]byte{0x0D, 0x0A}

// Driver controls up to ten screens wired to one Nanjing Longgang
// PLC, addressed by device id 1-10.
type Driver struct {
	channelID uint32
	addr      string
	port      uint16
	timeout   time.Duration

	models.UnimplementedMethods
}

type driverConfig struct {
	Addr      string `json:"addr"`
	Port      uint16 `json:"port"`
	TimeoutMs uint64 `json:"timeout"`
}

// New constructs a screenNjlgPlc driver from its addr/port/timeout
// configuration.
func New(channelID uint32, arguments json.RawMessage) (models.Driver, error) {
	var cfg driverConfig
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &cfg); err != nil {
			return nil, common.NewConfigError("screenNjlgPlc: invalid arguments: %v", err)
		}
	}
	if cfg.Addr == "" {
		return nil, common.NewConfigError("screenNjlgPlc: missing addr")
	}
	if cfg.Port == 0 {
		return nil, common.NewConfigError("screenNjlgPlc: missing port")
	}

	timeout := defaultTimeout
	if cfg.TimeoutMs > 0 {
		timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	}

	return &Driver{channelID: channelID, addr: cfg.Addr, port: cfg.Port, timeout: timeout}, nil
}

func (d *Driver) Name() string { return "screen-njlg-plc" }

// calculateLRCFromASCII sums the bytes represented by an even-length
// ASCII hex string and returns their two's-complement LRC.
func calculateLRCFromASCII(asciiStr string) (byte, error) {
	if len(asciiStr)%2 != 0 {
		return 0, common.NewConfigError("screenNjlgPlc: ascii string length must be even: %d", len(asciiStr))
	}

	var sum byte
	for i := 0; i < len(asciiStr); i += 2 {
		var b byte
		if _, err := fmt.Sscanf(asciiStr[i:i+2], "%02X", &b); err != nil {
			return 0, common.NewConfigError("screenNjlgPlc: invalid hex byte %q: %v", asciiStr[i:i+2], err)
		}
		sum += b
	}

	return ^sum + 1, nil
}

// buildCommand builds the 21-byte control frame for deviceID (1-10)
// and operation ("01" open, "02" close).
func buildCommand(deviceID uint32, operation string) ([]byte, error) {
	if deviceID < 1 || deviceID > 10 {
		return nil, common.NewConfigError("screenNjlgPlc: device id must be between 1 and 10, got %d", deviceID)
	}
	if operation != opOpen && operation != opClose {
		return nil, common.NewConfigError("screenNjlgPlc: invalid operation %q, must be %q or %q", operation, opOpen, opClose)
	}

	deviceChar := byte('0' + (deviceID - 1))
	opChar := operation[1]

	dataStr := fmt.Sprintf("00100B%c000100%c", deviceChar, opChar)

	lrc, err := calculateLRCFromASCII(dataStr)
	if err != nil {
		return nil, err
	}

	cmd := make([]byte, 0, commandLength)
	cmd = append(cmd, ':')
	cmd = append(cmd, dataStr...)
	cmd = append(cmd, []byte(fmt.Sprintf("%02X", lrc))...)
	cmd = append(cmd, endBytes[0], endBytes[1])
	return cmd, nil
}

// parseResponse validates framing and checksum of a 17-byte reply.
func parseResponse(response []byte) (bool, error) {
	if len(response) < responseLength {
		return false, common.NewProtocolError("screenNjlgPlc: response too short: %d < %d", len(response), responseLength)
	}
	if response[0] != startByte {
		return false, common.NewProtocolError("screenNjlgPlc: bad start byte: 0x%02X", response[0])
	}
	if response[15] != endBytes[0] || response[16] != endBytes[1] {
		return false, common.NewProtocolError("screenNjlgPlc: bad end bytes")
	}

	dataStr := string(response[1:13])
	checksumStr := string(response[13:15])

	calculated, err := calculateLRCFromASCII(dataStr)
	if err != nil {
		return false, err
	}

	var received byte
	if _, err := fmt.Sscanf(checksumStr, "%02X", &received); err != nil {
		return false, common.NewProtocolError("screenNjlgPlc: bad checksum format %q: %v", checksumStr, err)
	}
	if calculated != received {
		return false, common.NewProtocolError("screenNjlgPlc: checksum mismatch: calculated %02X, received %02X", calculated, received)
	}

	return true, nil
}

func (d *Driver) executeControl(deviceID uint32, operation string) (bool, error) {
	command, err := buildCommand(deviceID, operation)
	if err != nil {
		return false, err
	}

	conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", d.addr, d.port), d.timeout)
	if err != nil {
		return false, common.NewConnectionError("screenNjlgPlc: connect %s:%d: %v", d.addr, d.port, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(d.timeout)); err != nil {
		return false, common.NewConnectionError("screenNjlgPlc: set deadline: %v", err)
	}

	if _, err := conn.Write(command); err != nil {
		return false, common.NewConnectionError("screenNjlgPlc: send command: %v", err)
	}

	response := make([]byte, responseLength)
	n, err := io.ReadAtLeast(conn, response, 1)
	if err != nil {
		return false, common.NewTimeout("screenNjlgPlc: read response: %v", err)
	}

	return parseResponse(response[:n])
}

// Write opens (value==1) or closes (otherwise) the screen addressed
// by deviceID.
func (d *Driver) Write(deviceID uint32, value int32) error {
	operation := opClose
	if value == 1 {
		operation = opOpen
	}
	_, err := d.executeControl(deviceID, operation)
	return err
}

// Read is unsupported: the protocol has no state query command.
func (d *Driver) Read(uint32) (int32, error) {
	return 0, common.NewProtocolError("screenNjlgPlc: reading screen state is not supported")
}
