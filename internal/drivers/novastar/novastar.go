// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

// Package novastar implements the Novastar LED controller framing
// protocol over either TCP or RS232, addressed by a two-byte
// 0x55 0xAA header / 0x56 tail frame with a 16-bit rolling checksum.
// Only scene loading (1-10) and a Mode ID diagnostic read are
// implemented; every transaction opens a fresh connection.
package novastar

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/circutor/fieldctl/internal/channel"
	"github.com/circutor/fieldctl/internal/common"
	"github.com/circutor/fieldctl/pkg/models"
	"github.com/goburrow/serial"
)

func init() {
	channel.RegisterDriver("novastar", New)
}

const (
	defaultTCPPort  = 15200
	defaultBaudRate = 115200

	tcpDialTimeout    = 5 * time.Second
	responseTimeout   = 3 * time.Second
	responseFrameSize = 20
)

var (
	responseHeader = [2]byte{0xAA, 0x55}

	cmdReadModeIDTCP = []byte{
		0x55, 0xAA, 0x00, 0x00, 0xFE, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00,
		0x02, 0x00, 0x57, 0x56,
	}
	cmdReadModeIDSerial = []byte{
		0x55, 0xAA, 0x00, 0x14, 0xFE, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x02, 0x02,
		0x02, 0x00, 0x6D, 0x56,
	}
	cmdLoadSceneBase = []byte{
		0x55, 0xAA, 0x00, 0x00, 0xFE, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x01, 0x51, 0x13,
		0x01, 0x00,
	}
	respLoadSceneSuccess = []byte{
		0xAA, 0x55, 0x00, 0x00, 0x00, 0xFE, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x01, 0x51, 0x13,
		0x00, 0x00, 0xB9, 0x56,
	}
)

// Driver is a Novastar LED controller, reachable over TCP or RS232.
type Driver struct {
	useTCP bool

	addr string
	port uint16

	portName string
	baudRate int

	models.UnimplementedMethods
}

type driverConfig struct {
	UseTCP     *bool  `json:"use_tcp"`
	Addr       string `json:"addr"`
	IP         string `json:"ip"`
	Port       uint16 `json:"port"`
	PortName   string `json:"port_name"`
	SerialPort string `json:"serial_port"`
	BaudRate   int    `json:"baud_rate"`
}

// New constructs a Novastar driver in TCP mode (the default) or
// RS232 mode.
func New(_ uint32, arguments json.RawMessage) (models.Driver, error) {
	var cfg driverConfig
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &cfg); err != nil {
			return nil, common.NewConfigError("novastar: invalid arguments: %v", err)
		}
	}

	useTCP := cfg.UseTCP == nil || *cfg.UseTCP
	if useTCP {
		addr := cfg.Addr
		if addr == "" {
			addr = cfg.IP
		}
		if addr == "" {
			return nil, common.NewConfigError("novastar: missing addr or ip")
		}
		port := cfg.Port
		if port == 0 {
			port = defaultTCPPort
		}
		return &Driver{useTCP: true, addr: addr, port: port}, nil
	}

	portName := cfg.PortName
	if portName == "" {
		portName = cfg.SerialPort
	}
	if portName == "" {
		return nil, common.NewConfigError("novastar: missing port_name or serial_port")
	}
	baudRate := cfg.BaudRate
	if baudRate == 0 {
		baudRate = defaultBaudRate
	}

	return &Driver{useTCP: false, portName: portName, baudRate: baudRate}, nil
}

func (d *Driver) Name() string { return "Novastar" }

// calculateChecksum implements SUM = 0x5555 + data[2:], little/big
// split into low/high bytes.
func calculateChecksum(data []byte) (byte, byte) {
	sum := uint16(0x5555)
	for _, b := range data[2:] {
		sum += uint16(b)
	}
	return byte(sum & 0xFF), byte((sum >> 8) & 0xFF)
}

func buildLoadSceneCommand(sceneID uint8) ([]byte, error) {
	if sceneID < 1 || sceneID > 10 {
		return nil, common.NewConfigError("novastar: scene id must be between 1 and 10")
	}

	command := make([]byte, 0, 21)
	command = append(command, cmdLoadSceneBase...)
	command = append(command, sceneID-1)

	sumL, sumH := calculateChecksum(command)
	command = append(command, sumL, sumH)
	return command, nil
}

func (d *Driver) sendCommandTCP(command []byte) ([]byte, error) {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", d.addr, d.port), tcpDialTimeout)
	if err != nil {
		return nil, common.NewConnectionError("novastar: connect %s:%d: %v", d.addr, d.port, err)
	}
	defer conn.Close()

	if _, err := conn.Write(command); err != nil {
		return nil, common.NewConnectionError("novastar: write command: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(responseTimeout))
	response := make([]byte, responseFrameSize)
	if _, err := io.ReadFull(conn, response); err != nil {
		return nil, common.NewTimeout("novastar: device did not respond within %s: %v", responseTimeout, err)
	}
	return response, nil
}

func (d *Driver) sendCommandSerial(command []byte) ([]byte, error) {
	port, err := serial.Open(&serial.Config{
		Address:  d.portName,
		BaudRate: d.baudRate,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  responseTimeout,
	})
	if err != nil {
		return nil, common.NewConnectionError("novastar: open serial port %s: %v", d.portName, err)
	}
	defer port.Close()

	if _, err := port.Write(command); err != nil {
		return nil, common.NewConnectionError("novastar: write command: %v", err)
	}

	response := make([]byte, responseFrameSize)
	if _, err := io.ReadFull(port, response); err != nil {
		return nil, common.NewTimeout("novastar: device did not respond within %s: %v", responseTimeout, err)
	}
	return response, nil
}

func (d *Driver) sendCommand(command []byte) ([]byte, error) {
	if d.useTCP {
		return d.sendCommandTCP(command)
	}
	return d.sendCommandSerial(command)
}

func (d *Driver) readModeID() ([]byte, error) {
	command := cmdReadModeIDTCP
	if !d.useTCP {
		command = cmdReadModeIDSerial
	}

	response, err := d.sendCommand(command)
	if err != nil {
		return nil, err
	}
	if len(response) < 2 || response[0] != responseHeader[0] || response[1] != responseHeader[1] {
		return nil, common.NewProtocolError("novastar: malformed mode id response: % X", response)
	}
	return response, nil
}

// loadScene loads scene 1-10, reporting whether the device
// acknowledged success.
func (d *Driver) loadScene(sceneID uint8) (bool, error) {
	command, err := buildLoadSceneCommand(sceneID)
	if err != nil {
		return false, err
	}

	response, err := d.sendCommand(command)
	if err != nil {
		return false, err
	}

	if bytesEqual(response, respLoadSceneSuccess) {
		return true, nil
	}
	if len(response) >= 2 && response[0] == responseHeader[0] && response[1] == responseHeader[1] {
		return false, nil
	}
	return false, common.NewProtocolError("novastar: malformed load scene response: % X", response)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Write loads the scene numbered value (1-10) when id is the scene
// channel (id==1); Novastar exposes no other addressable points.
func (d *Driver) Write(id uint32, value int32) error {
	if value < 1 || value > 10 {
		return common.NewConfigError("novastar: scene id must be between 1 and 10")
	}
	if id != 1 {
		return nil
	}
	_, err := d.loadScene(uint8(value))
	return err
}

// Read is unsupported: Novastar has no way to query the currently
// active scene.
func (d *Driver) Read(uint32) (int32, error) {
	return 0, common.NewProtocolError("novastar: reading scene state is not supported")
}
