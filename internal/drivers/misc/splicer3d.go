// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

package misc

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goburrow/serial"

	"github.com/circutor/fieldctl/internal/channel"
	"github.com/circutor/fieldctl/internal/common"
	"github.com/circutor/fieldctl/pkg/models"
)

func init() {
	channel.RegisterDriver("splicer_3d", NewSplicer3D)
}

const (
	splicer3dDefaultTCPPort  = 5000
	splicer3dDefaultUDPPort  = 5002
	splicer3dDefaultBaud     = 115200
	splicer3dDefaultGroup    = 1
	splicer3dConnectTimeout  = 5 * time.Second
	splicer3dResponseTimeout = 3 * time.Second
	splicer3dAckOK           = "/ack:d,1"
)

// Splicer3D drives a 3D image-splicing processor over TCP, UDP or
// serial, addressed with an ASCII line protocol terminated by ';'.
// A read timeout on any transport is treated as success: some
// devices send no acknowledgement at all.
type Splicer3D struct {
	connType string // "tcp", "udp" or "serial"

	addr      string
	port      uint16
	localPort uint16

	portName string
	baudRate int

	group        uint32
	currentScene int32

	models.UnimplementedMethods
}

type splicer3dConfig struct {
	Type         string `json:"type"`
	UseTCP       *bool  `json:"use_tcp"`
	UseUDP       *bool  `json:"use_udp"`
	Addr         string `json:"addr"`
	IP           string `json:"ip"`
	Port         uint16 `json:"port"`
	LocalPort    uint16 `json:"local_port"`
	UDPLocalPort uint16 `json:"udp_local_port"`
	BindPort     uint16 `json:"bind_port"`
	PortName     string `json:"port_name"`
	SerialPort   string `json:"serial_port"`
	BaudRate     int    `json:"baud_rate"`
	Group        uint32 `json:"group"`
}

// NewSplicer3D constructs a Splicer3D driver in UDP, TCP or serial
// mode. UDP is selected by use_udp or type=="udp"; otherwise TCP is
// selected by use_tcp (the default) unless type=="serial", in which
// case serial wins.
func NewSplicer3D(_ uint32, arguments json.RawMessage) (models.Driver, error) {
	var cfg splicer3dConfig
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &cfg); err != nil {
			return nil, common.NewConfigError("splicer3d: invalid arguments: %v", err)
		}
	}

	group := cfg.Group
	if group == 0 {
		group = splicer3dDefaultGroup
	}

	useUDP := cfg.UseUDP != nil && *cfg.UseUDP
	useTCP := cfg.UseTCP == nil || *cfg.UseTCP

	switch {
	case useUDP || cfg.Type == "udp":
		addr := cfg.Addr
		if addr == "" {
			addr = cfg.IP
		}
		if addr == "" {
			return nil, common.NewConfigError("splicer3d: missing addr or ip")
		}
		port := cfg.Port
		if port == 0 {
			port = splicer3dDefaultUDPPort
		}
		localPort := cfg.LocalPort
		if localPort == 0 {
			localPort = cfg.UDPLocalPort
		}
		if localPort == 0 {
			localPort = cfg.BindPort
		}
		return &Splicer3D{connType: "udp", addr: addr, port: port, localPort: localPort, group: group}, nil

	case useTCP && cfg.Type != "serial":
		addr := cfg.Addr
		if addr == "" {
			addr = cfg.IP
		}
		if addr == "" {
			return nil, common.NewConfigError("splicer3d: missing addr or ip")
		}
		port := cfg.Port
		if port == 0 {
			port = splicer3dDefaultTCPPort
		}
		return &Splicer3D{connType: "tcp", addr: addr, port: port, group: group}, nil

	default:
		portName := cfg.PortName
		if portName == "" {
			portName = cfg.SerialPort
		}
		if portName == "" {
			return nil, common.NewConfigError("splicer3d: missing port_name or serial_port")
		}
		baudRate := cfg.BaudRate
		if baudRate == 0 {
			baudRate = splicer3dDefaultBaud
		}
		return &Splicer3D{connType: "serial", portName: portName, baudRate: baudRate, group: group}, nil
	}
}

func (d *Splicer3D) Name() string { return "Splicer3D" }

func buildSetPresetCommand(sceneID, group uint32) string {
	return fmt.Sprintf("/SetPreset:d,%d,%d;", sceneID, group)
}

func buildSetWinSrcCommand(window, slot, iface, signalType, group uint32) string {
	return fmt.Sprintf("/setWinSrc:d,%d,%d,%d,%d,%d;", window, slot, iface, signalType, group)
}

// parseAckResponse treats an empty response as success (some devices
// send no reply at all) and otherwise looks for the device's ack
// marker.
func parseAckResponse(response string) bool {
	if response == "" {
		return true
	}
	return strings.Contains(response, splicer3dAckOK+";") || strings.Contains(response, splicer3dAckOK)
}

func (d *Splicer3D) sendCommandTCP(command string) (string, error) {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", d.addr, d.port), splicer3dConnectTimeout)
	if err != nil {
		return "", common.NewConnectionError("splicer3d: connect %s:%d: %v", d.addr, d.port, err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(command)); err != nil {
		return "", common.NewConnectionError("splicer3d: write command: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(splicer3dResponseTimeout))
	buf := make([]byte, 256)
	n, err := conn.Read(buf)
	if err != nil {
		if isTimeoutErr(err) {
			return "", nil
		}
		return "", common.NewConnectionError("splicer3d: read response: %v", err)
	}
	return string(buf[:n]), nil
}

func (d *Splicer3D) sendCommandUDP(command string) (string, error) {
	raddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", d.addr, d.port))
	if err != nil {
		return "", common.NewConfigError("splicer3d: resolve %s:%d: %v", d.addr, d.port, err)
	}

	var laddr *net.UDPAddr
	if d.localPort != 0 {
		laddr = &net.UDPAddr{Port: int(d.localPort)}
	}

	conn, err := net.DialUDP("udp", laddr, raddr)
	if err != nil {
		return "", common.NewConnectionError("splicer3d: dial udp %s:%d: %v", d.addr, d.port, err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(command)); err != nil {
		return "", common.NewConnectionError("splicer3d: write command: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(splicer3dResponseTimeout))
	buf := make([]byte, 256)
	n, err := conn.Read(buf)
	if err != nil {
		if isTimeoutErr(err) {
			return "", nil
		}
		return "", common.NewConnectionError("splicer3d: read response: %v", err)
	}
	return string(buf[:n]), nil
}

func (d *Splicer3D) sendCommandSerial(command string) (string, error) {
	port, err := serial.Open(&serial.Config{
		Address:  d.portName,
		BaudRate: d.baudRate,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  splicer3dResponseTimeout,
	})
	if err != nil {
		return "", common.NewConnectionError("splicer3d: open serial port %s: %v", d.portName, err)
	}
	defer port.Close()

	if _, err := port.Write([]byte(command)); err != nil {
		return "", common.NewConnectionError("splicer3d: write command: %v", err)
	}

	buf := make([]byte, 256)
	n, err := port.Read(buf)
	if err != nil {
		if err == io.EOF || isTimeoutErr(err) {
			return "", nil
		}
		return "", common.NewConnectionError("splicer3d: read response: %v", err)
	}
	return string(buf[:n]), nil
}

func isTimeoutErr(err error) bool {
	type timeouter interface{ Timeout() bool }
	if te, ok := err.(timeouter); ok {
		return te.Timeout()
	}
	return false
}

func (d *Splicer3D) sendCommand(command string) (string, error) {
	switch d.connType {
	case "udp":
		return d.sendCommandUDP(command)
	case "serial":
		return d.sendCommandSerial(command)
	default:
		return d.sendCommandTCP(command)
	}
}

// setPreset switches the active scene and reports whether the device
// acknowledged success.
func (d *Splicer3D) setPreset(sceneID uint32) (bool, error) {
	response, err := d.sendCommand(buildSetPresetCommand(sceneID, d.group))
	if err != nil {
		return false, err
	}
	return parseAckResponse(response), nil
}

// setWinSrc sets a window's signal source. The device does not
// acknowledge this command, so no response is parsed.
func (d *Splicer3D) setWinSrc(window, slot, iface, signalType uint32) error {
	_, err := d.sendCommand(buildSetWinSrcCommand(window, slot, iface, signalType, d.group))
	return err
}

// Write switches to the scene numbered value when id is the scene
// control channel (id==1).
func (d *Splicer3D) Write(id uint32, value int32) error {
	if value < 1 {
		return common.NewConfigError("splicer3d: scene id must be greater than or equal to 1")
	}
	if id != 1 {
		return common.NewConfigError("splicer3d: unsupported node id %d", id)
	}

	success, err := d.setPreset(uint32(value))
	if err != nil {
		return err
	}
	if !success {
		return common.NewProtocolError("splicer3d: scene %d switch failed", value)
	}
	atomic.StoreInt32(&d.currentScene, value)
	return nil
}

// Read reports the currently active scene when id==1.
func (d *Splicer3D) Read(id uint32) (int32, error) {
	if id != 1 {
		return 0, common.NewConfigError("splicer3d: unsupported node id %d", id)
	}
	return atomic.LoadInt32(&d.currentScene), nil
}
