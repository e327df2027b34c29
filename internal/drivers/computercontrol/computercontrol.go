// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

// Package computercontrol implements a Wake-on-LAN + UDP heartbeat
// driver for controlling a fleet of PCs attached to one channel: it
// wakes a machine with a WOL magic packet, asks it to shut down over
// UDP, and tracks liveness through a ping/pong exchange or a recently
// received heartbeat.
package computercontrol

import (
	"encoding/json"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/circutor/fieldctl/internal/channel"
	"github.com/circutor/fieldctl/internal/common"
	"github.com/circutor/fieldctl/pkg/models"
)

func init() {
	channel.RegisterDriver("computerControl", New)
}

const heartbeatTimeout = 10 * time.Second

type computerNode struct {
	id            uint32
	macText       string
	mac           net.HardwareAddr
	ip            string
	port          uint16
	lastHeartbeat time.Time
}

type computerConfigItem struct {
	ID   uint32  `json:"id"`
	MAC  string  `json:"mac"`
	IP   *string `json:"ip"`
	Port *uint16 `json:"port"`
}

type driverConfig struct {
	MacAddress    []computerConfigItem `json:"mac_address"`
	BroadcastAddr string               `json:"broadcast_addr"`
	Broadcast     string               `json:"broadcast"`
	WolPort       uint16               `json:"wol_port"`
	ShutdownPort  uint16               `json:"shutdown_port"`
}

// Driver manages a fleet of PCs reachable through WOL and a small UDP
// command protocol.
type Driver struct {
	channelID     uint32
	computers     []*computerNode
	broadcastAddr string
	wolPort       uint16
	shutdownPort  uint16

	models.UnimplementedMethods
}

// New constructs a computerControl driver from its mac_address list
// and broadcast/port configuration.
func New(channelID uint32, arguments json.RawMessage) (models.Driver, error) {
	var cfg driverConfig
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &cfg); err != nil {
			return nil, common.NewConfigError("computerControl: invalid arguments: %v", err)
		}
	}
	if len(cfg.MacAddress) == 0 {
		return nil, common.NewConfigError("computerControl: missing mac_address list")
	}

	computers := make([]*computerNode, 0, len(cfg.MacAddress))
	for _, item := range cfg.MacAddress {
		mac, err := net.ParseMAC(item.MAC)
		if err != nil {
			return nil, common.NewConfigError("computerControl: invalid MAC address %q: %v", item.MAC, err)
		}
		node := &computerNode{id: item.ID, macText: item.MAC, mac: mac}
		if item.IP != nil {
			node.ip = *item.IP
		}
		if item.Port != nil {
			node.port = *item.Port
		}
		computers = append(computers, node)
	}

	broadcastAddr := cfg.BroadcastAddr
	if broadcastAddr == "" {
		broadcastAddr = cfg.Broadcast
	}
	if broadcastAddr == "" {
		broadcastAddr = "255.255.255.255"
	}

	wolPort := cfg.WolPort
	if wolPort == 0 {
		wolPort = 9
	}
	shutdownPort := cfg.ShutdownPort
	if shutdownPort == 0 {
		shutdownPort = wolPort
	}

	return &Driver{
		channelID:     channelID,
		computers:     computers,
		broadcastAddr: broadcastAddr,
		wolPort:       wolPort,
		shutdownPort:  shutdownPort,
	}, nil
}

func (d *Driver) Name() string { return "computerControl" }

func (d *Driver) findByID(id uint32) *computerNode {
	for _, c := range d.computers {
		if c.id == id {
			return c
		}
	}
	return nil
}

func (d *Driver) findByMAC(mac string) *computerNode {
	for _, c := range d.computers {
		if strings.EqualFold(c.macText, mac) {
			return c
		}
	}
	return nil
}

// magicPacket builds the standard WOL payload: six 0xFF bytes
// followed by the target MAC repeated sixteen times.
func magicPacket(mac net.HardwareAddr) []byte {
	packet := make([]byte, 0, 102)
	for i := 0; i < 6; i++ {
		packet = append(packet, 0xFF)
	}
	for i := 0; i < 16; i++ {
		packet = append(packet, mac...)
	}
	return packet
}

func (d *Driver) wake(mac net.HardwareAddr) error {
	conn, err := net.Dial("udp4", net.JoinHostPort(d.broadcastAddr, itoa(d.wolPort)))
	if err != nil {
		return common.NewConnectionError("computerControl: dial WOL broadcast: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write(magicPacket(mac)); err != nil {
		return common.NewConnectionError("computerControl: send magic packet: %v", err)
	}
	return nil
}

func (d *Driver) requestShutdown(c *computerNode) error {
	if c.ip != "" && c.port != 0 {
		_, err := d.sendUDP(c.ip, c.port, "shutdown", false)
		return err
	}

	conn, err := net.Dial("udp4", net.JoinHostPort(d.broadcastAddr, itoa(d.shutdownPort)))
	if err != nil {
		return common.NewConnectionError("computerControl: dial shutdown broadcast: %v", err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte(c.macText)); err != nil {
		return common.NewConnectionError("computerControl: send shutdown broadcast: %v", err)
	}
	return nil
}

// sendUDP sends command to (ip, port) and, if waitResponse, blocks up
// to 500ms for a reply.
func (d *Driver) sendUDP(ip string, port uint16, command string, waitResponse bool) (string, error) {
	conn, err := net.Dial("udp4", net.JoinHostPort(ip, itoa(port)))
	if err != nil {
		return "", common.NewConnectionError("computerControl: dial %s:%d: %v", ip, port, err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(command)); err != nil {
		return "", common.NewConnectionError("computerControl: send command: %v", err)
	}

	if !waitResponse {
		return "", nil
	}

	conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	if err != nil {
		return "", nil
	}
	return strings.TrimSpace(string(buf[:n])), nil
}

func (d *Driver) pingComputer(c *computerNode) bool {
	if c.ip == "" || c.port == 0 {
		return false
	}
	resp, err := d.sendUDP(c.ip, c.port, "ping", true)
	if err != nil {
		return false
	}
	return strings.EqualFold(resp, "pong")
}

func (d *Driver) isOnline(c *computerNode) bool {
	if d.pingComputer(c) {
		return true
	}
	if c.lastHeartbeat.IsZero() {
		return false
	}
	return time.Since(c.lastHeartbeat) < heartbeatTimeout
}

func itoa(port uint16) string {
	return strconv.Itoa(int(port))
}
