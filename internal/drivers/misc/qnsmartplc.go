// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

// Package misc collects smaller field protocols that share a simple
// request/response shape and do not warrant a dedicated package:
// QN Smart PLC, TPRIS PDU, a 3D image splicer, an XFusion node
// cluster, and the YK-VAP video-wall processor. QN Smart PLC
// hand-builds Modbus-TCP frames, TPRIS PDU uses the goburrow/modbus
// client, the splicer sends ASCII commands over TCP, UDP or serial,
// YK-VAP exchanges text lines over TCP or UDP, and XFusion talks to
// the iBMC Redfish API over HTTP with a UDP heartbeat for liveness.
package misc

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
	channel.RegisterDriver("qn-smart-plc", NewQnSmartPlc)
}

const (
	fcReadCoils            = 0x01
	fcReadHoldingRegisters = 0x03
	fcWriteSingleCoil      = 0x05

	addrOneKeyStart   uint16 = 0x03E8
	addrOneKeyStop    uint16 = 0x03E9
	addrEmergencyStop uint16 = 0x03EA
	addrChannelBase   uint16 = 0x03EB

	addrInternalTempHumidity uint16 = 0x025A
	addrZeroLineTemp         uint16 = 0x035B
	addrExternalSensors      uint16 = 0x04B0
	addrCurrent              uint16 = 0x05DC

	qnRequestTimeout = 3 * time.Second
)

// QnSmartPlc drives a 40-channel Modbus TCP relay panel with a handful
// of extra sensor registers.
type QnSmartPlc struct {
	addr          string
	port          uint16
	slaveID       byte
	transactionID uint16

	models.UnimplementedMethods
}

type qnSmartPlcConfig struct {
	Addr    string `json:"addr"`
	IP      string `json:"ip"`
	Port    uint16 `json:"port"`
	SlaveID uint8  `json:"slave_id"`
}

// NewQnSmartPlc constructs a qn-smart-plc driver.
func NewQnSmartPlc(_ uint32, arguments json.RawMessage) (models.Driver, error) {
	var cfg qnSmartPlcConfig
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &cfg); err != nil {
			return nil, common.NewConfigError("qn-smart-plc: invalid arguments: %v", err)
		}
	}

	addr := cfg.Addr
	if addr == "" {
		addr = cfg.IP
	}
	if addr == "" {
		return nil, common.NewConfigError("qn-smart-plc: missing addr or ip")
	}

	port := cfg.Port
	if port == 0 {
		port = 502
	}
	slaveID := cfg.SlaveID
	if slaveID == 0 {
		slaveID = 0x32
	}

	return &QnSmartPlc{addr: addr, port: port, slaveID: slaveID}, nil
}

func (d *QnSmartPlc) Name() string { return "qn-smart-plc" }

func (d *QnSmartPlc) nextTransactionID() uint16 {
	d.transactionID++
	return d.transactionID
}

func (d *QnSmartPlc) buildRequest(functionCode byte, data []byte) []byte {
	transactionID := d.nextTransactionID()
	length := uint16(2 + len(data))

	frame := make([]byte, 0, 7+len(data))
	frame = append(frame, byte(transactionID>>8), byte(transactionID))
	frame = append(frame, 0x00, 0x00)
	frame = append(frame, byte(length>>8), byte(length))
	frame = append(frame, d.slaveID, functionCode)
	frame = append(frame, data...)
	return frame
}

func (d *QnSmartPlc) sendRequest(request []byte) ([]byte, error) {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", d.addr, d.port), qnRequestTimeout)
	if err != nil {
		return nil, common.NewConnectionError("qn-smart-plc: connect: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write(request); err != nil {
		return nil, common.NewConnectionError("qn-smart-plc: write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(qnRequestTimeout))
	response := make([]byte, 256)
	n, err := conn.Read(response)
	if err != nil {
		return nil, common.NewTimeout("qn-smart-plc: read response: %v", err)
	}
	return response[:n], nil
}

func (d *QnSmartPlc) writeCoil(address uint16, value bool) error {
	coilValue := uint16(0x0000)
	if value {
		coilValue = 0xFF00
	}
	data := []byte{byte(address >> 8), byte(address), byte(coilValue >> 8), byte(coilValue)}

	request := d.buildRequest(fcWriteSingleCoil, data)
	response, err := d.sendRequest(request)
	if err != nil {
		return err
	}

	if len(response) >= 12 && response[7] == fcWriteSingleCoil {
		return nil
	}
	if len(response) >= 9 && response[7] == fcWriteSingleCoil|0x80 {
		return common.NewProtocolError("qn-smart-plc: modbus exception 0x%02X", response[8])
	}
	return common.NewProtocolError("qn-smart-plc: invalid response: % X", response)
}

func (d *QnSmartPlc) readHoldingRegisters(address, count uint16) ([]uint16, error) {
	data := []byte{byte(address >> 8), byte(address), byte(count >> 8), byte(count)}
	request := d.buildRequest(fcReadHoldingRegisters, data)
	response, err := d.sendRequest(request)
	if err != nil {
		return nil, err
	}
	if len(response) < 9 || response[7] != fcReadHoldingRegisters {
		return nil, common.NewProtocolError("qn-smart-plc: read registers failed")
	}

	byteCount := int(response[8])
	registers := make([]uint16, 0, byteCount/2)
	for i := 0; i+1 < byteCount && 9+i+1 < len(response); i += 2 {
		registers = append(registers, uint16(response[9+i])<<8|uint16(response[9+i+1]))
	}
	return registers, nil
}

// getChannelAddress replicates the device's irregular per-channel
// address table: channels 1-8 are contiguous, then each group of 4
// channels starts a new 16-address block.
func getChannelAddress(channel uint32, on bool) (uint16, error) {
	if channel < 1 || channel > 40 {
		return 0, common.NewConfigError("qn-smart-plc: channel must be between 1 and 40, got %d", channel)
	}
	ch := uint16(channel)

	var base, offset uint16
	switch {
	case ch >= 1 && ch <= 8:
		base, offset = addrChannelBase, (ch-1)*2
	case ch >= 9 && ch <= 12:
		base, offset = 0x03FB, (ch-9)*2
	case ch >= 13 && ch <= 16:
		base, offset = 0x040B, (ch-13)*2
	case ch >= 17 && ch <= 20:
		base, offset = 0x041B, (ch-17)*2
	case ch >= 21 && ch <= 24:
		base, offset = 0x042B, (ch-21)*2
	case ch >= 25 && ch <= 28:
		base, offset = 0x043B, (ch-25)*2
	case ch >= 29 && ch <= 32:
		base, offset = 0x044B, (ch-29)*2
	case ch >= 33 && ch <= 36:
		base, offset = 0x045B, (ch-33)*2
	default:
		base, offset = 0x046B, (ch-37)*2
	}

	if on {
		return base + offset, nil
	}
	return base + offset + 1, nil
}

func (d *QnSmartPlc) controlChannel(channel uint32, on bool) error {
	addr, err := getChannelAddress(channel, on)
	if err != nil {
		return err
	}
	return d.writeCoil(addr, true)
}

func (d *QnSmartPlc) oneKeyStart() error { return d.writeCoil(addrOneKeyStart, true) }
func (d *QnSmartPlc) oneKeyStop() error  { return d.writeCoil(addrOneKeyStop, true) }
func (d *QnSmartPlc) emergencyStop(pressed bool) error {
	return d.writeCoil(addrEmergencyStop, pressed)
}

// readChannelStatus reads the 4-channel group containing startChannel
// (which must be 1, 5, 9, ... 37).
func (d *QnSmartPlc) readChannelStatus(startChannel uint32) ([]bool, error) {
	if startChannel < 1 || startChannel > 40 || (startChannel-1)%4 != 0 {
		return nil, common.NewConfigError("qn-smart-plc: start channel must be 1, 5, 9, ..., 37")
	}

	readAddr := uint16(((startChannel - 1) / 4) * 4)
	data := []byte{byte(readAddr >> 8), byte(readAddr), 0x00, 0x04}
	request := d.buildRequest(fcReadCoils, data)
	response, err := d.sendRequest(request)
	if err != nil {
		return nil, err
	}
	if len(response) < 10 {
		return nil, common.NewProtocolError("qn-smart-plc: read status failed")
	}

	statusByte := response[9]
	statuses := make([]bool, 4)
	for i := 0; i < 4; i++ {
		statuses[3-i] = (statusByte>>uint(i))&0x01 == 1
	}
	return statuses, nil
}

// Write turns the channel addressed by id on (value>0) or off.
func (d *QnSmartPlc) Write(id uint32, value int32) error {
	if id < 1 || id > 40 {
		return common.NewConfigError("qn-smart-plc: channel must be between 1 and 40, got %d", id)
	}
	return d.controlChannel(id, value > 0)
}

// Read reports the on/off state (1/0) of the channel addressed by id.
func (d *QnSmartPlc) Read(id uint32) (int32, error) {
	if id < 1 || id > 40 {
		return 0, common.NewConfigError("qn-smart-plc: channel must be between 1 and 40, got %d", id)
	}

	group := (id - 1) / 4
	posInGroup := (id - 1) % 4
	readAddr := uint16(group * 4)

	request := d.buildRequest(fcReadCoils, []byte{byte(readAddr >> 8), byte(readAddr), 0x00, 0x04})
	response, err := d.sendRequest(request)
	if err != nil {
		return 0, err
	}
	if len(response) < 10 || response[7] != fcReadCoils {
		return 0, common.NewProtocolError("qn-smart-plc: read channel %d status failed: % X", id, response)
	}

	statusByte := response[9]
	if (statusByte>>uint(posInGroup))&0x01 == 1 {
		return 1, nil
	}
	return 0, nil
}
