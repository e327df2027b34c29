// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

// Package hspowersequencer implements the HS-08R/HS-16R multi-channel
// power sequencer protocol: an RS485/RS232 serial link, 9600 8N1 by
// default, framing 8-byte commands behind a fixed two-byte header and
// reading an 8-byte reply behind the same header.
package hspowersequencer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/circutor/fieldctl/internal/channel"
	"github.com/circutor/fieldctl/internal/common"
	"github.com/circutor/fieldctl/pkg/models"
	"github.com/goburrow/serial"
)

func init() {
	channel.RegisterDriver("hs-power-sequencer", New)
}

var protocolHeader = [2]byte{0x5B, 0xB5}

const (
	funcRead         = 0x02
	funcWriteParam   = 0x10
	funcControl      = 0x16
	funcSetTime      = 0x13
	funcFactoryReset = 0x77

	respSuccess = 0xAA
	respFail    = 0xFF

	defaultBaudRate = 9600
	readTimeout     = 3 * time.Second
)

var onDelayAddr = map[uint8]uint16{
	1: 0x4010, 2: 0x4012, 3: 0x4014, 4: 0x4016,
	5: 0x4018, 6: 0x401A, 7: 0x401C, 8: 0x401E,
	9: 0x4050, 10: 0x4052, 11: 0x4054, 12: 0x4056,
}

var offDelayAddr = map[uint8]uint16{
	1: 0x4020, 2: 0x4022, 3: 0x4024, 4: 0x4026,
	5: 0x4028, 6: 0x402A, 7: 0x402C, 8: 0x402E,
	9: 0x4060, 10: 0x4062, 11: 0x4064, 12: 0x4066,
}

const (
	addrDeviceAddress   uint16 = 0x2017
	addrDeviceStatus    uint16 = 0x2016
	addrVoltageProtect1 uint16 = 0x236C
	addrVoltageProtect2 uint16 = 0x236D
)

// Driver is an HS power sequencer reached over a serial port.
type Driver struct {
	channelID     uint32
	portName      string
	baudRate      int
	deviceAddress byte

	models.UnimplementedMethods
}

type driverConfig struct {
	PortName      string `json:"port_name"`
	Port          string `json:"port"`
	BaudRate      int    `json:"baud_rate"`
	DeviceAddress uint8  `json:"device_address"`
}

// New constructs an hsPowerSequencer driver from its port_name/port,
// baud_rate and device_address configuration.
func New(channelID uint32, arguments json.RawMessage) (models.Driver, error) {
	var cfg driverConfig
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &cfg); err != nil {
			return nil, common.NewConfigError("hsPowerSequencer: invalid arguments: %v", err)
		}
	}

	portName := cfg.PortName
	if portName == "" {
		portName = cfg.Port
	}
	if portName == "" {
		return nil, common.NewConfigError("hsPowerSequencer: missing port_name or port")
	}

	baudRate := cfg.BaudRate
	if baudRate == 0 {
		baudRate = defaultBaudRate
	}

	deviceAddress := cfg.DeviceAddress
	if deviceAddress == 0 {
		deviceAddress = 1
	}

	return &Driver{
		channelID:     channelID,
		portName:      portName,
		baudRate:      baudRate,
		deviceAddress: deviceAddress,
	}, nil
}

func (d *Driver) Name() string { return "hs-power-sequencer" }

func (d *Driver) connect() (serial.Port, error) {
	port, err := serial.Open(&serial.Config{
		Address:  d.portName,
		BaudRate: d.baudRate,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  time.Second,
	})
	if err != nil {
		return nil, common.NewConnectionError("hsPowerSequencer: open serial port %s: %v", d.portName, err)
	}
	return port, nil
}

func buildFrame(command []byte) []byte {
	frame := make([]byte, 0, len(protocolHeader)+len(command))
	frame = append(frame, protocolHeader[0], protocolHeader[1])
	frame = append(frame, command...)
	return frame
}

// sendCommand opens the serial port, writes the framed command and
// reads back the 2-byte header plus 8-byte response.
func (d *Driver) sendCommand(command []byte) ([]byte, error) {
	port, err := d.connect()
	if err != nil {
		return nil, err
	}
	defer port.Close()

	frame := buildFrame(command)
	if _, err := port.Write(frame); err != nil {
		return nil, common.NewConnectionError("hsPowerSequencer: write frame: %v", err)
	}

	header := make([]byte, 2)
	if _, err := io.ReadFull(port, header); err != nil {
		return nil, common.NewTimeout("hsPowerSequencer: read response header: %v", err)
	}
	if header[0] != protocolHeader[0] || header[1] != protocolHeader[1] {
		return nil, common.NewProtocolError("hsPowerSequencer: bad response header: % X", header)
	}

	response := make([]byte, 8)
	if _, err := io.ReadFull(port, response); err != nil {
		return nil, common.NewTimeout("hsPowerSequencer: read response body: %v", err)
	}
	return response, nil
}

func validateChannel(channel uint8) error {
	if channel < 1 || channel > 12 {
		return common.NewConfigError("hsPowerSequencer: channel must be between 1 and 12, got %d", channel)
	}
	return nil
}

func (d *Driver) channelOn(channel uint8) (bool, error) {
	if err := validateChannel(channel); err != nil {
		return false, err
	}
	command := []byte{d.deviceAddress, funcControl, 0x00, 0x00, 0x00, 0x01, channel, respSuccess}
	response, err := d.sendCommand(command)
	if err != nil {
		return false, err
	}
	return evaluateControlResponse(response, d.deviceAddress)
}

func (d *Driver) channelOff(channel uint8) (bool, error) {
	if err := validateChannel(channel); err != nil {
		return false, err
	}
	command := []byte{d.deviceAddress, funcControl, 0x00, 0x00, 0x00, 0x00, channel, respSuccess}
	response, err := d.sendCommand(command)
	if err != nil {
		return false, err
	}
	return evaluateControlResponse(response, d.deviceAddress)
}

func evaluateControlResponse(response []byte, deviceAddress byte) (bool, error) {
	if len(response) < 2 {
		return false, common.NewProtocolError("hsPowerSequencer: short response")
	}
	if response[0] == deviceAddress && response[1] == respSuccess {
		return true, nil
	}
	if response[1] == respFail {
		return false, nil
	}
	return false, common.NewProtocolError("hsPowerSequencer: invalid response")
}

func (d *Driver) delayedOn() (bool, error) {
	command := []byte{d.deviceAddress, funcControl, 0x00, 0x00, 0x00, 0x01, 0x11, respSuccess}
	response, err := d.sendCommand(command)
	if err != nil {
		return false, err
	}
	return response[1] == respSuccess, nil
}

func (d *Driver) delayedOff() (bool, error) {
	command := []byte{d.deviceAddress, funcControl, 0x00, 0x00, 0x00, 0x00, 0x00, respSuccess}
	response, err := d.sendCommand(command)
	if err != nil {
		return false, err
	}
	return response[1] == respSuccess, nil
}

func (d *Driver) allOn() (bool, error) {
	command := []byte{d.deviceAddress, funcControl, 0x00, 0x00, 0x00, 0x01, 0x12, respSuccess}
	response, err := d.sendCommand(command)
	if err != nil {
		return false, err
	}
	return response[1] == respSuccess, nil
}

func (d *Driver) allOff() (bool, error) {
	command := []byte{d.deviceAddress, funcControl, 0x00, 0x00, 0x00, 0x00, 0x10, respSuccess}
	response, err := d.sendCommand(command)
	if err != nil {
		return false, err
	}
	return response[1] == respSuccess, nil
}

func (d *Driver) setChannelDelay(channel uint8, delayMs uint32, isOn bool) (bool, error) {
	if err := validateChannel(channel); err != nil {
		return false, err
	}

	table := offDelayAddr
	if isOn {
		table = onDelayAddr
	}
	addr, ok := table[channel]
	if !ok {
		return false, common.NewConfigError("hsPowerSequencer: invalid channel %d", channel)
	}

	command := []byte{
		d.deviceAddress, funcWriteParam,
		byte(addr >> 8), byte(addr & 0xFF),
		byte((delayMs >> 24) & 0xFF), byte((delayMs >> 16) & 0xFF),
		byte((delayMs >> 8) & 0xFF), byte(delayMs & 0xFF),
	}
	response, err := d.sendCommand(command)
	if err != nil {
		return false, err
	}
	return response[1] == respSuccess, nil
}

// readDeviceStatus returns the on/off state of every configured
// channel, read from byte index 4 onward of the response.
func (d *Driver) readDeviceStatus() ([]bool, error) {
	command := []byte{
		d.deviceAddress, funcRead,
		byte(addrDeviceStatus >> 8), byte(addrDeviceStatus & 0xFF),
		0x00, 0x00, 0x00, 0x00,
	}
	response, err := d.sendCommand(command)
	if err != nil {
		return nil, err
	}

	status := make([]bool, 0, len(response)-4)
	for i := 4; i < len(response); i++ {
		switch response[i] {
		case 0x01:
			status = append(status, true)
		case 0x00:
			status = append(status, false)
		}
	}
	return status, nil
}

func toBCD(v uint8) byte {
	return byte(((v / 10) << 4) | (v % 10))
}

func (d *Driver) setTime(year, month, day, hour, minute, second uint8) (bool, error) {
	command := []byte{
		d.deviceAddress, funcSetTime,
		toBCD(year), toBCD(month), toBCD(day), toBCD(hour), toBCD(minute), toBCD(second),
	}
	response, err := d.sendCommand(command)
	if err != nil {
		return false, err
	}
	return response[1] == funcSetTime, nil
}

func (d *Driver) readDeviceAddress() (byte, error) {
	command := []byte{
		0x00, funcRead,
		byte(addrDeviceAddress >> 8), byte(addrDeviceAddress & 0xFF),
		respSuccess, 0x00, 0x00, 0x00,
	}
	response, err := d.sendCommand(command)
	if err != nil {
		return 0, err
	}
	return response[7], nil
}

func (d *Driver) writeDeviceAddress(newAddress byte) (bool, error) {
	command := []byte{
		d.deviceAddress, funcWriteParam,
		byte(addrDeviceAddress >> 8), byte(addrDeviceAddress & 0xFF),
		respSuccess, 0x00, 0x00, newAddress,
	}
	response, err := d.sendCommand(command)
	if err != nil {
		return false, err
	}
	return response[1] == funcWriteParam && response[7] == respSuccess, nil
}

func (d *Driver) factoryReset() (bool, error) {
	command := []byte{d.deviceAddress, funcFactoryReset, 0x66, 0x86, 0x00, 0x00, 0x00, respSuccess}
	response, err := d.sendCommand(command)
	if err != nil {
		return false, err
	}
	return response[1] == funcFactoryReset && response[4] == respSuccess, nil
}

func (d *Driver) setVoltageProtection(overVoltage uint16, underVoltage, hysteresis byte, overEn, underEn bool) (bool, error) {
	command1 := []byte{
		d.deviceAddress, funcWriteParam,
		byte(addrVoltageProtect1 >> 8), byte(addrVoltageProtect1 & 0xFF),
		byte(overVoltage >> 8), byte(overVoltage & 0xFF),
		underVoltage, respSuccess,
	}
	response1, err := d.sendCommand(command1)
	if err != nil {
		return false, err
	}
	if response1[1] != funcWriteParam {
		return false, nil
	}

	enableByte := func(en bool) byte {
		if en {
			return 0x01
		}
		return 0x00
	}

	command2 := []byte{
		d.deviceAddress, funcWriteParam,
		byte(addrVoltageProtect2 >> 8), byte(addrVoltageProtect2 & 0xFF),
		hysteresis, enableByte(overEn), enableByte(underEn), respSuccess,
	}
	response2, err := d.sendCommand(command2)
	if err != nil {
		return false, err
	}
	return response2[1] == funcWriteParam, nil
}

// Write turns the channel addressed by id off (value==0) or on
// (otherwise).
func (d *Driver) Write(id uint32, value int32) error {
	channel := uint8(id)
	var err error
	if value == 0 {
		_, err = d.channelOff(channel)
	} else {
		_, err = d.channelOn(channel)
	}
	return err
}

// Read reports the on/off state (1/0) of the channel addressed by
// id, 1-indexed against the device status response.
func (d *Driver) Read(id uint32) (int32, error) {
	status, err := d.readDeviceStatus()
	if err != nil {
		return 0, err
	}

	idx := int(id) - 1
	if idx < 0 || idx >= len(status) {
		return 0, common.NewConfigError("hsPowerSequencer: channel %d out of range", id)
	}
	if status[idx] {
		return 1, nil
	}
	return 0, nil
}
