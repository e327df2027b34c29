// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

package misc

import (
	"encoding/json"

	"github.com/circutor/fieldctl/internal/common"
)

var qnSmartPlcMethods = []string{
	"one_key_start", "one_key_stop", "emergency_stop", "control_channel",
	"read_status", "read_temp_humidity", "read_zero_line_temp",
	"read_external_sensors", "read_current",
}

func (d *QnSmartPlc) GetMethods() []string { return qnSmartPlcMethods }

func (d *QnSmartPlc) CallMethod(method string, params json.RawMessage) (json.RawMessage, error) {
	return d.Execute(method, params)
}

func (d *QnSmartPlc) readInternalTempHumidity() (float32, float32, error) {
	registers, err := d.readHoldingRegisters(addrInternalTempHumidity, 2)
	if err != nil {
		return 0, 0, err
	}
	if len(registers) < 2 {
		return 0, 0, common.NewProtocolError("qn-smart-plc: read temp/humidity failed")
	}
	return float32(registers[0]), float32(registers[1]), nil
}

func (d *QnSmartPlc) readZeroLineTemp() (float32, error) {
	registers, err := d.readHoldingRegisters(addrZeroLineTemp, 1)
	if err != nil {
		return 0, err
	}
	if len(registers) == 0 {
		return 0, common.NewProtocolError("qn-smart-plc: read zero line temp failed")
	}
	return float32(registers[0]) * 0.1, nil
}

func (d *QnSmartPlc) readExternalSensors() (map[string]float32, error) {
	registers, err := d.readHoldingRegisters(addrExternalSensors, 10)
	if err != nil {
		return nil, err
	}
	if len(registers) < 7 {
		return nil, common.NewProtocolError("qn-smart-plc: read external sensors failed")
	}
	energy := float32(uint32(registers[2])<<16|uint32(registers[3])) * 0.1
	return map[string]float32{
		"external_humidity": float32(registers[0]) * 0.1,
		"external_temp":     float32(registers[1]) * 0.1,
		"energy_kwh":        energy,
		"voltage_a":         float32(registers[4]) * 0.1,
		"voltage_b":         float32(registers[5]) * 0.1,
		"voltage_c":         float32(registers[6]) * 0.1,
	}, nil
}

func (d *QnSmartPlc) readCurrent() (map[string]float32, error) {
	registers, err := d.readHoldingRegisters(addrCurrent, 6)
	if err != nil {
		return nil, err
	}
	if len(registers) < 6 {
		return nil, common.NewProtocolError("qn-smart-plc: read current failed")
	}
	return map[string]float32{
		"current_a": float32(registers[0]) * 0.1,
		"current_b": float32(registers[2]) * 0.1,
		"current_c": float32(registers[4]) * 0.1,
	}, nil
}

func (d *QnSmartPlc) Execute(command string, params json.RawMessage) (json.RawMessage, error) {
	switch command {
	case "one_key_start":
		if err := d.oneKeyStart(); err != nil {
			return nil, err
		}
		return json.RawMessage(`{"status":"success","message":"one key start ok"}`), nil

	case "one_key_stop":
		if err := d.oneKeyStop(); err != nil {
			return nil, err
		}
		return json.RawMessage(`{"status":"success","message":"one key stop ok"}`), nil

	case "emergency_stop":
		var p struct {
			Pressed *bool `json:"pressed"`
		}
		json.Unmarshal(params, &p)
		pressed := p.Pressed == nil || *p.Pressed
		if err := d.emergencyStop(pressed); err != nil {
			return nil, err
		}
		return json.Marshal(map[string]interface{}{"status": "success", "pressed": pressed})

	case "control_channel":
		var p struct {
			Channel uint32 `json:"channel"`
			On      *bool  `json:"on"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, common.NewConfigError("qn-smart-plc: missing channel")
		}
		on := p.On == nil || *p.On
		if err := d.controlChannel(p.Channel, on); err != nil {
			return nil, err
		}
		return json.Marshal(map[string]interface{}{"status": "success", "channel": p.Channel, "on": on})

	case "read_status":
		var p struct {
			Start uint32 `json:"start"`
		}
		json.Unmarshal(params, &p)
		if p.Start == 0 {
			p.Start = 1
		}
		statuses, err := d.readChannelStatus(p.Start)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]interface{}{"status": "success", "channels": statuses})

	case "read_temp_humidity":
		temp, humidity, err := d.readInternalTempHumidity()
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]interface{}{"status": "success", "temperature": temp, "humidity": humidity})

	case "read_zero_line_temp":
		temp, err := d.readZeroLineTemp()
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]interface{}{"status": "success", "zero_line_temp": temp})

	case "read_external_sensors":
		sensors, err := d.readExternalSensors()
		if err != nil {
			return nil, err
		}
		return json.Marshal(sensors)

	case "read_current":
		current, err := d.readCurrent()
		if err != nil {
			return nil, err
		}
		return json.Marshal(current)

	default:
		return nil, common.NewProtocolError("qn-smart-plc: unknown command %q", command)
	}
}

func (d *QnSmartPlc) GetStatus() (json.RawMessage, error) {
	return json.Marshal(map[string]interface{}{
		"protocol": "qn-smart-plc",
		"addr":     d.addr,
		"port":     d.port,
		"slave_id": d.slaveID,
	})
}
