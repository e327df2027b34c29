// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

package hspowersequencer

import (
	"encoding/json"

	"github.com/circutor/fieldctl/internal/common"
)

var hsPowerSequencerMethods = []string{
	"channel_on", "channel_off", "all_on", "all_off",
	"delayed_on", "delayed_off", "set_delay", "read_status",
	"set_time", "read_address", "write_address", "factory_reset",
	"set_voltage_protection",
}

// GetMethods overrides the embedded default with the named RPCs this
// driver supports.
func (d *Driver) GetMethods() []string { return hsPowerSequencerMethods }

// Execute and CallMethod share the same dispatch table: every named
// RPC is also reachable as a generic command.
func (d *Driver) Execute(command string, params json.RawMessage) (json.RawMessage, error) {
	return d.dispatch(command, params)
}

func (d *Driver) CallMethod(name string, args json.RawMessage) (json.RawMessage, error) {
	return d.dispatch(name, args)
}

func (d *Driver) dispatch(command string, params json.RawMessage) (json.RawMessage, error) {
	switch command {
	case "channel_on":
		var p struct {
			Channel uint8 `json:"channel"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, common.NewConfigError("hsPowerSequencer: missing channel")
		}
		success, err := d.channelOn(p.Channel)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]bool{"success": success})

	case "channel_off":
		var p struct {
			Channel uint8 `json:"channel"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, common.NewConfigError("hsPowerSequencer: missing channel")
		}
		success, err := d.channelOff(p.Channel)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]bool{"success": success})

	case "all_on":
		success, err := d.allOn()
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]bool{"success": success})

	case "all_off":
		success, err := d.allOff()
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]bool{"success": success})

	case "delayed_on":
		success, err := d.delayedOn()
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]bool{"success": success})

	case "delayed_off":
		success, err := d.delayedOff()
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]bool{"success": success})

	case "set_delay":
		var p struct {
			Channel uint8  `json:"channel"`
			DelayMs uint32 `json:"delay_ms"`
			IsOn    *bool  `json:"is_on"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, common.NewConfigError("hsPowerSequencer: invalid set_delay params: %v", err)
		}
		isOn := p.IsOn == nil || *p.IsOn
		success, err := d.setChannelDelay(p.Channel, p.DelayMs, isOn)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]bool{"success": success})

	case "read_status":
		status, err := d.readDeviceStatus()
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]interface{}{"channels": status})

	case "set_time":
		var p struct {
			Year   uint8 `json:"year"`
			Month  uint8 `json:"month"`
			Day    uint8 `json:"day"`
			Hour   uint8 `json:"hour"`
			Minute uint8 `json:"minute"`
			Second uint8 `json:"second"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, common.NewConfigError("hsPowerSequencer: invalid set_time params: %v", err)
		}
		success, err := d.setTime(p.Year, p.Month, p.Day, p.Hour, p.Minute, p.Second)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]bool{"success": success})

	case "read_address":
		address, err := d.readDeviceAddress()
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]interface{}{"address": address})

	case "write_address":
		var p struct {
			Address uint8 `json:"address"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, common.NewConfigError("hsPowerSequencer: missing address")
		}
		success, err := d.writeDeviceAddress(p.Address)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]bool{"success": success})

	case "factory_reset":
		success, err := d.factoryReset()
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]bool{"success": success})

	case "set_voltage_protection":
		var p struct {
			OverVoltage  uint16 `json:"over_voltage"`
			UnderVoltage uint8  `json:"under_voltage"`
			Hysteresis   uint8  `json:"hysteresis"`
			OverEnable   *bool  `json:"over_enable"`
			UnderEnable  *bool  `json:"under_enable"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, common.NewConfigError("hsPowerSequencer: invalid set_voltage_protection params: %v", err)
		}
		overEn := p.OverEnable == nil || *p.OverEnable
		underEn := p.UnderEnable == nil || *p.UnderEnable
		success, err := d.setVoltageProtection(p.OverVoltage, p.UnderVoltage, p.Hysteresis, overEn, underEn)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]bool{"success": success})

	default:
		return nil, common.NewProtocolError("hsPowerSequencer: unknown command %q", command)
	}
}

// GetStatus reports the on/off state of every channel.
func (d *Driver) GetStatus() (json.RawMessage, error) {
	status, err := d.readDeviceStatus()
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]interface{}{
		"channel_id": d.channelID,
		"channels":   status,
	})
}
