// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

package screennjlgplc

import (
	"encoding/json"
	"time"

	"github.com/circutor/fieldctl/internal/common"
)

var screenNjlgPlcMethods = []string{"open_device", "close_device", "batch_control"}

type controlParams struct {
	DeviceID uint32 `json:"device_id"`
	Value    int64  `json:"value"`
}

// Execute dispatches control, the single command this protocol
// exposes through the generic command surface.
func (d *Driver) Execute(command string, params json.RawMessage) (json.RawMessage, error) {
	switch command {
	case "control":
		var p controlParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, common.NewConfigError("screenNjlgPlc: invalid control params: %v", err)
		}
		operation := opClose
		if p.Value == 1 {
			operation = opOpen
		}
		success, err := d.executeControl(p.DeviceID, operation)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]interface{}{
			"success":   success,
			"device_id": p.DeviceID,
			"value":     p.Value,
		})

	default:
		return nil, common.NewProtocolError("screenNjlgPlc: unknown command %q", command)
	}
}

// GetMethods overrides the embedded default with the named RPCs this
// driver supports.
func (d *Driver) GetMethods() []string { return screenNjlgPlcMethods }

type deviceIDParams struct {
	DeviceID uint32 `json:"device_id"`
}

type batchControlParams struct {
	Devices []uint32 `json:"devices"`
	Action  string   `json:"action"`
	DelayMs uint64   `json:"delay"`
}

// CallMethod overrides the embedded default, implementing
// open_device, close_device and batch_control.
func (d *Driver) CallMethod(name string, args json.RawMessage) (json.RawMessage, error) {
	switch name {
	case "open_device":
		var p deviceIDParams
		if err := json.Unmarshal(args, &p); err != nil {
			return nil, common.NewConfigError("screenNjlgPlc: missing device_id")
		}
		if _, err := d.executeControl(p.DeviceID, opOpen); err != nil {
			return nil, err
		}
		return json.Marshal(map[string]interface{}{"result": "ok", "device_id": p.DeviceID, "action": "open"})

	case "close_device":
		var p deviceIDParams
		if err := json.Unmarshal(args, &p); err != nil {
			return nil, common.NewConfigError("screenNjlgPlc: missing device_id")
		}
		if _, err := d.executeControl(p.DeviceID, opClose); err != nil {
			return nil, err
		}
		return json.Marshal(map[string]interface{}{"result": "ok", "device_id": p.DeviceID, "action": "close"})

	case "batch_control":
		var p batchControlParams
		if err := json.Unmarshal(args, &p); err != nil || len(p.Devices) == 0 {
			return nil, common.NewConfigError("screenNjlgPlc: batch_control requires devices")
		}
		var operation string
		switch p.Action {
		case "open":
			operation = opOpen
		case "close":
			operation = opClose
		default:
			return nil, common.NewConfigError("screenNjlgPlc: invalid action %q, must be 'open' or 'close'", p.Action)
		}

		type result struct {
			DeviceID uint32 `json:"device_id"`
			Success  bool   `json:"success"`
			Error    string `json:"error,omitempty"`
		}
		results := make([]result, 0, len(p.Devices))
		for _, deviceID := range p.Devices {
			_, err := d.executeControl(deviceID, operation)
			if err != nil {
				results = append(results, result{DeviceID: deviceID, Success: false, Error: err.Error()})
			} else {
				results = append(results, result{DeviceID: deviceID, Success: true})
			}
			if p.DelayMs > 0 {
				time.Sleep(time.Duration(p.DelayMs) * time.Millisecond)
			}
		}

		return json.Marshal(map[string]interface{}{
			"result":  "ok",
			"total":   len(p.Devices),
			"results": results,
		})

	default:
		return nil, common.NewProtocolError("screenNjlgPlc: unsupported method %q", name)
	}
}

// GetStatus reports static connectivity info, matching the
// no-liveness-probe behavior of the original.
func (d *Driver) GetStatus() (json.RawMessage, error) {
	return json.Marshal(map[string]interface{}{
		"channel_id": d.channelID,
		"addr":       d.addr,
		"port":       d.port,
		"connected":  true,
	})
}
