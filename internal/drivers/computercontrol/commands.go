// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

package computercontrol

import (
	"encoding/json"
	"time"

	"github.com/circutor/fieldctl/internal/common"
)

// Write controls the computer addressed by id: 1 wakes it, 0 asks it
// to shut down.
func (d *Driver) Write(id uint32, value int32) error {
	c := d.findByID(id)
	if c == nil {
		return common.NewDeviceNotFound("computerControl: no computer with id %d", id)
	}

	switch value {
	case 1:
		return d.wake(c.mac)
	case 0:
		return d.requestShutdown(c)
	default:
		return common.NewConfigError("computerControl: write only supports 0 (shutdown) or 1 (wake), got %d", value)
	}
}

// Read reports whether the computer addressed by id is currently
// online: 1 online, 0 offline.
func (d *Driver) Read(id uint32) (int32, error) {
	c := d.findByID(id)
	if c == nil {
		return 0, common.NewDeviceNotFound("computerControl: no computer with id %d", id)
	}
	if d.isOnline(c) {
		return 1, nil
	}
	return 0, nil
}

type targetParams struct {
	ID     *uint32 `json:"id"`
	MAC    *string `json:"mac"`
	Method string  `json:"method"`
}

func (d *Driver) resolveTarget(p targetParams) *computerNode {
	if p.ID != nil {
		return d.findByID(*p.ID)
	}
	if p.MAC != nil {
		return d.findByMAC(*p.MAC)
	}
	return nil
}

// Execute dispatches powerOn/wake/wol, powerOff/shutdown, method,
// heartbeat and getAllStatus.
func (d *Driver) Execute(command string, params json.RawMessage) (json.RawMessage, error) {
	switch command {
	case "powerOn", "wake", "wol":
		var p targetParams
		json.Unmarshal(params, &p)
		target := d.resolveTarget(p)
		if target == nil {
			return nil, common.NewConfigError("computerControl: powerOn requires id or mac")
		}
		if err := d.wake(target.mac); err != nil {
			return nil, err
		}
		return json.RawMessage(`{"status":"ok","action":"wake"}`), nil

	case "powerOff", "shutdown":
		var p targetParams
		json.Unmarshal(params, &p)
		target := d.resolveTarget(p)
		if target == nil {
			return nil, common.NewConfigError("computerControl: powerOff requires id or mac")
		}
		if err := d.requestShutdown(target); err != nil {
			return nil, err
		}
		return json.RawMessage(`{"status":"ok","action":"shutdown"}`), nil

	case "method":
		var p targetParams
		if err := json.Unmarshal(params, &p); err != nil || p.ID == nil || p.Method == "" {
			return nil, common.NewConfigError("computerControl: method command requires id and method")
		}
		target := d.findByID(*p.ID)
		if target == nil {
			return nil, common.NewDeviceNotFound("computerControl: no computer with id %d", *p.ID)
		}
		if target.ip == "" || target.port == 0 {
			return nil, common.NewConfigError("computerControl: computer %d is missing ip or port", *p.ID)
		}
		if _, err := d.sendUDP(target.ip, target.port, p.Method, false); err != nil {
			return nil, err
		}
		return json.Marshal(map[string]string{"status": "ok", "method": p.Method})

	case "heartbeat":
		var p struct {
			MAC string `json:"mac"`
		}
		if err := json.Unmarshal(params, &p); err != nil || p.MAC == "" {
			return nil, common.NewConfigError("computerControl: heartbeat command requires mac")
		}
		target := d.findByMAC(p.MAC)
		if target == nil {
			return nil, common.NewDeviceNotFound("computerControl: no computer with mac %s", p.MAC)
		}
		target.lastHeartbeat = time.Now()
		return json.RawMessage(`{"status":"ok","msg":"heartbeat updated"}`), nil

	case "getAllStatus":
		return d.GetStatus()

	default:
		return nil, common.NewProtocolError("computerControl: unknown command %q", command)
	}
}

// GetStatus reports the online/offline state of every configured
// computer.
func (d *Driver) GetStatus() (json.RawMessage, error) {
	type entry struct {
		ID     uint32 `json:"id"`
		MAC    string `json:"mac"`
		IP     string `json:"ip,omitempty"`
		Port   uint16 `json:"port,omitempty"`
		Online bool   `json:"online"`
	}

	list := make([]entry, 0, len(d.computers))
	for _, c := range d.computers {
		list = append(list, entry{ID: c.id, MAC: c.macText, IP: c.ip, Port: c.port, Online: d.isOnline(c)})
	}

	return json.Marshal(map[string]interface{}{
		"channel_id": d.channelID,
		"list":       list,
	})
}
