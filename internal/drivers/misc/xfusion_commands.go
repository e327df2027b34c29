// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

package misc

import (
	"encoding/json"
	"strings"

	"github.com/circutor/fieldctl/internal/common"
)

var xfusionMethods = []string{
	"powerOn", "on", "powerOff", "shutdown", "forceOff", "forceRestart",
	"forcePowerCycle", "reset", "heartbeat", "get", "getPowerState", "getAllStatus",
}

func (d *XFusion) GetMethods() []string { return xfusionMethods }

func (d *XFusion) CallMethod(method string, params json.RawMessage) (json.RawMessage, error) {
	return d.Execute(method, params)
}

type xfusionTargetParams struct {
	ID  *uint32 `json:"id"`
	MAC *string `json:"mac"`
}

func (d *XFusion) resolveTarget(p xfusionTargetParams) *xfusionNode {
	if p.ID != nil {
		return d.findByID(*p.ID)
	}
	if p.MAC != nil {
		return d.findByMAC(*p.MAC)
	}
	return nil
}

func (d *XFusion) Execute(command string, params json.RawMessage) (json.RawMessage, error) {
	switch command {
	case "powerOn", "on":
		var p xfusionTargetParams
		json.Unmarshal(params, &p)
		node := d.resolveTarget(p)
		if node == nil {
			return nil, common.NewConfigError("XFusion: powerOn requires id or mac")
		}
		if err := d.powerOn(node); err != nil {
			return nil, err
		}
		return json.RawMessage(`{"status":"ok","action":"powerOn"}`), nil

	case "powerOff", "shutdown":
		var p xfusionTargetParams
		json.Unmarshal(params, &p)
		node := d.resolveTarget(p)
		if node == nil {
			return nil, common.NewConfigError("XFusion: powerOff requires id or mac")
		}
		if err := d.powerOff(node); err != nil {
			return nil, err
		}
		return json.RawMessage(`{"status":"ok","action":"powerOff"}`), nil

	case "forceOff":
		var p struct {
			ID uint32 `json:"id"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, common.NewConfigError("XFusion: forceOff requires id")
		}
		node := d.findByID(p.ID)
		if node == nil {
			return nil, common.NewDeviceNotFound("XFusion: no node with id %d", p.ID)
		}
		if err := d.forceOff(node); err != nil {
			return nil, err
		}
		return json.RawMessage(`{"status":"ok","action":"forceOff"}`), nil

	case "forceRestart":
		var p struct {
			ID uint32 `json:"id"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, common.NewConfigError("XFusion: forceRestart requires id")
		}
		node := d.findByID(p.ID)
		if node == nil {
			return nil, common.NewDeviceNotFound("XFusion: no node with id %d", p.ID)
		}
		if err := d.forceRestart(node); err != nil {
			return nil, err
		}
		return json.RawMessage(`{"status":"ok","action":"forceRestart"}`), nil

	case "forcePowerCycle":
		var p struct {
			ID uint32 `json:"id"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, common.NewConfigError("XFusion: forcePowerCycle requires id")
		}
		node := d.findByID(p.ID)
		if node == nil {
			return nil, common.NewDeviceNotFound("XFusion: no node with id %d", p.ID)
		}
		if err := d.forcePowerCycle(node); err != nil {
			return nil, err
		}
		return json.RawMessage(`{"status":"ok","action":"forcePowerCycle"}`), nil

	case "reset":
		var p struct {
			ID        uint32 `json:"id"`
			ResetType string `json:"resetType"`
			Type      string `json:"type"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, common.NewConfigError("XFusion: reset requires id and resetType")
		}
		resetType := p.ResetType
		if resetType == "" {
			resetType = p.Type
		}
		if resetType == "" {
			return nil, common.NewConfigError("XFusion: reset requires resetType")
		}
		node := d.findByID(p.ID)
		if node == nil {
			return nil, common.NewDeviceNotFound("XFusion: no node with id %d", p.ID)
		}
		if err := d.powerAction(node, resetType); err != nil {
			return nil, err
		}
		return json.Marshal(map[string]interface{}{"status": "ok", "action": "reset", "resetType": resetType})

	case "heartbeat":
		var p struct {
			MAC string `json:"mac"`
		}
		if err := json.Unmarshal(params, &p); err != nil || p.MAC == "" {
			return nil, common.NewConfigError("XFusion: heartbeat requires mac")
		}
		if !d.updateHeartbeat(p.MAC) {
			return nil, common.NewDeviceNotFound("XFusion: no node with mac %s", p.MAC)
		}
		return json.RawMessage(`{"status":"ok","msg":"heartbeat updated"}`), nil

	case "get":
		var p struct {
			ID uint32 `json:"id"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, common.NewConfigError("XFusion: get requires id")
		}
		node := d.findByID(p.ID)
		if node == nil {
			return nil, common.NewDeviceNotFound("XFusion: no node with id %d", p.ID)
		}

		powerState, _ := d.getPowerState(node)
		volume, mute := d.getAudioStatus(node)
		return json.Marshal(map[string]interface{}{
			"id":         p.ID,
			"online":     strings.EqualFold(powerState, "On"),
			"powerState": powerState,
			"volume":     volume,
			"mute":       mute,
		})

	case "getPowerState":
		var p struct {
			ID uint32 `json:"id"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, common.NewConfigError("XFusion: getPowerState requires id")
		}
		node := d.findByID(p.ID)
		if node == nil {
			return nil, common.NewDeviceNotFound("XFusion: no node with id %d", p.ID)
		}
		powerState, err := d.getPowerState(node)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]interface{}{
			"id":          p.ID,
			"powerState":  powerState,
			"isPoweredOn": strings.EqualFold(powerState, "On"),
		})

	case "getAllStatus":
		return d.GetStatus()

	default:
		return nil, common.NewProtocolError("XFusion: unknown command %q", command)
	}
}

// GetStatus reports the online/offline state of every configured
// node.
func (d *XFusion) GetStatus() (json.RawMessage, error) {
	type entry struct {
		ID      uint32 `json:"id"`
		MAC     string `json:"mac"`
		IP      string `json:"ip,omitempty"`
		Port    uint16 `json:"port,omitempty"`
		Online  bool   `json:"online"`
		IbmcURL string `json:"ibmc_url"`
	}

	list := make([]entry, 0, len(d.nodes))
	for _, n := range d.nodes {
		list = append(list, entry{
			ID: n.id, MAC: n.macText, IP: n.ip, Port: n.port,
			Online: d.isOnline(n), IbmcURL: n.ibmcURL,
		})
	}

	return json.Marshal(map[string]interface{}{
		"channel_id": d.channelID,
		"list":       list,
	})
}
