// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

package misc

import (
	"encoding/json"
	"sync/atomic"

	"github.com/circutor/fieldctl/internal/common"
)

var splicer3dMethods = []string{
	"setPreset", "set_preset", "loadScene", "setWinSrc", "set_win_src",
}

func (d *Splicer3D) GetMethods() []string { return splicer3dMethods }

func (d *Splicer3D) CallMethod(method string, params json.RawMessage) (json.RawMessage, error) {
	return d.Execute(method, params)
}

func (d *Splicer3D) Execute(command string, params json.RawMessage) (json.RawMessage, error) {
	switch command {
	case "setPreset", "set_preset", "loadScene", "load_scene":
		var p struct {
			SceneID  uint32 `json:"scene_id"`
			SceneID2 uint32 `json:"sceneId"`
			Value    uint32 `json:"value"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, common.NewConfigError("splicer3d: invalid params: %v", err)
		}
		sceneID := p.SceneID
		if sceneID == 0 {
			sceneID = p.SceneID2
		}
		if sceneID == 0 {
			sceneID = p.Value
		}
		if sceneID == 0 {
			return nil, common.NewConfigError("splicer3d: missing scene_id parameter")
		}

		success, err := d.setPreset(sceneID)
		if err != nil {
			return nil, err
		}
		if success {
			atomic.StoreInt32(&d.currentScene, int32(sceneID))
		}
		return json.Marshal(map[string]interface{}{
			"success": success,
			"message": sceneSwitchMessage(sceneID, success),
		})

	case "setWinSrc", "set_win_src":
		var p struct {
			Window     uint32 `json:"window"`
			Slot       uint32 `json:"slot"`
			Interface  uint32 `json:"interface"`
			Type       uint32 `json:"type"`
			SignalType uint32 `json:"signal_type"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, common.NewConfigError("splicer3d: invalid params: %v", err)
		}
		signalType := p.Type
		if signalType == 0 {
			signalType = p.SignalType
		}
		if p.Window == 0 || p.Slot == 0 || p.Interface == 0 || signalType == 0 {
			return nil, common.NewConfigError("splicer3d: missing window, slot, interface or type parameter")
		}

		if err := d.setWinSrc(p.Window, p.Slot, p.Interface, signalType); err != nil {
			return nil, err
		}
		return json.Marshal(map[string]interface{}{
			"success": true,
			"message": "window signal source set",
		})

	default:
		return nil, common.NewProtocolError("splicer3d: unknown command %q", command)
	}
}

func sceneSwitchMessage(sceneID uint32, success bool) string {
	if success {
		return "scene switched"
	}
	return "scene switch failed"
}

func (d *Splicer3D) GetStatus() (json.RawMessage, error) {
	status := map[string]interface{}{
		"protocol":      "splicer_3d",
		"connection":    d.connType,
		"group":         d.group,
		"current_scene": atomic.LoadInt32(&d.currentScene),
		"online":        true,
	}
	switch d.connType {
	case "udp":
		status["addr"] = d.addr
		status["port"] = d.port
		if d.localPort != 0 {
			status["local_port"] = d.localPort
		}
	case "serial":
		status["port_name"] = d.portName
		status["baud_rate"] = d.baudRate
	default:
		status["addr"] = d.addr
		status["port"] = d.port
	}
	return json.Marshal(status)
}
