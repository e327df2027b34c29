// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

package novastar

import (
	"encoding/json"

	"github.com/circutor/fieldctl/internal/common"
)

var novastarMethods = []string{"read_mode_id", "load_scene"}

type loadSceneParams struct {
	SceneID uint8 `json:"scene_id"`
}

// Execute dispatches read_mode_id and load_scene.
func (d *Driver) Execute(command string, params json.RawMessage) (json.RawMessage, error) {
	switch command {
	case "read_mode_id":
		response, err := d.readModeID()
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]interface{}{"mode_id": response})

	case "load_scene":
		var p loadSceneParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, common.NewConfigError("novastar: invalid load_scene params: %v", err)
		}
		ok, err := d.loadScene(p.SceneID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]interface{}{"success": ok, "scene_id": p.SceneID})

	default:
		return nil, common.NewProtocolError("novastar: unknown command %q", command)
	}
}

// GetMethods overrides the embedded default with the named RPCs this
// driver supports.
func (d *Driver) GetMethods() []string { return novastarMethods }

// CallMethod overrides the embedded default, delegating to the same
// dispatch table as Execute.
func (d *Driver) CallMethod(name string, args json.RawMessage) (json.RawMessage, error) {
	return d.Execute(name, args)
}

// GetStatus reports the transport in use; Novastar has no liveness
// probe, so online is reported true whenever the driver is configured.
func (d *Driver) GetStatus() (json.RawMessage, error) {
	if d.useTCP {
		return json.Marshal(map[string]interface{}{
			"connected":  true,
			"connection": "tcp",
			"addr":       d.addr,
			"port":       d.port,
		})
	}
	return json.Marshal(map[string]interface{}{
		"connected":  true,
		"connection": "serial",
		"port_name":  d.portName,
		"baud_rate":  d.baudRate,
	})
}
