// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

package misc

import (
	"encoding/json"
	"fmt"

	"github.com/circutor/fieldctl/internal/common"
)

var ykVapMethods = []string{"call_scene", "read_scene"}

func (d *YkVap) GetMethods() []string { return ykVapMethods }

func (d *YkVap) CallMethod(method string, params json.RawMessage) (json.RawMessage, error) {
	return d.Execute(method, params)
}

func (d *YkVap) Execute(command string, params json.RawMessage) (json.RawMessage, error) {
	switch command {
	case "call_scene", "call":
		var p struct {
			SceneID uint64  `json:"scene_id"`
			Group   *uint64 `json:"group"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, common.NewConfigError("yk-vap: call_scene requires scene_id")
		}

		windows, err := d.callScene(p.SceneID, p.Group)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]interface{}{
			"status":   "ok",
			"scene_id": p.SceneID,
			"group":    p.Group,
			"windows":  windows,
		})

	case "read_scene", "rscs":
		var p struct {
			WallIndex  uint64  `json:"wallIndex"`
			WallIndex2 uint64  `json:"wall_index"`
			Group      *uint64 `json:"group"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, common.NewConfigError("yk-vap: read_scene requires wallIndex")
		}
		wallIndex := p.WallIndex
		if wallIndex == 0 {
			wallIndex = p.WallIndex2
		}

		index, err := d.readScene(wallIndex, p.Group)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]interface{}{
			"status":    "ok",
			"wallIndex": wallIndex,
			"group":     p.Group,
			"index":     index,
		})

	default:
		return nil, common.NewProtocolError("yk-vap: unknown command %q", command)
	}
}

func (d *YkVap) GetStatus() (json.RawMessage, error) {
	return json.Marshal(map[string]interface{}{
		"protocol":   "yk-vap",
		"channel_id": d.channelID,
		"addr":       fmt.Sprintf("%s:%d", d.addr, d.port),
		"type":       d.transport,
		"connected":  true,
	})
}
