// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

package mock

import (
	"encoding/json"
	"fmt"

	"github.com/circutor/fieldctl/internal/common"
)

// Execute runs one of the mock protocol's diagnostic and bulk-access
// commands.
func (d *Driver) Execute(command string, params json.RawMessage) (json.RawMessage, error) {
	d.simulateDelay()
	if err := d.checkFault(); err != nil {
		return nil, err
	}
	if d.shouldSimulateError() {
		d.recordError()
		return nil, common.NewOther("simulated error: command %q failed", command)
	}

	switch command {
	case "ping":
		return json.Marshal(map[string]interface{}{
			"status": "ok", "message": "pong", "channel_id": d.channelID,
		})
	case "reset":
		d.state.mu.Lock()
		d.state.values = make(map[uint32]int32)
		d.state.mu.Unlock()
		return json.Marshal(map[string]interface{}{"status": "ok", "message": "all values reset"})
	case "set_error_rate":
		var p struct {
			Rate *float64 `json:"rate"`
		}
		if err := json.Unmarshal(params, &p); err != nil || p.Rate == nil {
			return nil, common.NewConfigError("requires parameter 'rate' (0.0-1.0)")
		}
		rate := clamp01(*p.Rate)
		d.errorRate = rate
		return json.Marshal(map[string]interface{}{"status": "ok", "error_rate": rate})
	case "get_all_values":
		d.state.mu.Lock()
		values := make(map[string]int32, len(d.state.values))
		for addr, v := range d.state.values {
			values[fmt.Sprintf("%d", addr)] = v
		}
		d.state.mu.Unlock()
		return json.Marshal(map[string]interface{}{"status": "ok", "values": values})
	case "batch_write":
		return d.execBatchWrite(params)
	case "batch_read":
		return d.execBatchRead(params)
	case "store_json":
		return d.execStoreJSON(params)
	case "load_json":
		return d.execLoadJSON(params)
	case "delete_json":
		return d.execDeleteJSON(params)
	case "get_all_json":
		return d.execGetAllJSON()
	case "clear_json":
		return d.execClearJSON()
	default:
		return nil, common.NewProtocolError("unsupported command: %s", command)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

type batchWriteEntry struct {
	Addr  uint32 `json:"addr"`
	Value int32  `json:"value"`
}

func (d *Driver) execBatchWrite(params json.RawMessage) (json.RawMessage, error) {
	var p struct {
		Writes []batchWriteEntry `json:"writes"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, common.NewConfigError("requires parameter array 'writes'")
	}

	d.state.mu.Lock()
	for _, w := range p.Writes {
		d.state.values[w.Addr] = w.Value
	}
	d.state.writeCount += uint64(len(p.Writes))
	d.state.mu.Unlock()
	d.saveToDisk()

	return json.Marshal(map[string]interface{}{"status": "ok", "written": len(p.Writes)})
}

func (d *Driver) execBatchRead(params json.RawMessage) (json.RawMessage, error) {
	var p struct {
		Addrs []uint32 `json:"addrs"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, common.NewConfigError("requires parameter array 'addrs'")
	}

	d.state.mu.Lock()
	results := make([]map[string]interface{}, 0, len(p.Addrs))
	for _, addr := range p.Addrs {
		results = append(results, map[string]interface{}{"addr": addr, "value": d.state.values[addr]})
	}
	d.state.readCount += uint64(len(results))
	d.state.mu.Unlock()

	return json.Marshal(map[string]interface{}{"status": "ok", "results": results})
}

func (d *Driver) execStoreJSON(params json.RawMessage) (json.RawMessage, error) {
	var p struct {
		Key   string          `json:"key"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(params, &p); err != nil || p.Key == "" {
		return nil, common.NewConfigError("requires string parameter 'key' and parameter 'value'")
	}

	d.state.mu.Lock()
	d.state.jsonStore[p.Key] = p.Value
	d.state.writeCount++
	d.state.mu.Unlock()
	d.saveToDisk()

	return json.Marshal(map[string]interface{}{"status": "ok", "key": p.Key, "value": p.Value})
}

func (d *Driver) execLoadJSON(params json.RawMessage) (json.RawMessage, error) {
	var p struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(params, &p); err != nil || p.Key == "" {
		return nil, common.NewConfigError("requires string parameter 'key'")
	}

	d.state.mu.Lock()
	value, found := d.state.jsonStore[p.Key]
	d.state.readCount++
	d.state.mu.Unlock()

	return json.Marshal(map[string]interface{}{
		"status": "ok", "key": p.Key, "value": value, "found": found,
	})
}

func (d *Driver) execDeleteJSON(params json.RawMessage) (json.RawMessage, error) {
	var p struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(params, &p); err != nil || p.Key == "" {
		return nil, common.NewConfigError("requires string parameter 'key'")
	}

	d.state.mu.Lock()
	_, existed := d.state.jsonStore[p.Key]
	delete(d.state.jsonStore, p.Key)
	d.state.mu.Unlock()
	if existed {
		d.saveToDisk()
	}

	return json.Marshal(map[string]interface{}{"status": "ok", "key": p.Key, "deleted": existed})
}

func (d *Driver) execGetAllJSON() (json.RawMessage, error) {
	d.state.mu.Lock()
	data := make(map[string]json.RawMessage, len(d.state.jsonStore))
	for k, v := range d.state.jsonStore {
		data[k] = v
	}
	d.state.mu.Unlock()

	return json.Marshal(map[string]interface{}{"status": "ok", "count": len(data), "data": data})
}

func (d *Driver) execClearJSON() (json.RawMessage, error) {
	d.state.mu.Lock()
	d.state.jsonStore = make(map[string]json.RawMessage)
	d.state.mu.Unlock()
	d.saveToDisk()

	return json.Marshal(map[string]interface{}{"status": "ok", "message": "all json objects cleared"})
}
