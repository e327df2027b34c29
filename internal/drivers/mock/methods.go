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

var mockMethods = []string{
	"simulate_fault",
	"clear_fault",
	"get_statistics",
	"set_delay",
	"get_value",
	"set_value",
	"store_json",
	"load_json",
	"delete_json",
}

// GetMethods lists the mock driver's named RPCs, overriding the
// embedded UnimplementedMethods default.
func (d *Driver) GetMethods() []string { return mockMethods }

// CallMethod invokes a named RPC, overriding the embedded
// UnimplementedMethods default.
func (d *Driver) CallMethod(name string, args json.RawMessage) (json.RawMessage, error) {
	d.simulateDelay()

	switch name {
	case "simulate_fault":
		d.state.mu.Lock()
		d.state.fault = true
		d.state.mu.Unlock()
		return json.Marshal(map[string]interface{}{"status": "ok", "message": "fault simulated"})
	case "clear_fault":
		d.state.mu.Lock()
		d.state.fault = false
		d.state.mu.Unlock()
		return json.Marshal(map[string]interface{}{"status": "ok", "message": "fault cleared"})
	case "get_statistics":
		d.state.mu.Lock()
		defer d.state.mu.Unlock()
		return json.Marshal(map[string]interface{}{
			"read_count":          d.state.readCount,
			"write_count":         d.state.writeCount,
			"error_count":         d.state.errorCount,
			"stored_values":       len(d.state.values),
			"stored_json_objects": len(d.state.jsonStore),
			"total_operations":    d.state.readCount + d.state.writeCount,
		})
	case "set_delay":
		var p struct {
			DelayMs *uint64 `json:"delay_ms"`
		}
		if err := json.Unmarshal(args, &p); err != nil || p.DelayMs == nil {
			return nil, common.NewConfigError("requires parameter 'delay_ms'")
		}
		d.delayMs = *p.DelayMs
		return json.Marshal(map[string]interface{}{"status": "ok", "delay_ms": d.delayMs})
	case "get_value":
		var p struct {
			Addr *uint32 `json:"addr"`
		}
		if err := json.Unmarshal(args, &p); err != nil || p.Addr == nil {
			return nil, common.NewConfigError("requires parameter 'addr'")
		}
		d.state.mu.Lock()
		value := d.state.values[*p.Addr]
		d.state.mu.Unlock()
		return json.Marshal(map[string]interface{}{"addr": *p.Addr, "value": value})
	case "set_value":
		var p struct {
			Addr  *uint32 `json:"addr"`
			Value *int32  `json:"value"`
		}
		if err := json.Unmarshal(args, &p); err != nil || p.Addr == nil || p.Value == nil {
			return nil, common.NewConfigError("requires parameters 'addr' and 'value'")
		}
		d.state.mu.Lock()
		d.state.values[*p.Addr] = *p.Value
		d.state.mu.Unlock()
		return json.Marshal(map[string]interface{}{"status": "ok", "addr": *p.Addr, "value": *p.Value})
	case "store_json", "load_json", "delete_json":
		return d.Execute(name, args)
	default:
		return nil, fmt.Errorf("unsupported method: %s", name)
	}
}
