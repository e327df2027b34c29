// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

// Package mock implements a fault-injection test fabric: no real wire
// protocol, just an in-memory store of (address -> int32) values plus
// an arbitrary string-keyed JSON object store, both optionally
// persisted to disk, with configurable latency and error-rate
// simulation for exercising the rest of the control plane under
// degraded conditions.
package mock

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/circutor/fieldctl/internal/channel"
	"github.com/circutor/fieldctl/internal/common"
	"github.com/circutor/fieldctl/pkg/models"
)

func init() {
	channel.RegisterDriver("mock", New)
}

type state struct {
	mu         sync.Mutex
	values     map[uint32]int32
	jsonStore  map[string]json.RawMessage
	fault      bool
	readCount  uint64
	writeCount uint64
	errorCount uint64
}

// Driver is the mock protocol implementation.
type Driver struct {
	channelID uint32
	delayMs   uint64
	errorRate float64
	state     *state

	models.UnimplementedMethods
}

type driverConfig struct {
	DelayMs       uint64           `json:"delay_ms"`
	ErrorRate     float64          `json:"error_rate"`
	InitialValues map[string]int32 `json:"initial_values"`
}

// New constructs a mock driver, seeding it from initial_values and
// then overlaying whatever was previously persisted for this channel.
func New(channelID uint32, arguments json.RawMessage) (models.Driver, error) {
	var cfg driverConfig
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &cfg); err != nil {
			return nil, common.NewConfigError("mock: invalid arguments: %v", err)
		}
	}

	if cfg.ErrorRate < 0 {
		cfg.ErrorRate = 0
	}
	if cfg.ErrorRate > 1 {
		cfg.ErrorRate = 1
	}

	st := &state{
		values:    make(map[uint32]int32),
		jsonStore: make(map[string]json.RawMessage),
	}
	for addr, val := range cfg.InitialValues {
		var a uint32
		if _, err := fmt.Sscanf(addr, "%d", &a); err == nil {
			st.values[a] = val
		}
	}

	d := &Driver{
		channelID: channelID,
		delayMs:   cfg.DelayMs,
		errorRate: cfg.ErrorRate,
		state:     st,
	}
	d.restoreFromStorage()

	common.LoggingClient.Info(fmt.Sprintf("mock channel %d initialized delay=%dms error_rate=%.2f", channelID, d.delayMs, d.errorRate))
	return d, nil
}

func (d *Driver) Name() string { return "mock" }

func (d *Driver) simulateDelay() {
	if d.delayMs > 0 {
		time.Sleep(time.Duration(d.delayMs) * time.Millisecond)
	}
}

func (d *Driver) shouldSimulateError() bool {
	if d.errorRate <= 0 {
		return false
	}
	return rand.Float64() < d.errorRate
}

func (d *Driver) checkFault() error {
	d.state.mu.Lock()
	defer d.state.mu.Unlock()
	if d.state.fault {
		return common.NewOther("device is in a simulated fault state")
	}
	return nil
}

func (d *Driver) recordError() {
	d.state.mu.Lock()
	d.state.errorCount++
	d.state.mu.Unlock()
}

func (d *Driver) storagePath() string {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	return filepath.Join(wd, common.MockStorageDir, fmt.Sprintf("channel_%d.json", d.channelID))
}

type persistedState struct {
	Values    map[string]int32           `json:"__mock_values"`
	JSONStore map[string]json.RawMessage `json:"__mock_json_store"`
}

func (d *Driver) saveToDisk() {
	path := d.storagePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		common.LoggingClient.Warn(fmt.Sprintf("mock channel %d: failed to create storage dir: %v", d.channelID, err))
		return
	}

	d.state.mu.Lock()
	values := make(map[string]int32, len(d.state.values))
	for addr, v := range d.state.values {
		values[fmt.Sprintf("%d", addr)] = v
	}
	jsonStore := make(map[string]json.RawMessage, len(d.state.jsonStore))
	for k, v := range d.state.jsonStore {
		jsonStore[k] = v
	}
	d.state.mu.Unlock()

	data, err := json.MarshalIndent(persistedState{Values: values, JSONStore: jsonStore}, "", "  ")
	if err != nil {
		common.LoggingClient.Warn(fmt.Sprintf("mock channel %d: failed to marshal storage: %v", d.channelID, err))
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		common.LoggingClient.Warn(fmt.Sprintf("mock channel %d: failed to write storage file: %v", d.channelID, err))
	}
}

func (d *Driver) restoreFromStorage() {
	raw, err := os.ReadFile(d.storagePath())
	if err != nil {
		return
	}

	var persisted persistedState
	if err := json.Unmarshal(raw, &persisted); err != nil {
		common.LoggingClient.Debug(fmt.Sprintf("mock channel %d: failed to parse storage file: %v", d.channelID, err))
		return
	}

	d.state.mu.Lock()
	defer d.state.mu.Unlock()
	for addr, v := range persisted.Values {
		var a uint32
		if _, err := fmt.Sscanf(addr, "%d", &a); err == nil {
			d.state.values[a] = v
		}
	}
	for k, v := range persisted.JSONStore {
		d.state.jsonStore[k] = v
	}
}

// Write stores value at address id.
func (d *Driver) Write(id uint32, value int32) error {
	d.simulateDelay()
	if err := d.checkFault(); err != nil {
		return err
	}
	if d.shouldSimulateError() {
		d.recordError()
		return common.NewOther("simulated error: write to address %d failed", id)
	}

	d.state.mu.Lock()
	d.state.values[id] = value
	d.state.writeCount++
	d.state.mu.Unlock()
	d.saveToDisk()

	return nil
}

// Read returns the value stored at address id, defaulting to 0 if
// never written.
func (d *Driver) Read(id uint32) (int32, error) {
	d.simulateDelay()
	if err := d.checkFault(); err != nil {
		return 0, err
	}
	if d.shouldSimulateError() {
		d.recordError()
		return 0, common.NewOther("simulated error: read from address %d failed", id)
	}

	d.state.mu.Lock()
	defer d.state.mu.Unlock()
	value := d.state.values[id]
	d.state.readCount++
	return value, nil
}

// GetStatus reports fault state, configured latency/error-rate and
// running counters.
func (d *Driver) GetStatus() (json.RawMessage, error) {
	d.simulateDelay()

	d.state.mu.Lock()
	defer d.state.mu.Unlock()
	return json.Marshal(map[string]interface{}{
		"connected":  !d.state.fault,
		"channel_id": d.channelID,
		"fault":      d.state.fault,
		"delay_ms":   d.delayMs,
		"error_rate": d.errorRate,
		"statistics": map[string]interface{}{
			"read_count":          d.state.readCount,
			"write_count":         d.state.writeCount,
			"error_count":         d.state.errorCount,
			"stored_values":       len(d.state.values),
			"stored_json_objects": len(d.state.jsonStore),
		},
	})
}
