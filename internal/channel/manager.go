// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/circutor/fieldctl/internal/common"
	"github.com/circutor/fieldctl/internal/events"
	"github.com/circutor/fieldctl/pkg/models"
)

// entry pairs a driver with the exclusive lock that serializes access
// to it; a channel's driver is never invoked concurrently.
type entry struct {
	mu     sync.Mutex
	driver models.Driver
}

// Manager owns the set of enabled channels constructed from
// configuration and serializes access to each one individually.
type Manager struct {
	bus *events.Bus

	mu       sync.RWMutex
	channels map[uint32]*entry
}

// NewManager constructs a Manager and builds a driver for every
// enabled ChannelConfig. A channel whose Constructor fails (unknown
// kind or rejected arguments) is logged and skipped; it never aborts
// construction of the rest.
func NewManager(configs []common.ChannelConfig, bus *events.Bus) *Manager {
	m := &Manager{bus: bus, channels: make(map[uint32]*entry)}

	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}

		driver, err := buildDriver(cfg)
		if err != nil {
			common.LoggingClient.Error(fmt.Sprintf("channel %d: failed to construct driver %q: %v", cfg.ChannelID, cfg.ProtocolKind, err))
			continue
		}

		m.channels[cfg.ChannelID] = &entry{driver: driver}
		common.LoggingClient.Info(fmt.Sprintf("channel %d: driver %q connected", cfg.ChannelID, cfg.ProtocolKind))
		if bus != nil {
			bus.Publish(events.ChannelConnected(cfg.ChannelID))
		}
	}

	return m
}

// buildDriver merges the auto_call spec into the channel's arguments
// (so a driver like modbus can read its own auto-poll configuration
// directly from the parameters object it receives) and dispatches to
// the Constructor registered for the channel's protocol kind.
func buildDriver(cfg common.ChannelConfig) (models.Driver, error) {
	ctor, ok := lookupDriver(cfg.ProtocolKind)
	if !ok {
		return nil, common.NewProtocolError("unknown protocol kind %q", cfg.ProtocolKind)
	}

	args, err := mergeAutoCall(cfg.Arguments, cfg.AutoCall)
	if err != nil {
		return nil, common.NewConfigError("channel %d: %v", cfg.ChannelID, err)
	}

	return ctor(cfg.ChannelID, args)
}

func mergeAutoCall(arguments json.RawMessage, autoCall []common.AutoPollSpec) (json.RawMessage, error) {
	if len(autoCall) == 0 {
		if len(arguments) == 0 {
			return json.RawMessage("{}"), nil
		}
		return arguments, nil
	}

	merged := make(map[string]interface{})
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &merged); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}
	}
	merged["auto_call"] = autoCall

	out, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to merge auto_call into arguments: %w", err)
	}
	return out, nil
}

func (m *Manager) lookup(channelID uint32) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.channels[channelID]
	if !ok {
		return nil, common.NewChannelNotFound(channelID)
	}
	return e, nil
}

// Write performs a scalar write on channelID, addressed by deviceID.
func (m *Manager) Write(channelID, deviceID uint32, value int32) error {
	e, err := m.lookup(channelID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.driver.Write(deviceID, value)
}

// Read performs a scalar read on channelID, addressed by deviceID.
func (m *Manager) Read(channelID, deviceID uint32) (int32, error) {
	e, err := m.lookup(channelID)
	if err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.driver.Read(deviceID)
}

// Execute runs a driver-defined command on channelID.
func (m *Manager) Execute(channelID uint32, command string, params json.RawMessage) (json.RawMessage, error) {
	e, err := m.lookup(channelID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.driver.Execute(command, params)
}

// CallMethod invokes a named RPC on channelID's driver.
func (m *Manager) CallMethod(channelID uint32, name string, args json.RawMessage) (json.RawMessage, error) {
	e, err := m.lookup(channelID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.driver.CallMethod(name, args)
}

// GetMethods lists the RPC names channelID's driver accepts.
func (m *Manager) GetMethods(channelID uint32) ([]string, error) {
	e, err := m.lookup(channelID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.driver.GetMethods(), nil
}

// ChannelStatus pairs a channel's status payload with its id and any
// error obtained retrieving it, for GetAllStatus aggregation.
type ChannelStatus struct {
	ChannelID uint32          `json:"channel_id"`
	Status    json.RawMessage `json:"status,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// GetAllStatus reports GetStatus() for every constructed channel.
func (m *Manager) GetAllStatus() []ChannelStatus {
	m.mu.RLock()
	ids := make([]uint32, 0, len(m.channels))
	entries := make(map[uint32]*entry, len(m.channels))
	for id, e := range m.channels {
		ids = append(ids, id)
		entries[id] = e
	}
	m.mu.RUnlock()

	out := make([]ChannelStatus, 0, len(ids))
	for _, id := range ids {
		e := entries[id]
		e.mu.Lock()
		status, err := e.driver.GetStatus()
		e.mu.Unlock()

		cs := ChannelStatus{ChannelID: id, Status: status}
		if err != nil {
			cs.Error = err.Error()
		}
		out = append(out, cs)
	}
	return out
}

// Has reports whether channelID was successfully constructed.
func (m *Manager) Has(channelID uint32) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.channels[channelID]
	return ok
}
