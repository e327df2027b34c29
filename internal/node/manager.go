// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

// Package node holds the logical-device registry: the immutable
// global_id -> NodeConfig map loaded from configuration, and the
// mutable global_id -> NodeState map tracking the last observed value
// and online status of every node.
package node

import (
	"sync"
	"time"

	"github.com/circutor/fieldctl/internal/common"
	"github.com/circutor/fieldctl/internal/events"
)

// State is the runtime snapshot of one logical node.
type State struct {
	GlobalID     uint32
	ChannelID    uint32
	DeviceID     uint32
	Category     string
	Alias        string
	CurrentValue *int32
	Online       bool
	LastUpdate   *time.Time
}

// Manager holds node configuration (fixed at construction time) and
// runtime state (updated as reads/writes complete).
type Manager struct {
	bus *events.Bus

	mu      sync.RWMutex
	configs map[uint32]common.NodeConfig
	states  map[uint32]*State
}

// NewManager builds a Manager from the node section of configuration,
// initializing every node's state as offline with no observed value.
func NewManager(configs []common.NodeConfig, bus *events.Bus) *Manager {
	m := &Manager{
		bus:     bus,
		configs: make(map[uint32]common.NodeConfig, len(configs)),
		states:  make(map[uint32]*State, len(configs)),
	}

	for _, cfg := range configs {
		m.configs[cfg.GlobalID] = cfg
		m.states[cfg.GlobalID] = &State{
			GlobalID:  cfg.GlobalID,
			ChannelID: cfg.ChannelID,
			DeviceID:  cfg.DeviceID,
			Category:  cfg.Category,
			Alias:     cfg.Alias,
		}
	}

	return m
}

// GetNode returns the immutable configuration for globalID.
func (m *Manager) GetNode(globalID uint32) (common.NodeConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg, ok := m.configs[globalID]
	if !ok {
		return common.NodeConfig{}, common.NewDeviceNotFound("node %d not found", globalID)
	}
	return cfg, nil
}

// GetState returns a copy of globalID's current runtime state.
func (m *Manager) GetState(globalID uint32) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[globalID]
	if !ok {
		return State{}, common.NewDeviceNotFound("node %d not found", globalID)
	}
	return *s, nil
}

// GetAllStates returns a copy of every node's current runtime state.
func (m *Manager) GetAllStates() []State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]State, 0, len(m.states))
	for _, s := range m.states {
		out = append(out, *s)
	}
	return out
}

// UpdateValue records a newly observed value for globalID: it is
// always marked online and timestamped, but NodeStateChanged is only
// emitted when the value actually changed from its previous reading
// (treating "never observed" as 0, matching the reference
// implementation's old_value.unwrap_or(0)).
func (m *Manager) UpdateValue(globalID uint32, newValue int32) {
	m.mu.Lock()
	s, ok := m.states[globalID]
	if !ok {
		m.mu.Unlock()
		return
	}

	oldValue := int32(0)
	if s.CurrentValue != nil {
		oldValue = *s.CurrentValue
	}

	now := time.Now()
	s.CurrentValue = &newValue
	s.LastUpdate = &now
	s.Online = true
	m.mu.Unlock()

	if oldValue != newValue && m.bus != nil {
		m.bus.Publish(events.NodeStateChanged(globalID, oldValue, newValue))
	}
}

// SetOnline sets globalID's online flag directly, without touching its
// current value.
func (m *Manager) SetOnline(globalID uint32, online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.states[globalID]; ok {
		s.Online = online
	}
}

// FindGlobalID looks up the node bound to (channelID, deviceID).
func (m *Manager) FindGlobalID(channelID, deviceID uint32) (uint32, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, cfg := range m.configs {
		if cfg.ChannelID == channelID && cfg.DeviceID == deviceID {
			return id, true
		}
	}
	return 0, false
}
