// -*- mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2017-2018 Canonical Ltd
// Copyright (C) 2018 IOTech Ltd
// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package common

import "encoding/json"

// Config is the top-level configuration document, loaded once at
// startup from a single JSON file (spec section 6). Mutating a
// channel's configuration requires a process restart — channels are
// constructed once from this snapshot.
type Config struct {
	Channels     []ChannelConfig `json:"channels"`
	Nodes        []NodeConfig    `json:"nodes"`
	Scenes       []SceneConfig   `json:"scenes"`
	TaskSettings TaskSettings    `json:"task_settings"`
	WebServer    WebServerConfig `json:"web_server"`

	File     *FileConfig     `json:"file,omitempty"`
	Database *DatabaseConfig `json:"database,omitempty"`
	Resource *ResourceConfig `json:"resource,omitempty"`
	Log      *LogConfig      `json:"log,omitempty"`
}

// TaskSettings configures the deferred-write scheduler (spec section 6).
type TaskSettings struct {
	TimeoutMs       uint64 `json:"timeout_ms"`
	CheckIntervalMs uint64 `json:"check_interval_ms"`
	MaxRetries      uint32 `json:"max_retries"`
}

// WebServerConfig configures the thin HTTP adapter (not part of the
// core per spec section 1, but the core accepts its port setting so a
// single config file drives the whole process).
type WebServerConfig struct {
	Port uint16 `json:"port"`
}

// FileConfig, DatabaseConfig, ResourceConfig and LogConfig describe
// optional, out-of-core-scope subsystems (file manager, relational
// store, static resources, logging target) that spec section 1 treats
// as external collaborators. The core only needs to parse them so a
// single configuration document round-trips; it does not act on any
// of them, LogConfig included.
type FileConfig struct {
	Enable bool   `json:"enable"`
	Path   string `json:"path"`
}

type DatabaseConfig struct {
	Enable bool   `json:"enable"`
	URL    string `json:"url"`
}

type ResourceConfig struct {
	Enable    bool   `json:"enable"`
	Path      string `json:"path"`
	URLPrefix string `json:"url_prefix"`
}

type LogConfig struct {
	Level  string `json:"level"`
	Target string `json:"target"`
	File   string `json:"file"`
	Append bool   `json:"append"`
}

// ChannelConfig is a configured transport + protocol driver pair.
// Arguments are protocol-specific and handed verbatim to the driver's
// Constructor; the channel manager only inspects ChannelID, Enabled
// and ProtocolKind.
type ChannelConfig struct {
	ChannelID    uint32            `json:"channel_id"`
	Enabled      bool              `json:"enabled"`
	ProtocolKind string            `json:"protocol_kind"`
	Arguments    json.RawMessage   `json:"arguments,omitempty"`
	Methods      []MethodDef       `json:"methods,omitempty"`
	AutoCall     []AutoPollSpec    `json:"auto_call,omitempty"`
}

// MethodDef documents a driver-specific named RPC for discovery
// purposes (GetMethods/GetChannelMethods); the driver itself still
// decides what CallMethod accepts.
type MethodDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Arguments   []MethodArgDef  `json:"arguments,omitempty"`
}

type MethodArgDef struct {
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Required    bool            `json:"required"`
	Default     json.RawMessage `json:"default,omitempty"`
	Description string          `json:"description,omitempty"`
}

// AutoPollSpec configures one periodic Modbus block read that feeds
// the driver's register cache (spec section 4.8).
type AutoPollSpec struct {
	Function   string `json:"function"` // holding | input | coil | discrete
	StartAddr  uint16 `json:"start_addr"`
	Count      uint16 `json:"count"`
	IntervalMs uint64 `json:"interval_ms"`
}

// NodeConfig binds a logical node to a physical endpoint on a channel.
type NodeConfig struct {
	GlobalID        uint32          `json:"global_id"`
	ChannelID       uint32          `json:"channel_id"`
	DeviceID        uint32          `json:"device_id"`
	Category        string          `json:"category,omitempty"`
	Alias           string          `json:"alias"`
	Depends         []Dependency    `json:"depends,omitempty"`
	DependStrategy  string          `json:"depend_strategy,omitempty"` // auto | manual
	DataPoint       *DataPointConfig `json:"data_point,omitempty"`
}

// DataPointConfig describes a typed Modbus register bound to a node.
type DataPointConfig struct {
	Type  string   `json:"type"`
	Addr  uint16   `json:"addr"`
	Scale *float64 `json:"scale,omitempty"`
	Unit  string   `json:"unit,omitempty"`
}

// Dependency is a predicate over another node's current value and/or
// online status. Both Value and Status may be set; both must then
// hold (spec section 3).
type Dependency struct {
	ChannelID *uint32 `json:"channel_id,omitempty"`
	ID        *uint32 `json:"id,omitempty"`
	Value     *int32  `json:"value,omitempty"`
	Status    *bool   `json:"status,omitempty"`
}

// SceneConfig is a named, ordered program of node writes.
type SceneConfig struct {
	Name string      `json:"name"`
	// Interval is an optional cron expression that auto-triggers this
	// scene in addition to on-demand POST /scene invocation. Not part
	// of the distilled spec.md; carried over from original_source's
	// SceneConfig.interval (src/config/mod.rs).
	Interval string      `json:"interval,omitempty"`
	Nodes    []SceneNode `json:"nodes"`
}

// SceneNode is one ordered, optionally delayed write within a scene.
type SceneNode struct {
	ID      uint32 `json:"id"`
	Value   int32  `json:"value"`
	DelayMs *uint32 `json:"delay_ms,omitempty"`
}

// ApplyDefaults fills zero-valued TaskSettings fields with the spec's
// documented defaults (timeout 5000ms, check interval 500ms, 3 retries).
func (c *Config) ApplyDefaults() {
	if c.TaskSettings.TimeoutMs == 0 {
		c.TaskSettings.TimeoutMs = DefaultTaskSettings.TimeoutMs
	}
	if c.TaskSettings.CheckIntervalMs == 0 {
		c.TaskSettings.CheckIntervalMs = DefaultTaskSettings.CheckIntervalMs
	}
	if c.TaskSettings.MaxRetries == 0 {
		c.TaskSettings.MaxRetries = DefaultTaskSettings.MaxRetries
	}
	if c.WebServer.Port == 0 {
		c.WebServer.Port = 8080
	}
}
