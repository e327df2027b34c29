// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Canonical Ltd
// Copyright (C) 2018-2019 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

// Package models defines the polymorphic capability set used by the
// channel manager to talk to a physical field device over whatever
// wire protocol its channel configures. Each protocol family gets its
// own package under internal/drivers implementing this interface; the
// channel manager never imports a concrete driver package directly, it
// resolves kinds through the registry in internal/channel.
package models

import (
	"encoding/json"
)

// Driver is a low-level, protocol-specific interface used by the
// channel manager to interact with a class of devices. A Driver
// instance owns exactly one physical link (one channel) and is always
// invoked under that channel's exclusive lock: implementations may
// assume no concurrent calls against the same instance.
type Driver interface {
	// Name returns the driver's human-readable identity, usually the
	// protocol-kind tag it was constructed from.
	Name() string

	// Read performs a simple scalar read addressed by device_id.
	Read(deviceID uint32) (int32, error)

	// Write performs a simple scalar write addressed by device_id.
	Write(deviceID uint32, value int32) error

	// Execute runs a generic, driver-defined command. Command names and
	// parameter/result shapes are private to each driver; the core
	// treats both as opaque JSON.
	Execute(command string, params json.RawMessage) (json.RawMessage, error)

	// GetStatus reports driver-specific liveness/diagnostics.
	GetStatus() (json.RawMessage, error)

	// CallMethod invokes a named RPC declared by GetMethods. The
	// default behavior for drivers that don't implement it is to
	// return ErrUnsupportedMethod; embed UnimplementedMethods to get
	// that behavior for free.
	CallMethod(name string, args json.RawMessage) (json.RawMessage, error)

	// GetMethods lists the names accepted by CallMethod.
	GetMethods() []string
}

// Constructor builds a Driver from a channel's merged configuration
// arguments. Drivers register a Constructor under their protocol-kind
// tag with internal/channel.RegisterDriver at package init time.
type Constructor func(channelID uint32, arguments json.RawMessage) (Driver, error)

// UnimplementedMethods can be embedded by drivers that expose no named
// RPCs, so they don't each have to repeat the same two stubs.
type UnimplementedMethods struct{}

func (UnimplementedMethods) CallMethod(name string, _ json.RawMessage) (json.RawMessage, error) {
	return nil, &UnsupportedMethodError{Method: name}
}

func (UnimplementedMethods) GetMethods() []string { return nil }

// UnsupportedMethodError is returned by CallMethod when the driver
// doesn't recognize the requested method name.
type UnsupportedMethodError struct {
	Method string
}

func (e *UnsupportedMethodError) Error() string {
	return "unsupported method: " + e.Method
}
