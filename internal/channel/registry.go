// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

// Package channel owns the concrete protocol driver instances: a
// registry mapping each protocol_kind tag to a models.Constructor, and
// a Manager that builds enabled channels from configuration and
// serializes access to each one.
package channel

import (
	"fmt"
	"sync"

	"github.com/circutor/fieldctl/pkg/models"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]models.Constructor)
)

// RegisterDriver associates a protocol_kind tag with a Constructor.
// Driver packages call this from an init() function, so importing a
// driver package for its side effect is enough to make it available;
// cmd/fieldctl blank-imports every internal/drivers/* package.
func RegisterDriver(kind string, ctor models.Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[kind]; exists {
		panic(fmt.Sprintf("channel: driver kind %q registered twice", kind))
	}
	registry[kind] = ctor
}

func lookupDriver(kind string) (models.Constructor, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	ctor, ok := registry[kind]
	return ctor, ok
}

// RegisteredKinds returns the protocol_kind tags currently registered,
// for diagnostics and tests.
func RegisteredKinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	return kinds
}
