// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

// Package dependency evaluates the predicate conditions attached to a
// node's "depends" configuration, and can auto-fulfill them by writing
// to the dependency targets directly.
package dependency

import (
	"time"

	"github.com/circutor/fieldctl/internal/common"
	"github.com/circutor/fieldctl/internal/node"
)

// Writer is the subset of the controller a Resolver needs to
// auto-fulfill a dependency, kept narrow to avoid an import cycle with
// internal/controller.
type Writer interface {
	ExecuteWrite(channelID, deviceID uint32, value int32) error
}

// Resolver checks and, for auto-strategy nodes, fulfills dependency
// predicates against the node manager's runtime state.
type Resolver struct {
	nodes *node.Manager
}

// NewResolver builds a Resolver over the given node manager.
func NewResolver(nodes *node.Manager) *Resolver {
	return &Resolver{nodes: nodes}
}

// Check reports whether every dependency in deps currently holds. The
// first unmet or unresolvable dependency determines the result; a
// malformed reference (missing id, or a dangling id/channel_id pair)
// is a hard error rather than "not met".
func (r *Resolver) Check(deps []common.Dependency) (bool, error) {
	for _, dep := range deps {
		ok, err := r.checkOne(dep)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (r *Resolver) checkOne(dep common.Dependency) (bool, error) {
	globalID, err := r.resolveGlobalID(dep)
	if err != nil {
		return false, err
	}

	state, err := r.nodes.GetState(globalID)
	if err != nil {
		return false, common.NewDeviceNotFound("dependency node %d not found", globalID)
	}

	if dep.Value != nil {
		if state.CurrentValue == nil || *state.CurrentValue != *dep.Value {
			return false, nil
		}
	}

	if dep.Status != nil {
		if state.Online != *dep.Status {
			return false, nil
		}
	}

	return true, nil
}

func (r *Resolver) resolveGlobalID(dep common.Dependency) (uint32, error) {
	if dep.ChannelID != nil {
		if dep.ID == nil {
			return 0, common.NewConfigError("dependency missing id for channel_id %d", *dep.ChannelID)
		}
		globalID, ok := r.nodes.FindGlobalID(*dep.ChannelID, *dep.ID)
		if !ok {
			return 0, common.NewDeviceNotFound("channel %d device %d", *dep.ChannelID, *dep.ID)
		}
		return globalID, nil
	}
	if dep.ID != nil {
		return *dep.ID, nil
	}
	return 0, common.NewConfigError("invalid dependency: neither channel_id+id nor id set")
}

// Fulfill auto-satisfies every dependency that names both an id and a
// target value, by writing the target value to that dependency's own
// channel/device (not the dependent node's). Each successful write is
// followed by a brief settle delay before moving to the next
// dependency, mirroring the reference implementation's 100ms pause.
func (r *Resolver) Fulfill(deps []common.Dependency, w Writer) error {
	common.LoggingClient.Info("auto-fulfilling dependency conditions")

	for _, dep := range deps {
		if dep.ID == nil || dep.Value == nil {
			continue
		}

		globalID, err := r.resolveGlobalID(dep)
		if err != nil {
			return err
		}

		state, err := r.nodes.GetState(globalID)
		if err != nil {
			return common.NewDeviceNotFound("dependency node %d not found", globalID)
		}

		if state.CurrentValue != nil && *state.CurrentValue == *dep.Value {
			continue
		}

		common.LoggingClient.Info("setting dependency node to target value")
		if err := w.ExecuteWrite(state.ChannelID, state.DeviceID, *dep.Value); err != nil {
			return err
		}

		time.Sleep(100 * time.Millisecond)
	}

	return nil
}
