// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"encoding/json"

	"github.com/circutor/fieldctl/internal/channel"
	"github.com/circutor/fieldctl/internal/node"
	"github.com/circutor/fieldctl/internal/scene"
)

// Facade is the subset of controller.Controller the HTTP adapter
// needs. Declaring it here (rather than importing the concrete type
// only) lets handler tests substitute a stub without constructing a
// full controller.Controller and its background loops.
type Facade interface {
	WriteNode(globalID uint32, value int32) error
	ReadNode(globalID uint32) (float64, error)
	GetNodeState(globalID uint32) (node.State, error)
	GetAllNodeStates() []node.State
	ExecuteScene(sceneName string) error
	GetSceneExecutionStatus() scene.Status
	ExecuteChannelCommand(channelID uint32, command string, params json.RawMessage) (json.RawMessage, error)
	CallChannelMethod(channelID uint32, name string, args json.RawMessage) (json.RawMessage, error)
	GetChannelMethods(channelID uint32) ([]string, error)
	GetAllChannelStatus() []channel.ChannelStatus
}
