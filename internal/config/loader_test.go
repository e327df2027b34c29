// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2017-2018 Canonical Ltd
// Copyright (C) 2018 IOTech Ltd
// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"testing"

	"github.com/circutor/fieldctl/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFile(t *testing.T) {
	config, err := loadConfigFromFile("./test")
	require.NoError(t, err)

	require.Len(t, config.Channels, 1)
	assert.Equal(t, uint32(1), config.Channels[0].ChannelID)
	assert.Equal(t, "mock", config.Channels[0].ProtocolKind)
	assert.True(t, config.Channels[0].Enabled)

	require.Len(t, config.Nodes, 1)
	assert.Equal(t, uint32(100), config.Nodes[0].GlobalID)
	assert.Equal(t, uint32(1), config.Nodes[0].ChannelID)

	require.Len(t, config.Scenes, 1)
	assert.Equal(t, "all-on", config.Scenes[0].Name)
	assert.Empty(t, config.Scenes[0].Interval)

	assert.Equal(t, uint64(5000), config.TaskSettings.TimeoutMs)
}

func TestLoadConfigFromFileAppliesDefaults(t *testing.T) {
	config, err := loadConfigFromFile("./test")
	require.NoError(t, err)

	config.TaskSettings = common.TaskSettings{}
	config.ApplyDefaults()

	assert.Equal(t, uint64(5000), config.TaskSettings.TimeoutMs)
	assert.Equal(t, uint64(500), config.TaskSettings.CheckIntervalMs)
	assert.Equal(t, uint32(3), config.TaskSettings.MaxRetries)
}

func TestLoadConfigFromFileMissing(t *testing.T) {
	_, err := loadConfigFromFile("./nonexistent")
	assert.Error(t, err)
}
