// -*- mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2017-2018 Canonical Ltd
// Copyright (C) 2018-2019 IOTech Ltd
// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package common

const (
	APIPrefix = "/lspcapi/device"

	ConfigFileName = "config.json"

	DeviceCacheFileName = "device_cache.json"

	ProtocolStorageDir = "data/protocol_storage"
	MockStorageDir     = "data/mock_storage"

	DependStrategyAuto   = "auto"
	DependStrategyManual = "manual"

	EventBusBufferSize = 1000

	CorrelationHeader = "X-Correlation-Id"
)

// DefaultTaskSettings mirrors the defaults listed in spec section 6.
var DefaultTaskSettings = TaskSettings{
	TimeoutMs:       5000,
	CheckIntervalMs: 500,
	MaxRetries:      3,
}
