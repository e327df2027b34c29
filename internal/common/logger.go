// -*- mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

package common

import (
	"log"
	"os"
)

// LeveledLogger is the minimal leveled-logging surface the rest of the
// control plane depends on, matching the shape of the teacher's
// EdgeX logger.LoggingClient (Debug/Info/Warn/Error on a single
// target).
type LeveledLogger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

// StdLogger writes leveled lines to the standard library logger. It is
// the default LoggingClient for processes that don't configure a
// remote log target.
type StdLogger struct {
	service string
	out     *log.Logger
}

func NewStdLogger(service string) *StdLogger {
	return &StdLogger{service: service, out: log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds)}
}

func (l *StdLogger) Debug(msg string) { l.out.Printf("DEBUG [%s] %s", l.service, msg) }
func (l *StdLogger) Info(msg string)  { l.out.Printf("INFO  [%s] %s", l.service, msg) }
func (l *StdLogger) Warn(msg string)  { l.out.Printf("WARN  [%s] %s", l.service, msg) }
func (l *StdLogger) Error(msg string) { l.out.Printf("ERROR [%s] %s", l.service, msg) }
