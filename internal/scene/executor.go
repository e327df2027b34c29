// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

// Package scene runs named, ordered programs of node writes. Only one
// scene may be in flight at a time; Execute reserves that single slot
// synchronously and then runs the program in the background.
package scene

import (
	"fmt"
	"sync"
	"time"

	"github.com/circutor/fieldctl/internal/common"
	"github.com/circutor/fieldctl/internal/events"
)

// NodeWriter is the narrow controller surface a scene needs to write
// its member nodes, kept as an interface to avoid an import cycle with
// internal/controller.
type NodeWriter interface {
	WriteNode(globalID uint32, value int32) error
}

// Status reports whether a scene is currently executing.
type Status struct {
	IsExecuting  bool
	CurrentScene string
}

// Executor owns the configured scene catalog and the single-slot
// mutex that keeps at most one scene in flight.
type Executor struct {
	scenes map[string]common.SceneConfig
	order  []string
	bus    *events.Bus

	slot chan struct{} // buffered 1; held while a scene executes

	currentMu sync.Mutex
	current   string
}

// NewExecutor builds an Executor over the scene section of
// configuration.
func NewExecutor(scenes []common.SceneConfig, bus *events.Bus) *Executor {
	e := &Executor{
		scenes: make(map[string]common.SceneConfig, len(scenes)),
		order:  make([]string, 0, len(scenes)),
		bus:    bus,
		slot:   make(chan struct{}, 1),
	}
	for _, s := range scenes {
		e.scenes[s.Name] = s
		e.order = append(e.order, s.Name)
	}
	common.LoggingClient.Info(fmt.Sprintf("scene executor initialized with %d scenes", len(scenes)))
	return e
}

// Execute reserves the execution slot for sceneName and runs it in the
// background, returning as soon as the reservation succeeds (or fails
// because another scene is already executing). Progress is only
// observable through the event stream and GetExecutionStatus.
func (e *Executor) Execute(sceneName string, writer NodeWriter) error {
	scene, ok := e.scenes[sceneName]
	if !ok {
		return common.NewOther("scene %q does not exist", sceneName)
	}

	select {
	case e.slot <- struct{}{}:
	default:
		return common.NewOther("a scene is already executing, cannot start %q", sceneName)
	}

	e.currentMu.Lock()
	e.current = sceneName
	e.currentMu.Unlock()

	common.LoggingClient.Info(fmt.Sprintf("starting scene %q", sceneName))
	if e.bus != nil {
		e.bus.Publish(events.SceneStarted(sceneName))
	}

	go e.run(scene, writer)

	return nil
}

func (e *Executor) run(scene common.SceneConfig, writer NodeWriter) {
	success := true

	for _, member := range scene.Nodes {
		if member.DelayMs != nil {
			time.Sleep(time.Duration(*member.DelayMs) * time.Millisecond)
		}

		if err := writer.WriteNode(member.ID, member.Value); err != nil {
			common.LoggingClient.Warn(fmt.Sprintf("scene %q: node %d write failed: %v", scene.Name, member.ID, err))
			success = false
			continue
		}
		common.LoggingClient.Info(fmt.Sprintf("scene %q: node %d set to %d", scene.Name, member.ID, member.Value))
	}

	e.currentMu.Lock()
	e.current = ""
	e.currentMu.Unlock()
	<-e.slot

	if e.bus != nil {
		e.bus.Publish(events.SceneCompleted(scene.Name, success))
	}

	if success {
		common.LoggingClient.Info(fmt.Sprintf("scene %q completed successfully", scene.Name))
	} else {
		common.LoggingClient.Warn(fmt.Sprintf("scene %q completed with failures", scene.Name))
	}
}

// ListScenes returns every configured scene's name, in configuration
// order.
func (e *Executor) ListScenes() []string {
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}

// GetScene returns the configuration for sceneName.
func (e *Executor) GetScene(sceneName string) (common.SceneConfig, bool) {
	s, ok := e.scenes[sceneName]
	return s, ok
}

// GetExecutionStatus reports whether a scene is currently executing,
// and which one.
func (e *Executor) GetExecutionStatus() Status {
	e.currentMu.Lock()
	defer e.currentMu.Unlock()
	if e.current == "" {
		return Status{IsExecuting: false}
	}
	return Status{IsExecuting: true, CurrentScene: e.current}
}
