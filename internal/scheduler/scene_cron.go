// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"fmt"
	"sync"

	"github.com/circutor/fieldctl/internal/common"
	"gopkg.in/robfig/cron.v2"
)

// SceneRunner triggers a named scene. The controller implements it by
// adapting Controller.ExecuteScene.
type SceneRunner interface {
	Execute(name string) error
}

type sceneJob struct {
	name   string
	runner SceneRunner
}

func (j *sceneJob) Run() {
	if err := j.runner.Execute(j.name); err != nil {
		common.LoggingClient.Warn(fmt.Sprintf("cron trigger for scene %q failed: %v", j.name, err))
	}
}

// SceneCronScheduler auto-triggers scenes whose configuration carries
// a cron Interval, in addition to their on-demand HTTP invocation.
// Not part of the distilled spec; reintroduced from SceneConfig's
// "interval" field in the original configuration, using the same
// cron.v2 library the platform's schedule-event manager ran on.
type SceneCronScheduler struct {
	mu      sync.Mutex
	cr      *cron.Cron
	entries map[string]cron.EntryID
	started bool
}

// NewSceneCronScheduler constructs an idle scheduler; call Start to
// begin dispatching.
func NewSceneCronScheduler() *SceneCronScheduler {
	return &SceneCronScheduler{
		cr:      cron.New(),
		entries: make(map[string]cron.EntryID),
	}
}

// Start begins the cron dispatch loop.
func (s *SceneCronScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.cr.Start()
	s.started = true
}

// Stop halts the cron dispatch loop.
func (s *SceneCronScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.cr.Stop()
	s.started = false
	common.LoggingClient.Info("stopped scene cron scheduler")
}

// AddScene registers sceneName to auto-trigger on the given cron
// expression. A no-op (returning an error) if the scene is already
// registered; call RemoveScene first to replace it.
func (s *SceneCronScheduler) AddScene(sceneName, cronExpr string, runner SceneRunner) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[sceneName]; ok {
		return fmt.Errorf("scene %q already has a cron trigger registered", sceneName)
	}

	entry, err := s.cr.AddJob(cronExpr, &sceneJob{name: sceneName, runner: runner})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q for scene %q: %w", cronExpr, sceneName, err)
	}

	s.entries[sceneName] = entry
	common.LoggingClient.Info(fmt.Sprintf("registered cron trigger for scene %q: %s", sceneName, cronExpr))
	return nil
}

// RemoveScene un-registers sceneName's cron trigger, if any.
func (s *SceneCronScheduler) RemoveScene(sceneName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[sceneName]
	if !ok {
		return fmt.Errorf("scene %q has no cron trigger registered", sceneName)
	}

	s.cr.Remove(entry)
	delete(s.entries, sceneName)
	return nil
}
