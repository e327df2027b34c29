// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

// Package scheduler runs the deferred-write task queue (a dependency
// gated FIFO that retries and times out pending writes) and the
// cron-triggered scene scheduler.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/circutor/fieldctl/internal/common"
	"github.com/circutor/fieldctl/internal/events"
	"github.com/google/uuid"
)

// Status is the lifecycle state of one queued task.
type Status int

const (
	StatusPending Status = iota
	StatusExecuting
	StatusCompleted
	StatusFailed
	StatusTimeout
)

// ChannelWriter is the narrow channel.Manager surface the scheduler
// needs, kept as an interface to avoid an import cycle.
type ChannelWriter interface {
	Write(channelID, deviceID uint32, value int32) error
}

// NodeUpdater is the narrow node.Manager surface the scheduler needs.
type NodeUpdater interface {
	UpdateValue(globalID uint32, value int32)
}

// DependencyChecker is the narrow dependency.Resolver surface the
// scheduler needs.
type DependencyChecker interface {
	Check(deps []common.Dependency) (bool, error)
}

// Task is one deferred write waiting on its node's dependencies.
type Task struct {
	ID         string
	GlobalID   uint32
	ChannelID  uint32
	DeviceID   uint32
	Value      int32
	Alias      string
	Status     Status
	CreatedAt  time.Time
	RetryCount uint32
	Depends    []common.Dependency
}

// TaskScheduler holds the FIFO queue of deferred writes and ticks it
// on a fixed interval in a single background goroutine: every pending
// task is re-evaluated once per tick, in order, rather than each task
// owning its own timer. This keeps the "head of line" ordering of the
// reference implementation intentional rather than incidental.
type TaskScheduler struct {
	settings common.TaskSettings
	channels ChannelWriter
	nodes    NodeUpdater
	deps     DependencyChecker
	bus      *events.Bus

	mu    sync.Mutex
	queue []*Task

	stop chan struct{}
	done chan struct{}
}

// NewTaskScheduler constructs a TaskScheduler and starts its
// background tick loop.
func NewTaskScheduler(settings common.TaskSettings, channels ChannelWriter, nodes NodeUpdater, deps DependencyChecker, bus *events.Bus) *TaskScheduler {
	s := &TaskScheduler{
		settings: settings,
		channels: channels,
		nodes:    nodes,
		deps:     deps,
		bus:      bus,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.loop()
	return s
}

// Submit enqueues a deferred write for globalID, to be attempted once
// its dependencies are met, up to settings.MaxRetries times or until
// settings.TimeoutMs elapses since submission.
func (s *TaskScheduler) Submit(globalID, channelID, deviceID uint32, value int32, alias string, depends []common.Dependency) {
	task := &Task{
		ID:        uuid.New().String(),
		GlobalID:  globalID,
		ChannelID: channelID,
		DeviceID:  deviceID,
		Value:     value,
		Alias:     alias,
		Status:    StatusPending,
		CreatedAt: time.Now(),
		Depends:   depends,
	}
	common.LoggingClient.Info(fmt.Sprintf("submitting deferred task %s (%s)", task.ID, task.Alias))

	s.mu.Lock()
	s.queue = append(s.queue, task)
	s.mu.Unlock()
}

// QueueLength reports the number of tasks currently pending.
func (s *TaskScheduler) QueueLength() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// PendingTasks returns a snapshot of every task currently in the queue.
func (s *TaskScheduler) PendingTasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Task, len(s.queue))
	for i, t := range s.queue {
		out[i] = *t
	}
	return out
}

// Stop terminates the background tick loop and waits for it to exit.
func (s *TaskScheduler) Stop() {
	close(s.stop)
	<-s.done
}

func (s *TaskScheduler) loop() {
	defer close(s.done)

	interval := time.Duration(s.settings.CheckIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	timeout := time.Duration(s.settings.TimeoutMs) * time.Millisecond

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.tick(timeout)
		}
	}
}

// tick evaluates every queued task exactly once, in FIFO order, and
// removes terminal tasks (completed, failed, timed out) afterwards —
// removing from the back so earlier indices stay valid.
func (s *TaskScheduler) tick(timeout time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return
	}

	var completedIdx []int

	for idx, task := range s.queue {
		if time.Since(task.CreatedAt) > timeout {
			common.LoggingClient.Warn(fmt.Sprintf("task %s (%s) timed out", task.ID, task.Alias))
			task.Status = StatusTimeout
			completedIdx = append(completedIdx, idx)
			s.publish(task.ID, false)
			continue
		}

		if task.RetryCount >= s.settings.MaxRetries {
			common.LoggingClient.Warn(fmt.Sprintf("task %s (%s) exhausted retries", task.ID, task.Alias))
			task.Status = StatusFailed
			completedIdx = append(completedIdx, idx)
			s.publish(task.ID, false)
			continue
		}

		if len(task.Depends) == 0 {
			continue
		}

		met, err := s.deps.Check(task.Depends)
		if err != nil {
			common.LoggingClient.Warn(fmt.Sprintf("task %s dependency check failed: %v", task.ID, err))
			task.RetryCount++
			continue
		}
		if !met {
			continue
		}

		task.Status = StatusExecuting
		if err := s.channels.Write(task.ChannelID, task.DeviceID, task.Value); err != nil {
			common.LoggingClient.Warn(fmt.Sprintf("task %s execution failed: %v", task.ID, err))
			task.RetryCount++
			task.Status = StatusPending
			continue
		}

		common.LoggingClient.Info(fmt.Sprintf("task %s (%s) executed successfully", task.ID, task.Alias))
		task.Status = StatusCompleted
		s.nodes.UpdateValue(task.GlobalID, task.Value)
		completedIdx = append(completedIdx, idx)
		s.publish(task.ID, true)
	}

	for i := len(completedIdx) - 1; i >= 0; i-- {
		idx := completedIdx[i]
		s.queue = append(s.queue[:idx], s.queue[idx+1:]...)
	}
}

func (s *TaskScheduler) publish(taskID string, success bool) {
	if s.bus != nil {
		s.bus.Publish(events.TaskCompleted(taskID, success))
	}
}
