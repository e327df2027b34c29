// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

// Package events defines the control plane's event stream: the set of
// DeviceEvent variants published by the channel manager, node manager,
// task scheduler and scene executor, and the bounded broadcast Bus
// that fans them out to subscribers.
package events

import "sync"

// Kind identifies which DeviceEvent variant a value carries.
type Kind int

const (
	KindNodeStateChanged Kind = iota
	KindChannelConnected
	KindChannelDisconnected
	KindTaskCompleted
	KindSceneStarted
	KindSceneCompleted
)

// DeviceEvent is the single event envelope published on the Bus. Only
// the fields relevant to Kind are populated; the rest are zero.
type DeviceEvent struct {
	Kind Kind

	// NodeStateChanged
	GlobalID uint32
	OldValue int32
	NewValue int32

	// ChannelConnected / ChannelDisconnected
	ChannelID uint32
	Reason    string

	// TaskCompleted
	TaskID  string
	Success bool

	// SceneStarted / SceneCompleted
	SceneName string
}

func NodeStateChanged(globalID uint32, oldValue, newValue int32) DeviceEvent {
	return DeviceEvent{Kind: KindNodeStateChanged, GlobalID: globalID, OldValue: oldValue, NewValue: newValue}
}

func ChannelConnected(channelID uint32) DeviceEvent {
	return DeviceEvent{Kind: KindChannelConnected, ChannelID: channelID}
}

func ChannelDisconnected(channelID uint32, reason string) DeviceEvent {
	return DeviceEvent{Kind: KindChannelDisconnected, ChannelID: channelID, Reason: reason}
}

func TaskCompleted(taskID string, success bool) DeviceEvent {
	return DeviceEvent{Kind: KindTaskCompleted, TaskID: taskID, Success: success}
}

func SceneStarted(name string) DeviceEvent {
	return DeviceEvent{Kind: KindSceneStarted, SceneName: name}
}

func SceneCompleted(name string, success bool) DeviceEvent {
	return DeviceEvent{Kind: KindSceneCompleted, SceneName: name, Success: success}
}

// Bus is a bounded, multi-producer, multi-subscriber broadcaster.
// Publish never blocks: a subscriber whose channel is full loses the
// event rather than stalling the publisher. This mirrors a Tokio
// broadcast channel's lossy-slow-subscriber behavior rather than a Go
// fan-out worker pool.
type Bus struct {
	mu     sync.Mutex
	bufLen int
	subs   map[int]chan DeviceEvent
	nextID int
}

// NewBus creates a Bus whose subscriber channels are each buffered to
// bufLen events.
func NewBus(bufLen int) *Bus {
	return &Bus{bufLen: bufLen, subs: make(map[int]chan DeviceEvent)}
}

// Subscribe registers a new subscriber and returns its receive channel
// along with an unsubscribe function.
func (b *Bus) Subscribe() (<-chan DeviceEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan DeviceEvent, b.bufLen)
	b.subs[id] = ch

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
	return ch, unsubscribe
}

// Publish fans ev out to every current subscriber, dropping it for any
// subscriber whose buffer is full.
func (b *Bus) Publish(ev DeviceEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
