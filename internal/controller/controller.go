// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

// Package controller composes the channel, node, dependency, scheduler
// and scene layers into the single DeviceController façade the HTTP
// adapter (and any other caller) talks to.
package controller

import (
	"encoding/json"
	"fmt"

	"github.com/circutor/fieldctl/internal/channel"
	"github.com/circutor/fieldctl/internal/common"
	"github.com/circutor/fieldctl/internal/dependency"
	"github.com/circutor/fieldctl/internal/events"
	"github.com/circutor/fieldctl/internal/node"
	"github.com/circutor/fieldctl/internal/scene"
	"github.com/circutor/fieldctl/internal/scheduler"
)

// Controller is the system's core coordinator: the single object that
// owns every other subsystem and exposes the operations an adapter
// (HTTP, CLI, ...) needs.
type Controller struct {
	channels  *channel.Manager
	nodes     *node.Manager
	deps      *dependency.Resolver
	tasks     *scheduler.TaskScheduler
	scenes    *scene.Executor
	sceneCron *scheduler.SceneCronScheduler
	bus       *events.Bus
}

// New wires up every subsystem from config: the event bus first (so
// everything downstream can publish to it), then the channel manager
// (may silently drop unconstructable channels), the node manager, the
// dependency resolver, the task scheduler (whose background loop
// starts immediately), the scene executor, and finally the scene cron
// scheduler for any SceneConfig.Interval entries.
func New(config *common.Config) (*Controller, error) {
	common.LoggingClient.Info("initializing device controller")

	bus := events.NewBus(common.EventBusBufferSize)

	channels := channel.NewManager(config.Channels, bus)
	nodes := node.NewManager(config.Nodes, bus)
	deps := dependency.NewResolver(nodes)
	tasks := scheduler.NewTaskScheduler(config.TaskSettings, channels, nodes, deps, bus)
	scenes := scene.NewExecutor(config.Scenes, bus)

	c := &Controller{
		channels: channels,
		nodes:    nodes,
		deps:     deps,
		tasks:    tasks,
		scenes:   scenes,
		bus:      bus,
	}

	sceneCron := scheduler.NewSceneCronScheduler()
	for _, s := range config.Scenes {
		if s.Interval == "" {
			continue
		}
		sceneName := s.Name
		if err := sceneCron.AddScene(sceneName, s.Interval, cronSceneRunner{c: c}); err != nil {
			common.LoggingClient.Error(fmt.Sprintf("failed to register cron trigger for scene %q: %v", sceneName, err))
		}
	}
	sceneCron.Start()
	c.sceneCron = sceneCron

	common.LoggingClient.Info("device controller initialized")
	return c, nil
}

// cronSceneRunner adapts Controller.ExecuteScene to scheduler.SceneRunner.
type cronSceneRunner struct{ c *Controller }

func (r cronSceneRunner) Execute(name string) error { return r.c.ExecuteScene(name) }

// SubscribeEvents registers a new event subscriber.
func (c *Controller) SubscribeEvents() (<-chan events.DeviceEvent, func()) {
	return c.bus.Subscribe()
}

type typedWriteParams struct {
	Addr  uint16 `json:"addr"`
	Type  string `json:"type"`
	Value int32  `json:"value"`
}

type typedReadParams struct {
	Addr     uint16 `json:"addr"`
	Type     string `json:"type"`
	UseCache bool   `json:"use_cache"`
}

type typedReadResult struct {
	Value float64 `json:"value"`
}

// WriteNode writes value to globalID, honoring its dependency and
// typed-data-point configuration.
func (c *Controller) WriteNode(globalID uint32, value int32) error {
	common.LoggingClient.Debug(fmt.Sprintf("write node %d = %d", globalID, value))

	nodeCfg, err := c.nodes.GetNode(globalID)
	if err != nil {
		return err
	}

	if len(nodeCfg.Depends) > 0 {
		met, err := c.deps.Check(nodeCfg.Depends)
		if err != nil {
			return err
		}

		if !met {
			if nodeCfg.DependStrategy != common.DependStrategyAuto {
				common.LoggingClient.Info(fmt.Sprintf("node %d dependencies not met, queuing task", globalID))
				c.tasks.Submit(nodeCfg.GlobalID, nodeCfg.ChannelID, nodeCfg.DeviceID, value, nodeCfg.Alias, nodeCfg.Depends)
				return nil
			}

			common.LoggingClient.Info(fmt.Sprintf("node %d dependencies not met, auto-fulfilling", globalID))
			if err := c.deps.Fulfill(nodeCfg.Depends, c); err != nil {
				return err
			}
		}
	}

	if nodeCfg.DataPoint != nil {
		return c.writeDataPoint(nodeCfg, value)
	}

	if err := c.ExecuteWrite(nodeCfg.ChannelID, nodeCfg.DeviceID, value); err != nil {
		return err
	}
	c.nodes.UpdateValue(globalID, value)
	return nil
}

func (c *Controller) writeDataPoint(nodeCfg common.NodeConfig, value int32) error {
	dp := nodeCfg.DataPoint
	actual := value
	if dp.Scale != nil && *dp.Scale != 0 {
		actual = int32(float64(value) / *dp.Scale)
	}

	params, err := json.Marshal(typedWriteParams{Addr: dp.Addr, Type: dp.Type, Value: actual})
	if err != nil {
		return common.NewSerializationError(err)
	}

	if _, err := c.channels.Execute(nodeCfg.ChannelID, "write_typed", params); err != nil {
		return err
	}

	c.nodes.UpdateValue(nodeCfg.GlobalID, value)
	return nil
}

// ExecuteWrite performs the low-level write to (channelID, deviceID),
// bypassing dependency checks, and records the written value on the
// node bound to that address, if any. It is exported so the dependency
// resolver's auto-fulfill path can use it without an import cycle.
func (c *Controller) ExecuteWrite(channelID, deviceID uint32, value int32) error {
	if err := c.channels.Write(channelID, deviceID, value); err != nil {
		return err
	}
	if globalID, ok := c.nodes.FindGlobalID(channelID, deviceID); ok {
		c.nodes.UpdateValue(globalID, value)
	}
	return nil
}

// ReadNode reads globalID's current value, honoring its typed
// data-point configuration, and records the observation in the node
// manager.
func (c *Controller) ReadNode(globalID uint32) (float64, error) {
	nodeCfg, err := c.nodes.GetNode(globalID)
	if err != nil {
		return 0, err
	}

	if nodeCfg.DataPoint != nil {
		return c.readDataPoint(nodeCfg)
	}

	value, err := c.channels.Read(nodeCfg.ChannelID, nodeCfg.DeviceID)
	if err != nil {
		return 0, err
	}
	c.nodes.UpdateValue(globalID, value)
	return float64(value), nil
}

func (c *Controller) readDataPoint(nodeCfg common.NodeConfig) (float64, error) {
	dp := nodeCfg.DataPoint
	params, err := json.Marshal(typedReadParams{Addr: dp.Addr, Type: dp.Type, UseCache: true})
	if err != nil {
		return 0, common.NewSerializationError(err)
	}

	raw, err := c.channels.Execute(nodeCfg.ChannelID, "read_typed", params)
	if err != nil {
		return 0, err
	}

	var result typedReadResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return 0, common.NewSerializationError(err)
	}

	final := result.Value
	if dp.Scale != nil {
		final *= *dp.Scale
	}

	c.nodes.UpdateValue(nodeCfg.GlobalID, int32(final))
	return final, nil
}

// GetNodeState returns globalID's current runtime state.
func (c *Controller) GetNodeState(globalID uint32) (node.State, error) {
	return c.nodes.GetState(globalID)
}

// GetAllNodeStates returns every node's current runtime state.
func (c *Controller) GetAllNodeStates() []node.State {
	return c.nodes.GetAllStates()
}

// ExecuteScene starts sceneName running in the background.
func (c *Controller) ExecuteScene(sceneName string) error {
	common.LoggingClient.Info(fmt.Sprintf("executing scene %q", sceneName))
	return c.scenes.Execute(sceneName, c)
}

// ListScenes returns every configured scene's name.
func (c *Controller) ListScenes() []string {
	return c.scenes.ListScenes()
}

// GetScene returns sceneName's configuration.
func (c *Controller) GetScene(sceneName string) (common.SceneConfig, bool) {
	return c.scenes.GetScene(sceneName)
}

// GetSceneExecutionStatus reports whether a scene is currently running.
func (c *Controller) GetSceneExecutionStatus() scene.Status {
	return c.scenes.GetExecutionStatus()
}

// GetAllChannelStatus reports GetStatus() for every constructed channel.
func (c *Controller) GetAllChannelStatus() []channel.ChannelStatus {
	return c.channels.GetAllStatus()
}

// ExecuteChannelCommand runs a driver-defined command on channelID.
func (c *Controller) ExecuteChannelCommand(channelID uint32, command string, params json.RawMessage) (json.RawMessage, error) {
	return c.channels.Execute(channelID, command, params)
}

// CallChannelMethod invokes a named RPC on channelID's driver.
func (c *Controller) CallChannelMethod(channelID uint32, name string, args json.RawMessage) (json.RawMessage, error) {
	return c.channels.CallMethod(channelID, name, args)
}

// GetChannelMethods lists the RPC names channelID's driver accepts.
func (c *Controller) GetChannelMethods(channelID uint32) ([]string, error) {
	return c.channels.GetMethods(channelID)
}

// Stop halts the background task scheduler and scene cron scheduler.
func (c *Controller) Stop() {
	c.tasks.Stop()
	c.sceneCron.Stop()
}
