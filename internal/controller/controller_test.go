package controller

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/circutor/fieldctl/internal/channel"
	"github.com/circutor/fieldctl/internal/common"
	"github.com/circutor/fieldctl/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type controllerStubDriver struct {
	models.UnimplementedMethods
	values map[uint32]int32
	regs   map[uint16]int32
}

func (s *controllerStubDriver) Name() string { return "controller-stub" }

func (s *controllerStubDriver) Read(deviceID uint32) (int32, error) {
	return s.values[deviceID], nil
}

func (s *controllerStubDriver) Write(deviceID uint32, value int32) error {
	s.values[deviceID] = value
	return nil
}

func (s *controllerStubDriver) Execute(command string, params json.RawMessage) (json.RawMessage, error) {
	switch command {
	case "write_typed":
		var p struct {
			Addr  uint16 `json:"addr"`
			Value int32  `json:"value"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err
		}
		s.regs[p.Addr] = p.Value
		return json.RawMessage(`{"status":"ok"}`), nil
	case "read_typed":
		var p struct {
			Addr uint16 `json:"addr"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err
		}
		return json.Marshal(map[string]interface{}{"value": s.regs[p.Addr]})
	default:
		return nil, common.NewProtocolError("unknown command %q", command)
	}
}

func (s *controllerStubDriver) GetStatus() (json.RawMessage, error) {
	return json.RawMessage(`{"ok":true}`), nil
}

func registerControllerStub(kind string) *controllerStubDriver {
	d := &controllerStubDriver{values: make(map[uint32]int32), regs: make(map[uint16]int32)}
	channel.RegisterDriver(kind, func(channelID uint32, arguments json.RawMessage) (models.Driver, error) {
		return d, nil
	})
	return d
}

func scalePtr(v float64) *float64 { return &v }

func TestControllerWriteReadPlainNode(t *testing.T) {
	registerControllerStub("ctl-plain")

	cfg := &common.Config{
		Channels: []common.ChannelConfig{{ChannelID: 1, Enabled: true, ProtocolKind: "ctl-plain"}},
		Nodes:    []common.NodeConfig{{GlobalID: 100, ChannelID: 1, DeviceID: 5, Alias: "n"}},
	}
	c, err := New(cfg)
	require.NoError(t, err)
	defer c.Stop()

	require.NoError(t, c.WriteNode(100, 42))
	v, err := c.ReadNode(100)
	require.NoError(t, err)
	assert.Equal(t, float64(42), v)

	state, err := c.GetNodeState(100)
	require.NoError(t, err)
	assert.True(t, state.Online)
}

func TestControllerDataPointAppliesScale(t *testing.T) {
	registerControllerStub("ctl-datapoint")

	cfg := &common.Config{
		Channels: []common.ChannelConfig{{ChannelID: 1, Enabled: true, ProtocolKind: "ctl-datapoint"}},
		Nodes: []common.NodeConfig{{
			GlobalID: 200, ChannelID: 1, DeviceID: 1, Alias: "temp",
			DataPoint: &common.DataPointConfig{Type: "float32", Addr: 10, Scale: scalePtr(0.1)},
		}},
	}
	c, err := New(cfg)
	require.NoError(t, err)
	defer c.Stop()

	require.NoError(t, c.WriteNode(200, 250))

	v, err := c.ReadNode(200)
	require.NoError(t, err)
	assert.InDelta(t, 250.0, v, 0.001)
}

func TestControllerDeferredWriteOnUnmetDependency(t *testing.T) {
	registerControllerStub("ctl-deferred")

	ptrU32 := func(v uint32) *uint32 { return &v }
	ptrI32 := func(v int32) *int32 { return &v }

	cfg := &common.Config{
		Channels: []common.ChannelConfig{{ChannelID: 1, Enabled: true, ProtocolKind: "ctl-deferred"}},
		Nodes: []common.NodeConfig{
			{GlobalID: 1, ChannelID: 1, DeviceID: 1, Alias: "gate"},
			{GlobalID: 2, ChannelID: 1, DeviceID: 2, Alias: "dependent",
				Depends: []common.Dependency{{ID: ptrU32(1), Value: ptrI32(1)}}},
		},
		TaskSettings: common.TaskSettings{TimeoutMs: 3000, CheckIntervalMs: 20, MaxRetries: 5},
	}
	c, err := New(cfg)
	require.NoError(t, err)
	defer c.Stop()

	require.NoError(t, c.WriteNode(2, 99))

	state, err := c.GetNodeState(2)
	require.NoError(t, err)
	assert.False(t, state.Online, "write should have been deferred, not applied")

	require.NoError(t, c.WriteNode(1, 1))

	require.Eventually(t, func() bool {
		s, err := c.GetNodeState(2)
		return err == nil && s.Online
	}, 2*time.Second, 20*time.Millisecond)
}

func TestControllerAutoFulfillWritesDependencySynchronously(t *testing.T) {
	registerControllerStub("ctl-auto-fulfill")

	ptrU32 := func(v uint32) *uint32 { return &v }
	ptrI32 := func(v int32) *int32 { return &v }

	cfg := &common.Config{
		Channels: []common.ChannelConfig{{ChannelID: 1, Enabled: true, ProtocolKind: "ctl-auto-fulfill"}},
		Nodes: []common.NodeConfig{
			{GlobalID: 5, ChannelID: 1, DeviceID: 5, Alias: "gate"},
			{GlobalID: 7, ChannelID: 1, DeviceID: 7, Alias: "dependent",
				Depends:        []common.Dependency{{ID: ptrU32(5), Value: ptrI32(1)}},
				DependStrategy: common.DependStrategyAuto},
		},
		TaskSettings: common.TaskSettings{TimeoutMs: 3000, CheckIntervalMs: 20, MaxRetries: 5},
	}
	c, err := New(cfg)
	require.NoError(t, err)
	defer c.Stop()

	gate, err := c.GetNodeState(5)
	require.NoError(t, err)
	require.False(t, gate.Online, "gate starts at 0/offline")

	require.NoError(t, c.WriteNode(7, 100))

	gateState, err := c.GetNodeState(5)
	require.NoError(t, err)
	assert.NotNil(t, gateState.CurrentValue)
	assert.Equal(t, int32(1), *gateState.CurrentValue, "auto strategy must fulfill node 5 synchronously")

	dependentState, err := c.GetNodeState(7)
	require.NoError(t, err)
	require.NotNil(t, dependentState.CurrentValue)
	assert.Equal(t, int32(100), *dependentState.CurrentValue, "node 7 must be written directly, not queued")
}

func TestControllerScenesAndEvents(t *testing.T) {
	registerControllerStub("ctl-scene")

	cfg := &common.Config{
		Channels: []common.ChannelConfig{{ChannelID: 1, Enabled: true, ProtocolKind: "ctl-scene"}},
		Nodes:    []common.NodeConfig{{GlobalID: 1, ChannelID: 1, DeviceID: 1, Alias: "n"}},
		Scenes:   []common.SceneConfig{{Name: "go", Nodes: []common.SceneNode{{ID: 1, Value: 1}}}},
	}
	c, err := New(cfg)
	require.NoError(t, err)
	defer c.Stop()

	sub, unsub := c.SubscribeEvents()
	defer unsub()

	require.NoError(t, c.ExecuteScene("go"))

	require.Eventually(t, func() bool {
		select {
		case ev := <-sub:
			return ev.SceneName == "go"
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}
