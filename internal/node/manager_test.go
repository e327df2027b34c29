package node

import (
	"testing"

	"github.com/circutor/fieldctl/internal/common"
	"github.com/circutor/fieldctl/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfigs() []common.NodeConfig {
	return []common.NodeConfig{
		{GlobalID: 100, ChannelID: 1, DeviceID: 1, Alias: "a"},
		{GlobalID: 101, ChannelID: 1, DeviceID: 2, Alias: "b"},
	}
}

func TestManagerInitialStateOffline(t *testing.T) {
	m := NewManager(testConfigs(), nil)

	s, err := m.GetState(100)
	require.NoError(t, err)
	assert.False(t, s.Online)
	assert.Nil(t, s.CurrentValue)
}

func TestUpdateValueSetsOnlineAndValue(t *testing.T) {
	m := NewManager(testConfigs(), nil)

	m.UpdateValue(100, 7)
	s, err := m.GetState(100)
	require.NoError(t, err)
	assert.True(t, s.Online)
	require.NotNil(t, s.CurrentValue)
	assert.Equal(t, int32(7), *s.CurrentValue)
	assert.NotNil(t, s.LastUpdate)
}

func TestUpdateValueEmitsOnlyOnChange(t *testing.T) {
	bus := events.NewBus(10)
	sub, unsub := bus.Subscribe()
	defer unsub()

	m := NewManager(testConfigs(), bus)

	// first observed value is 0 -> 0, no transition, but default zero
	// value "changes" if new value differs from the implicit zero.
	m.UpdateValue(100, 0)
	select {
	case <-sub:
		t.Fatal("expected no event for 0 -> 0 transition")
	default:
	}

	m.UpdateValue(100, 5)
	ev := <-sub
	assert.Equal(t, events.KindNodeStateChanged, ev.Kind)
	assert.Equal(t, int32(0), ev.OldValue)
	assert.Equal(t, int32(5), ev.NewValue)

	m.UpdateValue(100, 5)
	select {
	case <-sub:
		t.Fatal("expected no event for unchanged value")
	default:
	}
}

func TestFindGlobalID(t *testing.T) {
	m := NewManager(testConfigs(), nil)

	id, ok := m.FindGlobalID(1, 2)
	require.True(t, ok)
	assert.Equal(t, uint32(101), id)

	_, ok = m.FindGlobalID(1, 99)
	assert.False(t, ok)
}

func TestGetNodeNotFound(t *testing.T) {
	m := NewManager(testConfigs(), nil)
	_, err := m.GetNode(999)
	require.Error(t, err)
	assert.Equal(t, common.KindDeviceNotFound, common.KindOf(err))
}
