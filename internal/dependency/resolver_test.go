package dependency

import (
	"testing"

	"github.com/circutor/fieldctl/internal/common"
	"github.com/circutor/fieldctl/internal/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNodes() *node.Manager {
	return node.NewManager([]common.NodeConfig{
		{GlobalID: 1, ChannelID: 10, DeviceID: 1, Alias: "switch"},
		{GlobalID: 2, ChannelID: 10, DeviceID: 2, Alias: "sensor"},
	}, nil)
}

func ptrU32(v uint32) *uint32 { return &v }
func ptrI32(v int32) *int32   { return &v }
func ptrBool(v bool) *bool    { return &v }

func TestCheckDirectIDValueMatch(t *testing.T) {
	nodes := newTestNodes()
	nodes.UpdateValue(1, 1)
	r := NewResolver(nodes)

	ok, err := r.Check([]common.Dependency{{ID: ptrU32(1), Value: ptrI32(1)}})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckDirectIDValueMismatch(t *testing.T) {
	nodes := newTestNodes()
	nodes.UpdateValue(1, 0)
	r := NewResolver(nodes)

	ok, err := r.Check([]common.Dependency{{ID: ptrU32(1), Value: ptrI32(1)}})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckUnknownValueNotMet(t *testing.T) {
	nodes := newTestNodes()
	r := NewResolver(nodes)

	ok, err := r.Check([]common.Dependency{{ID: ptrU32(1), Value: ptrI32(1)}})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckByChannelAndDevice(t *testing.T) {
	nodes := newTestNodes()
	nodes.UpdateValue(2, 5)
	r := NewResolver(nodes)

	ok, err := r.Check([]common.Dependency{{ChannelID: ptrU32(10), ID: ptrU32(2), Value: ptrI32(5)}})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckStatusPredicate(t *testing.T) {
	nodes := newTestNodes()
	nodes.UpdateValue(1, 0)
	r := NewResolver(nodes)

	ok, err := r.Check([]common.Dependency{{ID: ptrU32(1), Status: ptrBool(true)}})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckDanglingReferenceErrors(t *testing.T) {
	nodes := newTestNodes()
	r := NewResolver(nodes)

	_, err := r.Check([]common.Dependency{{ChannelID: ptrU32(10), ID: ptrU32(999)}})
	require.Error(t, err)
	assert.Equal(t, common.KindDeviceNotFound, common.KindOf(err))
}

type recordingWriter struct {
	calls []struct{ channelID, deviceID uint32; value int32 }
}

func (w *recordingWriter) ExecuteWrite(channelID, deviceID uint32, value int32) error {
	w.calls = append(w.calls, struct {
		channelID, deviceID uint32
		value               int32
	}{channelID, deviceID, value})
	return nil
}

func TestFulfillWritesToDependencyOwnChannel(t *testing.T) {
	nodes := newTestNodes()
	nodes.UpdateValue(2, 0)
	r := NewResolver(nodes)
	w := &recordingWriter{}

	err := r.Fulfill([]common.Dependency{{ID: ptrU32(2), Value: ptrI32(1)}}, w)
	require.NoError(t, err)

	require.Len(t, w.calls, 1)
	assert.Equal(t, uint32(10), w.calls[0].channelID)
	assert.Equal(t, uint32(2), w.calls[0].deviceID)
	assert.Equal(t, int32(1), w.calls[0].value)
}

func TestFulfillSkipsAlreadySatisfied(t *testing.T) {
	nodes := newTestNodes()
	nodes.UpdateValue(2, 1)
	r := NewResolver(nodes)
	w := &recordingWriter{}

	err := r.Fulfill([]common.Dependency{{ID: ptrU32(2), Value: ptrI32(1)}}, w)
	require.NoError(t, err)
	assert.Empty(t, w.calls)
}
