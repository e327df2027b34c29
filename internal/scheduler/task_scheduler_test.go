package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/circutor/fieldctl/internal/common"
	"github.com/circutor/fieldctl/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu       sync.Mutex
	fail     bool
	writes   []int32
}

func (w *fakeWriter) Write(channelID, deviceID uint32, value int32) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail {
		return common.NewProtocolError("write failed")
	}
	w.writes = append(w.writes, value)
	return nil
}

type fakeUpdater struct {
	mu     sync.Mutex
	values map[uint32]int32
}

func (u *fakeUpdater) UpdateValue(globalID uint32, value int32) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.values == nil {
		u.values = make(map[uint32]int32)
	}
	u.values[globalID] = value
}

type fakeChecker struct {
	met bool
	err error
}

func (c *fakeChecker) Check(deps []common.Dependency) (bool, error) {
	return c.met, c.err
}

func fastSettings() common.TaskSettings {
	return common.TaskSettings{TimeoutMs: 2000, CheckIntervalMs: 20, MaxRetries: 3}
}

func TestTaskSchedulerExecutesWhenDependenciesMet(t *testing.T) {
	w := &fakeWriter{}
	u := &fakeUpdater{}
	c := &fakeChecker{met: true}
	bus := events.NewBus(10)
	sub, unsub := bus.Subscribe()
	defer unsub()

	s := NewTaskScheduler(fastSettings(), w, u, c, bus)
	defer s.Stop()

	s.Submit(1, 10, 1, 42, "test", []common.Dependency{{ID: func() *uint32 { v := uint32(2); return &v }()}})

	select {
	case ev := <-sub:
		assert.Equal(t, events.KindTaskCompleted, ev.Kind)
		assert.True(t, ev.Success)
	case <-time.After(2 * time.Second):
		t.Fatal("task never completed")
	}

	assert.Equal(t, 0, s.QueueLength())
	assert.Equal(t, []int32{42}, w.writes)
}

func TestTaskSchedulerWaitsOnUnmetDependencies(t *testing.T) {
	w := &fakeWriter{}
	u := &fakeUpdater{}
	c := &fakeChecker{met: false}

	s := NewTaskScheduler(fastSettings(), w, u, c, nil)
	defer s.Stop()

	s.Submit(1, 10, 1, 42, "test", []common.Dependency{{}})
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 1, s.QueueLength())
	assert.Empty(t, w.writes)
}

func TestTaskSchedulerTimesOut(t *testing.T) {
	w := &fakeWriter{}
	u := &fakeUpdater{}
	c := &fakeChecker{met: false}
	bus := events.NewBus(10)
	sub, unsub := bus.Subscribe()
	defer unsub()

	settings := common.TaskSettings{TimeoutMs: 30, CheckIntervalMs: 10, MaxRetries: 3}
	s := NewTaskScheduler(settings, w, u, c, bus)
	defer s.Stop()

	s.Submit(1, 10, 1, 42, "test", []common.Dependency{{}})

	select {
	case ev := <-sub:
		assert.Equal(t, events.KindTaskCompleted, ev.Kind)
		assert.False(t, ev.Success)
	case <-time.After(2 * time.Second):
		t.Fatal("task never timed out")
	}
}

func TestTaskSchedulerRetriesThenFails(t *testing.T) {
	w := &fakeWriter{fail: true}
	u := &fakeUpdater{}
	c := &fakeChecker{met: true}
	bus := events.NewBus(10)
	sub, unsub := bus.Subscribe()
	defer unsub()

	settings := common.TaskSettings{TimeoutMs: 5000, CheckIntervalMs: 10, MaxRetries: 2}
	s := NewTaskScheduler(settings, w, u, c, bus)
	defer s.Stop()

	s.Submit(1, 10, 1, 42, "test", []common.Dependency{{}})

	require.Eventually(t, func() bool {
		select {
		case ev := <-sub:
			return ev.Kind == events.KindTaskCompleted && !ev.Success
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}
