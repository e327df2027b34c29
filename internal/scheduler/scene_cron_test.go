package scheduler

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSceneRunner struct {
	mu  sync.Mutex
	ran []string
}

func (r *fakeSceneRunner) Execute(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ran = append(r.ran, name)
	return nil
}

func TestSceneCronSchedulerAddAndRemove(t *testing.T) {
	s := NewSceneCronScheduler()
	runner := &fakeSceneRunner{}

	require.NoError(t, s.AddScene("all-on", "0 0 * * * *", runner))
	assert.Error(t, s.AddScene("all-on", "0 0 * * * *", runner), "duplicate registration must fail")

	require.NoError(t, s.RemoveScene("all-on"))
	assert.Error(t, s.RemoveScene("all-on"), "removing twice must fail")
}

func TestSceneCronSchedulerRejectsInvalidExpression(t *testing.T) {
	s := NewSceneCronScheduler()
	err := s.AddScene("bad", "not a cron expression", &fakeSceneRunner{})
	assert.Error(t, err)
}

func TestSceneCronSchedulerStartStopIdempotent(t *testing.T) {
	s := NewSceneCronScheduler()
	s.Start()
	s.Start()
	s.Stop()
	s.Stop()
}
