package inspection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"uptime-inspector/model"
)

type fakeRunner struct {
	mu     sync.Mutex
	actors []string
	err    error
}

func (f *fakeRunner) RunSweep(_ context.Context, actor string) (model.Sweep, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actors = append(f.actors, actor)
	if f.err != nil {
		return model.Sweep{}, f.err
	}
	return model.Sweep{ID: "20240101000000", Systems: []model.InspectionRecord{{SystemID: "s1"}}}, nil
}

func (f *fakeRunner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.actors)
}

func TestSchedulerTicks(t *testing.T) {
	r := &fakeRunner{}
	var hooked sync.WaitGroup
	hooked.Add(1)
	var once sync.Once
	s := NewScheduler(r, WithInterval(20*time.Millisecond), WithPostSweep(func(_ context.Context, sw model.Sweep) {
		once.Do(hooked.Done)
	}))

	s.Start()
	s.Start() // no-op
	st := s.Status()
	assert.True(t, st.Running)
	assert.Equal(t, 1, st.JobsCount)
	require.NotNil(t, st.NextRunTime)

	hooked.Wait()
	s.Stop()
	s.Stop()

	assert.GreaterOrEqual(t, r.count(), 1)
	st = s.Status()
	assert.False(t, st.Running)
	assert.Nil(t, st.NextRunTime)
	assert.Zero(t, st.JobsCount)
	require.NotNil(t, st.LastRunAt)
	assert.Equal(t, "20240101000000", st.LastSweepID)
	r.mu.Lock()
	assert.Equal(t, SchedulerActor, r.actors[0])
	r.mu.Unlock()
}

func TestSchedulerRunNowRecordsError(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := &fakeRunner{err: model.ErrNoSystems}
	hookCalled := false
	s := NewScheduler(r, WithActor("cron"), WithSchedulerLogger(zap.New(core)), WithPostSweep(func(context.Context, model.Sweep) {
		hookCalled = true
	}))

	_, err := s.RunNow(context.Background())
	assert.True(t, errors.Is(err, model.ErrNoSystems))
	assert.False(t, hookCalled)
	assert.Equal(t, model.ErrNoSystems.Error(), s.Status().LastError)
	assert.Equal(t, 1, logs.FilterMessage("scheduled sweep failed").Len())

	r.err = nil
	sw, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "20240101000000", sw.ID)
	assert.True(t, hookCalled)
	assert.Empty(t, s.Status().LastError)
	assert.Equal(t, []string{"cron", "cron"}, r.actors)
}

func TestSchedulerDefaults(t *testing.T) {
	s := NewScheduler(&fakeRunner{}, WithInterval(0), WithActor(""))
	st := s.Status()
	assert.Equal(t, DefaultInterval.String(), st.Interval)
	assert.False(t, st.Running)
	assert.Nil(t, st.LastRunAt)
}
