package schedule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratforge/traintick/internal/train"
)

func TestScheduler_RegisterValidation(t *testing.T) {
	s := NewScheduler(context.Background(), train.DefaultConfig(), nil, nil)
	assert.Error(t, s.Register("not a cron spec"))
	assert.NoError(t, s.Register("0 3 * * *"))
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler(context.Background(), train.DefaultConfig(), nil, nil)
	require.NoError(t, s.Register("0 3 * * 1"))
	s.Start()
	s.Stop()
}

func TestScheduler_OverlapGuard(t *testing.T) {
	s := NewScheduler(context.Background(), train.DefaultConfig(), nil, nil)

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	// With the guard held the task must return immediately instead of
	// starting a second run.
	done := make(chan struct{})
	go func() {
		s.trainingTask()
		close(done)
	}()
	<-done

	s.mu.Lock()
	assert.True(t, s.running, "guard flag untouched by skipped trigger")
	s.mu.Unlock()
}
