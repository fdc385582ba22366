package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRecordsOutcome(t *testing.T) {
	s := New(nil)
	s.Register(Job{Name: "ok", Interval: time.Hour, Fn: func(context.Context) error { return nil }})
	s.Register(Job{Name: "bad", Interval: time.Hour, Fn: func(context.Context) error { return errors.New("nope") }})

	require.NoError(t, s.Run(context.Background(), "ok"))
	assert.EqualError(t, s.Run(context.Background(), "bad"), "nope")
	assert.Error(t, s.Run(context.Background(), "missing"))

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "bad", list[0].Name)
	assert.Equal(t, "nope", list[0].LastError)
	assert.NotNil(t, list[1].LastRunAt)
}

func TestStartRunsOnStartAndStops(t *testing.T) {
	var calls atomic.Int32
	s := New(nil)
	s.Register(Job{Name: "sweep", Interval: time.Hour, RunOnStart: true, Fn: func(context.Context) error {
		calls.Add(1)
		return nil
	}})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	s.Wait()
}
