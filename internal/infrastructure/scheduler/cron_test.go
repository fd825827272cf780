package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ArticlesHarvester/internal/domain"
)

func TestNewCronSchedulerValidates(t *testing.T) {
	_, err := NewCronScheduler("not a cron", "", false, nil)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	_, err = NewCronScheduler("@daily", "Mars/Olympus", false, nil)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	s, err := NewCronScheduler("0 8 * * *", "UTC", false, nil)
	require.NoError(t, err)
	assert.Equal(t, "UTC", s.location.String())
}

func TestCronSchedulerRunOnStart(t *testing.T) {
	s, err := NewCronScheduler("@yearly", "", true, nil)
	require.NoError(t, err)

	fired := make(chan time.Time, 1)
	require.NoError(t, s.Start(context.Background(), func(at time.Time) { fired <- at }))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run on start")
	}
	assert.True(t, s.Next().After(time.Now()))
}

func TestCronSchedulerStopIsIdempotent(t *testing.T) {
	s, err := NewCronScheduler("@hourly", "", false, nil)
	require.NoError(t, err)

	assert.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Start(context.Background(), func(time.Time) {}))
	assert.NoError(t, s.Stop(context.Background()))
	assert.NoError(t, s.Stop(context.Background()))
	assert.True(t, s.Next().IsZero())
}

func TestCronSchedulerStopsWithContext(t *testing.T) {
	s, err := NewCronScheduler("@hourly", "", false, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx, func(time.Time) {}))
	cancel()

	assert.Eventually(t, func() bool { return s.Next().IsZero() }, 2*time.Second, 10*time.Millisecond)
}

func TestCronSchedulerStopWaitsForRunOnStartJob(t *testing.T) {
	s, err := NewCronScheduler("@yearly", "", true, nil)
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, s.Start(context.Background(), func(time.Time) {
		close(started)
		<-release
	}))
	<-started

	short, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Stop(short), context.DeadlineExceeded)

	second := make(chan error, 1)
	go func() { second <- s.Stop(context.Background()) }()

	select {
	case err := <-second:
		t.Fatalf("second Stop returned %v before the job finished", err)
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-second:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the job finished")
	}
}
