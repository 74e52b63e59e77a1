package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tably/internal/models/response_models"
)

type countingLifecycle struct {
	runs atomic.Int64
}

func (c *countingLifecycle) GrantPaidDays(ctx context.Context, restaurantID string, days int) (response_models.SubscriptionSnapshot, error) {
	return response_models.SubscriptionSnapshot{}, nil
}

func (c *countingLifecycle) SetTrialDays(ctx context.Context, restaurantID string, days int) (response_models.SubscriptionSnapshot, error) {
	return response_models.SubscriptionSnapshot{}, nil
}

func (c *countingLifecycle) SetPaidDays(ctx context.Context, restaurantID string, days int) (response_models.SubscriptionSnapshot, error) {
	return response_models.SubscriptionSnapshot{}, nil
}

func (c *countingLifecycle) Suspend(ctx context.Context, restaurantID, reason string) (response_models.SubscriptionSnapshot, error) {
	return response_models.SubscriptionSnapshot{}, nil
}

func (c *countingLifecycle) Unsuspend(ctx context.Context, restaurantID string) (response_models.SubscriptionSnapshot, error) {
	return response_models.SubscriptionSnapshot{}, nil
}

func (c *countingLifecycle) StartTrial(ctx context.Context, restaurantID string) (response_models.SubscriptionSnapshot, error) {
	return response_models.SubscriptionSnapshot{}, nil
}

func (c *countingLifecycle) RunDailyCheck(ctx context.Context) (int, error) {
	c.runs.Add(1)
	return 0, nil
}

func TestSweepRunsImmediatelyAndOnTicks(t *testing.T) {
	lifecycle := &countingLifecycle{}
	svc := NewService(lifecycle, 20*time.Millisecond)

	done := make(chan struct{})
	go func() {
		svc.Start(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool {
		return lifecycle.runs.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)

	svc.Stop()
	svc.Stop() // idempotent

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}

	after := lifecycle.runs.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, after, lifecycle.runs.Load())
}

func TestConcurrentStopIsSafe(t *testing.T) {
	lifecycle := &countingLifecycle{}
	svc := NewService(lifecycle, time.Hour)

	done := make(chan struct{})
	go func() {
		svc.Start(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool {
		return lifecycle.runs.Load() >= 1
	}, time.Second, time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Stop()
		}()
	}
	wg.Wait()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestContextCancelStopsSweep(t *testing.T) {
	lifecycle := &countingLifecycle{}
	svc := NewService(lifecycle, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return lifecycle.runs.Load() >= 1
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not honor context cancellation")
	}
}

func TestDefaultInterval(t *testing.T) {
	svc := NewService(&countingLifecycle{}, 0)
	assert.Equal(t, 24*time.Hour, svc.interval)
}
