package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricewatch/catalog-aggregator/internal/adapter"
	"github.com/pricewatch/catalog-aggregator/internal/store/storetest"
)

func TestSchedulerStartTriggersAndStops(t *testing.T) {
	agg := &fakeAggregator{}
	mem := storetest.NewMemoryStore()
	runner := NewRunner(mem, agg, adapter.NewJSON(), adapter.NewClock(), 10*time.Millisecond)
	scheduler := NewScheduler(runner, adapter.NewClock(), 10*time.Millisecond)

	done := make(chan error, 1)
	go func() {
		done <- scheduler.Start(context.Background())
	}()

	// let the immediate trigger and at least one tick land
	time.Sleep(50 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, scheduler.Stop(stopCtx))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not exit after Stop")
	}

	assert.GreaterOrEqual(t, agg.calls, 1)
}

func TestSchedulerStartTwiceFails(t *testing.T) {
	agg := &fakeAggregator{}
	mem := storetest.NewMemoryStore()
	runner := NewRunner(mem, agg, adapter.NewJSON(), adapter.NewClock(), time.Hour)
	scheduler := NewScheduler(runner, adapter.NewClock(), time.Hour)

	go func() {
		_ = scheduler.Start(context.Background())
	}()
	time.Sleep(20 * time.Millisecond)

	err := scheduler.Start(context.Background())
	require.Error(t, err)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, scheduler.Stop(stopCtx))
}

func TestSchedulerStopBeforeStartIsNoOp(t *testing.T) {
	agg := &fakeAggregator{}
	mem := storetest.NewMemoryStore()
	runner := NewRunner(mem, agg, adapter.NewJSON(), adapter.NewClock(), time.Hour)
	scheduler := NewScheduler(runner, adapter.NewClock(), time.Hour)

	require.NoError(t, scheduler.Stop(context.Background()))
	assert.Equal(t, 0, agg.calls)
}
