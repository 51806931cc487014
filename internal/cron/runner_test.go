package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricewatch/catalog-aggregator/internal/adapter"
	"github.com/pricewatch/catalog-aggregator/internal/domain"
	"github.com/pricewatch/catalog-aggregator/internal/store"
	"github.com/pricewatch/catalog-aggregator/internal/store/storetest"
)

type fakeAggregator struct {
	calls int
	err   error
}

func (f *fakeAggregator) AggregateAll(ctx context.Context) error {
	f.calls++
	return f.err
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Since(t time.Time) time.Duration { return c.now.Sub(t) }

func (c *fakeClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func newTestRunner(agg Aggregator) (*Runner, *storetest.MemoryStore) {
	mem := storetest.NewMemoryStore()
	clock := &fakeClock{now: time.Date(2026, 9, 1, 12, 0, 7, 0, time.UTC)}
	return NewRunner(mem, agg, adapter.NewJSON(), clock, 30*time.Second), mem
}

func TestLogicalIDBucketsTriggerTimes(t *testing.T) {
	cadence := 30 * time.Second
	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	a := LogicalID(domain.JobTypeProductAggregation, base.Add(3*time.Second), cadence)
	b := LogicalID(domain.JobTypeProductAggregation, base.Add(29*time.Second), cadence)
	c := LogicalID(domain.JobTypeProductAggregation, base.Add(31*time.Second), cadence)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, "product_aggregation_2026-09-01T12:00:00Z", a)
}

func TestProcessRunsOnceAndRecordsSuccess(t *testing.T) {
	agg := &fakeAggregator{}
	runner, mem := newTestRunner(agg)
	trigger := time.Date(2026, 9, 1, 12, 0, 7, 0, time.UTC)

	log, err := runner.Process(context.Background(), trigger)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusSuccess, log.Status)
	assert.Equal(t, 1, log.RetryCount)
	assert.Nil(t, log.Error)
	assert.Equal(t, 1, agg.calls)

	stored, err := mem.GetCronLog(context.Background(), log.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, domain.JobStatusSuccess, stored.Status)
}

func TestProcessIsIdempotentForSucceededRun(t *testing.T) {
	agg := &fakeAggregator{}
	runner, _ := newTestRunner(agg)
	trigger := time.Date(2026, 9, 1, 12, 0, 7, 0, time.UTC)

	first, err := runner.Process(context.Background(), trigger)
	require.NoError(t, err)

	// re-trigger within the same window, slightly later
	second, err := runner.Process(context.Background(), trigger.Add(5*time.Second))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, agg.calls)
}

func TestProcessRetriesFailedRunThenExhausts(t *testing.T) {
	agg := &fakeAggregator{err: errors.New("upstream exploded")}
	runner, _ := newTestRunner(agg)
	trigger := time.Date(2026, 9, 1, 12, 0, 7, 0, time.UTC)

	first, err := runner.Process(context.Background(), trigger)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, first.Status)
	assert.Equal(t, 1, first.RetryCount)
	require.NotNil(t, first.Error)
	assert.Equal(t, "upstream exploded", *first.Error)

	second, err := runner.Process(context.Background(), trigger)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, second.Status)
	assert.Equal(t, 2, second.RetryCount)
	assert.Equal(t, 2, agg.calls)

	// third trigger short-circuits to the stored outcome
	third, err := runner.Process(context.Background(), trigger)
	require.NoError(t, err)
	assert.Equal(t, 2, third.RetryCount)
	assert.Equal(t, 2, agg.calls)
}

func TestProcessRecoversOnRetry(t *testing.T) {
	agg := &fakeAggregator{err: errors.New("transient")}
	runner, _ := newTestRunner(agg)
	trigger := time.Date(2026, 9, 1, 12, 0, 7, 0, time.UTC)

	first, err := runner.Process(context.Background(), trigger)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, first.Status)

	agg.err = nil
	second, err := runner.Process(context.Background(), trigger)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusSuccess, second.Status)
	assert.Equal(t, 2, second.RetryCount)

	// succeeded now, further triggers do not re-run
	_, err = runner.Process(context.Background(), trigger)
	require.NoError(t, err)
	assert.Equal(t, 2, agg.calls)
}

func TestProcessSeparateWindowsRunIndependently(t *testing.T) {
	agg := &fakeAggregator{}
	runner, mem := newTestRunner(agg)
	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	_, err := runner.Process(context.Background(), base.Add(2*time.Second))
	require.NoError(t, err)
	_, err = runner.Process(context.Background(), base.Add(32*time.Second))
	require.NoError(t, err)

	assert.Equal(t, 2, agg.calls)
	logs, total, err := mem.ListCronLogs(context.Background(), store.CronLogFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, logs, 2)
}

func TestListFailedFiltersByStatus(t *testing.T) {
	agg := &fakeAggregator{err: errors.New("boom")}
	runner, _ := newTestRunner(agg)
	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	_, err := runner.Process(context.Background(), base)
	require.NoError(t, err)

	agg.err = nil
	_, err = runner.Process(context.Background(), base.Add(time.Minute))
	require.NoError(t, err)

	failed, total, err := runner.ListFailed(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, failed, 1)
	assert.Equal(t, domain.JobStatusFailed, failed[0].Status)
}
