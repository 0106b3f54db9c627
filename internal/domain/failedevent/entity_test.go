package failedevent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func noJitter() Backoff {
	return DefaultBackoff().WithJitter(func(time.Duration) time.Duration { return 0 })
}

func newPending(maxRetries int) *FailedEvent {
	return New(NewParams{
		EventID:      "evt-1",
		EventType:    "RESERVE",
		Destination:  "inventory.events",
		PartitionKey: "store-1",
		Payload:      []byte(`{"eventId":"evt-1"}`),
		MaxRetries:   maxRetries,
		LastError:    "broker unavailable",
	}, noJitter(), t0)
}

func TestNew(t *testing.T) {
	e := newPending(0)

	assert.Equal(t, StatusPending, e.Status)
	assert.Equal(t, DefaultMaxRetries, e.MaxRetries)
	assert.Equal(t, 0, e.RetryCount)
	require.NotNil(t, e.NextRetryAt)
	assert.Equal(t, t0.Add(time.Minute), *e.NextRetryAt)
	assert.False(t, e.IsReadyForRetry(t0))
	assert.True(t, e.IsReadyForRetry(t0.Add(time.Minute)))
}

func TestIncrementRetry_SingleRetryBudget(t *testing.T) {
	e := newPending(1)

	e.IncrementRetry(t0, "timeout", noJitter())

	assert.Equal(t, 1, e.RetryCount)
	assert.Equal(t, StatusFailed, e.Status)
	assert.Nil(t, e.NextRetryAt)
	assert.Equal(t, "timeout", e.LastError)
	assert.True(t, e.Status.Terminal())
}

func TestIncrementRetry_FailsExactlyOnMaxRetries(t *testing.T) {
	const maxRetries = 10
	e := newPending(maxRetries)
	backoff := DefaultBackoff() // 真实抖动

	now := t0
	for i := 1; i < maxRetries; i++ {
		e.IncrementRetry(now, "network", backoff)

		assert.Equal(t, StatusPending, e.Status, "第%d次失败后仍为PENDING", i)
		require.NotNil(t, e.NextRetryAt)

		delay := e.NextRetryAt.Sub(now)
		assert.LessOrEqual(t, delay, MaxDelay+time.Duration(float64(MaxDelay)*jitterRatio))
		assert.GreaterOrEqual(t, delay, min(time.Minute<<i, MaxDelay))
		now = *e.NextRetryAt
	}

	e.IncrementRetry(now, "network", backoff)
	assert.Equal(t, maxRetries, e.RetryCount)
	assert.Equal(t, StatusFailed, e.Status)
	assert.Nil(t, e.NextRetryAt)
}

func TestBackoff_Delay(t *testing.T) {
	b := noJitter()

	assert.Equal(t, time.Minute, b.Delay(0))
	assert.Equal(t, 2*time.Minute, b.Delay(1))
	assert.Equal(t, 16*time.Minute, b.Delay(4))
	assert.Equal(t, 24*time.Hour, b.Delay(11), "2^11分钟超过24小时，取上限")
	assert.Equal(t, 24*time.Hour, b.Delay(200))

	withJitter := DefaultBackoff()
	for i := 0; i < 100; i++ {
		d := withJitter.Delay(3)
		assert.GreaterOrEqual(t, d, 8*time.Minute)
		assert.Less(t, d, 8*time.Minute+48*time.Second)
	}
}

func TestIsReadyForRetry(t *testing.T) {
	past := t0.Add(-time.Second)
	future := t0.Add(time.Second)

	tests := []struct {
		name   string
		status Status
		next   *time.Time
		want   bool
	}{
		{"PENDING且已到时间", StatusPending, &past, true},
		{"PENDING且恰好到时间", StatusPending, &t0, true},
		{"PENDING未到时间", StatusPending, &future, false},
		{"PENDING无下次时间", StatusPending, nil, false},
		{"PROCESSING", StatusProcessing, &past, false},
		{"FAILED", StatusFailed, &past, false},
		{"SUCCEEDED", StatusSucceeded, &past, false},
		{"CANCELLED", StatusCancelled, &past, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &FailedEvent{Status: tt.status, NextRetryAt: tt.next}
			assert.Equal(t, tt.want, e.IsReadyForRetry(t0))
		})
	}
}

func TestLifecycle(t *testing.T) {
	t.Run("领取后成功", func(t *testing.T) {
		e := newPending(3)
		require.NoError(t, e.MarkProcessing(t0))
		assert.Equal(t, StatusProcessing, e.Status)
		assert.ErrorIs(t, e.MarkProcessing(t0), ErrInvalidTransition)

		e.MarkAsSucceeded(t0)
		assert.Equal(t, StatusSucceeded, e.Status)
		assert.Nil(t, e.NextRetryAt)
		assert.ErrorIs(t, e.Requeue(t0), ErrInvalidTransition)
	})

	t.Run("FAILED后人工重试", func(t *testing.T) {
		e := newPending(1)
		e.IncrementRetry(t0, "timeout", noJitter())
		require.Equal(t, StatusFailed, e.Status)

		require.NoError(t, e.Requeue(t0))
		assert.Equal(t, StatusPending, e.Status)
		assert.True(t, e.IsReadyForRetry(t0))

		// 人工重试再失败直接回到FAILED
		e.IncrementRetry(t0, "timeout", noJitter())
		assert.Equal(t, StatusFailed, e.Status)
		assert.Equal(t, 2, e.RetryCount)
	})

	t.Run("任意状态可取消", func(t *testing.T) {
		for _, s := range []Status{StatusPending, StatusProcessing, StatusFailed, StatusSucceeded} {
			e := newPending(3)
			e.Status = s
			e.Cancel(t0)
			assert.Equal(t, StatusCancelled, e.Status)
			assert.Nil(t, e.NextRetryAt)
		}
	})
}
