package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errConflict = errors.New("version conflict")
	errFatal    = errors.New("bad input")
)

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:         attempts,
		InitialInterval:     time.Millisecond,
		Multiplier:          2,
		MaxInterval:         4 * time.Millisecond,
		RandomizationFactor: 0.5,
	}
}

func isConflict(err error) bool { return errors.Is(err, errConflict) }

func TestExecutor_Do(t *testing.T) {
	t.Run("首次成功不重试", func(t *testing.T) {
		calls := 0
		err := NewExecutor(fastPolicy(5), isConflict).Do(context.Background(), func(ctx context.Context) error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("冲突后重试成功", func(t *testing.T) {
		calls := 0
		var notified []int
		exec := NewExecutor(fastPolicy(5), isConflict, WithNotify(func(attempt int, err error, wait time.Duration) {
			notified = append(notified, attempt)
			assert.ErrorIs(t, err, errConflict)
			assert.Positive(t, wait)
		}))

		err := exec.Do(context.Background(), func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return errConflict
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, []int{1, 2}, notified)
	})

	t.Run("不可重试错误立即返回", func(t *testing.T) {
		calls := 0
		err := NewExecutor(fastPolicy(5), isConflict).Do(context.Background(), func(ctx context.Context) error {
			calls++
			return errFatal
		})
		assert.ErrorIs(t, err, errFatal)
		assert.NotErrorIs(t, err, ErrExhausted)
		assert.Equal(t, 1, calls)
	})

	t.Run("次数耗尽", func(t *testing.T) {
		calls := 0
		err := NewExecutor(fastPolicy(5), isConflict).Do(context.Background(), func(ctx context.Context) error {
			calls++
			return errConflict
		})
		assert.Equal(t, 5, calls)
		assert.ErrorIs(t, err, ErrExhausted)
		assert.ErrorIs(t, err, errConflict)

		var exhausted *ExhaustedError
		require.ErrorAs(t, err, &exhausted)
		assert.Equal(t, 5, exhausted.Attempts)
	})

	t.Run("ctx取消后停止", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		policy := fastPolicy(5)
		policy.InitialInterval = time.Hour
		policy.MaxInterval = time.Hour

		calls := 0
		err := NewExecutor(policy, isConflict).Do(ctx, func(ctx context.Context) error {
			calls++
			cancel()
			return errConflict
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}

func TestDefaultPolicies(t *testing.T) {
	c := ConcurrencyPolicy()
	assert.Equal(t, 5, c.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, c.InitialInterval)
	assert.Equal(t, 2*time.Second, c.MaxInterval)

	p := PublishPolicy()
	assert.Equal(t, 5, p.MaxAttempts)
	assert.Equal(t, time.Second, p.InitialInterval)
	assert.Equal(t, 30*time.Second, p.MaxInterval)
}
