package mq

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubReceiver 收到一条消息后按consumeErr返回，consumeErr为nil时阻塞到ctx取消
type stubReceiver struct {
	consumeErr error
	closed     bool
}

func (r *stubReceiver) Consume(ctx context.Context, handler Handler) error {
	if err := handler(ctx, Message{Body: []byte("x")}); err != nil {
		return err
	}
	if r.consumeErr != nil {
		return r.consumeErr
	}
	<-ctx.Done()
	return nil
}

func (r *stubReceiver) Close() error {
	r.closed = true
	return nil
}

func TestSupervisor_Reconnects(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu        sync.Mutex
		dials     int
		states    []bool
		handled   int
		receivers []*stubReceiver
	)

	s := &Supervisor{
		Dial: func() (Receiver, error) {
			mu.Lock()
			defer mu.Unlock()
			dials++
			switch dials {
			case 1:
				return nil, ErrUnavailable
			case 2:
				r := &stubReceiver{consumeErr: errors.New("channel closed")}
				receivers = append(receivers, r)
				return r, nil
			default:
				r := &stubReceiver{}
				receivers = append(receivers, r)
				return r, nil
			}
		},
		Handler: func(ctx context.Context, msg Message) error {
			mu.Lock()
			defer mu.Unlock()
			handled++
			if handled == 2 {
				cancel()
			}
			return nil
		},
		OnState: func(connected bool) {
			mu.Lock()
			defer mu.Unlock()
			states = append(states, connected)
		},
		Log:        zap.NewNop(),
		MinBackoff: time.Millisecond,
		MaxBackoff: 5 * time.Millisecond,
	}

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Supervisor没有在ctx取消后退出")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, dials, "第一次连接失败，第二次消费中断，第三次正常")
	assert.Equal(t, 2, handled)
	assert.Equal(t, []bool{true, false, true, false}, states)
	require.Len(t, receivers, 2)
	for _, r := range receivers {
		assert.True(t, r.closed)
	}
}

func TestSupervisor_StopsWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Supervisor{
		Dial:       func() (Receiver, error) { return nil, ErrUnavailable },
		Handler:    func(ctx context.Context, msg Message) error { return nil },
		Log:        zap.NewNop(),
		MinBackoff: time.Hour,
	}

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("退避等待期间应响应ctx取消")
	}
}
