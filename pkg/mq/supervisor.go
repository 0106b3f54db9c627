package mq

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Dialer 建立一个消费端
type Dialer func() (Receiver, error)

// Supervisor 保持消费端在线
//
// 连接失败或消费中断后按指数退避重连，直到ctx取消。
// OnState在开始消费(true)和断开(false)时回调，用于健康检查。
type Supervisor struct {
	Dial       Dialer
	Handler    Handler
	OnState    func(connected bool)
	Log        *zap.Logger
	MinBackoff time.Duration // 默认1s
	MaxBackoff time.Duration // 默认30s
}

// Run 阻塞直到ctx取消
func (s *Supervisor) Run(ctx context.Context) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.MinBackoff
	if b.InitialInterval <= 0 {
		b.InitialInterval = time.Second
	}
	b.MaxInterval = s.MaxBackoff
	if b.MaxInterval <= 0 {
		b.MaxInterval = 30 * time.Second
	}
	b.MaxElapsedTime = 0
	b.Reset()

	for ctx.Err() == nil {
		err := s.session(ctx, b)
		if ctx.Err() != nil {
			return
		}

		wait := b.NextBackOff()
		s.Log.Warn("消费端断开，稍后重连", zap.Duration("wait", wait), zap.Error(err))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// session 一次连接的生命周期
func (s *Supervisor) session(ctx context.Context, b backoff.BackOff) error {
	r, err := s.Dial()
	if err != nil {
		return err
	}
	defer func() {
		if err := r.Close(); err != nil {
			s.Log.Debug("关闭消费端失败", zap.Error(err))
		}
	}()

	b.Reset()
	s.notify(true)
	defer s.notify(false)

	if err := r.Consume(ctx, s.Handler); err != nil {
		return err
	}
	return ErrUnavailable
}

func (s *Supervisor) notify(connected bool) {
	if s.OnState != nil {
		s.OnState(connected)
	}
}
