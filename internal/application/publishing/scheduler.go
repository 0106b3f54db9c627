package publishing

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/stockhub/internal/domain/failedevent"
	"github.com/xiebiao/stockhub/pkg/metrics"
)

// Resender 补偿重发
type Resender interface {
	Resend(ctx context.Context, fe *failedevent.FailedEvent) error
}

// SchedulerConfig 补偿任务配置
type SchedulerConfig struct {
	Interval     time.Duration       // 扫描间隔，默认30s
	BatchSize    int                 // 每次最多领取条数，默认100
	LeaseTimeout time.Duration       // PROCESSING超过该时长视为领取者宕机，默认5m
	Backoff      failedevent.Backoff // 失败后的退避
}

// SweepResult 一次扫描的统计
type SweepResult struct {
	Claimed     int
	Succeeded   int
	Rescheduled int
	Failed      int
}

// Scheduler 失败事件补偿任务
//
// 每个周期：领取到期事件(PENDING且nextRetryAt<=now，或租约过期的PROCESSING)
// → 逐条重发 → 成功标记SUCCEEDED，失败IncrementRetry后写回。
// 状态全部在存储里，进程重启后从存储恢复。
type Scheduler struct {
	store    failedevent.Repository
	resender Resender
	cfg      SchedulerConfig
	now      func() time.Time
	log      *zap.Logger
}

// NewScheduler 创建补偿任务
func NewScheduler(store failedevent.Repository, resender Resender, cfg SchedulerConfig, log *zap.Logger, now func() time.Time) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.LeaseTimeout <= 0 {
		cfg.LeaseTimeout = 5 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	metrics.InitMetrics()

	return &Scheduler{store: store, resender: resender, cfg: cfg, now: now, log: log}
}

// Start 周期扫描，阻塞直到ctx取消
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.log.Info("失败事件补偿任务启动", zap.Duration("interval", s.cfg.Interval), zap.Int("batch_size", s.cfg.BatchSize))

	for {
		select {
		case <-ctx.Done():
			s.log.Info("失败事件补偿任务退出")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.log.Error("失败事件扫描出错", zap.Error(err))
			}
		}
	}
}

// Sweep 执行一次扫描
func (s *Scheduler) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	now := s.now()
	claimed, err := s.store.ClaimReady(ctx, now, now.Add(-s.cfg.LeaseTimeout), s.cfg.BatchSize)
	if err != nil {
		return result, err
	}
	result.Claimed = len(claimed)

	for _, fe := range claimed {
		if ctx.Err() != nil {
			// 剩余已领取的事件等租约过期后被重新领取
			break
		}

		status, err := s.process(ctx, fe)
		if errors.Is(err, failedevent.ErrStateChanged) {
			s.log.Warn("重发期间事件状态已被修改，保留存储中的状态", zap.Uint("id", fe.ID), zap.String("event_id", fe.EventID))
			continue
		}
		if err != nil {
			s.log.Error("失败事件状态写回失败", zap.Uint("id", fe.ID), zap.String("event_id", fe.EventID), zap.Error(err))
			continue
		}
		switch status {
		case failedevent.StatusSucceeded:
			result.Succeeded++
		case failedevent.StatusFailed:
			result.Failed++
		default:
			result.Rescheduled++
		}
	}

	if result.Claimed > 0 {
		s.log.Info("失败事件扫描完成",
			zap.Int("claimed", result.Claimed),
			zap.Int("succeeded", result.Succeeded),
			zap.Int("rescheduled", result.Rescheduled),
			zap.Int("failed", result.Failed),
		)
	}
	s.refreshGauge(ctx)

	return result, nil
}

// RetryNow 管理员手动重试：重新入队并立即重发一次
func (s *Scheduler) RetryNow(ctx context.Context, id uint) (*failedevent.FailedEvent, error) {
	fe, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if fe.Status == failedevent.StatusProcessing {
		return nil, failedevent.ErrAlreadyClaimed
	}

	now := s.now()
	from := fe.Status
	if err := fe.Requeue(now); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, fe, from); err != nil {
		return nil, err
	}

	claimed, err := s.store.Claim(ctx, id, now)
	if err != nil {
		return nil, err
	}

	if _, err := s.process(ctx, claimed); err != nil {
		return nil, err
	}
	return claimed, nil
}

// process 重发并写回状态
// 写回以PROCESSING为条件，重发期间被取消的事件保持CANCELLED
func (s *Scheduler) process(ctx context.Context, fe *failedevent.FailedEvent) (failedevent.Status, error) {
	sendErr := s.resender.Resend(ctx, fe)
	now := s.now()

	if sendErr == nil {
		fe.MarkAsSucceeded(now)
		metrics.IncCounterVec(metrics.FailedEventRetriesTotal, map[string]string{"result": "succeeded"})
		s.log.Info("失败事件补偿成功", zap.String("event_id", fe.EventID), zap.Int("retry_count", fe.RetryCount))
	} else {
		fe.IncrementRetry(now, sendErr.Error(), s.cfg.Backoff)
		if fe.Status == failedevent.StatusFailed {
			metrics.IncCounterVec(metrics.FailedEventRetriesTotal, map[string]string{"result": "failed"})
			s.log.Error("失败事件重试次数耗尽，需要人工处理",
				zap.String("event_id", fe.EventID),
				zap.Int("retry_count", fe.RetryCount),
				zap.Error(sendErr),
			)
		} else {
			metrics.IncCounterVec(metrics.FailedEventRetriesTotal, map[string]string{"result": "rescheduled"})
			s.log.Warn("失败事件补偿失败，已推迟",
				zap.String("event_id", fe.EventID),
				zap.Int("retry_count", fe.RetryCount),
				zap.Timep("next_retry_at", fe.NextRetryAt),
				zap.Error(sendErr),
			)
		}
	}

	// 写回不跟随ctx取消，避免事件停留在PROCESSING
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.store.Update(writeCtx, fe, failedevent.StatusProcessing); err != nil {
		return fe.Status, err
	}
	return fe.Status, nil
}

func (s *Scheduler) refreshGauge(ctx context.Context) {
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.log.Warn("统计失败事件数失败", zap.Error(err))
		}
		return
	}
	for _, st := range []failedevent.Status{
		failedevent.StatusPending,
		failedevent.StatusProcessing,
		failedevent.StatusSucceeded,
		failedevent.StatusFailed,
		failedevent.StatusCancelled,
	} {
		metrics.SetGaugeVec(metrics.FailedEvents, map[string]string{"status": string(st)}, float64(counts[st]))
	}
}
