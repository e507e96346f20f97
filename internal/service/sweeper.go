package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tempmail/gateway/internal/domain"
	"tempmail/gateway/internal/monitoring"
	"tempmail/gateway/internal/provider"
	"tempmail/gateway/internal/storage"
)

// Sweeper 周期性将过期邮箱从活跃表迁移到历史表。
//
// 迁移顺序固定为 先写历史、后删活跃：两步之间崩溃最多造成
// 历史重复，绝不丢记录。单条失败只记日志，不中断本轮扫描。
type Sweeper struct {
	repo     storage.Store
	mailbox  *MailboxService
	interval time.Duration
	replace  bool
	logger   *zap.Logger
	metrics  *monitoring.Metrics
	now      func() time.Time
}

// NewSweeper 创建过期清扫器。
func NewSweeper(
	repo storage.Store,
	mailbox *MailboxService,
	interval time.Duration,
	replaceOnEmpty bool,
	logger *zap.Logger,
	metrics *monitoring.Metrics,
) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		repo:     repo,
		mailbox:  mailbox,
		interval: interval,
		replace:  replaceOnEmpty,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Run 按固定间隔循环清扫，直到 ctx 取消。
//
// 单轮的任何错误都不会让循环退出。
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("过期清扫器启动", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("过期清扫器停止")
			return ctx.Err()
		case <-ticker.C:
			moved, errs := s.SweepOnce(ctx)
			if moved > 0 || errs > 0 {
				s.logger.Info("清扫完成",
					zap.Int("moved", moved),
					zap.Int("errors", errs))
			}
		}
	}
}

// SweepOnce 执行一轮清扫，返回迁移数量与失败数量。
func (s *Sweeper) SweepOnce(ctx context.Context) (moved, errs int) {
	now := s.now().UTC()

	expired, err := s.repo.ListExpiredMailboxes(now)
	if err != nil {
		s.logger.Error("查询过期邮箱失败", zap.Error(err))
		return 0, 1
	}

	for i := range expired {
		mailbox := &expired[i]
		if err := s.migrate(mailbox, now); err != nil {
			errs++
			s.logger.Error("迁移过期邮箱失败",
				zap.String("mailbox_id", mailbox.ID),
				zap.String("address", mailbox.Address),
				zap.Error(err))
			continue
		}
		moved++
		if s.metrics != nil {
			s.metrics.MailboxesExpired.Inc()
		}
	}
	if s.metrics != nil {
		s.metrics.SweepRuns.Inc()
		if errs > 0 {
			s.metrics.SweepErrors.Add(float64(errs))
		}
	}

	// 每轮都检查空集：启动即为空或上轮补充失败时同样需要补建
	if s.replace {
		s.replenish(ctx)
	}
	return moved, errs
}

// migrate 单条记录的迁移：先写历史，再删活跃。
func (s *Sweeper) migrate(mailbox *domain.Mailbox, expiredAt time.Time) error {
	if err := s.repo.SaveHistory(domain.NewHistoryMailbox(mailbox, expiredAt)); err != nil {
		return err
	}
	return s.repo.DeleteMailbox(mailbox.ID)
}

// replenish 活跃表清空后自动补充一个邮箱（可选策略）。
func (s *Sweeper) replenish(ctx context.Context) {
	count, err := s.repo.CountMailboxes()
	if err != nil || count > 0 {
		return
	}

	_, err = s.mailbox.Create(ctx, CreateMailboxInput{Service: provider.ServiceAuto})
	if err != nil {
		s.logger.Warn("自动补充邮箱失败", zap.Error(err))
	}
}
