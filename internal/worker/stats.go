package worker

import (
	"context"
	"time"

	"github.com/prepvio/prepvio-api/internal/logger"
	"github.com/prepvio/prepvio-api/internal/metrics"
	"github.com/prepvio/prepvio-api/internal/repository"
)

// StatsService 定时统计各状态优惠码数量并刷新指标
type StatsService struct {
	repo     repository.PromoCodeRepository
	interval time.Duration
	now      func() time.Time
	stop     chan struct{}
}

// NewStatsService 创建统计服务
func NewStatsService(repo repository.PromoCodeRepository, intervalSeconds int) *StatsService {
	interval := time.Duration(intervalSeconds) * time.Second
	if interval <= 0 {
		interval = defaultStatsInterval
	}
	return &StatsService{
		repo:     repo,
		interval: interval,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

// Name 服务名称
func (s *StatsService) Name() string {
	return "promo_stats"
}

// Start 立即统计一次，之后按间隔执行直到停止
func (s *StatsService) Start(ctx context.Context) error {
	s.RunOnce()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stop:
			return nil
		case <-ticker.C:
			s.RunOnce()
		}
	}
}

// Stop 停止服务
func (s *StatsService) Stop(ctx context.Context) error {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	return nil
}

// RunOnce 执行一次统计
func (s *StatsService) RunOnce() map[string]int64 {
	if s == nil || s.repo == nil {
		return nil
	}
	counts, err := s.repo.CountByState(s.now())
	if err != nil {
		logger.Warnw("worker_promo_stats_failed", "error", err)
		return nil
	}
	metrics.SetPromoCodesTotal(counts)
	logger.Debugw("worker_promo_stats_refreshed", "counts", counts)
	return counts
}
