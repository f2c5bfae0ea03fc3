package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/prepvio/prepvio-api/internal/logger"
	"github.com/prepvio/prepvio-api/internal/provider"
	"github.com/prepvio/prepvio-api/internal/queue"
	"github.com/prepvio/prepvio-api/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskPromoCodeGenerateBatch, c.handlePromoCodeGenerateBatch)
}

func (c *Consumer) handlePromoCodeGenerateBatch(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_promo_generate_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParsePromoCodeGenerateBatchPayload(task)
	if err != nil {
		logger.Warnw("worker_promo_generate_invalid_payload", "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if c.PromoCodeAdminService == nil {
		logger.Warnw("worker_promo_generate_skip_service_nil", "batch_no", payload.BatchNo)
		return nil
	}

	codes, err := c.PromoCodeAdminService.ProcessBatch(ctx, payload.BatchNo)
	if err != nil {
		if errors.Is(err, service.ErrPromoCodeBatchNotFound) {
			logger.Debugw("worker_promo_generate_skip_batch_not_found", "batch_no", payload.BatchNo)
			return nil
		}
		logger.Warnw("worker_promo_generate_failed", "batch_no", payload.BatchNo, "error", err)
		return err
	}
	logger.Infow("worker_promo_generate_done", "batch_no", payload.BatchNo, "created", len(codes))
	return nil
}
