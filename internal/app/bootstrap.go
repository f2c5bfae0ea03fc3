package app

import (
	"errors"

	"github.com/prepvio/prepvio-api/internal/config"
	"github.com/prepvio/prepvio-api/internal/logger"
	"github.com/prepvio/prepvio-api/internal/provider"
	"github.com/prepvio/prepvio-api/internal/router"
	"github.com/prepvio/prepvio-api/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	mode, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}
	return buildRunner(cfg, mode, provider.NewContainer(cfg))
}

func buildRunner(cfg *config.Config, mode string, container *provider.Container) (*Runner, error) {
	var services []Service
	opts := Options{Mode: mode}

	// 初始化 HTTP 服务与统计任务
	if opts.servesHTTP() {
		engine := router.SetupRouter(cfg, container)
		services = append(services, NewHTTPService(cfg.Server, engine))
		if cfg.Metrics.Enabled {
			services = append(services, worker.NewStatsService(container.PromoCodeRepo, cfg.Promo.StatsIntervalSeconds))
		}
	}

	// 初始化 Worker 服务，all 模式下队列未启用时批量生成走同步
	if opts.runsWorker() {
		consumer := worker.NewConsumer(container)
		workerService, err := worker.NewService(&cfg.Queue, consumer)
		switch {
		case err == nil:
			services = append(services, workerService)
		case mode == ModeWorker:
			container.Close()
			return nil, err
		default:
			logger.Warnw("app_worker_skipped", "error", err)
		}
	}

	if len(services) == 0 {
		container.Close()
		return nil, errors.New("no services initialized (check mode and config)")
	}

	runner := NewRunner(services...)
	runner.cleanup = container.Close
	return runner, nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	opts.Logger.Infow("app_start", "mode", opts.Mode, "services", runner.names())
	return RunWithOptions(runner, opts)
}
