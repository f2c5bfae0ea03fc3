package main

import (
	"context"
	"errors"
	"flag"
	"time"

	"github.com/prepvio/prepvio-api/internal/config"
	"github.com/prepvio/prepvio-api/internal/constants"
	"github.com/prepvio/prepvio-api/internal/logger"
	"github.com/prepvio/prepvio-api/internal/models"
	"github.com/prepvio/prepvio-api/internal/queue"
	"github.com/prepvio/prepvio-api/internal/repository"
	"github.com/prepvio/prepvio-api/internal/service"
)

func main() {
	var file string
	var reset bool
	flag.StringVar(&file, "file", "", "种子文件路径（yaml），为空时写入内置示例优惠码")
	flag.BoolVar(&reset, "reset", false, "写入前彻底删除同名优惠码及其使用记录")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	defer logger.Sync()
	stdLog := logger.StdLogger()

	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, cfg.Log.SQLLevel); err != nil {
		stdLog.Fatalf("数据库初始化失败: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("数据库迁移失败: %v", err)
	}

	codes, err := loadSeedCodes(file)
	if err != nil {
		stdLog.Fatalf("读取种子数据失败: %v", err)
	}

	repo := repository.NewPromoCodeRepository(models.DB)
	queueClient, _ := queue.NewClient(nil)
	admin := service.NewPromoCodeAdminService(repo, repository.NewPromoCodeBatchRepository(models.DB), queueClient, cfg.Promo)

	created, skipped := seedPromoCodes(context.Background(), admin, repo, codes, reset, time.Now())
	stdLog.Printf("种子数据写入完成: 新建 %d, 跳过 %d", created, skipped)
}

// seedPromoCodes 逐个写入，已存在的优惠码跳过（reset 时先删除）
func seedPromoCodes(ctx context.Context, admin *service.PromoCodeAdminService, repo repository.PromoCodeRepository, codes []seedCode, reset bool, now time.Time) (int, int) {
	created, skipped := 0, 0
	for _, code := range codes {
		if reset {
			existing, err := repo.GetByCode(code.Code)
			if err != nil {
				logger.Warnw("seed_promo_code_lookup_failed", "code", code.Code, "error", err)
				skipped++
				continue
			}
			if existing != nil {
				if err := admin.Purge(ctx, existing.ID); err != nil {
					logger.Warnw("seed_promo_code_purge_failed", "code", code.Code, "error", err)
					skipped++
					continue
				}
			}
		}
		record, err := admin.Create(code.toInput(now), constants.PromoCodeCreatedBySeed)
		if err != nil {
			if errors.Is(err, service.ErrPromoCodeExists) {
				logger.Infow("seed_promo_code_exists", "code", code.Code)
			} else {
				logger.Warnw("seed_promo_code_failed", "code", code.Code, "error", err)
			}
			skipped++
			continue
		}
		logger.Infow("seed_promo_code_created", "code", record.Code, "state", record.State(now), "description", record.Description)
		created++
	}
	return created, skipped
}
