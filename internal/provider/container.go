package provider

import (
	"github.com/prepvio/prepvio-api/internal/authz"
	"github.com/prepvio/prepvio-api/internal/cache"
	"github.com/prepvio/prepvio-api/internal/config"
	"github.com/prepvio/prepvio-api/internal/logger"
	"github.com/prepvio/prepvio-api/internal/models"
	"github.com/prepvio/prepvio-api/internal/queue"
	"github.com/prepvio/prepvio-api/internal/repository"
	"github.com/prepvio/prepvio-api/internal/service"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo          repository.AdminRepository
	UserRepo           repository.UserRepository
	PromoCodeRepo      repository.PromoCodeRepository
	PromoCodeBatchRepo repository.PromoCodeBatchRepository

	// Services
	AuthzService          *authz.Service
	TokenService          *service.TokenService
	PromoCodeService      *service.PromoCodeService
	PromoCodeAdminService *service.PromoCodeAdminService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
		queueClient, _ = queue.NewClient(nil)
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}
	c.initRepositories(models.DB)
	c.initServices(models.DB)
	return c
}

// NewContainerWithDB 使用指定数据库初始化容器，不连接 Redis
func NewContainerWithDB(cfg *config.Config, db *gorm.DB) *Container {
	queueClient, _ := queue.NewClient(nil)
	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}
	c.initRepositories(db)
	c.initServices(db)
	return c
}

func (c *Container) initRepositories(db *gorm.DB) {
	c.AdminRepo = repository.NewAdminRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.PromoCodeRepo = repository.NewPromoCodeRepository(db)
	c.PromoCodeBatchRepo = repository.NewPromoCodeBatchRepository(db)
}

func (c *Container) initServices(db *gorm.DB) {
	authzService, err := authz.NewService(db)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}
	c.syncAdminRoles()

	c.TokenService = service.NewTokenService(c.Config.JWT, c.Config.UserJWT)
	c.PromoCodeService = service.NewPromoCodeService(c.PromoCodeRepo, c.Config.Promo)
	c.PromoCodeAdminService = service.NewPromoCodeAdminService(c.PromoCodeRepo, c.PromoCodeBatchRepo, c.QueueClient, c.Config.Promo)
}

// syncAdminRoles 将管理员账号角色同步为授权角色
func (c *Container) syncAdminRoles() {
	admins, err := c.AdminRepo.List()
	if err != nil {
		logger.Warnw("provider_list_admins_failed", "error", err)
		return
	}
	for _, admin := range admins {
		if err := c.AuthzService.SyncAdminRole(admin.ID, admin.Role); err != nil {
			logger.Warnw("provider_sync_admin_role_failed", "admin_id", admin.ID, "error", err)
		}
	}
}

// Close 释放队列客户端与 Redis 连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			logger.Warnw("provider_close_queue_client_failed", "error", err)
		}
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}
