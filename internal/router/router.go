package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prepvio/prepvio-api/internal/authz"
	"github.com/prepvio/prepvio-api/internal/cache"
	"github.com/prepvio/prepvio-api/internal/config"
	adminhandlers "github.com/prepvio/prepvio-api/internal/http/handlers/admin"
	publichandlers "github.com/prepvio/prepvio-api/internal/http/handlers/public"
	"github.com/prepvio/prepvio-api/internal/http/response"
	"github.com/prepvio/prepvio-api/internal/logger"
	"github.com/prepvio/prepvio-api/internal/metrics"
	"github.com/prepvio/prepvio-api/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按用户侧/管理端分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "prepvio"
	}
	redisClient := cache.Client()
	evaluateRule := newRateLimitRule(fmt.Sprintf("%s:rate:promo_evaluate", redisPrefix), cfg.Security.EvaluateRateLimit)
	redeemRule := newRateLimitRule(fmt.Sprintf("%s:rate:promo_redeem", redisPrefix), cfg.Security.RedeemRateLimit)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 用户接口
		user := apiV1.Group("")
		user.Use(UserJWTAuthMiddleware(cfg.UserJWT, c.UserRepo))
		{
			user.POST("/promo-codes/evaluate", RateLimitMiddleware(redisClient, evaluateRule, KeyByUserAndJSONField("code")), publicHandler.EvaluatePromoCode)
			user.POST("/promo-codes/redeem", RateLimitMiddleware(redisClient, redeemRule, KeyByUserAndJSONField("code")), publicHandler.RedeemPromoCode)
			user.POST("/promo-codes/commit", RateLimitMiddleware(redisClient, redeemRule, KeyByUserAndJSONField("code")), publicHandler.CommitPromoCode)
		}

		// 管理端接口
		admin := apiV1.Group("/admin")
		{
			authorized := admin.Group("")
			authorized.Use(JWTAuthMiddleware(cfg.JWT, c.AdminRepo))
			authorized.Use(AdminRBACMiddleware(c.AuthzService))
			{
				// 权限
				authorized.GET("/authz/me", adminHandler.GetAuthzMe)
				authorized.GET("/authz/roles", adminHandler.ListAuthzRoles)
				authorized.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
				authorized.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
					response.Success(ctx, buildAdminPermissionCatalog(r))
				})

				// 优惠码
				authorized.GET("/promo-codes", adminHandler.GetPromoCodes)
				authorized.POST("/promo-codes", adminHandler.CreatePromoCode)
				authorized.POST("/promo-codes/batch", adminHandler.CreatePromoCodesBatch)
				authorized.POST("/promo-codes/generate", adminHandler.GeneratePromoCodes)
				authorized.GET("/promo-codes/batches/:batch_no", adminHandler.GetPromoCodeBatch)
				authorized.GET("/promo-codes/:id", adminHandler.GetPromoCode)
				authorized.GET("/promo-codes/:id/usages", adminHandler.GetPromoCodeUsages)
				authorized.PUT("/promo-codes/:id", adminHandler.UpdatePromoCode)
				authorized.PATCH("/promo-codes/:id/active", adminHandler.SetPromoCodeActive)
				authorized.DELETE("/promo-codes/:id", adminHandler.PurgePromoCode)
			}
		}
	}

	// 健康检查
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	if cfg.Metrics.Enabled {
		path := strings.TrimSpace(cfg.Metrics.Path)
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(metrics.Handler()))
	}

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	if segments[1] == "authz" {
		return "authz"
	}
	return segments[1]
}
