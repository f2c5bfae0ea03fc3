package router

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/prepvio/prepvio-api/internal/authz"
	"github.com/prepvio/prepvio-api/internal/cache"
	"github.com/prepvio/prepvio-api/internal/config"
	"github.com/prepvio/prepvio-api/internal/constants"
	"github.com/prepvio/prepvio-api/internal/http/response"
	"github.com/prepvio/prepvio-api/internal/i18n"
	"github.com/prepvio/prepvio-api/internal/logger"
	"github.com/prepvio/prepvio-api/internal/repository"
	"github.com/prepvio/prepvio-api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// CORSMiddleware 跨域中间件
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	allowedMethods := cfg.AllowedMethods
	if len(allowedMethods) == 0 {
		allowedMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	}
	allowedHeaders := cfg.AllowedHeaders
	if len(allowedHeaders) == 0 {
		allowedHeaders = []string{"Content-Type", "Authorization", "Accept-Language", requestIDHeader}
	}
	methodsHeader := strings.Join(allowedMethods, ", ")
	headersHeader := strings.Join(allowedHeaders, ", ")

	return func(c *gin.Context) {
		header := c.Writer.Header()
		if allowedOrigin := resolveAllowedOrigin(c.GetHeader("Origin"), allowedOrigins, cfg.AllowCredentials); allowedOrigin != "" {
			header.Set("Access-Control-Allow-Origin", allowedOrigin)
			if allowedOrigin != "*" {
				header.Add("Vary", "Origin")
			}
		}
		if cfg.AllowCredentials {
			header.Set("Access-Control-Allow-Credentials", "true")
		}
		header.Set("Access-Control-Allow-Headers", headersHeader)
		header.Set("Access-Control-Allow-Methods", methodsHeader)
		header.Set("Access-Control-Expose-Headers", requestIDHeader)
		if cfg.MaxAge > 0 {
			header.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

// resolveAllowedOrigin 携带凭证时不能返回 *，回显请求来源
func resolveAllowedOrigin(origin string, allowedOrigins []string, allowCredentials bool) string {
	for _, allowed := range allowedOrigins {
		if allowed == "*" {
			if allowCredentials && origin != "" {
				return origin
			}
			return "*"
		}
	}
	if origin == "" {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

// RequestIDMiddleware 请求 ID 中间件
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(constants.ContextKeyRequestID, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

// LoggerMiddleware 结构化请求日志中间件，鉴权通过的请求附带主体 ID
func LoggerMiddleware(base *zap.Logger) gin.HandlerFunc {
	if base == nil {
		base = zap.L()
	}
	sugar := base.Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []interface{}{
			"request_id", c.GetString(constants.ContextKeyRequestID),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if id := c.GetUint(constants.ContextKeyUserID); id > 0 {
			fields = append(fields, "user_id", id)
		}
		if id := c.GetUint(constants.ContextKeyAdminID); id > 0 {
			fields = append(fields, "admin_id", id)
		}
		if len(c.Errors) > 0 {
			sugar.Errorw("request", append(fields, "errors", c.Errors.String())...)
			return
		}
		sugar.Infow("request", fields...)
	}
}

// extractToken 优先读取 Authorization: Bearer，其次读取 Cookie
// 返回 token 与失败时的消息 key
func extractToken(c *gin.Context, cookieName string) (string, string) {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", "error.auth_header_invalid"
		}
		return strings.TrimSpace(parts[1]), ""
	}
	if cookieName != "" {
		if value, err := c.Cookie(cookieName); err == nil && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value), ""
		}
	}
	return "", "error.auth_header_missing"
}

func abortUnauthorized(c *gin.Context, key string) {
	response.Unauthorized(c, i18n.T(i18n.ResolveLocale(c), key))
	c.Abort()
}

// loadAuthState 先读 Redis 快照，未命中时回源数据库并回写
func loadAuthState(ctx context.Context, kind string, id uint, load func() (*cache.AuthState, error)) (*cache.AuthState, error) {
	if cached, hit, err := cache.GetAuthState(ctx, kind, id); err == nil && hit && cached != nil {
		return cached, nil
	}
	state, err := load()
	if err != nil || state == nil {
		return nil, err
	}
	if err := cache.SetAuthState(ctx, state); err != nil {
		logger.Debugw("auth_state_cache_failed", "kind", kind, "subject_id", id, "error", err)
	}
	return state, nil
}

// verifyAuthState 校验 token 版本与失效时间点，返回失败时的消息 key
func verifyAuthState(state *cache.AuthState, tokenVersion uint64, issuedAt *jwt.NumericDate) string {
	if state == nil {
		return "error.token_invalid"
	}
	if state.Kind == cache.AuthKindUser && !isActiveUserStatus(state.Status) {
		return "error.user_disabled"
	}
	if tokenVersion != state.TokenVersion || !isIssuedAfter(issuedAt, state.TokenInvalidBefore) {
		return "error.token_revoked"
	}
	return ""
}

// JWTAuthMiddleware 管理员 JWT 鉴权中间件
func JWTAuthMiddleware(cfg config.JWTConfig, adminRepo repository.AdminRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.SecretKey == "" {
			abortUnauthorized(c, "error.jwt_secret_missing")
			return
		}
		if adminRepo == nil {
			abortUnauthorized(c, "error.token_invalid")
			return
		}
		tokenString, failKey := extractToken(c, cfg.CookieName)
		if failKey != "" {
			abortUnauthorized(c, failKey)
			return
		}
		claims, err := service.ParseAdminToken(tokenString, cfg.SecretKey)
		if err != nil {
			abortUnauthorized(c, "error.token_invalid")
			return
		}

		state, err := loadAuthState(c.Request.Context(), cache.AuthKindAdmin, claims.AdminID, func() (*cache.AuthState, error) {
			admin, err := adminRepo.GetByID(claims.AdminID)
			if err != nil || admin == nil {
				return nil, err
			}
			return cache.BuildAdminAuthState(admin), nil
		})
		if err != nil {
			logger.Warnw("admin_auth_state_load_failed", "admin_id", claims.AdminID, "error", err)
		}
		if failKey := verifyAuthState(state, claims.TokenVersion, claims.IssuedAt); failKey != "" {
			abortUnauthorized(c, failKey)
			return
		}

		c.Set(constants.ContextKeyAdminID, claims.AdminID)
		c.Set(constants.ContextKeyAdminName, claims.Username)
		c.Set(constants.ContextKeyAdminIsSuper, state.IsSuper)
		c.Next()
	}
}

// UserJWTAuthMiddleware 用户 JWT 鉴权中间件
func UserJWTAuthMiddleware(cfg config.JWTConfig, userRepo repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.SecretKey == "" {
			abortUnauthorized(c, "error.jwt_secret_missing")
			return
		}
		if userRepo == nil {
			abortUnauthorized(c, "error.token_invalid")
			return
		}
		tokenString, failKey := extractToken(c, cfg.CookieName)
		if failKey != "" {
			abortUnauthorized(c, failKey)
			return
		}
		claims, err := service.ParseUserToken(tokenString, cfg.SecretKey)
		if err != nil {
			abortUnauthorized(c, "error.token_invalid")
			return
		}

		state, err := loadAuthState(c.Request.Context(), cache.AuthKindUser, claims.UserID, func() (*cache.AuthState, error) {
			user, err := userRepo.GetByID(claims.UserID)
			if err != nil || user == nil {
				return nil, err
			}
			return cache.BuildUserAuthState(user), nil
		})
		if err != nil {
			logger.Warnw("user_auth_state_load_failed", "user_id", claims.UserID, "error", err)
		}
		if failKey := verifyAuthState(state, claims.TokenVersion, claims.IssuedAt); failKey != "" {
			abortUnauthorized(c, failKey)
			return
		}

		c.Set(constants.ContextKeyUserID, claims.UserID)
		c.Set(constants.ContextKeyUserEmail, claims.Email)
		c.Next()
	}
}

// AdminRBACMiddleware 管理端 RBAC 鉴权中间件，按路由模板匹配策略
func AdminRBACMiddleware(authzService *authz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authzService == nil {
			logger.Errorw("admin_rbac_service_unavailable")
			abortUnauthorized(c, "error.unauthorized")
			return
		}
		if c.GetBool(constants.ContextKeyAdminIsSuper) {
			c.Next()
			return
		}
		adminID := c.GetUint(constants.ContextKeyAdminID)
		if adminID == 0 {
			abortUnauthorized(c, "error.unauthorized")
			return
		}

		resource := c.FullPath()
		if strings.TrimSpace(resource) == "" {
			resource = c.Request.URL.Path
		}
		allowed, err := authzService.EnforceAdmin(adminID, resource, c.Request.Method)
		if err != nil {
			logger.Errorw("admin_rbac_enforce_failed",
				"admin_id", adminID,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"error", err,
			)
			abortUnauthorized(c, "error.unauthorized")
			return
		}
		if !allowed {
			logger.Warnw("admin_rbac_permission_denied",
				"admin_id", adminID,
				"method", c.Request.Method,
				"resource", authz.NormalizeObject(resource),
			)
			response.Forbidden(c, i18n.T(i18n.ResolveLocale(c), "error.forbidden"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func isIssuedAfter(issuedAt *jwt.NumericDate, invalidBeforeUnix int64) bool {
	if invalidBeforeUnix <= 0 {
		return true
	}
	if issuedAt == nil {
		return false
	}
	return issuedAt.Time.Unix() >= invalidBeforeUnix
}

func isActiveUserStatus(status string) bool {
	return strings.ToLower(strings.TrimSpace(status)) == constants.UserStatusActive
}
