package service

import (
	"errors"
	"strings"
	"time"

	"github.com/prepvio/prepvio-api/internal/config"
	"github.com/prepvio/prepvio-api/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenInvalid token 无法解析或已过期
var ErrTokenInvalid = errors.New("token invalid")

// JWTClaims 管理员 JWT 声明
type JWTClaims struct {
	AdminID      uint   `json:"admin_id"`
	Username     string `json:"username"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// UserJWTClaims 用户 JWT 声明
type UserJWTClaims struct {
	UserID       uint   `json:"user_id"`
	Email        string `json:"email"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// TokenService 负责签发与校验 HS256 token
// 登录流程由账号服务负责，这里仅提供签名能力
type TokenService struct {
	admin config.JWTConfig
	user  config.JWTConfig
	now   func() time.Time
}

// NewTokenService 创建 token 服务
func NewTokenService(admin, user config.JWTConfig) *TokenService {
	return &TokenService{admin: admin, user: user, now: time.Now}
}

func (s *TokenService) registered(expireHours int) (jwt.RegisteredClaims, time.Time) {
	now := s.now()
	if expireHours <= 0 {
		expireHours = 24
	}
	expiresAt := now.Add(time.Duration(expireHours) * time.Hour)
	return jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}, expiresAt
}

// GenerateAdminToken 为管理员签发 token
func (s *TokenService) GenerateAdminToken(admin *models.Admin) (string, time.Time, error) {
	if admin == nil || admin.ID == 0 {
		return "", time.Time{}, ErrUnauthorized
	}
	registered, expiresAt := s.registered(s.admin.ExpireHours)
	claims := JWTClaims{
		AdminID:          admin.ID,
		Username:         admin.Username,
		TokenVersion:     admin.TokenVersion,
		RegisteredClaims: registered,
	}
	token, err := sign(claims, s.admin.SecretKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// GenerateUserToken 为用户签发 token
func (s *TokenService) GenerateUserToken(user *models.User) (string, time.Time, error) {
	if user == nil || user.ID == 0 {
		return "", time.Time{}, ErrUnauthorized
	}
	registered, expiresAt := s.registered(s.user.ExpireHours)
	claims := UserJWTClaims{
		UserID:           user.ID,
		Email:            user.Email,
		TokenVersion:     user.TokenVersion,
		RegisteredClaims: registered,
	}
	token, err := sign(claims, s.user.SecretKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// ParseAdminToken 解析管理员 token
func ParseAdminToken(tokenString, secretKey string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	if err := parse(tokenString, secretKey, claims); err != nil {
		return nil, err
	}
	if claims.AdminID == 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ParseUserToken 解析用户 token
func ParseUserToken(tokenString, secretKey string) (*UserJWTClaims, error) {
	claims := &UserJWTClaims{}
	if err := parse(tokenString, secretKey, claims); err != nil {
		return nil, err
	}
	if claims.UserID == 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func sign(claims jwt.Claims, secretKey string) (string, error) {
	if strings.TrimSpace(secretKey) == "" {
		return "", ErrTokenInvalid
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secretKey))
}

func parse(tokenString, secretKey string, claims jwt.Claims) error {
	if strings.TrimSpace(tokenString) == "" || strings.TrimSpace(secretKey) == "" {
		return ErrTokenInvalid
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secretKey), nil
	})
	if err != nil || !token.Valid {
		return ErrTokenInvalid
	}
	return nil
}
