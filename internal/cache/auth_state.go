package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/prepvio/prepvio-api/internal/models"
)

const authStateCacheTTL = 10 * time.Minute

// 鉴权主体类型
const (
	AuthKindAdmin = "admin"
	AuthKindUser  = "user"
)

// AuthState 鉴权快照，避免每个请求都查库
// TokenInvalidBefore 为 Unix 秒，0 表示未设置
type AuthState struct {
	Kind               string `json:"kind"`
	SubjectID          uint   `json:"subject_id"`
	Status             string `json:"status,omitempty"`
	Role               string `json:"role,omitempty"`
	IsSuper            bool   `json:"is_super,omitempty"`
	TokenVersion       uint64 `json:"token_version"`
	TokenInvalidBefore int64  `json:"token_invalid_before"`
	UpdatedAt          int64  `json:"updated_at"`
}

func authStateKey(kind string, id uint) string {
	return fmt.Sprintf("auth:%s:%d", kind, id)
}

// BuildAdminAuthState 从管理员模型构建快照
func BuildAdminAuthState(admin *models.Admin) *AuthState {
	if admin == nil {
		return nil
	}
	state := &AuthState{
		Kind:         AuthKindAdmin,
		SubjectID:    admin.ID,
		Role:         admin.Role,
		IsSuper:      admin.IsSuper,
		TokenVersion: admin.TokenVersion,
		UpdatedAt:    time.Now().Unix(),
	}
	if admin.TokenInvalidBefore != nil {
		state.TokenInvalidBefore = admin.TokenInvalidBefore.Unix()
	}
	return state
}

// BuildUserAuthState 从用户模型构建快照
func BuildUserAuthState(user *models.User) *AuthState {
	if user == nil {
		return nil
	}
	state := &AuthState{
		Kind:         AuthKindUser,
		SubjectID:    user.ID,
		Status:       user.Status,
		TokenVersion: user.TokenVersion,
		UpdatedAt:    time.Now().Unix(),
	}
	if user.TokenInvalidBefore != nil {
		state.TokenInvalidBefore = user.TokenInvalidBefore.Unix()
	}
	return state
}

// GetAuthState 读取鉴权快照
func GetAuthState(ctx context.Context, kind string, id uint) (*AuthState, bool, error) {
	if id == 0 {
		return nil, false, nil
	}
	var state AuthState
	hit, err := GetJSON(ctx, authStateKey(kind, id), &state)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &state, true, nil
}

// SetAuthState 写入鉴权快照
func SetAuthState(ctx context.Context, state *AuthState) error {
	if state == nil || state.SubjectID == 0 {
		return nil
	}
	return SetJSON(ctx, authStateKey(state.Kind, state.SubjectID), state, authStateCacheTTL)
}
