package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/truckdock/internal/models"
)

const authStateCacheTTL = 10 * time.Minute

// UserAuthState 账号鉴权快照
// token_invalid_before 为 Unix 秒时间戳，0 表示未设置
// Deleted 为 true 表示账号已删除，持有的 Token 一律拒绝
type UserAuthState struct {
	UserID             string `json:"user_id"`
	Username           string `json:"username"`
	Role               string `json:"role"`
	TokenVersion       uint64 `json:"token_version"`
	TokenInvalidBefore int64  `json:"token_invalid_before"`
	Deleted            bool   `json:"deleted"`
	UpdatedAt          int64  `json:"updated_at"`
}

func userAuthStateKey(userID string) string {
	return fmt.Sprintf("auth:user:%s", userID)
}

// BuildUserAuthState 从账号模型构建鉴权快照
func BuildUserAuthState(user *models.User) *UserAuthState {
	if user == nil {
		return nil
	}
	state := &UserAuthState{
		UserID:       user.ID,
		Username:     user.Username,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
		UpdatedAt:    time.Now().Unix(),
	}
	if user.TokenInvalidBefore != nil {
		state.TokenInvalidBefore = user.TokenInvalidBefore.Unix()
	}
	return state
}

// BuildDeletedAuthState 构建已删除账号的鉴权快照
func BuildDeletedAuthState(userID string) *UserAuthState {
	return &UserAuthState{
		UserID:    userID,
		Deleted:   true,
		UpdatedAt: time.Now().Unix(),
	}
}

// GetUserAuthState 获取账号鉴权快照
func GetUserAuthState(ctx context.Context, userID string) (*UserAuthState, bool, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, false, nil
	}
	var state UserAuthState
	hit, err := GetJSON(ctx, userAuthStateKey(userID), &state)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &state, true, nil
}

// SetUserAuthState 写入账号鉴权快照
func SetUserAuthState(ctx context.Context, state *UserAuthState) error {
	if state == nil || strings.TrimSpace(state.UserID) == "" {
		return nil
	}
	return SetJSON(ctx, userAuthStateKey(state.UserID), state, authStateCacheTTL)
}
