package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/truckdock/internal/cache"
	"github.com/truckdock/internal/config"
	"github.com/truckdock/internal/constants"
	"github.com/truckdock/internal/logger"
	"github.com/truckdock/internal/models"
	"github.com/truckdock/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthService 认证服务
type AuthService struct {
	cfg      *config.Config
	userRepo repository.UserRepository
}

// NewAuthService 创建认证服务实例
func NewAuthService(cfg *config.Config, userRepo repository.UserRepository) *AuthService {
	return &AuthService{
		cfg:      cfg,
		userRepo: userRepo,
	}
}

// HashPassword 使用 bcrypt 加密密码
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword 验证密码
func (s *AuthService) VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// ValidatePassword 校验密码是否符合策略
func (s *AuthService) ValidatePassword(password string) error {
	if s == nil || s.cfg == nil {
		return nil
	}
	return validatePassword(s.cfg.Security.PasswordPolicy, password)
}

// JWTClaims JWT 声明（Subject 为登录名，游客为 guest_viewer）
type JWTClaims struct {
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	Role         string `json:"role"`
	IsGuest      bool   `json:"is_guest,omitempty"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// Principal 已认证身份
type Principal struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	IsGuest  bool   `json:"is_guest"`
}

// LoginResult 登录结果
type LoginResult struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	Role        string       `json:"role"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *models.User `json:"user,omitempty"`
	IsGuest     bool         `json:"is_guest,omitempty"`
}

// GenerateJWT 生成账号 JWT Token
func (s *AuthService) GenerateJWT(user *models.User) (string, time.Time, error) {
	return s.sign(JWTClaims{
		UserID:       user.ID,
		Username:     user.Username,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
	}, user.Username, hoursOr(s.cfg.JWT.ExpireHours, 24))
}

// GenerateGuestJWT 生成只读游客 Token
func (s *AuthService) GenerateGuestJWT() (string, time.Time, error) {
	return s.sign(JWTClaims{
		UserID:   constants.GuestUserID,
		Username: constants.GuestUsername,
		Role:     constants.RoleViewer,
		IsGuest:  true,
	}, constants.GuestSubject, hoursOr(s.cfg.JWT.GuestExpireHours, 1))
}

func (s *AuthService) sign(claims JWTClaims, subject string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.JWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseJWT 解析 JWT Token
func (s *AuthService) ParseJWT(tokenString string) (*JWTClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWT.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid && strings.TrimSpace(claims.UserID) != "" {
		return claims, nil
	}
	return nil, errors.New("无效的 token")
}

// Authenticate 解析 Token 并校验账号状态（先查 Redis 快照，未命中回源数据库）
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*Principal, error) {
	claims, err := s.ParseJWT(tokenString)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	if claims.IsGuest {
		if claims.UserID != constants.GuestUserID {
			return nil, ErrTokenInvalid
		}
		return &Principal{
			UserID:   constants.GuestUserID,
			Username: constants.GuestUsername,
			Role:     constants.RoleViewer,
			IsGuest:  true,
		}, nil
	}

	if cached, hit, cacheErr := cache.GetUserAuthState(ctx, claims.UserID); cacheErr == nil && hit && cached != nil {
		if cached.Deleted {
			return nil, ErrTokenInvalid
		}
		if claims.TokenVersion != cached.TokenVersion || !issuedAfterUnix(claims.IssuedAt, cached.TokenInvalidBefore) {
			return nil, ErrTokenRevoked
		}
		return &Principal{UserID: cached.UserID, Username: cached.Username, Role: cached.Role}, nil
	}

	user, err := s.userRepo.GetByID(claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrTokenInvalid
	}
	var invalidBefore int64
	if user.TokenInvalidBefore != nil {
		invalidBefore = user.TokenInvalidBefore.Unix()
	}
	if claims.TokenVersion != user.TokenVersion || !issuedAfterUnix(claims.IssuedAt, invalidBefore) {
		return nil, ErrTokenRevoked
	}
	_ = cache.SetUserAuthState(ctx, cache.BuildUserAuthState(user))
	return &Principal{UserID: user.ID, Username: user.Username, Role: user.Role}, nil
}

// Login 账号登录
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.userRepo.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := s.VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.GenerateJWT(user)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.userRepo.TouchLastLogin(user.ID, now); err != nil {
		logger.Warnw("auth_touch_last_login_failed", "user_id", user.ID, "error", err)
	}
	_ = cache.SetUserAuthState(ctx, cache.BuildUserAuthState(user))

	return &LoginResult{
		AccessToken: token,
		TokenType:   "bearer",
		Role:        user.Role,
		ExpiresAt:   expiresAt,
		User:        user,
	}, nil
}

// GuestLogin 游客登录（只读角色）
func (s *AuthService) GuestLogin() (*LoginResult, error) {
	token, expiresAt, err := s.GenerateGuestJWT()
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		AccessToken: token,
		TokenType:   "bearer",
		Role:        constants.RoleViewer,
		ExpiresAt:   expiresAt,
		IsGuest:     true,
	}, nil
}

func issuedAfterUnix(issuedAt *jwt.NumericDate, invalidBefore int64) bool {
	if invalidBefore <= 0 {
		return true
	}
	if issuedAt == nil {
		return false
	}
	return issuedAt.Unix() >= invalidBefore
}

func hoursOr(hours int, fallback int) time.Duration {
	if hours <= 0 {
		hours = fallback
	}
	return time.Duration(hours) * time.Hour
}
