package service

import (
	"context"
	"strings"

	"github.com/truckdock/internal/cache"
	"github.com/truckdock/internal/constants"
	"github.com/truckdock/internal/logger"
	"github.com/truckdock/internal/models"
	"github.com/truckdock/internal/repository"
)

// UserService 账号管理服务
type UserService struct {
	userRepo    repository.UserRepository
	authService *AuthService
}

// NewUserService 创建账号管理服务
func NewUserService(userRepo repository.UserRepository, authService *AuthService) *UserService {
	return &UserService{userRepo: userRepo, authService: authService}
}

// RegisterInput 注册账号参数
type RegisterInput struct {
	Username string
	Password string
	Role     string
}

// IsValidRole 判断角色是否合法
func IsValidRole(role string) bool {
	_, ok := constants.RoleLevels[role]
	return ok
}

// Register 创建账号（管理员操作）
func (s *UserService) Register(input RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	role := strings.ToLower(strings.TrimSpace(input.Role))
	if role == "" {
		role = constants.RoleViewer
	}
	if !IsValidRole(role) {
		return nil, ErrInvalidRole
	}
	if err := s.authService.ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUsernameExists
	}

	hash, err := s.authService.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}
	logger.Infow("user_registered", "user_id", user.ID, "username", username, "role", role)
	return user, nil
}

// List 账号列表
func (s *UserService) List(filter repository.UserListFilter) ([]models.User, int64, error) {
	return s.userRepo.List(filter)
}

// GetByID 获取账号
func (s *UserService) GetByID(id string) (*models.User, error) {
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// Delete 删除账号，不能删除自己；删除后写入已删除快照使旧 Token 立即失效
func (s *UserService) Delete(ctx context.Context, actorID, targetID string) (*models.User, error) {
	if strings.TrimSpace(actorID) == strings.TrimSpace(targetID) {
		return nil, ErrCannotDeleteSelf
	}
	user, err := s.GetByID(targetID)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.Delete(user.ID); err != nil {
		return nil, err
	}
	if err := cache.SetUserAuthState(ctx, cache.BuildDeletedAuthState(user.ID)); err != nil {
		logger.Warnw("user_delete_auth_state_failed", "user_id", user.ID, "error", err)
	}
	logger.Infow("user_deleted", "user_id", user.ID, "username", user.Username, "actor_id", actorID)
	return user, nil
}

