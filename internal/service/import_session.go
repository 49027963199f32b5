package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/truckdock/internal/cache"
	"github.com/truckdock/internal/constants"

	"github.com/redis/go-redis/v9"
)

const importSessionTokenBytes = 16

// ImportSession 已预览未确认的导入会话（一次性使用）
type ImportSession struct {
	ID                   string            `json:"id"`
	OwnerID              string            `json:"owner_id"`
	OwnerName            string            `json:"owner_name"`
	Filename             string            `json:"filename"`
	Templates            []MonthlyTemplate `json:"templates"`
	TotalRecordsToCreate int               `json:"total_records_to_create"`
	CreatedAt            time.Time         `json:"created_at"`
	ExpiresAt            time.Time         `json:"expires_at"`
}

// ImportSessionStore 导入会话存储
// Get 在会话不存在或已过期时返回 nil, nil
// Delete 返回本次调用是否真正移除了会话，并发删除同一会话时只有一方为 true
type ImportSessionStore interface {
	Create(ctx context.Context, session *ImportSession) (string, error)
	Get(ctx context.Context, id string) (*ImportSession, error)
	Delete(ctx context.Context, id string) (bool, error)
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

// newSessionToken 生成 128 位随机令牌
func newSessionToken() (string, error) {
	buf := make([]byte, importSessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func prepareSession(session *ImportSession, ttl time.Duration, now time.Time) (string, error) {
	if session == nil {
		return "", errors.New("import session is nil")
	}
	id, err := newSessionToken()
	if err != nil {
		return "", err
	}
	session.ID = id
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.ExpiresAt = session.CreatedAt.Add(ttl)
	return id, nil
}

// MemoryImportSessionStore 进程内会话存储，访问时顺带清理过期项
type MemoryImportSessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*ImportSession
}

// NewMemoryImportSessionStore 创建进程内会话存储
func NewMemoryImportSessionStore(ttl time.Duration) *MemoryImportSessionStore {
	return &MemoryImportSessionStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*ImportSession),
	}
}

// Create 保存会话并返回令牌
func (s *MemoryImportSessionStore) Create(_ context.Context, session *ImportSession) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.purgeExpiredLocked(now)
	id, err := prepareSession(session, s.ttl, now)
	if err != nil {
		return "", err
	}
	s.sessions[id] = copySession(session)
	return id, nil
}

// Get 读取会话
func (s *MemoryImportSessionStore) Get(_ context.Context, id string) (*ImportSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpiredLocked(s.now())
	session, ok := s.sessions[strings.TrimSpace(id)]
	if !ok {
		return nil, nil
	}
	return copySession(session), nil
}

// Delete 删除会话，已过期的会话视为不存在
func (s *MemoryImportSessionStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id = strings.TrimSpace(id)
	session, ok := s.sessions[id]
	if !ok {
		return false, nil
	}
	delete(s.sessions, id)
	return s.now().Before(session.ExpiresAt), nil
}

// copySession 复制会话及模板列表，存储内外互不影响
func copySession(session *ImportSession) *ImportSession {
	copied := *session
	copied.Templates = append([]MonthlyTemplate(nil), session.Templates...)
	return &copied
}

// PurgeExpired 清理过期会话
func (s *MemoryImportSessionStore) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.purgeExpiredLocked(now), nil
}

func (s *MemoryImportSessionStore) purgeExpiredLocked(now time.Time) int {
	removed := 0
	for id, session := range s.sessions {
		if !now.Before(session.ExpiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// RedisImportSessionStore Redis 会话存储，过期交给 Redis TTL
type RedisImportSessionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisImportSessionStore 创建 Redis 会话存储
func NewRedisImportSessionStore(client *redis.Client, prefix string, ttl time.Duration) *RedisImportSessionStore {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = constants.RedisPrefixDefault
	}
	return &RedisImportSessionStore{client: client, prefix: prefix, ttl: ttl, now: time.Now}
}

func (s *RedisImportSessionStore) key(id string) string {
	return fmt.Sprintf("%s:import:session:%s", s.prefix, strings.TrimSpace(id))
}

// Create 保存会话并返回令牌
func (s *RedisImportSessionStore) Create(ctx context.Context, session *ImportSession) (string, error) {
	id, err := prepareSession(session, s.ttl, s.now())
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, s.key(id), payload, s.ttl).Err(); err != nil {
		return "", err
	}
	return id, nil
}

// Get 读取会话
func (s *RedisImportSessionStore) Get(ctx context.Context, id string) (*ImportSession, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil
	}
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var session ImportSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, err
	}
	if !s.now().Before(session.ExpiresAt) {
		return nil, nil
	}
	return &session, nil
}

// Delete 删除会话，按 DEL 返回的键数判断是否由本次调用移除
func (s *RedisImportSessionStore) Delete(ctx context.Context, id string) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, nil
	}
	removed, err := s.client.Del(ctx, s.key(id)).Result()
	if err != nil {
		return false, err
	}
	return removed > 0, nil
}

// PurgeExpired Redis 自动过期，无需清理
func (s *RedisImportSessionStore) PurgeExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}

// NewImportSessionStore 按配置选择会话存储：auto 在 Redis 可用时使用 Redis
func NewImportSessionStore(mode string, ttl time.Duration) ImportSessionStore {
	mode = strings.ToLower(strings.TrimSpace(mode))
	switch mode {
	case constants.ImportSessionStoreRedis:
		if cache.Enabled() {
			return NewRedisImportSessionStore(cache.Client(), cache.Prefix(), ttl)
		}
	case constants.ImportSessionStoreMemory:
		return NewMemoryImportSessionStore(ttl)
	default:
		if cache.Enabled() {
			return NewRedisImportSessionStore(cache.Client(), cache.Prefix(), ttl)
		}
	}
	return NewMemoryImportSessionStore(ttl)
}
