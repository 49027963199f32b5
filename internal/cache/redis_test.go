package cache

import (
	"context"
	"net"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/truckdock/internal/config"
	"github.com/truckdock/internal/constants"
	"github.com/truckdock/internal/models"
)

func TestInitRedisDisabled(t *testing.T) {
	t.Cleanup(func() { _ = Close() })
	if err := InitRedis(&config.RedisConfig{Enabled: false, Prefix: "fleet:"}); err != nil {
		t.Fatalf("disabled redis should not fail: %v", err)
	}
	if Enabled() || Client() != nil {
		t.Fatalf("want redis disabled")
	}
	if Prefix() != "fleet" {
		t.Fatalf("want trimmed prefix fleet got %q", Prefix())
	}
	if got := buildKey(" auth:user:1 "); got != "fleet:auth:user:1" {
		t.Fatalf("unexpected key: %s", got)
	}

	ctx := context.Background()
	if err := SetUserAuthState(ctx, &UserAuthState{UserID: "u1"}); err != nil {
		t.Fatalf("set without redis should be a no-op: %v", err)
	}
	if _, hit, err := GetUserAuthState(ctx, "u1"); hit || err != nil {
		t.Fatalf("want miss without redis got hit=%v err=%v", hit, err)
	}
}

func TestInitRedisUnreachableDisables(t *testing.T) {
	t.Cleanup(func() { _ = Close() })
	// 端口 1 在测试环境中不会有 Redis 监听
	err := InitRedis(&config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1, DialTimeoutSeconds: 1})
	if err == nil {
		t.Fatalf("want ping error for unreachable redis")
	}
	if Enabled() {
		t.Fatalf("want redis disabled after failed ping")
	}
	if Prefix() != constants.RedisPrefixDefault {
		t.Fatalf("want default prefix got %q", Prefix())
	}
}

func TestRedisAddr(t *testing.T) {
	cases := []struct {
		host string
		port int
		want string
	}{
		{"", 0, "127.0.0.1:6379"},
		{" redis ", 6380, "redis:6380"},
		{"::1", 6379, "[::1]:6379"},
	}
	for _, tc := range cases {
		if got := redisAddr(tc.host, tc.port); got != tc.want {
			t.Fatalf("redisAddr(%q,%d) want %s got %s", tc.host, tc.port, tc.want, got)
		}
	}
}

func TestUserAuthStateRoundTripWithRedis(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("skip redis auth state test: TEST_REDIS_ADDR is empty")
	}
	host, portText, _ := net.SplitHostPort(addr)
	port, _ := strconv.Atoi(portText)
	t.Cleanup(func() { _ = Close() })
	if err := InitRedis(&config.RedisConfig{Enabled: true, Host: host, Port: port, Prefix: "td_test"}); err != nil {
		t.Fatalf("init redis failed: %v", err)
	}

	ctx := context.Background()
	invalidBefore := time.Unix(1700000000, 0)
	user := &models.User{ID: "u-redis", Username: "dispatcher", Role: constants.RoleUser, TokenVersion: 3, TokenInvalidBefore: &invalidBefore}
	if err := SetUserAuthState(ctx, BuildUserAuthState(user)); err != nil {
		t.Fatalf("set auth state failed: %v", err)
	}
	state, hit, err := GetUserAuthState(ctx, user.ID)
	if err != nil || !hit {
		t.Fatalf("want hit got hit=%v err=%v", hit, err)
	}
	if state.TokenVersion != 3 || state.Role != constants.RoleUser || state.TokenInvalidBefore != invalidBefore.Unix() {
		t.Fatalf("unexpected state: %+v", state)
	}

	if err := SetUserAuthState(ctx, BuildDeletedAuthState(user.ID)); err != nil {
		t.Fatalf("set deleted state failed: %v", err)
	}
	state, _, _ = GetUserAuthState(ctx, user.ID)
	if state == nil || !state.Deleted {
		t.Fatalf("want deleted state got %+v", state)
	}
}
