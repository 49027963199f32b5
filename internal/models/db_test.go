package models

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/truckdock/internal/constants"
)

func TestPrepareSQLiteDSN(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "truckdock.db")

	got, err := prepareSQLiteDSN(path)
	if err != nil {
		t.Fatalf("prepare failed: %v", err)
	}
	if !strings.HasPrefix(got, path+"?") || !strings.Contains(got, "busy_timeout(5000)") || !strings.Contains(got, "journal_mode(WAL)") {
		t.Fatalf("unexpected dsn: %s", got)
	}
	if info, err := os.Stat(filepath.Dir(path)); err != nil || !info.IsDir() {
		t.Fatalf("want sqlite dir created err=%v", err)
	}

	custom := path + "?_pragma=busy_timeout(100)"
	if got, _ := prepareSQLiteDSN(custom); got != custom+"&_pragma=journal_mode(WAL)" {
		t.Fatalf("want existing pragma kept got %s", got)
	}
	memory := "file:models_test?mode=memory&cache=shared"
	if got, _ := prepareSQLiteDSN(memory); got != memory {
		t.Fatalf("want memory dsn unchanged got %s", got)
	}
	if _, err := prepareSQLiteDSN("  "); err == nil {
		t.Fatalf("want error for empty dsn")
	}
}

func TestOpenDBRejectsUnknownDriver(t *testing.T) {
	if _, err := OpenDB("mysql", "user@/db", DBPoolConfig{}); err == nil {
		t.Fatalf("want unsupported driver error")
	}
}

func setupModelsTestDB(t *testing.T) {
	t.Helper()
	db, err := OpenDB("sqlite", "file:"+strings.ReplaceAll(t.Name(), "/", "_")+"?mode=memory&cache=shared", DBPoolConfig{MaxIdleConns: 2})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := MigrateAll(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	previous := DB
	DB = db
	t.Cleanup(func() { DB = previous })
}

func TestInitDefaultAdmin(t *testing.T) {
	setupModelsTestDB(t)
	if err := InitDefaultAdmin(" ops ", "ops-secret"); err != nil {
		t.Fatalf("init admin failed: %v", err)
	}
	var admin User
	if err := DB.Where("username = ?", "ops").First(&admin).Error; err != nil {
		t.Fatalf("load admin failed: %v", err)
	}
	if admin.Role != constants.RoleAdmin || admin.ID == "" || admin.PasswordHash == "ops-secret" {
		t.Fatalf("unexpected admin: %+v", admin)
	}

	if err := InitDefaultAdmin("second", "x"); err != nil {
		t.Fatalf("second init failed: %v", err)
	}
	var count int64
	DB.Model(&User{}).Count(&count)
	if count != 1 {
		t.Fatalf("want no extra admin when one exists got %d users", count)
	}
}

func TestInitDefaultAdminPromotesExistingUser(t *testing.T) {
	setupModelsTestDB(t)
	if err := DB.Create(&User{Username: "admin", PasswordHash: "hash", Role: constants.RoleViewer}).Error; err != nil {
		t.Fatalf("create viewer failed: %v", err)
	}
	if err := InitDefaultAdmin("", ""); err != nil {
		t.Fatalf("init admin failed: %v", err)
	}
	var user User
	DB.Where("username = ?", "admin").First(&user)
	if user.Role != constants.RoleAdmin || user.PasswordHash != "hash" {
		t.Fatalf("want promoted with existing password hash got %+v", user)
	}
}
