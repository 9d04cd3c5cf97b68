package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"lockproxy/internal/config"
	"lockproxy/internal/db"

	"gorm.io/gorm"
)

var dbSeq atomic.Uint64

// NewTestDB 创建内存 SQLite 数据库并执行所有迁移
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// 每个测试使用唯一的数据库名称以避免冲突
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))

	database, err := db.Open(config.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return database
}
