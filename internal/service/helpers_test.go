package service

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mockup_embedder_v1_202610/internal/model"
	"mockup_embedder_v1_202610/internal/repository"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	// :memory: 每个连接是独立的库
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&model.Shop{}); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	return db
}

// setupStore 带内存缓存的凭证存储，并预置店铺
func setupStore(t *testing.T, seed map[string]string) *CredentialStore {
	t.Helper()
	repo := repository.NewShopRepository(setupTestDB(t))
	store := NewCredentialStore(repo, NewMemoryCredentialCache(0), nil)
	for shop, token := range seed {
		if err := store.UpsertCredential(context.Background(), shop, token, "write_products"); err != nil {
			t.Fatalf("seed %s: %v", shop, err)
		}
	}
	return store
}
