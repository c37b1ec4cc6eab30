package database

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"TaskQuest/internal/model"
	"TaskQuest/internal/repository"
	"TaskQuest/pkg/logger"
)

// Migrate 运行数据库迁移，创建所有表
func Migrate(gdb *gorm.DB) error {
	if gdb == nil {
		return gorm.ErrInvalidDB
	}

	logger.Logger.Info("Starting database migration...")

	err := gdb.AutoMigrate(
		&model.Account{},
		&model.PointTransaction{},
		&model.Feature{},
		&model.AccountFeature{},
		&model.ConverterUnlock{},
		&model.Tag{},
		&model.Task{},
		&model.TriviaStreak{},
		&model.TriviaHistory{},
		&model.Post{},
		&model.Comment{},
	)
	if err != nil {
		logger.Logger.Error("Database migration failed", zap.Error(err))
		return err
	}

	logger.Logger.Info("Database migration completed successfully")
	return nil
}

// Seed 写入商店功能目录，可重复执行
func Seed(ctx context.Context, store repository.Store) error {
	if err := store.Features().EnsureSeeded(ctx, model.DefaultFeatures); err != nil {
		return fmt.Errorf("seed features: %w", err)
	}
	logger.Logger.Info("Feature catalog seeded", zap.Int("features", len(model.DefaultFeatures)))
	return nil
}
