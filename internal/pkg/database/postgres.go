package database

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"typhoon/internal/config"
	"typhoon/internal/model"
)

// New 打开 Postgres 连接并应用连接池限制
func New(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.URL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// pool_size 为常驻连接, max_overflow 为峰值溢出量
	sqlDB.SetMaxIdleConns(cfg.PoolSize)
	sqlDB.SetMaxOpenConns(cfg.PoolSize + cfg.MaxOverflow)
	sqlDB.SetConnMaxIdleTime(cfg.PoolTimeout)

	return db, nil
}

// Migrate 建表
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.ChatSession{},
		&model.Message{},
		&model.LLM{},
	)
}

// SeedLLMRegistry 注册表为空时写入支持的模型及参数范围
func SeedLLMRegistry(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.LLM{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	llms := []model.LLM{
		{
			Shortname: "typhoon-v2-8b-instruct",
			Fullname:  "scb10x/llama-3-typhoon-v1.5-8b-instruct",
			Params: model.JSONMap{
				"temperature":       map[string]any{"min": 0, "max": 2, "default": 0.7},
				"topP":              map[string]any{"min": 0, "max": 1, "default": 0.7},
				"topK":              map[string]any{"min": 1, "max": 100, "default": 50},
				"repetitionPenalty": map[string]any{"min": 0, "max": 2, "default": 1.0},
				"outputLength":      map[string]any{"min": 0, "max": 512, "default": 512},
			},
		},
		{
			Shortname: "typhoon-v2-70b-instruct",
			Fullname:  "scb10x/llama-3-typhoon-v1.5x-70b-instruct",
			Params: model.JSONMap{
				"temperature":       map[string]any{"min": 0, "max": 2, "default": 0.7},
				"topP":              map[string]any{"min": 0, "max": 1, "default": 0.7},
				"topK":              map[string]any{"min": 1, "max": 100, "default": 50},
				"repetitionPenalty": map[string]any{"min": 0, "max": 2, "default": 1.0},
				"outputLength":      map[string]any{"min": 0, "max": 4096, "default": 2048},
			},
		},
	}

	if err := db.Create(&llms).Error; err != nil {
		return err
	}

	log.Info().Int("models", len(llms)).Msg("seeded llm registry")
	return nil
}
