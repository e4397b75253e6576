package repository

import (
	"context"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"typhoon/internal/model"
	"typhoon/internal/pkg/cache"
)

// LLMRepo 模型注册表仓库, 读多写少, 列表读走 redis 旁路缓存
type LLMRepo struct {
	db    *gorm.DB
	cache *cache.RedisCache // 可为 nil, 直接回源
}

// NewLLMRepo 创建注册表仓库
func NewLLMRepo(db *gorm.DB, redisCache *cache.RedisCache) *LLMRepo {
	return &LLMRepo{db: db, cache: redisCache}
}

// List 返回注册表全部模型
func (r *LLMRepo) List(ctx context.Context) ([]model.LLM, error) {
	if r.cache != nil {
		var cached []model.LLM
		if err := r.cache.Get(ctx, cache.LLMRegistryCacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	var llms []model.LLM
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&llms).Error; err != nil {
		return nil, err
	}

	if r.cache != nil && len(llms) > 0 {
		if err := r.cache.Set(ctx, cache.LLMRegistryCacheKey, llms, cache.LLMRegistryCacheTTL); err != nil {
			log.Warn().Err(err).Msg("failed to cache llm registry")
		}
	}
	return llms, nil
}

// Fullnames 注册表中所有模型的 fullname, 用于分词器预热
func (r *LLMRepo) Fullnames(ctx context.Context) ([]string, error) {
	llms, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(llms))
	for _, llm := range llms {
		names = append(names, llm.Fullname)
	}
	return names, nil
}
