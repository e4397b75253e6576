package repository

import (
	"context"

	"gorm.io/gorm"

	"typhoon/internal/model"
)

// MessageRepo 消息仓库
type MessageRepo struct {
	db *gorm.DB
}

// NewMessageRepo 创建消息仓库, db 可以是事务句柄
func NewMessageRepo(db *gorm.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create 创建消息
func (r *MessageRepo) Create(ctx context.Context, msg *model.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// FindByID 按 id 查询
func (r *MessageRepo) FindByID(ctx context.Context, id uint) (*model.Message, error) {
	var msg model.Message
	if err := r.db.WithContext(ctx).First(&msg, id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// Save 保存整条消息
func (r *MessageRepo) Save(ctx context.Context, msg *model.Message) error {
	return r.db.WithContext(ctx).Save(msg).Error
}

// ListBySession 会话内的全部消息
func (r *MessageRepo) ListBySession(ctx context.Context, sessionID uint) ([]model.Message, error) {
	messages := make([]model.Message, 0)
	if err := r.db.WithContext(ctx).
		Where("chat_session_id = ?", sessionID).
		Order("id ASC").
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

// UpdatePreference 更新消息评价
func (r *MessageRepo) UpdatePreference(ctx context.Context, id uint, pref model.Preference) error {
	result := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("id = ?", id).
		Update("preference", pref)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
