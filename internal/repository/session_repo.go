package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"typhoon/internal/model"
)

// SessionRepo 会话仓库
type SessionRepo struct {
	db *gorm.DB
}

// NewSessionRepo 创建会话仓库, db 可以是事务句柄
func NewSessionRepo(db *gorm.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create 创建会话并立即取得自增 id
func (r *SessionRepo) Create(ctx context.Context, session *model.ChatSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// FindByID 按 id 查询
func (r *SessionRepo) FindByID(ctx context.Context, id uint) (*model.ChatSession, error) {
	var session model.ChatSession
	if err := r.db.WithContext(ctx).First(&session, id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// FindByIDAndUser 查询属于指定用户的会话
func (r *SessionRepo) FindByIDAndUser(ctx context.Context, id, userID uint) (*model.ChatSession, error) {
	var session model.ChatSession
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// ListByUser 用户的全部会话
func (r *SessionRepo) ListByUser(ctx context.Context, userID uint) ([]model.ChatSession, error) {
	sessions := make([]model.ChatSession, 0)
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// UpdateSubject 覆盖会话标题
func (r *SessionRepo) UpdateSubject(ctx context.Context, id uint, subject string) error {
	return r.db.WithContext(ctx).Model(&model.ChatSession{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"subject":    subject,
			"updated_at": time.Now().UTC(),
		}).Error
}
