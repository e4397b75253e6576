package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"typhoon/internal/model"
	"typhoon/internal/repository"
)

// 登记接口的业务错误, handler 层映射为 404
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrSessionNotFound = errors.New("chat session not found")
	ErrMessageNotFound = errors.New("message not found")
)

// Scheduler 后台任务提交口, 提交后立即返回
type Scheduler interface {
	Schedule(shortname, userMessage string, sessionID uint)
}

// RegisterResult 消息登记结果
type RegisterResult struct {
	SessionID uint
	MessageID uint
}

// RegisterService 登记服务 - 会话/消息写入的事务边界
// 每次调用要么全部落库要么全不落库; 流式路径不经过这里, 持久化总是显式调用
type RegisterService struct {
	db    *gorm.DB
	namer Scheduler
}

// NewRegisterService 创建登记服务
func NewRegisterService(db *gorm.DB, namer Scheduler) *RegisterService {
	return &RegisterService{db: db, namer: namer}
}

// RegisterMessage 登记一条消息
// 带 message_id 走改写路径: 覆盖已有消息的文本与账目, 不触碰会话.
// 不带 message_id 走追加路径: 解析用户与会话, 必要时新建会话并在提交后
// 调度一次且仅一次的后台命名任务.
func (s *RegisterService) RegisterMessage(ctx context.Context, req *model.RegisterMessageRequest) (*RegisterResult, error) {
	now := time.Now().UTC()

	var result RegisterResult
	var newSessionID uint

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := repository.NewUserRepo(tx)
		sessions := repository.NewSessionRepo(tx)
		messages := repository.NewMessageRepo(tx)

		user, err := users.FindByEmail(ctx, req.Email)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		// 改写路径
		if req.MessageID != 0 {
			msg, err := messages.FindByID(ctx, req.MessageID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrMessageNotFound
				}
				return err
			}

			msg.Message = req.Message
			msg.TotalTokens = req.Tokens
			msg.TokenSpeed = req.TokenSpeed
			msg.UpdatedAt = now
			if err := messages.Save(ctx, msg); err != nil {
				return err
			}

			result = RegisterResult{SessionID: msg.ChatSessionID, MessageID: msg.ID}
			return nil
		}

		// 追加路径: 解析或新建会话
		var session *model.ChatSession
		if req.SessionID != 0 {
			session, err = sessions.FindByIDAndUser(ctx, req.SessionID, user.ID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrSessionNotFound
				}
				return err
			}
		} else {
			session = &model.ChatSession{
				UserID:    user.ID,
				Subject:   model.PlaceholderSubject,
				CreatedAt: now,
				UpdatedAt: now,
			}
			// 先落会话拿到 id, 消息必须引用已存在的会话
			if err := sessions.Create(ctx, session); err != nil {
				return err
			}
			newSessionID = session.ID
		}

		msg := &model.Message{
			ChatSessionID: session.ID,
			Message:       req.Message,
			Role:          req.Role,
			TotalTokens:   req.Tokens,
			TokenSpeed:    req.TokenSpeed,
			Preference:    model.PreferenceNA,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := messages.Create(ctx, msg); err != nil {
			return err
		}

		result = RegisterResult{SessionID: session.ID, MessageID: msg.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 提交成功后才调度命名任务, 每个新会话恰好一次, 不阻塞响应
	if newSessionID != 0 {
		s.namer.Schedule(req.Model.Shortname, req.Message, newSessionID)
	}

	return &result, nil
}

// RegisterUser 登记用户, 幂等: 已存在时返回原有 id
func (s *RegisterService) RegisterUser(ctx context.Context, email string) (*model.User, bool, error) {
	var user *model.User
	existing := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := repository.NewUserRepo(tx)

		found, err := users.FindByEmail(ctx, email)
		if err == nil {
			user = found
			existing = true
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := time.Now().UTC()
		user = &model.User{Email: email, CreatedAt: now, UpdatedAt: now}
		return users.Create(ctx, user)
	})
	if err != nil {
		return nil, false, err
	}

	if !existing {
		log.Info().Str("email", email).Uint("user_id", user.ID).Msg("registered new user")
	}
	return user, existing, nil
}

// SetPreference 记录消息评价
func (s *RegisterService) SetPreference(ctx context.Context, messageID uint, pref model.Preference) error {
	messages := repository.NewMessageRepo(s.db)
	if err := messages.UpdatePreference(ctx, messageID, pref); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMessageNotFound
		}
		return err
	}
	return nil
}
