package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"typhoon/internal/model"
	"typhoon/internal/repository"
)

// 附在用户消息后的命名指令 (泰语)
const namerFollowUp = "ช่วยคิดชื่อเท่ห์จากข้อความข้างต้นหน่อยนะครับ"

// SessionNamerLLM 会话命名所需的生成入口
type SessionNamerLLM interface {
	NameSession(ctx context.Context, turns []model.Turn, m model.ModelName, params map[string]any) (string, error)
}

// Namer 后台会话命名任务
// 消息登记提交后调度, 与请求生命周期无关: 调度后没有取消钩子, 任务
// 自己开独立事务写回标题. 失败只进日志, 不重试, 不影响已提交的登记.
type Namer struct {
	db      *gorm.DB
	chat    SessionNamerLLM
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewNamer 创建命名任务执行器
func NewNamer(db *gorm.DB, chat SessionNamerLLM) *Namer {
	return &Namer{
		db:      db,
		chat:    chat,
		timeout: time.Minute,
	}
}

// Schedule 提交一次命名任务并立即返回
func (n *Namer) Schedule(shortname, userMessage string, sessionID uint) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Uint("session_id", sessionID).
					Msg("session namer panicked")
			}
		}()
		n.run(shortname, userMessage, sessionID)
	}()
}

// Wait 等待在途任务结束 (用于优雅停机)
func (n *Namer) Wait() {
	n.wg.Wait()
}

func (n *Namer) run(shortname, userMessage string, sessionID uint) {
	log.Info().Uint("session_id", sessionID).Msg("generating session name in background task")

	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	turns := []model.Turn{{
		Role:    string(model.RoleUser),
		Content: userMessage + "\n" + namerFollowUp,
	}}

	title, err := n.chat.NameSession(ctx, turns, model.ModelName{Shortname: shortname}, nil)
	if err != nil {
		log.Error().Err(err).Uint("session_id", sessionID).
			Msg("session naming failed, placeholder subject kept")
		return
	}

	// 写回标题用新开的事务, 不复用请求侧的事务作用域
	err = n.db.Transaction(func(tx *gorm.DB) error {
		sessions := repository.NewSessionRepo(tx)
		if _, err := sessions.FindByID(ctx, sessionID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// 会话已被删除, 放弃命名
				log.Debug().Uint("session_id", sessionID).Msg("session gone before naming, skipping")
				return nil
			}
			return err
		}
		return sessions.UpdateSubject(ctx, sessionID, title)
	})
	if err != nil {
		log.Error().Err(err).Uint("session_id", sessionID).Msg("failed to update session subject")
		return
	}

	log.Debug().Str("subject", title).Uint("session_id", sessionID).Msg("session name generated")
	log.Info().Uint("session_id", sessionID).Msg("session name updated in database")
}
