package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"typhoon/internal/ai"
	"typhoon/internal/model"
	"typhoon/internal/tokenizer"
)

// 固定系统提示词 (泰语): 会话命名与通用对话
const (
	sessionNamePrompt = "สรุปเนื้อหาของข้อความที่ได้รับ ให้เป็นหัวข้อของการสนทนาสั้นกระชับ ไม่เกิน 5 คำ"
	generalPrompt     = "ตอบข้อความจากบทสนทนาที่ได้รับ โดยให้ตอบเป็นภาษาไทยหรืออังกฤษขึ้นอยู่กับภาษาที่ผู้ใช้งานถาม"
)

// ClientPool LLM 客户端来源
type ClientPool interface {
	Get(ctx context.Context, shortname string, params map[string]any) (ai.Client, error)
}

// ChatService 对话编排 - 单次请求内串起分词器/客户端/账目流
// 调用之间不共享可变状态
type ChatService struct {
	pool       ClientPool
	tokenizers *tokenizer.Cache
}

// NewChatService 创建对话服务
func NewChatService(pool ClientPool, tokenizers *tokenizer.Cache) *ChatService {
	return &ChatService{
		pool:       pool,
		tokenizers: tokenizers,
	}
}

// NameSession 让模型把首轮交流总结为一个短标题
func (s *ChatService) NameSession(ctx context.Context, turns []model.Turn, m model.ModelName, params map[string]any) (string, error) {
	normalized := ai.NormalizeParams(params)

	client, err := s.pool.Get(ctx, m.Shortname, normalized)
	if err != nil {
		return "", err
	}

	title, err := client.Invoke(ctx, sessionNamePrompt, turns)
	if err != nil {
		log.Error().Err(err).Str("model", m.Shortname).Msg("session naming failed")
		return "", err
	}
	return title, nil
}

// Chat 流式对话: 规整参数 -> 取分词器与客户端 -> 开流并接上账目
// 消费者取消 ctx 时停止拉取并释放上游连接; 流式路径不写任何持久状态
func (s *ChatService) Chat(ctx context.Context, turns []model.Turn, m model.ModelName, params map[string]any) (<-chan model.StreamChunk, error) {
	normalized := ai.NormalizeParams(params)

	log.Debug().
		Str("shortname", m.Shortname).
		Str("fullname", m.Fullname).
		Interface("params", normalized).
		Int("turns", len(turns)).
		Msg("starting chat stream")

	tok := s.tokenizers.Get(m.Fullname)
	if tok == nil {
		log.Debug().Str("model", m.Fullname).Msg("no tokenizer, token counts degrade to zero")
	}

	client, err := s.pool.Get(ctx, m.Shortname, normalized)
	if err != nil {
		return nil, err
	}

	sr, err := client.Stream(ctx, generalPrompt, turns)
	if err != nil {
		return nil, err
	}

	return accountStream(ctx, sr, tok), nil
}
