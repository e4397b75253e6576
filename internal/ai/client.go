package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"typhoon/internal/config"
	"typhoon/internal/model"
)

// Client 单个模型配置下的 LLM 连接
// Invoke 用于短的一次性生成 (如会话命名), Stream 用于对话响应
type Client interface {
	Invoke(ctx context.Context, systemPrompt string, turns []model.Turn) (string, error)
	Stream(ctx context.Context, systemPrompt string, turns []model.Turn) (*schema.StreamReader[*schema.Message], error)
}

type einoClient struct {
	chatModel einomodel.BaseChatModel
}

// newEinoClient 基于 eino 的 OpenAI 兼容 ChatModel 创建客户端
func newEinoClient(ctx context.Context, cfg *config.AIConfig, shortname string, params map[string]any) (Client, error) {
	modelCfg := &openai.ChatModelConfig{
		Model:  shortname,
		APIKey: cfg.APIKey,
	}
	if cfg.Endpoint != "" {
		modelCfg.BaseURL = cfg.Endpoint
	}

	// 规整后的采样参数映射到客户端契约
	if v, ok := floatParam(params, "temperature"); ok {
		temp := float32(v)
		modelCfg.Temperature = &temp
	}
	if v, ok := floatParam(params, "top_p"); ok {
		topP := float32(v)
		modelCfg.TopP = &topP
	}
	if v, ok := floatParam(params, "max_tokens"); ok {
		maxTokens := int(v)
		modelCfg.MaxTokens = &maxTokens
	}

	chatModel, err := openai.NewChatModel(ctx, modelCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model for %s: %w", shortname, err)
	}

	return &einoClient{chatModel: chatModel}, nil
}

// Invoke 同步生成
func (c *einoClient) Invoke(ctx context.Context, systemPrompt string, turns []model.Turn) (string, error) {
	resp, err := c.chatModel.Generate(ctx, buildMessages(systemPrompt, turns))
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Stream 流式生成
func (c *einoClient) Stream(ctx context.Context, systemPrompt string, turns []model.Turn) (*schema.StreamReader[*schema.Message], error) {
	return c.chatModel.Stream(ctx, buildMessages(systemPrompt, turns))
}

// buildMessages 将对话轮次转换为 eino 消息, user 之外的角色按助手消息处理
func buildMessages(systemPrompt string, turns []model.Turn) []*schema.Message {
	messages := make([]*schema.Message, 0, len(turns)+1)
	messages = append(messages, schema.SystemMessage(systemPrompt))
	for _, turn := range turns {
		if turn.Role == string(model.RoleUser) {
			messages = append(messages, schema.UserMessage(turn.Content))
		} else {
			messages = append(messages, schema.AssistantMessage(turn.Content, nil))
		}
	}
	return messages
}

// floatParam 读取数值参数, JSON 解码后数值为 float64
func floatParam(params map[string]any, key string) (float64, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
