package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"typhoon/internal/model"
	httputil "typhoon/internal/pkg/http"
	"typhoon/internal/repository"
	"typhoon/internal/service"
)

// LLMHandler LLM 相关接口: 会话命名 / 流式对话 / 模型参数列表
type LLMHandler struct {
	chatSvc *service.ChatService
	llmRepo *repository.LLMRepo
}

// NewLLMHandler 创建 LLM 处理器
func NewLLMHandler(chatSvc *service.ChatService, llmRepo *repository.LLMRepo) *LLMHandler {
	return &LLMHandler{
		chatSvc: chatSvc,
		llmRepo: llmRepo,
	}
}

// SessionName 生成会话标题
// POST /api/llm/sessionname/v1
func (h *LLMHandler) SessionName(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httputil.NewErrorResponse(40001, "Invalid request body", err.Error()))
		return
	}

	title, err := h.chatSvc.NameSession(c.Request.Context(), req.Messages, req.Model, req.Params)
	if err != nil {
		c.JSON(http.StatusInternalServerError, httputil.NewErrorResponse(50001, "Failed to generate session name", err.Error()))
		return
	}

	c.String(http.StatusOK, title)
}

// Chat 流式对话 (SSE)
// POST /api/llm/chat/v1
// 每个事件是 {content, tokens, tokenSpeed} 的 JSON; 生成正常完成时追加
// 字面量 "done" 作为收尾事件, 上游失败则流在没有收尾事件的情况下结束
func (h *LLMHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httputil.NewErrorResponse(40001, "Invalid request body", err.Error()))
		return
	}

	ch, err := h.chatSvc.Chat(c.Request.Context(), req.Messages, req.Model, req.Params)
	if err != nil {
		c.JSON(http.StatusInternalServerError, httputil.NewErrorResponse(50002, "Failed to start chat stream", err.Error()))
		return
	}

	// 设置 SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		chunk, ok := <-ch
		if !ok {
			// 流在收尾事件之前断开, 由消费者判定为失败的生成
			return false
		}
		if chunk.Done {
			c.SSEvent("message", "done")
			return false
		}
		c.SSEvent("message", chunk)
		return true
	})
}

// Params 模型注册表列表
// GET /api/llm/params/v1
func (h *LLMHandler) Params(c *gin.Context) {
	llms, err := h.llmRepo.List(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list llm registry")
		c.JSON(http.StatusInternalServerError, httputil.NewErrorResponse(50003, "Failed to list models", err.Error()))
		return
	}

	if len(llms) == 0 {
		c.JSON(http.StatusNotFound, httputil.NewErrorResponse(40401, "No LLMs found"))
		return
	}

	c.JSON(http.StatusOK, llms)
}
