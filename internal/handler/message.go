package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"typhoon/internal/model"
	httputil "typhoon/internal/pkg/http"
	"typhoon/internal/service"
)

// MessageHandler 消息登记与评价接口
type MessageHandler struct {
	registerSvc *service.RegisterService
}

// NewMessageHandler 创建消息处理器
func NewMessageHandler(registerSvc *service.RegisterService) *MessageHandler {
	return &MessageHandler{registerSvc: registerSvc}
}

// Register 登记消息
// POST /api/messages/register/v1
func (h *MessageHandler) Register(c *gin.Context) {
	var req model.RegisterMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httputil.NewErrorResponse(40001, "Invalid request body", err.Error()))
		return
	}

	result, err := h.registerSvc.RegisterMessage(c.Request.Context(), &req)
	if err != nil {
		status, resp := registerError(err)
		c.JSON(status, resp)
		return
	}

	message := "Message registered successfully"
	if req.MessageID != 0 {
		message = "Re-recorded message successfully"
	}
	c.JSON(http.StatusOK, model.RegisterMessageResponse{
		Message:   message,
		SessionID: result.SessionID,
		MessageID: result.MessageID,
	})
}

// Preference 记录消息评价
// PATCH /api/messages/preference/v1
func (h *MessageHandler) Preference(c *gin.Context) {
	var req model.PreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httputil.NewErrorResponse(40001, "Invalid request body", err.Error()))
		return
	}

	if err := h.registerSvc.SetPreference(c.Request.Context(), req.MessageID, req.Preference); err != nil {
		status, resp := registerError(err)
		c.JSON(status, resp)
		return
	}

	c.JSON(http.StatusOK, model.PreferenceResponse{
		Message:   "Preference submitted successfully",
		MessageID: req.MessageID,
	})
}

// registerError 业务错误到响应的映射
func registerError(err error) (int, *httputil.ErrorResponse) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, httputil.NewErrorResponse(40402, "User not found")
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound, httputil.NewErrorResponse(40403, "Chat session not found")
	case errors.Is(err, service.ErrMessageNotFound):
		return http.StatusNotFound, httputil.NewErrorResponse(40404, "Message not found")
	default:
		return http.StatusInternalServerError, httputil.NewErrorResponse(50001, "Internal Server Error", err.Error())
	}
}
