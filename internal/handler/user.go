package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"typhoon/internal/model"
	httputil "typhoon/internal/pkg/http"
	"typhoon/internal/repository"
	"typhoon/internal/service"
)

// UserHandler 用户登记与历史查询接口
type UserHandler struct {
	registerSvc *service.RegisterService
	sessionRepo *repository.SessionRepo
	messageRepo *repository.MessageRepo
	userRepo    *repository.UserRepo
}

// NewUserHandler 创建用户处理器
func NewUserHandler(registerSvc *service.RegisterService, userRepo *repository.UserRepo,
	sessionRepo *repository.SessionRepo, messageRepo *repository.MessageRepo,
) *UserHandler {
	return &UserHandler{
		registerSvc: registerSvc,
		sessionRepo: sessionRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
	}
}

// Register 登记用户 (幂等)
// POST /api/users/register/v1
func (h *UserHandler) Register(c *gin.Context) {
	var req model.RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httputil.NewErrorResponse(40001, "Invalid request body", err.Error()))
		return
	}

	user, existing, err := h.registerSvc.RegisterUser(c.Request.Context(), req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, httputil.NewErrorResponse(50001, "Failed to register user", err.Error()))
		return
	}

	message := "User registered successfully"
	if existing {
		message = "User already registered"
	}
	c.JSON(http.StatusOK, model.RegisterUserResponse{
		Message: message,
		UserID:  user.ID,
		Email:   user.Email,
	})
}

// ChatSessions 用户的会话列表
// GET /api/users/:email/chat_sessions/v1
// 未注册用户返回空列表而不是 404: 首次登记前查历史是正常路径
func (h *UserHandler) ChatSessions(c *gin.Context) {
	email := c.Param("email")

	user, err := h.userRepo.FindByEmail(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, []model.ChatSession{})
			return
		}
		log.Error().Err(err).Str("email", email).Msg("failed to look up user")
		c.JSON(http.StatusInternalServerError, httputil.NewErrorResponse(50001, "Internal Server Error", err.Error()))
		return
	}

	sessions, err := h.sessionRepo.ListByUser(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, httputil.NewErrorResponse(50001, "Internal Server Error", err.Error()))
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// SessionMessages 会话的消息列表
// GET /api/chat_sessions/:sessionId/messages/v1
func (h *UserHandler) SessionMessages(c *gin.Context) {
	sessionID, err := strconv.ParseUint(c.Param("sessionId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.NewErrorResponse(40002, "Invalid session id", err.Error()))
		return
	}

	messages, err := h.messageRepo.ListBySession(c.Request.Context(), uint(sessionID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, httputil.NewErrorResponse(50001, "Internal Server Error", err.Error()))
		return
	}
	c.JSON(http.StatusOK, messages)
}
