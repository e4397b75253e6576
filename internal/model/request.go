package model

// ChatRequest 对话/命名请求体
type ChatRequest struct {
	Messages []Turn         `json:"messages" binding:"required"`
	Model    ModelName      `json:"model" binding:"required"`
	Params   map[string]any `json:"params"`
}

// RegisterMessageRequest 消息登记请求体
// 字段命名与前端约定保持一致: tokenSpeed 为驼峰, session_id/message_id 为下划线
type RegisterMessageRequest struct {
	Email      string    `json:"email" binding:"required"`
	Message    string    `json:"message"`
	Tokens     int       `json:"tokens"`
	TokenSpeed float64   `json:"tokenSpeed"`
	Role       Role      `json:"role" binding:"required,oneof=user bot"`
	SessionID  uint      `json:"session_id"`
	MessageID  uint      `json:"message_id"`
	Model      ModelName `json:"model" binding:"required"`
}

// RegisterUserRequest 用户登记请求体
type RegisterUserRequest struct {
	Email string `json:"email" binding:"required"`
}

// PreferenceRequest 消息评价请求体
type PreferenceRequest struct {
	MessageID  uint       `json:"message_id" binding:"required"`
	Preference Preference `json:"preference" binding:"required,oneof=like dislike na"`
}
