package model

// RegisterMessageResponse 消息登记响应
type RegisterMessageResponse struct {
	Message   string `json:"message"`
	SessionID uint   `json:"session_id"`
	MessageID uint   `json:"message_id"`
}

// RegisterUserResponse 用户登记响应
type RegisterUserResponse struct {
	Message string `json:"message"`
	UserID  uint   `json:"user_id"`
	Email   string `json:"email"`
}

// PreferenceResponse 消息评价响应
type PreferenceResponse struct {
	Message   string `json:"message"`
	MessageID uint   `json:"message_id"`
}
