package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Role 消息角色
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Preference 消息评价
type Preference string

const (
	PreferenceLike    Preference = "like"
	PreferenceDislike Preference = "dislike"
	PreferenceNA      Preference = "na"
)

// PlaceholderSubject 新会话的占位标题，后台命名任务完成后被覆盖
const PlaceholderSubject = "New chat session"

// JSONMap JSON 列的通用映射类型
type JSONMap map[string]any

// Value implements driver.Valuer
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner
func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for JSONMap")
	}
	return json.Unmarshal(data, m)
}

// User 用户
type User struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email     string    `gorm:"type:text;uniqueIndex" json:"email"`
	FullName  string    `gorm:"type:text" json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 表名
func (User) TableName() string { return "users" }

// ChatSession 聊天会话
type ChatSession struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Subject   string    `gorm:"type:text" json:"subject"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 表名
func (ChatSession) TableName() string { return "chat_sessions" }

// Message 消息，TotalTokens/TokenSpeed 为流式生成时记录的一次性快照
type Message struct {
	ID            uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	ChatSessionID uint       `gorm:"index;not null" json:"chat_session_id"`
	Message       string     `gorm:"type:text" json:"message"`
	Role          Role       `gorm:"type:varchar(16)" json:"role"`
	TotalTokens   int        `json:"total_tokens"`
	TokenSpeed    float64    `gorm:"type:decimal(10,2)" json:"token_speed"`
	Preference    Preference `gorm:"type:varchar(16);default:na" json:"preference"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName 表名
func (Message) TableName() string { return "messages" }

// LLM 模型注册表，params 为每个采样选项的 {min,max,default} 描述
type LLM struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Shortname string    `gorm:"type:text" json:"shortname"`
	Fullname  string    `gorm:"type:text" json:"fullname"`
	Params    JSONMap   `gorm:"type:json" json:"params"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 表名
func (LLM) TableName() string { return "llms" }
