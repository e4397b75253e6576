package model

// Turn 一轮对话输入
type Turn struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content"`
}

// ModelName 模型路由键: shortname 路由 LLM 客户端, fullname 路由分词器
type ModelName struct {
	Fullname  string `json:"fullname" binding:"required"`
	Shortname string `json:"shortname" binding:"required"`
}

// StreamChunk 流式响应的一段增量及其累计账目
type StreamChunk struct {
	Content    string  `json:"content"`
	Tokens     int     `json:"tokens"`
	TokenSpeed float64 `json:"tokenSpeed"`
	// Done 标记上游流正常耗尽，仅用于内部收尾，不序列化
	Done bool `json:"-"`
}
