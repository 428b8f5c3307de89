package llm

import "context"

// Role 表示对话消息的角色。
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message 是发送给大模型的一条角色化消息。
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Usage 记录一次调用消耗的 token 数量。
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Reply 是大模型返回的回复。Message 为模型生成的内容，
// Usage 在服务端提供时附带。
type Reply struct {
	Message Message `json:"message"`
	Usage   *Usage  `json:"usage,omitempty"`
}

// Client 定义了调用大模型的统一接口。规划器只依赖这一契约，
// 不关心底层的具体服务商。
type Client interface {
	Chat(ctx context.Context, messages []Message) (*Reply, error)
}
