package agent

import (
	"context"
	"fmt"

	xerrors "APE-Core/internal/errors"
)

// Request 描述一次发给智能体的请求。Action 表示要执行的动作，
// Params 携带动作相关的参数，Metadata 由编排器在派发前注入。
type Request struct {
	Action   string         `json:"action"`
	Params   map[string]any `json:"params,omitempty"`
	Metadata map[string]any `json:"_metadata,omitempty"`
}

// Response 是智能体处理请求后的统一回复结构。
// Success 为 false 时 Error 描述失败原因，否则 Data 携带结果。
type Response struct {
	Success  bool           `json:"success"`
	Data     any            `json:"data,omitempty"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"_metadata,omitempty"`
}

// Agent 定义了所有服务适配器需要满足的能力契约。
// Process 不返回 Go error：任何失败都编码在 Response 中，
// 由调用方检查 Success 字段。
type Agent interface {
	Process(ctx context.Context, req Request) Response
	Capabilities() []string
}

// Succeed 构造一个成功回复。
func Succeed(data any) Response {
	return Response{Success: true, Data: data}
}

// Fail 构造一个失败回复。
func Fail(format string, args ...any) Response {
	return Response{Success: false, Error: fmt.Sprintf(format, args...)}
}

const (
	CodeAgentNotFound xerrors.Code = "AGENT_NOT_FOUND"
	CodeAgentConflict xerrors.Code = "AGENT_CONFLICT"
)

var (
	// ErrAgentNotFound 表示指定名称的智能体未注册。
	ErrAgentNotFound = xerrors.New(CodeAgentNotFound, "agent not found")
	// ErrAgentConflict 表示名称已被另一个实例占用。
	ErrAgentConflict = xerrors.New(CodeAgentConflict, "agent name already registered", xerrors.WithSeverity(xerrors.SeverityWarning))
)

func init() {
	xerrors.Register(CodeAgentNotFound, xerrors.Attributes{
		Message:   "agent not found",
		Severity:  xerrors.SeverityInfo,
		Retryable: false,
		Alert:     false,
	})
	xerrors.Register(CodeAgentConflict, xerrors.Attributes{
		Message:   "agent name already registered",
		Severity:  xerrors.SeverityWarning,
		Retryable: false,
		Alert:     false,
	})
}
