// Package echo 提供一个无外部依赖的执行者,用于演示与联调。
package echo

import (
	"context"
	"time"

	"APE-Core/internal/agent"
	"APE-Core/internal/agents"
)

// Agent 原样返回收到的参数。
type Agent struct{}

// New 创建 echo 执行者。
func New() *Agent { return &Agent{} }

// Capabilities 返回支持的操作列表。
func (a *Agent) Capabilities() []string {
	return []string{"echo", "noop", "fail", "sleep"}
}

// Process 按 action 分发请求。
func (a *Agent) Process(ctx context.Context, req agent.Request) agent.Response {
	switch req.Action {
	case "echo":
		return agent.Succeed(req.Params)
	case "noop":
		return agent.Succeed("ok")
	case "fail":
		return agent.Fail("%s", agents.StringParamDefault(req.Params, "message", "requested failure"))
	case "sleep":
		duration := time.Duration(agents.IntParam(req.Params, "millis", 100)) * time.Millisecond
		select {
		case <-ctx.Done():
			return agent.Fail("interrupted: %v", ctx.Err())
		case <-time.After(duration):
			return agent.Succeed(map[string]any{"slept_ms": duration.Milliseconds()})
		}
	default:
		return agent.Fail("unsupported action: %s", req.Action)
	}
}

var _ agent.Agent = (*Agent)(nil)
