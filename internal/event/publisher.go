package event

import (
	"context"
	"time"
)

// 执行事件类型。
const (
	TypeExecutionFinished = "execution.finished"
	TypeWorkflowPlanned   = "workflow.planned"
)

// Event 描述编排引擎对外广播的一次事件。
type Event struct {
	Type        string `json:"type"`
	ExecutionID string `json:"execution_id,omitempty"`
	WorkflowID  string `json:"workflow_id"`
	SessionID   string `json:"session_id,omitempty"`
	Success     bool   `json:"success"`
	StepCount   int    `json:"step_count,omitempty"`
	Error       string `json:"error,omitempty"`
	OccurredAt  int64  `json:"occurred_at"`
}

// Publisher 将执行事件投递给下游消费者。
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// Stamp 补齐事件的发生时间。
func Stamp(evt Event) Event {
	if evt.OccurredAt == 0 {
		evt.OccurredAt = time.Now().Unix()
	}
	return evt
}

// NopPublisher 丢弃所有事件，用于未配置消息队列的场景。
type NopPublisher struct{}

// Publish 丢弃事件。
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Close 无需操作。
func (NopPublisher) Close() error { return nil }

var _ Publisher = NopPublisher{}
