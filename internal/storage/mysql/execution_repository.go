package mysql

import "context"

// ExecutionRecord 表示一次工作流执行的落库结构。
// Results 与 Context 以 JSON 文本保存，读取方按需解析。
type ExecutionRecord struct {
	ExecutionID string
	WorkflowID  string
	Success     bool
	StepCount   int
	Results     string
	Context     string
	Error       string
	CreatedAt   int64
}

// ExecutionRepository 抽象执行历史的持久化接口。
// 引擎在每次执行结束后尽力写入一条记录，写入失败不影响执行结果。
type ExecutionRepository interface {
	Save(ctx context.Context, record ExecutionRecord) error
	ListLatest(ctx context.Context, limit int) ([]ExecutionRecord, error)
	Close() error
}
