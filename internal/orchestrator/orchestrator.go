package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"APE-Core/internal/agent"
	xerrors "APE-Core/internal/errors"
	"APE-Core/internal/event"
	"APE-Core/internal/llm"
	"APE-Core/internal/storage/mysql"
	"APE-Core/internal/workflow"
	"APE-Core/pkg/logger"
)

// Orchestrator 聚合执行者注册表、工作流注册表、执行引擎与规划器,
// 是库的统一入口。所有状态都归属于实例本身,便于并行创建与测试。
type Orchestrator struct {
	agents     *agent.Registry
	workflows  *workflow.Registry
	engine     *Engine
	planner    *Planner
	repository mysql.ExecutionRepository
	events     event.Publisher
	llmClient  llm.Client
	sessionID  string
}

// Option 配置编排器的可选依赖。
type Option func(*Orchestrator)

// WithWorkflowStore 指定工作流存储后端,默认使用内存存储。
func WithWorkflowStore(store workflow.Store) Option {
	return func(o *Orchestrator) { o.workflows = workflow.NewRegistry(store) }
}

// WithLLMClient 指定规划器使用的 LLM 客户端。
func WithLLMClient(client llm.Client) Option {
	return func(o *Orchestrator) { o.llmClient = client }
}

// WithRepository 指定执行历史仓库。
func WithRepository(repo mysql.ExecutionRepository) Option {
	return func(o *Orchestrator) { o.repository = repo }
}

// WithPublisher 指定执行事件发布器。
func WithPublisher(pub event.Publisher) Option {
	return func(o *Orchestrator) { o.events = pub }
}

// New 创建编排器实例。
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		agents:    agent.NewRegistry(),
		workflows: workflow.NewRegistry(nil),
		events:    event.NopPublisher{},
		sessionID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.engine = NewEngine(o.agents, o.workflows,
		WithExecutionRepository(o.repository),
		WithEventPublisher(o.events),
		WithSessionID(o.sessionID),
	)
	o.planner = NewPlanner(o.llmClient, o.agents, o.workflows, o.events)
	return o
}

// SessionID 返回本实例的会话 ID。
func (o *Orchestrator) SessionID() string { return o.sessionID }

// RegisterAgent 注册一个执行者。
func (o *Orchestrator) RegisterAgent(name string, ag agent.Agent) error {
	return o.agents.Register(name, ag)
}

// UnregisterAgent 注销执行者,返回是否存在。
func (o *Orchestrator) UnregisterAgent(name string) bool {
	return o.agents.Unregister(name)
}

// RegisteredAgents 返回已注册执行者的名称列表。
func (o *Orchestrator) RegisteredAgents() []string {
	return o.agents.Names()
}

// ExecuteAgent 直接调用单个执行者,绕过工作流定义。
func (o *Orchestrator) ExecuteAgent(ctx context.Context, name string, req agent.Request) agent.Response {
	ag, ok := o.agents.Get(name)
	if !ok {
		return agent.Fail("agent not found: %s", name)
	}
	if req.Metadata == nil {
		req.Metadata = map[string]any{}
	}
	req.Metadata["session_id"] = o.sessionID
	req.Metadata["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	req.Metadata["agent"] = name
	return o.engine.dispatch(ctx, ag, req)
}

// RegisterWorkflow 注册或替换一个工作流定义。
func (o *Orchestrator) RegisterWorkflow(ctx context.Context, id string, steps []workflow.StepSpec, metadata map[string]any) error {
	return o.workflows.Register(ctx, id, steps, metadata)
}

// RemoveWorkflow 删除工作流,返回是否存在。
func (o *Orchestrator) RemoveWorkflow(ctx context.Context, id string) (bool, error) {
	return o.workflows.Remove(ctx, id)
}

// WorkflowIDs 返回所有已注册工作流的 ID。
func (o *Orchestrator) WorkflowIDs(ctx context.Context) ([]string, error) {
	return o.workflows.IDs(ctx)
}

// GetWorkflow 返回工作流定义的副本。
func (o *Orchestrator) GetWorkflow(ctx context.Context, id string) (*workflow.Definition, error) {
	return o.workflows.Get(ctx, id)
}

// ExecuteWorkflow 运行工作流,返回值始终非 nil。
func (o *Orchestrator) ExecuteWorkflow(ctx context.Context, id string, input map[string]any, callerCtx map[string]any) *ExecutionResult {
	return o.engine.Execute(ctx, id, input, callerCtx)
}

// PlanWorkflow 将自然语言请求规划为工作流并注册。
func (o *Orchestrator) PlanWorkflow(ctx context.Context, query string, available []string) (*PlanResult, error) {
	return o.planner.Plan(ctx, query, available)
}

// ExecutionHistory 返回最近的执行记录,未配置仓库时返回错误。
func (o *Orchestrator) ExecutionHistory(ctx context.Context, limit int) ([]mysql.ExecutionRecord, error) {
	if o.repository == nil {
		return nil, xerrors.New(xerrors.CodeStorageFailure, "未配置执行历史仓库")
	}
	return o.repository.ListLatest(ctx, limit)
}

// Close 释放编排器持有的外部资源。
func (o *Orchestrator) Close() error {
	var firstErr error
	if err := o.workflows.Close(); err != nil {
		firstErr = err
	}
	if o.repository != nil {
		if err := o.repository.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if o.events != nil {
		if err := o.events.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		logger.L().Warn("关闭编排器时出现错误", "error", firstErr)
	}
	return firstErr
}
