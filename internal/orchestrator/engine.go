package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"APE-Core/internal/agent"
	"APE-Core/internal/event"
	"APE-Core/internal/storage/mysql"
	"APE-Core/internal/workflow"
	"APE-Core/pkg/logger"
)

// StepResult 记录单个步骤的执行结果。
type StepResult struct {
	Step    int    `json:"step"`
	Agent   string `json:"agent"`
	Action  string `json:"action"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ExecutionResult 汇总一次工作流执行的整体结果。
type ExecutionResult struct {
	Success     bool           `json:"success"`
	ExecutionID string         `json:"execution_id"`
	WorkflowID  string         `json:"workflow_id"`
	Error       string         `json:"error,omitempty"`
	Results     []StepResult   `json:"results"`
	Context     map[string]any `json:"context"`
}

// Engine 按定义顺序驱动工作流中的各个步骤。
type Engine struct {
	agents     *agent.Registry
	workflows  *workflow.Registry
	repository mysql.ExecutionRepository
	events     event.Publisher
	sessionID  string
}

// EngineOption 配置执行引擎的可选依赖。
type EngineOption func(*Engine)

// WithExecutionRepository 设置执行历史仓库。
func WithExecutionRepository(repo mysql.ExecutionRepository) EngineOption {
	return func(e *Engine) { e.repository = repo }
}

// WithEventPublisher 设置执行事件发布器。
func WithEventPublisher(pub event.Publisher) EngineOption {
	return func(e *Engine) { e.events = pub }
}

// WithSessionID 固定会话 ID，主要用于测试。
func WithSessionID(id string) EngineOption {
	return func(e *Engine) { e.sessionID = id }
}

// NewEngine 创建执行引擎。
func NewEngine(agents *agent.Registry, workflows *workflow.Registry, opts ...EngineOption) *Engine {
	e := &Engine{
		agents:    agents,
		workflows: workflows,
		events:    event.NopPublisher{},
		sessionID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SessionID 返回引擎的会话 ID。
func (e *Engine) SessionID() string { return e.sessionID }

// Execute 运行指定工作流。返回值始终非 nil，失败细节体现在结果中。
func (e *Engine) Execute(ctx context.Context, workflowID string, input map[string]any, callerCtx map[string]any) *ExecutionResult {
	executionID := uuid.NewString()
	result := &ExecutionResult{
		ExecutionID: executionID,
		WorkflowID:  workflowID,
		Results:     []StepResult{},
		Context:     map[string]any{},
	}

	def, err := e.workflows.Get(ctx, workflowID)
	if err != nil {
		result.Error = fmt.Sprintf("workflow not found: %s", workflowID)
		logger.L().Warn("工作流不存在", "workflow_id", workflowID, "execution_id", executionID)
		e.finish(ctx, result)
		return result
	}

	// 定义可能绕过注册表直接写入存储,执行前重新校验。
	if err := def.Validate(); err != nil {
		result.Error = fmt.Sprintf("invalid workflow definition: %v", err)
		logger.L().Error("工作流定义未通过校验",
			"workflow_id", workflowID,
			"execution_id", executionID,
			"error", err,
		)
		e.finish(ctx, result)
		return result
	}

	execCtx := map[string]any{}
	for k, v := range callerCtx {
		execCtx[k] = v
	}
	for k, v := range input {
		execCtx[k] = v
	}

	logger.L().Info("开始执行工作流",
		"workflow_id", workflowID,
		"execution_id", executionID,
		"steps", len(def.Steps),
	)

	terminated := false
	for i, step := range def.Steps {
		stepResult := e.runStep(ctx, executionID, i, step, execCtx)
		result.Results = append(result.Results, stepResult)

		if step.OutputKey != "" {
			if stepResult.Success {
				execCtx[step.OutputKey] = stepResult.Data
			} else {
				execCtx[step.OutputKey] = stepResult.Error
			}
		}

		if !stepResult.Success && step.Policy() == workflow.FailureTerminate {
			result.Error = fmt.Sprintf("step %d (%s.%s) failed: %s", i+1, step.Agent, step.Action, stepResult.Error)
			terminated = true
			break
		}

		// 条件不满足按当前步骤的失败策略处理。
		if step.Condition != nil && !evaluateCondition(step.Condition, execCtx, stepResult) {
			if step.Policy() == workflow.FailureTerminate {
				result.Error = fmt.Sprintf("step %d (%s.%s) condition not met", i+1, step.Agent, step.Action)
				terminated = true
				logger.L().Info("步骤条件不满足,终止执行",
					"execution_id", executionID,
					"step", i+1,
				)
				break
			}
			logger.L().Info("步骤条件不满足,继续执行后续步骤",
				"execution_id", executionID,
				"step", i+1,
			)
		}
	}

	result.Success = !terminated
	result.Context = execCtx
	e.finish(ctx, result)
	return result
}

// runStep 解析参数并分发单个步骤,捕获执行者内部的 panic。
func (e *Engine) runStep(ctx context.Context, executionID string, index int, step workflow.StepSpec, execCtx map[string]any) StepResult {
	stepResult := StepResult{
		Step:   index + 1,
		Agent:  step.Agent,
		Action: step.Action,
	}

	params, unresolved := ResolveParams(step.Parameters, execCtx)
	for _, token := range unresolved {
		logger.L().Warn("参数占位符未解析",
			"execution_id", executionID,
			"step", index+1,
			"placeholder", token,
		)
	}

	ag, ok := e.agents.Get(step.Agent)
	if !ok {
		stepResult.Error = fmt.Sprintf("agent not found: %s", step.Agent)
		return stepResult
	}

	resp := e.dispatch(ctx, ag, agent.Request{
		Action: step.Action,
		Params: params,
		Metadata: map[string]any{
			"execution_id": executionID,
			"session_id":   e.sessionID,
			"timestamp":    time.Now().UTC().Format(time.RFC3339),
			"agent":        step.Agent,
		},
	})

	stepResult.Success = resp.Success
	stepResult.Data = resp.Data
	stepResult.Error = resp.Error
	return stepResult
}

// dispatch 调用执行者,panic 被转换为失败响应。
func (e *Engine) dispatch(ctx context.Context, ag agent.Agent, req agent.Request) (resp agent.Response) {
	defer func() {
		if r := recover(); r != nil {
			logger.L().Error("执行者 panic", "agent", req.Metadata["agent"], "panic", r)
			resp = agent.Fail("agent panicked: %v", r)
		}
	}()
	return ag.Process(ctx, req)
}

// finish 落库、发布事件并写审计日志,全部尽力而为。
func (e *Engine) finish(ctx context.Context, result *ExecutionResult) {
	if e.repository != nil {
		record := mysql.ExecutionRecord{
			ExecutionID: result.ExecutionID,
			WorkflowID:  result.WorkflowID,
			Success:     result.Success,
			StepCount:   len(result.Results),
			Error:       result.Error,
			CreatedAt:   time.Now().Unix(),
		}
		if data, err := json.Marshal(result.Results); err == nil {
			record.Results = string(data)
		}
		if data, err := json.Marshal(result.Context); err == nil {
			record.Context = string(data)
		}
		if err := e.repository.Save(ctx, record); err != nil {
			logger.L().Warn("保存执行记录失败", "execution_id", result.ExecutionID, "error", err)
		}
	}

	if e.events != nil {
		evt := event.Event{
			Type:        event.TypeExecutionFinished,
			ExecutionID: result.ExecutionID,
			WorkflowID:  result.WorkflowID,
			SessionID:   e.sessionID,
			Success:     result.Success,
			StepCount:   len(result.Results),
			Error:       result.Error,
		}
		if err := e.events.Publish(ctx, evt); err != nil {
			logger.L().Warn("发布执行事件失败", "execution_id", result.ExecutionID, "error", err)
		}
	}

	logger.Audit().Info("workflow_execution",
		"execution_id", result.ExecutionID,
		"workflow_id", result.WorkflowID,
		"session_id", e.sessionID,
		"success", result.Success,
		"steps", len(result.Results),
	)
}
