package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"APE-Core/internal/agent"
	xerrors "APE-Core/internal/errors"
	"APE-Core/internal/event"
	"APE-Core/internal/llm"
	"APE-Core/internal/workflow"
	"APE-Core/pkg/logger"
)

// 规划相关错误码。
const (
	CodePlanFailed       xerrors.Code = "PLAN_FAILED"
	CodePlanInvalidSteps xerrors.Code = "PLAN_INVALID_STEPS"
)

func init() {
	xerrors.Register(CodePlanFailed, xerrors.Attributes{
		Severity:  xerrors.SeverityWarning,
		Retryable: true,
	})
	xerrors.Register(CodePlanInvalidSteps, xerrors.Attributes{
		Severity: xerrors.SeverityWarning,
	})
}

// PlanResult 描述一次规划产出的工作流。
type PlanResult struct {
	WorkflowID string              `json:"workflow_id"`
	Steps      []workflow.StepSpec `json:"steps"`
	Query      string              `json:"query"`
}

// Planner 调用 LLM 将自然语言请求转换为可执行的工作流定义。
type Planner struct {
	client    llm.Client
	agents    *agent.Registry
	workflows *workflow.Registry
	events    event.Publisher
}

// NewPlanner 创建规划器。
func NewPlanner(client llm.Client, agents *agent.Registry, workflows *workflow.Registry, events event.Publisher) *Planner {
	if events == nil {
		events = event.NopPublisher{}
	}
	return &Planner{client: client, agents: agents, workflows: workflows, events: events}
}

// Plan 根据请求生成工作流并注册为 generated-xxxxxxxx。available 限定
// 提示词中枚举的执行者,为空时使用全部已注册的执行者。
func (p *Planner) Plan(ctx context.Context, query string, available []string) (*PlanResult, error) {
	if p.client == nil {
		return nil, xerrors.New(CodePlanFailed, "未配置 LLM 客户端")
	}
	if strings.TrimSpace(query) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "规划请求不能为空")
	}

	reply, err := p.client.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: p.systemPrompt(available)},
		{Role: llm.RoleUser, Content: query},
	})
	if err != nil {
		return nil, xerrors.Wrap(CodePlanFailed, err, "调用 LLM 失败")
	}

	steps, err := extractSteps(reply.Message.Content)
	if err != nil {
		return nil, err
	}
	if err := workflow.ValidateSteps(steps); err != nil {
		return nil, xerrors.Wrap(CodePlanInvalidSteps, err, "规划结果不是合法的工作流")
	}

	workflowID := "generated-" + uuid.NewString()[:8]
	err = p.workflows.Register(ctx, workflowID, steps, map[string]any{
		"source":    "planned",
		"generated": true,
		"query":     query,
	})
	if err != nil {
		return nil, xerrors.Wrap(CodePlanFailed, err, "注册规划工作流失败")
	}

	logger.L().Info("规划工作流完成", "workflow_id", workflowID, "steps", len(steps))
	if err := p.events.Publish(ctx, event.Event{
		Type:       event.TypeWorkflowPlanned,
		WorkflowID: workflowID,
		Success:    true,
		StepCount:  len(steps),
	}); err != nil {
		logger.L().Warn("发布规划事件失败", "workflow_id", workflowID, "error", err)
	}

	return &PlanResult{WorkflowID: workflowID, Steps: steps, Query: query}, nil
}

// systemPrompt 列出可用的执行者与能力,约束模型仅输出 JSON 步骤数组。
func (p *Planner) systemPrompt(available []string) string {
	var sb strings.Builder
	sb.WriteString("You are a workflow planner. Convert the user request into a JSON array of workflow steps.\n")
	sb.WriteString("Available agents and their capabilities:\n")

	names := available
	if len(names) == 0 {
		names = p.agents.Names()
	}
	sort.Strings(names)
	for _, name := range names {
		ag, ok := p.agents.Get(name)
		if !ok {
			continue
		}
		sb.WriteString(fmt.Sprintf("- %s: %s\n", name, strings.Join(ag.Capabilities(), ", ")))
	}

	sb.WriteString("\nEach step is an object with fields:\n")
	sb.WriteString(`  "agent" (required), "action" (required), "parameters" (object),`)
	sb.WriteString("\n")
	sb.WriteString(`  "output_key" (string), "on_failure" ("terminate" or "continue").`)
	sb.WriteString("\n")
	sb.WriteString("Parameters may reference earlier outputs with ${output_key.path} placeholders.\n")
	sb.WriteString("Respond with the JSON array only, no prose.")
	return sb.String()
}

// extractSteps 从模型回复中提取 JSON 步骤数组。优先匹配最外层的
// 数组,回复只含单个对象时包装为单步数组。
func extractSteps(content string) ([]workflow.StepSpec, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start >= 0 && end > start {
		var steps []workflow.StepSpec
		if err := json.Unmarshal([]byte(content[start:end+1]), &steps); err == nil {
			return steps, nil
		}
	}

	start = strings.Index(content, "{")
	end = strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		var step workflow.StepSpec
		if err := json.Unmarshal([]byte(content[start:end+1]), &step); err == nil {
			return []workflow.StepSpec{step}, nil
		}
	}

	return nil, xerrors.New(CodePlanFailed, "模型回复中未找到合法的 JSON 步骤")
}
