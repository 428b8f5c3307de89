package workflow

import (
	"fmt"
	"strings"

	xerrors "APE-Core/internal/errors"
)

// FailurePolicy 决定某一步失败后引擎的行为。
type FailurePolicy string

const (
	// FailureTerminate 表示立即终止整个工作流，是默认策略。
	FailureTerminate FailurePolicy = "terminate"
	// FailureContinue 表示记录失败后继续执行后续步骤。
	FailureContinue FailurePolicy = "continue"
)

// Condition 描述步骤执行后的附加判定。判定不通过时按失败策略处理。
type Condition struct {
	Type     string `json:"type,omitempty" yaml:"type,omitempty"`
	Value    string `json:"value,omitempty" yaml:"value,omitempty"`
	Operator string `json:"operator,omitempty" yaml:"operator,omitempty"`
	Expected any    `json:"expected,omitempty" yaml:"expected,omitempty"`
	Function string `json:"function,omitempty" yaml:"function,omitempty"`
}

// StepSpec 描述工作流中的一个步骤。注册到工作流后视为不可变。
type StepSpec struct {
	Agent      string         `json:"agent" yaml:"agent"`
	Action     string         `json:"action" yaml:"action"`
	Parameters map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	OutputKey  string         `json:"output_key,omitempty" yaml:"output_key,omitempty"`
	OnFailure  FailurePolicy  `json:"on_failure,omitempty" yaml:"on_failure,omitempty"`
	Condition  *Condition     `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// Policy 返回生效的失败策略，未填写时默认 terminate。
func (s StepSpec) Policy() FailurePolicy {
	if s.OnFailure == "" {
		return FailureTerminate
	}
	return s.OnFailure
}

// Definition 是一条已命名的工作流定义。
type Definition struct {
	ID       string         `json:"id" yaml:"id"`
	Steps    []StepSpec     `json:"steps" yaml:"steps"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

const (
	CodeWorkflowNotFound   xerrors.Code = "WORKFLOW_NOT_FOUND"
	CodeWorkflowValidation xerrors.Code = "WORKFLOW_VALIDATION_FAILED"
)

var (
	// ErrWorkflowNotFound 表示指定 ID 的工作流不存在。
	ErrWorkflowNotFound = xerrors.New(CodeWorkflowNotFound, "workflow not found")
	// ErrWorkflowInvalid 表示工作流定义未通过校验。
	ErrWorkflowInvalid = xerrors.New(CodeWorkflowValidation, "workflow validation failed")
)

func init() {
	xerrors.Register(CodeWorkflowNotFound, xerrors.Attributes{
		Message:   "workflow not found",
		Severity:  xerrors.SeverityInfo,
		Retryable: false,
		Alert:     false,
	})
	xerrors.Register(CodeWorkflowValidation, xerrors.Attributes{
		Message:   "workflow validation failed",
		Severity:  xerrors.SeverityInfo,
		Retryable: false,
		Alert:     false,
	})
}

// Validate 校验整条工作流定义。智能体是否已注册不在此处检查，
// 注册可以晚于工作流定义发生，存在性只在执行时判定。
func (d *Definition) Validate() error {
	if d == nil {
		return xerrors.New(xerrors.CodeInvalidArgument, "工作流定义不能为空")
	}
	if strings.TrimSpace(d.ID) == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "工作流 ID 不能为空")
	}
	return ValidateSteps(d.Steps)
}

// ValidateSteps 校验步骤列表，规划器复用同一套规则检查模型产出。
func ValidateSteps(steps []StepSpec) error {
	if len(steps) == 0 {
		return xerrors.New(CodeWorkflowValidation, "工作流至少需要一个步骤")
	}
	for i, step := range steps {
		if strings.TrimSpace(step.Agent) == "" {
			return xerrors.New(CodeWorkflowValidation, fmt.Sprintf("步骤 %d 缺少 agent 名称", i))
		}
		if strings.TrimSpace(step.Action) == "" {
			return xerrors.New(CodeWorkflowValidation, fmt.Sprintf("步骤 %d 缺少 action", i))
		}
		switch step.OnFailure {
		case "", FailureTerminate, FailureContinue:
		default:
			return xerrors.New(CodeWorkflowValidation,
				fmt.Sprintf("步骤 %d 的 on_failure 值非法: %q", i, step.OnFailure))
		}
	}
	return nil
}

// Clone 返回定义的深拷贝，避免调用方修改注册表中的共享状态。
func (d *Definition) Clone() *Definition {
	if d == nil {
		return nil
	}
	clone := &Definition{
		ID:       d.ID,
		Steps:    cloneSteps(d.Steps),
		Metadata: cloneAnyMap(d.Metadata),
	}
	return clone
}

func cloneSteps(steps []StepSpec) []StepSpec {
	if steps == nil {
		return nil
	}
	cloned := make([]StepSpec, len(steps))
	for i, step := range steps {
		cloned[i] = step
		cloned[i].Parameters = cloneAnyMap(step.Parameters)
		if step.Condition != nil {
			condition := *step.Condition
			cloned[i].Condition = &condition
		}
	}
	return cloned
}

func cloneAnyMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	cloned := make(map[string]any, len(src))
	for key, value := range src {
		cloned[key] = value
	}
	return cloned
}
