package orchestrator

import (
	"reflect"
	"strings"

	"APE-Core/internal/workflow"
)

// evaluateCondition 执行步骤附带的判定。路径缺失、类型不匹配或
// 判定类型未知一律返回 false，由失败策略决定后续行为。
func evaluateCondition(cond *workflow.Condition, execCtx map[string]any, result StepResult) bool {
	if cond == nil {
		return true
	}

	condType := cond.Type
	if condType == "" {
		condType = "simple"
	}

	switch condType {
	case "simple":
		return evaluateSimpleCondition(cond, execCtx, result)
	case "custom":
		return evaluateCustomCondition(cond, result)
	default:
		return false
	}
}

func evaluateSimpleCondition(cond *workflow.Condition, execCtx map[string]any, result StepResult) bool {
	var actual any
	var found bool

	switch {
	case strings.HasPrefix(cond.Value, "result."):
		resultView := map[string]any{
			"success": result.Success,
			"data":    result.Data,
			"error":   result.Error,
		}
		actual, found = lookupPath(resultView, strings.TrimPrefix(cond.Value, "result."))
	case strings.HasPrefix(cond.Value, "context."):
		actual, found = lookupPath(execCtx, strings.TrimPrefix(cond.Value, "context."))
	default:
		return false
	}
	if !found {
		return false
	}

	operator := cond.Operator
	if operator == "" {
		operator = "eq"
	}

	switch operator {
	case "eq":
		return reflect.DeepEqual(actual, cond.Expected)
	case "ne":
		return !reflect.DeepEqual(actual, cond.Expected)
	case "gt":
		left, leftOK := toFloat(actual)
		right, rightOK := toFloat(cond.Expected)
		return leftOK && rightOK && left > right
	case "lt":
		left, leftOK := toFloat(actual)
		right, rightOK := toFloat(cond.Expected)
		return leftOK && rightOK && left < right
	case "contains":
		return containsValue(actual, cond.Expected)
	case "exists":
		return actual != nil
	default:
		return false
	}
}

func evaluateCustomCondition(cond *workflow.Condition, result StepResult) bool {
	switch cond.Function {
	case "all_success":
		return result.Success
	case "has_data":
		return hasData(result.Data)
	default:
		return false
	}
}

func containsValue(actual, expected any) bool {
	switch typed := actual.(type) {
	case string:
		needle, ok := expected.(string)
		return ok && strings.Contains(typed, needle)
	case []any:
		for _, item := range typed {
			if reflect.DeepEqual(item, expected) {
				return true
			}
		}
		return false
	case map[string]any:
		key, ok := expected.(string)
		if !ok {
			return false
		}
		_, present := typed[key]
		return present
	default:
		return false
	}
}

func hasData(data any) bool {
	switch typed := data.(type) {
	case nil:
		return false
	case string:
		return typed != ""
	case []any:
		return len(typed) > 0
	case map[string]any:
		return len(typed) > 0
	default:
		return true
	}
}

func toFloat(value any) (float64, bool) {
	switch typed := value.(type) {
	case int:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case float32:
		return float64(typed), true
	case float64:
		return typed, true
	default:
		return 0, false
	}
}
