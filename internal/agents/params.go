// Package agents 收纳各外部服务的执行者适配器及其共用工具。
package agents

// StringParam 以字符串形式读取参数,缺失或类型不符时返回空串。
func StringParam(params map[string]any, key string) string {
	if params == nil {
		return ""
	}
	if value, ok := params[key].(string); ok {
		return value
	}
	return ""
}

// StringParamDefault 读取字符串参数,缺失时返回默认值。
func StringParamDefault(params map[string]any, key, fallback string) string {
	if value := StringParam(params, key); value != "" {
		return value
	}
	return fallback
}

// IntParam 读取整型参数。JSON 解码出的数字是 float64,这里一并处理。
func IntParam(params map[string]any, key string, fallback int) int {
	if params == nil {
		return fallback
	}
	switch value := params[key].(type) {
	case int:
		return value
	case int64:
		return int(value)
	case float64:
		return int(value)
	default:
		return fallback
	}
}

// MapParam 读取对象参数,缺失时返回 nil。
func MapParam(params map[string]any, key string) map[string]any {
	if params == nil {
		return nil
	}
	if value, ok := params[key].(map[string]any); ok {
		return value
	}
	return nil
}

// SliceParam 读取数组参数,缺失时返回 nil。
func SliceParam(params map[string]any, key string) []any {
	if params == nil {
		return nil
	}
	if value, ok := params[key].([]any); ok {
		return value
	}
	return nil
}
