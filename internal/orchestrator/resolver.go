package orchestrator

import (
	"fmt"
	"regexp"
	"strings"
)

// refPattern 匹配参数中的 ${path.to.value} 引用。
var refPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Resolve 递归解析任意参数值中的变量引用。字符串整体是一个引用时
// 原样代入上下文中的值（保留类型）；引用嵌在更长的字符串中时代入
// 其打印形式。无法解析的引用原样保留，由接收方自行拒绝。
func Resolve(value any, execCtx map[string]any) any {
	resolved, _ := resolveValue(value, execCtx, nil)
	return resolved
}

// ResolveParams 解析一组步骤参数，返回解析后的副本以及未能解析的
// 引用 token 列表，后者由引擎以告警形式记录。
func ResolveParams(params map[string]any, execCtx map[string]any) (map[string]any, []string) {
	if params == nil {
		return nil, nil
	}
	var missing []string
	resolved := make(map[string]any, len(params))
	for key, value := range params {
		resolved[key], missing = resolveValue(value, execCtx, missing)
	}
	return resolved, missing
}

func resolveValue(value any, execCtx map[string]any, missing []string) (any, []string) {
	switch typed := value.(type) {
	case string:
		return resolveString(typed, execCtx, missing)
	case map[string]any:
		resolved := make(map[string]any, len(typed))
		for key, nested := range typed {
			resolved[key], missing = resolveValue(nested, execCtx, missing)
		}
		return resolved, missing
	case []any:
		resolved := make([]any, len(typed))
		for i, nested := range typed {
			resolved[i], missing = resolveValue(nested, execCtx, missing)
		}
		return resolved, missing
	default:
		return value, missing
	}
}

func resolveString(s string, execCtx map[string]any, missing []string) (any, []string) {
	// 整串匹配：保留被引用值的原始类型。
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		inner := s[2 : len(s)-1]
		if !strings.Contains(inner, "${") && !strings.Contains(inner, "}") {
			if value, ok := lookupPath(execCtx, inner); ok {
				return value, missing
			}
			return s, append(missing, s)
		}
	}

	// 片段匹配：逐个替换为打印形式。
	result := refPattern.ReplaceAllStringFunc(s, func(token string) string {
		path := token[2 : len(token)-1]
		if value, ok := lookupPath(execCtx, path); ok {
			return fmt.Sprint(value)
		}
		missing = append(missing, token)
		return token
	})
	return result, missing
}

// lookupPath 沿点分路径逐段下钻上下文。任一段缺失即视为未解析。
func lookupPath(execCtx map[string]any, path string) (any, bool) {
	segments := strings.Split(path, ".")
	var current any = execCtx
	for _, segment := range segments {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
