package orchestrator

import (
	"reflect"
	"testing"
)

func TestResolveWholeReferenceKeepsType(t *testing.T) {
	execCtx := map[string]any{
		"r1": map[string]any{"value": 42},
	}
	resolved := Resolve("${r1.value}", execCtx)
	if resolved != 42 {
		t.Fatalf("期望得到 int 42, 实际为 %#v", resolved)
	}
}

func TestResolveEmbeddedReferenceUsesPrintForm(t *testing.T) {
	execCtx := map[string]any{
		"r1": map[string]any{"value": 42},
	}
	resolved := Resolve("got ${r1.value}", execCtx)
	if resolved != "got 42" {
		t.Fatalf("期望 got 42, 实际为 %#v", resolved)
	}
}

func TestResolveNestedStructures(t *testing.T) {
	execCtx := map[string]any{
		"user": map[string]any{"name": "alice"},
	}
	params := map[string]any{
		"filter": map[string]any{"assignee": "${user.name}"},
		"tags":   []any{"${user.name}", "static"},
	}
	resolved, missing := ResolveParams(params, execCtx)
	if len(missing) != 0 {
		t.Fatalf("不应有未解析引用: %v", missing)
	}
	want := map[string]any{
		"filter": map[string]any{"assignee": "alice"},
		"tags":   []any{"alice", "static"},
	}
	if !reflect.DeepEqual(resolved, want) {
		t.Fatalf("解析结果不符: %#v", resolved)
	}
}

func TestResolveUnknownReferencePassesThrough(t *testing.T) {
	params := map[string]any{"key": "${missing.path}"}
	resolved, missing := ResolveParams(params, map[string]any{})
	if resolved["key"] != "${missing.path}" {
		t.Fatalf("未解析引用应原样保留, 实际为 %#v", resolved["key"])
	}
	if len(missing) != 1 || missing[0] != "${missing.path}" {
		t.Fatalf("缺失列表不符: %v", missing)
	}
}

func TestResolveIdempotentWithoutPattern(t *testing.T) {
	execCtx := map[string]any{"x": 1}
	first := Resolve("plain text", execCtx)
	second := Resolve(first, execCtx)
	if first != second || first != "plain text" {
		t.Fatalf("无引用的值应保持不变: %#v -> %#v", first, second)
	}

	if v := Resolve(7, execCtx); v != 7 {
		t.Fatalf("非字符串值应原样返回: %#v", v)
	}
}
