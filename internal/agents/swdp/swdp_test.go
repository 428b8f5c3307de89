package swdp

import (
	"context"
	"testing"

	"APE-Core/internal/agent"
)

// 校验逻辑在触碰数据库之前执行,这里直接用零值实例测试。

func TestExecuteQueryRejectsNonSelect(t *testing.T) {
	a := &Agent{}
	cases := []string{
		"DELETE FROM builds",
		"UPDATE builds SET status = 'done'",
		"DROP TABLE builds",
		"SELECT 1; DROP TABLE builds",
	}
	for _, query := range cases {
		resp := a.Process(context.Background(), agent.Request{
			Action: "execute_query",
			Params: map[string]any{"query": query},
		})
		if resp.Success {
			t.Fatalf("危险语句应被拒绝: %s", query)
		}
	}
}

func TestTableNameValidation(t *testing.T) {
	a := &Agent{}
	resp := a.Process(context.Background(), agent.Request{
		Action: "get_table_data",
		Params: map[string]any{"table": "builds; DROP TABLE builds"},
	})
	if resp.Success {
		t.Fatal("非法表名应被拒绝")
	}

	resp = a.Process(context.Background(), agent.Request{
		Action: "find_related_data",
		Params: map[string]any{"table": "builds", "column": "id = 1 OR 1=1", "value": 1},
	})
	if resp.Success {
		t.Fatal("非法列名应被拒绝")
	}
}

func TestNewRequiresDSN(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("空 DSN 应报错")
	}
}
