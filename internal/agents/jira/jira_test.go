package jira

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"APE-Core/internal/agent"
)

func newTestAgent(t *testing.T, handler http.HandlerFunc) *Agent {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	ag, err := New(Config{
		BaseURL:    server.URL,
		Username:   "jira-user",
		APIToken:   "token",
		ProjectKey: "APE",
	})
	if err != nil {
		t.Fatalf("创建 Jira 执行者失败: %v", err)
	}
	return ag
}

func TestGetIssue(t *testing.T) {
	ag := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/2/issue/APE-1" {
			t.Fatalf("请求路径不符: %s", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "jira-user" || pass != "token" {
			t.Fatal("应携带 Basic 认证")
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"key":    "APE-1",
			"fields": map[string]any{"summary": "fix login"},
		})
	})

	resp := ag.Process(context.Background(), agent.Request{
		Action: "get_issue",
		Params: map[string]any{"issue_key": "APE-1"},
	})
	if !resp.Success {
		t.Fatalf("查询应成功: %+v", resp)
	}
	data, ok := resp.Data.(map[string]any)
	if !ok || data["key"] != "APE-1" {
		t.Fatalf("响应数据不符: %#v", resp.Data)
	}
}

func TestCreateIssueBuildsFields(t *testing.T) {
	var payload map[string]any
	ag := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/rest/api/2/issue" {
			t.Fatalf("请求不符: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("解析请求体失败: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"key": "APE-2"})
	})

	resp := ag.Process(context.Background(), agent.Request{
		Action: "create_issue",
		Params: map[string]any{
			"summary":     "add metrics",
			"description": "expose counters",
		},
	})
	if !resp.Success {
		t.Fatalf("创建应成功: %+v", resp)
	}

	fields, _ := payload["fields"].(map[string]any)
	if fields == nil || fields["summary"] != "add metrics" {
		t.Fatalf("请求体 fields 不符: %#v", payload)
	}
	project, _ := fields["project"].(map[string]any)
	if project == nil || project["key"] != "APE" {
		t.Fatalf("应使用默认项目: %#v", fields)
	}
}

func TestSearchIssuesRequiresJQL(t *testing.T) {
	ag := newTestAgent(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	resp := ag.Process(context.Background(), agent.Request{Action: "search_issues"})
	if resp.Success {
		t.Fatal("缺少 jql 应失败")
	}
}

func TestUpstreamErrorBecomesFailure(t *testing.T) {
	ag := newTestAgent(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"errorMessages":["Issue does not exist"]}`, http.StatusNotFound)
	})

	resp := ag.Process(context.Background(), agent.Request{
		Action: "get_issue",
		Params: map[string]any{"issue_key": "APE-404"},
	})
	if resp.Success || resp.Error == "" {
		t.Fatalf("上游错误应转换为失败响应: %+v", resp)
	}
}

func TestUnsupportedAction(t *testing.T) {
	ag := newTestAgent(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	resp := ag.Process(context.Background(), agent.Request{Action: "delete_everything"})
	if resp.Success {
		t.Fatal("未知 action 应失败")
	}
}
