package bitbucket

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
		Token:      "bb-token",
		ProjectKey: "APE",
	})
	if err != nil {
		t.Fatalf("创建 Bitbucket 执行者失败: %v", err)
	}
	return ag
}

func TestGetPullRequest(t *testing.T) {
	ag := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/1.0/projects/APE/repos/core/pull-requests/7" {
			t.Fatalf("请求路径不符: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer bb-token" {
			t.Fatal("应携带 Bearer 认证")
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"id": 7, "state": "OPEN"})
	})

	resp := ag.Process(context.Background(), agent.Request{
		Action: "get_pull_request",
		Params: map[string]any{"repo_slug": "core", "pull_request_id": 7},
	})
	if !resp.Success {
		t.Fatalf("查询应成功: %+v", resp)
	}
}

func TestCreatePullRequestValidation(t *testing.T) {
	ag := newTestAgent(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	resp := ag.Process(context.Background(), agent.Request{
		Action: "create_pull_request",
		Params: map[string]any{"repo_slug": "core", "title": "fix"},
	})
	if resp.Success {
		t.Fatal("缺少分支参数应失败")
	}
}

func TestGetPullRequestsDefaultsToOpen(t *testing.T) {
	ag := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != "OPEN" {
			t.Fatalf("默认状态应为 OPEN: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"values": []any{}})
	})

	resp := ag.Process(context.Background(), agent.Request{
		Action: "get_pull_requests",
		Params: map[string]any{"repo_slug": "core"},
	})
	if !resp.Success {
		t.Fatalf("查询应成功: %+v", resp)
	}
}
