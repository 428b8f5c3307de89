package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"APE-Core/internal/agent"
	"APE-Core/internal/orchestrator"
)

// echoAgent 原样返回参数,用于接口级测试。
type echoAgent struct{}

func (echoAgent) Process(_ context.Context, req agent.Request) agent.Response {
	return agent.Succeed(req.Params)
}

func (echoAgent) Capabilities() []string { return []string{"echo"} }

func newTestServer(t *testing.T) (*httptest.Server, *orchestrator.Orchestrator) {
	t.Helper()
	orch := orchestrator.New()
	t.Cleanup(func() { _ = orch.Close() })
	if err := orch.RegisterAgent("echo", echoAgent{}); err != nil {
		t.Fatalf("注册执行者失败: %v", err)
	}

	server := httptest.NewServer(NewServer(":0", orch, 0).Handler())
	t.Cleanup(server.Close)
	return server, orch
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("序列化请求失败: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("请求失败: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
}

func TestRegisterAndExecuteWorkflow(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/v1/workflows", map[string]any{
		"id": "w1",
		"steps": []map[string]any{
			{"agent": "echo", "action": "echo", "parameters": map[string]any{"text": "hi"}, "output_key": "r1"},
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("注册状态码不符: %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, server.URL+"/api/v1/workflows/execute", map[string]any{
		"workflow_id": "w1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("执行状态码不符: %d", resp.StatusCode)
	}
	var result struct {
		Success bool           `json:"success"`
		Context map[string]any `json:"context"`
	}
	decodeBody(t, resp, &result)
	if !result.Success {
		t.Fatalf("执行应成功: %+v", result)
	}
	r1, _ := result.Context["r1"].(map[string]any)
	if r1 == nil || r1["text"] != "hi" {
		t.Fatalf("上下文不符: %#v", result.Context)
	}
}

func TestRegisterWorkflowValidation(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/v1/workflows", map[string]any{
		"id":    "bad",
		"steps": []map[string]any{},
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("空步骤应返回 400: %d", resp.StatusCode)
	}
}

func TestExecuteUnknownWorkflowReturnsResult(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/v1/workflows/execute", map[string]any{
		"workflow_id": "ghost",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("未知工作流仍应返回结构化结果: %d", resp.StatusCode)
	}
	var result struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	decodeBody(t, resp, &result)
	if result.Success || result.Error == "" {
		t.Fatalf("结果不符: %+v", result)
	}
}

func TestListAgents(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/v1/agents")
	if err != nil {
		t.Fatalf("请求失败: %v", err)
	}
	var payload struct {
		Agents []string `json:"agents"`
	}
	decodeBody(t, resp, &payload)
	if len(payload.Agents) != 1 || payload.Agents[0] != "echo" {
		t.Fatalf("执行者列表不符: %v", payload.Agents)
	}
}

func TestExecuteAgentDirect(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/v1/agents/execute", map[string]any{
		"agent":  "echo",
		"action": "echo",
		"params": map[string]any{"k": "v"},
	})
	var payload struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	decodeBody(t, resp, &payload)
	if !payload.Success || payload.Data["k"] != "v" {
		t.Fatalf("直接调用结果不符: %+v", payload)
	}
}

func TestDeleteWorkflow(t *testing.T) {
	server, orch := newTestServer(t)

	steps := []map[string]any{{"agent": "echo", "action": "echo"}}
	resp := postJSON(t, server.URL+"/api/v1/workflows", map[string]any{"id": "w1", "steps": steps})
	resp.Body.Close()

	req, _ := http.NewRequest(http.MethodDelete, server.URL+"/api/v1/workflows/w1", nil)
	deleteResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("删除请求失败: %v", err)
	}
	deleteResp.Body.Close()
	if deleteResp.StatusCode != http.StatusOK {
		t.Fatalf("删除状态码不符: %d", deleteResp.StatusCode)
	}

	ids, err := orch.WorkflowIDs(context.Background())
	if err != nil || len(ids) != 0 {
		t.Fatalf("工作流应已删除: %v %v", ids, err)
	}
}
