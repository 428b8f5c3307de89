package orchestrator

import (
	"context"
	"strings"
	"testing"

	"APE-Core/internal/agent"
	"APE-Core/internal/workflow"
)

func TestOrchestratorAgentLifecycle(t *testing.T) {
	o := New()
	defer o.Close()

	echo := &funcAgent{process: func(_ context.Context, req agent.Request) agent.Response {
		return agent.Succeed(req.Params["text"])
	}}
	if err := o.RegisterAgent("echo", echo); err != nil {
		t.Fatalf("注册执行者失败: %v", err)
	}
	if names := o.RegisteredAgents(); len(names) != 1 || names[0] != "echo" {
		t.Fatalf("执行者列表不符: %v", names)
	}

	resp := o.ExecuteAgent(context.Background(), "echo", agent.Request{
		Action: "say",
		Params: map[string]any{"text": "hi"},
	})
	if !resp.Success || resp.Data != "hi" {
		t.Fatalf("直接调用结果不符: %+v", resp)
	}

	if !o.UnregisterAgent("echo") {
		t.Fatal("注销已注册的执行者应返回 true")
	}
	if o.UnregisterAgent("echo") {
		t.Fatal("重复注销应返回 false")
	}
}

func TestExecuteAgentStampsMetadata(t *testing.T) {
	o := New()
	defer o.Close()

	var meta map[string]any
	probe := &funcAgent{process: func(_ context.Context, req agent.Request) agent.Response {
		meta = req.Metadata
		return agent.Succeed(nil)
	}}
	if err := o.RegisterAgent("probe", probe); err != nil {
		t.Fatalf("注册执行者失败: %v", err)
	}

	o.ExecuteAgent(context.Background(), "probe", agent.Request{Action: "noop"})
	if meta["session_id"] != o.SessionID() {
		t.Fatalf("session_id 不符: %#v", meta["session_id"])
	}
	if meta["agent"] != "probe" || meta["timestamp"] == nil {
		t.Fatalf("元数据不完整: %#v", meta)
	}
}

func TestExecuteAgentUnknownName(t *testing.T) {
	o := New()
	defer o.Close()

	resp := o.ExecuteAgent(context.Background(), "ghost", agent.Request{Action: "noop"})
	if resp.Success || !strings.Contains(resp.Error, "agent not found") {
		t.Fatalf("未知执行者应返回失败响应: %+v", resp)
	}
}

func TestExecuteAgentRecoversPanic(t *testing.T) {
	o := New()
	defer o.Close()

	wild := &funcAgent{process: func(_ context.Context, _ agent.Request) agent.Response {
		panic("boom")
	}}
	if err := o.RegisterAgent("wild", wild); err != nil {
		t.Fatalf("注册执行者失败: %v", err)
	}

	resp := o.ExecuteAgent(context.Background(), "wild", agent.Request{Action: "noop"})
	if resp.Success || !strings.Contains(resp.Error, "agent panicked") {
		t.Fatalf("panic 应转换为失败响应: %+v", resp)
	}
}

func TestOrchestratorWorkflowRoundTrip(t *testing.T) {
	o := New()
	defer o.Close()

	echo := &funcAgent{process: func(_ context.Context, _ agent.Request) agent.Response {
		return agent.Succeed("ok")
	}}
	if err := o.RegisterAgent("echo", echo); err != nil {
		t.Fatalf("注册执行者失败: %v", err)
	}

	ctx := context.Background()
	steps := []workflow.StepSpec{{Agent: "echo", Action: "noop", OutputKey: "r1"}}
	if err := o.RegisterWorkflow(ctx, "w1", steps, map[string]any{"owner": "ops"}); err != nil {
		t.Fatalf("注册工作流失败: %v", err)
	}

	ids, err := o.WorkflowIDs(ctx)
	if err != nil || len(ids) != 1 || ids[0] != "w1" {
		t.Fatalf("工作流列表不符: %v %v", ids, err)
	}

	result := o.ExecuteWorkflow(ctx, "w1", nil, nil)
	if !result.Success || result.Context["r1"] != "ok" {
		t.Fatalf("执行结果不符: %+v", result)
	}

	removed, err := o.RemoveWorkflow(ctx, "w1")
	if err != nil || !removed {
		t.Fatalf("删除工作流失败: %v %v", removed, err)
	}
}

func TestOrchestratorPlanWorkflow(t *testing.T) {
	client := &stubLLM{content: `[{"agent":"echo","action":"noop"}]`}
	o := New(WithLLMClient(client))
	defer o.Close()

	echo := &funcAgent{process: func(_ context.Context, _ agent.Request) agent.Response {
		return agent.Succeed("ok")
	}}
	if err := o.RegisterAgent("echo", echo); err != nil {
		t.Fatalf("注册执行者失败: %v", err)
	}

	plan, err := o.PlanWorkflow(context.Background(), "echo it", []string{"echo"})
	if err != nil {
		t.Fatalf("规划失败: %v", err)
	}

	result := o.ExecuteWorkflow(context.Background(), plan.WorkflowID, nil, nil)
	if !result.Success {
		t.Fatalf("规划出的工作流应可执行: %+v", result)
	}
}
