package echo

import (
	"context"
	"reflect"
	"testing"

	"APE-Core/internal/agent"
)

func TestEchoReturnsParams(t *testing.T) {
	a := New()
	params := map[string]any{"text": "hello", "count": 3}
	resp := a.Process(context.Background(), agent.Request{Action: "echo", Params: params})
	if !resp.Success || !reflect.DeepEqual(resp.Data, params) {
		t.Fatalf("echo 结果不符: %+v", resp)
	}
}

func TestFailUsesMessage(t *testing.T) {
	a := New()
	resp := a.Process(context.Background(), agent.Request{
		Action: "fail",
		Params: map[string]any{"message": "boom"},
	})
	if resp.Success || resp.Error != "boom" {
		t.Fatalf("fail 结果不符: %+v", resp)
	}
}

func TestSleepHonorsCancellation(t *testing.T) {
	a := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp := a.Process(ctx, agent.Request{
		Action: "sleep",
		Params: map[string]any{"millis": 5000},
	})
	if resp.Success {
		t.Fatal("取消后 sleep 应失败")
	}
}
