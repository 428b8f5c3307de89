package event

import (
	"context"
	"testing"
)

func TestStampFillsOccurredAt(t *testing.T) {
	evt := Stamp(Event{Type: TypeExecutionFinished, WorkflowID: "w1"})
	if evt.OccurredAt == 0 {
		t.Fatal("应填充发生时间")
	}

	fixed := Stamp(Event{OccurredAt: 42})
	if fixed.OccurredAt != 42 {
		t.Fatalf("已有时间不应被覆盖: %d", fixed.OccurredAt)
	}
}

func TestNopPublisher(t *testing.T) {
	var pub Publisher = NopPublisher{}
	if err := pub.Publish(context.Background(), Event{Type: TypeWorkflowPlanned}); err != nil {
		t.Fatalf("NopPublisher 不应报错: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("关闭不应报错: %v", err)
	}
}
