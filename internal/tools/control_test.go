package tools

import (
	"context"
	"testing"

	"github.com/felixlunzenfichter/BetterVoiceControl/internal/domain"
)

func TestStopTaskToolInvokesCallback(t *testing.T) {
	stopped := 0
	reg := newTestRegistry(t, StopTaskTool(Controls{StopTask: func() { stopped++ }}))

	result := reg.Execute(context.Background(), domain.ToolCall{CallID: "c1", Name: "stopTask"})

	if stopped != 1 {
		t.Fatalf("expected one stop, got %d", stopped)
	}
	if result.Output != "Task stopped" {
		t.Fatalf("unexpected output: %q", result.Output)
	}
	if !result.TriggerResponse {
		t.Fatal("stopTask should trigger a follow-up response")
	}
}

func TestStopListeningToolEndsSession(t *testing.T) {
	stopped := 0
	reg := newTestRegistry(t, StopListeningTool(Controls{StopListening: func() { stopped++ }}))

	result := reg.Execute(context.Background(), domain.ToolCall{CallID: "c2", Name: "stopListening"})

	if stopped != 1 {
		t.Fatalf("expected one stop, got %d", stopped)
	}
	if result.Output != "Listening stopped" {
		t.Fatalf("unexpected output: %q", result.Output)
	}
	if result.TriggerResponse {
		t.Fatal("stopListening must not trigger a response on a closing session")
	}
}

func TestStopToolsTolerateMissingCallbacks(t *testing.T) {
	for _, def := range []Definition{StopTaskTool(Controls{}), StopListeningTool(Controls{})} {
		if _, err := def.Handler(context.Background(), nil); err != nil {
			t.Fatalf("%s failed with nil callback: %v", def.Name, err)
		}
	}
}
