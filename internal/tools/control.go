package tools

import "context"

// Controls carries the session callbacks the stop tools trigger. Both are
// pure state transitions; neither spawns a process.
type Controls struct {
	StopTask      func()
	StopListening func()
}

// StopTaskTool interrupts whatever the model is currently doing and returns
// the session to listening.
func StopTaskTool(controls Controls) Definition {
	return Definition{
		Name:            "stopTask",
		Description:     "Stop the current task and go back to listening.",
		Parameters:      &JSONSchema{Type: "object"},
		TriggerResponse: true,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			if controls.StopTask != nil {
				controls.StopTask()
			}
			return "Task stopped", nil
		},
	}
}

// StopListeningTool ends the voice session. It must not trigger a follow-up
// response: the session is tearing down and there is nobody left to answer.
func StopListeningTool(controls Controls) Definition {
	return Definition{
		Name:            "stopListening",
		Description:     "Stop listening and end the voice session.",
		Parameters:      &JSONSchema{Type: "object"},
		TriggerResponse: false,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			if controls.StopListening != nil {
				controls.StopListening()
			}
			return "Listening stopped", nil
		},
	}
}
