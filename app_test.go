package main

import (
	"errors"
	"testing"

	"github.com/felixlunzenfichter/BetterVoiceControl/internal/domain"
)

func TestPhaseMessage(t *testing.T) {
	t.Parallel()

	cases := map[domain.PhaseReason]string{
		domain.ReasonStartupComplete: "Ready",
		domain.ReasonBeginRequested:  "Connecting...",
		domain.ReasonHandshakeSent:   "Configuring session...",
		domain.ReasonSessionReady:    "Listening",
		domain.ReasonResponseStarted: "Assistant speaking",
		domain.ReasonResponseDone:    "Response finished",
		domain.ReasonResponseFailed:  "Response failed",
		domain.ReasonSpeechStarted:   "Speech detected; playback stopped",
		domain.ReasonToolDispatched:  "Running tool",
		domain.ReasonToolCompleted:   "Tool finished",
		domain.ReasonStopRequested:   "Session stopped",
		domain.ReasonConnectionLost:  "Connection lost",
	}

	for reason, want := range cases {
		reason := reason
		want := want
		t.Run(string(reason), func(t *testing.T) {
			t.Parallel()
			if got := phaseMessage(reason); got != want {
				t.Fatalf("unexpected message: %q", got)
			}
		})
	}

	if got := phaseMessage("unknown"); got != "" {
		t.Fatalf("expected empty unknown reason message, got %q", got)
	}
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	cases := map[domain.ErrorCode]string{
		domain.ErrorCodeStartup:        "Startup failed",
		domain.ErrorCodeConnection:     "Could not reach the realtime API",
		domain.ErrorCodeTransmission:   "Failed to send to the realtime API",
		domain.ErrorCodeProtocolDecode: "Malformed server event",
		domain.ErrorCodeToolArgument:   "Tool rejected its arguments",
		domain.ErrorCodeToolExecution:  "Tool execution failed",
		domain.ErrorCodeAudioDevice:    "Audio device issue",
		domain.ErrorCodeServer:         "Server reported an error",
	}
	for code, want := range cases {
		code := code
		want := want
		t.Run(string(code), func(t *testing.T) {
			t.Parallel()
			if got := errorMessage(code, "ignored"); got != want {
				t.Fatalf("unexpected message: %q", got)
			}
		})
	}

	if got := errorMessage("unknown", "detail"); got != "detail" {
		t.Fatalf("expected detail fallback, got %q", got)
	}
	if got := errorMessage("unknown", ""); got != "Unknown error" {
		t.Fatalf("expected unknown fallback, got %q", got)
	}
}

func TestRequireReady(t *testing.T) {
	t.Parallel()

	app := &App{}
	if err := app.requireReady(); err == nil {
		t.Fatalf("expected uninitialized error")
	}

	bootErr := errors.New("boot")
	app.bootErr = bootErr
	if err := app.requireReady(); !errors.Is(err, bootErr) {
		t.Fatalf("expected boot error, got %v", err)
	}
}

func TestGetStatusWhenNotInitialized(t *testing.T) {
	t.Parallel()

	app := &App{}
	status := app.GetStatus()
	if status.Phase != domain.PhaseIdle || status.Active {
		t.Fatalf("unexpected status: %+v", status)
	}

	app.bootErr = errors.New("boot")
	status = app.GetStatus()
	if status.Phase != domain.PhaseIdle || status.Active || status.Message != "boot" {
		t.Fatalf("unexpected boot status: %+v", status)
	}
}

func TestGetRuntimeInfoReportsBootError(t *testing.T) {
	t.Parallel()

	app := &App{bootErr: errors.New("boot")}
	info := app.GetRuntimeInfo()
	if info["error"] != "boot" {
		t.Fatalf("unexpected runtime info: %+v", info)
	}
}
