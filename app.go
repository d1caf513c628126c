package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/felixlunzenfichter/BetterVoiceControl/internal/agent"
	"github.com/felixlunzenfichter/BetterVoiceControl/internal/bootstrap"
	"github.com/felixlunzenfichter/BetterVoiceControl/internal/config"
	"github.com/felixlunzenfichter/BetterVoiceControl/internal/domain"
	"github.com/felixlunzenfichter/BetterVoiceControl/internal/usecase"
)

const (
	eventPhase      = "voicecontrol:phase"
	eventTranscript = "voicecontrol:transcript"
	eventResponse   = "voicecontrol:response"
	eventTool       = "voicecontrol:tool"
	eventError      = "voicecontrol:error"
)

// App is the Wails application root.
type App struct {
	ctx context.Context

	controller *usecase.SessionController
	bridge     *agent.Bridge
	cfg        config.Config
	ruleCount  int
	bootErr    error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	services, err := bootstrap.Build(a, &clipboardAgent{}, log)
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.controller = services.Controller
	a.bridge = services.AgentBridge
	a.ruleCount = services.RuleCount
	a.PhaseChanged(domain.PhaseIdle, domain.ReasonStartupComplete)
}

func (a *App) shutdown(_ context.Context) {
	if a.controller != nil {
		a.controller.EndSession()
	}
	if a.bridge != nil {
		a.bridge.Close()
	}
}

// Begin starts a voice session, restarting any active one.
func (a *App) Begin() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.controller.Begin(a.ctx); err != nil {
		return domain.Status{}, err
	}
	return a.controller.Status(), nil
}

// Stop ends the active voice session. Stopping while idle is not an error.
func (a *App) Stop() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.controller.Stop(); err != nil && !errors.Is(err, usecase.ErrNoActiveSession) {
		return domain.Status{}, err
	}
	return a.controller.Status(), nil
}

// Interrupt cuts off model speech without ending the session.
func (a *App) Interrupt() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.controller.InterruptResponse()
	return nil
}

// GetStatus returns the current session status.
func (a *App) GetStatus() domain.Status {
	if a.controller == nil {
		if a.bootErr != nil {
			return domain.Status{Phase: domain.PhaseIdle, Active: false, Message: a.bootErr.Error()}
		}
		return domain.Status{Phase: domain.PhaseIdle, Active: false}
	}
	return a.controller.Status()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	agentMode := "clipboard"
	if a.cfg.Agent.Command != "" {
		agentMode = "subprocess"
	}
	return map[string]string{
		"provider":         "OpenAI Realtime",
		"model":            a.cfg.OpenAI.Model,
		"voice":            a.cfg.OpenAI.Voice,
		"rulesFile":        a.cfg.Rules.Path,
		"ruleCount":        strconv.Itoa(a.ruleCount),
		"audioInput":       a.cfg.Audio.InputDevice,
		"audioInputFormat": a.cfg.Audio.InputFormat,
		"agent":            agentMode,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// PhaseChanged emits session lifecycle updates to the frontend.
func (a *App) PhaseChanged(phase domain.Phase, reason domain.PhaseReason) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventPhase, map[string]string{
		"phase":   string(phase),
		"reason":  string(reason),
		"message": phaseMessage(reason),
	})
}

// TranscriptDelta emits live user speech transcription.
func (a *App) TranscriptDelta(text string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventTranscript, map[string]string{"text": text})
}

// ResponseText emits assistant response text.
func (a *App) ResponseText(text string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventResponse, map[string]string{"text": text})
}

// ToolCallStarted emits the start of a tool invocation.
func (a *App) ToolCallStarted(name string, callID string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventTool, map[string]string{
		"stage":  "started",
		"name":   name,
		"callId": callID,
	})
}

// ToolCallFinished emits the outcome of a tool invocation.
func (a *App) ToolCallFinished(name string, callID string, output string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventTool, map[string]string{
		"stage":  "finished",
		"name":   name,
		"callId": callID,
		"output": output,
	})
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func phaseMessage(reason domain.PhaseReason) string {
	switch reason {
	case domain.ReasonStartupComplete:
		return "Ready"
	case domain.ReasonBeginRequested:
		return "Connecting..."
	case domain.ReasonHandshakeSent:
		return "Configuring session..."
	case domain.ReasonSessionReady:
		return "Listening"
	case domain.ReasonResponseStarted:
		return "Assistant speaking"
	case domain.ReasonResponseDone:
		return "Response finished"
	case domain.ReasonResponseFailed:
		return "Response failed"
	case domain.ReasonSpeechStarted:
		return "Speech detected; playback stopped"
	case domain.ReasonToolDispatched:
		return "Running tool"
	case domain.ReasonToolCompleted:
		return "Tool finished"
	case domain.ReasonStopRequested:
		return "Session stopped"
	case domain.ReasonConnectionLost:
		return "Connection lost"
	default:
		return ""
	}
}

// errorMessage maps every ErrorCode to operator-facing text, including the
// reserved codes that never reach SessionError in the current wiring.
func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeConnection:
		return "Could not reach the realtime API"
	case domain.ErrorCodeTransmission:
		return "Failed to send to the realtime API"
	case domain.ErrorCodeProtocolDecode:
		return "Malformed server event"
	case domain.ErrorCodeToolArgument:
		return "Tool rejected its arguments"
	case domain.ErrorCodeToolExecution:
		return "Tool execution failed"
	case domain.ErrorCodeAudioDevice:
		return "Audio device issue"
	case domain.ErrorCodeServer:
		return "Server reported an error"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}

// clipboardAgent copies finished prompts to the system clipboard when no
// agent command is configured, so the user can paste them anywhere.
type clipboardAgent struct{}

func (c *clipboardAgent) Deliver(ctx context.Context, prompt string) error {
	return runtime.ClipboardSetText(ctx, prompt)
}
