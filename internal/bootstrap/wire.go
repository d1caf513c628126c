package bootstrap

import (
	"log/slog"

	"github.com/felixlunzenfichter/BetterVoiceControl/internal/agent"
	"github.com/felixlunzenfichter/BetterVoiceControl/internal/audio"
	"github.com/felixlunzenfichter/BetterVoiceControl/internal/config"
	"github.com/felixlunzenfichter/BetterVoiceControl/internal/ports"
	"github.com/felixlunzenfichter/BetterVoiceControl/internal/providers/openairt"
	"github.com/felixlunzenfichter/BetterVoiceControl/internal/rules"
	"github.com/felixlunzenfichter/BetterVoiceControl/internal/tools"
	"github.com/felixlunzenfichter/BetterVoiceControl/internal/usecase"
)

// Services is the assembled runtime graph. AgentBridge is non-nil only when
// prompts go to an agent subprocess; the caller owns its shutdown.
type Services struct {
	Controller  *usecase.SessionController
	Prompts     *tools.PromptStore
	AgentBridge *agent.Bridge
	RuleCount   int
	Config      config.Config
}

// Build wires all backend dependencies for the current runtime. fallback
// receives finished prompts when no agent command is configured.
func Build(eventSink ports.EventSink, fallback ports.AgentChannel, log *slog.Logger) (Services, error) {
	if log == nil {
		log = slog.Default()
	}

	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	rulesEngine, err := rules.Load(cfg.Rules.Path, cfg.Rules.IterationLimit)
	if err != nil {
		return Services{}, err
	}

	var bridge *agent.Bridge
	channel := fallback
	if cfg.Agent.Command != "" {
		bridge = agent.NewBridge(cfg.Tools.Shell, cfg.Agent.Command, log)
		channel = bridge
	}

	prompts := tools.NewPromptStore()

	// The stop tools close over the controller pointer, which is assigned
	// once the registry it depends on exists. EndSession runs off the tool
	// goroutine so the result can still reach the model before teardown.
	var controller *usecase.SessionController
	controls := tools.Controls{
		StopTask:      func() { controller.InterruptResponse() },
		StopListening: func() { go controller.EndSession() },
	}

	registry := tools.NewRegistry(log)
	definitions := []tools.Definition{
		tools.EditPromptTool(prompts, rulesEngine, log),
		tools.SendPromptTool(prompts, channel),
		tools.ShellTool(tools.ShellConfig{
			Shell:      cfg.Tools.Shell,
			ExtraPaths: cfg.Tools.ExtraPaths,
			Timeout:    cfg.Tools.ExecTimeout,
		}),
		tools.StopTaskTool(controls),
		tools.StopListeningTool(controls),
	}
	for _, def := range definitions {
		if err := registry.Register(def); err != nil {
			return Services{}, err
		}
	}

	controller = usecase.NewSessionController(
		audio.NewFFmpegCapture(cfg.Audio.RecorderCommand),
		openairt.NewClient(log),
		audio.NewSpeaker(cfg.Audio.WireRate),
		registry,
		prompts,
		eventSink,
		log,
		usecase.Config{
			Audio: ports.AudioConfig{
				SampleRate:  cfg.Audio.CaptureRate,
				Channels:    cfg.Audio.Channels,
				InputFormat: cfg.Audio.InputFormat,
				InputDevice: cfg.Audio.InputDevice,
			},
			Realtime: ports.RealtimeConfig{
				URL:          cfg.OpenAI.RealtimeURL,
				APIKey:       cfg.OpenAI.APIKey,
				Model:        cfg.OpenAI.Model,
				Voice:        cfg.OpenAI.Voice,
				Instructions: cfg.OpenAI.Instructions,
				SampleRate:   cfg.Audio.WireRate,
			},
			ChunkSize: cfg.Audio.ChunkSize,
		},
	)

	return Services{
		Controller:  controller,
		Prompts:     prompts,
		AgentBridge: bridge,
		RuleCount:   rulesEngine.Count(),
		Config:      cfg,
	}, nil
}
