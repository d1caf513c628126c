package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// defaultInstructions drives the model when no instructions file is
// configured. Kept short: tool schemas carry the per-tool detail.
const defaultInstructions = "You are a hands-free voice controller for this computer. " +
	"The user dictates prompts and commands. Use editPrompt to stage dictated text, " +
	"sendPrompt to hand the staged prompt to the coding agent, runShellCommand for " +
	"direct shell requests, stopTask to interrupt the agent, and stopListening to end " +
	"the session. Confirm actions briefly. Reply in speech unless asked otherwise."

// Config stores runtime configuration for the voice relay.
type Config struct {
	OpenAI OpenAIConfig
	Audio  AudioConfig
	Tools  ToolsConfig
	Rules  RulesConfig
	Agent  AgentConfig
}

type OpenAIConfig struct {
	APIKey       string
	RealtimeURL  string
	Model        string
	Voice        string
	Instructions string
}

type AudioConfig struct {
	RecorderCommand string
	InputFormat     string
	InputDevice     string
	CaptureRate     int
	Channels        int
	WireRate        int
	ChunkSize       int
}

type ToolsConfig struct {
	Shell       string
	ExtraPaths  []string
	ExecTimeout time.Duration
}

type RulesConfig struct {
	Path           string
	IterationLimit int
}

type AgentConfig struct {
	Command string
}

// Load resolves configuration from environment variables and sensible defaults.
func Load() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}

	defaultRules := filepath.Join(home, ".config", "voicecontrol", "prompt.rules")
	legacyRules := filepath.Join(home, ".config", "voicecontrol", "substitutions.rules")
	rulesPath := strings.TrimSpace(os.Getenv("VOICECONTROL_RULES_FILE"))
	if rulesPath == "" {
		rulesPath = firstExisting(defaultRules, legacyRules)
	}

	instructions := defaultInstructions
	if path := strings.TrimSpace(os.Getenv("VOICECONTROL_INSTRUCTIONS_FILE")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read instructions file: %w", err)
		}
		instructions = strings.TrimSpace(string(data))
	}

	cfg := Config{
		OpenAI: OpenAIConfig{
			APIKey:       strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			RealtimeURL:  envOrDefault("VOICECONTROL_REALTIME_URL", "wss://api.openai.com/v1/realtime"),
			Model:        envOrDefault("VOICECONTROL_MODEL", "gpt-4o-realtime-preview"),
			Voice:        envOrDefault("VOICECONTROL_VOICE", "alloy"),
			Instructions: instructions,
		},
		Audio: AudioConfig{
			RecorderCommand: envOrDefault("VOICECONTROL_FFMPEG_COMMAND", "ffmpeg"),
			InputFormat:     envOrDefault("VOICECONTROL_AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice: firstNonEmpty(
				os.Getenv("VOICECONTROL_CAPTURE_DEVICE"),
				os.Getenv("VOICECONTROL_PULSE_SOURCE"),
				"default",
			),
			CaptureRate: envOrDefaultInt("VOICECONTROL_CAPTURE_RATE", 24000),
			Channels:    envOrDefaultInt("VOICECONTROL_CHANNELS", 1),
			WireRate:    envOrDefaultInt("VOICECONTROL_WIRE_RATE", 24000),
			ChunkSize:   envOrDefaultInt("VOICECONTROL_AUDIO_CHUNK_SIZE", 4096),
		},
		Tools: ToolsConfig{
			Shell: firstNonEmpty(
				os.Getenv("VOICECONTROL_SHELL"),
				os.Getenv("SHELL"),
				"/bin/sh",
			),
			ExtraPaths:  extraPaths(home),
			ExecTimeout: time.Duration(envOrDefaultInt("VOICECONTROL_TOOL_TIMEOUT_MS", 0)) * time.Millisecond,
		},
		Rules: RulesConfig{
			Path:           rulesPath,
			IterationLimit: envOrDefaultInt("VOICECONTROL_RULE_ITERATION_LIMIT", 30),
		},
		Agent: AgentConfig{
			Command: strings.TrimSpace(os.Getenv("VOICECONTROL_AGENT_CMD")),
		},
	}

	if cfg.Audio.CaptureRate <= 0 {
		cfg.Audio.CaptureRate = 24000
	}
	if cfg.Audio.WireRate <= 0 {
		cfg.Audio.WireRate = 24000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Audio.ChunkSize < 256 {
		cfg.Audio.ChunkSize = 4096
	}
	if cfg.Tools.ExecTimeout < 0 {
		cfg.Tools.ExecTimeout = 0
	}
	if cfg.Rules.IterationLimit <= 0 {
		cfg.Rules.IterationLimit = 30
	}

	return cfg, nil
}

// extraPaths lists common local install locations appended to the shell
// tool's PATH so dictated commands find user-installed binaries.
func extraPaths(home string) []string {
	paths := []string{
		"/usr/local/bin",
		"/opt/homebrew/bin",
		filepath.Join(home, ".local", "bin"),
		filepath.Join(home, "go", "bin"),
	}
	if extra := strings.TrimSpace(os.Getenv("VOICECONTROL_EXTRA_PATHS")); extra != "" {
		paths = append(paths, filepath.SplitList(extra)...)
	}
	return paths
}

func firstExisting(paths ...string) string {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if len(paths) == 0 {
		return ""
	}
	return paths[0]
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
