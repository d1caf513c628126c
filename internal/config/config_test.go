package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadUsesRulesFallbackOrder(t *testing.T) {
	home := t.TempDir()
	promptRules := filepath.Join(home, ".config", "voicecontrol", "prompt.rules")
	legacyRules := filepath.Join(home, ".config", "voicecontrol", "substitutions.rules")

	if err := os.MkdirAll(filepath.Dir(legacyRules), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(legacyRules, []byte("a => b\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	t.Setenv("HOME", home)
	t.Setenv("VOICECONTROL_RULES_FILE", "")
	t.Setenv("VOICECONTROL_INSTRUCTIONS_FILE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Rules.Path != legacyRules {
		t.Fatalf("expected legacy fallback, got %q", cfg.Rules.Path)
	}

	if err := os.WriteFile(promptRules, []byte("a => c\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg2, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg2.Rules.Path != promptRules {
		t.Fatalf("expected prompt rules priority, got %q", cfg2.Rules.Path)
	}
}

func TestLoadRespectsOverridesAndFallbacks(t *testing.T) {
	home := t.TempDir()
	rules := filepath.Join(home, "my.rules")
	if err := os.WriteFile(rules, []byte("x => y\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	instructions := filepath.Join(home, "instructions.txt")
	if err := os.WriteFile(instructions, []byte("be terse\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	t.Setenv("HOME", home)
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("VOICECONTROL_REALTIME_URL", "wss://example.com/v1/realtime")
	t.Setenv("VOICECONTROL_MODEL", "gpt-4o-realtime-mini")
	t.Setenv("VOICECONTROL_VOICE", "verse")
	t.Setenv("VOICECONTROL_INSTRUCTIONS_FILE", instructions)
	t.Setenv("VOICECONTROL_FFMPEG_COMMAND", "my-ffmpeg")
	t.Setenv("VOICECONTROL_AUDIO_INPUT_FORMAT", "alsa")
	t.Setenv("VOICECONTROL_CAPTURE_DEVICE", "mic0")
	t.Setenv("VOICECONTROL_CAPTURE_RATE", "48000")
	t.Setenv("VOICECONTROL_CHANNELS", "2")
	t.Setenv("VOICECONTROL_WIRE_RATE", "16000")
	t.Setenv("VOICECONTROL_AUDIO_CHUNK_SIZE", "512")
	t.Setenv("VOICECONTROL_SHELL", "/bin/zsh")
	t.Setenv("VOICECONTROL_TOOL_TIMEOUT_MS", "2500")
	t.Setenv("VOICECONTROL_RULES_FILE", rules)
	t.Setenv("VOICECONTROL_RULE_ITERATION_LIMIT", "42")
	t.Setenv("VOICECONTROL_AGENT_CMD", "claude --print")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.OpenAI.APIKey != "test-key" || cfg.OpenAI.RealtimeURL != "wss://example.com/v1/realtime" {
		t.Fatalf("unexpected openai config: %+v", cfg.OpenAI)
	}
	if cfg.OpenAI.Model != "gpt-4o-realtime-mini" || cfg.OpenAI.Voice != "verse" {
		t.Fatalf("unexpected model/voice: %+v", cfg.OpenAI)
	}
	if cfg.OpenAI.Instructions != "be terse" {
		t.Fatalf("unexpected instructions: %q", cfg.OpenAI.Instructions)
	}
	if cfg.Audio.RecorderCommand != "my-ffmpeg" || cfg.Audio.InputFormat != "alsa" || cfg.Audio.InputDevice != "mic0" {
		t.Fatalf("unexpected audio config: %+v", cfg.Audio)
	}
	if cfg.Audio.CaptureRate != 48000 || cfg.Audio.Channels != 2 || cfg.Audio.WireRate != 16000 {
		t.Fatalf("unexpected rates: %+v", cfg.Audio)
	}
	if cfg.Audio.ChunkSize != 512 {
		t.Fatalf("unexpected chunk size: %d", cfg.Audio.ChunkSize)
	}
	if cfg.Tools.Shell != "/bin/zsh" || cfg.Tools.ExecTimeout != 2500*time.Millisecond {
		t.Fatalf("unexpected tools config: %+v", cfg.Tools)
	}
	if cfg.Rules.Path != rules || cfg.Rules.IterationLimit != 42 {
		t.Fatalf("unexpected rules config: %+v", cfg.Rules)
	}
	if cfg.Agent.Command != "claude --print" {
		t.Fatalf("unexpected agent command: %q", cfg.Agent.Command)
	}
}

func TestLoadInvalidNumericValuesFallback(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("VOICECONTROL_INSTRUCTIONS_FILE", "")
	t.Setenv("VOICECONTROL_CAPTURE_RATE", "bad")
	t.Setenv("VOICECONTROL_CHANNELS", "-1")
	t.Setenv("VOICECONTROL_WIRE_RATE", "0")
	t.Setenv("VOICECONTROL_RULE_ITERATION_LIMIT", "0")
	t.Setenv("VOICECONTROL_AUDIO_CHUNK_SIZE", "5")
	t.Setenv("VOICECONTROL_TOOL_TIMEOUT_MS", "-10")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Audio.CaptureRate != 24000 {
		t.Fatalf("expected default capture rate, got %d", cfg.Audio.CaptureRate)
	}
	if cfg.Audio.Channels != 1 {
		t.Fatalf("expected default channels, got %d", cfg.Audio.Channels)
	}
	if cfg.Audio.WireRate != 24000 {
		t.Fatalf("expected default wire rate, got %d", cfg.Audio.WireRate)
	}
	if cfg.Rules.IterationLimit != 30 {
		t.Fatalf("expected default iteration limit, got %d", cfg.Rules.IterationLimit)
	}
	if cfg.Audio.ChunkSize != 4096 {
		t.Fatalf("expected chunk size fallback, got %d", cfg.Audio.ChunkSize)
	}
	if cfg.Tools.ExecTimeout != 0 {
		t.Fatalf("expected unbounded tool timeout, got %s", cfg.Tools.ExecTimeout)
	}
}

func TestLoadMissingInstructionsFileFails(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("VOICECONTROL_INSTRUCTIONS_FILE", filepath.Join(home, "nope.txt"))

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing instructions file")
	}
}
