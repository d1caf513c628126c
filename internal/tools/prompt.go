package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/felixlunzenfichter/BetterVoiceControl/internal/ports"
)

// PromptStore holds the session-local prompt text the user dictates into
// before sending it to the agent.
type PromptStore struct {
	mu   sync.Mutex
	text string
}

func NewPromptStore() *PromptStore {
	return &PromptStore{}
}

func (p *PromptStore) Set(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.text = text
}

func (p *PromptStore) Get() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.text
}

// Take returns the current prompt and clears it in one step, so a send
// consumes the prompt exactly once even with concurrent edits.
func (p *PromptStore) Take() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	text := p.text
	p.text = ""
	return text
}

// EditPromptTool replaces the current prompt with dictated text. Rules clean
// up dictation artifacts; a broken rules file falls back to the raw text
// rather than losing the dictation.
func EditPromptTool(store *PromptStore, rules ports.PromptRules, log *slog.Logger) Definition {
	if log == nil {
		log = slog.Default()
	}
	return Definition{
		Name:        "editPrompt",
		Description: "Replace the current prompt with the given text.",
		Parameters: &JSONSchema{
			Type: "object",
			Properties: map[string]Property{
				"prompt": {Type: "string", Description: "The full new prompt text."},
			},
			Required: []string{"prompt"},
		},
		TriggerResponse: true,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			prompt, _ := args["prompt"].(string)
			if rules != nil {
				cleaned, err := rules.Apply(prompt)
				if err != nil {
					log.Warn("prompt rules failed, keeping raw text", "error", err)
				} else {
					prompt = cleaned
				}
			}
			store.Set(prompt)
			return "Prompt updated successfully", nil
		},
	}
}

// SendPromptTool forwards the current prompt to the agent channel and clears
// it. An empty prompt is an error with no side effect; a failed delivery
// restores the prompt so the user can retry by voice.
func SendPromptTool(store *PromptStore, agent ports.AgentChannel) Definition {
	return Definition{
		Name:            "sendPrompt",
		Description:     "Send the current prompt to the coding agent.",
		Parameters:      &JSONSchema{Type: "object"},
		TriggerResponse: true,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			text := store.Take()
			if text == "" {
				return "", errors.New("prompt is empty, nothing to send")
			}
			if agent == nil {
				store.Set(text)
				return "", errors.New("no agent channel configured")
			}
			if err := agent.Deliver(ctx, text); err != nil {
				store.Set(text)
				return "", fmt.Errorf("deliver prompt: %w", err)
			}
			return "Prompt sent successfully", nil
		},
	}
}
