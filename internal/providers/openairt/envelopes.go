package openairt

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/felixlunzenfichter/BetterVoiceControl/internal/audio"
	"github.com/felixlunzenfichter/BetterVoiceControl/internal/domain"
	"github.com/felixlunzenfichter/BetterVoiceControl/internal/ports"
)

type sessionUpdateEnvelope struct {
	EventID string        `json:"event_id"`
	Type    string        `json:"type"`
	Session sessionConfig `json:"session"`
}

type sessionConfig struct {
	Modalities        []string       `json:"modalities,omitempty"`
	Instructions      string         `json:"instructions,omitempty"`
	Voice             string         `json:"voice,omitempty"`
	InputAudioFormat  string         `json:"input_audio_format,omitempty"`
	OutputAudioFormat string         `json:"output_audio_format,omitempty"`
	TurnDetection     *turnDetection `json:"turn_detection,omitempty"`
	Tools             []toolSchema   `json:"tools,omitempty"`
}

type turnDetection struct {
	Type string `json:"type"`
}

type toolSchema struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

type audioAppendEnvelope struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
	Audio   string `json:"audio"`
}

type itemCreateEnvelope struct {
	EventID string           `json:"event_id"`
	Type    string           `json:"type"`
	Item    conversationItem `json:"item"`
}

type conversationItem struct {
	Type   string `json:"type"`
	CallID string `json:"call_id"`
	Output string `json:"output"`
}

type responseCreateEnvelope struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
}

// buildSessionUpdate declares instructions, audio formats, server-side turn
// detection, and every registered tool schema. This is the configuration
// handshake sent right after the socket opens.
func buildSessionUpdate(cfg ports.RealtimeConfig) ([]byte, error) {
	tools := make([]toolSchema, 0, len(cfg.Tools))
	for _, t := range cfg.Tools {
		tools = append(tools, toolSchema{
			Type:        "function",
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}
	return json.Marshal(sessionUpdateEnvelope{
		EventID: uuid.NewString(),
		Type:    "session.update",
		Session: sessionConfig{
			Modalities:        []string{"text", "audio"},
			Instructions:      cfg.Instructions,
			Voice:             cfg.Voice,
			InputAudioFormat:  "pcm16",
			OutputAudioFormat: "pcm16",
			TurnDetection:     &turnDetection{Type: "server_vad"},
			Tools:             tools,
		},
	})
}

func buildAudioAppend(pcm []byte) ([]byte, error) {
	return json.Marshal(audioAppendEnvelope{
		EventID: uuid.NewString(),
		Type:    "input_audio_buffer.append",
		Audio:   audio.EncodeBase64(pcm),
	})
}

func buildToolOutput(result domain.ToolResult) ([]byte, error) {
	return json.Marshal(itemCreateEnvelope{
		EventID: uuid.NewString(),
		Type:    "conversation.item.create",
		Item: conversationItem{
			Type:   "function_call_output",
			CallID: result.CallID,
			Output: result.Output,
		},
	})
}

func buildResponseCreate() ([]byte, error) {
	return json.Marshal(responseCreateEnvelope{
		EventID: uuid.NewString(),
		Type:    "response.create",
	})
}
