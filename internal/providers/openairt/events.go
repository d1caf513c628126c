package openairt

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/felixlunzenfichter/BetterVoiceControl/internal/audio"
	"github.com/felixlunzenfichter/BetterVoiceControl/internal/domain"
)

// envelope probes only the discriminator; the payload is decoded a second
// time into the per-type wire struct.
type envelope struct {
	Type string `json:"type"`
}

type responseCreatedEvent struct {
	Response struct {
		ID string `json:"id"`
	} `json:"response"`
}

type responseDoneEvent struct {
	Response struct {
		ID            string `json:"id"`
		Status        string `json:"status"`
		StatusDetails struct {
			Reason string `json:"reason"`
			Error  struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		} `json:"status_details"`
	} `json:"response"`
}

type deltaEvent struct {
	ResponseID string `json:"response_id"`
	Delta      string `json:"delta"`
}

type textDoneEvent struct {
	ResponseID string `json:"response_id"`
	Text       string `json:"text"`
}

type outputItemDoneEvent struct {
	ResponseID string `json:"response_id"`
	Item       struct {
		ID        string `json:"id"`
		Type      string `json:"type"`
		CallID    string `json:"call_id"`
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"item"`
}

type argsDeltaEvent struct {
	CallID string `json:"call_id"`
	Delta  string `json:"delta"`
}

type argsDoneEvent struct {
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type itemCreatedEvent struct {
	Item struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	} `json:"item"`
}

type errorEvent struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseServerEvent decodes one inbound frame into its domain variant. A nil
// event with nil error means the frame is recognized but carries nothing the
// session acts on. A non-nil error marks a malformed frame; callers log it
// and continue with the next frame.
func ParseServerEvent(payload []byte) (domain.ServerEvent, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}
	if env.Type == "" {
		return nil, errors.New("frame missing type")
	}

	switch env.Type {
	case "response.created":
		var ev responseCreatedEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, decodeErr(env.Type, err)
		}
		return domain.ResponseCreated{ResponseID: ev.Response.ID}, nil

	case "response.done":
		var ev responseDoneEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, decodeErr(env.Type, err)
		}
		detail := ev.Response.StatusDetails.Error.Message
		if detail == "" {
			detail = ev.Response.StatusDetails.Reason
		}
		return domain.ResponseDone{
			ResponseID: ev.Response.ID,
			Status:     ev.Response.Status,
			Detail:     detail,
		}, nil

	case "response.text.delta":
		var ev deltaEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, decodeErr(env.Type, err)
		}
		return domain.TextDelta{ResponseID: ev.ResponseID, Delta: ev.Delta}, nil

	case "response.text.done":
		var ev textDoneEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, decodeErr(env.Type, err)
		}
		return domain.TextDone{ResponseID: ev.ResponseID, Text: ev.Text}, nil

	case "response.audio_transcript.delta":
		var ev deltaEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, decodeErr(env.Type, err)
		}
		return domain.TranscriptDelta{ResponseID: ev.ResponseID, Delta: ev.Delta}, nil

	case "response.audio.delta":
		var ev deltaEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, decodeErr(env.Type, err)
		}
		pcm, err := audio.DecodeBase64(ev.Delta)
		if err != nil {
			return nil, fmt.Errorf("decode %s audio payload: %w", env.Type, err)
		}
		return domain.AudioDelta{ResponseID: ev.ResponseID, PCM: pcm}, nil

	case "response.function_call_arguments.delta":
		var ev argsDeltaEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, decodeErr(env.Type, err)
		}
		return domain.ToolCallArgsDelta{CallID: ev.CallID, Delta: ev.Delta}, nil

	case "response.function_call_arguments.done":
		var ev argsDoneEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, decodeErr(env.Type, err)
		}
		return domain.ToolCallDone{CallID: ev.CallID, Name: ev.Name, Arguments: ev.Arguments}, nil

	case "response.output_item.done":
		var ev outputItemDoneEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, decodeErr(env.Type, err)
		}
		if ev.Item.Type != "function_call" {
			return nil, nil
		}
		return domain.ToolCallDone{CallID: ev.Item.CallID, Name: ev.Item.Name, Arguments: ev.Item.Arguments}, nil

	case "input_audio_buffer.speech_started":
		return domain.SpeechStarted{}, nil

	case "input_audio_buffer.speech_ended", "input_audio_buffer.speech_stopped":
		return domain.SpeechEnded{}, nil

	case "conversation.item.created":
		var ev itemCreatedEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, decodeErr(env.Type, err)
		}
		return domain.ItemCreated{ItemID: ev.Item.ID, ItemType: ev.Item.Type}, nil

	case "error":
		var ev errorEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, decodeErr(env.Type, err)
		}
		code := ev.Error.Code
		if code == "" {
			code = ev.Error.Type
		}
		return domain.ServerError{Code: code, Message: ev.Error.Message}, nil

	default:
		return domain.Unknown{Type: env.Type}, nil
	}
}

func decodeErr(eventType string, err error) error {
	return fmt.Errorf("decode %s event: %w", eventType, err)
}
