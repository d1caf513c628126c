package openairt

import (
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/felixlunzenfichter/BetterVoiceControl/internal/domain"
)

func TestParseServerEventResponseLifecycle(t *testing.T) {
	t.Parallel()

	ev, err := ParseServerEvent([]byte(`{"type":"response.created","response":{"id":"resp_1"}}`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	created, ok := ev.(domain.ResponseCreated)
	if !ok || created.ResponseID != "resp_1" {
		t.Fatalf("unexpected event: %#v", ev)
	}

	ev, err = ParseServerEvent([]byte(`{"type":"response.done","response":{"id":"resp_1","status":"failed","status_details":{"error":{"message":"rate limited"}}}}`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	done, ok := ev.(domain.ResponseDone)
	if !ok || done.Status != "failed" || done.Detail != "rate limited" {
		t.Fatalf("unexpected event: %#v", ev)
	}

	ev, err = ParseServerEvent([]byte(`{"type":"response.done","response":{"id":"resp_2","status":"completed"}}`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if done := ev.(domain.ResponseDone); done.Status != "completed" || done.Detail != "" {
		t.Fatalf("unexpected event: %#v", done)
	}
}

func TestParseServerEventDeltas(t *testing.T) {
	t.Parallel()

	ev, err := ParseServerEvent([]byte(`{"type":"response.text.delta","response_id":"r1","delta":"hel"}`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if text := ev.(domain.TextDelta); text.ResponseID != "r1" || text.Delta != "hel" {
		t.Fatalf("unexpected event: %#v", text)
	}

	ev, err = ParseServerEvent([]byte(`{"type":"response.text.done","response_id":"r1","text":"hello"}`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if text := ev.(domain.TextDone); text.Text != "hello" {
		t.Fatalf("unexpected event: %#v", text)
	}

	ev, err = ParseServerEvent([]byte(`{"type":"response.audio_transcript.delta","response_id":"r1","delta":"hi "}`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if tr := ev.(domain.TranscriptDelta); tr.Delta != "hi " {
		t.Fatalf("unexpected event: %#v", tr)
	}
}

func TestParseServerEventAudioDeltaDecodesBase64(t *testing.T) {
	t.Parallel()

	pcm := []byte{0x00, 0x00, 0xff, 0x7f}
	payload := fmt.Sprintf(`{"type":"response.audio.delta","response_id":"r1","delta":%q}`, base64.StdEncoding.EncodeToString(pcm))

	ev, err := ParseServerEvent([]byte(payload))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	audioEv, ok := ev.(domain.AudioDelta)
	if !ok || audioEv.ResponseID != "r1" {
		t.Fatalf("unexpected event: %#v", ev)
	}
	if len(audioEv.PCM) != 4 || audioEv.PCM[2] != 0xff || audioEv.PCM[3] != 0x7f {
		t.Fatalf("unexpected pcm: %v", audioEv.PCM)
	}
}

func TestParseServerEventAudioDeltaMalformedBase64(t *testing.T) {
	t.Parallel()

	_, err := ParseServerEvent([]byte(`{"type":"response.audio.delta","response_id":"r1","delta":"not base64!"}`))
	if err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestParseServerEventToolCalls(t *testing.T) {
	t.Parallel()

	ev, err := ParseServerEvent([]byte(`{"type":"response.function_call_arguments.delta","call_id":"c1","delta":"{\"com"}`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if delta := ev.(domain.ToolCallArgsDelta); delta.CallID != "c1" {
		t.Fatalf("unexpected event: %#v", delta)
	}

	ev, err = ParseServerEvent([]byte(`{"type":"response.function_call_arguments.done","call_id":"c1","name":"runShellCommand","arguments":"{\"command\":\"ls\"}"}`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	call := ev.(domain.ToolCallDone)
	if call.CallID != "c1" || call.Name != "runShellCommand" || call.Arguments != `{"command":"ls"}` {
		t.Fatalf("unexpected event: %#v", call)
	}

	ev, err = ParseServerEvent([]byte(`{"type":"response.output_item.done","response_id":"r1","item":{"id":"i1","type":"function_call","call_id":"c2","name":"editPrompt","arguments":"{\"prompt\":\"hi\"}"}}`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	call = ev.(domain.ToolCallDone)
	if call.CallID != "c2" || call.Name != "editPrompt" {
		t.Fatalf("unexpected event: %#v", call)
	}
}

func TestParseServerEventNonToolOutputItemIsIgnored(t *testing.T) {
	t.Parallel()

	ev, err := ParseServerEvent([]byte(`{"type":"response.output_item.done","response_id":"r1","item":{"id":"i1","type":"message"}}`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if ev != nil {
		t.Fatalf("expected ignored frame, got %#v", ev)
	}
}

func TestParseServerEventSpeechSignals(t *testing.T) {
	t.Parallel()

	ev, err := ParseServerEvent([]byte(`{"type":"input_audio_buffer.speech_started"}`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if _, ok := ev.(domain.SpeechStarted); !ok {
		t.Fatalf("unexpected event: %#v", ev)
	}

	for _, name := range []string{"input_audio_buffer.speech_ended", "input_audio_buffer.speech_stopped"} {
		ev, err = ParseServerEvent([]byte(`{"type":"` + name + `"}`))
		if err != nil {
			t.Fatalf("parse failed for %s: %v", name, err)
		}
		if _, ok := ev.(domain.SpeechEnded); !ok {
			t.Fatalf("unexpected event for %s: %#v", name, ev)
		}
	}
}

func TestParseServerEventErrorAndAcks(t *testing.T) {
	t.Parallel()

	ev, err := ParseServerEvent([]byte(`{"type":"error","error":{"type":"invalid_request_error","code":"bad_schema","message":"nope"}}`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	srvErr := ev.(domain.ServerError)
	if srvErr.Code != "bad_schema" || srvErr.Message != "nope" {
		t.Fatalf("unexpected event: %#v", srvErr)
	}

	ev, err = ParseServerEvent([]byte(`{"type":"error","error":{"type":"server_error","message":"oops"}}`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if srvErr := ev.(domain.ServerError); srvErr.Code != "server_error" {
		t.Fatalf("expected type fallback for code, got %#v", srvErr)
	}

	ev, err = ParseServerEvent([]byte(`{"type":"conversation.item.created","item":{"id":"i9","type":"function_call_output"}}`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if item := ev.(domain.ItemCreated); item.ItemID != "i9" || item.ItemType != "function_call_output" {
		t.Fatalf("unexpected event: %#v", item)
	}
}

func TestParseServerEventUnknownTypeIsNotFatal(t *testing.T) {
	t.Parallel()

	ev, err := ParseServerEvent([]byte(`{"type":"rate_limits.updated","rate_limits":[]}`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	unknown, ok := ev.(domain.Unknown)
	if !ok || unknown.Type != "rate_limits.updated" {
		t.Fatalf("unexpected event: %#v", ev)
	}
}

func TestParseServerEventMalformedFrames(t *testing.T) {
	t.Parallel()

	cases := []string{
		`{garbage`,
		`"just a string"`,
		`{}`,
		`{"type":""}`,
		`{"type":123}`,
		`{"type":"response.done","response":"not an object"}`,
	}
	for _, payload := range cases {
		if _, err := ParseServerEvent([]byte(payload)); err == nil {
			t.Fatalf("expected error for payload %s", payload)
		}
	}
}
