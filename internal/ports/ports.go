package ports

import (
	"context"
	"io"

	"github.com/felixlunzenfichter/BetterVoiceControl/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// PlaybackSink renders decoded model speech. Enqueue must not block on
// playback progress; Flush drops all queued audio immediately; Start on a
// running sink is a no-op.
type PlaybackSink interface {
	Start() error
	Enqueue(samples []float32)
	Flush()
	Close() error
}

// ToolSchema advertises one callable tool to the model. Parameters is a
// JSON-schema object serialized verbatim into the configuration handshake.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  any
}

// RealtimeConfig describes the session to establish with the speech endpoint.
type RealtimeConfig struct {
	URL          string
	APIKey       string
	Model        string
	Voice        string
	Instructions string
	SampleRate   int
	Tools        []ToolSchema
}

// RealtimeSession is an established duplex session. Events delivers decoded
// inbound events and closes when the receive loop stops; Wait reports the
// receive loop's terminal error once the channel has closed.
type RealtimeSession interface {
	AppendAudio(pcm []byte) error
	SendToolResult(result domain.ToolResult) error
	CreateResponse() error
	Events() <-chan domain.ServerEvent
	Wait() error
	Close() error
}

// RealtimeClient opens realtime sessions.
type RealtimeClient interface {
	Open(ctx context.Context, cfg RealtimeConfig) (RealtimeSession, error)
}

// AgentChannel forwards a finished prompt to an external coding agent.
// Delivery is exactly-once per call; implementations do not retry.
type AgentChannel interface {
	Deliver(ctx context.Context, prompt string) error
}

// PromptRules transforms dictated prompt text using deterministic rules.
type PromptRules interface {
	Apply(text string) (string, error)
}

// EventSink emits backend state/events to the UI.
type EventSink interface {
	PhaseChanged(phase domain.Phase, reason domain.PhaseReason)
	TranscriptDelta(text string)
	ResponseText(text string)
	ToolCallStarted(name string, callID string)
	ToolCallFinished(name string, callID string, output string)
	SessionError(code domain.ErrorCode, detail string)
}
