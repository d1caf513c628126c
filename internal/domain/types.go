package domain

// Phase models the relay session lifecycle.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseConnecting    Phase = "connecting"
	PhaseConfiguring   Phase = "configuring"
	PhaseListening     Phase = "listening"
	PhaseModelSpeaking Phase = "model_speaking"
	PhaseExecutingTool Phase = "executing_tool"
	PhaseDisconnected  Phase = "disconnected"
)

// PhaseReason provides a structured reason for phase transitions.
type PhaseReason string

const (
	ReasonStartupComplete PhaseReason = "startup_complete"
	ReasonBeginRequested  PhaseReason = "begin_requested"
	ReasonHandshakeSent   PhaseReason = "handshake_sent"
	ReasonSessionReady    PhaseReason = "session_ready"
	ReasonResponseStarted PhaseReason = "response_started"
	ReasonResponseDone    PhaseReason = "response_done"
	ReasonResponseFailed  PhaseReason = "response_failed"
	ReasonSpeechStarted   PhaseReason = "speech_started"
	ReasonToolDispatched  PhaseReason = "tool_dispatched"
	ReasonToolCompleted   PhaseReason = "tool_completed"
	ReasonStopRequested   PhaseReason = "stop_requested"
	ReasonConnectionLost  PhaseReason = "connection_lost"
)

// ErrorCode identifies non-fatal and fatal backend errors. ProtocolDecode
// and ToolExecution are reserved: decode failures are logged and skipped at
// the transport, and tool failures travel back in-band as result text, so
// neither is raised through SessionError.
type ErrorCode string

const (
	ErrorCodeStartup        ErrorCode = "startup_error"
	ErrorCodeConnection     ErrorCode = "connection_error"
	ErrorCodeTransmission   ErrorCode = "transmission_error"
	ErrorCodeProtocolDecode ErrorCode = "protocol_decode_error"
	ErrorCodeToolArgument   ErrorCode = "tool_argument_error"
	ErrorCodeToolExecution  ErrorCode = "tool_execution_error"
	ErrorCodeAudioDevice    ErrorCode = "audio_device_error"
	ErrorCodeServer         ErrorCode = "server_error"
)

// ToolCall identifies one pending tool invocation requested by the model.
// Args hold the decoded argument payload keyed by parameter name.
type ToolCall struct {
	CallID string         `json:"callId"`
	Name   string         `json:"name"`
	Args   map[string]any `json:"args"`
}

// ToolResult answers a ToolCall. Exactly one result is emitted per call id.
// TriggerResponse marks whether the model should be asked to continue once
// the result has been delivered.
type ToolResult struct {
	CallID          string `json:"callId"`
	Output          string `json:"output"`
	TriggerResponse bool   `json:"-"`
}

// Status summarizes the current runtime status for presentation. Message is
// only set when the backend failed to assemble and no session can start.
type Status struct {
	Phase        Phase  `json:"phase"`
	Active       bool   `json:"active"`
	Prompt       string `json:"prompt"`
	Transcript   string `json:"transcript"`
	ResponseText string `json:"responseText"`
	PendingTools int    `json:"pendingTools"`
	Message      string `json:"message,omitempty"`
}
