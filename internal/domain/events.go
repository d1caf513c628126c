package domain

// ServerEvent is one inbound protocol event, decoded at the transport
// boundary into a closed set of variants. Downstream code type-switches on
// the variant and never re-inspects raw JSON.
type ServerEvent interface {
	serverEvent()
}

// ResponseCreated signals the model started producing a response.
type ResponseCreated struct {
	ResponseID string
}

// ResponseDone closes a response. Status is the protocol status string
// ("completed", "failed", "cancelled", "incomplete"); Detail carries the
// failure description when present.
type ResponseDone struct {
	ResponseID string
	Status     string
	Detail     string
}

// TextDelta is an incremental chunk of model text output.
type TextDelta struct {
	ResponseID string
	Delta      string
}

// TextDone carries the final text of one output item.
type TextDone struct {
	ResponseID string
	Text       string
}

// TranscriptDelta is an incremental chunk of the audio transcript.
type TranscriptDelta struct {
	ResponseID string
	Delta      string
}

// AudioDelta carries one chunk of synthesized speech, already base64-decoded
// into raw 16-bit little-endian PCM.
type AudioDelta struct {
	ResponseID string
	PCM        []byte
}

// ToolCallArgsDelta is an incremental chunk of a tool call's argument blob.
type ToolCallArgsDelta struct {
	CallID string
	Delta  string
}

// ToolCallDone announces a completed tool invocation request. Arguments is
// the full argument blob as a JSON-encoded string; it requires a second
// decode pass against the tool's schema.
type ToolCallDone struct {
	CallID    string
	Name      string
	Arguments string
}

// SpeechStarted signals the user began speaking (barge-in trigger).
type SpeechStarted struct{}

// SpeechEnded signals the user stopped speaking.
type SpeechEnded struct{}

// ItemCreated acknowledges a conversation item.
type ItemCreated struct {
	ItemID   string
	ItemType string
}

// ServerError is a generic error event from the endpoint.
type ServerError struct {
	Code    string
	Message string
}

// Unknown is any event type this client does not understand. It is logged
// and otherwise ignored.
type Unknown struct {
	Type string
}

func (ResponseCreated) serverEvent()   {}
func (ResponseDone) serverEvent()      {}
func (TextDelta) serverEvent()         {}
func (TextDone) serverEvent()          {}
func (TranscriptDelta) serverEvent()   {}
func (AudioDelta) serverEvent()        {}
func (ToolCallArgsDelta) serverEvent() {}
func (ToolCallDone) serverEvent()      {}
func (SpeechStarted) serverEvent()     {}
func (SpeechEnded) serverEvent()       {}
func (ItemCreated) serverEvent()       {}
func (ServerError) serverEvent()       {}
func (Unknown) serverEvent()           {}
