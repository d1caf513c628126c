package usecase

import (
	"strings"
	"sync"
)

// keep the tail of a long session rather than growing without bound
const maxTrackedResponses = 64

// responseAggregator accumulates streamed deltas keyed by response id.
// Deltas for one response apply in arrival order; responses read back in
// start order. The dispatcher is the only writer; Status reads concurrently.
type responseAggregator struct {
	mu    sync.Mutex
	order []string
	byID  map[string]*responseBuffer
}

type responseBuffer struct {
	transcript strings.Builder
	text       strings.Builder
	finalText  string
}

func newResponseAggregator() *responseAggregator {
	return &responseAggregator{byID: make(map[string]*responseBuffer)}
}

// Track registers a response id the moment its lifecycle starts, so delta
// ordering is anchored even when the first delta arrives late.
func (a *responseAggregator) Track(responseID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bufferLocked(responseID)
}

func (a *responseAggregator) AppendTranscript(responseID, delta string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bufferLocked(responseID).transcript.WriteString(delta)
}

func (a *responseAggregator) AppendText(responseID, delta string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bufferLocked(responseID).text.WriteString(delta)
}

// SetFinalText pins the completed text for a response, overriding whatever
// the deltas accumulated.
func (a *responseAggregator) SetFinalText(responseID, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bufferLocked(responseID).finalText = text
}

// Transcript joins every response's spoken transcript in start order.
func (a *responseAggregator) Transcript() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	parts := make([]string, 0, len(a.order))
	for _, id := range a.order {
		if t := strings.TrimSpace(a.byID[id].transcript.String()); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

// ResponseText joins every response's text output in start order, preferring
// the pinned final text where present.
func (a *responseAggregator) ResponseText() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	parts := make([]string, 0, len(a.order))
	for _, id := range a.order {
		buf := a.byID[id]
		text := buf.finalText
		if text == "" {
			text = buf.text.String()
		}
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

func (a *responseAggregator) bufferLocked(responseID string) *responseBuffer {
	if buf, ok := a.byID[responseID]; ok {
		return buf
	}
	buf := &responseBuffer{}
	a.byID[responseID] = buf
	a.order = append(a.order, responseID)
	if len(a.order) > maxTrackedResponses {
		delete(a.byID, a.order[0])
		a.order = a.order[1:]
	}
	return buf
}
