package usecase

import (
	"github.com/felixlunzenfichter/BetterVoiceControl/internal/ports"
)

// activeSession bundles the per-connection resources the controller tears
// down together.
type activeSession struct {
	cancel     func()
	capture    ports.AudioSession
	stream     ports.RealtimeSession
	dispatcher *dispatcher
	aggregator *responseAggregator
	eventsDone chan struct{}
	audioDone  chan struct{}
}
