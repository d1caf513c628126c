package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/felixlunzenfichter/BetterVoiceControl/internal/audio"
	"github.com/felixlunzenfichter/BetterVoiceControl/internal/domain"
	"github.com/felixlunzenfichter/BetterVoiceControl/internal/ports"
	"github.com/felixlunzenfichter/BetterVoiceControl/internal/tools"
)

// dispatcher is the protocol state machine. Every phase transition after
// session setup happens on the run goroutine, which serializes inbound
// server events against finished tool results; no other goroutine mutates
// session state.
type dispatcher struct {
	ctx      context.Context
	log      *slog.Logger
	stream   ports.RealtimeSession
	sink     ports.PlaybackSink
	registry *tools.Registry
	events   ports.EventSink
	agg      *responseAggregator

	results   chan domain.ToolResult
	interrupt chan struct{}
	closed    chan struct{}

	stopRequested atomic.Bool

	mu         sync.Mutex
	phase      domain.Phase
	pending    map[string]string
	dispatched map[string]bool
}

func newDispatcher(
	ctx context.Context,
	stream ports.RealtimeSession,
	sink ports.PlaybackSink,
	registry *tools.Registry,
	events ports.EventSink,
	agg *responseAggregator,
	log *slog.Logger,
) *dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &dispatcher{
		ctx:        ctx,
		log:        log,
		stream:     stream,
		sink:       sink,
		registry:   registry,
		events:     events,
		agg:        agg,
		results:    make(chan domain.ToolResult, 8),
		interrupt:  make(chan struct{}, 1),
		closed:     make(chan struct{}),
		phase:      domain.PhaseConfiguring,
		pending:    make(map[string]string),
		dispatched: make(map[string]bool),
	}
}

// run consumes the session's event stream until it closes. done is closed on
// exit so the controller can join the loop during teardown.
func (d *dispatcher) run(done chan struct{}) {
	defer close(done)
	defer close(d.closed)

	d.setPhase(domain.PhaseListening, domain.ReasonSessionReady)

	events := d.stream.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				d.finish()
				return
			}
			d.handle(ev)
		case result := <-d.results:
			d.completeTool(result)
		case <-d.interrupt:
			d.sink.Flush()
			d.setPhase(d.restingPhase(), domain.ReasonStopRequested)
		}
	}
}

// requestStop marks the upcoming stream closure as user-initiated so the
// session ends idle instead of disconnected.
func (d *dispatcher) requestStop() {
	d.stopRequested.Store(true)
}

// interruptPlayback asks the run goroutine to flush playback and return to
// listening. Safe from any goroutine; coalesces repeated requests.
func (d *dispatcher) interruptPlayback() {
	select {
	case d.interrupt <- struct{}{}:
	default:
	}
}

func (d *dispatcher) handle(ev domain.ServerEvent) {
	switch ev := ev.(type) {
	case domain.ResponseCreated:
		d.agg.Track(ev.ResponseID)
		d.setPhase(domain.PhaseModelSpeaking, domain.ReasonResponseStarted)

	case domain.TextDelta:
		d.agg.AppendText(ev.ResponseID, ev.Delta)
		d.ensureSpeaking()
		d.events.ResponseText(d.agg.ResponseText())

	case domain.TextDone:
		d.agg.SetFinalText(ev.ResponseID, ev.Text)
		d.events.ResponseText(d.agg.ResponseText())

	case domain.TranscriptDelta:
		d.agg.AppendTranscript(ev.ResponseID, ev.Delta)
		d.ensureSpeaking()
		d.events.TranscriptDelta(ev.Delta)

	case domain.AudioDelta:
		if samples := audio.DecodeFloat32(ev.PCM); len(samples) > 0 {
			d.sink.Enqueue(samples)
		}
		d.ensureSpeaking()

	case domain.ToolCallArgsDelta:
		// arguments arrive complete in the done event

	case domain.ToolCallDone:
		d.dispatchTool(ev)

	case domain.SpeechStarted:
		d.sink.Flush()
		if d.phaseSnapshot() == domain.PhaseModelSpeaking {
			d.setPhase(d.restingPhase(), domain.ReasonSpeechStarted)
		}

	case domain.SpeechEnded:
		d.log.Debug("user speech ended")

	case domain.ResponseDone:
		if ev.Status == "failed" {
			detail := ev.Detail
			if detail == "" {
				detail = "response failed"
			}
			d.events.SessionError(domain.ErrorCodeServer, detail)
			d.setPhase(d.restingPhase(), domain.ReasonResponseFailed)
			return
		}
		d.setPhase(d.restingPhase(), domain.ReasonResponseDone)

	case domain.ItemCreated:
		d.log.Debug("conversation item created", "itemId", ev.ItemID, "itemType", ev.ItemType)

	case domain.ServerError:
		d.log.Warn("server reported error", "code", ev.Code, "message", ev.Message)
		d.events.SessionError(domain.ErrorCodeServer, fmt.Sprintf("%s: %s", ev.Code, ev.Message))

	case domain.Unknown:
		d.log.Debug("ignoring unrecognized server event", "type", ev.Type)

	default:
		d.log.Warn("unhandled server event", "event", fmt.Sprintf("%T", ev))
	}
}

// finish runs once the event stream has closed.
func (d *dispatcher) finish() {
	d.mu.Lock()
	abandoned := len(d.pending)
	d.mu.Unlock()
	if abandoned > 0 {
		d.log.Warn("session ended with tool calls still running", "count", abandoned)
	}

	if d.stopRequested.Load() {
		d.setPhase(domain.PhaseIdle, domain.ReasonStopRequested)
		return
	}
	d.setPhase(domain.PhaseDisconnected, domain.ReasonConnectionLost)
	if err := d.stream.Wait(); err != nil {
		d.events.SessionError(domain.ErrorCodeConnection, err.Error())
	}
}

// dispatchTool routes one completed tool invocation to its handler. The
// protocol can deliver the same call through more than one event shape, so
// dispatch is deduplicated by call id. Handlers run on their own goroutine;
// a blocking command must not stall event processing.
func (d *dispatcher) dispatchTool(ev domain.ToolCallDone) {
	d.mu.Lock()
	if d.dispatched[ev.CallID] {
		d.mu.Unlock()
		d.log.Debug("duplicate tool call ignored", "callId", ev.CallID, "tool", ev.Name)
		return
	}
	d.dispatched[ev.CallID] = true
	d.pending[ev.CallID] = ev.Name
	d.mu.Unlock()

	d.events.ToolCallStarted(ev.Name, ev.CallID)
	d.setPhase(domain.PhaseExecutingTool, domain.ReasonToolDispatched)

	args, err := tools.DecodeArgs(ev.Arguments)
	if err != nil {
		d.events.SessionError(domain.ErrorCodeToolArgument,
			fmt.Sprintf("tool %s: %v", ev.Name, err))
		d.completeTool(domain.ToolResult{
			CallID:          ev.CallID,
			Output:          fmt.Sprintf("error: %v", err),
			TriggerResponse: true,
		})
		return
	}

	call := domain.ToolCall{CallID: ev.CallID, Name: ev.Name, Args: args}
	go func() {
		result := d.registry.Execute(d.ctx, call)
		select {
		case d.results <- result:
		case <-d.closed:
		}
	}()
}

// completeTool reports exactly one result per call id back to the model.
func (d *dispatcher) completeTool(result domain.ToolResult) {
	d.mu.Lock()
	name := d.pending[result.CallID]
	delete(d.pending, result.CallID)
	remaining := len(d.pending)
	d.mu.Unlock()

	d.events.ToolCallFinished(name, result.CallID, result.Output)

	if err := d.stream.SendToolResult(result); err != nil {
		d.events.SessionError(domain.ErrorCodeTransmission,
			fmt.Sprintf("failed to send tool result: %v", err))
	} else if result.TriggerResponse {
		if err := d.stream.CreateResponse(); err != nil {
			d.events.SessionError(domain.ErrorCodeTransmission,
				fmt.Sprintf("failed to request response: %v", err))
		}
	}

	if remaining == 0 {
		d.setPhase(domain.PhaseListening, domain.ReasonToolCompleted)
	}
}

// ensureSpeaking moves a listening session into the speaking phase when a
// delta beats its response.created event.
func (d *dispatcher) ensureSpeaking() {
	if d.phaseSnapshot() == domain.PhaseListening {
		d.setPhase(domain.PhaseModelSpeaking, domain.ReasonResponseStarted)
	}
}

func (d *dispatcher) setPhase(phase domain.Phase, reason domain.PhaseReason) {
	d.mu.Lock()
	changed := d.phase != phase
	d.phase = phase
	d.mu.Unlock()
	if changed {
		d.events.PhaseChanged(phase, reason)
	}
}

func (d *dispatcher) phaseSnapshot() domain.Phase {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.phase
}

// restingPhase is where the session settles when a response ends: back to
// executing if tool calls are still in flight, otherwise listening.
func (d *dispatcher) restingPhase() domain.Phase {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.pending) > 0 {
		return domain.PhaseExecutingTool
	}
	return domain.PhaseListening
}

func (d *dispatcher) snapshot() (domain.Phase, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.phase, len(d.pending)
}
