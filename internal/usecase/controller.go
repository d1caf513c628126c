package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/felixlunzenfichter/BetterVoiceControl/internal/domain"
	"github.com/felixlunzenfichter/BetterVoiceControl/internal/ports"
	"github.com/felixlunzenfichter/BetterVoiceControl/internal/tools"
)

var ErrNoActiveSession = errors.New("no active voice session")

// Config controls session establishment and audio framing. The capture rate
// comes from Audio.SampleRate and the wire rate from Realtime.SampleRate;
// the pump resamples between them.
type Config struct {
	Audio     ports.AudioConfig
	Realtime  ports.RealtimeConfig
	ChunkSize int
}

// SessionController orchestrates the voice session lifecycle: it connects
// the transport, starts capture and playback, and hands the event stream to
// the dispatcher. One session is active at a time; Begin on a live session
// restarts it.
type SessionController struct {
	capture  ports.AudioCapture
	client   ports.RealtimeClient
	sink     ports.PlaybackSink
	registry *tools.Registry
	prompts  *tools.PromptStore
	events   ports.EventSink
	log      *slog.Logger
	cfg      Config

	mu      sync.Mutex
	current *activeSession
}

func NewSessionController(
	capture ports.AudioCapture,
	client ports.RealtimeClient,
	sink ports.PlaybackSink,
	registry *tools.Registry,
	prompts *tools.PromptStore,
	events ports.EventSink,
	log *slog.Logger,
	cfg Config,
) *SessionController {
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	if log == nil {
		log = slog.Default()
	}
	return &SessionController{
		capture:  capture,
		client:   client,
		sink:     sink,
		registry: registry,
		prompts:  prompts,
		events:   events,
		log:      log,
		cfg:      cfg,
	}
}

// Begin starts a fresh session, tearing down any active one first. The tool
// schemas advertised in the handshake are read from the registry at call
// time, so they always match what the dispatcher can route.
func (c *SessionController) Begin(ctx context.Context) error {
	var previous *activeSession

	c.mu.Lock()
	if c.current != nil {
		previous = c.current
		c.current = nil
	}
	c.mu.Unlock()

	if previous != nil {
		c.teardown(previous)
	}

	c.events.PhaseChanged(domain.PhaseConnecting, domain.ReasonBeginRequested)

	sessionCtx, cancel := context.WithCancel(ctx)

	realtimeCfg := c.cfg.Realtime
	realtimeCfg.Tools = c.registry.Definitions()

	stream, err := c.client.Open(sessionCtx, realtimeCfg)
	if err != nil {
		cancel()
		c.events.SessionError(domain.ErrorCodeConnection, err.Error())
		c.events.PhaseChanged(domain.PhaseIdle, domain.ReasonConnectionLost)
		return err
	}
	c.events.PhaseChanged(domain.PhaseConfiguring, domain.ReasonHandshakeSent)

	captureSession, err := c.capture.Start(sessionCtx, c.cfg.Audio)
	if err != nil {
		stream.Close()
		cancel()
		c.events.SessionError(domain.ErrorCodeAudioDevice, err.Error())
		c.events.PhaseChanged(domain.PhaseIdle, domain.ReasonConnectionLost)
		return err
	}

	if err := c.sink.Start(); err != nil {
		// the model still hears us without playback; keep going
		c.log.Warn("playback unavailable", "error", err)
		c.events.SessionError(domain.ErrorCodeAudioDevice,
			fmt.Sprintf("playback unavailable: %v", err))
	}

	aggregator := newResponseAggregator()
	active := &activeSession{
		cancel:     cancel,
		capture:    captureSession,
		stream:     stream,
		dispatcher: newDispatcher(sessionCtx, stream, c.sink, c.registry, c.events, aggregator, c.log),
		aggregator: aggregator,
		eventsDone: make(chan struct{}),
		audioDone:  make(chan struct{}),
	}

	c.mu.Lock()
	c.current = active
	c.mu.Unlock()

	go active.dispatcher.run(active.eventsDone)
	go pumpCaptureAudio(
		captureSession,
		stream,
		c.cfg.Audio.SampleRate,
		c.cfg.Realtime.SampleRate,
		c.cfg.ChunkSize,
		c.events,
		c.log,
		active.audioDone,
	)

	return nil
}

// Stop ends the active session.
func (c *SessionController) Stop() error {
	active, err := c.takeCurrent()
	if err != nil {
		return err
	}
	c.teardown(active)
	return nil
}

// EndSession is Stop for callers that don't care whether a session was
// running, such as the stopListening tool.
func (c *SessionController) EndSession() {
	if err := c.Stop(); err != nil && !errors.Is(err, ErrNoActiveSession) {
		c.log.Warn("failed to end session", "error", err)
	}
}

// InterruptResponse flushes playback and returns the session to listening,
// leaving running tools alone. No-op without an active session.
func (c *SessionController) InterruptResponse() {
	c.mu.Lock()
	active := c.current
	c.mu.Unlock()
	if active != nil {
		active.dispatcher.interruptPlayback()
	}
}

// Status snapshots the current session for presentation.
func (c *SessionController) Status() domain.Status {
	c.mu.Lock()
	active := c.current
	c.mu.Unlock()

	status := domain.Status{Phase: domain.PhaseIdle}
	if c.prompts != nil {
		status.Prompt = c.prompts.Get()
	}
	if active == nil {
		return status
	}

	phase, pending := active.dispatcher.snapshot()
	status.Phase = phase
	status.Active = phase != domain.PhaseIdle && phase != domain.PhaseDisconnected
	status.Transcript = active.aggregator.Transcript()
	status.ResponseText = active.aggregator.ResponseText()
	status.PendingTools = pending
	return status
}

func (c *SessionController) takeCurrent() (*activeSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil, ErrNoActiveSession
	}
	active := c.current
	c.current = nil
	return active, nil
}

// teardown releases a session's resources in dependency order: cancel kills
// in-flight tool processes, stopping capture ends the pump, closing the
// stream ends the dispatcher. Both loops are joined before returning.
func (c *SessionController) teardown(active *activeSession) {
	active.dispatcher.requestStop()
	active.cancel()
	if err := active.capture.Stop(); err != nil {
		c.events.SessionError(domain.ErrorCodeAudioDevice,
			fmt.Sprintf("failed to stop audio capture cleanly: %v", err))
	}
	c.sink.Flush()
	active.stream.Close()
	<-active.eventsDone
	<-active.audioDone
}
