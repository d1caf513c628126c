package openairt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/felixlunzenfichter/BetterVoiceControl/internal/domain"
	"github.com/felixlunzenfichter/BetterVoiceControl/internal/ports"
)

// Client implements ports.RealtimeClient against the OpenAI realtime
// websocket endpoint.
type Client struct {
	log *slog.Logger
}

func NewClient(log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{log: log}
}

func (c *Client) Open(ctx context.Context, cfg ports.RealtimeConfig) (ports.RealtimeSession, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("OPENAI_API_KEY is not configured")
	}

	wsURL, err := buildSessionURL(cfg.URL, cfg.Model)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+cfg.APIKey)
	headers.Set("OpenAI-Beta", "realtime=v1")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to realtime endpoint: %w", err)
	}

	session := &realtimeSession{
		conn:       conn,
		log:        c.log,
		events:     make(chan domain.ServerEvent, 64),
		outbound:   make(chan []byte, 32),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
		closing:    make(chan struct{}),
	}

	session.wg.Add(2)
	go session.readLoop()
	go session.writeLoop()
	go func() {
		session.wg.Wait()
		close(session.events)
		close(session.done)
		_ = conn.Close()
	}()

	go func() {
		<-ctx.Done()
		_ = session.Close()
	}()

	// Configuration handshake. Best-effort: audio may start streaming before
	// the server acknowledges it.
	handshake, err := buildSessionUpdate(cfg)
	if err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("build session update: %w", err)
	}
	if err := session.send(handshake); err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("send session update: %w", err)
	}

	return session, nil
}

type realtimeSession struct {
	conn *websocket.Conn
	log  *slog.Logger

	events     chan domain.ServerEvent
	outbound   chan []byte
	done       chan struct{}
	writerDone chan struct{}
	closing    chan struct{}

	wg sync.WaitGroup

	errMu sync.Mutex
	err   error

	closeOnce  sync.Once
	sendMu     sync.RWMutex
	sendClosed bool
}

func (s *realtimeSession) AppendAudio(pcm []byte) error {
	if len(pcm) == 0 {
		return nil
	}
	frame, err := buildAudioAppend(pcm)
	if err != nil {
		return fmt.Errorf("build audio append: %w", err)
	}
	return s.send(frame)
}

func (s *realtimeSession) SendToolResult(result domain.ToolResult) error {
	frame, err := buildToolOutput(result)
	if err != nil {
		return fmt.Errorf("build tool output: %w", err)
	}
	return s.send(frame)
}

func (s *realtimeSession) CreateResponse() error {
	frame, err := buildResponseCreate()
	if err != nil {
		return fmt.Errorf("build response trigger: %w", err)
	}
	return s.send(frame)
}

// send queues one JSON frame for the writer goroutine. The RLock is held
// across the enqueue so Close cannot close the channel under a sender.
func (s *realtimeSession) send(frame []byte) error {
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.sendClosed {
		return errors.New("session is closed")
	}

	select {
	case s.outbound <- frame:
		return nil
	case <-s.writerDone:
		if err := s.waitErr(); err != nil {
			return err
		}
		return errors.New("send loop stopped")
	case <-s.done:
		if err := s.waitErr(); err != nil {
			return err
		}
		return errors.New("session closed")
	}
}

func (s *realtimeSession) Events() <-chan domain.ServerEvent {
	return s.events
}

func (s *realtimeSession) Wait() error {
	<-s.done
	return s.waitErr()
}

func (s *realtimeSession) Close() error {
	s.closeOnce.Do(func() {
		close(s.closing)
		// Closing the conn first errors out a writer wedged in WriteMessage,
		// which releases any sender still holding the read lock.
		_ = s.conn.Close()
		s.sendMu.Lock()
		s.sendClosed = true
		close(s.outbound)
		s.sendMu.Unlock()
	})
	<-s.done
	return s.waitErr()
}

func (s *realtimeSession) waitErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *realtimeSession) setErr(err error) {
	if err == nil {
		return
	}
	// A deliberate local close and a clean remote close both end the
	// session without an error condition.
	if errors.Is(err, net.ErrClosed) {
		return
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return
	}

	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *realtimeSession) writeLoop() {
	defer s.wg.Done()
	defer close(s.writerDone)

	for frame := range s.outbound {
		if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			s.setErr(fmt.Errorf("failed to send envelope: %w", err))
			return
		}
	}
}

func (s *realtimeSession) readLoop() {
	defer s.wg.Done()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.setErr(fmt.Errorf("failed to read server event: %w", err))
			return
		}

		event, err := ParseServerEvent(payload)
		if err != nil {
			// A single malformed frame never ends the session.
			s.log.Warn("skipping malformed server frame", "error", err)
			continue
		}
		if event == nil {
			continue
		}
		s.emit(event)
	}
}

// emit delivers losslessly: tool calls and lifecycle events cannot be
// dropped, so backpressure lands here instead of on the floor.
func (s *realtimeSession) emit(event domain.ServerEvent) {
	select {
	case s.events <- event:
	case <-s.closing:
	}
}

func buildSessionURL(raw string, model string) (string, error) {
	base := strings.TrimSpace(raw)
	if base == "" {
		base = "wss://api.openai.com/v1/realtime"
	}
	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}

	endpoint, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid realtime URL: %w", err)
	}
	query := endpoint.Query()
	if model != "" && query.Get("model") == "" {
		query.Set("model", model)
	}
	endpoint.RawQuery = query.Encode()
	return endpoint.String(), nil
}
