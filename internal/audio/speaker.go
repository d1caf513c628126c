package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// oto permits a single context per process, so the first Start fixes the
// output rate for the process lifetime. Session restarts reuse it.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoErr  error
)

func sharedOutput(sampleRate int) (*oto.Context, error) {
	otoOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 1,
			Format:       oto.FormatFloat32LE,
			BufferSize:   100 * time.Millisecond,
		})
		if err != nil {
			otoErr = fmt.Errorf("open audio output: %w", err)
			return
		}
		<-ready
		otoCtx = ctx
	})
	return otoCtx, otoErr
}

// Speaker renders model speech through the system output. Samples queue on
// an internal buffer drained by an oto player; Flush drops the queue and
// tears the player down so the next enqueue starts fresh.
type Speaker struct {
	sampleRate int

	mu     sync.Mutex
	ctx    *oto.Context
	player *oto.Player
	queue  *sampleQueue
	closed bool
}

func NewSpeaker(sampleRate int) *Speaker {
	if sampleRate <= 0 {
		sampleRate = 24000
	}
	return &Speaker{sampleRate: sampleRate}
}

// Start prepares the audio device. Starting a running speaker is a no-op.
func (s *Speaker) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("speaker closed")
	}
	if s.ctx != nil {
		return nil
	}
	ctx, err := sharedOutput(s.sampleRate)
	if err != nil {
		return err
	}
	s.ctx = ctx
	return nil
}

// Enqueue queues samples for playback, lazily creating the player on first
// data. It never waits on playback progress; without a started device it
// drops the samples.
func (s *Speaker) Enqueue(samples []float32) {
	if len(samples) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.ctx == nil {
		return
	}
	if s.queue == nil {
		s.queue = newSampleQueue()
	}
	s.queue.Append(floatBytes(samples))
	if s.player == nil {
		s.player = s.ctx.NewPlayer(s.queue)
		s.player.Play()
	}
}

// Flush drops all queued audio and stops the current player immediately.
// The next Enqueue starts a fresh player, so a barge-in cutover leaves no
// residue from the interrupted response.
func (s *Speaker) Flush() {
	s.mu.Lock()
	player := s.player
	queue := s.queue
	s.player = nil
	s.queue = nil
	s.mu.Unlock()

	if queue != nil {
		queue.Drop()
		queue.Shut()
	}
	if player != nil {
		player.Pause()
		player.Reset()
		player.Close()
	}
}

// Queued reports buffered bytes not yet handed to the device.
func (s *Speaker) Queued() int {
	s.mu.Lock()
	queue := s.queue
	s.mu.Unlock()
	if queue == nil {
		return 0
	}
	return queue.Len()
}

func (s *Speaker) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.Flush()
	return nil
}

// sampleQueue is the player-facing buffer. Read blocks until data arrives or
// the queue shuts, so the player idles between responses instead of hitting
// EOF and dying.
type sampleQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []byte
	closed bool
}

func newSampleQueue() *sampleQueue {
	q := &sampleQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *sampleQueue) Append(p []byte) {
	q.mu.Lock()
	if !q.closed {
		q.buf = append(q.buf, p...)
	}
	q.mu.Unlock()
	q.cond.Signal()
}

func (q *sampleQueue) Read(p []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.buf) == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.closed && len(q.buf) == 0 {
		// A shut queue keeps feeding silence; oto's player must never
		// see a short read while it is being torn down.
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}
	n := copy(p, q.buf)
	q.buf = q.buf[n:]
	return n, nil
}

func (q *sampleQueue) Drop() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.buf)
	q.buf = q.buf[:0]
	return n
}

func (q *sampleQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

// Shut wakes any blocked Read and pins the queue empty.
func (q *sampleQueue) Shut() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

func floatBytes(samples []float32) []byte {
	buf := make([]byte, 4*len(samples))
	for i, f := range samples {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}
