package usecase

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/felixlunzenfichter/BetterVoiceControl/internal/audio"
	"github.com/felixlunzenfichter/BetterVoiceControl/internal/domain"
	"github.com/felixlunzenfichter/BetterVoiceControl/internal/ports"
)

// pumpCaptureAudio moves microphone frames to the session in capture order,
// resampling to the wire rate when the rates differ. A failed send is
// reported and stops the pump; frames are never dropped silently.
func pumpCaptureAudio(
	capture ports.AudioSession,
	stream ports.RealtimeSession,
	captureRate, wireRate, chunkSize int,
	events ports.EventSink,
	log *slog.Logger,
	done chan struct{},
) {
	defer close(done)

	if chunkSize < 256 {
		chunkSize = 4096
	}

	buf := make([]byte, chunkSize)

	// carry holds a split 16-bit sample across reads so resampling always
	// sees whole samples
	var carry []byte

	for {
		n, err := capture.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if captureRate != wireRate {
				carry = append(carry, chunk...)
				chunk = nil
				// Resample allocates a fresh buffer for two or more whole
				// samples; anything shorter waits for the next read.
				if even := len(carry) &^ 1; even >= 4 {
					chunk = audio.Resample(carry[:even], captureRate, wireRate)
					leftover := copy(carry, carry[even:])
					carry = carry[:leftover]
				}
			}
			if len(chunk) > 0 {
				if sendErr := stream.AppendAudio(chunk); sendErr != nil {
					events.SessionError(domain.ErrorCodeTransmission,
						fmt.Sprintf("failed to stream audio: %v", sendErr))
					return
				}
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				events.SessionError(domain.ErrorCodeAudioDevice,
					fmt.Sprintf("audio capture error: %v", err))
			}
			if len(carry) > 0 {
				log.Debug("capture ended mid-sample, dropping residue", "bytes", len(carry))
			}
			return
		}
	}
}
