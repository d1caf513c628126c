package audio

import (
	"encoding/base64"
	"encoding/binary"
	"math"
)

// Resample converts 16-bit little-endian mono PCM between sample rates using
// linear interpolation. Sample order is preserved. When the rates already
// match (or the input is too short to interpolate) the input is returned
// unchanged.
func Resample(src []byte, from int, to int) []byte {
	if from <= 0 || to <= 0 || from == to || len(src) < 4 {
		return src
	}
	in := len(src) / 2
	out := int(int64(in) * int64(to) / int64(from))
	if out == 0 {
		return nil
	}
	dst := make([]byte, out*2)
	step := float64(from) / float64(to)
	for i := 0; i < out; i++ {
		pos := float64(i) * step
		idx := int(pos)
		frac := pos - float64(idx)
		if idx >= in {
			idx = in - 1
			frac = 0
		}
		s0 := int16(binary.LittleEndian.Uint16(src[2*idx:]))
		s1 := s0
		if idx+1 < in {
			s1 = int16(binary.LittleEndian.Uint16(src[2*idx+2:]))
		}
		v := float64(s0) + (float64(s1)-float64(s0))*frac
		binary.LittleEndian.PutUint16(dst[2*i:], uint16(int16(math.Round(v))))
	}
	return dst
}

// DecodeFloat32 widens 16-bit signed little-endian samples to normalized
// float32 in [-1, 1]. An odd trailing byte is ignored.
func DecodeFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(pcm[2*i:]))
		out[i] = float32(s) / 32768
	}
	return out
}

// EncodeBase64 wraps raw PCM bytes for a JSON envelope.
func EncodeBase64(pcm []byte) string {
	return base64.StdEncoding.EncodeToString(pcm)
}

// DecodeBase64 unwraps a wire audio payload. Malformed input yields an empty
// buffer alongside the decode error; callers report and skip.
func DecodeBase64(payload string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, err
	}
	return data, nil
}
