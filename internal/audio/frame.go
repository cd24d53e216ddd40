// Package audio defines the raw PCM frame stream the assistant listens on
// and the helpers that turn frames into utterances.
package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	// SampleRate is the only rate the pipeline runs at.
	SampleRate = 16000
	// BlockSize is the default number of samples per frame (250ms).
	BlockSize = 4000
)

// ErrOverflow is returned by Stream.Read when the device dropped input
// because the consumer was too slow. The stream stays usable.
var ErrOverflow = errors.New("audio: input overflowed")

// DeviceError reports an unusable capture device.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("audio device %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// Frame is one block of 16-bit mono samples. Frames are never modified
// after they are produced.
type Frame []int16

// Bytes returns the frame as little-endian PCM16.
func (f Frame) Bytes() []byte {
	out := make([]byte, len(f)*2)
	for i, s := range f {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// Float32 returns the frame scaled to [-1, 1].
func (f Frame) Float32() []float32 {
	return Int16ToFloat32(f)
}

// RMS is the root mean square level of the frame in [0, 1].
func (f Frame) RMS() float64 {
	if len(f) == 0 {
		return 0
	}

	var s float64
	for _, x := range f {
		v := float64(x) / 32768.0
		s += v * v
	}
	return math.Sqrt(s / float64(len(f)))
}

// Duration is the playback length of the frame at SampleRate.
func (f Frame) Duration() time.Duration {
	return time.Duration(len(f)) * time.Second / SampleRate
}

// Int16ToFloat32 scales PCM16 samples to [-1, 1].
func Int16ToFloat32(in []int16) []float32 {
	out := make([]float32, len(in))
	const scale = 1.0 / 32768.0
	for i, v := range in {
		out[i] = float32(float64(v) * scale)
	}
	return out
}

// Float32ToInt16 clamps samples to [-1, 1] and converts them to PCM16.
func Float32ToInt16(in []float32) []int16 {
	out := make([]int16, len(in))
	for i, v := range in {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		out[i] = int16(v * math.MaxInt16)
	}
	return out
}

// Stream is an open capture handle. Read blocks until a full frame is
// available; it returns ErrOverflow for a dropped frame and io.EOF once a
// finite input is exhausted.
type Stream interface {
	Read(ctx context.Context) (Frame, error)
	Close() error
}

// Source opens capture streams.
type Source interface {
	Open(ctx context.Context) (Stream, error)
}

// WithStream opens a stream, runs fn and closes the stream on every path.
func WithStream(ctx context.Context, src Source, fn func(Stream) error) (err error) {
	stream, err := src.Open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stream.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return fn(stream)
}
