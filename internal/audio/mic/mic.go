// Package mic captures frames from the default input device via PortAudio.
package mic

import (
	"context"
	"errors"
	"sync"

	"github.com/gordonklaus/portaudio"

	"vaani/internal/audio"
)

type Source struct {
	block int
}

// New initializes PortAudio. Close must be called to terminate it.
func New(block int) (*Source, error) {
	if block <= 0 {
		block = audio.BlockSize
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, &audio.DeviceError{Op: "init", Err: err}
	}
	return &Source{block: block}, nil
}

func (s *Source) Close() error {
	return portaudio.Terminate()
}

// Open starts a blocking mono PCM16 input stream on the default device.
func (s *Source) Open(ctx context.Context) (audio.Stream, error) {
	buf := make([]int16, s.block)

	stream, err := portaudio.OpenDefaultStream(1, 0, audio.SampleRate, len(buf), buf)
	if err != nil {
		return nil, &audio.DeviceError{Op: "open", Err: err}
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, &audio.DeviceError{Op: "start", Err: err}
	}

	return &micStream{stream: stream, buf: buf}, nil
}

type micStream struct {
	mu     sync.Mutex
	stream *portaudio.Stream
	buf    []int16
}

func (m *micStream) Read(ctx context.Context) (audio.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream == nil {
		return nil, &audio.DeviceError{Op: "read", Err: errors.New("stream closed")}
	}

	if err := m.stream.Read(); err != nil {
		if errors.Is(err, portaudio.InputOverflowed) {
			return nil, audio.ErrOverflow
		}
		return nil, &audio.DeviceError{Op: "read", Err: err}
	}

	f := make(audio.Frame, len(m.buf))
	copy(f, m.buf)
	return f, nil
}

func (m *micStream) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream == nil {
		return nil
	}

	stopErr := m.stream.Stop()
	closeErr := m.stream.Close()
	m.stream = nil

	return errors.Join(stopErr, closeErr)
}
