package audio

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

// SampleSource replays 16 kHz mono samples as if they were a live device.
// The position is shared by every stream it opens, so consecutive
// recognition cycles continue where the previous one stopped.
type SampleSource struct {
	Block    int
	Realtime bool

	mu      sync.Mutex
	samples []int16
	pos     int
}

// NewSampleSource replays samples that are already 16 kHz mono.
func NewSampleSource(samples []int16) *SampleSource {
	return &SampleSource{
		Block:   BlockSize,
		samples: samples,
	}
}

func (s *SampleSource) Open(ctx context.Context) (Stream, error) {
	return &sampleStream{src: s}, nil
}

func (s *SampleSource) next() (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pos >= len(s.samples) {
		return nil, io.EOF
	}

	block := s.Block
	if block <= 0 {
		block = BlockSize
	}

	end := min(s.pos+block, len(s.samples))

	f := make(Frame, end-s.pos)
	copy(f, s.samples[s.pos:end])
	s.pos = end

	return f, nil
}

type sampleStream struct {
	src    *SampleSource
	closed bool
}

func (st *sampleStream) Read(ctx context.Context) (Frame, error) {
	if st.closed {
		return nil, errors.New("audio: read on closed stream")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := st.src.next()
	if err != nil {
		return nil, err
	}

	if st.src.Realtime {
		t := time.NewTimer(f.Duration())
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	return f, nil
}

func (st *sampleStream) Close() error {
	st.closed = true
	return nil
}
