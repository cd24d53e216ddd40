package audio

import (
	"context"
	"math"
)

func tone(n int, amp float64) Frame {
	f := make(Frame, n)
	for i := range f {
		f[i] = int16(amp * 32767 * math.Sin(2*math.Pi*440*float64(i)/SampleRate))
	}
	return f
}

func silence(n int) Frame {
	return make(Frame, n)
}

func concat(frames ...Frame) []int16 {
	var out []int16
	for _, f := range frames {
		out = append(out, f...)
	}
	return out
}

// scriptStream returns a fixed sequence of frames and errors.
type scriptStream struct {
	frames []Frame
	errs   []error
	i      int
}

func (s *scriptStream) Read(ctx context.Context) (Frame, error) {
	if s.i >= len(s.frames) {
		return nil, context.Canceled
	}
	f, err := s.frames[s.i], s.errs[s.i]
	s.i++
	return f, err
}

func (s *scriptStream) Close() error { return nil }
