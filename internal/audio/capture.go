package audio

import (
	"context"
	"errors"
	"time"
)

// ErrSilence is returned by Capture when the caller asked it to yield
// before any speech was heard.
var ErrSilence = errors.New("audio: no speech before yield")

// CaptureOptions tunes a single utterance capture.
type CaptureOptions struct {
	// Calibration is how long ambient noise is sampled before listening.
	Calibration time.Duration
	// Endpointer overrides the default voice activity tuning.
	Endpointer *Endpointer
	// Yield is polled between frames while no speech is in progress; when it
	// returns true the capture gives up with ErrSilence.
	Yield func() bool
}

// Capture reads frames from stream until one complete utterance has been
// heard. Overflowed frames are skipped.
func Capture(ctx context.Context, stream Stream, opts CaptureOptions) ([]int16, error) {
	ep := opts.Endpointer
	if ep == nil {
		ep = NewEndpointer()
	}

	if opts.Calibration > 0 {
		ambient, err := readFor(ctx, stream, opts.Calibration)
		if err != nil {
			return nil, err
		}
		ep.Calibrate(ambient)
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !ep.Speaking() && opts.Yield != nil && opts.Yield() {
			return nil, ErrSilence
		}

		f, err := stream.Read(ctx)
		if errors.Is(err, ErrOverflow) {
			continue
		}
		if err != nil {
			if rest := ep.Flush(); len(rest) > 0 {
				return rest, nil
			}
			return nil, err
		}

		if utt, done := ep.Push(f); done {
			return utt, nil
		}
	}
}

func readFor(ctx context.Context, stream Stream, d time.Duration) ([]Frame, error) {
	var (
		frames []Frame
		got    time.Duration
	)

	for got < d {
		f, err := stream.Read(ctx)
		if errors.Is(err, ErrOverflow) {
			continue
		}
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
		got += f.Duration()
	}

	return frames, nil
}
