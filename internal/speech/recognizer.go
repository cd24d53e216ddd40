package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"vaani/internal/audio"
)

// Options control one recognition cycle.
type Options struct {
	// Yield is polled between frames while nothing has been heard yet. A
	// cycle that is already hearing speech always runs to completion.
	Yield func() bool
}

// Recognizer runs one recognition cycle over an open stream.
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, stream audio.Stream, opts Options) (Transcript, error)
}

// Local recognizes on device. It never fails on silence; it keeps feeding
// frames until its engine reports a non-empty final transcript.
type Local struct {
	lang   Language
	engine Streamer
}

func NewLocal(lang Language, engine Streamer) *Local {
	return &Local{lang: lang, engine: engine}
}

func (l *Local) Name() string { return "local-" + string(l.lang) }

func (l *Local) Recognize(ctx context.Context, stream audio.Stream, opts Options) (Transcript, error) {
	l.engine.Reset()
	hearing := false

	for {
		if err := ctx.Err(); err != nil {
			return Transcript{}, err
		}
		if !hearing && opts.Yield != nil && opts.Yield() {
			return Transcript{}, ErrNoSpeech
		}

		f, err := stream.Read(ctx)
		if errors.Is(err, audio.ErrOverflow) {
			slog.Debug("audio overflow, skipping frame", "recognizer", l.Name())
			continue
		}
		if err != nil {
			return Transcript{}, err
		}

		tr, err := l.engine.Feed(f)
		if err != nil {
			return Transcript{}, fmt.Errorf("%s feed: %w", l.Name(), err)
		}

		if tr.Final {
			text := Normalize(tr.Text)
			if text == "" {
				hearing = false
				continue
			}
			return Transcript{Text: text, Final: true}, nil
		}

		hearing = tr.Text != ""
		if a, ok := l.engine.(activity); ok && a.InSpeech() {
			hearing = true
		}
	}
}

// Backend is the remote capability: one blocking request per utterance.
type Backend interface {
	Name() string
	RecognizeOnce(ctx context.Context, utterance []int16, lang Language) (Transcript, error)
}

// Remote captures one utterance, calibrated against ambient noise, and
// sends it to a network backend.
type Remote struct {
	backend     Backend
	calibration time.Duration
	timeout     time.Duration
	maxPhrase   time.Duration
}

func NewRemote(backend Backend, calibration, timeout, maxPhrase time.Duration) *Remote {
	return &Remote{
		backend:     backend,
		calibration: calibration,
		timeout:     timeout,
		maxPhrase:   maxPhrase,
	}
}

func (r *Remote) Name() string { return "remote-" + r.backend.Name() }

func (r *Remote) Recognize(ctx context.Context, stream audio.Stream, opts Options) (Transcript, error) {
	ep := audio.NewEndpointer()
	if r.maxPhrase > 0 {
		ep.MaxLength = r.maxPhrase
	}

	utt, err := audio.Capture(ctx, stream, audio.CaptureOptions{
		Calibration: r.calibration,
		Endpointer:  ep,
		Yield:       opts.Yield,
	})
	if errors.Is(err, audio.ErrSilence) {
		return Transcript{}, ErrNoSpeech
	}
	if err != nil {
		return Transcript{}, err
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	tr, err := r.backend.RecognizeOnce(ctx, utt, EN)
	if err != nil {
		return Transcript{}, err
	}

	text := Normalize(tr.Text)
	if text == "" {
		return Transcript{}, ErrNoSpeech
	}
	return Transcript{Text: text, Final: true}, nil
}
