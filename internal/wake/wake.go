// Package wake listens for the wake word on the local recognizer.
package wake

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"vaani/internal/audio"
	"vaani/internal/speech"
)

// ErrInterrupted means interrupt fired before the wake word was heard.
var ErrInterrupted = errors.New("wake: interrupted")

// Detector scans final local transcripts for any of its wake words.
type Detector struct {
	words []string
}

func New(words ...string) *Detector {
	d := &Detector{}
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			d.words = append(d.words, w)
		}
	}
	return d
}

// Heard reports whether text contains a wake word, ignoring case.
func (d *Detector) Heard(text string) bool {
	text = strings.ToLower(text)
	for _, w := range d.words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// Wait streams utterances through rec until one contains a wake word. It
// returns nil on detection and ErrInterrupted when interrupt reported true
// while nothing was being heard. Any other error comes from the stream or
// ctx. interrupt may be nil.
func (d *Detector) Wait(ctx context.Context, stream audio.Stream, rec speech.Recognizer, interrupt func() bool) error {
	for {
		tr, err := rec.Recognize(ctx, stream, speech.Options{Yield: interrupt})
		if errors.Is(err, speech.ErrNoSpeech) {
			return ErrInterrupted
		}
		if err != nil {
			return err
		}

		slog.Debug("wake candidate", "text", tr.Text)
		if d.Heard(tr.Text) {
			return nil
		}
	}
}
