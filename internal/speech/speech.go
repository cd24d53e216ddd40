// Package speech turns captured audio into finalized transcripts. It offers
// two interchangeable strategies, an on-device streaming recognizer per
// language and a network recognizer for English, and the policy that picks
// one of them for each recognition cycle.
package speech

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"vaani/internal/audio"
)

// Language is the active conversation language.
type Language string

const (
	EN Language = "en"
	HI Language = "hi"
)

// ParseLanguage accepts the short codes used in config and on the control
// socket.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "en", "english":
		return EN, nil
	case "hi", "hindi":
		return HI, nil
	default:
		return "", fmt.Errorf("unknown language %q", s)
	}
}

// Transcript is a recognizer hypothesis. Only Final transcripts are acted
// upon; interim ones may be dropped.
type Transcript struct {
	Text  string
	Final bool
}

// ErrNoSpeech means the recognizer produced nothing usable for this cycle.
var ErrNoSpeech = errors.New("speech: no speech recognized")

// ErrNoModel means no local model is loaded for the requested language.
var ErrNoModel = errors.New("speech: no local model for language")

// ConnectivityError wraps a transport level failure of a remote backend.
// It is always recoverable: the cycle degrades to no speech and the next
// cycle runs locally.
type ConnectivityError struct {
	Backend string
	Err     error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("%s unreachable: %v", e.Backend, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// Streamer is the local capability: frames go in one at a time and a Final
// transcript comes out once the engine decides the utterance has ended.
type Streamer interface {
	Feed(f audio.Frame) (Transcript, error)
	Reset()
	Close() error
}

// activity is implemented by streamers that know whether an utterance is
// in progress even before they have any partial text.
type activity interface {
	InSpeech() bool
}

// Normalize lowercases a transcript, strips edge punctuation and collapses
// whitespace.
func Normalize(text string) string {
	text = strings.ToLower(text)
	text = strings.TrimFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	return strings.Join(strings.Fields(text), " ")
}
