// Package intent maps a free-form transcript onto the closest known
// command phrase.
package intent

import (
	"errors"

	"vaani/internal/catalog"
	"vaani/internal/speech"
)

// DefaultThreshold is the minimum score a candidate needs to be accepted.
const DefaultThreshold = 75

// ErrNoMatch means no candidate reached the threshold.
var ErrNoMatch = errors.New("intent: no command matched")

// KnownCommand is a catalog phrase. Switch is the target language for
// language-switch phrases and empty otherwise.
type KnownCommand struct {
	Canonical string
	Language  speech.Language
	Switch    speech.Language
}

// IsSwitch reports whether matching this command changes the language.
func (c KnownCommand) IsSwitch() bool { return c.Switch != "" }

// Match is the accepted candidate and its score.
type Match struct {
	Command    KnownCommand
	Confidence int
}

type Matcher struct {
	commands  []KnownCommand
	threshold int
}

// NewMatcher keeps the catalog order, which decides ties. A threshold
// outside 1..100 falls back to DefaultThreshold.
func NewMatcher(entries []catalog.Entry, threshold int) *Matcher {
	if threshold <= 0 || threshold > 100 {
		threshold = DefaultThreshold
	}
	m := &Matcher{threshold: threshold}
	for _, e := range entries {
		m.commands = append(m.commands, KnownCommand{
			Canonical: e.Phrase,
			Language:  e.Lang,
			Switch:    e.Switch,
		})
	}
	return m
}

func (m *Matcher) Threshold() int { return m.threshold }

// Candidates returns the phrases considered for lang: the active
// language's commands plus every language-switch phrase, in catalog order.
func (m *Matcher) Candidates(lang speech.Language) []KnownCommand {
	var out []KnownCommand
	for _, c := range m.commands {
		if c.Language == lang || c.IsSwitch() {
			out = append(out, c)
		}
	}
	return out
}

// Match returns the highest scoring candidate. The first candidate in
// catalog order wins a tie. When nothing reaches the threshold the best
// candidate is still returned alongside ErrNoMatch.
func (m *Matcher) Match(text string, lang speech.Language) (Match, error) {
	best := Match{Confidence: -1}
	for _, c := range m.Candidates(lang) {
		if s := Score(text, c.Canonical); s > best.Confidence {
			best = Match{Command: c, Confidence: s}
		}
	}

	if best.Confidence < m.threshold {
		return best, ErrNoMatch
	}
	return best, nil
}
