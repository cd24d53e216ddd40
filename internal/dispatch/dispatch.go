// Package dispatch resolves a matched command to the action that serves
// it in the active language.
package dispatch

import (
	"errors"
	"slices"
	"strings"

	"vaani/internal/catalog"
	"vaani/internal/intent"
	"vaani/internal/speech"
)

var (
	// ErrUnhandled means the phrase is known but has no action in the
	// active language.
	ErrUnhandled = errors.New("dispatch: no action for command")
	// ErrMissingArgument means an argument-taking command was spoken with
	// nothing after it.
	ErrMissingArgument = errors.New("dispatch: missing argument")
)

// ActionSpec is what the table stores per phrase.
type ActionSpec struct {
	ID            string
	TakesArgument bool
}

// Resolution is a dispatchable action with its argument, if any.
type Resolution struct {
	Phrase   string
	Action   string
	Argument string
}

type key struct {
	phrase string
	lang   speech.Language
}

type Table struct {
	actions map[key]ActionSpec
}

// NewTable indexes every entry that names an action. Switch phrases and
// phrases without an action are left out and resolve to ErrUnhandled.
func NewTable(entries []catalog.Entry) *Table {
	t := &Table{actions: make(map[key]ActionSpec)}
	for _, e := range entries {
		if e.Switch != "" || e.Action == "" {
			continue
		}
		t.actions[key{e.Phrase, e.Lang}] = ActionSpec{ID: e.Action, TakesArgument: e.Argument}
	}
	return t
}

// Lookup returns the action mapped to phrase in lang.
func (t *Table) Lookup(phrase string, lang speech.Language) (ActionSpec, bool) {
	spec, ok := t.actions[key{phrase, lang}]
	return spec, ok
}

// Actions lists the distinct action IDs in the table.
func (t *Table) Actions() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, spec := range t.actions {
		if !seen[spec.ID] {
			seen[spec.ID] = true
			ids = append(ids, spec.ID)
		}
	}
	return ids
}

// Resolve maps cmd in lang to its action. For argument-taking commands the
// argument is cut out of transcript; an empty one yields a Resolution
// naming the action together with ErrMissingArgument.
func (t *Table) Resolve(cmd intent.KnownCommand, lang speech.Language, transcript string) (Resolution, error) {
	spec, ok := t.Lookup(cmd.Canonical, lang)
	if !ok {
		return Resolution{Phrase: cmd.Canonical}, ErrUnhandled
	}

	res := Resolution{Phrase: cmd.Canonical, Action: spec.ID}
	if !spec.TakesArgument {
		return res, nil
	}

	res.Argument = Argument(transcript, cmd.Canonical)
	if res.Argument == "" {
		return res, ErrMissingArgument
	}
	return res, nil
}

// Argument removes the matched phrase from transcript and returns what is
// left. The phrase is removed where its words occur verbatim, normally as
// the leading prefix. When the transcript only approximately contains the
// phrase, the leading or trailing run of words that resembles it most is
// dropped instead.
func Argument(transcript, canonical string) string {
	words := strings.Fields(strings.ToLower(transcript))
	phrase := strings.Fields(strings.ToLower(canonical))
	n := len(phrase)
	if n == 0 {
		return strings.Join(words, " ")
	}

	for i := 0; i+n <= len(words); i++ {
		if slices.Equal(words[i:i+n], phrase) {
			rest := slices.Concat(words[:i], words[i+n:])
			return strings.Join(rest, " ")
		}
	}

	if len(words) <= n {
		return ""
	}
	c := strings.Join(phrase, " ")
	head := strings.Join(words[:n], " ")
	tail := strings.Join(words[len(words)-n:], " ")
	if intent.Score(tail, c) > intent.Score(head, c) {
		return strings.Join(words[:len(words)-n], " ")
	}
	return strings.Join(words[n:], " ")
}
