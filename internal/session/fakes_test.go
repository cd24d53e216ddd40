package session

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"vaani/internal/actions"
	"vaani/internal/audio"
	"vaani/internal/catalog"
	"vaani/internal/dispatch"
	"vaani/internal/events"
	"vaani/internal/intent"
	"vaani/internal/speech"
	"vaani/internal/wake"
)

// step is one scripted recognition result.
type step struct {
	text    string
	err     error
	advance time.Duration // clock time spent before the result
	silent  bool          // hear nothing until Yield fires
}

type fakeRecognizer struct {
	name  string
	clock *clock.Mock
	steps []step
	calls int
}

func (r *fakeRecognizer) Name() string { return r.name }

func (r *fakeRecognizer) Recognize(_ context.Context, _ audio.Stream, opts speech.Options) (speech.Transcript, error) {
	if r.calls >= len(r.steps) {
		return speech.Transcript{}, io.EOF
	}
	s := r.steps[r.calls]
	r.calls++

	if s.advance > 0 {
		r.clock.Add(s.advance)
	}
	if s.silent {
		for range 100000 {
			if opts.Yield != nil && opts.Yield() {
				return speech.Transcript{}, speech.ErrNoSpeech
			}
			r.clock.Add(time.Second)
		}
		return speech.Transcript{}, errors.New("yield never fired")
	}
	if s.err != nil {
		return speech.Transcript{}, s.err
	}
	return speech.Transcript{Text: s.text, Final: true}, nil
}

type fakeSelector struct {
	wake     map[speech.Language]*fakeRecognizer
	command  map[speech.Language]*fakeRecognizer
	remote   *fakeRecognizer
	online   bool
	degraded bool
	degrades int
	kinds    []speech.Kind
}

func (s *fakeSelector) Choose(_ context.Context, lang speech.Language) (speech.Recognizer, speech.Kind, error) {
	kind := speech.Policy(lang, s.online)
	if s.degraded || s.remote == nil {
		kind = speech.KindLocal
	}
	s.degraded = false
	s.kinds = append(s.kinds, kind)

	if kind == speech.KindRemote {
		return s.remote, kind, nil
	}
	r, ok := s.command[lang]
	if !ok {
		return nil, kind, speech.ErrNoModel
	}
	return r, kind, nil
}

func (s *fakeSelector) Local(lang speech.Language) (speech.Recognizer, error) {
	r, ok := s.wake[lang]
	if !ok {
		return nil, speech.ErrNoModel
	}
	return r, nil
}

func (s *fakeSelector) Supports(lang speech.Language) bool {
	_, ok := s.command[lang]
	return ok
}

func (s *fakeSelector) Degrade() {
	s.degraded = true
	s.degrades++
}

type utterance struct {
	lang speech.Language
	text string
	at   time.Time
}

type fakeSpeaker struct {
	clock *clock.Mock
	said  []utterance
}

func (s *fakeSpeaker) Say(_ context.Context, lang speech.Language, text string) error {
	s.said = append(s.said, utterance{lang: lang, text: text, at: s.clock.Now()})
	return nil
}

// spoke returns the time text was first said.
func (s *fakeSpeaker) spoke(text string) (time.Time, bool) {
	for _, u := range s.said {
		if u.text == text {
			return u.at, true
		}
	}
	return time.Time{}, false
}

func (s *fakeSpeaker) count(text string) int {
	n := 0
	for _, u := range s.said {
		if u.text == text {
			n++
		}
	}
	return n
}

type countingSource struct {
	opens, closes int
}

type nopStream struct{ src *countingSource }

func (s nopStream) Read(context.Context) (audio.Frame, error) { return nil, io.EOF }
func (s nopStream) Close() error                               { s.src.closes++; return nil }

func (s *countingSource) Open(context.Context) (audio.Stream, error) {
	s.opens++
	return nopStream{s}, nil
}

type recordPublisher struct {
	mu   sync.Mutex
	msgs []events.Message
}

func (p *recordPublisher) Publish(m events.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, m)
}

func (p *recordPublisher) states() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, m := range p.msgs {
		if m.Kind == events.KindState {
			out = append(out, m.Content)
		}
	}
	return out
}

type nopRunner struct{}

func (nopRunner) Run(context.Context, bool, string, ...string) error { return nil }

type stubSummarizer struct{}

func (stubSummarizer) Summary(context.Context, speech.Language, string) (string, error) {
	return "Go is a programming language.", nil
}

type harness struct {
	t       *testing.T
	clock   *clock.Mock
	start   time.Time
	speaker *fakeSpeaker
	sel     *fakeSelector
	source  *countingSource
	events  *recordPublisher
	opened  []string
	onOpen  func()
	ctrl    *Controller
}

func newHarness(t *testing.T, lang speech.Language) *harness {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))

	h := &harness{
		t:       t,
		clock:   mock,
		start:   mock.Now(),
		speaker: &fakeSpeaker{clock: mock},
		source:  &countingSource{},
		events:  &recordPublisher{},
		sel: &fakeSelector{
			wake:    map[speech.Language]*fakeRecognizer{},
			command: map[speech.Language]*fakeRecognizer{},
		},
	}

	reg, err := actions.NewRegistry(actions.Default(), actions.Deps{
		OpenURL: func(u string) error {
			h.opened = append(h.opened, u)
			if h.onOpen != nil {
				h.onOpen()
			}
			return nil
		},
		Runner:     nopRunner{},
		Summarizer: stubSummarizer{},
		Now:        mock.Now,
	})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	entries := catalog.Default()
	h.ctrl = New(Deps{
		Source:   h.source,
		Selector: h.sel,
		Wake:     wake.New("tom", "टॉम"),
		Matcher:  intent.NewMatcher(entries, intent.DefaultThreshold),
		Table:    dispatch.NewTable(entries),
		Actions:  reg,
		Speaker:  h.speaker,
	}, Options{
		Clock:    mock,
		Timeout:  120 * time.Second,
		Language: lang,
		Events:   h.events,
	})
	return h
}

func (h *harness) rec(name string, steps ...step) *fakeRecognizer {
	return &fakeRecognizer{name: name, clock: h.clock, steps: steps}
}

// script installs wake and command recognizers for lang.
func (h *harness) script(lang speech.Language, wake []step, command []step) {
	h.sel.wake[lang] = h.rec("wake-"+string(lang), wake...)
	h.sel.command[lang] = h.rec("local-"+string(lang), command...)
}

func (h *harness) run() {
	h.t.Helper()
	if err := h.ctrl.Run(context.Background()); err != nil {
		h.t.Fatalf("Run() error = %v", err)
	}
}

func (h *harness) assertSaid(texts ...string) {
	h.t.Helper()
	for _, text := range texts {
		if _, ok := h.speaker.spoke(text); !ok {
			h.t.Errorf("never said %q; said %v", text, h.speaker.texts())
		}
	}
}

func (h *harness) assertNotSaid(texts ...string) {
	h.t.Helper()
	for _, text := range texts {
		if _, ok := h.speaker.spoke(text); ok {
			h.t.Errorf("said %q, want it not said", text)
		}
	}
}

func (s *fakeSpeaker) texts() string {
	var parts []string
	for _, u := range s.said {
		parts = append(parts, u.text)
	}
	return strings.Join(parts, " | ")
}

func words(texts ...string) []step {
	steps := make([]step, len(texts))
	for i, t := range texts {
		steps[i] = step{text: t}
	}
	return steps
}
