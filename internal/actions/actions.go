// Package actions runs the side effects commands resolve to: opening a
// URL, starting a program, telling the time, reading an encyclopedia
// summary or ending the session. Handlers report what should be said; they
// never speak themselves.
package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/browser"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"vaani/internal/i18n"
	"vaani/internal/speech"
)

type Kind string

const (
	KindURL       Kind = "url"
	KindSearchURL Kind = "search_url"
	KindProgram   Kind = "program"
	KindTime      Kind = "time"
	KindSummary   Kind = "summary"
	KindSay       Kind = "say"
	KindExit      Kind = "exit"
)

// Spec configures one action. Target is a URL, a URL template with a %s
// for the escaped argument, a program name or a text to say, depending on
// Kind. Site names the destination in spoken prompts.
type Spec struct {
	Kind   Kind     `mapstructure:"kind"`
	Target string   `mapstructure:"target"`
	Args   []string `mapstructure:"args"`
	Site   string   `mapstructure:"site"`
	Wait   bool     `mapstructure:"wait"`
}

// Request is one resolved command ready to run.
type Request struct {
	Action   string
	Phrase   string
	Argument string
	Lang     speech.Language
}

// Outcome tells the caller what to say afterwards and whether the session
// should end.
type Outcome struct {
	Say  string
	Exit bool
}

// Runner starts local programs.
type Runner interface {
	Run(ctx context.Context, wait bool, name string, args ...string) error
}

// Summarizer fetches a short encyclopedia summary.
type Summarizer interface {
	Summary(ctx context.Context, lang speech.Language, query string) (string, error)
}

var (
	ErrUnknownAction = errors.New("actions: unknown action")
	ErrAmbiguous     = errors.New("actions: ambiguous query")
	ErrNotFound      = errors.New("actions: nothing found")
)

// Deps are the capabilities handlers call out to. Zero fields get working
// defaults, except Summarizer which disables summary actions when nil.
type Deps struct {
	OpenURL    func(string) error
	Runner     Runner
	Summarizer Summarizer
	Now        func() time.Time
}

type Registry struct {
	specs map[string]Spec
	deps  Deps
}

func NewRegistry(specs map[string]Spec, deps Deps) (*Registry, error) {
	for id, s := range specs {
		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("action %q: %w", id, err)
		}
		if s.Kind == KindSummary && deps.Summarizer == nil {
			return nil, fmt.Errorf("action %q: summary action without a summarizer", id)
		}
	}
	if deps.OpenURL == nil {
		deps.OpenURL = browser.OpenURL
	}
	if deps.Runner == nil {
		deps.Runner = ExecRunner{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Registry{specs: specs, deps: deps}, nil
}

func (s Spec) validate() error {
	switch s.Kind {
	case KindURL, KindProgram, KindSay:
		if s.Target == "" {
			return fmt.Errorf("%s needs a target", s.Kind)
		}
	case KindSearchURL:
		if !strings.Contains(s.Target, "%s") {
			return fmt.Errorf("search_url target %q has no %%s", s.Target)
		}
	case KindTime, KindSummary, KindExit:
	default:
		return fmt.Errorf("unknown kind %q", s.Kind)
	}
	return nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.specs[id]
	return ok
}

// Site returns the display name used in prompts for id.
func (r *Registry) Site(id string) string {
	if s := r.specs[id].Site; s != "" {
		return s
	}
	return id
}

// Acknowledge returns what to say before running req, or "" when the
// action speaks for itself.
func (r *Registry) Acknowledge(req Request) string {
	spec, ok := r.specs[req.Action]
	if !ok {
		return ""
	}
	switch spec.Kind {
	case KindSearchURL, KindSummary:
		return i18n.T(req.Lang, i18n.Searching, r.Site(req.Action), req.Argument)
	case KindURL, KindProgram:
		return i18n.T(req.Lang, i18n.Executing, title(req.Phrase))
	default:
		return ""
	}
}

// Run executes the action named by req.
func (r *Registry) Run(ctx context.Context, req Request) (Outcome, error) {
	spec, ok := r.specs[req.Action]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownAction, req.Action)
	}

	slog.Info("running action", "action", req.Action, "kind", spec.Kind, "argument", req.Argument)

	switch spec.Kind {
	case KindURL:
		return Outcome{}, r.deps.OpenURL(spec.Target)

	case KindSearchURL:
		return Outcome{}, r.deps.OpenURL(fmt.Sprintf(spec.Target, url.QueryEscape(req.Argument)))

	case KindProgram:
		if err := r.deps.Runner.Run(ctx, spec.Wait, spec.Target, spec.Args...); err != nil {
			return Outcome{}, fmt.Errorf("run %s: %w", spec.Target, err)
		}
		return Outcome{}, nil

	case KindTime:
		return Outcome{Say: i18n.T(req.Lang, i18n.TimeNow, r.deps.Now().Format("03:04 PM"))}, nil

	case KindSummary:
		return r.summary(ctx, req)

	case KindSay:
		return Outcome{Say: spec.Target}, nil

	case KindExit:
		return Outcome{Say: i18n.T(req.Lang, i18n.Goodbye), Exit: true}, nil
	}

	return Outcome{}, fmt.Errorf("%w: kind %s", ErrUnknownAction, spec.Kind)
}

func (r *Registry) summary(ctx context.Context, req Request) (Outcome, error) {
	text, err := r.deps.Summarizer.Summary(ctx, req.Lang, req.Argument)
	switch {
	case errors.Is(err, ErrAmbiguous):
		return Outcome{Say: i18n.T(req.Lang, i18n.Ambiguous)}, nil
	case errors.Is(err, ErrNotFound):
		return Outcome{Say: i18n.T(req.Lang, i18n.NotFound, req.Argument)}, nil
	case err != nil:
		return Outcome{}, err
	}
	return Outcome{Say: i18n.T(req.Lang, i18n.Summary, text)}, nil
}

func title(phrase string) string {
	return cases.Title(language.Und).String(phrase)
}
