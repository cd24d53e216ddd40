// Package session runs the assistant's control loop: wait for the wake
// word, then recognize, match and dispatch commands until the inactivity
// deadline passes or the exit command is given.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"vaani/internal/actions"
	"vaani/internal/audio"
	"vaani/internal/dispatch"
	"vaani/internal/events"
	"vaani/internal/i18n"
	"vaani/internal/intent"
	"vaani/internal/metrics"
	"vaani/internal/speech"
	"vaani/internal/wake"
)

const DefaultTimeout = 120 * time.Second

// Selector picks the recognizer for each cycle.
type Selector interface {
	Choose(ctx context.Context, lang speech.Language) (speech.Recognizer, speech.Kind, error)
	Local(lang speech.Language) (speech.Recognizer, error)
	Supports(lang speech.Language) bool
	Degrade()
}

// Actions runs dispatched commands.
type Actions interface {
	Acknowledge(req actions.Request) string
	Run(ctx context.Context, req actions.Request) (actions.Outcome, error)
	Site(id string) string
}

// Speaker plays text and returns when playback is done.
type Speaker interface {
	Say(ctx context.Context, lang speech.Language, text string) error
}

// Ducker lowers other playback while a session is active.
type Ducker interface {
	Duck(ctx context.Context) error
	Restore(ctx context.Context) error
}

// Deps are the collaborators the controller drives.
type Deps struct {
	Source   audio.Source
	Selector Selector
	Wake     *wake.Detector
	Matcher  *intent.Matcher
	Table    *dispatch.Table
	Actions  Actions
	Speaker  Speaker
}

type Options struct {
	Clock    clock.Clock
	Timeout  time.Duration
	Language speech.Language
	Greet    bool
	Chime    func()
	Duck     Ducker
	Events   events.Publisher
	Metrics  *metrics.Metrics
}

// Controller owns the session state, the active language and the
// inactivity deadline. Only Run mutates them; the deadline timer and the
// control requests merely raise flags that Run polls between frames and
// cycles.
type Controller struct {
	deps    Deps
	clock   clock.Clock
	timeout time.Duration
	greet   bool
	chime   func()
	duck    Ducker
	events  events.Publisher
	metrics *metrics.Metrics

	mu       sync.Mutex
	state    State
	lang     speech.Language
	deadline time.Time
	timer    *clock.Timer
	gen      uint64

	expired  atomic.Bool
	wakeReq  atomic.Bool
	quitReq  atomic.Bool
	langReq  atomic.Pointer[speech.Language]
}

func New(deps Deps, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Language == "" {
		opts.Language = speech.EN
	}
	if opts.Events == nil {
		opts.Events = events.Nop{}
	}
	return &Controller{
		deps:    deps,
		clock:   opts.Clock,
		timeout: opts.Timeout,
		greet:   opts.Greet,
		chime:   opts.Chime,
		duck:    opts.Duck,
		events:  opts.Events,
		metrics: opts.Metrics,
		state:   Idle,
		lang:    opts.Language,
	}
}

// Status reports the current state and language.
func (c *Controller) Status() (State, speech.Language) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.lang
}

// Deadline returns the current inactivity deadline. It is zero while idle.
func (c *Controller) Deadline() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deadline
}

// Wake asks an idle session to become active as if the wake word had been
// heard.
func (c *Controller) Wake() { c.wakeReq.Store(true) }

// Quit asks the session to terminate at the next safe point.
func (c *Controller) Quit() { c.quitReq.Store(true) }

// SetLanguage asks the session to switch language at the next cycle
// boundary.
func (c *Controller) SetLanguage(lang speech.Language) error {
	if !c.deps.Selector.Supports(lang) {
		return fmt.Errorf("%w: %s", speech.ErrNoModel, lang)
	}
	c.langReq.Store(&lang)
	return nil
}

// Run drives the session until it terminates, the audio input ends or ctx
// is cancelled. Exhausted input and the exit command return nil.
func (c *Controller) Run(ctx context.Context) error {
	defer c.stopTimer()
	defer c.restore()

	if c.greet {
		c.greeting(ctx)
	}

	for {
		var err error
		switch state, _ := c.Status(); state {
		case Idle:
			err = c.idle(ctx)
		case Active:
			err = c.cycle(ctx)
		case Terminated:
			return nil
		}

		if errors.Is(err, io.EOF) {
			slog.Info("audio input ended")
			c.transition(Terminated)
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (c *Controller) greeting(ctx context.Context) {
	_, lang := c.Status()
	c.say(ctx, lang, i18n.Greeting(lang, c.clock.Now()))
	c.say(ctx, lang, i18n.T(lang, i18n.GreetAssist))
	c.say(ctx, lang, i18n.T(lang, i18n.Starting))
}

// idle listens for the wake word. Control requests interrupt it while
// nothing is being heard.
func (c *Controller) idle(ctx context.Context) error {
	if c.quitReq.Load() {
		c.transition(Terminated)
		return nil
	}
	c.applyLanguageRequest(ctx)

	_, lang := c.Status()
	rec, err := c.deps.Selector.Local(lang)
	if err != nil {
		return err
	}

	interrupt := func() bool {
		return c.wakeReq.Load() || c.quitReq.Load() || c.langReq.Load() != nil
	}

	err = audio.WithStream(ctx, c.deps.Source, func(st audio.Stream) error {
		return c.deps.Wake.Wait(ctx, st, rec, interrupt)
	})
	switch {
	case err == nil:
		c.activate(ctx, "voice")
	case errors.Is(err, wake.ErrInterrupted):
		if c.wakeReq.Swap(false) {
			c.activate(ctx, "manual")
		}
	default:
		return err
	}
	return nil
}

func (c *Controller) activate(ctx context.Context, source string) {
	c.wakeReq.Store(false)
	slog.Info("wake word detected", "source", source)
	c.metrics.RecordWake(source)
	c.events.Publish(events.Message{Kind: events.KindWake, Content: source})

	if c.chime != nil {
		c.chime()
	}
	if c.duck != nil {
		if err := c.duck.Duck(ctx); err != nil {
			slog.Warn("ducking playback failed", "err", err)
		}
	}
	_, lang := c.Status()
	c.say(ctx, lang, i18n.T(lang, i18n.WakeAck))

	c.transition(Active)
	c.resetDeadline()
}

// cycle runs one recognize, match and dispatch pass.
func (c *Controller) cycle(ctx context.Context) error {
	if c.quitReq.Load() {
		c.transition(Terminated)
		return nil
	}
	if c.timedOut() {
		c.sleep(ctx)
		return nil
	}
	c.applyLanguageRequest(ctx)

	_, lang := c.Status()
	rec, kind, err := c.deps.Selector.Choose(ctx, lang)
	if err != nil {
		return err
	}
	c.metrics.RecordSelection(string(lang), kind.String())
	slog.Debug("listening for command", "lang", lang, "recognizer", rec.Name())

	yield := func() bool { return c.timedOut() || c.quitReq.Load() }

	start := c.clock.Now()
	var tr speech.Transcript
	err = audio.WithStream(ctx, c.deps.Source, func(st audio.Stream) error {
		var err error
		tr, err = rec.Recognize(ctx, st, speech.Options{Yield: yield})
		return err
	})

	outcome, err := c.handle(ctx, lang, tr, err)
	c.metrics.RecordCycle(string(lang), rec.Name(), outcome, c.clock.Since(start))
	return err
}

// handle absorbs every recoverable error of a cycle and reports the cycle
// outcome. Only input and context errors are returned.
func (c *Controller) handle(ctx context.Context, lang speech.Language, tr speech.Transcript, err error) (string, error) {
	var connErr *speech.ConnectivityError
	switch {
	case errors.As(err, &connErr):
		slog.Warn("remote recognition failed", "backend", connErr.Backend, "err", connErr.Err)
		c.deps.Selector.Degrade()
		c.say(ctx, lang, i18n.T(lang, i18n.NoSpeech))
		return "connectivity", nil

	case errors.Is(err, speech.ErrNoSpeech):
		if c.timedOut() || c.quitReq.Load() {
			return "yielded", nil
		}
		slog.Info("no speech recognized")
		c.say(ctx, lang, i18n.T(lang, i18n.NoSpeech))
		return "no_speech", nil

	case err != nil:
		return "error", err
	}

	slog.Info("command heard", "text", tr.Text, "lang", lang)
	c.events.Publish(events.Message{Kind: events.KindTranscript, Content: tr.Text, Meta: map[string]string{"lang": string(lang)}})

	match, err := c.deps.Matcher.Match(tr.Text, lang)
	if errors.Is(err, intent.ErrNoMatch) {
		slog.Info("no command matched", "text", tr.Text, "best", match.Command.Canonical, "score", match.Confidence)
		c.say(ctx, lang, i18n.T(lang, i18n.NoMatch))
		return "no_match", nil
	}

	slog.Info("command matched", "command", match.Command.Canonical, "confidence", match.Confidence)
	c.events.Publish(events.Message{
		Kind:    events.KindMatch,
		Content: match.Command.Canonical,
		Meta:    map[string]string{"confidence": strconv.Itoa(match.Confidence), "lang": string(lang)},
	})

	if match.Command.IsSwitch() {
		c.transition(Dispatching)
		if !c.switchLanguage(ctx, match.Command.Switch) {
			c.transition(Active)
			return "no_model", nil
		}
		c.complete()
		return "switched", nil
	}

	res, err := c.deps.Table.Resolve(match.Command, lang, tr.Text)
	switch {
	case errors.Is(err, dispatch.ErrUnhandled):
		slog.Warn("command has no action", "command", match.Command.Canonical, "lang", lang)
		c.say(ctx, lang, i18n.T(lang, i18n.Unhandled))
		return "unhandled", nil

	case errors.Is(err, dispatch.ErrMissingArgument):
		c.say(ctx, lang, i18n.T(lang, i18n.MissingArgument, c.deps.Actions.Site(res.Action)))
		return "missing_argument", nil
	}

	return c.dispatch(ctx, lang, res)
}

func (c *Controller) dispatch(ctx context.Context, lang speech.Language, res dispatch.Resolution) (string, error) {
	c.transition(Dispatching)

	req := actions.Request{Action: res.Action, Phrase: res.Phrase, Argument: res.Argument, Lang: lang}
	if ack := c.deps.Actions.Acknowledge(req); ack != "" {
		c.say(ctx, lang, ack)
	}

	out, err := c.deps.Actions.Run(ctx, req)
	status := "ok"
	if err != nil {
		status = "error"
		slog.Error("action failed", "action", res.Action, "err", err)
		out.Say = i18n.T(lang, i18n.ActionFailed)
	}
	c.metrics.RecordAction(res.Action, status)
	c.events.Publish(events.Message{Kind: events.KindAction, Content: res.Action, Meta: map[string]string{"status": status}})

	if out.Say != "" {
		c.say(ctx, lang, out.Say)
	}

	if out.Exit {
		c.transition(Terminated)
		return "exit", nil
	}

	c.complete()
	return "dispatched", nil
}

// complete ends a dispatch and restarts the inactivity window.
func (c *Controller) complete() {
	c.transition(Active)
	c.resetDeadline()
}

// switchLanguage reports false when no model exists for to.
func (c *Controller) switchLanguage(ctx context.Context, to speech.Language) bool {
	_, from := c.Status()
	if !c.deps.Selector.Supports(to) {
		slog.Warn("no local model for language", "lang", to)
		c.say(ctx, from, i18n.T(from, i18n.NoModel, i18n.LanguageName(to)))
		return false
	}

	c.mu.Lock()
	c.lang = to
	c.mu.Unlock()

	slog.Info("language switched", "from", from, "to", to)
	c.metrics.RecordSwitch(string(to))
	c.events.Publish(events.Message{Kind: events.KindLanguage, Content: string(to)})
	c.say(ctx, to, i18n.T(to, i18n.Switched))
	return true
}

func (c *Controller) applyLanguageRequest(ctx context.Context) {
	if p := c.langReq.Swap(nil); p != nil {
		if _, cur := c.Status(); cur != *p {
			c.switchLanguage(ctx, *p)
		}
	}
}

// sleep returns an expired session to wake word listening.
func (c *Controller) sleep(ctx context.Context) {
	slog.Info("inactivity timeout", "timeout", c.timeout)
	c.metrics.RecordTimeout()

	_, lang := c.Status()
	c.say(ctx, lang, i18n.T(lang, i18n.Timeout))

	c.stopTimer()
	c.mu.Lock()
	c.deadline = time.Time{}
	c.mu.Unlock()
	c.restore()
	c.transition(Idle)
}

// restore runs on a fresh context so playback comes back even when ctx
// was cancelled.
func (c *Controller) restore() {
	if c.duck == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.duck.Restore(ctx); err != nil {
		slog.Warn("restoring playback failed", "err", err)
	}
}

func (c *Controller) transition(to State) {
	c.mu.Lock()
	from := c.state
	c.state = to
	c.mu.Unlock()

	if from == to {
		return
	}
	slog.Info("session state", "from", from, "to", to)
	c.metrics.SetState(to.String(), allStates())
	c.events.Publish(events.Message{Kind: events.KindState, Content: to.String()})
}

// resetDeadline starts a fresh inactivity window. The timer callback only
// raises the expired flag, and only for the window it was armed for.
func (c *Controller) resetDeadline() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.deadline = c.clock.Now().Add(c.timeout)
	c.expired.Store(false)
	c.timer = c.clock.AfterFunc(c.timeout, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gen == gen {
			c.expired.Store(true)
		}
	})
}

func (c *Controller) stopTimer() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
	c.expired.Store(false)
}

func (c *Controller) timedOut() bool {
	if c.expired.Load() {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.deadline.IsZero() && !c.clock.Now().Before(c.deadline)
}

func (c *Controller) say(ctx context.Context, lang speech.Language, text string) {
	if err := c.deps.Speaker.Say(ctx, lang, text); err != nil {
		slog.Warn("speech output failed", "err", err)
	}
}
