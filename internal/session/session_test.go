package session

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"vaani/internal/speech"
)

const (
	wakeAck   = "How can I assist you?"
	timeoutEN = "I've been inactive for a while. Returning to wake word listening mode."
	noSpeech  = "Sorry, I couldn't understand."
)

func TestWakeThenCommand(t *testing.T) {
	h := newHarness(t, speech.EN)
	h.script(speech.EN, words("tom"), words("open youtube"))

	h.run()

	if want := []string{"https://www.youtube.com"}; !slices.Equal(h.opened, want) {
		t.Errorf("opened = %v, want %v", h.opened, want)
	}
	h.assertSaid(wakeAck, "Executing Open Youtube.")

	if state, _ := h.ctrl.Status(); state != Terminated {
		t.Errorf("state = %v, want %v", state, Terminated)
	}
	if h.source.opens != h.source.closes {
		t.Errorf("streams opened %d, closed %d", h.source.opens, h.source.closes)
	}
	want := []string{"active", "dispatching", "active", "terminated"}
	if got := h.events.states(); !slices.Equal(got, want) {
		t.Errorf("states = %v, want %v", got, want)
	}
}

func TestWakeRequiresToken(t *testing.T) {
	h := newHarness(t, speech.EN)
	h.script(speech.EN, words("hello there", "open youtube"), words("open google"))

	h.run()

	if got := h.sel.command[speech.EN].calls; got != 0 {
		t.Errorf("command recognizer ran %d times before wake", got)
	}
	if len(h.opened) != 0 {
		t.Errorf("opened = %v, want nothing", h.opened)
	}
	h.assertNotSaid(wakeAck)
}

func TestActivationStartsDeadline(t *testing.T) {
	h := newHarness(t, speech.EN)
	h.script(speech.EN, words("tom"), []step{{err: speech.ErrNoSpeech, advance: 10 * time.Second}})

	h.run()

	if want := h.start.Add(120 * time.Second); !h.ctrl.Deadline().Equal(want) {
		t.Errorf("deadline = %v, want %v", h.ctrl.Deadline(), want)
	}
	h.assertSaid(noSpeech)
}

func TestInactivityTimeout(t *testing.T) {
	h := newHarness(t, speech.EN)
	h.script(speech.EN, words("tom"), []step{{silent: true}})

	h.run()

	at, ok := h.speaker.spoke(timeoutEN)
	if !ok {
		t.Fatalf("timeout message never said; said %v", h.speaker.texts())
	}
	if want := h.start.Add(120 * time.Second); !at.Equal(want) {
		t.Errorf("timed out at %v, want %v", at, want)
	}
	h.assertNotSaid(noSpeech)

	want := []string{"active", "idle", "terminated"}
	if got := h.events.states(); !slices.Equal(got, want) {
		t.Errorf("states = %v, want %v", got, want)
	}
	if d := h.ctrl.Deadline(); !d.IsZero() {
		t.Errorf("deadline after timeout = %v, want zero", d)
	}
}

func TestCompletedCycleResetsDeadline(t *testing.T) {
	h := newHarness(t, speech.EN)
	h.script(speech.EN, words("tom"), []step{
		{text: "open google", advance: 100 * time.Second},
		{text: "time", advance: 100 * time.Second},
		{silent: true},
	})

	h.run()

	at, ok := h.speaker.spoke(timeoutEN)
	if !ok {
		t.Fatalf("timeout message never said; said %v", h.speaker.texts())
	}
	if want := h.start.Add(320 * time.Second); !at.Equal(want) {
		t.Errorf("timed out at %v, want %v", at, want)
	}
	if want := []string{"https://www.google.com"}; !slices.Equal(h.opened, want) {
		t.Errorf("opened = %v, want %v", h.opened, want)
	}
}

func TestFailedCyclesKeepDeadline(t *testing.T) {
	h := newHarness(t, speech.EN)
	h.script(speech.EN, words("tom"), []step{
		{err: speech.ErrNoSpeech, advance: 30 * time.Second},
		{err: speech.ErrNoSpeech, advance: 30 * time.Second},
		{silent: true},
	})

	h.run()

	if got := h.speaker.count(noSpeech); got != 2 {
		t.Errorf("no speech said %d times, want 2", got)
	}
	at, ok := h.speaker.spoke(timeoutEN)
	if !ok {
		t.Fatalf("timeout message never said")
	}
	if want := h.start.Add(120 * time.Second); !at.Equal(want) {
		t.Errorf("timed out at %v, want %v", at, want)
	}
}

func TestTimeoutWaitsForCycleInProgress(t *testing.T) {
	h := newHarness(t, speech.EN)
	h.script(speech.EN, words("tom"), []step{
		{text: "play some music", advance: 50 * time.Second},
		{text: "search google for", advance: 50 * time.Second},
		{text: "leo", advance: 50 * time.Second},
		{text: "open google"},
	})

	h.run()

	h.assertSaid(
		"Command not recognized.",
		"What should I search on Google?",
		"Command recognized but no action defined.",
	)
	at, ok := h.speaker.spoke(timeoutEN)
	if !ok {
		t.Fatalf("timeout message never said")
	}
	if want := h.start.Add(150 * time.Second); !at.Equal(want) {
		t.Errorf("timed out at %v, want %v", at, want)
	}
	if last := h.speaker.said[len(h.speaker.said)-1].text; last != timeoutEN {
		t.Errorf("last said %q, want the timeout message", last)
	}
	if len(h.opened) != 0 {
		t.Errorf("opened = %v, want nothing after timeout", h.opened)
	}
}

func TestExitTerminates(t *testing.T) {
	h := newHarness(t, speech.EN)
	h.script(speech.EN, words("tom", "tom"), words("exit", "open google"))

	h.run()

	h.assertSaid("Goodbye!")
	if len(h.opened) != 0 {
		t.Errorf("opened = %v after exit", h.opened)
	}
	if got := h.sel.command[speech.EN].calls; got != 1 {
		t.Errorf("command recognizer ran %d times, want 1", got)
	}
	if got := h.sel.wake[speech.EN].calls; got != 1 {
		t.Errorf("wake recognizer ran %d times, want 1", got)
	}
	if state, _ := h.ctrl.Status(); state != Terminated {
		t.Errorf("state = %v, want %v", state, Terminated)
	}
}

func TestSwitchLanguage(t *testing.T) {
	h := newHarness(t, speech.EN)
	h.script(speech.EN, words("tom"), words("switch to hindi", "exit"))
	h.script(speech.HI, nil, words("यूट्यूब खोलो", "अंग्रेजी में स्विच करो"))

	h.run()

	if want := []string{"https://www.youtube.com"}; !slices.Equal(h.opened, want) {
		t.Errorf("opened = %v, want %v", h.opened, want)
	}
	h.assertSaid("हिंदी में बदल दिया गया।", "Switched to English.", "Goodbye!")

	if _, lang := h.ctrl.Status(); lang != speech.EN {
		t.Errorf("lang = %v, want %v", lang, speech.EN)
	}

	for _, u := range h.speaker.said {
		if u.text == "हिंदी में बदल दिया गया।" && u.lang != speech.HI {
			t.Errorf("switch confirmation spoken in %v, want %v", u.lang, speech.HI)
		}
	}
}

func TestSwitchToSameLanguage(t *testing.T) {
	h := newHarness(t, speech.EN)
	h.script(speech.EN, words("tom"), words("switch to english", "exit"))

	h.run()

	h.assertSaid("Switched to English.")
	if _, lang := h.ctrl.Status(); lang != speech.EN {
		t.Errorf("lang = %v, want %v", lang, speech.EN)
	}
}

func TestSwitchWithoutModel(t *testing.T) {
	h := newHarness(t, speech.EN)
	h.script(speech.EN, words("tom"), words("switch to hindi", "exit"))

	h.run()

	h.assertSaid("Speech model for हिंदी is not available.", "Goodbye!")
	if _, lang := h.ctrl.Status(); lang != speech.EN {
		t.Errorf("lang = %v, want %v", lang, speech.EN)
	}
}

func TestRefusedSwitchKeepsDeadline(t *testing.T) {
	h := newHarness(t, speech.EN)
	h.script(speech.EN, words("tom"), []step{
		{text: "switch to hindi", advance: 100 * time.Second},
		{silent: true},
	})

	h.run()

	h.assertSaid("Speech model for हिंदी is not available.")
	at, ok := h.speaker.spoke(timeoutEN)
	if !ok {
		t.Fatalf("timeout message never said")
	}
	if want := h.start.Add(120 * time.Second); !at.Equal(want) {
		t.Errorf("timed out at %v, want %v", at, want)
	}
}

func TestHindiNeverUsesRemote(t *testing.T) {
	h := newHarness(t, speech.HI)
	h.sel.online = true
	h.sel.remote = h.rec("remote-openai", words("open youtube")...)
	h.script(speech.HI, words("टॉम"), words("समय", "यूट्यूब खोलो"))

	h.run()

	if h.sel.remote.calls != 0 {
		t.Errorf("remote recognizer ran %d times for Hindi", h.sel.remote.calls)
	}
	for i, k := range h.sel.kinds {
		if k != speech.KindLocal {
			t.Errorf("cycle %d used %v, want local", i, k)
		}
	}

	found := false
	for _, u := range h.speaker.said {
		if strings.HasPrefix(u.text, "अभी का समय है") {
			found = true
		}
	}
	if !found {
		t.Errorf("time never said in Hindi; said %v", h.speaker.texts())
	}
}

func TestConnectivityErrorDegrades(t *testing.T) {
	h := newHarness(t, speech.EN)
	h.sel.online = true
	h.sel.remote = h.rec("remote-openai", step{err: &speech.ConnectivityError{Backend: "openai", Err: errors.New("dial tcp: timeout")}})
	h.script(speech.EN, words("tom"), words("open google"))

	h.run()

	if h.sel.degrades != 1 {
		t.Errorf("degrades = %d, want 1", h.sel.degrades)
	}
	want := []speech.Kind{speech.KindRemote, speech.KindLocal, speech.KindRemote}
	if !slices.Equal(h.sel.kinds, want) {
		t.Errorf("kinds = %v, want %v", h.sel.kinds, want)
	}
	h.assertSaid(noSpeech)
	if want := []string{"https://www.google.com"}; !slices.Equal(h.opened, want) {
		t.Errorf("opened = %v, want %v", h.opened, want)
	}
}

func TestManualWakeAndQuit(t *testing.T) {
	h := newHarness(t, speech.EN)
	h.script(speech.EN, []step{{silent: true}}, []step{{text: "open google"}, {silent: true}})
	h.onOpen = h.ctrl.Quit

	h.ctrl.Wake()
	h.run()

	h.assertSaid(wakeAck)
	h.assertNotSaid(noSpeech, timeoutEN)
	if want := []string{"https://www.google.com"}; !slices.Equal(h.opened, want) {
		t.Errorf("opened = %v, want %v", h.opened, want)
	}
	if state, _ := h.ctrl.Status(); state != Terminated {
		t.Errorf("state = %v, want %v", state, Terminated)
	}
	if h.clock.Now() != h.start {
		t.Errorf("clock moved to %v; quit should not wait for the deadline", h.clock.Now())
	}
}

func TestSetLanguageRequest(t *testing.T) {
	h := newHarness(t, speech.EN)
	h.script(speech.EN, []step{{silent: true}}, nil)
	h.script(speech.HI, words("टॉम"), words("समय"))

	if err := h.ctrl.SetLanguage("fr"); !errors.Is(err, speech.ErrNoModel) {
		t.Errorf("SetLanguage(fr) error = %v, want ErrNoModel", err)
	}
	if err := h.ctrl.SetLanguage(speech.HI); err != nil {
		t.Fatalf("SetLanguage(hi) error = %v", err)
	}

	h.run()

	h.assertSaid("हिंदी में बदल दिया गया।", "मैं आपकी क्या सहायता कर सकता हूँ?")
	if _, lang := h.ctrl.Status(); lang != speech.HI {
		t.Errorf("lang = %v, want %v", lang, speech.HI)
	}
	if h.sel.wake[speech.EN].calls != 0 {
		t.Errorf("English wake recognizer ran after a language request")
	}
}

func TestGreeting(t *testing.T) {
	h := newHarness(t, speech.EN)
	h.ctrl.greet = true
	h.script(speech.EN, nil, nil)

	h.run()

	want := []string{"Good morning!", "How can I assist you today?", "Starting assistant..."}
	if len(h.speaker.said) != len(want) {
		t.Fatalf("said %v, want %v", h.speaker.texts(), want)
	}
	for i, w := range want {
		if h.speaker.said[i].text != w {
			t.Errorf("said[%d] = %q, want %q", i, h.speaker.said[i].text, w)
		}
	}
}

type countingDucker struct {
	ducks, restores int
}

func (d *countingDucker) Duck(context.Context) error    { d.ducks++; return nil }
func (d *countingDucker) Restore(context.Context) error { d.restores++; return nil }

func TestDuckWhileActive(t *testing.T) {
	h := newHarness(t, speech.EN)
	d := &countingDucker{}
	h.ctrl.duck = d
	h.script(speech.EN, words("tom"), []step{{silent: true}})

	h.run()

	if d.ducks != 1 {
		t.Errorf("ducks = %d, want 1", d.ducks)
	}
	// once on timeout, once when Run returns
	if d.restores != 2 {
		t.Errorf("restores = %d, want 2", d.restores)
	}
}
