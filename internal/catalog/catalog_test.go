package catalog

import (
	"testing"

	"vaani/internal/speech"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("Validate(Default()) = %v", err)
	}
}

func TestDefaultSwitchPhrases(t *testing.T) {
	targets := map[speech.Language]map[speech.Language]bool{}
	for _, e := range Default() {
		if e.Switch == "" {
			continue
		}
		if targets[e.Lang] == nil {
			targets[e.Lang] = map[speech.Language]bool{}
		}
		targets[e.Lang][e.Switch] = true
	}
	for _, from := range []speech.Language{speech.EN, speech.HI} {
		for _, to := range []speech.Language{speech.EN, speech.HI} {
			if !targets[from][to] {
				t.Errorf("no %s phrase switching to %s", from, to)
			}
		}
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
	}{
		{"empty phrase", []Entry{{Lang: speech.EN}}},
		{"bad language", []Entry{{Phrase: "x", Lang: "fr"}}},
		{"switch with action", []Entry{{Phrase: "x", Lang: speech.EN, Switch: speech.HI, Action: Exit}}},
		{"duplicate", []Entry{en("time", Time), en("time", Exit)}},
	}
	for _, tt := range tests {
		if err := Validate(tt.entries); err == nil {
			t.Errorf("%s: Validate() = nil, want error", tt.name)
		}
	}
}
