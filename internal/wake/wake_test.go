package wake

import (
	"context"
	"errors"
	"io"
	"testing"

	"vaani/internal/audio"
	"vaani/internal/speech"
)

type scriptRecognizer struct {
	texts []string
	calls int
}

func (r *scriptRecognizer) Name() string { return "script" }

func (r *scriptRecognizer) Recognize(_ context.Context, _ audio.Stream, opts speech.Options) (speech.Transcript, error) {
	if opts.Yield != nil && opts.Yield() {
		return speech.Transcript{}, speech.ErrNoSpeech
	}
	if r.calls >= len(r.texts) {
		return speech.Transcript{}, io.EOF
	}
	t := r.texts[r.calls]
	r.calls++
	return speech.Transcript{Text: t, Final: true}, nil
}

func TestHeard(t *testing.T) {
	d := New("tom", "टॉम")
	tests := []struct {
		text string
		want bool
	}{
		{"hey tom", true},
		{"TOM are you there", true},
		{"tomorrow is sunday", true},
		{"open youtube", false},
		{"", false},
		{"सुनो टॉम", true},
	}
	for _, tt := range tests {
		if got := d.Heard(tt.text); got != tt.want {
			t.Errorf("Heard(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestWaitContinuesAcrossUtterances(t *testing.T) {
	rec := &scriptRecognizer{texts: []string{"what is the weather", "okay", "hello tom"}}

	if err := New("tom").Wait(context.Background(), nil, rec, nil); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if rec.calls != 3 {
		t.Errorf("utterances consumed = %d, want 3", rec.calls)
	}
}

func TestWaitNeverWakesWithoutToken(t *testing.T) {
	rec := &scriptRecognizer{texts: []string{"open youtube", "time"}}

	err := New("tom").Wait(context.Background(), nil, rec, nil)
	if !errors.Is(err, io.EOF) {
		t.Errorf("Wait() error = %v, want io.EOF", err)
	}
}

func TestWaitInterrupted(t *testing.T) {
	err := New("tom").Wait(context.Background(), nil, &scriptRecognizer{}, func() bool { return true })
	if !errors.Is(err, ErrInterrupted) {
		t.Errorf("Wait() error = %v, want ErrInterrupted", err)
	}
}
