package speech

import (
	"context"
	"errors"
	"io"
	"math"
	"testing"

	"vaani/internal/audio"
)

type fakeStreamer struct {
	script []Transcript
	fed    int
	resets int
	speech bool
}

func (f *fakeStreamer) Feed(audio.Frame) (Transcript, error) {
	if f.fed >= len(f.script) {
		f.fed++
		return Transcript{}, nil
	}
	tr := f.script[f.fed]
	f.fed++
	return tr, nil
}

func (f *fakeStreamer) Reset()         { f.resets++ }
func (f *fakeStreamer) Close() error   { return nil }
func (f *fakeStreamer) InSpeech() bool { return f.speech }

type frameStream struct {
	frames []audio.Frame
	errs   []error
	i      int
}

func (s *frameStream) Read(context.Context) (audio.Frame, error) {
	if s.i >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.i]
	var err error
	if s.errs != nil {
		err = s.errs[s.i]
	}
	s.i++
	return f, err
}

func (s *frameStream) Close() error { return nil }

func blank(n int) *frameStream {
	fs := &frameStream{}
	for range n {
		fs.frames = append(fs.frames, make(audio.Frame, audio.BlockSize))
	}
	return fs
}

func tone(amp float64) audio.Frame {
	f := make(audio.Frame, audio.BlockSize)
	for i := range f {
		f[i] = int16(amp * 32767 * math.Sin(2*math.Pi*440*float64(i)/audio.SampleRate))
	}
	return f
}

func TestLocalSkipsEmptyFinals(t *testing.T) {
	eng := &fakeStreamer{script: []Transcript{
		{Text: "open"},
		{Text: "", Final: true},
		{Text: "open you"},
		{Text: "  Open YouTube. ", Final: true},
	}}
	l := NewLocal(EN, eng)

	tr, err := l.Recognize(context.Background(), blank(10), Options{})
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if tr.Text != "open youtube" || !tr.Final {
		t.Errorf("Recognize() = %+v, want final \"open youtube\"", tr)
	}
	if eng.resets != 1 {
		t.Errorf("resets = %d, want 1", eng.resets)
	}
	if eng.fed != 4 {
		t.Errorf("frames fed = %d, want 4", eng.fed)
	}
}

func TestLocalYieldsOnlyWhileSilent(t *testing.T) {
	eng := &fakeStreamer{}
	l := NewLocal(EN, eng)

	_, err := l.Recognize(context.Background(), blank(10), Options{Yield: func() bool { return eng.fed >= 3 }})
	if !errors.Is(err, ErrNoSpeech) {
		t.Fatalf("Recognize() error = %v, want ErrNoSpeech", err)
	}
	if eng.fed != 3 {
		t.Errorf("frames fed = %d, want 3", eng.fed)
	}

	eng = &fakeStreamer{script: []Transcript{
		{Text: "what"},
		{Text: "what time"},
		{Text: "what time is it", Final: true},
	}}
	l = NewLocal(EN, eng)
	tr, err := l.Recognize(context.Background(), blank(10), Options{Yield: func() bool { return eng.fed >= 1 }})
	if err != nil {
		t.Fatalf("Recognize() with speech in progress error = %v", err)
	}
	if tr.Text != "what time is it" {
		t.Errorf("Recognize() = %q, want %q", tr.Text, "what time is it")
	}
}

func TestLocalActivityHoldsYield(t *testing.T) {
	eng := &fakeStreamer{speech: true, script: []Transcript{{}, {}, {Text: "exit", Final: true}}}
	l := NewLocal(HI, eng)

	tr, err := l.Recognize(context.Background(), blank(5), Options{Yield: func() bool { return eng.fed >= 1 }})
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if tr.Text != "exit" {
		t.Errorf("Recognize() = %q, want exit", tr.Text)
	}
}

func TestLocalSkipsOverflow(t *testing.T) {
	eng := &fakeStreamer{script: []Transcript{{Text: "stop", Final: true}}}
	st := &frameStream{
		frames: []audio.Frame{nil, make(audio.Frame, audio.BlockSize)},
		errs:   []error{audio.ErrOverflow, nil},
	}

	tr, err := NewLocal(EN, eng).Recognize(context.Background(), st, Options{})
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if tr.Text != "stop" || eng.fed != 1 {
		t.Errorf("Recognize() = %q after %d feeds, want stop after 1", tr.Text, eng.fed)
	}
}

func TestLocalStreamEnd(t *testing.T) {
	_, err := NewLocal(EN, &fakeStreamer{}).Recognize(context.Background(), blank(2), Options{})
	if !errors.Is(err, io.EOF) {
		t.Errorf("Recognize() error = %v, want io.EOF", err)
	}
}

type fakeBackend struct {
	text  string
	err   error
	calls int
	got   []int16
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) RecognizeOnce(_ context.Context, utt []int16, _ Language) (Transcript, error) {
	b.calls++
	b.got = utt
	return Transcript{Text: b.text, Final: true}, b.err
}

func utteranceStream() *frameStream {
	st := blank(0)
	for range 3 {
		st.frames = append(st.frames, tone(0.3))
	}
	for range 6 {
		st.frames = append(st.frames, make(audio.Frame, audio.BlockSize))
	}
	return st
}

func TestRemoteRecognize(t *testing.T) {
	be := &fakeBackend{text: "Search Google for cats"}
	r := NewRemote(be, 0, 0, 0)

	tr, err := r.Recognize(context.Background(), utteranceStream(), Options{})
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if tr.Text != "search google for cats" {
		t.Errorf("Recognize() = %q, want %q", tr.Text, "search google for cats")
	}
	if be.calls != 1 || len(be.got) == 0 {
		t.Errorf("backend calls = %d with %d samples, want 1 non-empty", be.calls, len(be.got))
	}
}

func TestRemoteEmptyTextIsNoSpeech(t *testing.T) {
	r := NewRemote(&fakeBackend{text: " "}, 0, 0, 0)
	if _, err := r.Recognize(context.Background(), utteranceStream(), Options{}); !errors.Is(err, ErrNoSpeech) {
		t.Errorf("Recognize() error = %v, want ErrNoSpeech", err)
	}
}

func TestRemoteConnectivityError(t *testing.T) {
	be := &fakeBackend{err: &ConnectivityError{Backend: "fake", Err: errors.New("dial tcp: timeout")}}
	_, err := NewRemote(be, 0, 0, 0).Recognize(context.Background(), utteranceStream(), Options{})

	var ce *ConnectivityError
	if !errors.As(err, &ce) {
		t.Errorf("Recognize() error = %v, want ConnectivityError", err)
	}
}

func TestRemoteYieldBeforeSpeech(t *testing.T) {
	be := &fakeBackend{text: "never"}
	_, err := NewRemote(be, 0, 0, 0).Recognize(context.Background(), blank(5), Options{Yield: func() bool { return true }})
	if !errors.Is(err, ErrNoSpeech) {
		t.Errorf("Recognize() error = %v, want ErrNoSpeech", err)
	}
	if be.calls != 0 {
		t.Errorf("backend calls = %d, want 0", be.calls)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  Open YouTube.", "open youtube"},
		{"search   google for\tcats?", "search google for cats"},
		{"", ""},
		{"यूट्यूब खोलो।", "यूट्यूब खोलो"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseLanguage(t *testing.T) {
	for in, want := range map[string]Language{"en": EN, "HI": HI, "hindi": HI, " English ": EN} {
		got, err := ParseLanguage(in)
		if err != nil || got != want {
			t.Errorf("ParseLanguage(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLanguage("fr"); err == nil {
		t.Error("ParseLanguage(fr) error = nil, want error")
	}
}
