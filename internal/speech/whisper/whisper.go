// Package whisper adapts whisper.cpp to speech.Streamer. Whisper is not a
// streaming model, so frames are endpointed locally and each completed
// utterance is transcribed in one pass.
package whisper

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"runtime"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"vaani/internal/audio"
	"vaani/internal/speech"
)

// annotations whisper emits for non-speech, e.g. [BLANK_AUDIO] or (music).
var annotations = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)`)

type Options struct {
	Language string // whisper language code, "en" or "hi"
	Threads  int    // <=0 => NumCPU()
	Prompt   string // optional initial prompt, e.g. the command vocabulary
}

type Engine struct {
	model whisper.Model
	opt   Options
	ep    *audio.Endpointer
}

func New(modelPath string, opt Options) (*Engine, error) {
	if modelPath == "" {
		return nil, errors.New("empty model path")
	}
	m, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	if opt.Threads <= 0 {
		opt.Threads = runtime.NumCPU()
	}
	return &Engine{model: m, opt: opt, ep: audio.NewEndpointer()}, nil
}

func (e *Engine) Feed(f audio.Frame) (speech.Transcript, error) {
	utt, done := e.ep.Push(f)
	if !done {
		return speech.Transcript{}, nil
	}
	text, err := e.transcribe(utt)
	if err != nil {
		return speech.Transcript{}, err
	}
	return speech.Transcript{Text: text, Final: true}, nil
}

// InSpeech reports whether the endpointer is inside an utterance.
func (e *Engine) InSpeech() bool { return e.ep.Speaking() }

func (e *Engine) Reset() { e.ep.Reset() }

func (e *Engine) Close() error {
	if e.model == nil {
		return nil
	}
	return e.model.Close()
}

func (e *Engine) transcribe(samples []int16) (string, error) {
	wctx, err := e.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("new context: %w", err)
	}

	lang := e.opt.Language
	if lang == "" {
		lang = "auto"
	}
	if err := wctx.SetLanguage(lang); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	wctx.SetTranslate(false)
	wctx.SetThreads(uint(e.opt.Threads))
	if e.opt.Prompt != "" {
		wctx.SetInitialPrompt(e.opt.Prompt)
	}

	if err := wctx.Process(audio.Int16ToFloat32(samples), nil, nil, nil); err != nil {
		return "", fmt.Errorf("process: %w", err)
	}

	var parts []string
	for {
		s, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("next segment: %w", err)
		}
		if t := strings.TrimSpace(annotations.ReplaceAllString(s.Text, "")); t != "" {
			parts = append(parts, t)
		}
	}

	return strings.Join(parts, " "), nil
}
