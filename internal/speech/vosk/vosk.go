// Package vosk adapts the Vosk offline recognizer to speech.Streamer.
package vosk

import (
	"encoding/json"
	"fmt"
	"os"

	vosk "github.com/alphacep/vosk-api/go"

	"vaani/internal/audio"
	"vaani/internal/speech"
)

type Engine struct {
	model *vosk.VoskModel
	rec   *vosk.VoskRecognizer
}

// New loads the model directory at path. One Engine serves one language.
func New(path string) (*Engine, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("vosk model not found: %w", err)
	}

	vosk.SetLogLevel(-1)
	model, err := vosk.NewModel(path)
	if err != nil {
		return nil, fmt.Errorf("load vosk model %s: %w", path, err)
	}
	rec, err := vosk.NewRecognizer(model, float64(audio.SampleRate))
	if err != nil {
		model.Free()
		return nil, fmt.Errorf("vosk recognizer: %w", err)
	}
	return &Engine{model: model, rec: rec}, nil
}

type result struct {
	Text    string `json:"text"`
	Partial string `json:"partial"`
}

func (e *Engine) Feed(f audio.Frame) (speech.Transcript, error) {
	if e.rec.AcceptWaveform(f.Bytes()) != 0 {
		var r result
		if err := json.Unmarshal([]byte(e.rec.Result()), &r); err != nil {
			return speech.Transcript{}, fmt.Errorf("decode vosk result: %w", err)
		}
		return speech.Transcript{Text: r.Text, Final: true}, nil
	}

	var r result
	if err := json.Unmarshal([]byte(e.rec.PartialResult()), &r); err != nil {
		return speech.Transcript{}, fmt.Errorf("decode vosk partial: %w", err)
	}
	return speech.Transcript{Text: r.Partial}, nil
}

func (e *Engine) Reset() { e.rec.Reset() }

func (e *Engine) Close() error {
	e.rec.Free()
	e.model.Free()
	return nil
}
