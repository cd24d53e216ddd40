// Package remote holds network speech backends for the English remote path.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"vaani/internal/audio"
	"vaani/internal/speech"
)

const DefaultOpenAIModel = openai.AudioModelWhisper1

var encodeWAV = audio.EncodeWAV

// OpenAI transcribes an utterance with the audio transcription API.
type OpenAI struct {
	client openai.Client
	model  openai.AudioModel
}

// NewOpenAI builds a backend. httpClient carries the proxy settings and may
// be nil; extra options are applied last.
func NewOpenAI(apiKey, model string, httpClient *http.Client, extra ...option.RequestOption) *OpenAI {
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	opts = append(opts, extra...)
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAI{client: openai.NewClient(opts...), model: openai.AudioModel(model)}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) RecognizeOnce(ctx context.Context, utterance []int16, lang speech.Language) (speech.Transcript, error) {
	wav, err := encodeWAV(utterance)
	if err != nil {
		return speech.Transcript{}, fmt.Errorf("%w: encode utterance: %v", speech.ErrNoSpeech, err)
	}

	res, err := o.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:     openai.File(bytes.NewReader(wav), "utterance.wav", "audio/wav"),
		Model:    o.model,
		Language: openai.String(string(lang)),
	})
	if err != nil {
		return speech.Transcript{}, classify(o.Name(), err)
	}

	return speech.Transcript{Text: res.Text, Final: true}, nil
}

// classify separates "the service could not make sense of the audio" from
// every other failure, which is treated as the backend being unusable.
func classify(backend string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
		return fmt.Errorf("%w: %s rejected audio: %v", speech.ErrNoSpeech, backend, err)
	}
	return &speech.ConnectivityError{Backend: backend, Err: err}
}
