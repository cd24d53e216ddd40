package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gspeech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"vaani/internal/audio"
	"vaani/internal/speech"
)

const DefaultGoogleLanguage = "en-IN"

// Google transcribes an utterance with the Cloud Speech-to-Text
// synchronous Recognize call.
type Google struct {
	client       *gspeech.Client
	languageCode string
}

// NewGoogle dials the service. An empty credentialsFile falls back to
// application default credentials.
func NewGoogle(ctx context.Context, languageCode, credentialsFile string) (*Google, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := gspeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}
	if languageCode == "" {
		languageCode = DefaultGoogleLanguage
	}
	return &Google{client: client, languageCode: languageCode}, nil
}

func (g *Google) Name() string { return "google" }

func (g *Google) Close() error { return g.client.Close() }

func (g *Google) RecognizeOnce(ctx context.Context, utterance []int16, lang speech.Language) (speech.Transcript, error) {
	code := languageCode(lang, g.languageCode)

	resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz: audio.SampleRate,
			LanguageCode:    code,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio.Frame(utterance).Bytes()},
		},
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return speech.Transcript{}, err
		}
		if status.Code(err) == codes.InvalidArgument {
			return speech.Transcript{}, fmt.Errorf("%w: google rejected audio: %v", speech.ErrNoSpeech, err)
		}
		return speech.Transcript{}, &speech.ConnectivityError{Backend: g.Name(), Err: err}
	}

	var parts []string
	for _, r := range resp.GetResults() {
		if alts := r.GetAlternatives(); len(alts) > 0 {
			parts = append(parts, alts[0].GetTranscript())
		}
	}

	return speech.Transcript{Text: strings.Join(parts, " "), Final: true}, nil
}

// languageCode maps lang onto a BCP-47 code, keeping the configured English
// locale.
func languageCode(lang speech.Language, english string) string {
	if lang == speech.HI {
		return "hi-IN"
	}
	return english
}
