// Package tts speaks text through espeak-ng. Playback is synchronous: Say
// returns once the utterance has been played.
package tts

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <espeak-ng/speak_lib.h>

int
espeak_say(const char *text, const char *voice)
{
	if (!text)
	{ return -1; }

	if (espeak_Initialize(AUDIO_OUTPUT_SYNCH_PLAYBACK, 500, NULL, 0) < 0)
	{ return -2; }

	espeak_VOICE specs = { 0 };
	specs.languages = voice;
	if (espeak_SetVoiceByProperties(&specs) != EE_OK)
	{ espeak_Terminate(); return -3; }

	espeak_Synth(text, 500, 0, 0, 0, espeakCHARS_AUTO, NULL, NULL);
	espeak_Synchronize();
	espeak_Terminate();

	return 0;
}
*/
import "C"

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"unsafe"

	"vaani/internal/speech"
)

// Espeak serializes calls; espeak-ng keeps global state.
type Espeak struct {
	mu     sync.Mutex
	voices map[speech.Language]string
}

func NewEspeak() *Espeak {
	return &Espeak{voices: map[speech.Language]string{speech.EN: "en", speech.HI: "hi"}}
}

func (e *Espeak) Say(ctx context.Context, lang speech.Language, text string) error {
	if text == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	voice, ok := e.voices[lang]
	if !ok {
		voice = "en"
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))
	cvoice := C.CString(voice)
	defer C.free(unsafe.Pointer(cvoice))

	slog.Debug("speaking", "lang", lang, "text", text)

	rc := C.espeak_say(ctext, cvoice)
	if rc != 0 {
		return fmt.Errorf("espeak_say failed: %d", int(rc))
	}

	return nil
}

// Log only logs what would have been said. Used when speech output is
// disabled.
type Log struct{}

func (Log) Say(_ context.Context, lang speech.Language, text string) error {
	slog.Info("say", "lang", lang, "text", text)
	return nil
}
