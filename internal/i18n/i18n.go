// Package i18n holds everything the assistant says, in English and Hindi.
package i18n

import (
	"fmt"
	"time"

	"vaani/internal/speech"
)

const (
	GreetMorning    = "greet_morning"
	GreetAfternoon  = "greet_afternoon"
	GreetEvening    = "greet_evening"
	GreetAssist     = "greet_assist"
	Starting        = "starting"
	WakeAck         = "wake_ack"
	Timeout         = "timeout"
	NoSpeech        = "no_speech"
	NoMatch         = "no_match"
	Unhandled       = "unhandled"
	Executing       = "executing"
	Searching       = "searching"
	MissingArgument = "missing_argument"
	Switched        = "switched"
	NoModel         = "no_model"
	TimeNow         = "time_now"
	Summary         = "summary"
	Ambiguous       = "ambiguous"
	NotFound        = "not_found"
	ActionFailed    = "action_failed"
	Goodbye         = "goodbye"
)

// Translations for all supported languages.
var translations = map[speech.Language]map[string]string{
	speech.EN: {
		GreetMorning:    "Good morning!",
		GreetAfternoon:  "Good afternoon!",
		GreetEvening:    "Good evening!",
		GreetAssist:     "How can I assist you today?",
		Starting:        "Starting assistant...",
		WakeAck:         "How can I assist you?",
		Timeout:         "I've been inactive for a while. Returning to wake word listening mode.",
		NoSpeech:        "Sorry, I couldn't understand.",
		NoMatch:         "Command not recognized.",
		Unhandled:       "Command recognized but no action defined.",
		Executing:       "Executing %s.",
		Searching:       "Searching %s for %s",
		MissingArgument: "What should I search on %s?",
		Switched:        "Switched to English.",
		NoModel:         "Speech model for %s is not available.",
		TimeNow:         "The current time is %s",
		Summary:         "According to Wikipedia, %s",
		Ambiguous:       "Multiple results found. Please be more specific.",
		NotFound:        "I couldn't find anything about %s.",
		ActionFailed:    "Sorry, that didn't work.",
		Goodbye:         "Goodbye!",
	},
	speech.HI: {
		GreetMorning:    "सुप्रभात!",
		GreetAfternoon:  "नमस्कार!",
		GreetEvening:    "शुभ संध्या!",
		GreetAssist:     "आज मैं आपकी क्या सहायता कर सकता हूँ?",
		Starting:        "सहायक शुरू हो रहा है...",
		WakeAck:         "मैं आपकी क्या सहायता कर सकता हूँ?",
		Timeout:         "काफी देर से कोई आदेश नहीं मिला। वेक वर्ड सुनने पर लौट रहा हूँ।",
		NoSpeech:        "माफ़ कीजिए, मैं समझ नहीं पाया।",
		NoMatch:         "आदेश पहचाना नहीं गया।",
		Unhandled:       "मैं समझ नहीं पाया।",
		Executing:       "%s चला रहा हूँ।",
		Searching:       "%s पर %s खोज रहा हूँ",
		MissingArgument: "%s पर क्या खोजूँ?",
		Switched:        "हिंदी में बदल दिया गया।",
		NoModel:         "%s के लिए भाषा मॉडल उपलब्ध नहीं है।",
		TimeNow:         "अभी का समय है %s",
		Summary:         "विकिपीडिया के अनुसार, %s",
		Ambiguous:       "कई परिणाम मिले। कृपया और स्पष्ट बताइए।",
		NotFound:        "%s के बारे में कुछ नहीं मिला।",
		ActionFailed:    "माफ़ कीजिए, यह काम नहीं हुआ।",
		Goodbye:         "अलविदा!",
	},
}

// T returns the message for key in lang, formatted with args. Missing
// Hindi messages fall back to English, missing keys to the key itself.
func T(lang speech.Language, key string, args ...any) string {
	s, ok := translations[lang][key]
	if !ok {
		s, ok = translations[speech.EN][key]
	}
	if !ok {
		return key
	}
	if len(args) == 0 {
		return s
	}
	return fmt.Sprintf(s, args...)
}

// Greeting picks the time-of-day greeting for t.
func Greeting(lang speech.Language, t time.Time) string {
	switch h := t.Hour(); {
	case h < 12:
		return T(lang, GreetMorning)
	case h < 18:
		return T(lang, GreetAfternoon)
	default:
		return T(lang, GreetEvening)
	}
}

// LanguageName returns display name for a language.
func LanguageName(lang speech.Language) string {
	switch lang {
	case speech.EN:
		return "English"
	case speech.HI:
		return "हिंदी"
	default:
		return string(lang)
	}
}
