// Package catalog lists the phrases the assistant understands and the
// action each one resolves to. The same entries feed the intent matcher
// and the dispatch table.
package catalog

import (
	"fmt"

	"vaani/internal/speech"
)

// Entry is one known phrase. Switch is set on language-switch phrases and
// names the target language; Action is empty for phrases that are matched
// but have nothing to run.
type Entry struct {
	Phrase   string          `mapstructure:"phrase"`
	Lang     speech.Language `mapstructure:"lang"`
	Switch   speech.Language `mapstructure:"switch"`
	Action   string          `mapstructure:"action"`
	Argument bool            `mapstructure:"argument"`
}

// Action identifiers of the default catalog.
const (
	OpenGoogle       = "open-google"
	SearchGoogle     = "search-google"
	OpenYouTube      = "open-youtube"
	SearchYouTube    = "search-youtube"
	OpenWikipedia    = "open-wikipedia"
	SearchWikipedia  = "search-wikipedia"
	OpenSpotify      = "open-spotify"
	OpenMail         = "open-mail"
	OpenDocs         = "open-docs"
	OpenNotepad      = "open-notepad"
	OpenCalculator   = "open-calculator"
	OpenFileExplorer = "open-file-explorer"
	OpenSettings     = "open-settings"
	OpenChatbot      = "open-chatbot"
	Time             = "time"
	Exit             = "exit"
)

func en(phrase, action string) Entry {
	return Entry{Phrase: phrase, Lang: speech.EN, Action: action}
}

func hi(phrase, action string) Entry {
	return Entry{Phrase: phrase, Lang: speech.HI, Action: action}
}

func arg(e Entry) Entry {
	e.Argument = true
	return e
}

// Default is the built-in bilingual catalog.
func Default() []Entry {
	return []Entry{
		en("open google", OpenGoogle),
		arg(en("search google for", SearchGoogle)),
		en("open chrome", ""),
		en("open wikipedia", OpenWikipedia),
		arg(en("search wikipedia for", SearchWikipedia)),
		en("open youtube", OpenYouTube),
		arg(en("search youtube for", SearchYouTube)),
		en("open spotify", OpenSpotify),
		en("open mail", OpenMail),
		en("open docs", OpenDocs),
		en("time", Time),
		en("open notepad", OpenNotepad),
		en("open calculator", OpenCalculator),
		en("withdraw", ""),
		en("leave", ""),
		en("open calci", OpenCalculator),
		en("open file explorer", OpenFileExplorer),
		en("open settings", OpenSettings),
		en("exit", Exit),
		en("go back", ""),
		en("leo", ""),
		{Phrase: "switch to hindi", Lang: speech.EN, Switch: speech.HI},
		{Phrase: "switch to english", Lang: speech.EN, Switch: speech.EN},
		en("open chatbot", OpenChatbot),

		hi("गुगल खोलो", OpenGoogle),
		arg(hi("गुगल पर खोजो", SearchGoogle)),
		hi("क्रोम खोलो", ""),
		hi("विकिपीडिया खोलो", OpenWikipedia),
		arg(hi("विकिपीडिया पर खोजो", SearchWikipedia)),
		hi("यूट्यूब खोलो", OpenYouTube),
		arg(hi("यूट्यूब पर खोजो", SearchYouTube)),
		hi("स्पॉटिफाई खोलो", OpenSpotify),
		hi("मेल खोलो", OpenMail),
		hi("दस्तावेज़ खोलो", OpenDocs),
		hi("समय", Time),
		hi("नोटपैड खोलो", OpenNotepad),
		hi("कैलकुलेटर खोलो", OpenCalculator),
		hi("निकासी लें", ""),
		hi("छोड़ें", ""),
		hi("कैल्सी खोलो", OpenCalculator),
		hi("फ़ाइल एक्सप्लोरर खोलो", OpenFileExplorer),
		hi("सेटिंग्स खोलो", OpenSettings),
		hi("बाहर निकलो", Exit),
		hi("वापस जाओ", ""),
		hi("लियो", ""),
		{Phrase: "हिंदी में स्विच करो", Lang: speech.HI, Switch: speech.HI},
		{Phrase: "अंग्रेजी में स्विच करो", Lang: speech.HI, Switch: speech.EN},
	}
}

// Validate rejects entries that could never be matched or dispatched.
func Validate(entries []Entry) error {
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		if e.Phrase == "" {
			return fmt.Errorf("entry %d: empty phrase", i)
		}
		if e.Lang != speech.EN && e.Lang != speech.HI {
			return fmt.Errorf("entry %q: unknown language %q", e.Phrase, e.Lang)
		}
		if e.Switch != "" && e.Action != "" {
			return fmt.Errorf("entry %q: switch phrase cannot carry an action", e.Phrase)
		}
		key := string(e.Lang) + "\x00" + e.Phrase
		if seen[key] {
			return fmt.Errorf("entry %q: duplicate for %s", e.Phrase, e.Lang)
		}
		seen[key] = true
	}
	return nil
}
