package actions

import (
	"runtime"

	"vaani/internal/catalog"
)

// Default returns the built-in action table for the running platform.
func Default() map[string]Spec {
	specs := map[string]Spec{
		catalog.OpenGoogle:      {Kind: KindURL, Target: "https://www.google.com", Site: "Google"},
		catalog.SearchGoogle:    {Kind: KindSearchURL, Target: "https://www.google.com/search?q=%s", Site: "Google"},
		catalog.OpenYouTube:     {Kind: KindURL, Target: "https://www.youtube.com", Site: "YouTube"},
		catalog.SearchYouTube:   {Kind: KindSearchURL, Target: "https://www.youtube.com/results?search_query=%s", Site: "YouTube"},
		catalog.OpenWikipedia:   {Kind: KindURL, Target: "https://www.wikipedia.org/", Site: "Wikipedia"},
		catalog.SearchWikipedia: {Kind: KindSummary, Site: "Wikipedia"},
		catalog.OpenSpotify:     {Kind: KindURL, Target: "https://open.spotify.com", Site: "Spotify"},
		catalog.OpenMail:        {Kind: KindURL, Target: "https://mail.google.com", Site: "Mail"},
		catalog.OpenDocs:        {Kind: KindURL, Target: "https://docs.google.com", Site: "Docs"},
		catalog.OpenChatbot:     {Kind: KindProgram, Target: "python3", Args: []string{"chatbot.py"}, Wait: true},
		catalog.Time:            {Kind: KindTime},
		catalog.Exit:            {Kind: KindExit},
	}

	for id, p := range programs(runtime.GOOS) {
		specs[id] = p
	}
	return specs
}

func programs(goos string) map[string]Spec {
	switch goos {
	case "windows":
		return map[string]Spec{
			catalog.OpenNotepad:      {Kind: KindProgram, Target: "notepad"},
			catalog.OpenCalculator:   {Kind: KindProgram, Target: "calc"},
			catalog.OpenFileExplorer: {Kind: KindProgram, Target: "explorer"},
			catalog.OpenSettings:     {Kind: KindProgram, Target: "cmd", Args: []string{"/c", "start", "ms-settings:"}},
		}
	case "darwin":
		return map[string]Spec{
			catalog.OpenNotepad:      {Kind: KindProgram, Target: "open", Args: []string{"-a", "TextEdit"}},
			catalog.OpenCalculator:   {Kind: KindProgram, Target: "open", Args: []string{"-a", "Calculator"}},
			catalog.OpenFileExplorer: {Kind: KindProgram, Target: "open", Args: []string{"."}},
			catalog.OpenSettings:     {Kind: KindProgram, Target: "open", Args: []string{"x-apple.systempreferences:"}},
		}
	default:
		return map[string]Spec{
			catalog.OpenNotepad:      {Kind: KindProgram, Target: "gnome-text-editor"},
			catalog.OpenCalculator:   {Kind: KindProgram, Target: "gnome-calculator"},
			catalog.OpenFileExplorer: {Kind: KindProgram, Target: "xdg-open", Args: []string{"."}},
			catalog.OpenSettings:     {Kind: KindProgram, Target: "gnome-control-center"},
		}
	}
}
