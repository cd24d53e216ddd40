package actions

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"vaani/internal/speech"
)

const userAgent = "vaani/1.0 (voice assistant)"

// Wikipedia finds the best page for a query with the search API and reads
// the lead of its REST summary.
type Wikipedia struct {
	Client    *http.Client
	BaseURL   string // e.g. "https://%s.wikipedia.org", %s is the language
	Sentences int
}

func NewWikipedia(client *http.Client) *Wikipedia {
	if client == nil {
		client = http.DefaultClient
	}
	return &Wikipedia{Client: client, BaseURL: "https://%s.wikipedia.org", Sentences: 2}
}

func (w *Wikipedia) Summary(ctx context.Context, lang speech.Language, query string) (string, error) {
	base := w.BaseURL
	if strings.Contains(base, "%s") {
		base = fmt.Sprintf(base, lang)
	}

	q := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {"1"},
		"format":   {"json"},
	}
	body, err := w.get(ctx, base+"/w/api.php?"+q.Encode())
	if err != nil {
		return "", err
	}
	title := gjson.GetBytes(body, "query.search.0.title").String()
	if title == "" {
		return "", ErrNotFound
	}

	body, err = w.get(ctx, base+"/api/rest_v1/page/summary/"+url.PathEscape(strings.ReplaceAll(title, " ", "_")))
	if err != nil {
		return "", err
	}

	page := gjson.ParseBytes(body)
	if page.Get("type").String() == "disambiguation" {
		return "", ErrAmbiguous
	}
	extract := page.Get("extract").String()
	if extract == "" {
		return "", ErrNotFound
	}

	return firstSentences(extract, w.Sentences), nil
}

func (w *Wikipedia) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := w.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wikipedia: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wikipedia: unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// firstSentences keeps the first n sentences of text. Sentences end with
// '.', '!', '?' or the danda followed by a space or the end of text.
func firstSentences(text string, n int) string {
	if n <= 0 {
		return text
	}
	runes := []rune(text)
	count := 0
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' && r != '।' {
			continue
		}
		if i+1 < len(runes) && runes[i+1] != ' ' && runes[i+1] != '\n' {
			continue
		}
		count++
		if count == n {
			return strings.TrimSpace(string(runes[:i+1]))
		}
	}
	return strings.TrimSpace(text)
}
