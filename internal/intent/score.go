package intent

import (
	"math"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Score returns a 0..100 similarity between a and b. It takes the best of
// a plain ratio, a best-window partial ratio when the lengths differ a lot,
// and token sort/set ratios, each scaled down slightly so an exact match
// always wins.
func Score(a, b string) int {
	a, b = clean(a), clean(b)
	if a == "" || b == "" {
		return 0
	}

	best := ratio(a, b)

	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	lenRatio := float64(max(la, lb)) / float64(min(la, lb))

	if lenRatio < 1.5 {
		best = math.Max(best, tokenSort(a, b, ratio)*0.95)
		best = math.Max(best, tokenSet(a, b, ratio)*0.95)
		return int(math.Round(best))
	}

	scale := 0.9
	if lenRatio > 8 {
		scale = 0.6
	}
	best = math.Max(best, partial(a, b)*scale)
	best = math.Max(best, tokenSort(a, b, partial)*0.95*scale)
	best = math.Max(best, tokenSet(a, b, partial)*0.95*scale)
	return int(math.Round(best))
}

// clean lowercases, turns everything that is not a letter, digit or
// combining mark into a space and collapses runs of spaces.
func clean(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

func ratio(a, b string) float64 {
	n := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if n == 0 {
		return 0
	}
	d := levenshtein.ComputeDistance(a, b)
	return 100 * (1 - float64(d)/float64(n))
}

// partial compares the shorter string with every same-length window of the
// longer one.
func partial(a, b string) float64 {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}

	s := string(short)
	best := 0.0
	for i := 0; i+len(short) <= len(long); i++ {
		best = math.Max(best, ratio(s, string(long[i:i+len(short)])))
		if best == 100 {
			break
		}
	}
	return best
}

func tokenSort(a, b string, score func(string, string) float64) float64 {
	return score(sortedTokens(a), sortedTokens(b))
}

// tokenSet scores the shared tokens against each side's full token set, so
// extra words on either side cost little.
func tokenSet(a, b string, score func(string, string) float64) float64 {
	ta, tb := tokenBag(a), tokenBag(b)

	var common, onlyA, onlyB []string
	for t := range ta {
		if tb[t] {
			common = append(common, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for t := range tb {
		if !ta[t] {
			onlyB = append(onlyB, t)
		}
	}
	slices.Sort(common)
	slices.Sort(onlyA)
	slices.Sort(onlyB)

	sect := strings.Join(common, " ")
	withA := strings.TrimSpace(sect + " " + strings.Join(onlyA, " "))
	withB := strings.TrimSpace(sect + " " + strings.Join(onlyB, " "))

	best := score(withA, withB)
	if sect != "" {
		best = math.Max(best, score(sect, withA))
		best = math.Max(best, score(sect, withB))
	}
	return best
}

func sortedTokens(s string) string {
	f := strings.Fields(s)
	slices.Sort(f)
	return strings.Join(f, " ")
}

func tokenBag(s string) map[string]bool {
	bag := make(map[string]bool)
	for _, t := range strings.Fields(s) {
		bag[t] = true
	}
	return bag
}
