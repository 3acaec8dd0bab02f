package merge

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

// tokenBase is the first rune of the Unicode private use area. Each distinct
// word of a compared pair is mapped to one rune from there so the edit
// distance runs over words instead of characters.
const tokenBase = 0xE000

// Words of at least minFuzzyWordLen runes count as equal when their
// character similarity reaches wordMatch.
const (
	minFuzzyWordLen = 3
	wordMatch       = 0.8
)

// Similarity returns a 0-100 partial similarity between two titles.
//
// Titles are case-folded, stripped of apostrophes and split into
// alphanumeric words; words that differ by a typo count as equal. The
// shorter word sequence is slid across the longer one and the best
// Levenshtein similarity over equally long windows is reported, so "Song"
// and "Song (Remix)" score 100 while "Song A" and "Song B" score 50.
func Similarity(a, b string) int {
	ta, tb := words(a), words(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	return max(partialRatio(ta, tb), partialRatio(tb, ta))
}

// partialRatio encodes ref word by word and maps each word of other onto the
// rune of an equal or near-equal ref word.
func partialRatio(ref, other []string) int {
	alphabet := make(map[string]rune, len(ref)+len(other))
	short := make([]rune, len(ref))
	for i, w := range ref {
		short[i] = tokenFor(w, alphabet)
	}
	long := make([]rune, len(other))
	for i, w := range other {
		if r, ok := nearestWord(w, ref, alphabet); ok {
			long[i] = r
			continue
		}
		long[i] = tokenFor(w, alphabet)
	}
	if len(short) > len(long) {
		short, long = long, short
	}

	shortStr := string(short)
	var best float32
	for i := 0; i+len(short) <= len(long); i++ {
		sim, err := edlib.StringsSimilarity(shortStr, string(long[i:i+len(short)]), edlib.Levenshtein)
		if err != nil {
			continue
		}
		if sim > best {
			best = sim
			if best >= 1 {
				break
			}
		}
	}
	return int(math.Round(float64(best) * 100))
}

func tokenFor(w string, alphabet map[string]rune) rune {
	r, ok := alphabet[w]
	if !ok {
		r = rune(tokenBase + len(alphabet))
		alphabet[w] = r
	}
	return r
}

// nearestWord finds the ref word equal to w, or else the most similar one
// above wordMatch, and returns its token.
func nearestWord(w string, ref []string, alphabet map[string]rune) (rune, bool) {
	if r, ok := alphabet[w]; ok {
		return r, true
	}
	if utf8.RuneCountInString(w) < minFuzzyWordLen {
		return 0, false
	}

	var (
		match string
		best  float32
	)
	for _, cand := range ref {
		if utf8.RuneCountInString(cand) < minFuzzyWordLen {
			continue
		}
		sim, err := edlib.StringsSimilarity(w, cand, edlib.Levenshtein)
		if err == nil && sim >= wordMatch && sim > best {
			match, best = cand, sim
		}
	}
	if match == "" {
		return 0, false
	}
	return alphabet[match], true
}

func words(s string) []string {
	s = strings.NewReplacer("'", "", "’", "").Replace(strings.ToLower(s))
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
