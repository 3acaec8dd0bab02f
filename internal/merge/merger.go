// Package merge fuses per-segment recognition outcomes into one ordered,
// deduplicated tracklist.
package merge

import (
	"slices"
	"strings"

	"github.com/himanishpuri/TracklistDNA/pkg/models"
)

// DefaultThreshold is the minimum Similarity for two titles to be treated as
// the same track.
const DefaultThreshold = 80

type Merger struct {
	Threshold int
}

// Merge uses DefaultThreshold.
func Merge(outcomes []models.Outcome) []models.Track {
	return Merger{Threshold: DefaultThreshold}.Merge(outcomes)
}

// Merge projects each matched outcome to its best candidate, repairs the
// text, and folds the candidates into canonical entries in temporal order.
// The result lists each distinct track once, in the order it was first heard.
func (m Merger) Merge(outcomes []models.Outcome) []models.Track {
	threshold := m.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	list := canonicalList{entries: []models.Track{}, index: make(map[string]int)}
	for _, out := range outcomes {
		hit, ok := bestHit(out)
		if !ok {
			continue
		}
		list.add(models.Track{
			Title:      RepairText(hit.Title),
			Artist:     RepairText(hit.Artist),
			Confidence: hit.Score,
			Links:      hit.Links,
		}, threshold)
	}
	return list.entries
}

// bestHit returns the highest-scoring candidate of a matched outcome. The
// earliest candidate wins ties.
func bestHit(out models.Outcome) (models.RawHit, bool) {
	if out.Kind != models.OutcomeMatched || len(out.Candidates) == 0 {
		return models.RawHit{}, false
	}
	best := out.Candidates[0]
	for _, c := range out.Candidates[1:] {
		if c.Score > best.Score {
			best = c
		}
	}
	return best, true
}

// canonicalList keeps canonical entries in insertion order. index maps every
// title that was folded into an entry to that entry's position.
type canonicalList struct {
	entries []models.Track
	index   map[string]int
}

func (l *canonicalList) add(t models.Track, threshold int) {
	if pos, ok := l.index[t.Title]; ok {
		l.resolve(pos, t, threshold)
		return
	}

	pos, bestScore := -1, 0
	for i, e := range l.entries {
		if s := Similarity(t.Title, e.Title); s >= threshold && s > bestScore {
			pos, bestScore = i, s
		}
	}
	if pos >= 0 {
		l.resolve(pos, t, threshold)
		return
	}

	l.index[t.Title] = len(l.entries)
	l.entries = append(l.entries, t)
}

// resolve folds t into the entry at pos. The entry keeps its position.
func (l *canonicalList) resolve(pos int, t models.Track, threshold int) {
	l.index[t.Title] = pos
	if !replaces(t, l.entries[pos]) {
		return
	}
	retitled := t.Title != l.entries[pos].Title
	l.entries[pos] = t
	if retitled {
		l.settle(pos, threshold)
	}
}

// settle restores the invariant that no two entries are similar after the
// entry at pos changed title. Matching entries fold into the earliest one.
func (l *canonicalList) settle(pos, threshold int) {
	for {
		other := -1
		for i, e := range l.entries {
			if i != pos && Similarity(e.Title, l.entries[pos].Title) >= threshold {
				other = i
				break
			}
		}
		if other < 0 {
			return
		}

		keep, drop := min(pos, other), max(pos, other)
		if replaces(l.entries[drop], l.entries[keep]) {
			l.entries[keep] = l.entries[drop]
		}
		l.entries = slices.Delete(l.entries, drop, drop+1)
		for title, p := range l.index {
			switch {
			case p == drop:
				l.index[title] = keep
			case p > drop:
				l.index[title] = p - 1
			}
		}
		pos = keep
	}
}

// replaces reports whether candidate should take over from current: higher
// confidence wins, and on an exact tie a remix title beats a non-remix one.
func replaces(candidate, current models.Track) bool {
	if candidate.Confidence != current.Confidence {
		return candidate.Confidence > current.Confidence
	}
	return isRemix(candidate.Title) && !isRemix(current.Title)
}

func isRemix(title string) bool {
	return strings.Contains(strings.ToLower(title), "remix")
}
