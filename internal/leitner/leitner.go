// Package leitner implements fixed-interval Leitner scheduling over a deck of
// question ids. Everything here is pure: callers pass the clock in and
// persist the deck themselves.
package leitner

import (
	"math/rand"
	"sort"
	"time"

	"github.com/vytor/ctiprep/internal/models"
)

const (
	MinBox      = 1
	MaxBox      = 6
	DefaultEase = 2.5

	secondsPerDay = 86400
)

// intervals maps a box to its review interval in days.
var intervals = map[int]int64{1: 0, 2: 1, 3: 2, 4: 4, 5: 7, 6: 15}

// IntervalDays returns the review interval of box. Boxes outside the table
// get a week.
func IntervalDays(box int) int64 {
	if d, ok := intervals[box]; ok {
		return d
	}
	return 7
}

// NewItem creates the scheduled state for a question entering the deck. It
// is due immediately.
func NewItem(q models.Question, now time.Time) models.ScheduledItem {
	ts := now.Unix()
	return models.ScheduledItem{
		ID:         q.ID,
		Box:        MinBox,
		Due:        ts,
		Ease:       DefaultEase,
		AddedTs:    ts,
		Disciplina: q.Disciplina,
		Area:       q.Area,
		Tema:       q.Tema,
	}
}

// Apply returns item after one answer. elapsedMs may be nil when the time
// spent is unknown. Ease is carried through untouched.
func Apply(item models.ScheduledItem, correct bool, elapsedMs *int64, now time.Time) models.ScheduledItem {
	item.Seen++
	if elapsedMs != nil {
		secs := *elapsedMs / 1000
		item.LastTime = &secs
	} else {
		item.LastTime = nil
	}

	box := item.Box
	if box < MinBox {
		box = MinBox
	}
	today := now.Unix()
	if correct {
		item.Box = min(MaxBox, box+1)
		item.Streak++
		item.Due = today + IntervalDays(item.Box)*secondsPerDay
	} else {
		item.Box = max(MinBox, box-1)
		item.Streak = 0
		item.Due = today + secondsPerDay
	}
	return item
}

// OnAnswer applies an answer to the deck item with the given id. It reports
// false and changes nothing when the id is not in the deck.
func OnAnswer(deck *models.Deck, id string, correct bool, elapsedMs *int64, now time.Time) bool {
	item, ok := deck.Items[id]
	if !ok {
		return false
	}
	deck.Items[id] = Apply(item, correct, elapsedMs, now)
	return true
}

// IsDue reports whether item is eligible for review at now.
func IsDue(item models.ScheduledItem, now time.Time) bool {
	return item.Due <= now.Unix()
}

// SelectDue returns up to limit due items ordered by due time, then box, then
// insertion time. A negative limit returns every due item.
func SelectDue(deck *models.Deck, now time.Time, limit int) []models.ScheduledItem {
	var due []models.ScheduledItem
	for _, it := range deck.Items {
		if IsDue(it, now) {
			due = append(due, it)
		}
	}
	SortByUrgency(due)
	if limit >= 0 && len(due) > limit {
		due = due[:limit]
	}
	return due
}

// SortByUrgency orders items by (due, box, addedTs). Ids break the remaining
// ties so the order does not depend on map iteration.
func SortByUrgency(items []models.ScheduledItem) {
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Due != b.Due {
			return a.Due < b.Due
		}
		if a.Box != b.Box {
			return a.Box < b.Box
		}
		if a.AddedTs != b.AddedTs {
			return a.AddedTs < b.AddedTs
		}
		return a.ID < b.ID
	})
}

// PickNewCandidates filters bank, drops ids already in deck, shuffles the
// rest uniformly and returns the first limit. rng may be nil.
func PickNewCandidates(bank []models.Question, deck *models.Deck, filter models.QuestionFilter, limit int, rng *rand.Rand) []models.Question {
	if limit <= 0 {
		return nil
	}
	var pool []models.Question
	for _, q := range bank {
		if !filter.Matches(q) {
			continue
		}
		if _, inDeck := deck.Items[q.ID]; inDeck {
			continue
		}
		pool = append(pool, q)
	}

	swap := func(i, j int) { pool[i], pool[j] = pool[j], pool[i] }
	if rng != nil {
		rng.Shuffle(len(pool), swap)
	} else {
		rand.Shuffle(len(pool), swap)
	}

	if len(pool) > limit {
		pool = pool[:limit]
	}
	return pool
}

// Stats summarizes deck at now. ByBox always has an entry for every box.
func Stats(deck *models.Deck, now time.Time) models.DeckStats {
	stats := models.DeckStats{ByBox: make(map[int]int, MaxBox)}
	for b := MinBox; b <= MaxBox; b++ {
		stats.ByBox[b] = 0
	}
	for _, it := range deck.Items {
		stats.Total++
		stats.ByBox[it.Box]++
		if IsDue(it, now) {
			stats.DueNow++
		}
	}
	return stats
}
