// Package analytics turns finished-session history into cross-session
// statistics. All functions are pure.
package analytics

import (
	"sort"

	"github.com/vytor/ctiprep/internal/models"
)

const (
	// MinAttempts is the number of answers a topic needs before it can be
	// reported as a weak spot.
	MinAttempts   = 5
	WeakSpotLimit = 5

	noDiscipline = "—"
	noTopic      = "(sem tema)"
)

type Totals struct {
	Total   int `json:"total"`
	Correct int `json:"correct"`
	Pct     int `json:"pct"`
}

type TopicStat struct {
	Tema    string `json:"tema"`
	Total   int    `json:"total"`
	Correct int    `json:"correct"`
	Pct     int    `json:"pct"`
}

// Point is one session on the accuracy trend. Index starts at 1.
type Point struct {
	Index     int   `json:"index"`
	Pct       int   `json:"pct"`
	Timestamp int64 `json:"timestamp"`
}

type Report struct {
	TotalSessions int               `json:"totalSessions"`
	TotalAnswered int               `json:"totalAnswered"`
	TotalCorrect  int               `json:"totalCorrect"`
	TotalTime     int64             `json:"totalTime"`
	AvgPct        int               `json:"avgPct"`
	ByDiscipline  map[string]Totals `json:"byDiscipline"`
	PerTopic      []TopicStat       `json:"perTopic"`
	Evolution     []Point           `json:"evolution"`
}

// NormalizeAdaptive fills the fields older adaptive records lack so they
// aggregate like exam records.
func NormalizeAdaptive(r models.HistoryRecord) models.HistoryRecord {
	if r.Mode == "" {
		r.Mode = models.ModeAdaptive
	}
	if r.Total == 0 && r.Answered != nil {
		r.Total = *r.Answered
	}
	if r.DurationSeconds == nil {
		var secs int64
		if r.Time != nil {
			secs = *r.Time / 1000
		}
		r.DurationSeconds = &secs
	}
	if r.Items == nil {
		r.Items = []models.HistoryItem{}
	}
	return r
}

// Merge concatenates buckets, drops records without id or with an id seen
// earlier, and sorts newest first.
func Merge(buckets ...[]models.HistoryRecord) []models.HistoryRecord {
	seen := map[string]struct{}{}
	var out []models.HistoryRecord
	for _, b := range buckets {
		for _, r := range b {
			if r.ID == "" {
				continue
			}
			if _, dup := seen[r.ID]; dup {
				continue
			}
			seen[r.ID] = struct{}{}
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out
}

// Aggregate computes the report for history given newest first, as Merge
// returns it.
func Aggregate(history []models.HistoryRecord) Report {
	sessions := make([]models.HistoryRecord, len(history))
	for i, r := range history {
		sessions[len(history)-1-i] = r
	}

	rep := Report{
		TotalSessions: len(sessions),
		ByDiscipline:  map[string]Totals{},
		PerTopic:      []TopicStat{},
		Evolution:     make([]Point, 0, len(sessions)),
	}
	topics := map[string]*TopicStat{}

	addDiscipline := func(d string, total, correct int) {
		if d == "" {
			d = noDiscipline
		}
		t := rep.ByDiscipline[d]
		t.Total += total
		t.Correct += correct
		rep.ByDiscipline[d] = t
	}

	for i, s := range sessions {
		if s.DurationSeconds != nil {
			rep.TotalTime += *s.DurationSeconds
		}

		switch {
		case len(s.Items) > 0:
			for _, it := range s.Items {
				correct := 0
				if it.Correct {
					correct = 1
				}
				rep.TotalAnswered++
				rep.TotalCorrect += correct
				addDiscipline(it.Disciplina, 1, correct)

				tema := it.Tema
				if tema == "" {
					tema = noTopic
				}
				ts, ok := topics[tema]
				if !ok {
					ts = &TopicStat{Tema: tema}
					topics[tema] = ts
				}
				ts.Total++
				ts.Correct += correct
			}
		case s.Answered != nil:
			rep.TotalAnswered += *s.Answered
			rep.TotalCorrect += s.Correct
			addDiscipline("", *s.Answered, s.Correct)
		}

		rep.Evolution = append(rep.Evolution, Point{Index: i + 1, Pct: sessionPct(s), Timestamp: s.Timestamp})
	}

	rep.AvgPct = models.Percent(rep.TotalCorrect, rep.TotalAnswered)
	for d, t := range rep.ByDiscipline {
		t.Pct = models.Percent(t.Correct, t.Total)
		rep.ByDiscipline[d] = t
	}
	for _, ts := range topics {
		ts.Pct = models.Percent(ts.Correct, ts.Total)
		rep.PerTopic = append(rep.PerTopic, *ts)
	}
	sortByAccuracy(rep.PerTopic)
	return rep
}

// sessionPct returns the stored pct, deriving it when the record carries
// correct answers but a zero pct (records written without the field).
func sessionPct(s models.HistoryRecord) int {
	if s.Pct != 0 || s.Correct == 0 {
		return s.Pct
	}
	total := s.Total
	if total == 0 {
		if s.Answered != nil {
			total = *s.Answered
		} else {
			total = len(s.Items)
		}
	}
	return models.Percent(s.Correct, total)
}

// sortByAccuracy orders topics by exact accuracy, lowest first, then name.
func sortByAccuracy(ts []TopicStat) {
	sort.Slice(ts, func(i, j int) bool {
		a, b := ts[i], ts[j]
		// a.Correct/a.Total < b.Correct/b.Total without floats
		l, r := a.Correct*b.Total, b.Correct*a.Total
		if l != r {
			return l < r
		}
		return a.Tema < b.Tema
	})
}

// WeakSpots returns up to limit topics with at least minAttempts answers,
// lowest accuracy first. topics must already be ordered as in Report.
func WeakSpots(topics []TopicStat, minAttempts, limit int) []TopicStat {
	out := []TopicStat{}
	for _, t := range topics {
		if len(out) >= limit {
			break
		}
		if t.Total >= minAttempts {
			out = append(out, t)
		}
	}
	return out
}

// SessionDetail breaks one record down by topic, sorted by topic name.
func SessionDetail(r models.HistoryRecord) []TopicStat {
	acc := map[string]*TopicStat{}
	for _, it := range r.Items {
		tema := it.Tema
		if tema == "" {
			tema = noTopic
		}
		ts, ok := acc[tema]
		if !ok {
			ts = &TopicStat{Tema: tema}
			acc[tema] = ts
		}
		ts.Total++
		if it.Correct {
			ts.Correct++
		}
	}
	out := make([]TopicStat, 0, len(acc))
	for _, ts := range acc {
		ts.Pct = models.Percent(ts.Correct, ts.Total)
		out = append(out, *ts)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tema < out[j].Tema })
	return out
}

