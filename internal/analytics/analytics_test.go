package analytics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/ctiprep/internal/analytics"
	"github.com/vytor/ctiprep/internal/models"
)

func intp(v int) *int       { return &v }
func int64p(v int64) *int64 { return &v }

func items(disc, tema string, correct, wrong int) []models.HistoryItem {
	var out []models.HistoryItem
	for i := 0; i < correct; i++ {
		out = append(out, models.HistoryItem{ID: "c", Disciplina: disc, Tema: tema, Correct: true})
	}
	for i := 0; i < wrong; i++ {
		out = append(out, models.HistoryItem{ID: "w", Disciplina: disc, Tema: tema})
	}
	return out
}

func TestAggregate_EvolutionIsChronological(t *testing.T) {
	history := analytics.Merge([]models.HistoryRecord{
		{ID: "s1", Timestamp: 1000, Total: 2, Correct: 2, Pct: 100, Items: items("Matemática", "Frações", 2, 0), DurationSeconds: int64p(60)},
		{ID: "s3", Timestamp: 3000, Total: 4, Correct: 2, Pct: 50, Items: items("Matemática", "Frações", 2, 2), DurationSeconds: int64p(30)},
		{ID: "s2", Timestamp: 2000, Total: 2, Correct: 1, Pct: 50, Items: items("Português", "Crase", 1, 1)},
	})

	rep := analytics.Aggregate(history)

	assert.Equal(t, []analytics.Point{
		{Index: 1, Pct: 100, Timestamp: 1000},
		{Index: 2, Pct: 50, Timestamp: 2000},
		{Index: 3, Pct: 50, Timestamp: 3000},
	}, rep.Evolution)
	assert.Equal(t, 3, rep.TotalSessions)
	assert.Equal(t, 8, rep.TotalAnswered)
	assert.Equal(t, 5, rep.TotalCorrect)
	assert.Equal(t, int64(90), rep.TotalTime)
	// 5/8 over answers, not the mean of 100/50/50
	assert.Equal(t, 63, rep.AvgPct)
}

func TestAggregate_ItemlessSessionsCountAtSessionLevel(t *testing.T) {
	history := []models.HistoryRecord{
		{ID: "a1", Timestamp: 2, Mode: models.ModeAdaptive, Answered: intp(10), Correct: 4, Pct: 40},
		{ID: "e1", Timestamp: 1, Mode: models.ModeExam, Total: 2, Correct: 1, Pct: 50, Items: []models.HistoryItem{
			{ID: "q1", Disciplina: "Matemática", Tema: "Frações", Correct: true},
			{ID: "q2", Tema: ""},
		}},
		{ID: "x", Timestamp: 0, Total: 5},
	}

	rep := analytics.Aggregate(history)

	assert.Equal(t, 12, rep.TotalAnswered)
	assert.Equal(t, 5, rep.TotalCorrect)
	assert.Equal(t, map[string]analytics.Totals{
		"Matemática": {Total: 1, Correct: 1, Pct: 100},
		"—":          {Total: 11, Correct: 4, Pct: 36},
	}, rep.ByDiscipline)

	require.Len(t, rep.PerTopic, 2)
	assert.Equal(t, "(sem tema)", rep.PerTopic[0].Tema)
	assert.Equal(t, "Frações", rep.PerTopic[1].Tema)
}

func TestAggregate_Empty(t *testing.T) {
	rep := analytics.Aggregate(nil)
	assert.Zero(t, rep.TotalSessions)
	assert.Zero(t, rep.AvgPct)
	assert.Empty(t, rep.Evolution)
	assert.Empty(t, rep.PerTopic)
}

func TestAggregate_DerivesMissingPct(t *testing.T) {
	rep := analytics.Aggregate([]models.HistoryRecord{{ID: "a", Total: 4, Correct: 3}})
	assert.Equal(t, 75, rep.Evolution[0].Pct)
}

func TestWeakSpots_ExcludesSmallSamples(t *testing.T) {
	var all []models.HistoryItem
	all = append(all, items("M", "Geometria", 0, 4)...)  // 0%, only 4 attempts
	all = append(all, items("M", "Frações", 1, 4)...)    // 20%
	all = append(all, items("M", "Álgebra", 3, 2)...)    // 60%
	all = append(all, items("P", "Crase", 5, 0)...)      // 100%
	all = append(all, items("P", "Ortografia", 2, 3)...) // 40%

	rep := analytics.Aggregate([]models.HistoryRecord{{ID: "s", Items: all}})
	assert.Equal(t, "Geometria", rep.PerTopic[0].Tema, "ranking itself keeps every topic")

	weak := analytics.WeakSpots(rep.PerTopic, analytics.MinAttempts, analytics.WeakSpotLimit)

	var names []string
	for _, w := range weak {
		names = append(names, w.Tema)
	}
	assert.Equal(t, []string{"Frações", "Ortografia", "Álgebra", "Crase"}, names)
	assert.Len(t, analytics.WeakSpots(rep.PerTopic, analytics.MinAttempts, 2), 2)
}

func TestMerge_DedupesAndSortsNewestFirst(t *testing.T) {
	exam := []models.HistoryRecord{{ID: "a", Timestamp: 1}, {ID: "b", Timestamp: 5}}
	adaptive := []models.HistoryRecord{{ID: "b", Timestamp: 99}, {ID: "c", Timestamp: 3}, {ID: ""}}

	got := analytics.Merge(exam, adaptive)

	require.Len(t, got, 3)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, int64(5), got[0].Timestamp, "first bucket wins on duplicate ids")
	assert.Equal(t, "c", got[1].ID)
	assert.Equal(t, "a", got[2].ID)
}

func TestNormalizeAdaptive(t *testing.T) {
	got := analytics.NormalizeAdaptive(models.HistoryRecord{ID: "x", Answered: intp(7), Time: int64p(65_900)})

	assert.Equal(t, models.ModeAdaptive, got.Mode)
	assert.Equal(t, 7, got.Total)
	require.NotNil(t, got.DurationSeconds)
	assert.Equal(t, int64(65), *got.DurationSeconds)
	assert.NotNil(t, got.Items)

	kept := analytics.NormalizeAdaptive(models.HistoryRecord{Mode: models.ModeExam, Total: 3, DurationSeconds: int64p(9)})
	assert.Equal(t, models.ModeExam, kept.Mode)
	assert.Equal(t, 3, kept.Total)
	assert.Equal(t, int64(9), *kept.DurationSeconds)
}

func TestSessionDetail(t *testing.T) {
	r := models.HistoryRecord{Items: append(items("M", "Frações", 1, 2), items("M", "", 1, 0)...)}

	assert.Equal(t, []analytics.TopicStat{
		{Tema: "(sem tema)", Total: 1, Correct: 1, Pct: 100},
		{Tema: "Frações", Total: 3, Correct: 1, Pct: 33},
	}, analytics.SessionDetail(r))
}
