package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/ctiprep/internal/models"
	"github.com/vytor/ctiprep/internal/services"
	"github.com/vytor/ctiprep/internal/testutil"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Frações", "fracoes"},
		{"  Análise Combinatória ", "analise-combinatoria"},
		{"Regra de 3 / Proporção", "regra-de-3-proporcao"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, services.Slug(tt.in), tt.in)
	}
	assert.Equal(t, "quiz:les:algebra:fracoes:v1", services.LessonSessionKey("Álgebra", "Frações"))
	assert.Equal(t, "aula:algebra:fracoes", services.LessonMode("Álgebra", "Frações"))
}

func TestSlug_Concurrent(t *testing.T) {
	const workers, calls = 50, 200
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		bad []string
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				if got := services.Slug("Interpretação de Texto Ação"); got != "interpretacao-de-texto-acao" {
					mu.Lock()
					bad = append(bad, got)
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()
	assert.Empty(t, bad)
}

func lessonBank() []models.Question {
	var qs []models.Question
	for i, tema := range []string{"Frações", "Frações", "Frações", "Geometria"} {
		q := testutil.Question(string(rune('a'+i)), "Matemática", tema)
		q.Area = "Álgebra"
		qs = append(qs, q)
	}
	return qs
}

func TestLessonQuestions(t *testing.T) {
	e := newEnv(t, lessonBank()...)
	svc := services.NewLessonService(e.catalog, e.history, e.opts()...)
	ctx := context.Background()

	lesson, err := svc.Questions(ctx, services.LessonRequest{Area: "álgebra", Tema: "FRAÇÕES", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, lesson.Questions, 2)
	for _, q := range lesson.Questions {
		assert.Equal(t, "Frações", q.Tema)
	}
	assert.Equal(t, "quiz:les:algebra:fracoes:v1", lesson.Key)

	lesson, err = svc.Questions(ctx, services.LessonRequest{Tema: "Geometria"})
	require.NoError(t, err)
	assert.Len(t, lesson.Questions, 1)

	_, err = svc.Questions(ctx, services.LessonRequest{})
	assert.Error(t, err)
	_, err = svc.Questions(ctx, services.LessonRequest{Tema: "Trigonometria"})
	assert.Error(t, err)
}

func TestLessonRecord(t *testing.T) {
	qs := lessonBank()
	e := newEnv(t, qs...)
	svc := services.NewLessonService(e.catalog, e.history, e.opts()...)
	ctx := context.Background()

	rec, err := svc.Record(ctx, services.LessonMode("Álgebra", "Frações"), qs[:2], map[string]models.AnswerRecord{qs[0].ID: checked(true, 900)}, epoch)
	require.NoError(t, err)
	assert.Equal(t, "aula:algebra:fracoes", rec.Mode)
	assert.Equal(t, int64(1), *rec.DurationSeconds, "at least one second")
	assert.Equal(t, 50, rec.Pct)
	assert.Contains(t, rec.ID, "sess-les-")

	e.clock.Advance(95 * time.Second)
	rec, err = svc.Record(ctx, models.ModePractice, qs[:1], nil, epoch)
	require.NoError(t, err)
	assert.Equal(t, int64(95), *rec.DurationSeconds)
	assert.Contains(t, rec.ID, "sess-col-")

	_, err = svc.Record(ctx, models.ModePractice, nil, nil, epoch)
	assert.Error(t, err)
}
