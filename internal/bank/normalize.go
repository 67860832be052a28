package bank

import (
	"sort"
	"strings"

	"github.com/vytor/ctiprep/internal/models"
)

// Normalize converts a bank entry into the question form used by sessions.
// Alternatives come out ordered by key.
func Normalize(raw models.RawQuestion) models.Question {
	keys := make([]string, 0, len(raw.Alternativas))
	for k := range raw.Alternativas {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	alts := make([]models.Alternative, 0, len(keys))
	for _, k := range keys {
		alts = append(alts, models.Alternative{
			Key:       k,
			Text:      raw.Alternativas[k],
			IsCorrect: k == raw.Correta,
		})
	}

	tags := raw.Tags
	if tags == nil {
		tags = []string{}
	}

	return models.Question{
		ID:           strings.TrimSpace(raw.ID),
		Disciplina:   raw.Disciplina,
		Area:         raw.Area,
		Tema:         raw.Tema,
		Habilidade:   raw.Habilidade,
		Nivel:        string(raw.Nivel),
		Ano:          string(raw.Ano),
		Fonte:        raw.Fonte,
		Enunciado:    raw.Enunciado,
		Alternativas: alts,
		Correta:      raw.Correta,
		Explicacao:   raw.Explicacao,
		Midia:        raw.Midia,
		Tags:         tags,
	}
}

// NormalizeAll normalizes raws and drops duplicates and entries without id.
func NormalizeAll(raws []models.RawQuestion) []models.Question {
	out := make([]models.Question, 0, len(raws))
	for _, r := range raws {
		out = append(out, Normalize(r))
	}
	return UniqByID(out)
}

// UniqByID keeps the first question for every id and drops questions
// without one.
func UniqByID(qs []models.Question) []models.Question {
	seen := make(map[string]struct{}, len(qs))
	out := make([]models.Question, 0, len(qs))
	for _, q := range qs {
		if q.ID == "" {
			continue
		}
		if _, dup := seen[q.ID]; dup {
			continue
		}
		seen[q.ID] = struct{}{}
		out = append(out, q)
	}
	return out
}

// Filter returns the questions matching f, in order.
func Filter(qs []models.Question, f models.QuestionFilter) []models.Question {
	var out []models.Question
	for _, q := range qs {
		if f.Matches(q) {
			out = append(out, q)
		}
	}
	return out
}

// Index maps question ids to questions.
func Index(qs []models.Question) map[string]models.Question {
	m := make(map[string]models.Question, len(qs))
	for _, q := range qs {
		m[q.ID] = q
	}
	return m
}

// Facets lists the distinct non-empty values of each classification field,
// sorted. It backs the filter dropdowns of the UI.
type Facets struct {
	Disciplinas []string `json:"disciplinas"`
	Areas       []string `json:"areas"`
	Temas       []string `json:"temas"`
	Niveis      []string `json:"niveis"`
}

func BuildFacets(qs []models.Question) Facets {
	collect := func(get func(models.Question) string) []string {
		set := map[string]struct{}{}
		for _, q := range qs {
			if v := get(q); v != "" {
				set[v] = struct{}{}
			}
		}
		out := make([]string, 0, len(set))
		for v := range set {
			out = append(out, v)
		}
		sort.Strings(out)
		return out
	}
	return Facets{
		Disciplinas: collect(func(q models.Question) string { return q.Disciplina }),
		Areas:       collect(func(q models.Question) string { return q.Area }),
		Temas:       collect(func(q models.Question) string { return q.Tema }),
		Niveis:      collect(func(q models.Question) string { return q.Nivel }),
	}
}
