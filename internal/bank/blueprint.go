package bank

import (
	"fmt"
	"math/rand"

	"github.com/vytor/ctiprep/internal/models"
)

// Assembly is an exam question set built from a blueprint.
type Assembly struct {
	Questions     []models.Question
	Expected      []models.ExpectedBlock
	SelectedCount map[string]int
	Avisos        []string
}

// Assemble walks the blueprint blocks in order. Inside a block every rule
// first takes its minimum from the matching questions of the discipline,
// then the block is topped up from the whole discipline. A question is used
// at most once across the exam. Blocks the bank cannot fill produce a
// warning instead of an error.
func Assemble(bank []models.Question, bp models.Blueprint, rng *rand.Rand) Assembly {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	byDisc := map[string][]models.Question{}
	for _, q := range bank {
		byDisc[q.Disciplina] = append(byDisc[q.Disciplina], q)
	}

	used := map[string]struct{}{}
	out := Assembly{SelectedCount: map[string]int{}}

	for _, block := range bp.Blocos {
		out.Expected = append(out.Expected, models.ExpectedBlock{Disciplina: block.Disciplina, Qtd: block.Quantidade})
		pool := byDisc[block.Disciplina]

		var picked []models.Question
		for _, rule := range block.Regras {
			subset := pool
			if rule.Tema != "" {
				subset = Filter(subset, models.QuestionFilter{Tema: rule.Tema})
			}
			if rule.Area != "" {
				subset = Filter(subset, models.QuestionFilter{Area: rule.Area})
			}
			picked = append(picked, pickUnused(subset, max(0, rule.Min), used, rng)...)
		}
		if missing := block.Quantidade - len(picked); missing > 0 {
			picked = append(picked, pickUnused(pool, missing, used, rng)...)
		}

		if len(picked) < block.Quantidade {
			out.Avisos = append(out.Avisos, fmt.Sprintf(
				"Disciplina %s: banco atual fornece %d de %d itens.", block.Disciplina, len(picked), block.Quantidade))
		}
		for _, q := range picked {
			d := q.Disciplina
			if d == "" {
				d = "—"
			}
			out.SelectedCount[d]++
		}
		out.Questions = append(out.Questions, picked...)
	}
	return out
}

func pickUnused(list []models.Question, n int, used map[string]struct{}, rng *rand.Rand) []models.Question {
	if n <= 0 {
		return nil
	}
	var pool []models.Question
	for _, q := range list {
		if _, ok := used[q.ID]; !ok {
			pool = append(pool, q)
		}
	}
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if len(pool) > n {
		pool = pool[:n]
	}
	for _, q := range pool {
		used[q.ID] = struct{}{}
	}
	return pool
}
