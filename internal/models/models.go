package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// FlexString decodes from either a JSON string or a JSON number. Bank files
// are hand-edited and fields like "ano" show up in both shapes.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// Int returns the numeric value, or 0 if it is not a number.
func (f FlexString) Int() int {
	i, _ := strconv.Atoi(string(f))
	return i
}

// RawQuestion is one entry of an external question bank file.
type RawQuestion struct {
	ID           string            `json:"id"`
	Disciplina   string            `json:"disciplina"`
	Area         string            `json:"area,omitempty"`
	Tema         string            `json:"tema,omitempty"`
	Habilidade   string            `json:"habilidade,omitempty"`
	Nivel        FlexString        `json:"nivel,omitempty"`
	Ano          FlexString        `json:"ano,omitempty"`
	Fonte        string            `json:"fonte,omitempty"`
	Enunciado    string            `json:"enunciado"`
	Alternativas map[string]string `json:"alternativas"`
	Correta      string            `json:"correta"`
	Explicacao   string            `json:"explicacao,omitempty"`
	Midia        json.RawMessage   `json:"midia,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
}

type Alternative struct {
	Key       string `json:"key"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// Question is the normalized form handed to a quiz session.
type Question struct {
	ID           string          `json:"id"`
	Disciplina   string          `json:"disciplina"`
	Area         string          `json:"area,omitempty"`
	Tema         string          `json:"tema,omitempty"`
	Habilidade   string          `json:"habilidade,omitempty"`
	Nivel        string          `json:"nivel,omitempty"`
	Ano          string          `json:"ano,omitempty"`
	Fonte        string          `json:"fonte,omitempty"`
	Enunciado    string          `json:"enunciado"`
	Alternativas []Alternative   `json:"alternativas"`
	Correta      string          `json:"correta"`
	Explicacao   string          `json:"explicacao"`
	Midia        json.RawMessage `json:"midia,omitempty"`
	Tags         []string        `json:"tags"`
}

// QuestionFilter selects bank entries by classification. Empty fields match
// everything; set fields are exact matches.
type QuestionFilter struct {
	Disciplina string `json:"disciplina,omitempty"`
	Area       string `json:"area,omitempty"`
	Tema       string `json:"tema,omitempty"`
	Nivel      string `json:"nivel,omitempty"`
}

func (f QuestionFilter) Matches(q Question) bool {
	if f.Disciplina != "" && q.Disciplina != f.Disciplina {
		return false
	}
	if f.Area != "" && q.Area != f.Area {
		return false
	}
	if f.Tema != "" && q.Tema != f.Tema {
		return false
	}
	if f.Nivel != "" && q.Nivel != f.Nivel {
		return false
	}
	return true
}
