package models

import "math"

// Percent is round(100*part/whole), or 0 when whole is 0.
func Percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(float64(part) * 100 / float64(whole)))
}

// Session modes recorded in history.
const (
	ModeAdaptive = "adaptativo"
	ModeExam     = "cti-completo"
	ModeLesson   = "aula"
	ModePractice = "pratica"
)

type HistoryItem struct {
	ID         string `json:"id"`
	Disciplina string `json:"disciplina,omitempty"`
	Area       string `json:"area,omitempty"`
	Tema       string `json:"tema,omitempty"`
	Correct    bool   `json:"correct"`
	Time       *int64 `json:"time,omitempty"`
}

type DisciplineScore struct {
	Total   int `json:"total"`
	Correct int `json:"correct"`
	Pct     int `json:"pct"`
}

// WrongAnswer describes a question missed or left blank in an exam.
type WrongAnswer struct {
	Index      int    `json:"index"`
	ID         string `json:"id"`
	Disciplina string `json:"disciplina,omitempty"`
	Area       string `json:"area,omitempty"`
	Tema       string `json:"tema,omitempty"`
	Enunciado  string `json:"enunciado,omitempty"`
	Marcada    string `json:"marcada,omitempty"`
	Correta    string `json:"correta"`
	Explicacao string `json:"explicacao,omitempty"`
}

// HistoryRecord summarizes one finished session. Timestamp is epoch millis.
//
// Answered and Time are only written by the adaptive mode; Answered is a
// pointer so that a record without it can be told apart from one with zero
// answers.
type HistoryRecord struct {
	ID              string                     `json:"id"`
	Timestamp       int64                      `json:"timestamp"`
	Mode            string                     `json:"mode"`
	Total           int                        `json:"total"`
	Answered        *int                       `json:"answered,omitempty"`
	Correct         int                        `json:"correct"`
	Pct             int                        `json:"pct"`
	DurationSeconds *int64                     `json:"durationSeconds"`
	Time            *int64                     `json:"time,omitempty"`
	Items           []HistoryItem              `json:"items"`
	Questions       []string                   `json:"questions,omitempty"`
	PorDisciplina   map[string]DisciplineScore `json:"porDisciplina,omitempty"`
	Erradas         []WrongAnswer              `json:"erradas,omitempty"`
}

// AnsweredCount is the number of answers this record accounts for.
func (r HistoryRecord) AnsweredCount() int {
	if r.Answered != nil {
		return *r.Answered
	}
	return r.Total
}
