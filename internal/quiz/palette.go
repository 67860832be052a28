package quiz

import (
	"sort"

	"github.com/vytor/ctiprep/internal/models"
)

// Status values of a palette cell.
const (
	StatusNotSeen    = "not-seen"
	StatusUnanswered = "unanswered"
	StatusCorrect    = "correct"
	StatusWrong      = "wrong"
)

const noDiscipline = "—"

// QuestionStatus is the palette view of one question.
type QuestionStatus struct {
	Index      int    `json:"index"`
	QuestionID string `json:"questionId"`
	Status     string `json:"status"`
	Flagged    bool   `json:"flagged"`
	Current    bool   `json:"current"`
}

// Status describes question i. A question with no answer entry is
// "not-seen"; an entry without a check is "unanswered".
func (e *Engine) Status(i int) (QuestionStatus, error) {
	if !e.initialized {
		return QuestionStatus{}, ErrNotInitialized
	}
	if i < 0 || i >= len(e.questions) {
		return QuestionStatus{}, ErrIndexOutOfRange
	}
	q := e.questions[i]
	st := QuestionStatus{Index: i, QuestionID: q.ID, Current: i == e.index}

	a, ok := e.answers[q.ID]
	switch {
	case !ok:
		st.Status = StatusNotSeen
	case a.IsChecked && a.IsCorrect:
		st.Status = StatusCorrect
	case a.IsChecked:
		st.Status = StatusWrong
	default:
		st.Status = StatusUnanswered
	}
	st.Flagged = ok && a.Flagged
	return st, nil
}

// Palette returns the status of every question in order.
func (e *Engine) Palette() []QuestionStatus {
	out := make([]QuestionStatus, 0, len(e.questions))
	for i := range e.questions {
		st, err := e.Status(i)
		if err != nil {
			return nil
		}
		out = append(out, st)
	}
	return out
}

// DisciplineProgress is the live per-discipline tally of a session.
type DisciplineProgress struct {
	Disciplina string `json:"disciplina"`
	Total      int    `json:"total"`
	Checked    int    `json:"checked"`
	Correct    int    `json:"correct"`
}

// DisciplineSummary groups the session questions by discipline, sorted by
// name.
func (e *Engine) DisciplineSummary() []DisciplineProgress {
	acc := map[string]*DisciplineProgress{}
	for _, q := range e.questions {
		d := q.Disciplina
		if d == "" {
			d = noDiscipline
		}
		p, ok := acc[d]
		if !ok {
			p = &DisciplineProgress{Disciplina: d}
			acc[d] = p
		}
		p.Total++
		if a, ok := e.answers[q.ID]; ok && a.IsChecked {
			p.Checked++
			if a.IsCorrect {
				p.Correct++
			}
		}
	}

	out := make([]DisciplineProgress, 0, len(acc))
	for _, p := range acc {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Disciplina < out[j].Disciplina })
	return out
}

// State is a read-only view of the session for transport.
type State struct {
	Key      string                         `json:"key"`
	Index    int                            `json:"index"`
	Total    int                            `json:"total"`
	Finished bool                           `json:"finished"`
	Resumed  bool                           `json:"resumed"`
	Current  *models.Question               `json:"current,omitempty"`
	Selected string                         `json:"selected,omitempty"`
	Answers  map[string]models.AnswerRecord `json:"answers"`
	Summary  models.SessionSummary          `json:"summary"`
}

func (e *Engine) State() State {
	st := State{
		Key:      e.opts.PersistKey,
		Index:    e.index,
		Total:    len(e.questions),
		Finished: e.finished,
		Resumed:  e.resumed,
		Selected: e.Selected(),
		Answers:  e.Answers(),
		Summary:  e.Summary(),
	}
	if q, ok := e.current(); ok {
		st.Current = &q
	}
	return st
}
