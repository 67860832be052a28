package quiz

import (
	"context"
	"fmt"
	"time"

	"github.com/vytor/ctiprep/internal/models"
)

// EventKind identifies what happened in a session.
type EventKind int

const (
	AnswerChecked EventKind = iota + 1
	SessionFinished
	Navigated
)

func (k EventKind) String() string {
	switch k {
	case AnswerChecked:
		return "answerChecked"
	case SessionFinished:
		return "sessionFinished"
	case Navigated:
		return "navigated"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *EventKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "answerChecked":
		*k = AnswerChecked
	case "sessionFinished":
		*k = SessionFinished
	case "navigated":
		*k = Navigated
	default:
		return fmt.Errorf("quiz: unknown event kind %q", string(b))
	}
	return nil
}

// Event is delivered to subscribers after the state change it describes has
// been applied and persisted. Questions, Answers and Elapsed are only set on
// SessionFinished.
type Event struct {
	Kind       EventKind                      `json:"kind"`
	SessionKey string                         `json:"sessionKey,omitempty"`
	Index      int                            `json:"index"`
	QuestionID string                         `json:"questionId,omitempty"`
	Question   *models.Question               `json:"question,omitempty"`
	Answer     *models.AnswerRecord           `json:"answer,omitempty"`
	Summary    *models.SessionSummary         `json:"summary,omitempty"`
	Questions  []models.Question              `json:"-"`
	Answers    map[string]models.AnswerRecord `json:"-"`
	Elapsed    time.Duration                  `json:"-"`
	At         time.Time                      `json:"at"`
}

// Handler observes session events. Handlers run synchronously, in
// subscription order, on the goroutine that drove the engine.
type Handler func(ctx context.Context, ev Event)

type subscription struct {
	id int
	h  Handler
}

type observers struct {
	next int
	subs map[EventKind][]subscription
}

func (o *observers) add(kind EventKind, h Handler) int {
	if o.subs == nil {
		o.subs = make(map[EventKind][]subscription)
	}
	o.next++
	o.subs[kind] = append(o.subs[kind], subscription{id: o.next, h: h})
	return o.next
}

func (o *observers) remove(kind EventKind, id int) {
	list := o.subs[kind]
	for i, s := range list {
		if s.id == id {
			o.subs[kind] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

func (o *observers) emit(ctx context.Context, ev Event) {
	list := append([]subscription(nil), o.subs[ev.Kind]...)
	for _, s := range list {
		s.h(ctx, ev)
	}
}
