package services

import (
	stderrors "errors"
	"math/rand"
	"time"

	"github.com/vytor/ctiprep/internal/models"
)

var (
	ErrNothingToDo   = stderrors.New("services: nothing due and no new candidates")
	ErrInvalidImport = stderrors.New("services: invalid import payload")
)

// QuestionSource is the read side of the question bank.
type QuestionSource interface {
	Questions() []models.Question
	Lookup(id string) (models.Question, bool)
	Resolve(ids []string) []models.Question
}

type options struct {
	now func() time.Time
	rng *rand.Rand
}

// Option configures a service.
type Option func(*options)

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithRand(r *rand.Rand) Option {
	return func(o *options) { o.rng = r }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return o
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

