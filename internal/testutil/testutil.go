package testutil

import (
	"context"
	"database/sql"
	"math/rand"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/vytor/ctiprep/internal/db"
	"github.com/vytor/ctiprep/internal/logger"
	"github.com/vytor/ctiprep/internal/models"
	"github.com/vytor/ctiprep/internal/store"
)

// NewTestDB creates an in-memory SQLite database with all migrations applied.
func NewTestDB(t *testing.T) *sql.DB {
	sqlDB, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	// every :memory: connection is its own database
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Migrate(context.Background(), sqlDB))
	return sqlDB
}

// NewMemoryStore returns a store backed by a plain in-memory map.
func NewMemoryStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(context.Background(), store.NewMemoryBackend(), "test:")
}

// NewSQLiteStore returns a store on top of NewTestDB.
func NewSQLiteStore(t *testing.T) *store.Store {
	t.Helper()
	sqlDB := NewTestDB(t)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return store.New(context.Background(), store.NewSQLiteBackend(sqlDB), "test:")
}

// MustClose closes a resource and fails the test on error.
func MustClose(t *testing.T, closer interface{ Close() error }) {
	require.NoError(t, closer.Close())
}

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Rand returns a deterministic source.
func Rand() *rand.Rand {
	return rand.New(rand.NewSource(42))
}

// Quiet installs a discarding default logger for the duration of the test.
func Quiet(t *testing.T) {
	prev := logger.Default()
	logger.SetDefault(logger.Discard())
	t.Cleanup(func() { logger.SetDefault(prev) })
}

// Question builds a four-choice question whose correct key is "A".
func Question(id, disciplina, tema string) models.Question {
	return models.Question{
		ID:         id,
		Disciplina: disciplina,
		Tema:       tema,
		Enunciado:  "enunciado " + id,
		Alternativas: []models.Alternative{
			{Key: "A", Text: "a", IsCorrect: true},
			{Key: "B", Text: "b"},
			{Key: "C", Text: "c"},
			{Key: "D", Text: "d"},
		},
		Correta: "A",
		Tags:    []string{},
	}
}

// RawQuestion is the bank-file form of Question.
func RawQuestion(id, disciplina, tema string) models.RawQuestion {
	return models.RawQuestion{
		ID:           id,
		Disciplina:   disciplina,
		Tema:         tema,
		Enunciado:    "enunciado " + id,
		Alternativas: map[string]string{"A": "a", "B": "b", "C": "c", "D": "d"},
		Correta:      "A",
	}
}
