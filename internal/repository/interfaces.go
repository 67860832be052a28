package repository

import (
	"context"

	"github.com/vytor/ctiprep/internal/models"
)

// Every repository sits on the fail-soft durable store: reads that fail
// return the empty value, writes that fail return store.ErrWrite.

// DeckRepository handles the adaptive deck
type DeckRepository interface {
	// Load returns the persisted deck, or an empty deck with default
	// settings when none is stored.
	Load(ctx context.Context) *models.Deck
	Save(ctx context.Context, deck *models.Deck) error
	Clear(ctx context.Context) error
}

// HistoryRepository handles one named bucket of history records, newest first
type HistoryRepository interface {
	Bucket() string
	List(ctx context.Context) []models.HistoryRecord
	Prepend(ctx context.Context, record models.HistoryRecord) error
	Replace(ctx context.Context, records []models.HistoryRecord) error
	Clear(ctx context.Context) error
}

// SessionRepository handles persisted quiz session snapshots by session key
type SessionRepository interface {
	Load(ctx context.Context, key string) (*models.SessionSnapshot, bool)
	Save(ctx context.Context, key string, snapshot models.SessionSnapshot) error
	Delete(ctx context.Context, key string) error
}

// TimerRepository handles persisted countdown clocks by timer key
type TimerRepository interface {
	Load(ctx context.Context, key string) (models.TimerState, bool)
	Save(ctx context.Context, key string, state models.TimerState) error
	Delete(ctx context.Context, key string) error
}

// CollectionRepository handles favorites and question lists
type CollectionRepository interface {
	Favorites(ctx context.Context) map[string]models.Favorite
	SaveFavorites(ctx context.Context, favs map[string]models.Favorite) error
	Lists(ctx context.Context) []models.QuestionList
	SaveLists(ctx context.Context, lists []models.QuestionList) error
}

// ExamRepository handles the assembled exam metadata and its last result
type ExamRepository interface {
	Meta(ctx context.Context) (*models.ExamMeta, bool)
	SaveMeta(ctx context.Context, meta models.ExamMeta) error
	Result(ctx context.Context) (*models.HistoryRecord, bool)
	SaveResult(ctx context.Context, result models.HistoryRecord) error
}
