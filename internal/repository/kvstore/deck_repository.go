package kvstore

import (
	"context"

	"github.com/vytor/ctiprep/internal/logger"
	"github.com/vytor/ctiprep/internal/models"
	"github.com/vytor/ctiprep/internal/repository"
	"github.com/vytor/ctiprep/internal/store"
)

type deckRepository struct {
	store    *store.Store
	key      string
	defaults models.DeckSettings
}

// NewDeckRepository creates a DeckRepository stored under key. defaults are
// used for a deck that has never been saved.
func NewDeckRepository(s *store.Store, key string, defaults models.DeckSettings) repository.DeckRepository {
	return &deckRepository{store: s, key: key, defaults: defaults}
}

func (r *deckRepository) Load(ctx context.Context) *models.Deck {
	deck := &models.Deck{}
	if !r.store.Get(ctx, r.key, deck) {
		logger.FromContext(ctx).WithPrefix("deck_repo").Debug("no stored deck, starting empty")
		deck = &models.Deck{Settings: r.defaults}
	}
	if deck.Items == nil {
		deck.Items = make(map[string]models.ScheduledItem)
	}
	if deck.Settings.DailyGoal == 0 {
		deck.Settings.DailyGoal = r.defaults.DailyGoal
	}
	return deck
}

func (r *deckRepository) Save(ctx context.Context, deck *models.Deck) error {
	if !r.store.Set(ctx, r.key, deck) {
		return store.ErrWrite
	}
	logger.FromContext(ctx).WithPrefix("deck_repo").Debug("saved deck with %d items", len(deck.Items))
	return nil
}

func (r *deckRepository) Clear(ctx context.Context) error {
	if !r.store.Remove(ctx, r.key) {
		return store.ErrWrite
	}
	return nil
}
