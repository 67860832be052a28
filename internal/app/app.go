// Package app builds the store, question bank and services from a Config.
// The HTTP server and the CLI share it.
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/vytor/ctiprep/internal/bank"
	"github.com/vytor/ctiprep/internal/config"
	"github.com/vytor/ctiprep/internal/db"
	"github.com/vytor/ctiprep/internal/logger"
	"github.com/vytor/ctiprep/internal/models"
	"github.com/vytor/ctiprep/internal/repository"
	"github.com/vytor/ctiprep/internal/repository/kvstore"
	"github.com/vytor/ctiprep/internal/services"
	"github.com/vytor/ctiprep/internal/store"
)

type App struct {
	Config  config.Config
	Store   *store.Store
	Client  *bank.Client
	Catalog *bank.Catalog

	Sessions repository.SessionRepository
	Timers   repository.TimerRepository

	Deck        services.DeckService
	History     services.HistoryService
	Collections services.CollectionService
	Exam        services.ExamService
	Lessons     services.LessonService

	closers []io.Closer
}

// New opens the configured backend and wires every service on top of it.
// The catalog starts empty; call LoadBank to fill it.
func New(ctx context.Context, cfg config.Config, opts ...services.Option) (*App, error) {
	log := logger.FromContext(ctx).WithPrefix("app")

	a := &App{Config: cfg}
	backend, err := a.openBackend(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = store.New(ctx, backend, cfg.StoreNamespace)
	if a.Store.Degraded() {
		log.Warn("store %s failed its probe, running in memory", cfg.StoreDriver)
	}

	a.Client = bank.NewClient(cfg.BankFetchTimeout)
	a.Catalog = bank.NewCatalog(a.Client, cfg.BankSources)

	a.Sessions = kvstore.NewSessionRepository(a.Store)
	a.Timers = kvstore.NewTimerRepository(a.Store)
	adaptive := kvstore.NewHistoryRepository(a.Store, kvstore.AdaptiveHistoryKey)
	decks := kvstore.NewDeckRepository(a.Store, kvstore.DeckKey, models.DeckSettings{
		DailyGoal: cfg.DailyGoalDefault,
		NewPerDay: cfg.NewPerDayDefault,
	})

	a.History = services.NewHistoryService(kvstore.NewHistoryRepository(a.Store, kvstore.ExamHistoryKey), adaptive, opts...)
	a.Deck = services.NewDeckService(decks, a.Sessions, adaptive, a.History, a.Catalog, opts...)
	a.Collections = services.NewCollectionService(kvstore.NewCollectionRepository(a.Store), a.Catalog, opts...)
	a.Exam = services.NewExamService(kvstore.NewExamRepository(a.Store), a.History, a.Catalog, a.Client,
		cfg.BankBlueprint, cfg.ExamDuration, opts...)
	a.Lessons = services.NewLessonService(a.Catalog, a.History, opts...)

	log.Info("ready on %s store (namespace %q)", a.Store.BackendName(), cfg.StoreNamespace)
	return a, nil
}

func (a *App) openBackend(ctx context.Context) (store.Backend, error) {
	log := logger.FromContext(ctx).WithPrefix("app")
	switch a.Config.StoreDriver {
	case config.DriverSQLite:
		database, err := db.Open(a.Config.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		a.closers = append(a.closers, database)
		return store.NewSQLiteBackend(database.DB), nil
	case config.DriverRedis:
		rb, err := store.NewRedisBackend(a.Config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		a.closers = append(a.closers, rb)
		return rb, nil
	case config.DriverMemory:
		log.Warn("using the memory store, nothing will survive a restart")
		return store.NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", a.Config.StoreDriver)
	}
}

// LoadBank refreshes the catalog from the configured sources. With no
// sources configured it does nothing.
func (a *App) LoadBank(ctx context.Context) error {
	return a.Catalog.Refresh(ctx)
}

// Close releases the backend connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			logger.Default().WithPrefix("app").Warn("close failed: %v", err)
		}
	}
	a.closers = nil
}
