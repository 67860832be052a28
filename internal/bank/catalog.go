package bank

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vytor/ctiprep/internal/logger"
	"github.com/vytor/ctiprep/internal/models"
)

// ErrEmptyCatalog is returned when a refresh yields no usable question.
var ErrEmptyCatalog = errors.New("bank: sources produced no questions")

// Catalog is the in-memory question bank. It is safe for concurrent use; a
// failed refresh keeps the last good contents.
type Catalog struct {
	fetcher Fetcher
	sources []string

	mu        sync.RWMutex
	questions []models.Question
	byID      map[string]models.Question
	facets    Facets
	loadedAt  time.Time
	lastErr   error
}

func NewCatalog(fetcher Fetcher, sources []string) *Catalog {
	return &Catalog{
		fetcher: fetcher,
		sources: append([]string(nil), sources...),
		byID:    map[string]models.Question{},
	}
}

func (c *Catalog) Sources() []string {
	return append([]string(nil), c.sources...)
}

// Refresh reloads every source.
func (c *Catalog) Refresh(ctx context.Context) error {
	log := logger.FromContext(ctx).WithPrefix("catalog")
	if len(c.sources) == 0 {
		log.Debug("no bank sources configured")
		return nil
	}

	start := time.Now()
	raws, err := c.fetcher.FetchAll(ctx, c.sources)
	if err == nil && len(raws) == 0 {
		err = ErrEmptyCatalog
	}
	if err != nil {
		c.mu.Lock()
		c.lastErr = err
		kept := len(c.questions)
		c.mu.Unlock()
		log.Warn("refresh failed, keeping %d cached questions: %v", kept, err)
		return err
	}

	c.Replace(NormalizeAll(raws))
	log.Info("catalog refreshed with %d questions from %d sources in %v", len(raws), len(c.sources), time.Since(start))
	return nil
}

// Replace swaps the contents for qs, which must already be normalized.
func (c *Catalog) Replace(qs []models.Question) {
	qs = UniqByID(qs)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.questions = qs
	c.byID = Index(qs)
	c.facets = BuildFacets(qs)
	c.loadedAt = time.Now()
	c.lastErr = nil
}

// Questions returns a copy of the catalog in source order.
func (c *Catalog) Questions() []models.Question {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Question(nil), c.questions...)
}

func (c *Catalog) Lookup(id string) (models.Question, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.byID[id]
	return q, ok
}

// Resolve maps ids to questions in order, skipping unknown ids.
func (c *Catalog) Resolve(ids []string) []models.Question {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := c.byID[id]; ok {
			out = append(out, q)
		}
	}
	return out
}

func (c *Catalog) Filter(f models.QuestionFilter) []models.Question {
	return Filter(c.Questions(), f)
}

func (c *Catalog) Facets() Facets {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.facets
}

// Status reports the size, load time and last refresh error.
type Status struct {
	Questions int       `json:"questions"`
	LoadedAt  time.Time `json:"loadedAt"`
	LastError string    `json:"lastError,omitempty"`
}

func (c *Catalog) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st := Status{Questions: len(c.questions), LoadedAt: c.loadedAt}
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	return st
}

func (c *Catalog) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.questions) > 0
}
