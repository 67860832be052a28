package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lithammer/shortuuid/v4"

	"github.com/vytor/ctiprep/internal/analytics"
	"github.com/vytor/ctiprep/internal/errors"
	"github.com/vytor/ctiprep/internal/logger"
	"github.com/vytor/ctiprep/internal/models"
	"github.com/vytor/ctiprep/internal/repository"
)

// HistoryService records finished sessions and serves the merged history of
// the exam and adaptive buckets.
type HistoryService interface {
	Record(ctx context.Context, rec models.HistoryRecord) (models.HistoryRecord, error)
	List(ctx context.Context) []models.HistoryRecord
	Get(ctx context.Context, id string) (*models.HistoryRecord, error)
	Report(ctx context.Context) analytics.Report
	WeakSpots(ctx context.Context) []analytics.TopicStat
	Detail(ctx context.Context, id string) (*SessionDetail, error)
	Import(ctx context.Context, data []byte) (int, error)
	Clear(ctx context.Context) error
}

// SessionDetail is one record broken down by topic.
type SessionDetail struct {
	Record models.HistoryRecord   `json:"record"`
	Topics []analytics.TopicStat `json:"topics"`
}

type historyService struct {
	exam     repository.HistoryRepository
	adaptive repository.HistoryRepository
	opts     options
}

// NewHistoryService creates a HistoryService. exam receives every record
// that is not from the adaptive mode.
func NewHistoryService(exam, adaptive repository.HistoryRepository, opts ...Option) HistoryService {
	return &historyService{exam: exam, adaptive: adaptive, opts: buildOptions(opts)}
}

func idPrefix(mode string) string {
	switch {
	case mode == models.ModeAdaptive:
		return "adp-"
	case strings.HasPrefix(mode, models.ModeLesson):
		return "sess-les-"
	case mode == models.ModePractice:
		return "sess-col-"
	default:
		return "sess-"
	}
}

func (s *historyService) bucketFor(mode string) repository.HistoryRepository {
	if mode == models.ModeAdaptive {
		return s.adaptive
	}
	return s.exam
}

// Record stamps rec with a timestamp and a unique id when missing and puts
// it at the top of its bucket.
func (s *historyService) Record(ctx context.Context, rec models.HistoryRecord) (models.HistoryRecord, error) {
	log := logger.FromContext(ctx).WithPrefix("history_service")

	if rec.Timestamp == 0 {
		rec.Timestamp = s.opts.now().UnixMilli()
	}
	if rec.Items == nil {
		rec.Items = []models.HistoryItem{}
	}

	taken := map[string]struct{}{}
	for _, r := range s.List(ctx) {
		taken[r.ID] = struct{}{}
	}
	if rec.ID == "" {
		rec.ID = fmt.Sprintf("%s%d", idPrefix(rec.Mode), rec.Timestamp)
	}
	if _, dup := taken[rec.ID]; dup {
		rec.ID = rec.ID + "-" + shortuuid.New()[:8]
	}

	bucket := s.bucketFor(rec.Mode)
	if err := bucket.Prepend(ctx, rec); err != nil {
		log.Error("failed to record session %s: %v", rec.ID, err)
		return rec, errors.NewUnavailableError("history storage", err)
	}
	log.Info("recorded %s session %s: %d/%d (%d%%)", rec.Mode, rec.ID, rec.Correct, rec.Total, rec.Pct)
	return rec, nil
}

// List merges both buckets, newest first. Adaptive records are normalized.
func (s *historyService) List(ctx context.Context) []models.HistoryRecord {
	adaptive := s.adaptive.List(ctx)
	for i, r := range adaptive {
		adaptive[i] = analytics.NormalizeAdaptive(r)
	}
	out := analytics.Merge(s.exam.List(ctx), adaptive)
	if out == nil {
		out = []models.HistoryRecord{}
	}
	return out
}

func (s *historyService) Get(ctx context.Context, id string) (*models.HistoryRecord, error) {
	for _, r := range s.List(ctx) {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, errors.NewNotFoundError("session", id)
}

func (s *historyService) Report(ctx context.Context) analytics.Report {
	return analytics.Aggregate(s.List(ctx))
}

func (s *historyService) WeakSpots(ctx context.Context) []analytics.TopicStat {
	return analytics.WeakSpots(s.Report(ctx).PerTopic, analytics.MinAttempts, analytics.WeakSpotLimit)
}

func (s *historyService) Detail(ctx context.Context, id string) (*SessionDetail, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &SessionDetail{Record: *rec, Topics: analytics.SessionDetail(*rec)}, nil
}

// Import reads a JSON array of records. Records whose id is already known
// are skipped; the rest go on top of the exam bucket. Nothing is written
// when the payload is not an array.
func (s *historyService) Import(ctx context.Context, data []byte) (int, error) {
	log := logger.FromContext(ctx).WithPrefix("history_service")

	var incoming []models.HistoryRecord
	if err := json.Unmarshal(data, &incoming); err != nil || incoming == nil {
		log.Warn("rejected history import: %v", err)
		return 0, &errors.AppError{
			Code:    errors.ErrCodeBadRequest,
			Message: "invalid history file: expected a JSON array",
			Status:  400,
			Err:     ErrInvalidImport,
		}
	}

	known := map[string]struct{}{}
	for _, r := range s.List(ctx) {
		known[r.ID] = struct{}{}
	}
	var fresh []models.HistoryRecord
	for _, r := range incoming {
		if r.ID == "" {
			continue
		}
		if _, ok := known[r.ID]; ok {
			continue
		}
		known[r.ID] = struct{}{}
		fresh = append(fresh, r)
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	merged := append(fresh, s.exam.List(ctx)...)
	if err := s.exam.Replace(ctx, merged); err != nil {
		log.Error("failed to save imported history: %v", err)
		return 0, errors.NewUnavailableError("history storage", err)
	}
	log.Info("imported %d of %d history records", len(fresh), len(incoming))
	return len(fresh), nil
}

// Clear empties the exam bucket. Adaptive history is cleared with the deck.
func (s *historyService) Clear(ctx context.Context) error {
	if err := s.exam.Replace(ctx, nil); err != nil {
		return errors.NewUnavailableError("history storage", err)
	}
	return nil
}

// BuildRecord summarizes a finished session over all of its questions.
// Unanswered questions count as wrong.
func BuildRecord(mode string, questions []models.Question, answers map[string]models.AnswerRecord, durationSeconds int64) models.HistoryRecord {
	rec := models.HistoryRecord{
		Mode:            mode,
		Total:           len(questions),
		DurationSeconds: &durationSeconds,
		Items:           make([]models.HistoryItem, 0, len(questions)),
		Questions:       questionIDs(questions),
	}
	for _, q := range questions {
		a, ok := answers[q.ID]
		item := models.HistoryItem{
			ID:         q.ID,
			Disciplina: q.Disciplina,
			Area:       q.Area,
			Tema:       q.Tema,
			Correct:    ok && a.IsCorrect,
		}
		if ok && a.IsChecked {
			t := a.Time
			item.Time = &t
		}
		if item.Correct {
			rec.Correct++
		}
		rec.Items = append(rec.Items, item)
	}
	rec.Pct = models.Percent(rec.Correct, rec.Total)
	return rec
}
