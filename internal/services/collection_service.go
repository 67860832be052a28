package services

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/lithammer/shortuuid/v4"

	"github.com/vytor/ctiprep/internal/errors"
	"github.com/vytor/ctiprep/internal/logger"
	"github.com/vytor/ctiprep/internal/models"
	"github.com/vytor/ctiprep/internal/repository"
)

// CollectionService manages starred questions with notes and named question
// lists.
type CollectionService interface {
	Favorites(ctx context.Context) []models.Favorite
	ToggleStar(ctx context.Context, questionID string) (*models.Favorite, error)
	SetNote(ctx context.Context, questionID, note string) (models.Favorite, error)
	RemoveFavorite(ctx context.Context, questionID string) error

	Lists(ctx context.Context) []models.QuestionList
	GetList(ctx context.Context, id string) (*models.QuestionList, error)
	CreateList(ctx context.Context, title string, fromFavorites bool) (models.QuestionList, error)
	RenameList(ctx context.Context, id, title string) (models.QuestionList, error)
	AddToList(ctx context.Context, id string, questionIDs []string) (models.QuestionList, error)
	DeleteList(ctx context.Context, id string) error
	PracticeQuestions(ctx context.Context, id string) ([]models.Question, error)

	Export(ctx context.Context) models.CollectionsExport
	Import(ctx context.Context, data []byte) error
}

type collectionService struct {
	repo repository.CollectionRepository
	bank QuestionSource
	opts options
}

func NewCollectionService(repo repository.CollectionRepository, bank QuestionSource, opts ...Option) CollectionService {
	return &collectionService{repo: repo, bank: bank, opts: buildOptions(opts)}
}

func (s *collectionService) log(ctx context.Context) *logger.Logger {
	return logger.FromContext(ctx).WithPrefix("collection_service")
}

func newListID() string {
	return "col-" + shortuuid.New()[:8]
}

// Favorites returns every favorite sorted by question id.
func (s *collectionService) Favorites(ctx context.Context) []models.Favorite {
	favs := s.repo.Favorites(ctx)
	out := make([]models.Favorite, 0, len(favs))
	for _, f := range favs {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *collectionService) saveFavorites(ctx context.Context, favs map[string]models.Favorite) error {
	if err := s.repo.SaveFavorites(ctx, favs); err != nil {
		s.log(ctx).Error("failed to save favorites: %v", err)
		return errors.NewUnavailableError("collections storage", err)
	}
	return nil
}

// ToggleStar stars an unstarred question and removes a starred one, note
// included. It returns nil once the favorite is removed.
func (s *collectionService) ToggleStar(ctx context.Context, questionID string) (*models.Favorite, error) {
	if strings.TrimSpace(questionID) == "" {
		return nil, errors.NewValidationError("id", "cannot be empty")
	}
	favs := s.repo.Favorites(ctx)
	cur, exists := favs[questionID]
	if exists && cur.Starred {
		delete(favs, questionID)
		return nil, s.saveFavorites(ctx, favs)
	}

	fav := models.Favorite{ID: questionID, Starred: true, Note: cur.Note}
	if q, ok := s.bank.Lookup(questionID); ok {
		fav.Disciplina, fav.Area, fav.Tema = q.Disciplina, q.Area, q.Tema
	}
	favs[questionID] = fav
	if err := s.saveFavorites(ctx, favs); err != nil {
		return nil, err
	}
	return &fav, nil
}

// SetNote stores a note, starring the question if it was not a favorite.
func (s *collectionService) SetNote(ctx context.Context, questionID, note string) (models.Favorite, error) {
	if strings.TrimSpace(questionID) == "" {
		return models.Favorite{}, errors.NewValidationError("id", "cannot be empty")
	}
	favs := s.repo.Favorites(ctx)
	fav, ok := favs[questionID]
	if !ok {
		fav = models.Favorite{ID: questionID, Starred: true}
		if q, found := s.bank.Lookup(questionID); found {
			fav.Disciplina, fav.Area, fav.Tema = q.Disciplina, q.Area, q.Tema
		}
	}
	fav.Note = note
	favs[questionID] = fav
	return fav, s.saveFavorites(ctx, favs)
}

func (s *collectionService) RemoveFavorite(ctx context.Context, questionID string) error {
	favs := s.repo.Favorites(ctx)
	if _, ok := favs[questionID]; !ok {
		return errors.NewNotFoundError("favorite", questionID)
	}
	delete(favs, questionID)
	return s.saveFavorites(ctx, favs)
}

func (s *collectionService) Lists(ctx context.Context) []models.QuestionList {
	return s.repo.Lists(ctx)
}

func (s *collectionService) saveLists(ctx context.Context, lists []models.QuestionList) error {
	if err := s.repo.SaveLists(ctx, lists); err != nil {
		s.log(ctx).Error("failed to save lists: %v", err)
		return errors.NewUnavailableError("collections storage", err)
	}
	return nil
}

func findList(lists []models.QuestionList, id string) int {
	for i, l := range lists {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func (s *collectionService) GetList(ctx context.Context, id string) (*models.QuestionList, error) {
	lists := s.repo.Lists(ctx)
	i := findList(lists, id)
	if i < 0 {
		return nil, errors.NewNotFoundError("list", id)
	}
	return &lists[i], nil
}

// CreateList puts a new list at the top. With fromFavorites the list starts
// with every favorite id.
func (s *collectionService) CreateList(ctx context.Context, title string, fromFavorites bool) (models.QuestionList, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return models.QuestionList{}, errors.NewValidationError("title", "cannot be empty")
	}
	list := models.QuestionList{
		ID:        newListID(),
		Title:     title,
		Items:     []string{},
		CreatedAt: s.opts.now().UnixMilli(),
	}
	if fromFavorites {
		for _, f := range s.Favorites(ctx) {
			list.Items = append(list.Items, f.ID)
		}
	}

	lists := append([]models.QuestionList{list}, s.repo.Lists(ctx)...)
	if err := s.saveLists(ctx, lists); err != nil {
		return models.QuestionList{}, err
	}
	s.log(ctx).Info("created list %s with %d items", list.ID, len(list.Items))
	return list, nil
}

func (s *collectionService) RenameList(ctx context.Context, id, title string) (models.QuestionList, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return models.QuestionList{}, errors.NewValidationError("title", "cannot be empty")
	}
	lists := s.repo.Lists(ctx)
	i := findList(lists, id)
	if i < 0 {
		return models.QuestionList{}, errors.NewNotFoundError("list", id)
	}
	lists[i].Title = title
	return lists[i], s.saveLists(ctx, lists)
}

// AddToList appends ids not yet in the list, keeping their order.
func (s *collectionService) AddToList(ctx context.Context, id string, questionIDs []string) (models.QuestionList, error) {
	lists := s.repo.Lists(ctx)
	i := findList(lists, id)
	if i < 0 {
		return models.QuestionList{}, errors.NewNotFoundError("list", id)
	}
	present := map[string]struct{}{}
	for _, qid := range lists[i].Items {
		present[qid] = struct{}{}
	}
	for _, qid := range questionIDs {
		if qid == "" {
			continue
		}
		if _, ok := present[qid]; ok {
			continue
		}
		present[qid] = struct{}{}
		lists[i].Items = append(lists[i].Items, qid)
	}
	return lists[i], s.saveLists(ctx, lists)
}

func (s *collectionService) DeleteList(ctx context.Context, id string) error {
	lists := s.repo.Lists(ctx)
	i := findList(lists, id)
	if i < 0 {
		return errors.NewNotFoundError("list", id)
	}
	return s.saveLists(ctx, append(lists[:i], lists[i+1:]...))
}

// PracticeQuestions resolves a list against the bank. Ids the bank no
// longer has are skipped.
func (s *collectionService) PracticeQuestions(ctx context.Context, id string) ([]models.Question, error) {
	list, err := s.GetList(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(list.Items) == 0 {
		return nil, errors.NewBadRequestError("list is empty")
	}
	qs := s.bank.Resolve(list.Items)
	if len(qs) == 0 {
		return nil, errors.NewBadRequestError("none of the list questions are in the bank")
	}
	return qs, nil
}

func (s *collectionService) Export(ctx context.Context) models.CollectionsExport {
	return models.CollectionsExport{Favs: s.repo.Favorites(ctx), Lists: s.repo.Lists(ctx)}
}

// Import replaces favorites and lists from an export document. Either part
// may be missing, but a present part must be well formed, and nothing is
// written unless both parts validate.
func (s *collectionService) Import(ctx context.Context, data []byte) error {
	invalid := func(msg string) error {
		s.log(ctx).Warn("rejected collections import: %s", msg)
		return &errors.AppError{Code: errors.ErrCodeBadRequest, Message: msg, Status: 400, Err: ErrInvalidImport}
	}

	var payload struct {
		Favs  json.RawMessage `json:"favs"`
		Lists json.RawMessage `json:"lists"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return invalid("invalid collections file: not a JSON object")
	}
	present := func(raw json.RawMessage) bool { return len(raw) > 0 && string(raw) != "null" }
	if !present(payload.Favs) && !present(payload.Lists) {
		return invalid("invalid collections file: favs or lists is required")
	}

	var favs map[string]models.Favorite
	if present(payload.Favs) {
		if err := json.Unmarshal(payload.Favs, &favs); err != nil {
			return invalid("invalid collections file: favs must be an object")
		}
		for id, f := range favs {
			if f.ID == "" {
				f.ID = id
				favs[id] = f
			}
		}
	}
	var lists []models.QuestionList
	if present(payload.Lists) {
		if err := json.Unmarshal(payload.Lists, &lists); err != nil {
			return invalid("invalid collections file: lists must be an array")
		}
		for i := range lists {
			if lists[i].ID == "" {
				lists[i].ID = newListID()
			}
			if lists[i].Items == nil {
				lists[i].Items = []string{}
			}
		}
	}

	previous := s.repo.Favorites(ctx)
	if favs != nil {
		if err := s.saveFavorites(ctx, favs); err != nil {
			return err
		}
	}
	if lists != nil {
		if err := s.saveLists(ctx, lists); err != nil {
			if favs != nil {
				if rerr := s.repo.SaveFavorites(ctx, previous); rerr != nil {
					s.log(ctx).Error("failed to roll back favorites: %v", rerr)
				}
			}
			return err
		}
	}
	s.log(ctx).Info("imported %d favorites and %d lists", len(favs), len(lists))
	return nil
}
