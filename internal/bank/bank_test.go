package bank_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vytor/ctiprep/internal/bank"
	"github.com/vytor/ctiprep/internal/models"
	"github.com/vytor/ctiprep/internal/testutil"
	"github.com/vytor/ctiprep/internal/testutil/mocks"
)

func TestNormalize(t *testing.T) {
	var raw models.RawQuestion
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": " m-001 ",
		"disciplina": "Matemática",
		"tema": "Frações",
		"nivel": 2,
		"ano": "2024",
		"enunciado": "Quanto é 1/2 + 1/2?",
		"alternativas": {"C": "3", "A": "1", "B": "2"},
		"correta": "A"
	}`), &raw))

	q := bank.Normalize(raw)

	assert.Equal(t, "m-001", q.ID)
	assert.Equal(t, "2", q.Nivel)
	assert.Equal(t, "2024", q.Ano)
	assert.Equal(t, []models.Alternative{
		{Key: "A", Text: "1", IsCorrect: true},
		{Key: "B", Text: "2"},
		{Key: "C", Text: "3"},
	}, q.Alternativas)
	assert.Equal(t, []string{}, q.Tags)
}

func TestNormalizeAll_DropsDuplicatesAndBlankIDs(t *testing.T) {
	raws := []models.RawQuestion{
		testutil.RawQuestion("a", "M", "T"),
		{ID: "  "},
		testutil.RawQuestion("b", "M", "T"),
		testutil.RawQuestion("a", "P", "X"),
	}

	got := bank.NormalizeAll(raws)

	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "M", got[0].Disciplina, "first occurrence wins")
	assert.Equal(t, "b", got[1].ID)
}

func TestBuildFacets(t *testing.T) {
	qs := []models.Question{
		testutil.Question("1", "Português", "Crase"),
		testutil.Question("2", "Matemática", "Frações"),
		testutil.Question("3", "Matemática", ""),
	}
	f := bank.BuildFacets(qs)
	assert.Equal(t, []string{"Matemática", "Português"}, f.Disciplinas)
	assert.Equal(t, []string{"Crase", "Frações"}, f.Temas)
	assert.Empty(t, f.Areas)
}

func writeBank(t *testing.T, dir, name string, raws []models.RawQuestion) string {
	t.Helper()
	b, err := json.Marshal(raws)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, b, 0o644))
	return path
}

func TestClient_FetchAll_KeepsSourceOrder(t *testing.T) {
	testutil.Quiet(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/portugues.json":
			_ = json.NewEncoder(w).Encode([]models.RawQuestion{testutil.RawQuestion("p1", "Português", "Crase")})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	file := writeBank(t, t.TempDir(), "mat.json", []models.RawQuestion{
		testutil.RawQuestion("m1", "Matemática", "Frações"),
		testutil.RawQuestion("m2", "Matemática", "Frações"),
	})

	c := bank.NewClientWithHTTP(srv.Client())
	got, err := c.FetchAll(context.Background(), []string{file, srv.URL + "/portugues.json", "file://" + file})
	require.NoError(t, err)

	var ids []string
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"m1", "m2", "p1", "m1", "m2"}, ids)
}

func TestClient_FetchAll_FailsOnAnySource(t *testing.T) {
	testutil.Quiet(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusInternalServerError)
	}))
	defer srv.Close()

	file := writeBank(t, t.TempDir(), "ok.json", []models.RawQuestion{testutil.RawQuestion("m1", "M", "T")})
	c := bank.NewClientWithHTTP(srv.Client())

	_, err := c.FetchAll(context.Background(), []string{file, srv.URL + "/broken.json"})
	assert.ErrorIs(t, err, bank.ErrFetch)

	_, err = c.FetchAll(context.Background(), []string{filepath.Join(t.TempDir(), "missing.json")})
	assert.ErrorIs(t, err, bank.ErrFetch)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"not":"an array"}`), 0o644))
	_, err = c.FetchAll(context.Background(), []string{bad})
	assert.ErrorIs(t, err, bank.ErrFetch)
}

func TestClient_FetchBlueprint(t *testing.T) {
	testutil.Quiet(t)
	path := filepath.Join(t.TempDir(), "blueprint.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"blocos":[{"disciplina":"Matemática","quantidade":2,"regras":[{"tema":"Frações","min":1}]}]}`), 0o644))

	bp, err := bank.NewClient(0).FetchBlueprint(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, bp.Blocos, 1)
	assert.Equal(t, 2, bp.Blocos[0].Quantidade)
	assert.Equal(t, "Frações", bp.Blocos[0].Regras[0].Tema)
}

func TestCatalog_RefreshKeepsLastGoodContents(t *testing.T) {
	testutil.Quiet(t)
	ctx := context.Background()
	sources := []string{"a.json"}
	fetcher := new(mocks.MockFetcher)
	fetcher.On("FetchAll", mock.Anything, sources).
		Return([]models.RawQuestion{testutil.RawQuestion("m1", "Matemática", "Frações")}, nil).Once()
	fetcher.On("FetchAll", mock.Anything, sources).
		Return(nil, fmt.Errorf("%w: offline", bank.ErrFetch)).Once()
	fetcher.On("FetchAll", mock.Anything, sources).
		Return([]models.RawQuestion{}, nil).Once()

	c := bank.NewCatalog(fetcher, sources)
	assert.False(t, c.Ready())

	require.NoError(t, c.Refresh(ctx))
	assert.True(t, c.Ready())

	err := c.Refresh(ctx)
	assert.ErrorIs(t, err, bank.ErrFetch)
	assert.Len(t, c.Questions(), 1)
	assert.NotEmpty(t, c.Status().LastError)

	err = c.Refresh(ctx)
	assert.True(t, errors.Is(err, bank.ErrEmptyCatalog))
	q, ok := c.Lookup("m1")
	require.True(t, ok)
	assert.Equal(t, "Frações", q.Tema)

	fetcher.AssertExpectations(t)
}

func TestCatalog_Resolve(t *testing.T) {
	c := bank.NewCatalog(nil, nil)
	c.Replace([]models.Question{
		testutil.Question("a", "M", "T"),
		testutil.Question("b", "M", "T"),
	})

	got := c.Resolve([]string{"b", "zz", "a"})
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
	assert.NoError(t, c.Refresh(context.Background()), "no sources is a no-op")
}

func TestAssemble(t *testing.T) {
	var pool []models.Question
	for i := 0; i < 4; i++ {
		pool = append(pool, testutil.Question(fmt.Sprintf("f%d", i), "Matemática", "Frações"))
		pool = append(pool, testutil.Question(fmt.Sprintf("g%d", i), "Matemática", "Geometria"))
	}
	pool = append(pool, testutil.Question("p0", "Português", "Crase"))

	bp := models.Blueprint{Blocos: []models.BlueprintBlock{
		{Disciplina: "Matemática", Quantidade: 5, Regras: []models.BlueprintRule{{Tema: "Geometria", Min: 3}}},
		{Disciplina: "Matemática", Quantidade: 5},
		{Disciplina: "Português", Quantidade: 2},
	}}

	got := bank.Assemble(pool, bp, testutil.Rand())

	seen := map[string]bool{}
	geometry := 0
	for i, q := range got.Questions {
		assert.False(t, seen[q.ID], "id %s repeated", q.ID)
		seen[q.ID] = true
		if i < 5 && q.Tema == "Geometria" {
			geometry++
		}
	}
	assert.GreaterOrEqual(t, geometry, 3, "rule minimum is honored in the first block")
	assert.Len(t, got.Questions, 9)
	assert.Equal(t, map[string]int{"Matemática": 8, "Português": 1}, got.SelectedCount)
	assert.Equal(t, []string{
		"Disciplina Matemática: banco atual fornece 3 de 5 itens.",
		"Disciplina Português: banco atual fornece 1 de 2 itens.",
	}, got.Avisos)
	assert.Equal(t, models.ExpectedBlock{Disciplina: "Português", Qtd: 2}, got.Expected[2])
}
