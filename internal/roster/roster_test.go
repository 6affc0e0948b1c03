package roster

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"guess-character/internal/domain"
	"guess-character/internal/images"
	"guess-character/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	entries, err := Parse(strings.NewReader(`[{"name":"Mario","image":"/uploads/m.png","forbiddenWords":["plumber"]}]`))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"plumber"}, entries[0].ForbiddenWords)

	_, err = Parse(strings.NewReader(`{"name":"Mario"}`))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestImportDownloadsRemoteImagesAndUpserts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/luigi.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png"))
	}))
	defer srv.Close()

	ctx := context.Background()
	mem := store.NewMemory()
	existing, err := mem.CreateCharacter(ctx, store.CharacterInput{Name: "Mario", ImageURL: "old.png", ForbiddenWords: []string{"red"}})
	require.NoError(t, err)

	importer := &Importer{Store: mem, Images: images.NewLocal(t.TempDir()), HTTP: srv.Client()}
	results := importer.Import(ctx, []Entry{
		{Name: "Mario", Image: "/uploads/new.png", ForbiddenWords: []string{"jump"}},
		{Name: "Luigi", Image: srv.URL + "/luigi.png", ForbiddenWords: []string{"green"}},
		{Name: "Wario", Image: srv.URL + "/missing.png"},
		{Name: "", Image: "/uploads/x.png"},
	})

	require.Len(t, results, 4)
	assert.Equal(t, Result{Name: "Mario", Status: StatusSuccess, ID: existing.ID}, results[0])
	assert.Equal(t, StatusSuccess, results[1].Status)
	assert.True(t, results[1].Created)
	assert.Equal(t, StatusError, results[2].Status)
	assert.Contains(t, results[2].Error, "404")
	assert.Equal(t, StatusError, results[3].Status)

	mario, err := mem.GetCharacter(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/new.png", mario.ImageURL)
	assert.Equal(t, []string{"jump"}, mario.ForbiddenWords)

	luigi, err := mem.GetCharacter(ctx, results[1].ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(luigi.ImageURL, "/uploads/"))
}

func TestImportReadsLocalFilesRelativeToBaseDir(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, "peach.webp"), []byte("webp"), 0o644))
	uploads := t.TempDir()

	mem := store.NewMemory()
	importer := &Importer{Store: mem, Images: images.NewLocal(uploads), BaseDir: base}
	results := importer.Import(context.Background(), []Entry{
		{Name: "Peach", Image: "peach.webp"},
		{Name: "Daisy", Image: "daisy.png"},
	})

	require.Len(t, results, 2)
	assert.Equal(t, StatusSuccess, results[0].Status)
	assert.Equal(t, StatusError, results[1].Status)
	assert.Contains(t, results[1].Error, "image not found")

	peach, err := mem.GetCharacter(context.Background(), results[0].ID)
	require.NoError(t, err)
	stored, err := os.ReadFile(filepath.Join(uploads, strings.TrimPrefix(peach.ImageURL, "/uploads/")))
	require.NoError(t, err)
	assert.Equal(t, "webp", string(stored))
}
