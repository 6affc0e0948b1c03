package roster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"guess-character/internal/domain"
	"guess-character/internal/images"
	"guess-character/internal/store"

	"github.com/rs/zerolog/log"
)

// Entry is one character in a roster file.
type Entry struct {
	Name           string   `json:"name"`
	Image          string   `json:"image"`
	ForbiddenWords []string `json:"forbiddenWords"`
	Sets           []string `json:"sets,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type Result struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	ID      string `json:"id,omitempty"`
	Created bool   `json:"created,omitempty"`
	Error   string `json:"error,omitempty"`
}

type Upserter interface {
	UpsertCharacterByName(ctx context.Context, in store.CharacterInput) (domain.Character, bool, error)
}

// Importer upserts roster entries by name.
type Importer struct {
	Store  Upserter
	Images images.Storage
	HTTP   *http.Client
	// BaseDir enables reading images from local files, resolved relative to
	// it. When empty, non-URL images are stored as given.
	BaseDir string
}

// Parse decodes a JSON array of entries.
func Parse(r io.Reader) ([]Entry, error) {
	var entries []Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("%w: expected a JSON array of characters: %w", domain.ErrValidation, err)
	}
	return entries, nil
}

// Import processes every entry and reports a result per entry. A failing
// entry does not stop the rest.
func (i *Importer) Import(ctx context.Context, entries []Entry) []Result {
	results := make([]Result, 0, len(entries))
	for _, entry := range entries {
		result := Result{Name: entry.Name}
		character, created, err := i.importOne(ctx, entry)
		if err != nil {
			log.Warn().Err(err).Str("name", entry.Name).Msg("roster entry failed")
			result.Status = StatusError
			result.Error = err.Error()
		} else {
			result.Status = StatusSuccess
			result.ID = character.ID
			result.Created = created
		}
		results = append(results, result)
	}
	return results
}

func (i *Importer) importOne(ctx context.Context, entry Entry) (domain.Character, bool, error) {
	if strings.TrimSpace(entry.Name) == "" {
		return domain.Character{}, false, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	imageURL, err := i.ResolveImage(ctx, strings.TrimSpace(entry.Image))
	if err != nil {
		return domain.Character{}, false, err
	}
	return i.Store.UpsertCharacterByName(ctx, store.CharacterInput{
		Name:           entry.Name,
		ImageURL:       imageURL,
		ForbiddenWords: entry.ForbiddenWords,
		SetIDs:         entry.Sets,
	})
}

// ResolveImage turns a roster image reference into a stored image URL.
func (i *Importer) ResolveImage(ctx context.Context, image string) (string, error) {
	switch {
	case image == "":
		return "", fmt.Errorf("%w: image is required", domain.ErrValidation)
	case strings.HasPrefix(image, "http://") || strings.HasPrefix(image, "https://"):
		if i.Images == nil {
			return image, nil
		}
		downloaded, err := images.Download(ctx, i.HTTP, image)
		if err != nil {
			return "", err
		}
		return i.Images.Save(ctx, downloaded.Data, downloaded.FileName, downloaded.ContentType)
	case i.BaseDir != "" && i.Images != nil && !strings.HasPrefix(image, "/uploads/"):
		path := image
		if !filepath.IsAbs(path) {
			path = filepath.Join(i.BaseDir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", fmt.Errorf("image not found at %s", path)
			}
			return "", err
		}
		return i.Images.Save(ctx, data, filepath.Base(path), images.ContentType(filepath.Ext(path)))
	default:
		return image, nil
	}
}
