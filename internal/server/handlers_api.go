package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"guess-character/internal/domain"
	"guess-character/internal/roster"
	"guess-character/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type characterRequest struct {
	Name           string   `json:"name" binding:"required,max=120"`
	ImageURL       string   `json:"imageUrl" binding:"required"`
	ForbiddenWords []string `json:"forbiddenWords"`
	SetIDs         []string `json:"setIds"`
}

type updateCharacterRequest struct {
	Name           *string   `json:"name" binding:"omitempty,max=120"`
	ImageURL       *string   `json:"imageUrl"`
	ForbiddenWords *[]string `json:"forbiddenWords"`
}

type membershipsRequest struct {
	SetIDs []string `json:"setIds"`
}

type setRequest struct {
	Name string `json:"name" binding:"required,max=120"`
}

type playedRequest struct {
	CharacterID string `json:"characterId" binding:"required"`
}

type imageSearchQuery struct {
	Q string `form:"q" binding:"required"`
}

var characterMessages = bindMessages{
	"Name": {
		"required": "Name and image are required",
		"max":      "Name must be at most 120 characters",
	},
	"ImageURL": {
		"required": "Name and image are required",
	},
}

var setMessages = bindMessages{
	"Name": {
		"required": "Name is required",
		"max":      "Name must be at most 120 characters",
	},
}

func (s *Server) handleListCharacters(c *gin.Context) {
	withSets := c.DefaultQuery("withSets", "true") != "false"
	characters, err := s.store.ListCharacters(c.Request.Context(), withSets)
	if err != nil {
		respondError(c, err, "Failed to fetch characters")
		return
	}
	c.JSON(http.StatusOK, characters)
}

func (s *Server) handleCreateCharacter(c *gin.Context) {
	var (
		in  store.CharacterInput
		err error
	)
	if isMultipart(c) {
		in, err = s.characterFromForm(c, "forbiddenWords")
		if err != nil {
			respondError(c, err, "Failed to create character")
			return
		}
	} else {
		var req characterRequest
		if !bindJSON(c, &req, characterMessages, "invalid character") {
			return
		}
		image, err := s.importer.ResolveImage(c.Request.Context(), req.ImageURL)
		if err != nil {
			respondError(c, err, "Failed to store image")
			return
		}
		in = store.CharacterInput{Name: req.Name, ImageURL: image, ForbiddenWords: req.ForbiddenWords, SetIDs: req.SetIDs}
	}
	character, err := s.store.CreateCharacter(c.Request.Context(), in)
	if err != nil {
		s.discardImage(c, in.ImageURL)
		respondError(c, err, "Failed to create character")
		return
	}
	log.Info().Str("character_id", character.ID).Str("name", character.Name).Msg("character created")
	c.JSON(http.StatusCreated, character)
}

func (s *Server) handleGetCharacter(c *gin.Context) {
	id, ok := bindURI(c)
	if !ok {
		return
	}
	character, err := s.store.GetCharacter(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to fetch character")
		return
	}
	c.JSON(http.StatusOK, character)
}

func (s *Server) handleUpdateCharacter(c *gin.Context) {
	id, ok := bindURI(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	existing, err := s.store.GetCharacter(ctx, id)
	if err != nil {
		respondError(c, err, "Failed to update character")
		return
	}

	var patch store.CharacterPatch
	if isMultipart(c) {
		patch, err = s.patchFromForm(c)
		if err != nil {
			respondError(c, err, "Failed to update character")
			return
		}
	} else {
		var req updateCharacterRequest
		if !bindJSON(c, &req, characterMessages, "invalid character") {
			return
		}
		patch = store.CharacterPatch{Name: req.Name, ForbiddenWords: req.ForbiddenWords}
		if req.ImageURL != nil && *req.ImageURL != existing.ImageURL {
			image, err := s.importer.ResolveImage(ctx, *req.ImageURL)
			if err != nil {
				respondError(c, err, "Failed to store image")
				return
			}
			patch.ImageURL = &image
		}
	}

	character, err := s.store.UpdateCharacter(ctx, id, patch)
	if err != nil {
		if patch.ImageURL != nil {
			s.discardImage(c, *patch.ImageURL)
		}
		respondError(c, err, "Failed to update character")
		return
	}
	if patch.ImageURL != nil && *patch.ImageURL != existing.ImageURL {
		s.discardImage(c, existing.ImageURL)
	}
	c.JSON(http.StatusOK, character)
}

func (s *Server) handleDeleteCharacter(c *gin.Context) {
	id, ok := bindURI(c)
	if !ok {
		return
	}
	character, err := s.store.DeleteCharacter(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to delete character")
		return
	}
	s.discardImage(c, character.ImageURL)
	log.Info().Str("character_id", id).Msg("character deleted")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleCharacterSets(c *gin.Context) {
	id, ok := bindURI(c)
	if !ok {
		return
	}
	var req membershipsRequest
	if !bindJSON(c, &req, nil, "setIds must be a list of set ids") {
		return
	}
	character, err := s.store.SetMemberships(c.Request.Context(), id, req.SetIDs)
	if err != nil {
		respondError(c, err, "Failed to update character sets")
		return
	}
	c.JSON(http.StatusOK, character)
}

func (s *Server) handleBulkCharacters(c *gin.Context) {
	var body io.Reader = c.Request.Body
	if isMultipart(c) {
		header, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
			return
		}
		file, err := header.Open()
		if err != nil {
			respondError(c, err, "Failed to process bulk upload")
			return
		}
		defer file.Close()
		body = file
	}
	entries, err := roster.Parse(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format. Expected an array of characters."})
		return
	}
	results := s.importer.Import(c.Request.Context(), entries)
	log.Info().Int("entries", len(entries)).Msg("bulk import finished")
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) handleRandomCharacter(c *gin.Context) {
	character, err := s.store.RandomCharacter(c.Request.Context())
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No characters found"})
		return
	}
	if err != nil {
		respondError(c, err, "Internal Server Error")
		return
	}
	c.JSON(http.StatusOK, character)
}

func (s *Server) handleListSets(c *gin.Context) {
	sets, err := s.store.ListSets(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to fetch sets")
		return
	}
	c.JSON(http.StatusOK, sets)
}

func (s *Server) handleCreateSet(c *gin.Context) {
	var req setRequest
	if !bindJSON(c, &req, setMessages, "invalid set") {
		return
	}
	set, err := s.store.CreateSet(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err, "Failed to create set")
		return
	}
	c.JSON(http.StatusCreated, set)
}

func (s *Server) handleRenameSet(c *gin.Context) {
	id, ok := bindURI(c)
	if !ok {
		return
	}
	var req setRequest
	if !bindJSON(c, &req, setMessages, "invalid set") {
		return
	}
	set, err := s.store.RenameSet(c.Request.Context(), id, req.Name)
	if err != nil {
		respondError(c, err, "Failed to update set")
		return
	}
	c.JSON(http.StatusOK, set)
}

func (s *Server) handleDeleteSet(c *gin.Context) {
	id, ok := bindURI(c)
	if !ok {
		return
	}
	if err := s.store.DeleteSet(c.Request.Context(), id); err != nil {
		respondError(c, err, "Failed to delete set")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleCreateGame accepts an optional configuration. An empty body or a
// body without allowedSets creates an unrestricted game.
func (s *Server) handleCreateGame(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	cfg := domain.Unrestricted()
	if len(strings.TrimSpace(string(raw))) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid game configuration"})
			return
		}
	}
	game, err := s.store.CreateGame(c.Request.Context(), cfg)
	if err != nil {
		respondError(c, err, "Failed to create game")
		return
	}
	log.Info().
		Str("game_id", game.ID).
		Bool("unrestricted", cfg.IsUnrestricted()).
		Strs("allowed_sets", cfg.AllowedSets()).
		Bool("include_no_set", cfg.IncludeNoSet()).
		Msg("game created")
	c.JSON(http.StatusCreated, game)
}

func (s *Server) handleCandidates(c *gin.Context) {
	id, ok := bindURI(c)
	if !ok {
		return
	}
	pool, err := store.CandidatePool(c.Request.Context(), s.store, id)
	if err != nil {
		respondError(c, err, "Failed to fetch candidates")
		return
	}
	c.JSON(http.StatusOK, pool)
}

func (s *Server) handleRecordPlayed(c *gin.Context) {
	id, ok := bindURI(c)
	if !ok {
		return
	}
	var req playedRequest
	if !bindJSON(c, &req, bindMessages{"CharacterID": {"required": "characterId is required"}}, "") {
		return
	}
	if err := s.store.RecordPlayed(c.Request.Context(), id, req.CharacterID); err != nil {
		respondError(c, err, "Failed to mark character as played")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleImageSearch(c *gin.Context) {
	var query imageSearchQuery
	if !bindQuery(c, &query, bindMessages{"Q": {"required": "Query parameter 'q' is required"}}, "") {
		return
	}
	results, err := s.search.Search(c.Request.Context(), query.Q)
	if err != nil {
		respondError(c, err, "Failed to fetch images")
		return
	}
	c.JSON(http.StatusOK, gin.H{"images": results})
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// characterFromForm reads a multipart character form. The image comes from
// the "image" file field, falling back to an "imageUrl" value.
func (s *Server) characterFromForm(c *gin.Context, wordsField string) (store.CharacterInput, error) {
	image, err := s.formImage(c)
	if err != nil {
		return store.CharacterInput{}, err
	}
	if image == "" {
		return store.CharacterInput{}, fmt.Errorf("%w: Name and image are required", domain.ErrValidation)
	}
	return store.CharacterInput{
		Name:           c.PostForm("name"),
		ImageURL:       image,
		ForbiddenWords: parseWords(c.PostForm(wordsField)),
		SetIDs:         formList(c, "sets"),
	}, nil
}

func (s *Server) patchFromForm(c *gin.Context) (store.CharacterPatch, error) {
	var patch store.CharacterPatch
	if name, ok := c.GetPostForm("name"); ok {
		patch.Name = &name
	}
	if raw, ok := c.GetPostForm("forbiddenWords"); ok {
		words := parseWords(raw)
		patch.ForbiddenWords = &words
	}
	image, err := s.formImage(c)
	if err != nil {
		return patch, err
	}
	if image != "" {
		patch.ImageURL = &image
	}
	return patch, nil
}

func (s *Server) formImage(c *gin.Context) (string, error) {
	header, err := c.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		if raw := strings.TrimSpace(c.PostForm("imageUrl")); raw != "" {
			return s.importer.ResolveImage(c.Request.Context(), raw)
		}
		return "", nil
	case err != nil:
		return "", fmt.Errorf("%w: image: %w", domain.ErrValidation, err)
	}
	if s.cfg.MaxUploadBytes > 0 && header.Size > s.cfg.MaxUploadBytes {
		return "", fmt.Errorf("%w: image must be at most %d bytes", domain.ErrValidation, s.cfg.MaxUploadBytes)
	}
	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return "", nil
	}
	url, err := s.images.Save(c.Request.Context(), data, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return url, nil
}

func (s *Server) discardImage(c *gin.Context, url string) {
	if url == "" {
		return
	}
	if err := s.images.Delete(c.Request.Context(), url); err != nil {
		log.Warn().Err(err).Str("image", url).Msg("failed to delete image")
	}
}

// parseWords accepts a JSON array or a comma separated list.
func parseWords(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var words []string
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &words); err == nil {
			return store.NormalizeWords(words)
		}
	}
	return store.NormalizeWords(strings.Split(raw, ","))
}

func formList(c *gin.Context, field string) []string {
	values := c.PostFormArray(field)
	if len(values) == 1 && strings.HasPrefix(strings.TrimSpace(values[0]), "[") {
		var parsed []string
		if err := json.Unmarshal([]byte(values[0]), &parsed); err == nil {
			return parsed
		}
	}
	return values
}
