package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"guess-character/internal/domain"
	"guess-character/internal/web"

	"github.com/a-h/templ"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

func (s *Server) handleAdminCharacters(c *gin.Context) {
	ctx := c.Request.Context()
	characters, err := s.store.ListCharacters(ctx, true)
	if err != nil {
		respondError(c, err, "Failed to load characters")
		return
	}
	sets, err := s.store.ListSets(ctx)
	if err != nil {
		respondError(c, err, "Failed to load sets")
		return
	}

	query := strings.TrimSpace(c.Query("q"))
	if query != "" {
		needle := strings.ToLower(query)
		filtered := characters[:0]
		for _, character := range characters {
			if strings.Contains(strings.ToLower(character.Name), needle) {
				filtered = append(filtered, character)
			}
		}
		characters = filtered
	}

	page, perPage := parsePagination(c)
	base := "/admin"
	if query != "" {
		base += "?q=" + url.QueryEscape(query)
	}
	pagination := buildPagination(base, page, perPage, len(characters))
	start := (pagination.Page - 1) * perPage
	end := min(start+perPage, len(characters))

	data := web.AdminCharactersData{
		Sets:        setOptions(sets, nil),
		SearchQuery: query,
		Flash:       s.flash.Pop(c.Writer, c.Request),
		Pagination:  pagination,
	}
	for _, character := range characters[start:end] {
		data.Characters = append(data.Characters, web.CharacterRow{
			ID:        character.ID,
			Name:      character.Name,
			ImageURL:  character.ImageURL,
			Words:     character.ForbiddenWords,
			Sets:      setOptions(sets, character.SetIDs),
			CreatedAt: character.CreatedAt,
		})
	}
	templ.Handler(web.AdminCharacters(data)).ServeHTTP(c.Writer, c.Request)
}

func (s *Server) handleAdminCreateCharacter(c *gin.Context) {
	in, err := s.characterFromForm(c, "words")
	if err == nil {
		var character domain.Character
		character, err = s.store.CreateCharacter(c.Request.Context(), in)
		if err == nil {
			log.Info().Str("character_id", character.ID).Str("name", character.Name).Msg("character created")
			s.redirectWithFlash(c, "/admin", fmt.Sprintf("Added %s.", character.Name))
			return
		}
		s.discardImage(c, in.ImageURL)
	}
	s.redirectWithFlash(c, "/admin", adminError("Could not add character", err))
}

func (s *Server) handleAdminDeleteCharacter(c *gin.Context) {
	character, err := s.store.DeleteCharacter(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.redirectWithFlash(c, "/admin", adminError("Could not delete character", err))
		return
	}
	s.discardImage(c, character.ImageURL)
	s.redirectWithFlash(c, "/admin", fmt.Sprintf("Deleted %s.", character.Name))
}

func (s *Server) handleAdminCharacterSets(c *gin.Context) {
	character, err := s.store.SetMemberships(c.Request.Context(), c.Param("id"), c.PostFormArray("sets"))
	if err != nil {
		s.redirectWithFlash(c, "/admin", adminError("Could not update sets", err))
		return
	}
	s.redirectWithFlash(c, "/admin", fmt.Sprintf("Updated sets for %s.", character.Name))
}

func (s *Server) handleAdminSets(c *gin.Context) {
	ctx := c.Request.Context()
	sets, err := s.store.ListSets(ctx)
	if err != nil {
		respondError(c, err, "Failed to load sets")
		return
	}
	characters, err := s.store.ListCharacters(ctx, true)
	if err != nil {
		respondError(c, err, "Failed to load characters")
		return
	}
	counts := make(map[string]int, len(sets))
	for _, character := range characters {
		for _, id := range character.SetIDs {
			counts[id]++
		}
	}
	data := web.AdminSetsData{Flash: s.flash.Pop(c.Writer, c.Request)}
	for _, set := range sets {
		data.Sets = append(data.Sets, web.SetRow{
			ID:         set.ID,
			Name:       set.Name,
			Characters: counts[set.ID],
			CreatedAt:  set.CreatedAt,
		})
	}
	templ.Handler(web.AdminSets(data)).ServeHTTP(c.Writer, c.Request)
}

func (s *Server) handleAdminCreateSet(c *gin.Context) {
	set, err := s.store.CreateSet(c.Request.Context(), c.PostForm("name"))
	if err != nil {
		s.redirectWithFlash(c, "/admin/sets", adminError("Could not create set", err))
		return
	}
	s.redirectWithFlash(c, "/admin/sets", fmt.Sprintf("Created %s.", set.Name))
}

func (s *Server) handleAdminRenameSet(c *gin.Context) {
	set, err := s.store.RenameSet(c.Request.Context(), c.Param("id"), c.PostForm("name"))
	if err != nil {
		s.redirectWithFlash(c, "/admin/sets", adminError("Could not rename set", err))
		return
	}
	s.redirectWithFlash(c, "/admin/sets", fmt.Sprintf("Renamed to %s.", set.Name))
}

func (s *Server) handleAdminDeleteSet(c *gin.Context) {
	if err := s.store.DeleteSet(c.Request.Context(), c.Param("id")); err != nil {
		s.redirectWithFlash(c, "/admin/sets", adminError("Could not delete set", err))
		return
	}
	s.redirectWithFlash(c, "/admin/sets", "Set deleted.")
}

func (s *Server) redirectWithFlash(c *gin.Context, to, message string) {
	s.flash.Set(c.Writer, c.Request, message)
	c.Redirect(http.StatusSeeOther, to)
}

// adminError keeps client errors readable and hides storage failures.
func adminError(prefix string, err error) string {
	if statusFor(err) >= http.StatusInternalServerError {
		log.Error().Err(err).Msg(prefix)
		return prefix + "."
	}
	return prefix + ": " + err.Error()
}

func setOptions(sets []domain.Set, selected []string) []web.SetOption {
	chosen := make(map[string]bool, len(selected))
	for _, id := range selected {
		chosen[id] = true
	}
	options := make([]web.SetOption, 0, len(sets))
	for _, set := range sets {
		options = append(options, web.SetOption{ID: set.ID, Name: set.Name, Selected: chosen[set.ID]})
	}
	return options
}

func parsePagination(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(defaultPerPage)))
	if err != nil || perPage < 1 {
		perPage = defaultPerPage
	}
	return page, min(perPage, maxPerPage)
}

func buildPagination(base string, page, perPage, total int) web.PaginationData {
	totalPages := max(1, (total+perPage-1)/perPage)
	page = min(page, totalPages)
	return web.PaginationData{
		BasePath:   base,
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
		PrevPage:   page - 1,
		NextPage:   page + 1,
	}
}
