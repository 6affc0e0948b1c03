package server

import (
	"errors"
	"net/http"

	"guess-character/internal/domain"
	"guess-character/internal/web"

	"github.com/a-h/templ"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func (s *Server) handleHome(c *gin.Context) {
	ctx := c.Request.Context()
	sets, err := s.store.ListSets(ctx)
	if err != nil {
		respondError(c, err, "Failed to load sets")
		return
	}
	characters, err := s.store.ListCharacters(ctx, false)
	if err != nil {
		respondError(c, err, "Failed to load characters")
		return
	}
	data := web.HomeData{Characters: len(characters)}
	for _, set := range sets {
		data.Sets = append(data.Sets, web.SetOption{ID: set.ID, Name: set.Name})
	}
	templ.Handler(web.Home(data)).ServeHTTP(c.Writer, c.Request)
}

func (s *Server) handlePlayView(c *gin.Context) {
	id, ok := bindURI(c)
	if !ok {
		return
	}
	if _, err := s.store.GameConfig(c.Request.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Info().Str("game_id", id).Msg("play view missing game")
			c.Redirect(http.StatusFound, "/")
			return
		}
		respondError(c, err, "Failed to load game")
		return
	}
	templ.Handler(web.Play(web.PlayData{GameID: id, PlayURL: playURL(c.Request, id)})).ServeHTTP(c.Writer, c.Request)
}

// playURL is the absolute address of a game, honoring a reverse proxy's
// forwarded scheme.
func playURL(r *http.Request, gameID string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		scheme = forwarded
	}
	host := r.Host
	if forwarded := r.Header.Get("X-Forwarded-Host"); forwarded != "" {
		host = forwarded
	}
	return scheme + "://" + host + "/play/" + gameID
}
