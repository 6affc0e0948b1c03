package server

import (
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"guess-character/internal/config"
	"guess-character/internal/images"
	"guess-character/internal/imagesearch"
	"guess-character/internal/roster"
	"guess-character/internal/session"
	"guess-character/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type Server struct {
	store    store.Store
	images   images.Storage
	search   *imagesearch.Client
	importer *roster.Importer
	played   *session.Queue
	sessions *sessionHub
	flash    *flashStore
	limiter  *rate.Limiter
	clock    session.Clock
	upgrader websocket.Upgrader
	cfg      config.Config
}

type Option func(*Server)

func WithImages(storage images.Storage) Option {
	return func(s *Server) { s.images = storage }
}

func WithImageSearch(client *imagesearch.Client) Option {
	return func(s *Server) { s.search = client }
}

// WithClock replaces the clock driving websocket session countdowns.
func WithClock(clock session.Clock) Option {
	return func(s *Server) { s.clock = clock }
}

func New(st store.Store, cfg config.Config, opts ...Option) *Server {
	s := &Server{
		store:    st,
		cfg:      cfg,
		upgrader: websocket.Upgrader{CheckOrigin: originChecker(cfg.AllowedOrigins)},
		sessions: newSessionHub(),
		flash:    newFlashStore(),
		clock:    session.RealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.images == nil {
		s.images = images.New(cfg)
	}
	if s.search == nil {
		s.search = imagesearch.New(cfg.GoogleAPIKey, cfg.GoogleSearchEngineID)
	}
	perMinute := cfg.ImageSearchPerMinute
	if perMinute <= 0 {
		perMinute = 30
	}
	s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	s.importer = &roster.Importer{Store: st, Images: s.images}
	s.played = session.NewQueue(st, cfg.PlayedQueueSize)
	return s
}

// Close ends open play sessions and flushes pending played reports.
func (s *Server) Close() {
	s.sessions.CloseAll()
	s.played.Close()
}

func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.Use(cors.New(corsConfig(s.cfg.AllowedOrigins)))
	r.MaxMultipartMemory = s.cfg.MaxUploadBytes

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/", s.handleHome)
	r.GET("/play/:id", s.handlePlayView)
	r.GET("/games/:id/qr", s.handleGameQR)
	r.GET("/uploads/*path", s.handleUpload)
	r.GET("/ws/games/:id", s.handleWebsocket)

	admin := r.Group("/admin")
	admin.GET("", s.handleAdminCharacters)
	admin.POST("/characters", s.handleAdminCreateCharacter)
	admin.POST("/characters/:id/delete", s.handleAdminDeleteCharacter)
	admin.POST("/characters/:id/sets", s.handleAdminCharacterSets)
	admin.GET("/sets", s.handleAdminSets)
	admin.POST("/sets", s.handleAdminCreateSet)
	admin.POST("/sets/:id", s.handleAdminRenameSet)
	admin.POST("/sets/:id/delete", s.handleAdminDeleteSet)

	api := r.Group("/api")
	api.GET("/characters", s.handleListCharacters)
	api.POST("/characters", s.handleCreateCharacter)
	api.POST("/characters/bulk", s.handleBulkCharacters)
	api.GET("/characters/:id", s.handleGetCharacter)
	api.PUT("/characters/:id", s.handleUpdateCharacter)
	api.DELETE("/characters/:id", s.handleDeleteCharacter)
	api.PUT("/characters/:id/sets", s.handleCharacterSets)
	api.GET("/android/random", s.handleRandomCharacter)
	api.GET("/sets", s.handleListSets)
	api.POST("/sets", s.handleCreateSet)
	api.PUT("/sets/:id", s.handleRenameSet)
	api.DELETE("/sets/:id", s.handleDeleteSet)
	api.POST("/games", s.handleCreateGame)
	api.GET("/games/:id/candidates", s.handleCandidates)
	api.POST("/games/:id/played", s.handleRecordPlayed)
	api.GET("/google-images", s.rateLimited(s.limiter), s.handleImageSearch)
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	cfg.MaxAge = 12 * time.Hour
	if allowsAnyOrigin(origins) {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) rateLimited(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, try again shortly"})
			return
		}
		c.Next()
	}
}

func allowsAnyOrigin(origins []string) bool {
	return len(origins) == 0 || slices.Contains(origins, "*")
}

// originChecker admits websocket upgrades from the same host, from clients
// that send no Origin header, and from the configured origins.
func originChecker(origins []string) func(*http.Request) bool {
	if allowsAnyOrigin(origins) {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
			return true
		}
		for _, allowed := range origins {
			if strings.EqualFold(strings.TrimSuffix(allowed, "/"), origin) {
				return true
			}
		}
		return false
	}
}
