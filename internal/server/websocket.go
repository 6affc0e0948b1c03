package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"guess-character/internal/domain"
	"guess-character/internal/session"
	"guess-character/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type clientMessage struct {
	Type string `json:"type"`
}

// playConn is one device playing a game. Writes come from the read loop
// and from countdown timers, so they are serialized.
type playConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	machine *session.Machine
}

func (p *playConn) send(payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_ = p.conn.WriteMessage(websocket.TextMessage, data)
}

type sessionHub struct {
	mu    sync.Mutex
	conns map[*playConn]struct{}
}

func newSessionHub() *sessionHub {
	return &sessionHub{conns: make(map[*playConn]struct{})}
}

func (h *sessionHub) Add(p *playConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[p] = struct{}{}
}

func (h *sessionHub) Remove(p *playConn) {
	h.mu.Lock()
	_, ok := h.conns[p]
	delete(h.conns, p)
	h.mu.Unlock()
	if ok {
		p.machine.Close()
		_ = p.conn.Close()
	}
}

func (h *sessionHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *sessionHub) CloseAll() {
	h.mu.Lock()
	conns := make([]*playConn, 0, len(h.conns))
	for p := range h.conns {
		conns = append(conns, p)
	}
	h.mu.Unlock()
	for _, p := range conns {
		h.Remove(p)
	}
}

// handleWebsocket runs one play session per connection. The candidate pool
// is fetched once when the socket opens.
func (s *Server) handleWebsocket(c *gin.Context) {
	id, ok := bindURI(c)
	if !ok {
		return
	}
	source := session.SourceFunc(func(ctx context.Context, gameID string) ([]domain.Character, error) {
		return store.CandidatePool(ctx, s.store, gameID)
	})
	p := &playConn{}
	machine, err := session.Start(c.Request.Context(), id, source, session.Options{
		Clock:    s.clock,
		Recorder: s.played,
		Observer: func(state session.State) { p.send(state) },
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
			return
		}
		respondError(c, err, "Failed to start session")
		return
	}
	p.machine = machine

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		machine.Close()
		return
	}
	p.conn = conn
	log.Info().Str("game_id", id).Str("remote", c.Request.RemoteAddr).Msg("ws connected")
	s.sessions.Add(p)
	p.send(machine.State())
	go s.readWS(p)
}

func (s *Server) readWS(p *playConn) {
	defer s.sessions.Remove(p)
	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Str("game_id", p.machine.GameID()).Msg("ws closed")
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			p.send(gin.H{"error": "invalid message"})
			continue
		}
		if err := dispatch(p.machine, msg.Type); err != nil {
			p.send(gin.H{"error": err.Error()})
		}
	}
}

func dispatch(machine *session.Machine, kind string) error {
	switch kind {
	case "start":
		return machine.Begin()
	case "ready":
		return machine.Ready()
	case "next":
		return machine.Advance()
	case "pause":
		return machine.Pause()
	case "state":
		return nil
	default:
		return errors.New("unknown message type")
	}
}
