package server

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const flashCookie = "gc_session"

// flashStore keeps one-shot admin notices keyed by a session cookie.
type flashStore struct {
	mu       sync.Mutex
	messages map[string]string
}

func newFlashStore() *flashStore {
	return &flashStore{messages: make(map[string]string)}
}

func (s *flashStore) Set(w http.ResponseWriter, r *http.Request, message string) {
	if message == "" {
		return
	}
	id := ensureSessionID(w, r)
	s.mu.Lock()
	s.messages[id] = message
	s.mu.Unlock()
}

func (s *flashStore) Pop(w http.ResponseWriter, r *http.Request) string {
	id := ensureSessionID(w, r)
	s.mu.Lock()
	defer s.mu.Unlock()
	message := s.messages[id]
	delete(s.messages, id)
	return message
}

func ensureSessionID(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(flashCookie)
	if err == nil && cookie.Value != "" {
		return cookie.Value
	}
	id := newSessionID()
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func newSessionID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("sess-%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("%x", buf)
}
