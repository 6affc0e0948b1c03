package server

import (
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"guess-character/internal/config"
	"guess-character/internal/images"
	"guess-character/internal/session"
	"guess-character/internal/store"
)

type testEnv struct {
	srv    *Server
	ts     *httptest.Server
	store  *store.Memory
	clock  *manualClock
	upload string
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	return newTestEnvWithConfig(t, nil, opts...)
}

// newTestEnvWithConfig lets a test adjust the configuration before the
// server is built.
func newTestEnvWithConfig(t *testing.T, configure func(*config.Config), opts ...Option) *testEnv {
	t.Helper()
	cfg := config.Default()
	cfg.UploadDir = t.TempDir()
	cfg.PlayedQueueSize = 16
	if configure != nil {
		configure(&cfg)
	}
	env := &testEnv{store: store.NewMemory(), clock: &manualClock{}, upload: cfg.UploadDir}
	opts = append([]Option{WithImages(images.NewLocal(cfg.UploadDir)), WithClock(env.clock)}, opts...)
	env.srv = New(env.store, cfg, opts...)
	env.ts = newTestServer(t, env.srv.Handler())
	t.Cleanup(func() {
		env.ts.Close()
		env.srv.Close()
	})
	return env
}

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	return ts
}

// manualClock holds countdown callbacks until the test fires them.
type manualClock struct {
	mu      sync.Mutex
	pending []*manualTimer
}

type manualTimer struct {
	clock *manualClock
	f     func()
}

func (c *manualClock) AfterFunc(_ time.Duration, f func()) session.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	timer := &manualTimer{clock: c, f: f}
	c.pending = append(c.pending, timer)
	return timer
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	for i, pending := range t.clock.pending {
		if pending == t {
			t.clock.pending = append(t.clock.pending[:i], t.clock.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Fire runs the oldest pending callback.
func (c *manualClock) Fire() bool {
	c.mu.Lock()
	if len(c.pending) == 0 {
		c.mu.Unlock()
		return false
	}
	next := c.pending[0]
	c.pending = c.pending[1:]
	c.mu.Unlock()
	next.f()
	return true
}
