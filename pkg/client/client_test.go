package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"guess-character/internal/config"
	"guess-character/internal/domain"
	"guess-character/internal/server"
	"guess-character/internal/session"
	"guess-character/internal/store"
)

func TestCreateGameSendsConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/games" {
			http.NotFound(w, r)
			return
		}
		var cfg domain.GameConfig
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(domain.Game{ID: "g1", Config: cfg}) //nolint:errcheck
	}))
	defer srv.Close()

	c := New(srv.URL + "/")
	game, err := c.CreateGame(context.Background(), domain.RestrictedTo([]string{"s1"}, false))
	if err != nil {
		t.Fatalf("CreateGame() error: %v", err)
	}
	if game.ID != "g1" {
		t.Errorf("ID = %q, want %q", game.ID, "g1")
	}
	if got := game.Config.AllowedSets(); len(got) != 1 || got[0] != "s1" {
		t.Errorf("AllowedSets = %v, want [s1]", got)
	}
	if game.Config.IncludeNoSet() {
		t.Error("IncludeNoSet = true, want false")
	}
	if got, want := c.PlayURL("g1"), srv.URL+"/play/g1"; got != want {
		t.Errorf("PlayURL = %q, want %q", got, want)
	}
}

func TestErrorsMapToDomain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/candidates"):
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "game not found"}) //nolint:errcheck
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("boom\n"))
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Candidates(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Candidates() error = %v, want ErrNotFound", err)
	}
	if !IsStatus(err, http.StatusNotFound) {
		t.Errorf("IsStatus(404) = false for %v", err)
	}
	if !strings.Contains(err.Error(), "game not found") {
		t.Errorf("error = %q, want server message", err.Error())
	}

	err = c.RecordPlayed(context.Background(), "g", "c")
	if !errors.Is(err, domain.ErrTransient) {
		t.Fatalf("RecordPlayed() error = %v, want ErrTransient", err)
	}
	if !strings.Contains(err.Error(), "HTTP 500: boom") {
		t.Errorf("error = %q, want it to contain 'HTTP 500: boom'", err.Error())
	}
}

func TestUnreachableServerIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).ListSets(context.Background())
	if !errors.Is(err, domain.ErrTransient) {
		t.Fatalf("ListSets() error = %v, want ErrTransient", err)
	}
}

// The client serves as both the candidate source and the played writer of
// a terminal session.
func TestDrivesSessionAgainstServer(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	set, err := st.CreateSet(ctx, "Heroes")
	if err != nil {
		t.Fatalf("CreateSet() error: %v", err)
	}
	hero, err := st.CreateCharacter(ctx, store.CharacterInput{Name: "Batman", ImageURL: "/uploads/b.png", SetIDs: []string{set.ID}})
	if err != nil {
		t.Fatalf("CreateCharacter() error: %v", err)
	}
	if _, err := st.CreateCharacter(ctx, store.CharacterInput{Name: "Joker", ImageURL: "/uploads/j.png"}); err != nil {
		t.Fatalf("CreateCharacter() error: %v", err)
	}

	cfg := config.Default()
	cfg.UploadDir = t.TempDir()
	app := server.New(st, cfg)
	defer app.Close()
	srv := httptest.NewServer(app.Handler())
	defer srv.Close()

	c := New(srv.URL)
	sets, err := c.ListSets(ctx)
	if err != nil || len(sets) != 1 {
		t.Fatalf("ListSets() = %v, %v", sets, err)
	}
	game, err := c.CreateGame(ctx, domain.RestrictedTo([]string{set.ID}, false))
	if err != nil {
		t.Fatalf("CreateGame() error: %v", err)
	}

	queue := session.NewQueue(c, 4)
	machine, err := session.Start(ctx, game.ID, c, session.Options{Recorder: queue})
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := machine.Begin(); err != nil {
		t.Fatalf("Begin() error: %v", err)
	}
	state := machine.State()
	if state.Current == nil || state.Current.ID != hero.ID {
		t.Fatalf("Current = %+v, want %s", state.Current, hero.ID)
	}
	machine.Close()
	queue.Close()

	remaining, err := c.Candidates(ctx, game.ID)
	if err != nil {
		t.Fatalf("Candidates() error: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("Candidates() = %d characters, want 0 after playing the only hero", len(remaining))
	}
}
