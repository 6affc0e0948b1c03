package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"guess-character/internal/domain"
)

// Client talks to the guess-character server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client for the server at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// WithHTTPClient returns a copy of c using hc for requests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	clone := *c
	clone.httpClient = hc
	return &clone
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// PlayURL is the browser page for a game.
func (c *Client) PlayURL(gameID string) string {
	return c.baseURL + "/play/" + url.PathEscape(gameID)
}

// CreateGame starts a game with cfg.
func (c *Client) CreateGame(ctx context.Context, cfg domain.GameConfig) (domain.Game, error) {
	var game domain.Game
	if err := c.post(ctx, "/api/games", cfg, &game); err != nil {
		return domain.Game{}, fmt.Errorf("client.CreateGame: %w", err)
	}
	return game, nil
}

// Candidates returns the characters still playable in a game.
func (c *Client) Candidates(ctx context.Context, gameID string) ([]domain.Character, error) {
	var characters []domain.Character
	if err := c.get(ctx, "/api/games/"+url.PathEscape(gameID)+"/candidates", &characters); err != nil {
		return nil, fmt.Errorf("client.Candidates: %w", err)
	}
	return characters, nil
}

// CandidatePool lets the client act as a session source.
func (c *Client) CandidatePool(ctx context.Context, gameID string) ([]domain.Character, error) {
	return c.Candidates(ctx, gameID)
}

// RecordPlayed marks a character as shown in a game.
func (c *Client) RecordPlayed(ctx context.Context, gameID, characterID string) error {
	body := map[string]string{"characterId": characterID}
	if err := c.post(ctx, "/api/games/"+url.PathEscape(gameID)+"/played", body, nil); err != nil {
		return fmt.Errorf("client.RecordPlayed: %w", err)
	}
	return nil
}

// ListSets returns every set, ordered by name.
func (c *Client) ListSets(ctx context.Context) ([]domain.Set, error) {
	var sets []domain.Set
	if err := c.get(ctx, "/api/sets", &sets); err != nil {
		return nil, fmt.Errorf("client.ListSets: %w", err)
	}
	return sets, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	return c.doRequest(ctx, http.MethodPost, path, body, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.doRequest(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: do request: %w", domain.ErrTransient, err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode >= 400 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if readErr != nil {
			return &HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
		}
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return &HTTPError{StatusCode: resp.StatusCode, Message: apiErr.Error}
		}
		return &HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
