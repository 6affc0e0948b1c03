package imagesearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultEndpoint = "https://www.googleapis.com/customsearch/v1"

var ErrNotConfigured = errors.New("image search is not configured: set GOOGLE_API_KEY and GOOGLE_SEARCH_ENGINE_ID")

// UpstreamError carries the status returned by the search API.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("image search failed (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("image search failed (%d)", e.StatusCode)
}

type Image struct {
	Link          string `json:"link"`
	ThumbnailLink string `json:"thumbnailLink"`
	Title         string `json:"title"`
	ContextLink   string `json:"contextLink,omitempty"`
}

type Client struct {
	APIKey   string
	EngineID string
	Endpoint string
	HTTP     *http.Client
}

func New(apiKey, engineID string) *Client {
	return &Client{
		APIKey:   strings.TrimSpace(apiKey),
		EngineID: strings.TrimSpace(engineID),
		Endpoint: defaultEndpoint,
		HTTP:     &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Configured() bool {
	return c != nil && c.APIKey != "" && c.EngineID != ""
}

type searchResponse struct {
	Items []struct {
		Link  string `json:"link"`
		Title string `json:"title"`
		Image struct {
			ThumbnailLink string `json:"thumbnailLink"`
			ContextLink   string `json:"contextLink"`
		} `json:"image"`
	} `json:"items"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Search returns up to eight image results for query.
func (c *Client) Search(ctx context.Context, query string) ([]Image, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query is required")
	}

	params := url.Values{}
	params.Set("key", c.APIKey)
	params.Set("cx", c.EngineID)
	params.Set("q", query)
	params.Set("searchType", "image")
	params.Set("num", "8")

	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image search request: %w", err)
	}
	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach image search: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image search response: %w", err)
	}
	var parsed searchResponse
	decodeErr := json.Unmarshal(body, &parsed)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		upstream := &UpstreamError{StatusCode: resp.StatusCode}
		if decodeErr == nil && parsed.Error != nil {
			upstream.Message = parsed.Error.Message
		}
		return nil, upstream
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to parse image search response: %w", decodeErr)
	}

	images := make([]Image, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		thumb := item.Image.ThumbnailLink
		if thumb == "" {
			thumb = item.Link
		}
		images = append(images, Image{
			Link:          item.Link,
			ThumbnailLink: thumb,
			Title:         item.Title,
			ContextLink:   item.Image.ContextLink,
		})
	}
	return images, nil
}
