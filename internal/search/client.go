// Package search is a minimal client for the Tavily search API. It issues one
// POST per query and returns the ranked results as-is; relevance filtering and
// persistence belong to the research orchestrator.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"github.com/mkarhu/inquest/internal/errors"
	"github.com/mkarhu/inquest/internal/models"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.tavily.com"

// Result is one ranked search hit.
type Result struct {
	URL     string  `json:"url"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewClient(apiKey string) *Client {
	timeout := 30 * time.Second
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: timeout}, //nolint:exhaustruct // defaults suffice
	}
}

// NewClientWithBaseURL supports pointing the client at a test server.
func NewClientWithBaseURL(apiKey string, baseURL string) *Client {
	c := NewClient(apiKey)
	c.baseURL = baseURL
	return c
}

type searchRequest struct {
	APIKey         string `json:"api_key"`
	Query          string `json:"query"`
	SearchDepth    string `json:"search_depth"`
	MaxResults     int    `json:"max_results"`
	IncludeRawHTML bool   `json:"include_raw_content"`
}

type searchResponse struct {
	Results []Result `json:"results"`
}

// maxResultsFor returns the result budget per search type: depth searches
// fetch fewer, higher-precision hits than breadth searches.
func maxResultsFor(searchType string) int {
	if searchType == models.SearchTypeBreadth {
		return 10
	}
	return 5
}

// Search runs one query and returns its ranked results.
func (c *Client) Search(ctx context.Context, query string, searchType string) ([]Result, error) {
	payload := searchRequest{
		APIKey:         c.apiKey,
		Query:          query,
		SearchDepth:    "basic",
		MaxResults:     maxResultsFor(searchType),
		IncludeRawHTML: false,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "encode search request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "create search request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "execute search request", slog.String("query", query))
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(fmt.Sprintf("search returned status %d", resp.StatusCode),
			slog.String("query", query))
	}

	var parsed searchResponse
	if err = json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errors.Wrap(err, "decode search response", slog.String("query", query))
	}

	return parsed.Results, nil
}
