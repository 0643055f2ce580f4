// Package source provides a minimal client for the tagging-platform export
// API that supplies match event documents.
package source

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a minimal tagging-platform export API client.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient returns a client for the export API at baseURL, authenticated
// with the given API key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// MatchRef is one entry from the /matches listing.
type MatchRef struct {
	MatchID     string `json:"match_id"`
	Name        string `json:"name"`
	Competition string `json:"competition"`
	MatchDate   string `json:"match_date"`
	TaggedAt    int64  `json:"tagged_at"`
	Status      string `json:"status"`
}

// get performs an authenticated GET against the export API and JSON-decodes
// the response body into out.
func (c *Client) get(path string, out interface{}) error {
	req, err := http.NewRequest("GET", c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: HTTP %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ListMatches returns up to limit tagged matches, newest first.
func (c *Client) ListMatches(limit int) ([]MatchRef, error) {
	var resp struct {
		Items []MatchRef `json:"items"`
	}
	path := fmt.Sprintf("/matches?status=complete&offset=0&limit=%d", limit)
	if err := c.get(path, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// FetchEvents downloads the raw event document for a match. The body is
// returned verbatim so the ingest content hash matches what the platform
// served.
func (c *Client) FetchEvents(matchID string) ([]byte, error) {
	req, err := http.NewRequest("GET", c.baseURL+"/matches/"+matchID+"/events", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET events for %s: %w", matchID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET events for %s: HTTP %d", matchID, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
