// Package places wraps the external place-search provider used to attach
// locations to tasks. It speaks the Google Places nearby-search wire format
// against a configurable base URL.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/place"

// defaultRadius matches the provider search radius the mobile client expects.
const defaultRadius = 1000

// Place is one search result in the shape returned to clients.
type Place struct {
	Name     string  `json:"name"`
	Vicinity string  `json:"vicinity"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

// Client queries the place-search provider.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	radius     int
}

// NewClient creates a Client. baseURL and radius fall back to provider
// defaults when zero-valued; apiKey is required by the upstream but not
// validated here so tests can run against a fake.
func NewClient(baseURL, apiKey string, radius int) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if radius <= 0 {
		radius = defaultRadius
	}
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		radius:     radius,
	}
}

// nearbyResponse mirrors the subset of the provider payload we consume.
type nearbyResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Name     string `json:"name"`
		Vicinity string `json:"vicinity"`
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Search looks up places near the given coordinates matching the keyword.
func (c *Client) Search(ctx context.Context, query string, lat, lng float64) ([]Place, error) {
	q := url.Values{}
	q.Set("keyword", query)
	q.Set("location", fmt.Sprintf("%f,%f", lat, lng))
	q.Set("radius", fmt.Sprintf("%d", c.radius))
	q.Set("key", c.apiKey)

	reqURL := c.baseURL + "/nearbysearch/json?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling place search: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("place search returned status %d", resp.StatusCode)
	}

	var body nearbyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if body.Status != "OK" && body.Status != "ZERO_RESULTS" {
		return nil, fmt.Errorf("place search status %q", body.Status)
	}

	results := make([]Place, 0, len(body.Results))
	for _, r := range body.Results {
		results = append(results, Place{
			Name:     r.Name,
			Vicinity: r.Vicinity,
			Lat:      r.Geometry.Location.Lat,
			Lng:      r.Geometry.Location.Lng,
		})
	}
	return results, nil
}
