package sync

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// metricTypeInfo mirrors the server's metric-types response without importing
// the server package (which would pull in pgx and other server-side
// dependencies).
type metricTypeInfo struct {
	MetricType string `json:"metric_type"`
	Enabled    bool   `json:"enabled"`
}

// Client sends data to the CareTrack server over HTTP.
type Client struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new HTTP client for the CareTrack server.
func NewClient(serverURL, apiKey string) *Client {
	return &Client{
		serverURL: serverURL,
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// FetchMetricTypes retrieves the enabled metric types from the server.
func (c *Client) FetchMetricTypes() (map[string]bool, error) {
	resp, err := c.httpClient.Get(c.serverURL + "/api/v1/metrics/types")
	if err != nil {
		return nil, fmt.Errorf("fetching metric types: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("metric types request failed (status %d): %s", resp.StatusCode, body)
	}

	var types []metricTypeInfo
	if err := json.NewDecoder(resp.Body).Decode(&types); err != nil {
		return nil, fmt.Errorf("decoding metric types: %w", err)
	}

	enabled := make(map[string]bool, len(types))
	for _, t := range types {
		if t.Enabled {
			enabled[t.MetricType] = true
		}
	}
	return enabled, nil
}

// SendPayload POSTs an ingest payload to the server.
// Retries up to 3 times with exponential backoff on failure.
func (c *Client) SendPayload(payload payloadFile) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	var lastErr error
	for attempt := range 3 {
		if attempt > 0 {
			time.Sleep(time.Duration(1<<uint(attempt-1)) * time.Second)
		}

		req, err := http.NewRequest(http.MethodPost, c.serverURL+"/api/v1/ingest", bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("building ingest request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			return nil
		}
		lastErr = fmt.Errorf("ingest failed (status %d): %s", resp.StatusCode, body)
	}

	return fmt.Errorf("after 3 attempts: %w", lastErr)
}
