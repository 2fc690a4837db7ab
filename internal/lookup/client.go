package lookup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
)

var (
	ErrRequestFailed     = errors.New("recommendation request failed")
	ErrMalformedResponse = errors.New("malformed recommendation response")
)

type recommendRequest struct {
	ReviewerID string `json:"reviewerId"`
	NumItems   string `json:"numItems"`
}

type recommendResponse struct {
	Recommendations *[]Recommendation `json:"recommendations"`
}

// HTTPClient posts queries to the recommend endpoint. It never retries and
// applies no deadline of its own; cancel ctx to abandon a request.
type HTTPClient struct {
	url    string
	client *http.Client
}

func NewHTTPClient(url string, client *http.Client) *HTTPClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPClient{url: url, client: client}
}

func (c *HTTPClient) Recommend(ctx context.Context, q Query) ([]Recommendation, error) {
	body, err := json.Marshal(recommendRequest{ReviewerID: q.Identifier, NumItems: q.ItemCount})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %d", ErrRequestFailed, resp.StatusCode)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	var decoded recommendResponse
	if err := json.Unmarshal(content, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if decoded.Recommendations == nil {
		return nil, fmt.Errorf("%w: missing recommendations", ErrMalformedResponse)
	}
	return *decoded.Recommendations, nil
}
