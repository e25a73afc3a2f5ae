// Package recognizer is the adapter to the external license-plate
// recognition API. One attempt per invocation, no retries.
package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// PlateResult is one ranked candidate returned by the upstream service.
// The upstream reports confidence as "score" in [0,1].
type PlateResult struct {
	Plate string  `json:"plate"`
	Score float64 `json:"score"`
}

// Recognition is the decoded upstream response. An empty Results slice is
// a valid outcome meaning no plate was found in the image.
type Recognition struct {
	ProcessingTime float64       `json:"processing_time"`
	Results        []PlateResult `json:"results"`

	// Raw holds the undecoded body for diagnostic persistence.
	Raw json.RawMessage `json:"-"`
}

// UpstreamError is a non-success response from the recognition service,
// carrying the upstream status and body for diagnostics and status mapping.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("recognition service returned %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	url        string
	token      string
	httpClient *http.Client
	log        zerolog.Logger
}

func NewClient(url, token string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		url:        url,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// Recognize uploads the image to the plate-reader endpoint and returns the
// ranked candidates. Transport failures come back as plain errors; HTTP-level
// failures as *UpstreamError.
func (c *Client) Recognize(ctx context.Context, image io.Reader, filename string) (*Recognition, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("upload", filename)
	if err != nil {
		return nil, fmt.Errorf("build multipart form: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, fmt.Errorf("copy image into form: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Content-Type", w.FormDataContentType())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call recognition service: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read recognition response: %w", err)
	}

	c.log.Debug().
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Str("filename", filename).
		Msg("recognition service responded")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var rec Recognition
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode recognition response: %w", err)
	}
	rec.Raw = raw

	return &rec, nil
}
