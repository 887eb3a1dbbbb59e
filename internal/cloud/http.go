package cloud

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

	"golang.org/x/time/rate"
)

// HTTPMirror merge-writes documents through a REST document store:
// PATCH {base}/v1/documents/{collection}/{doc} with a JSON object of fields.
// Upserts are rate limited client side so a burst of flushes across screens
// cannot hammer the remote store.
type HTTPMirror struct {
	base       string
	collection string
	token      string
	client     *http.Client
	limiter    *rate.Limiter
}

// HTTPOptions configures an HTTPMirror.
type HTTPOptions struct {
	BaseURL    string
	Collection string
	Token      string
	Timeout    time.Duration
	// RatePerSec bounds upserts per second; zero means 2.
	RatePerSec float64
	Burst      int
}

// NewHTTPMirror returns a mirror for the given document store.
func NewHTTPMirror(opts HTTPOptions) *HTTPMirror {
	if opts.Collection == "" {
		opts.Collection = "keyboard_settings"
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 2
	}
	if opts.Burst <= 0 {
		opts.Burst = 4
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &HTTPMirror{
		base:       strings.TrimRight(opts.BaseURL, "/"),
		collection: opts.Collection,
		token:      opts.Token,
		client:     &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(opts.RatePerSec), opts.Burst),
	}
}

func (m *HTTPMirror) Upsert(ctx context.Context, docID string, fields map[string]any) error {
	if docID == "" {
		return fmt.Errorf("cloud: empty document id")
	}
	if err := m.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("cloud: rate limit: %w", err)
	}

	body, err := json.Marshal(map[string]any{"fields": fields, "merge": true})
	if err != nil {
		return fmt.Errorf("cloud: encode: %w", err)
	}
	endpoint := fmt.Sprintf("%s/v1/documents/%s/%s", m.base, url.PathEscape(m.collection), url.PathEscape(docID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if m.token != "" {
		req.Header.Set("Authorization", "Bearer "+m.token)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("cloud: upsert %s: %w", docID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("cloud: upsert %s: status %d: %s", docID, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

var _ Mirror = (*HTTPMirror)(nil)
