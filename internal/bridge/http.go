package bridge

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
)

// envelope is the wire form of a call and its response.
type envelope struct {
	Args   map[string]any `json:"args,omitempty"`
	Result any            `json:"result,omitempty"`
	Error  *wireError     `json:"error,omitempty"`
}

type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HTTPClient reaches the keyboard process through its loopback HTTP endpoint:
// POST {base}/channels/{channel}/{method}.
type HTTPClient struct {
	base   string
	client *http.Client
}

// NewHTTPClient returns a client for the endpoint at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		base:   strings.TrimRight(baseURL, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Invoke(ctx context.Context, ch Channel, method string, args map[string]any) (any, error) {
	body, err := json.Marshal(envelope{Args: args})
	if err != nil {
		return nil, fmt.Errorf("bridge: encode %s/%s: %w", ch, method, err)
	}
	endpoint := fmt.Sprintf("%s/channels/%s/%s", c.base, url.PathEscape(string(ch)), url.PathEscape(method))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &CallError{Channel: ch, Method: method, Code: "UNAVAILABLE", Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &CallError{Channel: ch, Method: method, Code: "UNAVAILABLE", Message: err.Error()}
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &CallError{Channel: ch, Method: method, Code: "BAD_RESPONSE",
			Message: fmt.Sprintf("status %d: %v", resp.StatusCode, err)}
	}
	if env.Error != nil {
		return nil, &CallError{Channel: ch, Method: method, Code: env.Error.Code, Message: env.Error.Message}
	}
	if resp.StatusCode >= 300 {
		return nil, &CallError{Channel: ch, Method: method, Code: "BAD_STATUS", Message: resp.Status}
	}
	return env.Result, nil
}

var _ Bridge = (*HTTPClient)(nil)
