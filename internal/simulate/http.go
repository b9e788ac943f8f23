package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// HTTPClient wraps http.Client with a shared rate limiter.
type HTTPClient struct {
	client     *http.Client
	limiter    *rate.Limiter
	baseURL    string
	adminToken string
}

// newHTTPClient creates a client limited to rps requests per second.
func newHTTPClient(cfg *Config) *HTTPClient {
	limit := rate.Inf
	burst := 1
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
		burst = max(1, int(cfg.RPS))
	}
	return &HTTPClient{
		client:     &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, burst),
		baseURL:    cfg.BaseURL,
		adminToken: cfg.AdminToken,
	}
}

// credential selects how a request authenticates.
type credential struct {
	admin bool
	code  string
}

func asAdmin() credential { return credential{admin: true} }
func asEvaluator(code string) credential { return credential{code: code} }

// call sends body as JSON and decodes a 2xx response into out. headers
// alternate name, value.
func (c *HTTPClient) call(ctx context.Context, cred credential, method, path string, body, out any, headers ...string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch {
	case cred.code != "":
		req.Header.Set("X-Evaluator-Code", cred.code)
	case cred.admin && c.adminToken != "":
		req.Header.Set("Authorization", "Bearer "+c.adminToken)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: %s %s: %d %s: %s", ErrStatus, method, path,
			resp.StatusCode, gjson.GetBytes(data, "code").String(), gjson.GetBytes(data, "message").String())
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// healthy waits for GET /healthz to answer 200, retrying until ctx ends.
func (c *HTTPClient) healthy(ctx context.Context) error {
	const retry = 500 * time.Millisecond
	for {
		err := c.call(ctx, credential{}, http.MethodGet, "/healthz", nil, nil)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("service not healthy: %w", err)
		case <-time.After(retry):
		}
	}
}
