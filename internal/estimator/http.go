package estimator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/MikeSquared-Agency/Frontier/internal/frontier"
)

type comparePlan struct {
	ID         frontier.PlanID `json:"id"`
	Cost       float64         `json:"cost"`
	ConfigPath string          `json:"config_path,omitempty"`
	Action     string          `json:"action,omitempty"`
}

type compareRequest struct {
	Candidate comparePlan `json:"candidate"`
	Reference comparePlan `json:"reference"`
}

type compareResponse struct {
	Score int `json:"score"`
}

// HTTPComparator asks a remote judge service to compare two plans' outputs.
// POST {baseURL}/compare with {"candidate": ..., "reference": ...} -> {"score": n}.
type HTTPComparator struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewHTTPClient creates a comparator client. ratePerSecond <= 0 disables rate limiting.
func NewHTTPClient(baseURL, token string, timeout time.Duration, ratePerSecond float64) *HTTPComparator {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if ratePerSecond > 0 {
		burst := int(ratePerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), burst)
	}
	return &HTTPComparator{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}
}

func (c *HTTPComparator) Compare(ctx context.Context, candidate, reference *frontier.Plan) (Score, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("comparator rate limit: %w", err)
	}

	body, err := json.Marshal(compareRequest{
		Candidate: toComparePlan(candidate),
		Reference: toComparePlan(reference),
	})
	if err != nil {
		return 0, err
	}

	data, err := c.doReq(ctx, http.MethodPost, "/compare", body)
	if err != nil {
		return 0, err
	}
	var resp compareResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return 0, fmt.Errorf("decode compare response: %w", err)
	}
	return Score(resp.Score), nil
}

func (c *HTTPComparator) doReq(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("comparator %s %s: %d %s", method, path, resp.StatusCode, string(body))
	}
	return body, nil
}

func toComparePlan(p *frontier.Plan) comparePlan {
	return comparePlan{ID: p.ID, Cost: p.Cost, ConfigPath: p.ConfigPath, Action: p.Action}
}
