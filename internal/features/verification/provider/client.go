package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gaming-rewards-backend/internal/common/cache"
)

// Achievement is one provider-reported achievement. Provider responses
// are untrusted input: shapes are validated before use.
type Achievement struct {
	ID         string    `json:"id"`
	Rarity     float64   `json:"rarity"`
	UnlockedAt time.Time `json:"unlocked_at"`
}

// Provider is the external achievement data source consumed by the
// multi-factor scorer.
type Provider interface {
	FetchAchievements(ctx context.Context, identity string) ([]Achievement, error)
	ReputationScore(ctx context.Context, identity string) (int64, error)
}

// Client implements Provider over HTTP with a short-TTL redis cache in
// front, so repeated scoring does not hammer the provider.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	cache      *cache.Service
	cacheTTL   time.Duration
}

func NewClient(baseURL, apiToken string, timeout time.Duration, c *cache.Service, cacheTTL time.Duration) *Client {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiToken:   apiToken,
		httpClient: &http.Client{Timeout: timeout},
		cache:      c,
		cacheTTL:   cacheTTL,
	}
}

func (c *Client) FetchAchievements(ctx context.Context, identity string) ([]Achievement, error) {
	var out []Achievement
	key := "provider:achievements:" + identity
	if c.cache != nil {
		if err := c.cache.Get(ctx, key, &out); err == nil {
			return out, nil
		}
	}

	if err := c.getJSON(ctx, "/v1/identities/"+url.PathEscape(identity)+"/achievements", &out); err != nil {
		return nil, err
	}

	// Untrusted input: drop malformed entries instead of failing the call.
	valid := out[:0]
	for _, a := range out {
		if a.ID == "" || a.UnlockedAt.IsZero() {
			continue
		}
		valid = append(valid, a)
	}
	out = valid

	if c.cache != nil {
		_ = c.cache.Set(ctx, key, out, c.cacheTTL)
	}
	return out, nil
}

func (c *Client) ReputationScore(ctx context.Context, identity string) (int64, error) {
	var out struct {
		Score int64 `json:"score"`
	}
	key := "provider:reputation:" + identity
	if c.cache != nil {
		if err := c.cache.Get(ctx, key, &out); err == nil {
			return out.Score, nil
		}
	}

	if err := c.getJSON(ctx, "/v1/identities/"+url.PathEscape(identity)+"/reputation", &out); err != nil {
		return 0, err
	}

	if c.cache != nil {
		_ = c.cache.Set(ctx, key, out, c.cacheTTL)
	}
	return out.Score, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider http %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// StaticProvider returns fixed data. Used in tests and local runs.
type StaticProvider struct {
	Achievements []Achievement
	Reputation   int64
	Err          error
}

func (s *StaticProvider) FetchAchievements(context.Context, string) ([]Achievement, error) {
	return s.Achievements, s.Err
}

func (s *StaticProvider) ReputationScore(context.Context, string) (int64, error) {
	return s.Reputation, s.Err
}
