package zkverifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Verifier re-executes the ZKP math for an attestation. The orchestrator
// only enforces freshness and issuer trust around this call.
type Verifier interface {
	VerifyProof(ctx context.Context, proof, publicInputs []byte) (bool, error)
}

// Client implements Verifier over the external proof-verifier HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) VerifyProof(ctx context.Context, proof, publicInputs []byte) (bool, error) {
	body, err := json.Marshal(map[string]string{
		"proof":         base64.StdEncoding.EncodeToString(proof),
		"public_inputs": base64.StdEncoding.EncodeToString(publicInputs),
	})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/verify", bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("verifier http %d", resp.StatusCode)
	}

	var out struct {
		Valid bool `json:"valid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, err
	}
	return out.Valid, nil
}

// Static always returns a fixed verdict. Used in tests and local runs.
type Static bool

func (s Static) VerifyProof(context.Context, []byte, []byte) (bool, error) {
	return bool(s), nil
}
