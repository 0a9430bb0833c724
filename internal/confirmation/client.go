package confirmation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/metadata"
)

type ClientConfig struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	Timeout      time.Duration
}

// Client posts confirmation payloads to the OEM API. Requests are
// authenticated with an OAuth2 client-credentials token when TokenURL is set.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(ctx context.Context, cfg ClientConfig) *Client {
	httpClient := &http.Client{}
	if cfg.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		httpClient = cc.Client(ctx)
	}
	httpClient.Timeout = cfg.Timeout

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
	}
}

type submitResponse struct {
	ConfirmationNumber string `json:"confirmationNumber"`
	ErrorCode          string `json:"errorCode"`
	Message            string `json:"message"`
}

func endpointFor(w metadata.Workflow) string {
	if w.Loads() {
		return "/shipment"
	}
	return "/skid-build"
}

func (c *Client) Submit(ctx context.Context, payload Payload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpointFor(payload.Workflow), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Idempotency-Key", payload.RequestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TransientError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &TransientError{Err: err}
	}

	var parsed submitResponse
	decodeErr := json.Unmarshal(raw, &parsed)

	switch {
	case resp.StatusCode >= 500, resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode == http.StatusRequestTimeout:
		return "", &TransientError{Err: fmt.Errorf("OEM returned %s", resp.Status)}
	case resp.StatusCode >= 400:
		message := parsed.Message
		if message == "" {
			message = strings.TrimSpace(string(raw))
		}
		if message == "" {
			message = resp.Status
		}
		return "", &RejectedError{Code: parsed.ErrorCode, Message: message}
	}

	if decodeErr != nil {
		return "", &TransientError{Err: fmt.Errorf("failed to decode OEM response (%s): %w", resp.Status, decodeErr)}
	}
	if parsed.ErrorCode != "" {
		return "", &RejectedError{Code: parsed.ErrorCode, Message: parsed.Message}
	}

	return parsed.ConfirmationNumber, nil
}
