// internal/infra/email/http_client.go
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"grant_portal/internal/domain/email"
)

const defaultSendTimeout = 10 * time.Second

// HTTPClient implements the email.Client interface against the hosted
// delivery provider's JSON API.
type HTTPClient struct {
	apiURL string
	apiKey string
	client *http.Client
}

type sendRequest struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	BodyHTML string `json:"body_html"`
	FromName string `json:"from_name"`
}

type sendError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func NewHTTPClient(apiURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		apiURL: apiURL,
		apiKey: apiKey,
		client: &http.Client{Timeout: defaultSendTimeout},
	}
}

// Send posts one message to the delivery provider. No retries here; callers
// treat delivery as fire-and-forget.
func (c *HTTPClient) Send(ctx context.Context, msg email.Message) error {
	payload, err := json.Marshal(sendRequest{
		To:       msg.To,
		Subject:  msg.Subject,
		BodyHTML: msg.BodyHTML,
		FromName: msg.FromName,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("email provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr sendError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		return fmt.Errorf("email provider returned %d: %s", resp.StatusCode, apiErr.Error.Message)
	}
	return fmt.Errorf("email provider returned %d", resp.StatusCode)
}
