// internal/infra/identityprovider/http_directory.go
package identityprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"grant_portal/internal/domain/identity"
)

const defaultLookupTimeout = 10 * time.Second

// HTTPDirectory implements the identity.Directory interface against the
// identity provider's admin API.
type HTTPDirectory struct {
	apiURL string
	apiKey string
	client *http.Client
}

type userResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

func NewHTTPDirectory(apiURL, apiKey string) *HTTPDirectory {
	return &HTTPDirectory{
		apiURL: apiURL,
		apiKey: apiKey,
		client: &http.Client{Timeout: defaultLookupTimeout},
	}
}

// UserByID fetches one user record from the provider.
func (d *HTTPDirectory) UserByID(ctx context.Context, id string) (*identity.Principal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/users/%s", d.apiURL, id), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build user lookup request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.apiKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("user %s not found at identity provider", id)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity provider returned %d", resp.StatusCode)
	}

	var user userResponse
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user response: %w", err)
	}
	return &identity.Principal{ID: user.ID, Email: user.Email, DisplayName: user.DisplayName}, nil
}
