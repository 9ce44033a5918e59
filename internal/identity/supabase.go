package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SupabaseVerifier asks the Supabase Auth server who a token belongs to.
type SupabaseVerifier struct {
	authURL string
	apiKey  string
	client  *http.Client
}

// NewSupabaseVerifier constructs a verifier for the project at projectURL.
func NewSupabaseVerifier(projectURL, anonKey string, client *http.Client) *SupabaseVerifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &SupabaseVerifier{
		authURL: strings.TrimRight(projectURL, "/") + "/auth/v1",
		apiKey:  anonKey,
		client:  client,
	}
}

type supabaseUser struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
}

// ProviderError is a non-auth failure reported by the identity provider.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("identity provider error (%d): %s", e.StatusCode, e.Message)
}

// Verify resolves the token through GET /auth/v1/user.
func (v *SupabaseVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.authURL+"/user", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", v.apiKey)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request user: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrInvalidToken
	case resp.StatusCode >= 400:
		return nil, parseError(body, resp.StatusCode)
	}

	var user supabaseUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	id, err := parseSubject(user.ID)
	if err != nil {
		return nil, err
	}

	return fromMetadata(id, user.Email, user.UserMetadata), nil
}

func parseError(body []byte, statusCode int) error {
	var payload struct {
		Message          string `json:"msg"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	_ = json.Unmarshal(body, &payload)

	msg := payload.Message
	if msg == "" {
		msg = payload.ErrorDescription
	}
	if msg == "" {
		msg = payload.Error
	}
	if msg == "" {
		msg = http.StatusText(statusCode)
	}
	return &ProviderError{StatusCode: statusCode, Message: msg}
}
