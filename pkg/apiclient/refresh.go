package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SupabaseRefresher refreshes sessions through the Supabase auth API.
type SupabaseRefresher struct {
	tokenURL string
	anonKey  string
	client   *http.Client
	now      func() time.Time
}

// NewSupabaseRefresher constructs a refresher for the project at projectURL.
func NewSupabaseRefresher(projectURL, anonKey string, client *http.Client) *SupabaseRefresher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &SupabaseRefresher{
		tokenURL: strings.TrimRight(projectURL, "/") + "/auth/v1/token?grant_type=refresh_token",
		anonKey:  anonKey,
		client:   client,
		now:      time.Now,
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	Error        string `json:"error_description"`
	Message      string `json:"msg"`
}

// Refresh implements RefreshFunc.
func (r *SupabaseRefresher) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	body, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.tokenURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", r.anonKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	defer resp.Body.Close()

	var out tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode refresh response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := out.Error
		if msg == "" {
			msg = out.Message
		}
		return nil, fmt.Errorf("refresh rejected (%d): %s", resp.StatusCode, msg)
	}

	session := &Session{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}
	switch {
	case out.ExpiresAt > 0:
		session.ExpiresAt = time.Unix(out.ExpiresAt, 0)
	case out.ExpiresIn > 0:
		session.ExpiresAt = r.now().Add(time.Duration(out.ExpiresIn) * time.Second)
	}
	return session, nil
}
