package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrUnauthorized is returned when the API rejects the token. The session is dropped.
var ErrUnauthorized = errors.New("apiclient: unauthorized")

// APIError is a non-2xx response carrying the server's error envelope.
type APIError struct {
	StatusCode int
	Message    string
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api error (%d): %s: %s", e.StatusCode, e.Message, e.Detail)
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

// Client calls the API on behalf of the session held by its TokenSource.
type Client struct {
	baseURL string
	tokens  *TokenSource
	http    *http.Client
}

// New constructs a Client. tokens may be nil for anonymous use.
func New(baseURL string, tokens *TokenSource, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), tokens: tokens, http: httpClient}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Detail  string          `json:"detail"`
	Data    json.RawMessage `json:"data"`
}

// Do sends one request. When out is non-nil the envelope's data field is decoded into it.
func (c *Client) Do(ctx context.Context, method, path string, in, out interface{}) error {
	raw, err := c.do(ctx, method, path, in)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

func (c *Client) do(ctx context.Context, method, path string, in interface{}) ([]byte, error) {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if c.tokens != nil {
			c.tokens.Invalidate()
		}
		return nil, ErrUnauthorized
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var env envelope
		if json.Unmarshal(raw, &env) == nil && env.Message != "" {
			apiErr.Message = env.Message
			apiErr.Detail = env.Detail
		}
		return nil, apiErr
	}
	return raw, nil
}

// OrderLine is one (menu item, quantity) pair of a checkout.
type OrderLine struct {
	MenuID   uuid.UUID `json:"menu_id"`
	Quantity int       `json:"quantity"`
}

// PlaceOrderRequest is the body of POST /api/orders.
type PlaceOrderRequest struct {
	UserID        *uuid.UUID  `json:"user_id,omitempty"`
	AddressID     *uuid.UUID  `json:"address_id,omitempty"`
	PaymentMethod string      `json:"payment_method,omitempty"`
	Items         []OrderLine `json:"items"`
}

// PlacedOrder is the answer to a successful checkout.
type PlacedOrder struct {
	OrderID     uuid.UUID       `json:"order_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status"`
}

// PlaceOrder submits a checkout.
func (c *Client) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlacedOrder, error) {
	raw, err := c.do(ctx, http.MethodPost, "/api/orders", req)
	if err != nil {
		return nil, err
	}
	var out PlacedOrder
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	return &out, nil
}

// MenuItem is a dish as listed by the menu endpoints.
type MenuItem struct {
	ID          uuid.UUID       `json:"id"`
	CategoryID  uuid.UUID       `json:"category_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	IsAvailable bool            `json:"is_available"`
}

// ListMenu returns the available menu.
func (c *Client) ListMenu(ctx context.Context) ([]MenuItem, error) {
	var items []MenuItem
	err := c.Do(ctx, http.MethodGet, "/api/menu/items?available=true", nil, &items)
	return items, err
}

// Profile is the caller's profile.
type Profile struct {
	ID    uuid.UUID `json:"id"`
	Email *string   `json:"email"`
	Name  string    `json:"name"`
	Phone *string   `json:"phone"`
	Role  string    `json:"role"`
}

// Me returns the signed-in user's profile.
func (c *Client) Me(ctx context.Context) (*Profile, error) {
	var profile Profile
	if err := c.Do(ctx, http.MethodGet, "/api/users/me", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}
