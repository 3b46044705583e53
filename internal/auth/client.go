package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrInvalidSession is returned when the credential is missing, expired or
// unknown to the user service.
var ErrInvalidSession = errors.New("invalid session")

// Client validates session credentials against the user service.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a user service auth client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type sessionResponse struct {
	UserID string `json:"user_id"`
}

// ValidateSession resolves a session token to a user id. A missing or
// rejected token yields ErrInvalidSession; anything else is a transport
// problem with the user service.
func (c *Client) ValidateSession(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidSession
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/session", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.AddCookie(&http.Cookie{Name: "session_id", Value: token})

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to validate session: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var session sessionResponse
		if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
			return "", fmt.Errorf("failed to decode session response: %w", err)
		}
		if session.UserID == "" {
			return "", fmt.Errorf("user service returned empty user id")
		}
		return session.UserID, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", ErrInvalidSession
	default:
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("user service returned status code: %d, response: %s", resp.StatusCode, string(body))
	}
}
