package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	apperrors "campusmart/pkg/errors"
	"campusmart/pkg/logger"
)

const signInWithCustomTokenURL = "https://identitytoolkit.googleapis.com/v1/accounts:signInWithCustomToken?key="

// CustomTokenSource exchanges a Firebase custom token for an ID token and caches it
// until shortly before expiry.
type CustomTokenSource struct {
	APIKey      string
	CustomToken string
	Endpoint    string
	HTTPClient  *http.Client

	mu      sync.Mutex
	idToken string
	expires time.Time
}

func NewCustomTokenSource(apiKey, customToken string) *CustomTokenSource {
	return &CustomTokenSource{
		APIKey:      apiKey,
		CustomToken: customToken,
		Endpoint:    signInWithCustomTokenURL,
		HTTPClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *CustomTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.idToken != "" && time.Now().Before(s.expires) {
		return s.idToken, nil
	}

	token, ttl, err := s.exchange(ctx)
	if apperrors.IsTransient(err) {
		// Sign-in gets exactly one retry, and only for network-class failures.
		logger.Warn("Token exchange failed, retrying once: %v", err)
		token, ttl, err = s.exchange(ctx)
	}
	if err != nil {
		return "", err
	}

	s.idToken = token
	s.expires = time.Now().Add(ttl - time.Minute)
	return token, nil
}

func (s *CustomTokenSource) exchange(ctx context.Context) (string, time.Duration, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"token":             s.CustomToken,
		"returnSecureToken": true,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint+s.APIKey, bytes.NewReader(body))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return "", 0, transportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, transportError(err)
	}
	if resp.StatusCode >= 500 {
		return "", 0, apperrors.Unavailable(fmt.Sprintf("token exchange returned %d", resp.StatusCode), nil)
	}
	if resp.StatusCode >= 400 {
		return "", 0, apperrors.Unauthorized(fmt.Sprintf("token exchange rejected: %s", raw), nil)
	}

	var out struct {
		IDToken   string `json:"idToken"`
		ExpiresIn string `json:"expiresIn"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", 0, fmt.Errorf("decode token response: %w", err)
	}

	ttl := time.Hour
	if secs, err := time.ParseDuration(out.ExpiresIn + "s"); err == nil && secs > time.Minute {
		ttl = secs
	}
	return out.IDToken, ttl, nil
}
