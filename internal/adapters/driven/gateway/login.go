package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/actharvest/internal/adapters/apitypes"
	"github.com/custodia-labs/actharvest/internal/core/domain"
)

// LoginPath is the credential exchange endpoint.
const LoginPath = "/auth/login"

// Login exchanges the administrative username and password for a bearer
// token. A rejected login wraps domain.ErrUnauthorized.
func Login(ctx context.Context, client *http.Client, baseURL, username, password string) (*oauth2.Token, error) {
	data := url.Values{}
	data.Set("username", username)
	data.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(baseURL, "/")+LoginPath, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: login rejected with status %d", domain.ErrUnauthorized, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("login failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tok apitypes.Token
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: login returned no token", domain.ErrUnauthorized)
	}

	token := &oauth2.Token{AccessToken: tok.AccessToken, TokenType: tok.TokenType}
	if tok.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	}
	return token, nil
}

// loginSource is an oauth2.TokenSource that logs in on every call.
// It is always wrapped in oauth2.ReuseTokenSource.
type loginSource struct {
	client   *http.Client
	baseURL  string
	username string
	password string
	timeout  time.Duration
}

func (s *loginSource) Token() (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return Login(ctx, s.client, s.baseURL, s.username, s.password)
}
