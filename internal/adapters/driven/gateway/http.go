package gateway

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

	"golang.org/x/oauth2"

	"github.com/custodia-labs/actharvest/internal/adapters/apitypes"
	"github.com/custodia-labs/actharvest/internal/core/domain"
	"github.com/custodia-labs/actharvest/internal/core/ports/driven"
	"github.com/custodia-labs/actharvest/internal/logger"
)

// BatchPath is the batch ingestion endpoint.
const BatchPath = "/atos/batch"

// maxBody bounds how much of a response is read.
const maxBody = 1 << 20

// Ensure HTTP implements the interface.
var _ driven.IngestionGateway = (*HTTP)(nil)

// HTTPConfig configures the remote gateway.
type HTTPConfig struct {
	BaseURL       string
	Username      string
	Password      string
	LoginTimeout  time.Duration
	SubmitTimeout time.Duration

	// Transport is the underlying round tripper. Defaults to http.DefaultTransport.
	Transport http.RoundTripper
}

// HTTP submits batches to a running API server.
type HTTP struct {
	baseURL string
	tokens  oauth2.TokenSource
	client  *http.Client
	timeout time.Duration
}

// NewHTTP creates a remote gateway.
func NewHTTP(cfg HTTPConfig) *HTTP {
	if cfg.LoginTimeout <= 0 {
		cfg.LoginTimeout = 30 * time.Second
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = 60 * time.Second
	}
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	tokens := oauth2.ReuseTokenSource(nil, &loginSource{
		client:   &http.Client{Transport: base},
		baseURL:  cfg.BaseURL,
		username: cfg.Username,
		password: cfg.Password,
		timeout:  cfg.LoginTimeout,
	})
	return &HTTP{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		tokens:  tokens,
		client:  &http.Client{Transport: &oauth2.Transport{Source: tokens, Base: base}},
		timeout: cfg.SubmitTimeout,
	}
}

// Authenticate obtains a token, reusing a cached one while it is valid.
func (g *HTTP) Authenticate(_ context.Context) error {
	if _, err := g.tokens.Token(); err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	return nil
}

// SubmitBatch posts the batch. A non-2xx answer is returned as a rejected
// SubmitResult carrying the response body.
func (g *HTTP) SubmitBatch(ctx context.Context, batch []domain.ActRecord) (*domain.SubmitResult, error) {
	payload, err := json.Marshal(apitypes.FromRecords(batch))
	if err != nil {
		return nil, fmt.Errorf("encode batch: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+BatchPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	logger.Debug("gateway: submitting %d acts to %s", len(batch), req.URL)
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit batch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	result := &domain.SubmitResult{StatusCode: resp.StatusCode}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		result.Body = string(body)
		return result, nil
	}

	var wire apitypes.RunSummary
	if err := json.Unmarshal(body, &wire); err != nil {
		result.Body = fmt.Sprintf("undecodable summary: %v", err)
		return result, nil
	}
	summary, err := wire.Summary()
	if err != nil {
		result.Body = err.Error()
		return result, nil
	}
	result.Summary = &summary
	return result, nil
}
