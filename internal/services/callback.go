package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/razroo/github-oidc-handler/internal/models"
	"github.com/rs/zerolog"
)

// Notifier announces provisioned identifiers to an external endpoint.
type Notifier interface {
	Notify(ctx context.Context, url string, payload models.CallbackPayload) (string, error)
}

// CallbackService notifies a third-party endpoint of newly provisioned
// GitHub OIDC identifiers. The call is best-effort; callers decide whether a
// failure is fatal.
type CallbackService struct {
	httpClient *http.Client
}

var _ Notifier = (*CallbackService)(nil)

func NewCallbackService() *CallbackService {
	return &CallbackService{
		httpClient: &http.Client{},
	}
}

func NewCallbackServiceWithClient(client *http.Client) *CallbackService {
	return &CallbackService{httpClient: client}
}

// Notify POSTs the payload as JSON to url and returns the response body on
// any 2xx status. Non-2xx responses and transport failures return an error
// carrying the status and body where available.
func (c *CallbackService) Notify(ctx context.Context, url string, payload models.CallbackPayload) (body string, err error) {
	logger := zerolog.Ctx(ctx)

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal callback payload: %w", err)
	}

	logger.Info().
		Str("url", url).
		Str("org_id", payload.OrgID).
		Str("github_org", payload.GithubOrg).
		Int("content_length", len(bodyBytes)).
		Msg("Sending callback notification")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create callback request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Length", strconv.Itoa(len(bodyBytes)))
	req.ContentLength = int64(len(bodyBytes))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("callback request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read callback response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("callback failed: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	logger.Info().
		Int("status", resp.StatusCode).
		Msg("Callback notification delivered")

	return string(respBody), nil
}
