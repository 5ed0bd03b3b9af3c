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

// Responder delivers a custom-resource status report to CloudFormation.
// Narrow interface so the handler can be tested without a live response URL.
type Responder interface {
	Send(ctx context.Context, url string, response *models.Response) error
}

// CloudFormationResponder PUTs status reports to the presigned S3 response
// URL CloudFormation supplies with each event.
type CloudFormationResponder struct {
	httpClient *http.Client
}

var _ Responder = (*CloudFormationResponder)(nil)

func NewCloudFormationResponder() *CloudFormationResponder {
	return &CloudFormationResponder{
		httpClient: &http.Client{},
	}
}

func NewCloudFormationResponderWithClient(client *http.Client) *CloudFormationResponder {
	return &CloudFormationResponder{httpClient: client}
}

// Send PUTs the response document to url. CloudFormation only needs to
// receive the report, so any completed HTTP response counts as delivered
// regardless of status code; only transport failures return an error.
func (r *CloudFormationResponder) Send(ctx context.Context, url string, response *models.Response) error {
	logger := zerolog.Ctx(ctx)

	bodyBytes, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response document: %w", err)
	}

	logger.Info().
		Str("status", response.Status).
		Str("physical_resource_id", response.PhysicalResourceID).
		Str("reason", response.Reason).
		Int("content_length", len(bodyBytes)).
		Msg("Sending response to CloudFormation")

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create response request: %w", err)
	}

	// The presigned URL signature covers an empty Content-Type, so the
	// header must be present and blank.
	req.Header.Set("Content-Type", "")
	req.Header.Set("Content-Length", strconv.Itoa(len(bodyBytes)))
	req.ContentLength = int64(len(bodyBytes))

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver response to CloudFormation: %w", err)
	}
	defer resp.Body.Close()

	//goland:noinspection GoUnhandledErrorResult
	io.Copy(io.Discard, resp.Body)

	logger.Info().
		Int("status_code", resp.StatusCode).
		Msg("CloudFormation acknowledged response")

	return nil
}
