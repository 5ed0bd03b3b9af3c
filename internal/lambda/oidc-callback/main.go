package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/razroo/github-oidc-handler/internal/di"
	apperrors "github.com/razroo/github-oidc-handler/internal/errors"
	"github.com/razroo/github-oidc-handler/internal/models"
	"github.com/razroo/github-oidc-handler/internal/physicalid"
	"github.com/razroo/github-oidc-handler/internal/services"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

const (
	messageCreated = "GitHub OIDC setup completed successfully"
	messageUpdated = "GitHub OIDC setup updated successfully"
	messageDeleted = "GitHub OIDC setup deleted successfully"
)

type Handler struct {
	notifier      services.Notifier
	responder     services.Responder
	logStreamName string
}

// outcome is the immutable result of a single dispatch branch. The response
// document is assembled from exactly one outcome per invocation.
type outcome struct {
	status string
	reason string
	data   map[string]any
}

func success(data map[string]any) outcome {
	return outcome{status: models.StatusSuccess, data: data}
}

func failure(err error) outcome {
	reason := "custom resource handler failed"
	if err != nil && err.Error() != "" {
		reason = err.Error()
	}
	return outcome{
		status: models.StatusFailed,
		reason: reason,
		data:   map[string]any{"Error": reason},
	}
}

func NewHandler(logStreamName string) *Handler {
	return &Handler{
		notifier:      services.NewCallbackService(),
		responder:     services.NewCloudFormationResponder(),
		logStreamName: logStreamName,
	}
}

// HandleCustomResource processes one lifecycle event and delivers exactly one
// status report to the event's response URL. Branch failures are folded into
// a FAILED report; only a missing response URL or a transport failure while
// delivering the report surfaces as an invocation error.
func (h *Handler) HandleCustomResource(
	ctx context.Context,
	event *models.CustomResourceEvent,
) (response *models.Response, err error) {
	logger := zerolog.Ctx(ctx)

	logger.Info().
		Str("request_type", event.RequestType).
		Str("stack_id", event.StackID).
		Str("request_id", event.RequestID).
		Str("logical_resource_id", event.LogicalResourceID).
		Str("physical_resource_id", event.PhysicalResourceID).
		Str("org_id", event.ResourceProperties.OrgID).
		Str("github_org", event.ResourceProperties.GithubOrg).
		Msg("Received custom resource event")

	defer func(begin time.Time) {
		logger.Info().
			Interface("error", err).
			Str("request_type", event.RequestType).
			Dur("duration", time.Since(begin)).
			Msg("HandleCustomResource completed")
	}(time.Now())

	if event.ResponseURL == "" {
		// Nowhere to deliver a report; nothing to do but fail the invocation.
		return nil, apperrors.ErrMissingResponseURL
	}

	result := h.dispatch(ctx, event)

	response = models.NewResponse(
		event,
		result.status,
		result.reason,
		h.physicalResourceID(event),
		result.data,
	)

	if err := h.responder.Send(ctx, event.ResponseURL, response); err != nil {
		return nil, err
	}
	return response, nil
}

// dispatch runs the branch for the event's request type and never returns
// more than one outcome. Branch errors become a FAILED outcome here so the
// report is still delivered.
func (h *Handler) dispatch(ctx context.Context, event *models.CustomResourceEvent) outcome {
	logger := zerolog.Ctx(ctx)

	if err := event.Validate(); err != nil {
		logger.Error().Err(err).Msg("Event failed validation")
		return failure(err)
	}

	switch event.RequestType {
	case models.RequestCreate:
		return h.handleCreate(ctx, event)
	case models.RequestUpdate:
		return h.handleUpdate(ctx, event)
	case models.RequestDelete:
		return h.handleDelete(ctx, event)
	default:
		err := fmt.Errorf("%w: %q", apperrors.ErrUnsupportedRequest, event.RequestType)
		logger.Error().Err(err).Msg("Rejecting event")
		return failure(err)
	}
}

func (h *Handler) handleCreate(ctx context.Context, event *models.CustomResourceEvent) outcome {
	logger := zerolog.Ctx(ctx)
	props := event.ResourceProperties

	data := map[string]any{
		"Message":        messageCreated,
		"GithubOrg":      props.GithubOrg,
		"OrgId":          props.OrgID,
		"RepositoryName": props.RepositoryName,
		"Timestamp":      time.Now().UTC().Format(time.RFC3339),
	}

	if props.CallbackURL == "" {
		logger.Info().Msg("No callback URL configured, skipping notification")
		return success(data)
	}

	payload := models.CallbackPayload{
		GithubOrg:       props.GithubOrg,
		OrgID:           props.OrgID,
		RoleArn:         props.RoleArn,
		OidcProviderArn: props.OidcProviderArn,
		RepositoryName:  props.RepositoryName,
		StackID:         event.StackID,
	}

	if _, err := h.notifier.Notify(ctx, props.CallbackURL, payload); err != nil {
		// The resource itself was provisioned; a failed notification must
		// not fail the stack operation.
		logger.Warn().Err(err).Msg("Callback notification failed")
		data["CallbackWarning"] = fmt.Sprintf("callback notification failed: %v", err)
	}

	return success(data)
}

func (h *Handler) handleUpdate(ctx context.Context, event *models.CustomResourceEvent) outcome {
	logger := zerolog.Ctx(ctx)
	current := event.ResourceProperties.OrgID

	if previous, ok := physicalid.Decode(event.PhysicalResourceID); ok && previous != current {
		err := fmt.Errorf(
			"organization id is immutable: resource was created for org %q but the update requests org %q; delete this resource and create a new one instead",
			previous, current,
		)
		logger.Error().
			Str("previous_org_id", previous).
			Str("requested_org_id", current).
			Msg("Rejecting org id change on update")
		return failure(err)
	}

	logger.Info().Str("org_id", current).Msg("Update accepted")
	return success(map[string]any{
		"Message": messageUpdated,
		"OrgId":   current,
	})
}

func (h *Handler) handleDelete(ctx context.Context, event *models.CustomResourceEvent) outcome {
	// The provider and role are owned by the stack; nothing to clean up here.
	zerolog.Ctx(ctx).Info().
		Str("physical_resource_id", event.PhysicalResourceID).
		Msg("Delete acknowledged")
	return success(map[string]any{
		"Message": messageDeleted,
	})
}

// physicalResourceID picks the id reported back to CloudFormation: the
// org-derived id on Create, the replayed previous value otherwise, and the
// log stream name as a last resort so the report is never missing one.
func (h *Handler) physicalResourceID(event *models.CustomResourceEvent) string {
	if event.RequestType == models.RequestCreate && event.ResourceProperties.OrgID != "" {
		return physicalid.Encode(event.ResourceProperties.OrgID)
	}
	if event.PhysicalResourceID != "" {
		return event.PhysicalResourceID
	}
	return h.logStreamName
}

func main() {
	logger := di.ProvideLogger().With().Str("lambda", "oidc-callback").Logger()

	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		// Lambda mode
		handler := NewHandler(lambdacontext.LogStreamName)

		// Wrap handler to inject a per-invocation logger into context
		wrappedHandler := func(ctx context.Context, event *models.CustomResourceEvent) (*models.Response, error) {
			invocationLogger := di.ProvideInvocationLogger(logger)
			ctx = invocationLogger.WithContext(ctx)
			return handler.HandleCustomResource(ctx, event)
		}
		lambda.Start(wrappedHandler)
		return
	}

	// CLI mode
	app := &cli.App{
		Name:  "oidc-callback",
		Usage: "Handle a GitHub OIDC custom resource lifecycle event",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "request-type",
				Usage: "Lifecycle request type (Create, Update, Delete)",
				Value: models.RequestCreate,
			},
			&cli.StringFlag{
				Name:     "response-url",
				Usage:    "CloudFormation presigned response URL",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "stack-id",
				Usage: "Stack ARN",
			},
			&cli.StringFlag{
				Name:  "request-id",
				Usage: "CloudFormation request id",
			},
			&cli.StringFlag{
				Name:  "logical-resource-id",
				Usage: "Logical id of the custom resource",
			},
			&cli.StringFlag{
				Name:  "physical-resource-id",
				Usage: "Physical id from the previous invocation (Update/Delete)",
			},
			&cli.StringFlag{
				Name:     "org-id",
				Usage:    "Tracked organization id",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "github-org",
				Usage: "GitHub organization name",
			},
			&cli.StringFlag{
				Name:  "repository-name",
				Usage: "Repository the OIDC role is scoped to",
			},
			&cli.StringFlag{
				Name:  "oidc-provider-arn",
				Usage: "ARN of the provisioned OIDC provider",
			},
			&cli.StringFlag{
				Name:  "role-arn",
				Usage: "ARN of the provisioned role",
			},
			&cli.StringFlag{
				Name:  "callback-url",
				Usage: "Optional notification URL for Create",
			},
		},
		Action: func(c *cli.Context) error {
			event := &models.CustomResourceEvent{
				RequestType:        c.String("request-type"),
				ResponseURL:        c.String("response-url"),
				StackID:            c.String("stack-id"),
				RequestID:          c.String("request-id"),
				LogicalResourceID:  c.String("logical-resource-id"),
				PhysicalResourceID: c.String("physical-resource-id"),
				ResourceProperties: models.ResourceProperties{
					GithubOrg:       c.String("github-org"),
					OrgID:           c.String("org-id"),
					RepositoryName:  c.String("repository-name"),
					OidcProviderArn: c.String("oidc-provider-arn"),
					RoleArn:         c.String("role-arn"),
					CallbackURL:     c.String("callback-url"),
				},
			}

			handler := NewHandler("")
			ctx := logger.WithContext(context.Background())

			response, err := handler.HandleCustomResource(ctx, event)
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(response)
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error().Err(err).Msg("Application error")
		os.Exit(1)
	}
}
