package models

import "github.com/razroo/github-oidc-handler/internal/errors"

// Request types delivered by CloudFormation for a custom resource.
const (
	RequestCreate = "Create"
	RequestUpdate = "Update"
	RequestDelete = "Delete"
)

// Response statuses accepted by the CloudFormation response URL.
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// ResourceProperties carries the provisioned GitHub OIDC identifiers supplied
// by the stack template. All values are passed through verbatim; no ARN or
// org-name syntax validation happens here.
type ResourceProperties struct {
	GithubOrg       string `json:"GithubOrg"`
	OrgID           string `json:"OrgId"`
	RepositoryName  string `json:"RepositoryName"`
	OidcProviderArn string `json:"OidcProviderArn"`
	RoleArn         string `json:"RoleArn"`
	CallbackURL     string `json:"CallbackUrl,omitempty"`
}

// CustomResourceEvent is the lifecycle event CloudFormation sends on stack
// create, update, and delete. PhysicalResourceID is empty on Create and holds
// the value from the previous invocation otherwise.
type CustomResourceEvent struct {
	RequestType        string             `json:"RequestType"`
	ResponseURL        string             `json:"ResponseURL"`
	StackID            string             `json:"StackId"`
	RequestID          string             `json:"RequestId"`
	LogicalResourceID  string             `json:"LogicalResourceId"`
	PhysicalResourceID string             `json:"PhysicalResourceId,omitempty"`
	ResourceProperties ResourceProperties `json:"ResourceProperties"`
}

// Validate checks the fields every branch depends on. A missing ResponseURL
// leaves nowhere to deliver a report, so callers must treat that error as
// unreportable.
func (e *CustomResourceEvent) Validate() error {
	if e.ResponseURL == "" {
		return errors.ErrMissingResponseURL
	}
	if e.ResourceProperties.OrgID == "" {
		return errors.ErrMissingOrgID
	}
	return nil
}

// Response is the status document PUT back to the CloudFormation response URL.
type Response struct {
	Status             string         `json:"Status"`
	Reason             string         `json:"Reason"`
	PhysicalResourceID string         `json:"PhysicalResourceId"`
	StackID            string         `json:"StackId"`
	RequestID          string         `json:"RequestId"`
	LogicalResourceID  string         `json:"LogicalResourceId"`
	Data               map[string]any `json:"Data"`
}

// NewResponse builds a response echoing the event's correlation fields.
// CloudFormation matches the report to the pending stack operation by
// StackId + RequestId + LogicalResourceId.
func NewResponse(event *CustomResourceEvent, status, reason, physicalID string, data map[string]any) *Response {
	return &Response{
		Status:             status,
		Reason:             reason,
		PhysicalResourceID: physicalID,
		StackID:            event.StackID,
		RequestID:          event.RequestID,
		LogicalResourceID:  event.LogicalResourceID,
		Data:               data,
	}
}

// CallbackPayload is the notification body POSTed to the caller-supplied
// callback URL after a successful Create.
type CallbackPayload struct {
	GithubOrg       string `json:"githubOrg"`
	OrgID           string `json:"orgId"`
	RoleArn         string `json:"roleArn"`
	OidcProviderArn string `json:"oidcProviderArn"`
	RepositoryName  string `json:"repositoryName"`
	StackID         string `json:"stackId"`
}
