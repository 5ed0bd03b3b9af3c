package errors

import "errors"

var (
	ErrMissingOrgID       = errors.New("OrgId resource property is required")
	ErrMissingResponseURL = errors.New("event is missing ResponseURL")
	ErrUnsupportedRequest = errors.New("unsupported request type")
)
