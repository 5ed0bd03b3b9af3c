// Package physicalid encodes the tracked organization id into the
// CloudFormation physical resource id. The physical id is the only state that
// survives between invocations, so the org id rides along inside it.
package physicalid

import "strings"

const prefix = "oidc-"

// Encode derives the physical resource id for an organization.
func Encode(orgID string) string {
	return prefix + orgID
}

// Decode extracts the organization id from a previously issued physical
// resource id. ok is false when the value is empty or was not produced by
// Encode.
func Decode(physicalID string) (orgID string, ok bool) {
	if physicalID == "" || !strings.HasPrefix(physicalID, prefix) {
		return "", false
	}
	return strings.TrimPrefix(physicalID, prefix), true
}
