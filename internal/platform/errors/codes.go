// Package errors provides structured error handling with i18n support.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Input errors
	CodeUserIDRequired      Code = "USER_ID_REQUIRED"
	CodeCommunityIDRequired Code = "COMMUNITY_ID_REQUIRED"
	CodeRequestIDRequired   Code = "REQUEST_ID_REQUIRED"
	CodeFilterInvalid       Code = "FILTER_INVALID"

	// Auth errors
	CodeAuthUnauthenticated Code = "AUTH_UNAUTHENTICATED"
	CodeAuthGrantInvalid    Code = "AUTH_GRANT_INVALID"
	CodeAuthGrantExpired    Code = "AUTH_GRANT_EXPIRED"

	// Connect code errors
	CodeConnectCodeSpaceExhausted Code = "CONNECT_CODE_SPACE_EXHAUSTED"

	// Connection request errors
	CodeRequestNotOwned   Code = "REQUEST_NOT_OWNED"
	CodeRequestNotPending Code = "REQUEST_NOT_PENDING"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// GRPCCode maps a domain error code to a gRPC status code.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeUserIDRequired,
		CodeCommunityIDRequired,
		CodeRequestIDRequired,
		CodeFilterInvalid,
		CodeAuthGrantInvalid:
		return codes.InvalidArgument

	// Unauthenticated - caller identity missing or unverifiable
	case CodeAuthUnauthenticated:
		return codes.Unauthenticated

	// PermissionDenied - caller may not act on this resource
	case CodeRequestNotOwned:
		return codes.PermissionDenied

	// FailedPrecondition - state doesn't allow operation
	case CodeRequestNotPending,
		CodeAuthGrantExpired:
		return codes.FailedPrecondition

	// NotFound - resource doesn't exist
	case CodeNotFound:
		return codes.NotFound

	// ResourceExhausted - retry budget spent without success
	case CodeConnectCodeSpaceExhausted:
		return codes.ResourceExhausted

	default:
		return codes.Internal
	}
}
