package chat

import "fmt"

const (
	ErrTypeInvalidRequest = "invalid_request_error"
	ErrTypeAPIError       = "api_error"

	CodePolicyViolation = "security_policy_violation"
	CodeUpstreamError   = "upstream_error"
	CodeBadGateway      = "bad_gateway"
)

type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Error is the canonical error envelope returned to clients.
type Error struct {
	Detail ErrorDetail `json:"error"`
}

// PolicyViolationError is the stable shape for blocked requests. Clients
// can rely on the code to tell policy blocks apart from upstream failures.
func PolicyViolationError(reason string) Error {
	return Error{Detail: ErrorDetail{
		Message: fmt.Sprintf("Request blocked by security guardrails: %s", reason),
		Type:    ErrTypeInvalidRequest,
		Code:    CodePolicyViolation,
	}}
}

func GatewayFailure(err error) Error {
	return Error{Detail: ErrorDetail{
		Message: fmt.Sprintf("Gateway Connection Failed: %v", err),
		Type:    ErrTypeAPIError,
		Code:    CodeBadGateway,
	}}
}
