package fakes

import (
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

// ResponseError builds an Azure response error with the given status.
func ResponseError(status int, code string) error {
	return &azcore.ResponseError{StatusCode: status, ErrorCode: code}
}

// NotFoundError is the 404 returned for missing secrets and settings.
func NotFoundError() error {
	return ResponseError(http.StatusNotFound, "NotFound")
}

// UnauthorizedError is the 401 returned for bad credentials.
func UnauthorizedError() error {
	return ResponseError(http.StatusUnauthorized, "Unauthorized")
}

// ForbiddenError is the 403 returned for missing data-plane roles.
func ForbiddenError() error {
	return ResponseError(http.StatusForbidden, "Forbidden")
}

// PreconditionFailedError is the 412 returned when an ETag no longer matches.
func PreconditionFailedError() error {
	return ResponseError(http.StatusPreconditionFailed, "PreconditionFailed")
}
