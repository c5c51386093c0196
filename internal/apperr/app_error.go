package apperr

import "github.com/tuanvumaihuynh/inventory-api/pkg/zerror"

const (
	ValidationErrorCode    = "VALIDATION_FAILED"
	UnauthorizedErrorCode  = "UNAUTHORIZED"
	ProductNotFoundCode    = "PRODUCT_NOT_FOUND"
	InvalidRequestBodyCode = "INVALID_REQUEST_BODY"
	ServiceUnavailableCode = "SERVICE_UNAVAILABLE"
)

var (
	ValidationErr         = zerror.NewValidationFailed(ValidationErrorCode, "validation error")
	InvalidRequestBodyErr = zerror.NewBadRequest(InvalidRequestBodyCode, "request body is not valid JSON for this operation")
	UnauthorizedErr       = zerror.NewUnauthorized(UnauthorizedErrorCode, "a valid bearer access token is required")
	ProductNotFoundErr    = zerror.NewNotFound(ProductNotFoundCode, "product not found")
	ServiceUnavailableErr = zerror.NewServiceUnavailable(ServiceUnavailableCode, "service unavailable")
)
