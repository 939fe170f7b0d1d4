package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/procura/internal/audit/domain"
	authdomain "github.com/smallbiznis/procura/internal/auth/domain"
	"github.com/smallbiznis/procura/internal/authorization"
	organizationdomain "github.com/smallbiznis/procura/internal/organization/domain"
	pricedomain "github.com/smallbiznis/procura/internal/price/domain"
	pricerequestdomain "github.com/smallbiznis/procura/internal/pricerequest/domain"
	productdomain "github.com/smallbiznis/procura/internal/product/domain"
	referencedomain "github.com/smallbiznis/procura/internal/reference/domain"
	supplierdomain "github.com/smallbiznis/procura/internal/supplier/domain"
	userdomain "github.com/smallbiznis/procura/internal/user/domain"
	"github.com/smallbiznis/procura/internal/validation"
	"github.com/smallbiznis/procura/pkg/db/pagination"
	"gorm.io/gorm"
)

type ValidationError = validation.FieldError

type errorPayload struct {
	Type          string            `json:"type"`
	Message       string            `json:"message"`
	Errors        []ValidationError `json:"errors,omitempty"`
	CurrentStatus string            `json:"current_status,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return validation.Field("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return validation.Field(field, code, message)
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	var vErr *validation.Errors
	if errors.As(err, &vErr) && vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Fields,
		}
	}

	var conflict *pricerequestdomain.ConflictError
	if errors.As(err, &conflict) {
		return http.StatusConflict, errorPayload{
			Type:          "conflict",
			Message:       "price request is " + string(conflict.Current),
			CurrentStatus: string(conflict.Current),
		}
	}

	var immutable *pricerequestdomain.ImmutableFieldError
	if errors.As(err, &immutable) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{{
				Field:   immutable.Field,
				Code:    "immutable",
				Message: immutable.Field + " cannot change after creation",
			}},
		}
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{{
				Field:   validationErrorField(code),
				Code:    code,
				Message: validationErrorMessage(code),
			}},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authorization.ErrUnauthenticated),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidToken),
		errors.Is(err, authdomain.ErrTokenExpired),
		errors.Is(err, userdomain.ErrInvalidCredentials),
		errors.Is(err, userdomain.ErrUserInactive),
		errors.Is(err, supplierdomain.ErrInvalidToken),
		errors.Is(err, supplierdomain.ErrTokenExpired):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, supplierdomain.ErrTokenContention):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, pagination.ErrInvalidPageToken),
		errors.Is(err, authorization.ErrInvalidRole),
		errors.Is(err, productdomain.ErrInvalidKind),
		errors.Is(err, auditdomain.ErrInvalidTimeRange),
		errors.Is(err, auditdomain.ErrInvalidAction):
		return true
	case isOrganizationValidationError(err),
		isReferenceValidationError(err),
		isUserValidationError(err),
		isProductValidationError(err),
		isSupplierValidationError(err),
		isPriceValidationError(err),
		isPriceRequestValidationError(err):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, organizationdomain.ErrSlugTaken),
		errors.Is(err, organizationdomain.ErrInUse),
		errors.Is(err, referencedomain.ErrCityExists),
		errors.Is(err, userdomain.ErrUsernameTaken),
		errors.Is(err, userdomain.ErrProfileExists),
		errors.Is(err, productdomain.ErrInUse),
		errors.Is(err, supplierdomain.ErrInUse),
		errors.Is(err, pricedomain.ErrDuplicateQuote),
		errors.Is(err, pricerequestdomain.ErrInvalidTransition),
		errors.Is(err, gorm.ErrDuplicatedKey):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, organizationdomain.ErrNotFound),
		errors.Is(err, referencedomain.ErrCityNotFound),
		errors.Is(err, userdomain.ErrUserNotFound),
		errors.Is(err, userdomain.ErrProfileNotFound),
		errors.Is(err, productdomain.ErrNotFound),
		errors.Is(err, supplierdomain.ErrNotFound),
		errors.Is(err, pricedomain.ErrNotFound),
		errors.Is(err, pricerequestdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case pricerequestdomain.ErrItemChoice.Error():
		return "product_id"
	case pricedomain.ErrSupplierKindMismatch.Error():
		return "supplier_id"
	case pricerequestdomain.ErrEmptyBulkFilter.Error():
		return "filter"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case pricerequestdomain.ErrItemChoice.Error():
		return "exactly one of product_id and alcohol_id is required"
	case pricedomain.ErrSupplierKindMismatch.Error():
		return "supplier does not deal in this kind of item"
	case pricerequestdomain.ErrEmptyBulkFilter.Error():
		return "at least one filter is required"
	default:
		return "invalid value"
	}
}

// classifyErrorForLog returns the error type and code written to the access log.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}
