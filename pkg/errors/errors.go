package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/attendly/attendance-core/pkg/i18n"
)

// Standard error types
var (
	ErrNotFound           = errors.New("resource not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrBadRequest         = errors.New("bad request")
	ErrConflict           = errors.New("resource conflict")
	ErrInternal           = errors.New("internal server error")
	ErrValidation         = errors.New("validation error")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	MessageKey string            `json:"-"` // i18n key for localization
	Params     map[string]string `json:"-"` // Parameters for i18n interpolation
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Localize returns a localized version of the error message
func (e *AppError) Localize(ctx context.Context) string {
	if e.MessageKey == "" {
		return e.Message
	}
	return i18n.TFromContext(ctx, e.MessageKey, e.Params)
}

// LocalizeWith returns a localized version using a specific localizer
func (e *AppError) LocalizeWith(l *i18n.Localizer) string {
	if e.MessageKey == "" {
		return e.Message
	}
	return l.T(e.MessageKey, e.Params)
}

// New creates a new AppError
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// NewWithKey creates a new AppError with an i18n key
func NewWithKey(code string, messageKey string, statusCode int, params ...map[string]string) *AppError {
	var p map[string]string
	if len(params) > 0 {
		p = params[0]
	}
	return &AppError{
		Code:       code,
		Message:    i18n.T(messageKey, p), // Default message in English
		MessageKey: messageKey,
		Params:     p,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// Common error constructors

func NotFound(resource string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		MessageKey: "errors.not_found",
		Params:     map[string]string{"resource": resource},
		StatusCode: http.StatusNotFound,
	}
}

// NotFoundWithKey creates a not found error with localized resource name
func NotFoundWithKey(resourceKey string) *AppError {
	resourceName := i18n.T("resources." + resourceKey)
	return &AppError{
		Err:        ErrNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resourceName),
		MessageKey: "errors.not_found",
		Params:     map[string]string{"resource": resourceName},
		StatusCode: http.StatusNotFound,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Code:       "UNAUTHORIZED",
		Message:    message,
		MessageKey: "errors.unauthorized",
		StatusCode: http.StatusUnauthorized,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Err:        ErrForbidden,
		Code:       "FORBIDDEN",
		Message:    message,
		MessageKey: "errors.forbidden",
		StatusCode: http.StatusForbidden,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
		MessageKey: "errors.bad_request",
		StatusCode: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       "CONFLICT",
		Message:    message,
		MessageKey: "errors.conflict",
		StatusCode: http.StatusConflict,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		MessageKey: "errors.internal",
		StatusCode: http.StatusInternalServerError,
	}
}

func Validation(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       "VALIDATION_ERROR",
		Message:    "validation failed",
		MessageKey: "errors.validation_failed",
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

func InvalidCredentials() *AppError {
	return &AppError{
		Err:        ErrInvalidCredentials,
		Code:       "INVALID_CREDENTIALS",
		Message:    "invalid email or password",
		MessageKey: "errors.invalid_credentials",
		StatusCode: http.StatusUnauthorized,
	}
}

func TokenExpired() *AppError {
	return &AppError{
		Err:        ErrTokenExpired,
		Code:       "TOKEN_EXPIRED",
		Message:    "token has expired",
		MessageKey: "errors.token_expired",
		StatusCode: http.StatusUnauthorized,
	}
}

func TokenInvalid() *AppError {
	return &AppError{
		Err:        ErrTokenInvalid,
		Code:       "TOKEN_INVALID",
		Message:    "invalid token",
		MessageKey: "errors.token_invalid",
		StatusCode: http.StatusUnauthorized,
	}
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Domain error types for the attendance lifecycle core
var (
	ErrEmployeeInactive  = errors.New("employee inactive")
	ErrBranchUnavailable = errors.New("branch unavailable")
	ErrOutOfGeofence     = errors.New("outside branch geofence")
	ErrAlreadyCheckedIn  = errors.New("employee already checked in")
	ErrNotCheckedIn      = errors.New("employee has no open session")
	ErrTenantMismatch    = errors.New("resource belongs to a different company")
)

// EmployeeInactive is returned when C2 admits a check-in/out attempt for an
// employee whose status is not ACTIVE.
func EmployeeInactive(employeeID string) *AppError {
	return &AppError{
		Err:        ErrEmployeeInactive,
		Code:       "EMPLOYEE_INACTIVE",
		Message:    fmt.Sprintf("employee %s is not active", employeeID),
		MessageKey: "errors.employee_inactive",
		Params:     map[string]string{"employee_id": employeeID},
		StatusCode: http.StatusForbidden,
	}
}

// BranchUnavailable is returned when the branch named by the request is
// missing, soft-deleted, or disabled for check-in.
func BranchUnavailable(branchID string) *AppError {
	return &AppError{
		Err:        ErrBranchUnavailable,
		Code:       "BRANCH_UNAVAILABLE",
		Message:    fmt.Sprintf("branch %s is not available for check-in", branchID),
		MessageKey: "errors.branch_unavailable",
		Params:     map[string]string{"branch_id": branchID},
		StatusCode: http.StatusBadRequest,
	}
}

// OutOfGeofence is returned when the haversine distance between the reported
// position and the branch center exceeds the branch's configured radius.
// distanceM and radiusM are carried in Details so clients can show "you are
// Nm away, Mm allowed" without a second round trip.
func OutOfGeofence(distanceM, radiusM float64) *AppError {
	return &AppError{
		Err:        ErrOutOfGeofence,
		Code:       "OUT_OF_GEOFENCE",
		Message:    fmt.Sprintf("%.1fm from branch, radius is %.1fm", distanceM, radiusM),
		MessageKey: "errors.out_of_geofence",
		Params: map[string]string{
			"distance_m": fmt.Sprintf("%.1f", distanceM),
			"radius_m":   fmt.Sprintf("%.1f", radiusM),
		},
		StatusCode: http.StatusForbidden,
		Details: map[string]string{
			"distance_m": fmt.Sprintf("%.1f", distanceM),
			"radius_m":   fmt.Sprintf("%.1f", radiusM),
		},
	}
}

// AlreadyCheckedIn is returned when an employee with an open AttendanceLog
// attempts to check in again. existingLogID lets the client jump straight to
// the open session instead of retrying blind.
func AlreadyCheckedIn(existingLogID string) *AppError {
	return &AppError{
		Err:        ErrAlreadyCheckedIn,
		Code:       "ALREADY_CHECKED_IN",
		Message:    "employee already has an open attendance session",
		MessageKey: "errors.already_checked_in",
		Params:     map[string]string{"attendance_log_id": existingLogID},
		StatusCode: http.StatusConflict,
		Details:    map[string]string{"attendance_log_id": existingLogID},
	}
}

// NotCheckedIn is returned when a check-out, heartbeat, or auto-checkout
// proposal references an employee with no open AttendanceLog.
func NotCheckedIn(employeeID string) *AppError {
	return &AppError{
		Err:        ErrNotCheckedIn,
		Code:       "NOT_CHECKED_IN",
		Message:    fmt.Sprintf("employee %s has no open attendance session", employeeID),
		MessageKey: "errors.not_checked_in",
		Params:     map[string]string{"employee_id": employeeID},
		StatusCode: http.StatusConflict,
	}
}

// TenantMismatch is returned when a Principal's company_id does not match
// the company_id implied by a path or body parameter. RLS would also block
// the row, but this check lets the handler reject before it ever reaches
// the database.
func TenantMismatch() *AppError {
	return &AppError{
		Err:        ErrTenantMismatch,
		Code:       "TENANT_MISMATCH",
		Message:    "resource belongs to a different company",
		MessageKey: "errors.tenant_mismatch",
		StatusCode: http.StatusForbidden,
	}
}

// Unauthenticated signals missing or invalid credentials at the gatekeeper,
// distinct from Unauthorized (bad password) and Forbidden (valid principal,
// missing capability).
func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Code:       "UNAUTHENTICATED",
		Message:    message,
		MessageKey: "errors.unauthenticated",
		StatusCode: http.StatusUnauthorized,
	}
}
