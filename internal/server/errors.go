package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	authdomain "github.com/tabshare/tabshare/internal/auth/domain"
	expensedomain "github.com/tabshare/tabshare/internal/expense/domain"
	groupdomain "github.com/tabshare/tabshare/internal/group/domain"
	"github.com/tabshare/tabshare/internal/money"
	plandomain "github.com/tabshare/tabshare/internal/plan/domain"
	"github.com/tabshare/tabshare/internal/split"
	subdomain "github.com/tabshare/tabshare/internal/subscription/domain"
	userdomain "github.com/tabshare/tabshare/internal/user/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrTooManyTries   = errors.New("too_many_requests")
)

// ErrorHandlingMiddleware renders the last error attached to the gin
// context as a structured JSON response, once, after the handler chain.
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

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{Field: field, Code: code, Message: message},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	var vErrs *ValidationErrors
	if errors.As(err, &vErrs) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErrs.Errors,
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionExpired):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}

	case errors.Is(err, ErrForbidden),
		errors.Is(err, groupdomain.ErrForbidden),
		errors.Is(err, groupdomain.ErrNotAMember):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}

	case errors.Is(err, ErrNotFound),
		errors.Is(err, userdomain.ErrUserNotFound),
		errors.Is(err, groupdomain.ErrGroupNotFound),
		errors.Is(err, expensedomain.ErrExpenseNotFound),
		errors.Is(err, plandomain.ErrPlanNotFound),
		errors.Is(err, subdomain.ErrSubscriptionNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: err.Error(),
		}

	case errors.Is(err, userdomain.ErrEmailTaken),
		errors.Is(err, groupdomain.ErrAlreadyMember),
		errors.Is(err, gorm.ErrDuplicatedKey):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}

	case errors.Is(err, ErrTooManyTries):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "too_many_requests",
			Message: "too many requests, slow down",
		}

	case isBadInput(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	}

	return http.StatusInternalServerError, errorPayload{
		Type:    "internal_error",
		Message: "internal server error",
	}
}

func isBadInput(err error) bool {
	for _, target := range []error{
		ErrInvalidRequest,
		authdomain.ErrWeakPassword,
		groupdomain.ErrInvalidName,
		groupdomain.ErrInvalidUserID,
		expensedomain.ErrParticipantNotMember,
		expensedomain.ErrInvalidUserID,
		money.ErrInvalidAmount,
		money.ErrNonPositive,
		split.ErrUnknownMethod,
		split.ErrNoParticipants,
		split.ErrNonPositiveAmount,
		split.ErrInvalidQuantity,
		split.ErrUnassignedItem,
		split.ErrNoShares,
		split.ErrDuplicateUser,
		split.ErrEmptyExpense,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
