package core

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// respondError sends unified error payload {"error": {"code", "message"}}.
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": gin.H{"code": code, "message": message}})
}

// respondDenied is respondError plus the destination the client should move to.
func respondDenied(c *gin.Context, status int, code, message string, dest Destination) {
	c.JSON(status, gin.H{"error": gin.H{"code": code, "message": message, "redirect": dest}})
}

// respondFailure maps a core failure reason to its status, code and message.
func respondFailure(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"
	switch {
	case errors.Is(err, ErrTerminated):
		status, code = http.StatusForbidden, "TERMINATED"
	case errors.Is(err, ErrUserNotFound):
		status, code = http.StatusUnauthorized, "USER_NOT_FOUND"
	case errors.Is(err, ErrBadPassword):
		status, code = http.StatusUnauthorized, "BAD_PASSWORD"
	case errors.Is(err, ErrAccountLocked):
		status, code = http.StatusForbidden, "ACCOUNT_LOCKED"
	case errors.Is(err, ErrWrongOldPassword):
		status, code = http.StatusBadRequest, "WRONG_OLD_PASSWORD"
	case errors.Is(err, ErrOldPasswordMustBeEmpty):
		status, code = http.StatusBadRequest, "OLD_PASSWORD_MUST_BE_EMPTY"
	case errors.Is(err, ErrPasswordMismatch):
		status, code = http.StatusBadRequest, "PASSWORD_MISMATCH"
	case errors.Is(err, ErrPolicyViolation):
		status, code = http.StatusBadRequest, "POLICY_VIOLATION"
	case errors.Is(err, ErrPasswordTooLong):
		status, code = http.StatusBadRequest, "PASSWORD_TOO_LONG"
	case errors.Is(err, ErrInvalidUsername):
		status, code = http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, ErrForbiddenOnRoot):
		status, code = http.StatusForbidden, "FORBIDDEN_ON_ROOT"
	case errors.Is(err, ErrDuplicateUsername):
		status, code = http.StatusConflict, "CONFLICT"
	case errors.Is(err, ErrStorageUnavailable):
		status, code = http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE"
	}
	respondError(c, status, code, FailureMessage(err))
}
