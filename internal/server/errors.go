package server

import (
	"errors"
	"net/http"

	"github.com/danmuck/milestonectl/internal/ledger"
	"github.com/danmuck/milestonectl/internal/milestone"
	"github.com/danmuck/milestonectl/internal/protocol"
	"github.com/danmuck/milestonectl/internal/tracker"
	"github.com/danmuck/milestonectl/internal/vault"
	"github.com/gin-gonic/gin"
)

// requestError marks a malformed request body or parameter.
type requestError struct {
	err error
}

func (e requestError) Error() string { return e.err.Error() }
func (e requestError) Unwrap() error { return e.err }

func badRequest(err error) error {
	return requestError{err: err}
}

func statusFor(err error) int {
	var reqErr requestError
	var valErr milestone.ValidationError
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &reqErr):
		return http.StatusBadRequest
	case protocol.IsDecodeError(err):
		return http.StatusUnprocessableEntity
	case errors.As(err, &valErr),
		errors.Is(err, milestone.ErrMissingPayData),
		errors.Is(err, ledger.ErrUnknownMethod),
		errors.Is(err, protocol.ErrInvalidAddress),
		errors.Is(err, protocol.ErrNegativeInteger),
		errors.Is(err, protocol.ErrIntegerOverflow):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrUnauthorized),
		errors.Is(err, vault.ErrNotRecipient):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrUnknownMilestone),
		errors.Is(err, tracker.ErrPaymentNotFound),
		errors.Is(err, vault.ErrUnknownVault),
		errors.Is(err, vault.ErrUnknownPayment):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidTransition),
		errors.Is(err, ledger.ErrHashMismatch),
		errors.Is(err, tracker.ErrNotPayable),
		errors.Is(err, vault.ErrNotCollectable),
		errors.Is(err, vault.ErrUnsupportedDirective):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}
