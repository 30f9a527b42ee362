package services

import (
	"errors"
	"net/http"
)

var (
	ErrInsufficientFunds   = errors.New("insufficient balance")
	ErrInvalidTransition   = errors.New("invalid order transition")
	ErrOutOfStock          = errors.New("out of stock")
	ErrAlreadyConsumed     = errors.New("code already consumed")
	ErrNotReserved         = errors.New("code is not reserved for this order")
	ErrStaleOverride       = errors.New("pricing override was changed by someone else")
	ErrUpstreamUnavailable = errors.New("request could not be completed, try later")

	ErrUserNotFound        = errors.New("user not found")
	ErrUserBanned          = errors.New("user is banned")
	ErrOrderNotFound       = errors.New("order not found")
	ErrUnknownItem         = errors.New("unknown catalog item")
	ErrQuantityOutOfBounds = errors.New("quantity out of bounds")
	ErrLinkRequired        = errors.New("link is required for this item")
	ErrKindMismatch        = errors.New("item cannot be ordered with this kind")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrNotDelivered        = errors.New("code has not been delivered for this order")
)

// StatusFor maps a service error onto an HTTP status and a message that is
// safe to show to end users.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInsufficientFunds):
		return http.StatusPaymentRequired, ErrInsufficientFunds.Error()
	case errors.Is(err, ErrOutOfStock):
		return http.StatusConflict, ErrOutOfStock.Error()
	case errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict, ErrInvalidTransition.Error()
	case errors.Is(err, ErrStaleOverride):
		return http.StatusConflict, ErrStaleOverride.Error()
	case errors.Is(err, ErrAlreadyConsumed), errors.Is(err, ErrNotReserved):
		return http.StatusConflict, rootMessage(err)
	case errors.Is(err, ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable, ErrUpstreamUnavailable.Error()
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrUnknownItem), errors.Is(err, ErrNotDelivered):
		return http.StatusNotFound, rootMessage(err)
	case errors.Is(err, ErrUserBanned):
		return http.StatusForbidden, ErrUserBanned.Error()
	case errors.Is(err, ErrQuantityOutOfBounds), errors.Is(err, ErrLinkRequired),
		errors.Is(err, ErrKindMismatch), errors.Is(err, ErrInvalidAmount):
		return http.StatusBadRequest, rootMessage(err)
	}
	return http.StatusInternalServerError, "internal error"
}

func rootMessage(err error) string {
	for _, sentinel := range []error{
		ErrAlreadyConsumed, ErrNotReserved,
		ErrUserNotFound, ErrOrderNotFound, ErrUnknownItem, ErrNotDelivered,
		ErrQuantityOutOfBounds, ErrLinkRequired, ErrKindMismatch, ErrInvalidAmount,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}
