// internal/order/lifecycle.go

// Package order freezes checkouts into orders and moves them through their
// status lifecycle.
package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/javajoker/storefront/internal/models"
)

// forward is the only legal non-cancel path; no state is skipped.
var forward = map[models.OrderStatus]models.OrderStatus{
	models.OrderStatusPending:    models.OrderStatusConfirmed,
	models.OrderStatusConfirmed:  models.OrderStatusProcessing,
	models.OrderStatusProcessing: models.OrderStatusShipped,
	models.OrderStatusShipped:    models.OrderStatusDelivered,
}

// NextStatus returns the state after s, or false when s is terminal.
func NextStatus(s models.OrderStatus) (models.OrderStatus, bool) {
	next, ok := forward[s]
	return next, ok
}

func IsTerminal(s models.OrderStatus) bool {
	return s == models.OrderStatusDelivered || s == models.OrderStatusCancelled
}

// CanCancel reports whether an order in status s has not shipped yet.
func CanCancel(s models.OrderStatus) bool {
	switch s {
	case models.OrderStatusPending, models.OrderStatusConfirmed, models.OrderStatusProcessing:
		return true
	}
	return false
}

// Advance moves o to its next status.
func Advance(o *models.Order, now time.Time) error {
	next, ok := NextStatus(o.Status)
	if !ok {
		return models.NewDomainError(
			models.KindInvalidTransition,
			"order.invalid_transition",
			fmt.Sprintf("order %s cannot advance from %s", o.OrderNumber, o.Status),
			o.Status,
		)
	}
	o.Status = next
	o.UpdatedAt = now
	return nil
}

// Cancel stamps o as cancelled by actor. The order is left untouched on
// error.
func Cancel(o *models.Order, reason, actor string, now time.Time) error {
	if !CanCancel(o.Status) {
		return models.NewDomainError(
			models.KindNotCancellable,
			"order.not_cancellable",
			fmt.Sprintf("order %s is %s and can no longer be cancelled", o.OrderNumber, o.Status),
			o.Status,
		)
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return models.NewDomainError(models.KindMissingReason, "order.missing_reason", "a cancellation reason is required")
	}

	cancelledAt := now
	o.Status = models.OrderStatusCancelled
	o.CancelReason = reason
	o.CancelledAt = &cancelledAt
	o.CancelledBy = actor
	o.UpdatedAt = now
	return nil
}
