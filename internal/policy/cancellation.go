package policy

import (
	"time"

	"chairbook/internal/domain"
)

// CancellationWindow is the minimum lead time a client needs to cancel.
const CancellationWindow = 24 * time.Hour

// CancelDecision explains the outcome of CanCancel. Code is empty when the
// appointment may be canceled.
type CancelDecision struct {
	Allowed bool
	Code    string
}

// CanCancel applies the client cancellation rule: the appointment must be
// confirmed and start strictly more than CancellationWindow after now.
func CanCancel(a domain.Appointment, now time.Time) CancelDecision {
	if a.Status != domain.StatusConfirmed {
		return CancelDecision{Code: domain.CodeOnlyConfirmedCanBeCanceled}
	}
	if a.StartTime.Sub(now) <= CancellationWindow {
		return CancelDecision{Code: domain.CodeCannotCancelWithin24h}
	}
	return CancelDecision{Allowed: true}
}
