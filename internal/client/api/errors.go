package api

import (
	"errors"
	"fmt"

	"chairbook/internal/domain"
)

const (
	genericLimitMessage = "You already have the maximum number of upcoming appointments."
	genericRetryMessage = "Something went wrong. Please try again."
	conflictMessage     = "That time was just booked by someone else. Pick a different time."
	networkMessage      = "Could not reach the server. Check your connection and try again."
)

// ConflictError means the slot was taken between preview and submission.
// Retry with a different time.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return conflictMessage
}

// LimitExceededError means the client already holds the maximum number of
// upcoming confirmed appointments. Resubmitting the same input will not help.
type LimitExceededError struct {
	Code    string
	Message string
}

func (e *LimitExceededError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return genericLimitMessage
}

// CancellationWindowError is a cancellation the server refused, carrying
// CANNOT_CANCEL_WITHIN_24H or ONLY_CONFIRMED_CAN_BE_CANCELED.
type CancellationWindowError struct {
	Code    string
	Message string
}

func (e *CancellationWindowError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	switch e.Code {
	case domain.CodeOnlyConfirmedCanBeCanceled:
		return "Only confirmed appointments can be canceled."
	default:
		return "Appointments can only be canceled more than 24 hours in advance."
	}
}

// TransitionConflictError is a status change the server refused because the
// appointment moved on or its time is no longer free.
type TransitionConflictError struct {
	Code    string
	Message string
}

func (e *TransitionConflictError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code == domain.CodeSlotTaken {
		return conflictMessage
	}
	return "The appointment was changed by someone else. Refresh and try again."
}

// GenericServerError covers every other non-2xx response.
type GenericServerError struct {
	Status  int
	Code    string
	Message string
}

func (e *GenericServerError) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Code != "":
		return e.Code
	default:
		return genericRetryMessage
	}
}

// NetworkError wraps a failure to get any response at all.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("network: %v", e.Err) }

func (e *NetworkError) Unwrap() error { return e.Err }

// AlertMessage renders err as the single message shown to the user.
func AlertMessage(err error) string {
	if err == nil {
		return ""
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return networkMessage
	}
	var (
		conflict   *ConflictError
		limit      *LimitExceededError
		cancel     *CancellationWindowError
		transition *TransitionConflictError
		generic    *GenericServerError
	)
	switch {
	case errors.As(err, &conflict):
		return conflict.Error()
	case errors.As(err, &limit):
		return limit.Error()
	case errors.As(err, &cancel):
		return cancel.Error()
	case errors.As(err, &transition):
		return transition.Error()
	case errors.As(err, &generic):
		return generic.Error()
	}
	return err.Error()
}
