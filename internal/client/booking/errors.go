package booking

import "errors"

// Field names a selection precondition, in the order Submit checks them.
type Field string

const (
	FieldAuthentication Field = "authentication"
	FieldActor          Field = "actor"
	FieldWorker         Field = "worker"
	FieldService        Field = "service"
	FieldDate           Field = "date"
	FieldTime           Field = "time"
)

var fieldMessages = map[Field]string{
	FieldAuthentication: "Please sign in before booking.",
	FieldActor:          "We could not identify your account. Sign in again.",
	FieldWorker:         "Choose who you would like to book with.",
	FieldService:        "Choose a service.",
	FieldDate:           "Choose a date.",
	FieldTime:           "Choose a time.",
}

// ValidationError is raised before any request is sent.
type ValidationError struct {
	Field Field
}

func (e *ValidationError) Error() string {
	if msg, ok := fieldMessages[e.Field]; ok {
		return msg
	}
	return "incomplete booking: " + string(e.Field)
}

var (
	ErrUnknownWorker    = errors.New("booking: unknown worker")
	ErrUnknownService   = errors.New("booking: unknown service")
	ErrSlotNotOffered   = errors.New("booking: time is not one of the available slots")
	ErrDateInPast       = errors.New("booking: date is in the past")
	ErrSubmitInProgress = errors.New("booking: a submission is already in progress")
)
