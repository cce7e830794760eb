package domain

// Error codes carried in the `error` field of API error bodies. Clients
// branch on these codes, never on message text.
const (
	CodeValidation                 = "VALIDATION_ERROR"
	CodeSlotTaken                  = "SLOT_TAKEN"
	CodeMaxConfirmedReached        = "MAX_CONFIRMED_REACHED"
	CodeCannotCancelWithin24h      = "CANNOT_CANCEL_WITHIN_24H"
	CodeOnlyConfirmedCanBeCanceled = "ONLY_CONFIRMED_CAN_BE_CANCELED"
	CodeInvalidStatusTransition    = "INVALID_STATUS_TRANSITION"
	CodeIdempotencyKeyReused       = "IDEMPOTENCY_KEY_REUSED"
	CodeNotFound                   = "NOT_FOUND"
	CodeForbidden                  = "FORBIDDEN"
	CodeUnauthorized               = "UNAUTHORIZED"
	CodeRateLimited                = "RATE_LIMITED"
	CodeInternal                   = "INTERNAL"
)
