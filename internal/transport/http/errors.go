package httptransport

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"chairbook/internal/domain"
	"chairbook/internal/service/appointments"
	"chairbook/internal/store"
	"chairbook/internal/wire"
)

func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, wire.ErrorBody{Error: code, Message: msg})
}

// writeError maps service and store errors onto the status codes and
// machine codes clients branch on.
func (s *Server) writeError(c *gin.Context, log *slog.Logger, err error) {
	var vErr *appointments.ValidationError
	var rErr *appointments.RuleError
	var fErr *appointments.ForbiddenError

	switch {
	case errors.As(err, &vErr):
		log.Warn("invalid request", slog.Any("err", err))
		abort(c, http.StatusBadRequest, domain.CodeValidation, vErr.Error())
	case errors.As(err, &rErr):
		log.Info("request denied by policy", slog.String("code", rErr.Code))
		status := http.StatusBadRequest
		if rErr.Code == domain.CodeInvalidStatusTransition {
			status = http.StatusConflict
		}
		abort(c, status, rErr.Code, rErr.Error())
	case errors.As(err, &fErr):
		log.Info("forbidden", slog.Any("err", err))
		abort(c, http.StatusForbidden, domain.CodeForbidden, fErr.Error())
	case errors.Is(err, store.ErrConflict):
		log.Info("slot taken")
		abort(c, http.StatusConflict, domain.CodeSlotTaken, "That time was just booked by someone else. Pick a different time.")
	case errors.Is(err, store.ErrLimitReached):
		log.Info("confirmed appointment limit reached")
		abort(c, http.StatusForbidden, domain.CodeMaxConfirmedReached, "You already have the maximum number of upcoming appointments.")
	case errors.Is(err, store.ErrIdempotencyConflict):
		log.Info("idempotency key reused")
		abort(c, http.StatusUnprocessableEntity, domain.CodeIdempotencyKeyReused, "This request key was already used for a different appointment. Try again.")
	case errors.Is(err, store.ErrNotFound):
		abort(c, http.StatusNotFound, domain.CodeNotFound, "appointment not found")
	default:
		log.Error("request failed", slog.Any("err", err))
		abort(c, http.StatusInternalServerError, domain.CodeInternal, "internal error")
	}
}
