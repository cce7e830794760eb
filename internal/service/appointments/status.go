package appointments

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"chairbook/internal/domain"
	"chairbook/internal/events"
	"chairbook/internal/policy"
	"chairbook/internal/store"
)

var ruleMessages = map[string]string{
	domain.CodeCannotCancelWithin24h:      "appointments can only be canceled more than 24 hours before they start",
	domain.CodeOnlyConfirmedCanBeCanceled: "only confirmed appointments can be canceled",
}

// Cancel cancels the actor's own appointment. Appointments owned by someone
// else are reported as not found.
func (s *Service) Cancel(ctx context.Context, actor Actor, appointmentID uuid.UUID) (domain.Appointment, error) {
	if actor.ID == "" {
		return domain.Appointment{}, validationError("client is required")
	}
	if appointmentID == uuid.Nil {
		return domain.Appointment{}, validationError("appointment id is required")
	}

	now := s.now().UTC()
	updated, err := s.repo.UpdateStatus(ctx, appointmentID, func(current domain.Appointment) (domain.AppointmentStatus, error) {
		if current.BusinessID != s.cfg.BusinessID || current.ClientID != actor.ID {
			return "", store.ErrNotFound
		}
		if d := policy.CanCancel(current, now); !d.Allowed {
			return "", &RuleError{Code: d.Code, msg: ruleMessages[d.Code]}
		}
		return domain.StatusCanceled, nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}

	s.logger.InfoContext(ctx, "appointment canceled", "appointment_id", updated.ID.String())
	s.publish(ctx, events.Canceled(updated, now))
	return updated, nil
}

// Transition applies a staff status change. Moving a canceled or no-show
// appointment back to confirmed re-checks the worker's calendar.
func (s *Service) Transition(ctx context.Context, actor Actor, appointmentID uuid.UUID, to domain.AppointmentStatus) (domain.Appointment, error) {
	if actor.Role != RoleStaff {
		return domain.Appointment{}, &ForbiddenError{msg: "only staff can change appointment status"}
	}
	if appointmentID == uuid.Nil {
		return domain.Appointment{}, validationError("appointment id is required")
	}
	if !to.Valid() {
		return domain.Appointment{}, validationError("invalid status")
	}

	var prev domain.AppointmentStatus
	updated, err := s.repo.UpdateStatus(ctx, appointmentID, func(current domain.Appointment) (domain.AppointmentStatus, error) {
		if current.BusinessID != s.cfg.BusinessID {
			return "", store.ErrNotFound
		}
		prev = current.Status
		if policy.CanTransition(current.Status, to) || policy.IsReconfirmation(current.Status, to) {
			return to, nil
		}
		return "", &RuleError{
			Code: domain.CodeInvalidStatusTransition,
			msg:  fmt.Sprintf("cannot change status from %s to %s", current.Status, to),
		}
	})
	if err != nil {
		return domain.Appointment{}, err
	}

	s.logger.InfoContext(ctx, "appointment status changed",
		"appointment_id", updated.ID.String(),
		"from", string(prev),
		"to", string(updated.Status),
	)
	s.publish(ctx, events.StatusChanged(updated, prev, s.now()))
	return updated, nil
}
