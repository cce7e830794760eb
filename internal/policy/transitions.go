package policy

import "chairbook/internal/domain"

var staffTransitions = map[domain.AppointmentStatus][]domain.AppointmentStatus{
	domain.StatusConfirmed: {domain.StatusCompleted, domain.StatusNoShow, domain.StatusCanceled},
}

// Terminal reports whether no staff transition leaves s.
func Terminal(s domain.AppointmentStatus) bool {
	return len(staffTransitions[s]) == 0
}

// Transitions lists the statuses a staff member may move an appointment to.
// Terminal statuses yield nil, so no action is ever offered for them.
func Transitions(from domain.AppointmentStatus) []domain.AppointmentStatus {
	next := staffTransitions[from]
	if len(next) == 0 {
		return nil
	}
	out := make([]domain.AppointmentStatus, len(next))
	copy(out, next)
	return out
}

func CanTransition(from, to domain.AppointmentStatus) bool {
	for _, s := range staffTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsReconfirmation reports a move back to confirmed from a settled status
// that does not occupy time. Only the server accepts it, and only after the
// slot is re-checked.
func IsReconfirmation(from, to domain.AppointmentStatus) bool {
	return to == domain.StatusConfirmed && (from == domain.StatusCanceled || from == domain.StatusNoShow)
}
