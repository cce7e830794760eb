package httptransport

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chairbook/internal/domain"
	"chairbook/internal/service/appointments"
	"chairbook/internal/wire"
)

func (s *Server) routeLog(c *gin.Context) *slog.Logger {
	return s.log.With(
		slog.String("route", c.FullPath()),
		slog.String("actor_id", actorFrom(c).ID),
		slog.String("request_id", c.GetString(ctxRequestID)),
	)
}

func (s *Server) listByDay(c *gin.Context) {
	log := s.routeLog(c)
	rows, err := s.svc.ListByDay(c.Request.Context(), actorFrom(c), c.Query("worker"), c.Query("date"))
	if err != nil {
		s.writeError(c, log, err)
		return
	}
	log.Debug("appointments listed", slog.Int("count", len(rows)))
	c.JSON(http.StatusOK, wire.FromAppointments(rows))
}

func (s *Server) createAppointment(c *gin.Context) {
	log := s.routeLog(c)

	var req wire.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("invalid request", slog.String("reason", "malformed_body"), slog.Any("err", err))
		abort(c, http.StatusBadRequest, domain.CodeValidation, "request body must be a JSON appointment")
		return
	}

	appt, err := s.svc.Book(c.Request.Context(), appointments.BookInput{
		Actor:          actorFrom(c),
		ClientID:       req.Client,
		WorkerID:       req.Worker,
		ServiceID:      req.ServiceID,
		Service:        req.Service.Domain(),
		Start:          req.Start,
		Notes:          req.Notes,
		IdempotencyKey: c.GetHeader(wire.HeaderIdempotencyKey),
	})
	if err != nil {
		s.writeError(c, log.With(slog.String("worker_id", req.Worker), slog.Time("start", req.Start)), err)
		return
	}
	c.JSON(http.StatusCreated, wire.FromAppointment(appt))
}

func (s *Server) cancelAppointment(c *gin.Context) {
	log := s.routeLog(c)
	id, ok := s.appointmentID(c, log)
	if !ok {
		return
	}
	appt, err := s.svc.Cancel(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		s.writeError(c, log.With(slog.String("appointment_id", id.String())), err)
		return
	}
	c.JSON(http.StatusOK, wire.FromAppointment(appt))
}

func (s *Server) updateStatus(c *gin.Context) {
	log := s.routeLog(c)
	id, ok := s.appointmentID(c, log)
	if !ok {
		return
	}
	var req wire.StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, domain.CodeValidation, "request body must be {\"status\": ...}")
		return
	}
	appt, err := s.svc.Transition(c.Request.Context(), actorFrom(c), id, domain.AppointmentStatus(strings.TrimSpace(req.Status)))
	if err != nil {
		s.writeError(c, log.With(slog.String("appointment_id", id.String()), slog.String("to", req.Status)), err)
		return
	}
	c.JSON(http.StatusOK, wire.FromAppointment(appt))
}

func (s *Server) listMine(c *gin.Context) {
	log := s.routeLog(c)

	var filter appointments.MineFilter
	for _, raw := range strings.Split(c.Query("statuses"), ",") {
		if raw = strings.TrimSpace(raw); raw != "" {
			filter.Statuses = append(filter.Statuses, domain.AppointmentStatus(raw))
		}
	}
	if v := c.Query("includePast"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			abort(c, http.StatusBadRequest, domain.CodeValidation, "includePast must be true or false")
			return
		}
		filter.IncludePast = b
	}

	rows, err := s.svc.ListMine(c.Request.Context(), actorFrom(c), filter)
	if err != nil {
		s.writeError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, wire.FromAppointments(rows))
}

func (s *Server) availability(c *gin.Context) {
	log := s.routeLog(c)
	minutes, err := strconv.Atoi(c.Query("durationMinutes"))
	if err != nil {
		abort(c, http.StatusBadRequest, domain.CodeValidation, "durationMinutes must be an integer")
		return
	}
	slots, err := s.svc.Availability(c.Request.Context(), c.Query("worker"), c.Query("date"), minutes)
	if err != nil {
		s.writeError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, wire.Availability{
		Date:            c.Query("date"),
		Worker:          c.Query("worker"),
		DurationMinutes: minutes,
		Slots:           slots,
	})
}

func (s *Server) daySchedule(c *gin.Context) {
	log := s.routeLog(c)
	sched, err := s.svc.DaySchedule(c.Request.Context(), c.Query("date"))
	if err != nil {
		s.writeError(c, log, err)
		return
	}
	out := wire.DaySchedule{
		Date:            sched.Date,
		Closed:          sched.Closed,
		SlotStepMinutes: int(sched.SlotStep.Minutes()),
	}
	if !sched.Closed {
		out.Open = sched.Window.Start
		out.Close = sched.Window.End
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) listServices(c *gin.Context) {
	rows, err := s.svc.Services(c.Request.Context())
	if err != nil {
		s.writeError(c, s.routeLog(c), err)
		return
	}
	out := make([]wire.Service, 0, len(rows))
	for _, r := range rows {
		out = append(out, wire.FromService(r))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) listWorkers(c *gin.Context) {
	rows, err := s.svc.Workers(c.Request.Context())
	if err != nil {
		s.writeError(c, s.routeLog(c), err)
		return
	}
	out := make([]wire.Worker, 0, len(rows))
	for _, r := range rows {
		out = append(out, wire.FromWorker(r))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) appointmentID(c *gin.Context, log *slog.Logger) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"))
		abort(c, http.StatusBadRequest, domain.CodeValidation, "appointment id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
