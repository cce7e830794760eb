// Package httptransport serves the booking REST API with gin.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chairbook/internal/domain"
	"chairbook/internal/service/appointments"
	"chairbook/internal/wire"
)

type appointmentsService interface {
	Book(ctx context.Context, in appointments.BookInput) (domain.Appointment, error)
	Cancel(ctx context.Context, actor appointments.Actor, appointmentID uuid.UUID) (domain.Appointment, error)
	Transition(ctx context.Context, actor appointments.Actor, appointmentID uuid.UUID, to domain.AppointmentStatus) (domain.Appointment, error)
	ListByDay(ctx context.Context, actor appointments.Actor, workerID, date string) ([]domain.Appointment, error)
	ListMine(ctx context.Context, actor appointments.Actor, filter appointments.MineFilter) ([]domain.Appointment, error)
	Availability(ctx context.Context, workerID, date string, durationMinutes int) ([]time.Time, error)
	DaySchedule(ctx context.Context, date string) (appointments.DaySchedule, error)
	Services(ctx context.Context) ([]domain.Service, error)
	Workers(ctx context.Context) ([]domain.Worker, error)
}

type Options struct {
	Service   appointmentsService
	Logger    *slog.Logger
	JWTSecret string
	// BookingLimiter throttles POST /appointments per client; nil disables it.
	BookingLimiter Limiter
	// Ready backs /readyz; nil always reports ready.
	Ready          func(ctx context.Context) error
	AllowedOrigins []string
	RequestTimeout time.Duration
}

type Server struct {
	svc     appointmentsService
	log     *slog.Logger
	secret  []byte
	limiter Limiter
	ready   func(ctx context.Context) error
}

func NewServer(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		svc:     opts.Service,
		log:     log.With(slog.String("component", "http.appointments")),
		secret:  []byte(opts.JWTSecret),
		limiter: opts.BookingLimiter,
		ready:   opts.Ready,
	}
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(opts Options) *gin.Engine {
	s := NewServer(opts)

	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(s.log))
	if opts.RequestTimeout > 0 {
		r.Use(requestTimeout(opts.RequestTimeout))
	}
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
			AllowHeaders:     []string{"Authorization", "Content-Type", wire.HeaderIdempotencyKey, wire.HeaderRequestID},
			ExposeHeaders:    []string{wire.HeaderRequestID},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/healthz", s.healthz)
	r.GET("/readyz", s.readyz)

	api := r.Group("")
	api.Use(s.authenticate())
	{
		api.GET("/services", s.listServices)
		api.GET("/workers", s.listWorkers)
		api.GET("/schedule/day", s.daySchedule)

		appts := api.Group("/appointments")
		appts.GET("/by-day", s.listByDay)
		appts.GET("/my", s.listMine)
		appts.GET("/availability", s.availability)
		appts.POST("", s.rateLimit(), s.createAppointment)
		appts.PATCH("/:id/cancel", s.cancelAppointment)
		appts.PATCH("/:id/status", requireRole(appointments.RoleStaff), s.updateStatus)
	}
	return r
}

func requestTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) readyz(c *gin.Context) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.log.Warn("not ready", slog.Any("err", err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
