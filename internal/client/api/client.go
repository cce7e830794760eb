// Package api is the REST client for the chairbook server. Failures come
// back as the typed errors in errors.go, chosen by status code and, for
// cancellations, by the error code in the body.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"chairbook/internal/domain"
	"chairbook/internal/wire"
)

// Credentials travel with every call instead of living in client state.
type Credentials struct {
	Token    string
	ClientID string
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New builds a client. A zero timeout leaves requests bounded only by ctx.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

// operation selects how a non-2xx response is classified.
type operation int

const (
	opRead operation = iota
	opBook
	opCancel
	opTransition
)

func (c *Client) Services(ctx context.Context, cred Credentials) ([]wire.Service, error) {
	var out []wire.Service
	if err := c.doJSON(ctx, cred, opRead, http.MethodGet, "/services", nil, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Workers(ctx context.Context, cred Credentials) ([]wire.Worker, error) {
	var out []wire.Worker
	if err := c.doJSON(ctx, cred, opRead, http.MethodGet, "/workers", nil, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DaySchedule(ctx context.Context, cred Credentials, date time.Time) (wire.DaySchedule, error) {
	var out wire.DaySchedule
	q := url.Values{"date": {date.Format(time.DateOnly)}}
	if err := c.doJSON(ctx, cred, opRead, http.MethodGet, "/schedule/day", q, nil, nil, &out); err != nil {
		return wire.DaySchedule{}, err
	}
	return out, nil
}

// ByDay returns every appointment of the worker on date, whatever its status.
func (c *Client) ByDay(ctx context.Context, cred Credentials, date time.Time, workerID string) ([]domain.Appointment, error) {
	var out []wire.Appointment
	q := url.Values{"date": {date.Format(time.DateOnly)}, "worker": {workerID}}
	if err := c.doJSON(ctx, cred, opRead, http.MethodGet, "/appointments/by-day", q, nil, nil, &out); err != nil {
		return nil, err
	}
	return toDomain(out), nil
}

func (c *Client) Availability(ctx context.Context, cred Credentials, workerID string, date time.Time, durationMinutes int) ([]time.Time, error) {
	var out wire.Availability
	q := url.Values{
		"date":            {date.Format(time.DateOnly)},
		"worker":          {workerID},
		"durationMinutes": {strconv.Itoa(durationMinutes)},
	}
	if err := c.doJSON(ctx, cred, opRead, http.MethodGet, "/appointments/availability", q, nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Slots, nil
}

// Book submits a reservation. idempotencyKey may be empty.
func (c *Client) Book(ctx context.Context, cred Credentials, req wire.CreateAppointmentRequest, idempotencyKey string) (domain.Appointment, error) {
	var headers http.Header
	if idempotencyKey != "" {
		headers = http.Header{wire.HeaderIdempotencyKey: {idempotencyKey}}
	}
	var out wire.Appointment
	if err := c.doJSON(ctx, cred, opBook, http.MethodPost, "/appointments", nil, headers, req, &out); err != nil {
		return domain.Appointment{}, err
	}
	c.logger.Info("appointment booked", slog.String("appointment_id", out.ID), slog.Time("start", out.Start))
	return out.Domain(), nil
}

func (c *Client) Cancel(ctx context.Context, cred Credentials, id uuid.UUID) (domain.Appointment, error) {
	var out wire.Appointment
	path := "/appointments/" + url.PathEscape(id.String()) + "/cancel"
	if err := c.doJSON(ctx, cred, opCancel, http.MethodPatch, path, nil, nil, nil, &out); err != nil {
		return domain.Appointment{}, err
	}
	c.logger.Info("appointment canceled", slog.String("appointment_id", out.ID))
	return out.Domain(), nil
}

func (c *Client) SetStatus(ctx context.Context, cred Credentials, id uuid.UUID, status domain.AppointmentStatus) (domain.Appointment, error) {
	var out wire.Appointment
	path := "/appointments/" + url.PathEscape(id.String()) + "/status"
	body := wire.StatusRequest{Status: string(status)}
	if err := c.doJSON(ctx, cred, opTransition, http.MethodPatch, path, nil, nil, body, &out); err != nil {
		return domain.Appointment{}, err
	}
	c.logger.Info("appointment status changed", slog.String("appointment_id", out.ID), slog.String("status", out.Status))
	return out.Domain(), nil
}

// Mine lists the authenticated client's appointments. Empty statuses means all.
func (c *Client) Mine(ctx context.Context, cred Credentials, statuses []domain.AppointmentStatus, includePast bool) ([]domain.Appointment, error) {
	q := url.Values{"includePast": {strconv.FormatBool(includePast)}}
	if len(statuses) > 0 {
		parts := make([]string, 0, len(statuses))
		for _, s := range statuses {
			parts = append(parts, string(s))
		}
		q.Set("statuses", strings.Join(parts, ","))
	}
	var out []wire.Appointment
	if err := c.doJSON(ctx, cred, opRead, http.MethodGet, "/appointments/my", q, nil, nil, &out); err != nil {
		return nil, err
	}
	return toDomain(out), nil
}

func (c *Client) doJSON(ctx context.Context, cred Credentials, op operation, method, path string, query url.Values, headers http.Header, in, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cred.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cred.Token)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	log := c.logger.With(slog.String("method", method), slog.String("path", path))
	log.Debug("api request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("api request failed", slog.Any("err", err))
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := classify(op, resp.StatusCode, readErrorBody(resp.Body))
		log.Warn("api request rejected", slog.Int("status", resp.StatusCode), slog.Any("err", apiErr))
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func readErrorBody(r io.Reader) wire.ErrorBody {
	var body wire.ErrorBody
	raw, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil || len(raw) == 0 {
		return body
	}
	_ = json.Unmarshal(raw, &body)
	return body
}

// classify picks the error type for a non-2xx response. Categories come from
// the status code and the machine code, never from message text.
func classify(op operation, status int, body wire.ErrorBody) error {
	switch op {
	case opBook:
		switch status {
		case http.StatusConflict:
			return &ConflictError{Message: body.Message}
		case http.StatusForbidden:
			return &LimitExceededError{Code: body.Error, Message: body.Message}
		}
	case opCancel:
		switch body.Error {
		case domain.CodeCannotCancelWithin24h, domain.CodeOnlyConfirmedCanBeCanceled:
			return &CancellationWindowError{Code: body.Error, Message: body.Message}
		}
	case opTransition:
		if status == http.StatusConflict {
			return &TransitionConflictError{Code: body.Error, Message: body.Message}
		}
	}
	return &GenericServerError{Status: status, Code: body.Error, Message: body.Message}
}

func toDomain(in []wire.Appointment) []domain.Appointment {
	out := make([]domain.Appointment, 0, len(in))
	for _, a := range in {
		out = append(out, a.Domain())
	}
	return out
}
