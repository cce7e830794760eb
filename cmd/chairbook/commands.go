package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"chairbook/internal/client/booking"
	"chairbook/internal/client/myappointments"
	"chairbook/internal/client/staff"
	"chairbook/internal/domain"
)

func selectionFlags(fs *pflag.FlagSet) {
	fs.String("worker", "", "worker id (optional when there is only one)")
	fs.String("service", "", "service id")
	fs.String("date", "", "date as YYYY-MM-DD")
}

func bookFlags(fs *pflag.FlagSet) {
	selectionFlags(fs)
	fs.String("time", "", "start time as HH:MM in the business's time zone")
	fs.String("notes", "", "notes for the staff")
}

func mineFlags(fs *pflag.FlagSet) {
	fs.Bool("all", false, "include every status, not only confirmed")
	fs.Bool("include-past", false, "include appointments that already ended")
}

func dayFlags(fs *pflag.FlagSet) {
	fs.String("worker", "", "worker id")
	fs.String("date", "", "date as YYYY-MM-DD")
}

func runServices(ctx context.Context, e env, _ *pflag.FlagSet) error {
	rows, err := e.client.Services(ctx, e.cred)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tMINUTES\tPRICE")
	for _, s := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\n", s.ID, s.Name, s.DurationMinutes, s.Price)
	}
	return tw.Flush()
}

func runWorkers(ctx context.Context, e env, _ *pflag.FlagSet) error {
	rows, err := e.client.Workers(ctx, e.cred)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME")
	for _, w := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", w.ID, w.Name)
	}
	return tw.Flush()
}

// selectFlow walks the booking wizard up to the time step from flags.
func selectFlow(ctx context.Context, e env, fs *pflag.FlagSet) (*booking.Flow, error) {
	flow := booking.NewFlow(e.client, e.cred, e.log)
	if err := flow.Start(ctx); err != nil {
		return nil, err
	}
	if workerID, _ := fs.GetString("worker"); workerID != "" {
		if err := flow.SelectWorker(ctx, workerID); err != nil {
			return nil, err
		}
	}
	if serviceID, _ := fs.GetString("service"); serviceID != "" {
		if err := flow.SelectService(serviceID); err != nil {
			return nil, err
		}
	}
	rawDate, _ := fs.GetString("date")
	if rawDate == "" {
		return flow, nil
	}
	date, err := time.Parse(time.DateOnly, rawDate)
	if err != nil {
		return nil, fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}
	if err := flow.SelectDate(ctx, date); err != nil {
		return nil, err
	}
	return flow, nil
}

func runSlots(ctx context.Context, e env, fs *pflag.FlagSet) error {
	flow, err := selectFlow(ctx, e, fs)
	if err != nil {
		return err
	}
	if err := flow.Validate(); err != nil {
		var vErr *booking.ValidationError
		if !errors.As(err, &vErr) || vErr.Field != booking.FieldTime {
			return err
		}
	}
	if flow.Schedule().Closed {
		fmt.Fprintln(e.out, "closed")
		return nil
	}
	slots := flow.Slots()
	if len(slots) == 0 {
		fmt.Fprintln(e.out, "no free times")
		return nil
	}
	for _, s := range slots {
		fmt.Fprintln(e.out, s.Format("15:04"))
	}
	return nil
}

func runBook(ctx context.Context, e env, fs *pflag.FlagSet) error {
	flow, err := selectFlow(ctx, e, fs)
	if err != nil {
		return err
	}
	if notes, _ := fs.GetString("notes"); notes != "" {
		flow.SetNotes(notes)
	}
	if raw, _ := fs.GetString("time"); raw != "" && !flow.Selection().Date.IsZero() {
		sched := flow.Schedule()
		start, err := time.ParseInLocation("2006-01-02 15:04", sched.Date+" "+raw, sched.Open.Location())
		if err != nil {
			return fmt.Errorf("time must be HH:MM: %w", err)
		}
		if err := flow.SelectTime(start); err != nil {
			return err
		}
	}

	appt, err := flow.Submit(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "booked %s: %s with %s at %s\n",
		appt.ID, appt.Service.Name, appt.WorkerID, appt.StartTime.Format(time.RFC3339))
	return nil
}

func runMine(ctx context.Context, e env, fs *pflag.FlagSet) error {
	filter := myappointments.DefaultFilter
	if all, _ := fs.GetBool("all"); all {
		filter.Statuses = nil
	}
	filter.IncludePast, _ = fs.GetBool("include-past")

	list := myappointments.New(e.client, e.cred, filter, e.log)
	if err := list.Refresh(ctx); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTART\tSERVICE\tWORKER\tSTATUS\tCANCELABLE")
	for _, a := range list.Items() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\n",
			a.ID, a.StartTime.Format(time.RFC3339), a.Service.Name, a.WorkerID, a.Status, list.Cancelable(a))
	}
	return tw.Flush()
}

func runCancel(ctx context.Context, e env, fs *pflag.FlagSet) error {
	if fs.NArg() != 1 {
		return errors.New("usage: chairbook cancel <appointment-id>")
	}
	id, err := uuid.Parse(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("appointment id must be a UUID: %w", err)
	}
	list := myappointments.New(e.client, e.cred, myappointments.DefaultFilter, e.log)
	if err := list.Refresh(ctx); err != nil {
		return err
	}
	appt, err := list.Cancel(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "canceled %s\n", appt.ID)
	return nil
}

func loadBoard(ctx context.Context, e env, fs *pflag.FlagSet) (*staff.Board, error) {
	workerID, _ := fs.GetString("worker")
	rawDate, _ := fs.GetString("date")
	if workerID == "" || rawDate == "" {
		return nil, errors.New("--worker and --date are required")
	}
	date, err := time.Parse(time.DateOnly, rawDate)
	if err != nil {
		return nil, fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}
	board := staff.NewBoard(e.client, e.cred, e.log)
	if err := board.Load(ctx, date, workerID); err != nil {
		return nil, err
	}
	return board, nil
}

func runDay(ctx context.Context, e env, fs *pflag.FlagSet) error {
	board, err := loadBoard(ctx, e, fs)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTART\tEND\tSERVICE\tCLIENT\tSTATUS\tACTIONS")
	for _, a := range board.State().Appointments {
		actions := board.Actions(a)
		names := make([]string, 0, len(actions))
		for _, s := range actions {
			names = append(names, string(s))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			a.ID, a.StartTime.Format("15:04"), a.EndTime().Format("15:04"), a.Service.Name, a.ClientID, a.Status, strings.Join(names, ","))
	}
	return tw.Flush()
}

func runStatus(ctx context.Context, e env, fs *pflag.FlagSet) error {
	if fs.NArg() != 2 {
		return errors.New("usage: chairbook status <appointment-id> <status> --worker W --date D")
	}
	id, err := uuid.Parse(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("appointment id must be a UUID: %w", err)
	}
	to := domain.AppointmentStatus(fs.Arg(1))
	if !to.Valid() {
		return fmt.Errorf("unknown status %q", fs.Arg(1))
	}
	board, err := loadBoard(ctx, e, fs)
	if err != nil {
		return err
	}
	appt, err := board.Apply(ctx, id, to)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "%s is now %s\n", appt.ID, appt.Status)
	return nil
}
