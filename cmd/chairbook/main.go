package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/pflag"

	"chairbook/internal/client/api"
	"chairbook/internal/config"
	"chairbook/internal/logx"
)

const serviceName = "chairbook"

// env is what every subcommand runs with.
type env struct {
	cfg    config.ClientConfig
	client *api.Client
	cred   api.Credentials
	log    *slog.Logger
	out    io.Writer
}

type command struct {
	usage string
	flags func(fs *pflag.FlagSet)
	run   func(ctx context.Context, e env, fs *pflag.FlagSet) error
}

var commands = map[string]command{
	"services": {usage: "list services", run: runServices},
	"workers":  {usage: "list workers", run: runWorkers},
	"slots":    {usage: "show bookable times for a worker, service and date", flags: selectionFlags, run: runSlots},
	"book":     {usage: "book a time", flags: bookFlags, run: runBook},
	"mine":     {usage: "list your appointments", flags: mineFlags, run: runMine},
	"cancel":   {usage: "cancel one of your appointments: cancel <id>", run: runCancel},
	"day":      {usage: "staff: show a worker's day", flags: dayFlags, run: runDay},
	"status":   {usage: "staff: change an appointment's status: status <id> <status>", flags: dayFlags, run: runStatus},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintln(os.Stderr, api.AlertMessage(err))
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stderr)
		return pflag.ErrHelp
	}
	cmd, ok := commands[args[0]]
	if !ok {
		printUsage(stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}

	fs := pflag.NewFlagSet(args[0], pflag.ContinueOnError)
	fs.SetOutput(stderr)
	config.RegisterClientFlags(fs)
	if cmd.flags != nil {
		cmd.flags(fs)
	}
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	cfg, err := config.LoadClient(fs)
	if err != nil {
		return err
	}
	log := logx.New(stderr, serviceName, cfg.LogLevel)

	e := env{
		cfg:    cfg,
		client: api.New(cfg.BaseURL, cfg.Timeout, log),
		cred:   api.Credentials{Token: cfg.Token, ClientID: cfg.ClientID},
		log:    log,
		out:    stdout,
	}
	return cmd.run(ctx, e, fs)
}

func printUsage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "usage: chairbook <command> [flags]")
	for _, name := range names {
		fmt.Fprintf(w, "  %-9s %s\n", name, commands[name].usage)
	}
}
