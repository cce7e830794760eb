package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"chairbook/internal/config"
	"chairbook/internal/events"
	"chairbook/internal/logx"
	"chairbook/internal/otelx"
	"chairbook/internal/service/appointments"
	"chairbook/internal/store/postgres"
	httptransport "chairbook/internal/transport/http"
)

const serviceName = "chairbook-server"

func main() {
	log := logx.New(os.Stdout, serviceName, "info")
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = logx.New(os.Stdout, serviceName, cfg.LogLevel)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting", slog.String("http_addr", cfg.HTTPAddr()), slog.String("log_level", cfg.LogLevel))

	shutdownTracing, err := otelx.Setup(ctx, otelx.Config{
		Enabled:     cfg.OTelEnabled,
		ServiceName: serviceName,
		Endpoint:    cfg.OTelEndpoint,
		SampleRatio: cfg.OTelSampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracer shutdown failed", slog.Any("err", err))
		}
	}()

	log.Info("connecting to database", logx.DatabaseArgs(cfg.DatabaseURL)...)
	db, err := postgres.OpenContext(ctx, cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		Traced:          cfg.OTelEnabled,
	})
	if err != nil {
		args := append([]any{slog.Any("err", err)}, logx.DatabaseArgs(cfg.DatabaseURL)...)
		log.Error("database connection failed", args...)
		return err
	}
	defer func() {
		if err := postgres.Close(db); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}()

	var publisher events.Publisher = events.Noop{}
	if cfg.KafkaBrokers != "" {
		kp := events.NewKafkaPublisher(events.KafkaConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic}, log)
		defer func() {
			if err := kp.Close(); err != nil {
				log.Warn("kafka writer close failed", slog.Any("err", err))
			}
		}()
		publisher = kp
	} else {
		log.Warn("event publishing disabled (no kafka brokers configured)")
	}

	var limiter httptransport.Limiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer func() { _ = rdb.Close() }()
		limiter = httptransport.NewRedisLimiter(rdb, cfg.BookingsPerMinute, time.Minute, "chairbook:rl:book")
	} else {
		limiter = httptransport.NewLocalLimiter(cfg.BookingsPerMinute)
	}

	svc := appointments.NewService(
		postgres.NewAppointmentRepo(db),
		postgres.NewCatalogRepo(db),
		publisher,
		appointments.Config{
			BusinessID:            cfg.BusinessID,
			Location:              cfg.BusinessLocation,
			DefaultOpen:           time.Duration(cfg.OpenHour) * time.Hour,
			DefaultClose:          time.Duration(cfg.CloseHour) * time.Hour,
			MaxConfirmedPerClient: cfg.MaxConfirmedPerClient,
			SlotStep:              cfg.SlotStep,
		},
		log,
	)

	router := httptransport.NewRouter(httptransport.Options{
		Service:        svc,
		Logger:         log,
		JWTSecret:      cfg.JWTSecret,
		BookingLimiter: limiter,
		Ready:          func(ctx context.Context) error { return postgres.Ping(ctx, db) },
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RequestTimeout: cfg.HTTPRequestTimeout,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           otelhttp.NewHandler(router, "chairbook.http"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server started", slog.String("http_addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down http server", slog.Duration("timeout", cfg.ShutdownTimeout))
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Warn("http graceful shutdown timed out; forcing close", slog.Any("err", err))
			return srv.Close()
		}
		log.Info("http server stopped")
		return nil
	})
	return g.Wait()
}
