package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"hronboard/audit"
	"hronboard/auth"
	"hronboard/config"
	"hronboard/db"
	"hronboard/employee"
	"hronboard/escalation"
	"hronboard/httpapi"
	"hronboard/notify"
	"hronboard/offer"
	"hronboard/payroll"
	"hronboard/policy"
	"hronboard/reminder"
	"hronboard/validation"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "hronboard",
		Short:         "Offer and onboarding lifecycle engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")

	root.AddCommand(serveCmd(), sweepCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the reminder scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer app.pool.Close()

			server := &http.Server{
				Addr:    app.cfg.HTTPAddr,
				Handler: app.api.Handler(),
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				app.log.Info("http server listening", "addr", app.cfg.HTTPAddr)
				if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				err := app.scheduler.Run(gctx)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			})

			return g.Wait()
		},
	}
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run a single expiry and reminder sweep, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer app.pool.Close()

			sent, err := app.scheduler.Sweep(ctx, time.Now())
			if err != nil {
				return err
			}
			app.log.Info("sweep finished", "reminders_sent", sent)
			return nil
		},
	}
}

type app struct {
	cfg       config.Config
	log       *slog.Logger
	pool      *pgxpool.Pool
	api       *httpapi.Server
	scheduler *reminder.Scheduler
}

func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	offerRepo := offer.NewRepository(pool)
	employeeRepo := employee.NewRepository(pool)
	auditRec := audit.NewRecorder(pool)
	escalationRepo := escalation.NewRepository(pool)
	reminderRepo := reminder.NewRepository(pool)

	coordinator := validation.NewCoordinator(
		offerRepo,
		validation.NewRepository(pool),
		policy.NewChecker(),
		payroll.NewCalculator(),
		cfg.ValidationTimeout,
	)

	offerSvc := offer.NewService(pool, offerRepo, employeeRepo, auditRec, cfg.OfferExpiryWindow).
		WithValidator(coordinator).
		WithEscalations(escalationRepo)

	directory := func(ctx context.Context, employeeID string) (notify.Recipient, error) {
		rec, err := employeeRepo.GetByID(ctx, employeeID)
		if err != nil {
			return notify.Recipient{}, err
		}
		return notify.Recipient{
			EmployeeID:  rec.ID,
			FullName:    rec.FullName,
			Email:       rec.Email,
			ChatID:      rec.ChatID,
			MessengerID: rec.MessengerID,
		}, nil
	}
	dispatcher := notify.NewDispatcher(directory, cfg.Channels,
		notify.NewLogSender("email", log),
		notify.NewLogSender("chatbot", log),
		notify.NewLogSender("messenger", log),
		notify.NewInAppSender(pool),
	)

	scheduler := reminder.NewScheduler(
		offerRepo,
		offerSvc,
		reminderRepo,
		dispatcher,
		auditRec,
		cfg.EscalationThresholds,
		cfg.SweepInterval,
		cfg.DefaultChannel,
		log,
	)

	authSvc := auth.NewService(auth.NewRepository(pool), cfg.JWTSecret)
	api := httpapi.NewServer(
		offerSvc,
		offerRepo,
		scheduler,
		escalation.NewService(escalationRepo),
		authSvc,
		auditRec,
		log,
	)

	return &app{cfg: cfg, log: log, pool: pool, api: api, scheduler: scheduler}, nil
}
