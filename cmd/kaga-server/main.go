package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/tshakameya123/Kaga-Hospital/internal/config"
	"github.com/tshakameya123/Kaga-Hospital/internal/domain/billing"
	"github.com/tshakameya123/Kaga-Hospital/internal/domain/identity"
	"github.com/tshakameya123/Kaga-Hospital/internal/domain/scheduling"
	"github.com/tshakameya123/Kaga-Hospital/internal/platform/auth"
	"github.com/tshakameya123/Kaga-Hospital/internal/platform/db"
	"github.com/tshakameya123/Kaga-Hospital/internal/platform/events"
	"github.com/tshakameya123/Kaga-Hospital/internal/platform/jobs"
	"github.com/tshakameya123/Kaga-Hospital/internal/platform/middleware"
	"github.com/tshakameya123/Kaga-Hospital/internal/platform/notification"
	"github.com/tshakameya123/Kaga-Hospital/migrations"
)

const version = "1.0.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "kaga-server",
		Short: "Kaga Hospital appointment booking API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
				count, err := db.NewMigrator(pool, migrations.FS).Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Printf("Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
				statuses, err := db.NewMigrator(pool, migrations.FS).Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				fmt.Println("---------- ---------------------------------------- ---------- --------------------")
				for _, s := range statuses {
					status, appliedAt := "pending", ""
					if s.Applied {
						status = "applied"
						if s.AppliedAt != nil {
							appliedAt = s.AppliedAt.Format(time.RFC3339)
						}
					}
					fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
				}
				return nil
			})
		},
	}
	cmd.AddCommand(statusCmd)
	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load reference data",
	}

	doctorsCmd := &cobra.Command{
		Use:   "doctors",
		Short: "Create the hospital's doctors and their clinic days",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, _ := cmd.Flags().GetString("password")
			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				logger := newLogger(cfg.Env)
				app, err := newApp(cfg, pool, logger)
				if err != nil {
					return err
				}
				seeded, err := app.identity.SeedDoctors(ctx, password)
				if err != nil {
					return fmt.Errorf("seed doctors: %w", err)
				}
				created := 0
				for _, s := range seeded {
					if s.Created {
						created++
					}
				}
				schedules, err := app.scheduling.SeedSchedules(ctx, seeded)
				if err != nil {
					return fmt.Errorf("seed work schedules: %w", err)
				}
				fmt.Printf("Doctors: %d created, %d already present. Work schedules: %d created.\n",
					created, len(seeded)-created, schedules)
				return nil
			})
		},
	}
	doctorsCmd.Flags().String("password", identity.SeedPassword, "Password given to newly created doctor accounts")
	cmd.AddCommand(doctorsCmd)
	return cmd
}

// withPool loads config, opens the database and runs fn.
func withPool(fn func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, poolConfig(cfg))
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, cfg, pool)
}

func poolConfig(cfg *config.Config) db.PoolConfig {
	return db.PoolConfig{MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns, TimeZone: cfg.TimeZone}
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// app holds the wired services.
type app struct {
	tokens     *auth.TokenIssuer
	identity   *identity.Service
	scheduling *scheduling.Service
	billing    *billing.Service
	loc        *time.Location
}

func newApp(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) (*app, error) {
	return newAppWith(cfg, pool, events.NewLogPublisher(logger), nil, logger)
}

// newAppWith wires the services. revoked may be nil, which disables
// server-side logout.
func newAppWith(cfg *config.Config, pool *pgxpool.Pool, pub events.Publisher, revoked auth.Revocations, logger zerolog.Logger) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	tokens := auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.JWTTTL)
	if revoked != nil {
		tokens.WithRevocations(revoked)
	}

	identitySvc := identity.NewService(
		identity.NewUserRepoPG(pool), identity.NewPatientRepoPG(pool), identity.NewStaffRepoPG(pool),
		db.NewTxRunner(pool), identity.BcryptHasher{Cost: bcrypt.DefaultCost}, tokens, logger,
	)
	sms, email := notificationSenders(cfg, logger)
	notifier := notification.NewNotifier(pub, identitySvc, notification.NewTemplateEngine(), sms, email, logger)
	emitter := events.NewEmitter(notifier, logger)
	schedulingSvc := scheduling.NewService(
		scheduling.NewAvailabilityRepoPG(pool), scheduling.NewAppointmentRepoPG(pool), scheduling.NewNoteRepoPG(pool),
		identitySvc, emitter, loc, logger,
	)
	billingSvc := billing.NewService(billing.NewBookingRepoPG(pool), schedulingSvc, emitter, logger)

	return &app{tokens: tokens, identity: identitySvc, scheduling: schedulingSvc, billing: billingSvc, loc: loc}, nil
}

// notificationSenders picks the configured gateways, falling back to the log.
func notificationSenders(cfg *config.Config, logger zerolog.Logger) (sms, email notification.Sender) {
	sms = notification.NewLogSender(notification.ChannelSMS, logger)
	email = notification.NewLogSender(notification.ChannelEmail, logger)
	if cfg.TwilioAccountSID != "" {
		sms = notification.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFrom)
	}
	if cfg.SMTPHost != "" {
		email = notification.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	}
	return sms, email
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, poolConfig(cfg))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	var pub events.Publisher = events.NewLogPublisher(logger)
	var revoked auth.Revocations
	checkers := []db.Checker{db.PoolChecker(pool)}
	if cfg.RedisURL != "" {
		rdb, err := events.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()
		pub = events.NewRedisPublisher(rdb, logger)
		revoked = auth.NewRedisRevocations(rdb)
		checkers = append(checkers, db.CheckFunc{Label: "redis", Fn: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
		logger.Info().Msg("publishing events to redis")
	} else {
		mem := auth.NewMemoryRevocations()
		defer mem.Close()
		revoked = mem
	}

	a, err := newAppWith(cfg, pool, pub, revoked, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to wire services")
	}

	e := newEcho(cfg, logger)
	e.GET("/health/db", db.HealthHandler(pool, checkers...))
	api := e.Group("/api")
	api.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	identity.NewHandler(a.identity).RegisterRoutes(api)
	scheduling.NewHandler(a.scheduling).RegisterRoutes(api)
	billing.NewHandler(a.billing, a.identity).RegisterRoutes(api)

	jwtCfg := a.tokens.Config()
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(jwtCfg))
	} else {
		e.Use(auth.JWTMiddleware(jwtCfg))
	}
	e.Use(middleware.Audit(logger))

	var runner *jobs.Runner
	if cfg.JobsEnabled {
		runner = jobs.NewRunner(a.loc, logger)
		if err := runner.Every(cfg.ReminderInterval, jobs.NewReminderJob(a.scheduling, cfg.ReminderLead, cfg.ReminderInterval)); err != nil {
			logger.Fatal().Err(err).Msg("failed to schedule reminders")
		}
		if err := runner.Every(cfg.ReminderInterval, jobs.NewExpiryJob(a.scheduling, logger)); err != nil {
			logger.Fatal().Err(err).Msg("failed to schedule expiry")
		}
		runner.Start()
	}

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	if runner != nil {
		runner.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// newEcho builds the server with its global middleware and public routes.
func newEcho(cfg *config.Config, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.HTTPErrorHandler(logger)
	e.Validator = middleware.NewValidator()

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))

	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "Kaga Health Backend is running")
	})
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	return e
}
