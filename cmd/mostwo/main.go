// MOSTwo Core serves the machine and automation-event registry.
//
// The binary runs the HTTP API (serve), manages the database schema
// (migrate) and creates accounts (user create). Configuration is read
// from a YAML file with .env and MOSTWO_* environment overrides.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mostwo/mostwo-core/internal/api"
	"github.com/mostwo/mostwo-core/internal/audit"
	"github.com/mostwo/mostwo-core/internal/auth"
	"github.com/mostwo/mostwo-core/internal/event"
	"github.com/mostwo/mostwo-core/internal/infrastructure/config"
	"github.com/mostwo/mostwo-core/internal/infrastructure/database"
	"github.com/mostwo/mostwo-core/internal/infrastructure/influxdb"
	"github.com/mostwo/mostwo-core/internal/infrastructure/logging"
	"github.com/mostwo/mostwo-core/internal/infrastructure/mqtt"
	"github.com/mostwo/mostwo-core/internal/machine"
	_ "github.com/mostwo/mostwo-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath  = "configs/config.yaml"
	configEnvVar       = "MOSTWO_CONFIG"
	startupHealthLimit = 10 * time.Second
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "mostwo",
		Short:         "MOSTwo Core machine and event registry",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", getConfigPath(),
		"path to config.yaml (env "+configEnvVar+")")

	root.AddCommand(
		newServeCmd(&configPath),
		newMigrateCmd(&configPath),
		newUserCmd(&configPath),
	)
	return root
}

// getConfigPath returns the configuration file path.
// Uses MOSTWO_CONFIG if set, otherwise the default.
func getConfigPath() string {
	if path := os.Getenv(configEnvVar); path != "" {
		return path
	}
	return defaultConfigPath
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), *configPath)
		},
	}
}

// run is the server lifecycle, separated from the command for testability.
// Deferred closes run in reverse order on shutdown.
func run(ctx context.Context, configPath string) error {
	log := logging.Default()
	log.Info("starting MOSTwo Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath, "level", cfg.Logging.Level)

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	users := auth.NewUserRepository(db.DB)
	if _, err := auth.SeedSuperuser(ctx, users, cfg.Security.FirstSuperuser.Email,
		cfg.Security.FirstSuperuser.Password, log.Logger); err != nil {
		return fmt.Errorf("seeding first superuser: %w", err)
	}

	deps := api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log,
		DB:       db,
		Machines: machine.NewSQLiteRepository(db.DB),
		Events:   event.NewSQLiteRepository(db.DB),
		Users:    users,
		Audit:    audit.NewSQLiteRepository(db.DB),
		Version:  version,
	}

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
		mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"topic_prefix", mqttClient.Topics().Prefix(),
		)
		deps.MQTT = mqttClient
	} else {
		log.Info("MQTT disabled")
	}

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
		deps.Influx = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	srv, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")
	return nil
}

// healthCheck verifies every configured connection concurrently. Nil
// clients are disabled and skipped.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	ctx, cancel := context.WithTimeout(ctx, startupHealthLimit)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := db.HealthCheck(gctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
		return nil
	})
	if mqttClient != nil {
		g.Go(func() error {
			if err := mqttClient.HealthCheck(gctx); err != nil {
				return fmt.Errorf("mqtt: %w", err)
			}
			return nil
		})
	}
	if influxClient != nil {
		g.Go(func() error {
			if err := influxClient.HealthCheck(gctx); err != nil {
				return fmt.Errorf("influxdb: %w", err)
			}
			return nil
		})
	}
	return g.Wait()
}

func openDatabase(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// withDatabase loads config and opens the database for one-shot commands.
func withDatabase(ctx context.Context, configPath string, fn func(*database.DB) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

func newMigrateCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDatabase(cmd.Context(), *configPath, func(db *database.DB) error {
					_, pending, err := db.GetMigrationStatus(cmd.Context())
					if err != nil {
						return err
					}
					if err := db.Migrate(cmd.Context()); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", len(pending))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDatabase(cmd.Context(), *configPath, func(db *database.DB) error {
					m, err := db.MigrateDown(cmd.Context())
					if err != nil {
						return err
					}
					if m == nil {
						fmt.Fprintln(cmd.OutOrStdout(), "nothing to roll back")
						return nil
					}
					fmt.Fprintf(cmd.OutOrStdout(), "rolled back %s %s\n", m.Version, m.Name)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "List applied and pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDatabase(cmd.Context(), *configPath, func(db *database.DB) error {
					applied, pending, err := db.GetMigrationStatus(cmd.Context())
					if err != nil {
						return err
					}
					printMigrationStatus(cmd.OutOrStdout(), applied, pending)
					return nil
				})
			},
		},
	)
	return cmd
}

func printMigrationStatus(w io.Writer, applied []database.MigrationRecord, pending []database.Migration) {
	for _, m := range applied {
		fmt.Fprintf(w, "applied  %s  %s\n", m.Version, m.AppliedAt.Format(time.RFC3339))
	}
	for _, m := range pending {
		fmt.Fprintf(w, "pending  %s  %s\n", m.Version, m.Name)
	}
	if len(applied)+len(pending) == 0 {
		fmt.Fprintln(w, "no migrations")
	}
}

func newUserCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	var (
		email, password, fullName string
		superuser                 bool
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an active user account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := auth.ValidateRegistration(email, password, fullName); err != nil {
				return err
			}
			return withDatabase(cmd.Context(), *configPath, func(db *database.DB) error {
				if err := db.Migrate(cmd.Context()); err != nil {
					return fmt.Errorf("running migrations: %w", err)
				}
				user, err := createUser(cmd.Context(), auth.NewUserRepository(db.DB), email, password, fullName, superuser)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", user.Email, user.ID)
				return nil
			})
		},
	}
	create.Flags().StringVar(&email, "email", "", "login email address")
	create.Flags().StringVar(&password, "password", "", "password (at least 8 characters)")
	create.Flags().StringVar(&fullName, "full-name", "", "display name")
	create.Flags().BoolVar(&superuser, "superuser", false, "grant superuser rights")
	create.MarkFlagRequired("email")    //nolint:errcheck // flag exists
	create.MarkFlagRequired("password") //nolint:errcheck // flag exists

	cmd.AddCommand(create)
	return cmd
}

func createUser(ctx context.Context, users auth.UserRepository, email, password, fullName string, superuser bool) (*auth.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	user := &auth.User{
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		IsActive:     true,
		IsSuperuser:  superuser,
	}
	if err := users.Create(ctx, user); err != nil {
		if errors.Is(err, auth.ErrEmailExists) {
			return nil, fmt.Errorf("%s: %w", email, err)
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return user, nil
}
