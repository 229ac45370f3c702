package main

import (
	"fmt"
	"net"
	"os"

	"github.com/fleet-tools/work-ledger/pkg/config"
	reporthandler "github.com/fleet-tools/work-ledger/pkg/handlers/report"
	workhandler "github.com/fleet-tools/work-ledger/pkg/handlers/work"
	"github.com/fleet-tools/work-ledger/pkg/server"
	reportsvc "github.com/fleet-tools/work-ledger/pkg/services/report"
	templatesvc "github.com/fleet-tools/work-ledger/pkg/services/template"
	"github.com/fleet-tools/work-ledger/pkg/store/sqldb"
	reportstore "github.com/fleet-tools/work-ledger/pkg/store/sqldb/report"
	templatestore "github.com/fleet-tools/work-ledger/pkg/store/sqldb/template"
	workstore "github.com/fleet-tools/work-ledger/pkg/store/sqldb/work"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	seed    bool
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the Work Ledger API server",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "",
		"Path to the config file (defaults and WORKLEDGER_* env vars apply without one)")
	rootCmd.Flags().BoolVar(&seed, "seed", false,
		"Load demo data into an empty database")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, dialect, err := sqldb.NewDB(sqldb.Settings{Driver: cfg.DB.Driver, DSN: cfg.DB.DSN})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if seed {
		if err := sqldb.SeedDemoData(ctx, db, dialect); err != nil {
			return fmt.Errorf("failed to seed demo data: %w", err)
		}
		logger.Info().Msg("demo data loaded")
	}

	registry := reportsvc.NewRegistry()

	executor, err := reportstore.NewStore(db, dialect, registry)
	if err != nil {
		return fmt.Errorf("failed to create report store: %w", err)
	}
	tplStore, err := templatestore.NewStore(db, dialect)
	if err != nil {
		return fmt.Errorf("failed to create template store: %w", err)
	}
	wStore, err := workstore.NewStore(db, dialect)
	if err != nil {
		return fmt.Errorf("failed to create work store: %w", err)
	}

	drift, err := templatesvc.ParseDriftPolicy(cfg.Report.DriftPolicy)
	if err != nil {
		return fmt.Errorf("invalid report config: %w", err)
	}
	templates := templatesvc.NewService(tplStore, registry, drift)

	webAPI := server.NewWebAPI(logger, server.Config{
		Addr:            net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Dependencies: server.Dependencies{
			Reports: reporthandler.NewHandler(registry, executor, templates, cfg.Report.PreviewRowLimit),
			Work:    workhandler.NewHandler(wStore),
		},
	})

	logger.Info().
		Str("driver", cfg.DB.Driver).
		Str("drift_policy", string(drift)).
		Msg("work ledger configured")

	return webAPI.Start()
}
