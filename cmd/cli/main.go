package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fleet-tools/work-ledger/pkg/export/xlsx"
	"github.com/fleet-tools/work-ledger/pkg/models/domain"
	reportsvc "github.com/fleet-tools/work-ledger/pkg/services/report"
	templatesvc "github.com/fleet-tools/work-ledger/pkg/services/template"
	"github.com/fleet-tools/work-ledger/pkg/store/sqldb"
	reportstore "github.com/fleet-tools/work-ledger/pkg/store/sqldb/report"
	templatestore "github.com/fleet-tools/work-ledger/pkg/store/sqldb/template"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	dbDriver   string
	dbDSN      string
	templateID string
	reportType string
	outPath    string
)

// A headless export runner: execute a saved template (or a report type's
// default configuration) and write the spreadsheet to disk.
func main() {
	rootCmd := &cobra.Command{
		Use:   "ledger-export",
		Short: "Export a work ledger report to an .xlsx file",
		RunE:  runExport,
	}

	rootCmd.Flags().StringVar(&dbDriver, "driver", "sqlite", "Database driver (sqlite or postgres)")
	rootCmd.Flags().StringVar(&dbDSN, "dsn", "work-ledger.db", "Database DSN")
	rootCmd.Flags().StringVar(&templateID, "template", "", "Template id to run")
	rootCmd.Flags().StringVar(&reportType, "type", "work", "Report type when no template is given")
	rootCmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (defaults to a report-type slug)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runExport(cmd *cobra.Command, _ []string) error {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	db, dialect, err := sqldb.NewDB(sqldb.Settings{Driver: dbDriver, DSN: dbDSN})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	registry := reportsvc.NewRegistry()
	executor, err := reportstore.NewStore(db, dialect, registry)
	if err != nil {
		return err
	}

	var cfg domain.ReportConfig
	templateName := ""
	if templateID != "" {
		tplStore, err := templatestore.NewStore(db, dialect)
		if err != nil {
			return err
		}
		templates := templatesvc.NewService(tplStore, registry, templatesvc.DriftWarn)
		tpl, dropped, err := templates.Load(ctx, templateID)
		if err != nil {
			return fmt.Errorf("failed to load template: %w", err)
		}
		if len(dropped) > 0 {
			logger.Warn().Interface("dropped_columns", dropped).Msg("template columns no longer exist")
		}
		cfg = tpl.Config
		templateName = tpl.Name
	} else {
		cfg, err = reportsvc.Default(registry, domain.ReportType(reportType))
		if err != nil {
			return err
		}
	}

	rows, err := executor.Execute(ctx, cfg)
	if err != nil {
		return fmt.Errorf("report execution failed: %w", err)
	}

	var cols []domain.ColumnDef
	for _, id := range cfg.Columns {
		if col, ok := registry.Column(id); ok {
			cols = append(cols, col)
		}
	}

	opts := xlsx.Options{}
	if summable := registry.SummableColumns(cfg); len(summable) > 0 {
		opts.IncludeSummary = true
		opts.Summary = reportsvc.Summarize(rows, summable)
	}

	data, err := xlsx.Render(cols, rows, opts)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	path := outPath
	if path == "" {
		path = xlsx.Filename(cfg.ReportType, templateName, time.Now().UTC())
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	logger.Info().Str("path", path).Int("rows", len(rows)).Msg("report exported")
	return nil
}
