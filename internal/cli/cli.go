// Package cli implements gatectl, the operator tool for the gate engine.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"fieldgate_backend/internal/events"
	"fieldgate_backend/internal/gates"
	"fieldgate_backend/internal/gates/monitor"
	"fieldgate_backend/internal/gates/repository"
	"fieldgate_backend/internal/gates/service"
	"fieldgate_backend/internal/gates/validation"
	"fieldgate_backend/platform/config"
	"fieldgate_backend/platform/db"
	"fieldgate_backend/platform/logger"

	"github.com/fatih/color"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var (
	okMark   = color.New(color.FgGreen, color.Bold)
	failMark = color.New(color.FgRed, color.Bold)
	warnMark = color.New(color.FgYellow)
)

// RootCmd returns the gatectl command tree.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gatectl",
		Short: "Operate the job gate workflow engine",
		Long: `gatectl runs migrations, dry-runs gate validation, reports exception
frequency and exports the exception audit workbook.`,
		SilenceUsage: true,
	}

	root.AddCommand(MigrateCmd())
	root.AddCommand(ValidateCmd())
	root.AddCommand(FrequencyCmd())
	root.AddCommand(ExportCmd())
	return root
}

// env is what every database-backed command needs.
type env struct {
	cfg  *config.Config
	pool *pgxpool.Pool
	log  *logger.Logger
}

func connect(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return &env{cfg: cfg, pool: pool, log: logger.Discard()}, nil
}

func (e *env) close() {
	e.pool.Close()
}

// gateService builds a read-only engine. Object storage is not wired since
// the CLI never uploads photos.
func (e *env) gateService() *service.Service {
	return gates.NewService(repository.New(e.pool), nil, events.NewInMemoryBus(e.log), e.cfg, e.cfg.GetMinioBucketGatePhotos(), e.log)
}

func renderValidation(w io.Writer, res validation.Result) {
	if res.IsValid {
		fmt.Fprintf(w, "%s gate can be completed\n", okMark.Sprint("PASS"))
	} else {
		fmt.Fprintf(w, "%s gate is blocked\n", failMark.Sprint("BLOCKED"))
	}
	for _, msg := range res.Errors {
		fmt.Fprintf(w, "  %s %s\n", failMark.Sprint("error:"), msg)
	}
	for _, msg := range res.Warnings {
		fmt.Fprintf(w, "  %s %s\n", warnMark.Sprint("warning:"), msg)
	}
}

func renderReport(w io.Writer, report monitor.Report) {
	status := okMark.Sprint("ok")
	if report.NeedsReview {
		status = failMark.Sprint("needs review")
	}
	fmt.Fprintf(w, "exceptions: %d (threshold %d) %s\n", report.ExceptionCount, report.Threshold, status)
	if len(report.Stages) > 0 {
		names := make([]string, 0, len(report.Stages))
		for _, s := range report.Stages {
			names = append(names, string(s))
		}
		fmt.Fprintf(w, "skipped: %s\n", strings.Join(names, ", "))
	}
}
