package cli

import (
	"bytes"
	"fmt"
	"time"

	"fieldgate_backend/internal/adapters/storage"
	"fieldgate_backend/internal/exports"
	"fieldgate_backend/migrations"
	"fieldgate_backend/platform/config"
	"fieldgate_backend/platform/db"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const (
	dateLayout      = "2006-01-02"
	maxExportRows   = 50000
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// MigrateCmd applies pending database migrations.
func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			applied, err := db.RunMigrations(cmd.Context(), cfg, cfg.GetMigrationsDir(), migrations.FS)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(applied) == 0 {
				fmt.Fprintln(out, "database is up to date")
				return nil
			}
			for _, m := range applied {
				fmt.Fprintf(out, "%s %d %s\n", okMark.Sprint("applied"), m.Version, m.Source)
			}
			return nil
		},
	}
}

// ValidateCmd dry-runs the completion checks of a gate.
func ValidateCmd() *cobra.Command {
	var jobID string

	cmd := &cobra.Command{
		Use:   "validate <gate-id>",
		Short: "Dry-run the completion checks of a gate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gateID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid gate id: %w", err)
			}
			job, err := uuid.Parse(jobID)
			if err != nil {
				return fmt.Errorf("invalid job id: %w", err)
			}

			e, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			res, err := e.gateService().ValidateGate(cmd.Context(), gateID, job)
			if err != nil {
				return err
			}
			renderValidation(cmd.OutOrStdout(), res)
			if !res.IsValid {
				cmd.SilenceErrors = true
				return fmt.Errorf("gate %s is blocked", gateID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&jobID, "job", "", "job the gate belongs to")
	_ = cmd.MarkFlagRequired("job")
	return cmd
}

// FrequencyCmd reports how many gates of a job were skipped.
func FrequencyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "frequency <job-id>",
		Short: "Report exception frequency for a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid job id: %w", err)
			}

			e, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			report, err := e.gateService().CheckExceptionFrequency(cmd.Context(), jobID)
			if err != nil {
				return err
			}
			renderReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

// ExportCmd writes the exception audit workbook to a file or to the exports
// bucket.
func ExportCmd() *cobra.Command {
	var (
		fromRaw string
		toRaw   string
		outPath string
		upload  bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the gate exception audit as xlsx",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := parseRange(fromRaw, toRaw, time.Now())
			if err != nil {
				return err
			}
			if outPath == "" && !upload {
				outPath = fmt.Sprintf("gate-exceptions-%s-%s.xlsx", from.Format(dateLayout), to.AddDate(0, 0, -1).Format(dateLayout))
			}

			e, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			records, err := exports.NewRepository(e.pool).ListExceptions(cmd.Context(), from, to, maxExportRows)
			if err != nil {
				return err
			}
			f, err := exports.BuildExceptionWorkbook(records, e.cfg.GetExceptionReviewThreshold(), from, to.AddDate(0, 0, -1), time.Now())
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			out := cmd.OutOrStdout()
			if outPath != "" {
				if err := f.SaveAs(outPath); err != nil {
					return err
				}
				fmt.Fprintf(out, "%s %d exceptions to %s\n", okMark.Sprint("wrote"), len(records), outPath)
			}
			if !upload {
				return nil
			}

			buf, err := f.WriteToBuffer()
			if err != nil {
				return err
			}
			store, err := storage.NewMinIOService(e.cfg)
			if err != nil {
				return err
			}
			bucket := e.cfg.GetMinioBucketExports()
			if err := store.EnsureBucketExists(cmd.Context(), bucket); err != nil {
				return err
			}
			name := fmt.Sprintf("gate-exceptions-%s.xlsx", from.Format(dateLayout))
			key, err := store.UploadFile(cmd.Context(), bucket, "audits", name, xlsxContentType, bytes.NewReader(buf.Bytes()), int64(buf.Len()))
			if err != nil {
				return err
			}
			link, err := store.GenerateDownloadURL(cmd.Context(), bucket, key)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s %s\n%s\n", okMark.Sprint("uploaded"), key, link.URL)
			return nil
		},
	}

	cmd.Flags().StringVar(&fromRaw, "from", "", "first day to include (YYYY-MM-DD, default 30 days ago)")
	cmd.Flags().StringVar(&toRaw, "to", "", "last day to include (YYYY-MM-DD, default today)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the workbook to this path")
	cmd.Flags().BoolVar(&upload, "upload", false, "upload the workbook to the exports bucket")
	return cmd
}

// parseRange turns inclusive dates into a half-open UTC range.
func parseRange(fromRaw, toRaw string, now time.Time) (time.Time, time.Time, error) {
	to := now.UTC().Truncate(24*time.Hour).AddDate(0, 0, 1)
	if toRaw != "" {
		parsed, err := time.Parse(dateLayout, toRaw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to: %w", err)
		}
		to = parsed.AddDate(0, 0, 1)
	}
	from := to.AddDate(0, 0, -30)
	if fromRaw != "" {
		parsed, err := time.Parse(dateLayout, fromRaw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from: %w", err)
		}
		from = parsed
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("--from must not be after --to")
	}
	return from, to, nil
}

