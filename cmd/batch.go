package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/caretide/provdir/internal/report"
)

var (
	batchLimit   int
	batchOffset  int
	batchJSONOut string
	batchXLSXOut string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Validate stored provider records as one run",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, logProgress)
		if err != nil {
			return err
		}
		defer env.Close()

		providers, err := env.Store.ListProviders(ctx, batchLimit, batchOffset)
		if err != nil {
			return err
		}
		if len(providers) == 0 {
			return eris.New("no providers to validate; run `provdir generate` or import records first")
		}

		result, err := env.Orchestrator.Run(ctx, providers)
		if err != nil {
			return err
		}
		if err := env.Store.SaveRun(ctx, result); err != nil {
			return err
		}

		if batchJSONOut != "" {
			f, err := os.Create(batchJSONOut)
			if err != nil {
				return eris.Wrapf(err, "create %s", batchJSONOut)
			}
			defer f.Close()
			if err := report.WriteJSON(f, result); err != nil {
				return err
			}
			zap.L().Info("json report written", zap.String("path", batchJSONOut))
		}
		if batchXLSXOut != "" {
			if err := report.WriteXLSX(batchXLSXOut, result); err != nil {
				return err
			}
			zap.L().Info("xlsx report written", zap.String("path", batchXLSXOut))
		}

		zap.L().Info("batch complete",
			zap.String("run_id", result.RunID),
			zap.Int("total", result.Total),
			zap.Int("auto_updated", result.AutoUpdated),
			zap.Int("needs_review", result.NeedsReview),
			zap.Int("urgent", result.Urgent))
		return nil
	},
}

func init() {
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max records to validate (0 = store default)")
	batchCmd.Flags().IntVar(&batchOffset, "offset", 0, "records to skip")
	batchCmd.Flags().StringVar(&batchJSONOut, "json", "", "write the run report to a JSON file")
	batchCmd.Flags().StringVar(&batchXLSXOut, "xlsx", "", "write the run report to an XLSX file")
	rootCmd.AddCommand(batchCmd)
}
