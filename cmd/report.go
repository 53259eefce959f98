package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/caretide/provdir/internal/report"
)

var (
	reportJSONOut string
	reportXLSXOut string
)

var reportCmd = &cobra.Command{
	Use:   "report <run-id>",
	Short: "Export a saved run report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		result, err := st.GetRun(ctx, args[0])
		if err != nil {
			return err
		}

		if reportXLSXOut != "" {
			return report.WriteXLSX(reportXLSXOut, result)
		}
		if reportJSONOut != "" {
			f, err := os.Create(reportJSONOut)
			if err != nil {
				return eris.Wrapf(err, "create %s", reportJSONOut)
			}
			defer f.Close()
			return report.WriteJSON(f, result)
		}
		return report.WriteJSON(os.Stdout, result)
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List saved validation runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		runs, err := st.ListRuns(ctx, 0)
		if err != nil {
			return err
		}
		for i := range runs {
			// Trim per-record outcomes for the listing; `provdir report`
			// shows the full detail.
			runs[i].Outcomes = nil
		}
		return report.WriteJSONList(os.Stdout, runs)
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportJSONOut, "json", "", "write JSON to a file instead of stdout")
	reportCmd.Flags().StringVar(&reportXLSXOut, "xlsx", "", "write an XLSX workbook")
	rootCmd.AddCommand(reportCmd, runsCmd)
}
