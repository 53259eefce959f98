package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/caretide/provdir/internal/model"
	"github.com/caretide/provdir/internal/report"
)

var runCmd = &cobra.Command{
	Use:   "run <npi>",
	Short: "Validate a single provider record by NPI",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx, nil)
		if err != nil {
			return err
		}
		defer env.Close()

		p, err := env.Store.GetProviderByNPI(ctx, args[0])
		if err != nil {
			return err
		}
		if p == nil {
			return eris.Errorf("no provider with npi %s", args[0])
		}

		result, err := env.Orchestrator.Run(ctx, []model.Provider{*p})
		if err != nil {
			return err
		}
		if err := env.Store.SaveRun(ctx, result); err != nil {
			return err
		}

		return report.WriteJSON(os.Stdout, result)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
