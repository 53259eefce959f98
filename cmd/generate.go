package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/caretide/provdir/internal/datagen"
	"github.com/caretide/provdir/internal/store"
)

var (
	generateCount int
	generateSeed  int64
	generateDirty float64
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Seed the directory with synthetic provider records",
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

		providers := datagen.Generate(datagen.Options{
			Count:      generateCount,
			Seed:       generateSeed,
			DirtyRatio: generateDirty,
		})

		// Postgres gets the COPY fast path; SQLite upserts row by row.
		if pg, ok := st.(*store.PostgresStore); ok {
			n, err := pg.BulkImportProviders(ctx, providers)
			if err != nil {
				return err
			}
			zap.L().Info("providers imported", zap.Int64("count", n))
			return nil
		}

		for _, p := range providers {
			if err := st.UpsertProvider(ctx, p); err != nil {
				return err
			}
		}
		zap.L().Info("providers imported", zap.Int("count", len(providers)))
		return nil
	},
}

func init() {
	generateCmd.Flags().IntVar(&generateCount, "count", 100, "number of records to generate")
	generateCmd.Flags().Int64Var(&generateSeed, "seed", 1, "random seed")
	generateCmd.Flags().Float64Var(&generateDirty, "dirty", 0.3, "fraction of records with degraded contact data")
	rootCmd.AddCommand(generateCmd)
}
