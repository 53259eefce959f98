package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/caretide/provdir/internal/confidence"
	"github.com/caretide/provdir/internal/directory"
	"github.com/caretide/provdir/internal/enrich"
	"github.com/caretide/provdir/internal/model"
	"github.com/caretide/provdir/internal/notify"
	"github.com/caretide/provdir/internal/orchestrator"
	"github.com/caretide/provdir/internal/qa"
	"github.com/caretide/provdir/internal/scrape"
	"github.com/caretide/provdir/internal/source"
	"github.com/caretide/provdir/internal/store"
	"github.com/caretide/provdir/internal/validate"
	"github.com/caretide/provdir/pkg/npi"
	"github.com/caretide/provdir/pkg/places"
)

// pipelineEnv holds the initialized store, sources, and orchestrator
// shared by the run/batch/serve commands.
type pipelineEnv struct {
	Store        store.Store
	Orchestrator *orchestrator.Orchestrator
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initStore opens the configured database backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return store.NewSQLite(cfg.Store.DatabaseURL)
	}
}

// initPipeline sets up the store, the source clients, and the
// orchestrator. Callers should defer env.Close().
func initPipeline(ctx context.Context, progress orchestrator.Progress) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	scoringCfg := confidence.DefaultConfig()
	if cfg.Confidence.WeightsFile != "" {
		scoringCfg, err = confidence.LoadConfig(cfg.Confidence.WeightsFile)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
	}
	if err := scoringCfg.Validate(); err != nil {
		_ = st.Close()
		return nil, err
	}

	registryClient := npi.NewClient(npi.WithBaseURL(cfg.Registry.BaseURL))
	sources := []source.Capability{
		source.NewRegistrySource(registryClient, cfg.Sources),
	}

	if cfg.Places.Key != "" {
		placesClient := places.NewClient(cfg.Places.Key, places.WithBaseURL(cfg.Places.BaseURL))
		sources = append(sources, source.NewPlacesSource(placesClient, cfg.Sources))
		zap.L().Info("google places source enabled")
	} else {
		zap.L().Debug("PROVDIR_PLACES_KEY not set, google places source disabled")
	}

	scraper := scrape.NewScraper(cfg.Scrape.UserAgent, cfg.Scrape.MaxBodyBytes)
	sources = append(sources, source.NewWebsiteSource(scraper, cfg.Sources))

	o := orchestrator.New(
		validate.NewAgent(sources...),
		enrich.NewAgent(),
		qa.NewAgent(confidence.NewCalculator(scoringCfg)),
		directory.NewAgent(st, notify.NewWebhook(cfg.Notify)),
		orchestrator.WithMaxConcurrency(cfg.Pipeline.MaxConcurrency),
		orchestrator.WithProgress(progress),
	)

	return &pipelineEnv{Store: st, Orchestrator: o}, nil
}

// logProgress is the default progress callback for CLI runs.
func logProgress(done, total int, outcome model.RecordOutcome) {
	zap.L().Info("record complete",
		zap.Int("done", done),
		zap.Int("total", total),
		zap.String("npi", outcome.NPI),
		zap.Float64("score", outcome.Score),
		zap.String("disposition", string(outcome.Disposition)))
}
