package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/caretide/provdir/internal/model"
	"github.com/caretide/provdir/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for validation runs and ticket triage",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, nil)
		if err != nil {
			return err
		}
		defer env.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/runs", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				NPIs  []string `json:"npis"`
				Limit int      `json:"limit"`
			}
			if req.Body != nil && req.ContentLength != 0 {
				if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
					writeError(w, http.StatusBadRequest, "invalid request body")
					return
				}
			}

			providers, err := resolveProviders(req, env.Store, body.NPIs, body.Limit)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			if len(providers) == 0 {
				writeError(w, http.StatusNotFound, "no matching providers")
				return
			}

			// Run in the background; validation of a large batch outlives
			// any reasonable request deadline.
			go func() {
				result, err := env.Orchestrator.Run(ctx, providers)
				if err != nil {
					zap.L().Error("api run failed", zap.Error(err))
					return
				}
				if err := env.Store.SaveRun(ctx, result); err != nil {
					zap.L().Error("api run save failed",
						zap.String("run_id", result.RunID),
						zap.Error(err))
				}
			}()

			writeJSON(w, http.StatusAccepted, map[string]any{
				"status":  "accepted",
				"records": len(providers),
			})
		})

		r.Get("/runs", func(w http.ResponseWriter, req *http.Request) {
			runs, err := env.Store.ListRuns(req.Context(), 0)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, runs)
		})

		r.Get("/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
			run, err := env.Store.GetRun(req.Context(), chi.URLParam(req, "id"))
			if err != nil {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, run)
		})

		r.Get("/tickets", func(w http.ResponseWriter, req *http.Request) {
			filter := store.TicketFilter{
				Status:   model.TicketStatus(req.URL.Query().Get("status")),
				Priority: model.Priority(req.URL.Query().Get("priority")),
			}
			tickets, err := env.Store.ListTickets(req.Context(), filter)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, tickets)
		})

		r.Post("/tickets/{id}/resolve", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				ResolvedBy string `json:"resolved_by"`
				Notes      string `json:"notes"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			if body.ResolvedBy == "" {
				writeError(w, http.StatusBadRequest, "resolved_by is required")
				return
			}

			id := chi.URLParam(req, "id")
			if err := env.Store.ResolveTicket(req.Context(), id, body.ResolvedBy, body.Notes); err != nil {
				writeError(w, http.StatusConflict, err.Error())
				return
			}
			ticket, err := env.Store.GetTicket(req.Context(), id)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, ticket)
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			drainServer(srv)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// drainServer shuts the server down with a fresh deadline so in-flight
// requests get to finish even though the signal context is already
// cancelled.
func drainServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

// resolveProviders turns a run request into the record batch to process.
func resolveProviders(req *http.Request, st store.Store, npis []string, limit int) ([]model.Provider, error) {
	if len(npis) == 0 {
		return st.ListProviders(req.Context(), limit, 0)
	}
	providers := make([]model.Provider, 0, len(npis))
	for _, npi := range npis {
		p, err := st.GetProviderByNPI(req.Context(), npi)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, eris.Errorf("no provider with npi %s", npi)
		}
		providers = append(providers, *p)
	}
	return providers, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
