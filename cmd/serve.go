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

	"github.com/sells-group/leadscout/internal/job"
	"github.com/sells-group/leadscout/internal/monitoring"
	"github.com/sells-group/leadscout/internal/resilience"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server for discovery jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		if cfg.Monitoring.WebhookURL != "" {
			checker := monitoring.NewChecker(
				env.Metrics,
				monitoring.NewAlerter(cfg.Monitoring),
				func() []string {
					var open []string
					for src, snap := range env.Aggregator.BreakerSnapshots() {
						if snap.State == resilience.CircuitOpen {
							open = append(open, src)
						}
					}
					return open
				},
				cfg.Monitoring,
			)
			go checker.Run(ctx)
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(ctx, env),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newRouter builds the API surface. Jobs run asynchronously against the
// server's base context so they survive the request lifetime but stop on
// shutdown.
func newRouter(ctx context.Context, env *env) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"pipeline": env.Metrics.Snapshot(),
			"breakers": env.Aggregator.BreakerSnapshots(),
		})
	})

	r.Post("/jobs", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Query       string `json:"query"`
			Location    string `json:"location"`
			TargetCount int    `json:"target_count"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if body.Query == "" || body.Location == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query and location are required"})
			return
		}
		if body.TargetCount <= 0 {
			body.TargetCount = 20
		}

		params := job.Params{
			Query:       body.Query,
			Location:    body.Location,
			TargetCount: body.TargetCount,
		}

		go func() {
			result, err := env.Runner.Run(ctx, params, nil)
			if err != nil {
				zap.L().Error("job failed",
					zap.String("query", params.Query),
					zap.String("location", params.Location),
					zap.Error(err),
				)
				return
			}
			found := 0
			for _, b := range result.Businesses {
				if b.Email != nil && b.Email.Found() {
					found++
				}
			}
			zap.L().Info("job complete",
				zap.String("query", params.Query),
				zap.String("location", params.Location),
				zap.Int("businesses", len(result.Businesses)),
				zap.Int("emails_found", found),
				zap.Duration("duration", result.Duration),
			)
		}()

		writeJSON(w, http.StatusAccepted, map[string]any{
			"status":   "accepted",
			"query":    params.Query,
			"location": params.Location,
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
