package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/missedcall/internal/stream"
	"github.com/sells-group/missedcall/internal/sweep"
)

// maxHoursBack caps the ?hours override at one week.
const maxHoursBack = 168

var servePort int

// pipelineFactory builds a fresh pipeline per request. hoursBack <= 0 means
// the configured window.
type pipelineFactory func(hoursBack int) *stream.Pipeline

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP trigger server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		if cfg.Classify.WatchOwners {
			if err := env.Owners.Watch(ctx); err != nil {
				zap.L().Warn("owners watcher disabled", zap.Error(err))
			}
		}

		if cfg.Sweep.Schedule != "" {
			sched, err := sweep.New(cfg.Sweep.Schedule, time.Duration(cfg.Sweep.TimeoutSecs)*time.Second, env.sweepPass)
			if err != nil {
				return err
			}
			if err := sched.Start(ctx); err != nil {
				return err
			}
			defer sched.Stop()
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(env.NewPipeline, time.Duration(cfg.Stream.HeartbeatSecs)*time.Second),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
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

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// newRouter wires the trigger endpoints. Cross-origin access is open: the
// endpoints are read-only triggers with no credentials of their own.
func newRouter(newPipeline pipelineFactory, heartbeat time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/check-numbers", func(w http.ResponseWriter, r *http.Request) {
		hours, err := parseHours(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		summary, err := newPipeline(hours).Collect(r.Context())
		if err != nil {
			zap.L().Warn("check-numbers run failed", zap.Error(err))
		}
		writeJSON(w, statusFor(summary.Error), summary)
	})

	r.Get("/check-numbers/stream", func(w http.ResponseWriter, r *http.Request) {
		hours, err := parseHours(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if _, ok := w.(http.Flusher); !ok {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		ctx := r.Context()
		runID := stream.NewRunID()
		sse := stream.NewSSEWriter(w)

		kaCtx, stopKeepAlive := context.WithCancel(ctx)
		kaDone := make(chan struct{})
		go func() {
			defer close(kaDone)
			sse.KeepAlive(kaCtx, heartbeat, runID)
		}()

		state, err := newPipeline(hours).Run(ctx, runID, sse)
		stopKeepAlive()
		<-kaDone

		if err != nil {
			zap.L().Info("stream run ended early",
				zap.String("run_id", runID),
				zap.String("state", string(state)),
				zap.Error(err),
			)
		}
	})

	return r
}

// statusFor maps a run's error code to the one-shot response status.
func statusFor(code string) int {
	switch code {
	case stream.ErrTokenUnavailable:
		return http.StatusBadRequest
	case stream.ErrIngestionFailed:
		return http.StatusBadGateway
	default:
		return http.StatusOK
	}
}

func parseHours(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("hours")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > maxHoursBack {
		return 0, eris.Errorf("hours must be an integer between 1 and %d", maxHoursBack)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("write response", zap.Error(err))
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
