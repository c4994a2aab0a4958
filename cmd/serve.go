package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/tariff-cli/internal/model"
	"github.com/sells-group/tariff-cli/internal/pipeline"
	"github.com/sells-group/tariff-cli/internal/session"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the classification HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initPipeline(ctx, cfg)
		if err != nil {
			return err
		}
		defer e.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/classify", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Product string `json:"product"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
				return
			}
			if req.Product == "" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "product is required"})
				return
			}

			outcome, err := e.Pipeline.Run(r.Context(), req.Product, nil)
			if err != nil {
				zap.L().Error("serve: classification failed",
					zap.String("product", req.Product),
					zap.Error(err),
				)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "classification failed"})
				return
			}
			writeJSON(w, http.StatusOK, outcome)
		})

		r.Post("/classify/{sessionID}/continue", func(w http.ResponseWriter, r *http.Request) {
			sessionID := chi.URLParam(r, "sessionID")

			var req struct {
				Answers []model.ClarificationAnswer `json:"answers"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
				return
			}

			outcome, err := e.Pipeline.Continue(r.Context(), sessionID, req.Answers, nil)
			if err != nil {
				if eris.Is(err, session.ErrNotFound) {
					writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
					return
				}
				zap.L().Error("serve: continuation failed",
					zap.String("session_id", sessionID),
					zap.Error(err),
				)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "continuation failed"})
				return
			}
			writeJSON(w, http.StatusOK, outcome)
		})

		r.Get("/classify/stream", func(w http.ResponseWriter, r *http.Request) {
			flusher, ok := w.(http.Flusher)
			if !ok {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
				return
			}

			product := r.URL.Query().Get("product")
			sessionID := r.URL.Query().Get("session")
			if product == "" && sessionID == "" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "product or session is required"})
				return
			}

			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Connection", "keep-alive")

			em := pipeline.EmitterFunc(func(ev model.StreamEvent) {
				writeSSE(w, ev)
				flusher.Flush()
			})

			var err error
			if sessionID != "" {
				var answers []model.ClarificationAnswer
				answers, err = parseAnswers(r.URL.Query()["answer"])
				if err == nil {
					_, err = e.Pipeline.Continue(r.Context(), sessionID, answers, em)
				}
			} else {
				_, err = e.Pipeline.Run(r.Context(), product, em)
			}
			if err != nil {
				writeSSE(w, model.StreamEvent{
					Type: model.EventComplete,
					Data: map[string]string{"error": err.Error()},
				})
			}

			fmt.Fprint(w, "data: [DONE]\n\n")
			flusher.Flush()
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "serve: listen")
		}

		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("serve: write response", zap.Error(err))
	}
}

// writeSSE frames a stream event as a named server-sent event.
func writeSSE(w http.ResponseWriter, ev model.StreamEvent) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		zap.L().Warn("serve: marshal event", zap.String("type", string(ev.Type)), zap.Error(err))
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
