package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/research-orchestrator/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start webhook server for research requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		mux := http.NewServeMux()

		mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		})

		mux.HandleFunc("GET /runs", func(w http.ResponseWriter, r *http.Request) {
			projects, err := e.tracker.List(r.Context(), 100)
			if err != nil {
				http.Error(w, `{"error":"list runs failed"}`, http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(projects)
		})

		mux.HandleFunc("POST /webhook/research", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Topic       string   `json:"topic"`
				Perspective string   `json:"perspective"`
				Questions   []string `json:"questions"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
				return
			}

			if len(req.Questions) == 0 {
				http.Error(w, `{"error":"questions are required"}`, http.StatusBadRequest)
				return
			}
			if req.Topic == "" {
				req.Topic = "webhook request"
			}

			questions := model.NewQuestions(req.Questions, req.Topic, req.Perspective)

			// Run research asynchronously
			go func() {
				batch, err := executeRun(ctx, e, req.Topic, req.Perspective, questions)
				if err != nil {
					zap.L().Error("webhook research failed",
						zap.String("topic", req.Topic),
						zap.Error(err),
					)
					return
				}
				zap.L().Info("webhook research complete",
					zap.String("topic", req.Topic),
					zap.Int("questions_answered", batch.SuccessfulQuestions()),
				)
			}()

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(map[string]any{
				"status":    "accepted",
				"topic":     req.Topic,
				"questions": len(req.Questions),
			})
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
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
