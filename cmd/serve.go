package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/turnover-cli/internal/pipeline"
	"github.com/sells-group/turnover-cli/internal/tabular"
)

const outputFilename = "output_extracted.csv"

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP upload server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(env.Pipeline, cfg.Server.MaxUploadMB<<20),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// buildRouter returns the HTTP handler. p may be nil, in which case
// /process answers 503.
func buildRouter(p *pipeline.Pipeline, maxUploadBytes int64) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition", "X-Run-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/process", processHandler(p, maxUploadBytes))

	return r
}

// processHandler accepts a CSV or XLSX upload, either as the multipart
// field "file" or as the raw request body, and responds with the output CSV.
func processHandler(p *pipeline.Pipeline, maxUploadBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "pipeline not initialized"})
			return
		}

		if r.ContentLength > maxUploadBytes {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "upload too large"})
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		name, data, err := readUpload(r)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "upload too large"})
				return
			}
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		records, err := tabular.ReadBytes(name, data)
		if err != nil {
			msg := "could not parse the uploaded table"
			if eris.Is(err, tabular.ErrNotUTF8) {
				msg = "please upload a UTF-8 CSV file"
			}
			zap.L().Info("process: rejected upload", zap.String("file", name), zap.Error(err))
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
			return
		}

		res := p.Process(r.Context(), "upload:"+name, records)

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": outputFilename}))
		if res.RunID != "" {
			w.Header().Set("X-Run-ID", res.RunID)
		}
		w.WriteHeader(http.StatusOK)
		if err := tabular.WriteCSV(w, res.Records); err != nil {
			zap.L().Warn("process: write response", zap.Error(err))
		}
	}
}

// readUpload returns the uploaded file name and contents.
func readUpload(r *http.Request) (string, []byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return "", nil, eris.Wrap(err, "read request body")
		}
		return "upload.csv", data, nil
	}

	f, hdr, err := r.FormFile("file")
	if err != nil {
		return "", nil, eris.Wrap(err, "missing multipart field \"file\"")
	}
	defer f.Close() //nolint:errcheck

	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, eris.Wrap(err, "read uploaded file")
	}
	return filepath.Base(hdr.Filename), data, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
