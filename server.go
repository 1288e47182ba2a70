package routebuilder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/transitmaps/routebuilder/internal/logging"
)

var server *http.Server

type healthResponse struct {
	Status     string `json:"status"`
	RouteCount int    `json:"routeCount"`
	Manifest   string `json:"manifest,omitempty"`
}

// StartServer serves the built output directory for a map client during
// development, plus a health endpoint reporting the manifest state.
func StartServer(port int, dataDir string, logger *slog.Logger) {
	router := httprouter.New()
	router.GET("/api/health", handleHealth(dataDir))
	router.ServeFiles("/data/*filepath", http.Dir(dataDir))

	addr := fmt.Sprintf(":%d", port)
	server = &http.Server{
		Addr:              addr,
		Handler:           requestLogger(router, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.LogError(logger, "server error", err)
			os.Exit(1)
		}
	}()
	logger.Info("server listening", slog.String("addr", addr), slog.String("data_dir", dataDir))
}

// HandleGracefulShutdown blocks until an interrupt signal, then drains the
// preview server.
func HandleGracefulShutdown(logger *slog.Logger) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if server != nil {
		if err := server.Shutdown(ctx); err != nil {
			logging.LogError(logger, "server shutdown error", err)
		} else {
			logger.Info("server shut down")
		}
	}
}

func handleHealth(dataDir string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/json")
		resp := healthResponse{Status: "ok"}

		manifestPath := filepath.Join(dataDir, "manifest.json")
		if b, err := os.ReadFile(manifestPath); err == nil {
			var manifest struct {
				RouteCount int `json:"routeCount"`
			}
			if json.Unmarshal(b, &manifest) == nil {
				resp.RouteCount = manifest.RouteCount
				resp.Manifest = manifestPath
			}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.LogHTTPRequest(logger, r.Method, r.URL.Path, rec.status,
			float64(time.Since(started).Microseconds())/1000)
	})
}
