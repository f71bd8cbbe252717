// Command api serves the Google Drive endpoints: folder browsing and analyses
// of spreadsheets stored in Drive.
package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/andresuchdata/stockcover/internal/app"
	"github.com/andresuchdata/stockcover/internal/config"
	"github.com/andresuchdata/stockcover/internal/drive"
	"github.com/andresuchdata/stockcover/pkg/logger"
	"github.com/gorilla/mux"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger.Setup(cfg.App.LogLevel, cfg.App.LogFormat)

	if cfg.Drive.CredentialsJSON == "" {
		logger.Log.Fatal().Msg("GOOGLE_DRIVE_CREDENTIALS_JSON is required")
	}

	application, err := app.New(context.Background(), cfg)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize services")
	}

	// Create router
	r := mux.NewRouter()

	// Register routes
	driveHandler := drive.NewHandler(application.Drive, application.Analysis)
	driveHandler.RegisterRoutes(r)

	// Health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.Log.Info().Str("addr", addr).Msg("Drive API starting")
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Log.Fatal().Err(err).Msg("Drive API stopped")
	}
}
