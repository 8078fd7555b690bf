package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/printdeck/studio/backend-go/internal/asset"
	"github.com/printdeck/studio/backend-go/internal/auth"
	"github.com/printdeck/studio/backend-go/internal/config"
	"github.com/printdeck/studio/backend-go/internal/document"
	"github.com/printdeck/studio/backend-go/internal/engine"
	"github.com/printdeck/studio/backend-go/internal/export"
	"github.com/printdeck/studio/backend-go/internal/live"
	mw "github.com/printdeck/studio/backend-go/internal/middleware"
	"github.com/printdeck/studio/backend-go/internal/render"
	"github.com/printdeck/studio/backend-go/internal/studio"
	"github.com/printdeck/studio/backend-go/internal/template"
)

const sweepInterval = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	renderer := render.New(render.WithMaxPixels(cfg.MaxRenderPixels))
	exporter := export.NewExporter(renderer, cfg.PDFRenderScale)

	assetStore, err := asset.NewStore(cfg.AssetDir)
	if err != nil {
		slog.Error("open asset store", "dir", cfg.AssetDir, "error", err)
		os.Exit(1)
	}
	library := asset.NewLibrary(asset.NewDecoder(), assetStore)

	var templates template.Store
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pg := template.NewPgStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			slog.Error("migrate database", "error", err)
			os.Exit(1)
		}
		templates = pg
	} else {
		slog.Warn("DATABASE_URL not set, templates are kept in memory")
		templates = template.NewMemoryStore()
	}

	if err := os.MkdirAll(cfg.ExportDir, 0o755); err != nil {
		slog.Error("create export dir", "dir", cfg.ExportDir, "error", err)
		os.Exit(1)
	}

	studioService := studio.NewService(studio.Config{
		Renderer:  renderer,
		Exporter:  exporter,
		Templates: templates,
		Assets:    assetStore,
		Archive:   export.DirSaver{Dir: cfg.ExportDir},
		EditorOpts: []engine.Option{
			engine.WithDecoder(library),
			engine.WithSink(templates),
			engine.WithHistoryLimit(cfg.HistoryLimit),
			engine.WithThumbnailSize(cfg.ThumbnailWidth, cfg.ThumbnailHeight),
		},
	})
	studioHandler := studio.NewHandler(studioService)

	hub := live.NewHub(studioService)
	go hub.Run()

	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := studioService.Sweep(); n > 0 {
					slog.Info("swept idle workspaces", "count", n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	authService := auth.NewService(cfg.JWTSecret, cfg.AuthRequired)
	authHandler := auth.NewHandler()

	assetHandler := asset.NewHandler(library)
	exportHandler := export.NewHandler(exporter, assetStore)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.CORSOrigins()))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	r.HandleFunc("/presets", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(document.Presets())
	}).Methods("GET")

	// Asset endpoints (public, stateless clients upload before exporting)
	r.HandleFunc("/assets/upload", assetHandler.Upload).Methods("POST", "OPTIONS")
	r.PathPrefix("/assets/").Handler(assetHandler.Serve()).Methods("GET")

	// One-shot export of a posted scene
	r.HandleFunc("/export", exportHandler.Export).Methods("POST", "OPTIONS")

	// Workspace API
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)
	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	studioHandler.Routes(api)

	// WebSocket endpoint, token passed as ?token=
	wsRouter := r.PathPrefix("/ws").Subrouter()
	wsRouter.Use(authService.AuthMiddleware)
	wsRouter.HandleFunc("/workspaces/{id}", hub.ServeWS(cfg.Origins()))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")
		hub.Stop()
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "auth_required", cfg.AuthRequired, "templates", fmt.Sprintf("%T", templates))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
