package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fra-atlas/platform/internal/adapters/archive"
	"github.com/fra-atlas/platform/internal/audit"
	claimapi "github.com/fra-atlas/platform/internal/claim/api"
	claimdomain "github.com/fra-atlas/platform/internal/claim/domain"
	claiminfra "github.com/fra-atlas/platform/internal/claim/infrastructure"
	"github.com/fra-atlas/platform/internal/legacy"
	legacyapi "github.com/fra-atlas/platform/internal/legacy/api"
	"github.com/fra-atlas/platform/internal/shared/auth"
	"github.com/fra-atlas/platform/internal/shared/config"
	"github.com/fra-atlas/platform/internal/shared/database"
	"github.com/fra-atlas/platform/internal/shared/events"
	"github.com/fra-atlas/platform/internal/shared/metrics"
	secmiddleware "github.com/fra-atlas/platform/internal/shared/middleware"
	"github.com/fra-atlas/platform/internal/shared/policy"
)

// App holds all application dependencies
type App struct {
	Config *config.Config
	DB     *database.DB
	Bus    *events.Bus
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	app := &App{Config: cfg}

	// Initialize database (optional - falls back to in-memory stores)
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		fmt.Printf("Warning: Database not available: %v\n", err)
		fmt.Println("Running with in-memory repositories...")
	} else {
		app.DB = db
		defer db.Close()

		if err := database.Migrate(ctx, db.Pool); err != nil {
			fmt.Printf("Warning: Migration failed: %v\n", err)
		}
	}

	// Initialize event bus with KurrentDB (optional)
	bus, err := events.NewBus(ctx, cfg.KurrentDB)
	if err != nil {
		fmt.Printf("Warning: KurrentDB not available: %v\n", err)
		fmt.Println("Running without event streaming...")
	} else {
		app.Bus = bus
		defer bus.Close()
		fmt.Println("KurrentDB event bus initialized")
	}

	// Audit trail - append-only hash chain, KurrentDB-backed when available
	var auditRepo audit.Repository
	if app.Bus != nil {
		auditRepo = audit.NewKurrentDBRepository(app.Bus.Client())
	} else {
		auditRepo = audit.NewMemoryRepository()
	}
	if err := auditRepo.Initialize(ctx); err != nil {
		fmt.Printf("Warning: Audit initialization failed: %v\n", err)
	}
	auditor := audit.NewService(auditRepo)

	// Access policy engine over the fixed role catalog
	engine := policy.NewEngine(policy.DefaultCatalog())

	// Claim module
	var claimRepo claimdomain.Repository
	if app.DB != nil {
		claimRepo = claiminfra.NewPostgresRepository(app.DB.Pool)
	} else {
		claimRepo = claiminfra.NewMemoryRepository()
	}
	claimService := claimdomain.NewService(engine, claimRepo, claimdomain.NewNumberGenerator(nil), auditor, nil)

	// Legacy digitization module
	var legacyRepo legacy.Repository
	if app.DB != nil {
		legacyRepo = legacy.NewPostgresRepository(app.DB.Pool)
	} else {
		legacyRepo = legacy.NewMemoryRepository()
	}
	workflow := legacy.NewWorkflow(engine, legacyRepo, claimService, auditor, nil)

	// Archive adapter - polls the state digitization centre job table
	var archiveAdapter *archive.MSSQLAdapter
	if cfg.Archive.Enabled {
		archiveAdapter = archive.NewMSSQLAdapter(cfg.Archive, workflow)
		if err := archiveAdapter.Start(ctx); err != nil {
			fmt.Printf("Warning: Archive adapter failed to start: %v\n", err)
			archiveAdapter = nil
		} else {
			fmt.Printf("Archive adapter connected (%s)\n", archiveAdapter.SourceSystem())
		}
	}

	rateLimiter := secmiddleware.NewIPRateLimiter(20, 40)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(rateLimiter.Middleware)
	r.Use(metrics.Middleware)
	r.Use(corsMiddleware)

	// Health checks (unauthenticated)
	r.Get("/health", healthHandler(app))
	r.Get("/ready", readyHandler(app, archiveAdapter))
	r.Handle("/metrics", metrics.Handler())

	// API info
	r.Get("/", infoHandler)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Auth))

		claimHandler := claimapi.NewHandler(claimService, app.Bus)
		r.Mount("/claims", claimHandler.Routes())

		legacyHandler := legacyapi.NewHandler(workflow)
		r.Mount("/legacy-records", legacyHandler.Routes())

		auditHandler := audit.NewHandler(auditRepo)
		r.Mount("/audit", auditHandler.Routes())
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		fmt.Println("\nShutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if archiveAdapter != nil {
			if err := archiveAdapter.Stop(ctx); err != nil {
				fmt.Printf("Archive adapter shutdown error: %v\n", err)
			}
		}

		if err := srv.Shutdown(ctx); err != nil {
			fmt.Printf("Server shutdown error: %v\n", err)
		}
		close(done)
	}()

	fmt.Println("============================================")
	fmt.Println("FRA Atlas - Forest Rights Claims Platform")
	fmt.Println("============================================")
	fmt.Printf("Environment:    %s\n", cfg.Server.Env)
	fmt.Printf("Server:         http://localhost:%d\n", cfg.Server.Port)
	fmt.Printf("API:            http://localhost:%d/api/v1\n", cfg.Server.Port)
	fmt.Printf("Health:         http://localhost:%d/health\n", cfg.Server.Port)
	fmt.Printf("KurrentDB:      %s:%d\n", cfg.KurrentDB.Host, cfg.KurrentDB.Port)
	fmt.Printf("Archive:        enabled=%v\n", cfg.Archive.Enabled)
	fmt.Println("============================================")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}

	<-done
	fmt.Println("Server stopped")
}

func infoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":    "FRA Atlas - Forest Rights Claims Platform",
		"version": "0.1.0",
		"docs":    "/api/v1",
	})
}

func healthHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
		})
	}
}

func readyHandler(app *App, adapter *archive.MSSQLAdapter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"server": "ready",
		}

		if app.DB != nil {
			if err := app.DB.Health(r.Context()); err != nil {
				checks["database"] = "not ready: " + err.Error()
			} else {
				checks["database"] = "ready"
			}
		} else {
			checks["database"] = "not configured"
		}

		if app.Bus != nil {
			if err := app.Bus.Health(); err != nil {
				checks["kurrentdb"] = "not ready: " + err.Error()
			} else {
				checks["kurrentdb"] = "ready"
			}
		} else {
			checks["kurrentdb"] = "not configured"
		}

		if adapter != nil {
			if err := adapter.Health(r.Context()); err != nil {
				checks["archive"] = "not ready: " + err.Error()
			} else {
				checks["archive"] = "ready"
			}
		} else {
			checks["archive"] = "not configured"
		}

		allReady := true
		for _, status := range checks {
			if status != "ready" && status != "not configured" {
				allReady = false
				break
			}
		}

		status := http.StatusOK
		if !allReady {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"status": map[bool]string{true: "ready", false: "not ready"}[allReady],
			"checks": checks,
		})
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
