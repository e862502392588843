package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/billed/internal/api/handlers"
	"github.com/dvloznov/billed/internal/api/middleware"
	"github.com/dvloznov/billed/internal/app"
	"github.com/dvloznov/billed/internal/config"
	"github.com/dvloznov/billed/internal/jobs"
	"github.com/dvloznov/billed/internal/jobs/inmemory"
	"github.com/dvloznov/billed/internal/logger"
	"github.com/dvloznov/billed/internal/session"
	"github.com/dvloznov/billed/internal/views"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Flags override the loaded configuration.
	var (
		port       = flag.String("port", cfg.Server.Port, "HTTP server port")
		submitMode = flag.String("submit-mode", cfg.Server.SubmitMode, "how bills are stored on submit: sync or async")
		backend    = flag.String("store", cfg.Store.Backend, "bill store backend: memory, sqlite or bigquery")
	)
	flag.Parse()
	cfg.Server.Port = *port
	cfg.Server.SubmitMode = *submitMode
	cfg.Store.Backend = *backend

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if cfg.Session.Secret == "" {
		log.Fatal().Msg("session.secret is required (set BILLED_SESSION_SECRET)")
	}

	ctx := context.Background()

	backends, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open backends")
	}
	defer backends.Close()

	tokens := session.NewTokenService(cfg.Session.Secret, cfg.Session.TTL)

	// Initialize job infrastructure for async submissions
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore, inmemory.WithWorkers(cfg.Server.Workers))

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Int("workers", cfg.Server.Workers).Msg("Starting job worker")
	if err := jobQueue.Start(workerCtx, jobs.UpdateBillHandler(backends.Bills, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job worker")
	}

	// Initialize handlers
	billsHandler := handlers.NewBillsHandler(backends.Bills, jobQueue, handlers.Options{
		SubmitMode:  handlers.SubmitMode(cfg.Server.SubmitMode),
		ListTimeout: cfg.Server.ListTimeout,
	}, log)
	receiptsHandler := handlers.NewReceiptsHandler(backends.Receipts, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	auth := middleware.Auth(tokens)

	// Create router
	mux := http.NewServeMux()

	// Employee pages
	mux.Handle("/employee/bills", auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			billsHandler.BillsPage(w, r)
		} else {
			middleware.WriteErrorPage(w, http.StatusMethodNotAllowed, "Erreur 405")
		}
	})))

	mux.Handle("/employee/bill/new", auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			billsHandler.NewBillPage(w, r)
		case http.MethodPost:
			billsHandler.SubmitNewBill(w, r)
		default:
			middleware.WriteErrorPage(w, http.StatusMethodNotAllowed, "Erreur 405")
		}
	})))

	mux.Handle("/employee/bill/new/file", auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			billsHandler.UploadReceipt(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})))

	mux.Handle("/receipts/", auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteErrorPage(w, http.StatusMethodNotAllowed, "Erreur 405")
			return
		}
		receiptsHandler.ServeReceipt(w, r, strings.TrimPrefix(r.URL.Path, "/receipts/"))
	})))

	// Bills endpoints
	mux.Handle("/api/bills", auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			billsHandler.ListBills(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})))

	mux.Handle("/api/bills/", auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		billID := strings.TrimPrefix(r.URL.Path, "/api/bills/")
		if billID == "" || strings.Contains(billID, "/") {
			middleware.WriteError(w, http.StatusBadRequest, "Bill ID is required")
			return
		}
		switch r.Method {
		case http.MethodGet:
			billsHandler.GetBill(w, r, billID)
		case http.MethodPut:
			middleware.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				billsHandler.UpdateBill(w, r, billID)
			})).ServeHTTP(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})))

	// Jobs endpoints
	mux.Handle("/api/jobs", auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})))

	mux.Handle("/api/jobs/", auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
		if jobID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
			return
		}
		jobsHandler.GetJob(w, r, jobID)
	})))

	mux.HandleFunc("/health", handlers.Health)
	mux.Handle(views.StaticPath, views.StaticHandler())

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, handlers.BillsPath, http.StatusFound)
			return
		}
		middleware.Fail(w, r, http.StatusNotFound, "Erreur 404")
	})

	// Apply middleware
	handler := middleware.Chain(mux,
		middleware.Recovery(log),
		middleware.RequestID,
		middleware.Logger(log),
		middleware.CORS,
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("port", cfg.Server.Port).
			Str("submit_mode", cfg.Server.SubmitMode).
			Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
