package main

import (
	"context"
	"errors"
	"github.com/asaskevich/EventBus"
	"github.com/hrishi-sarma/codeforedtech/internal/auth"
	"github.com/hrishi-sarma/codeforedtech/internal/clients/scoring"
	"github.com/hrishi-sarma/codeforedtech/internal/config"
	"github.com/hrishi-sarma/codeforedtech/internal/logger"
	"github.com/hrishi-sarma/codeforedtech/internal/metrics"
	"github.com/hrishi-sarma/codeforedtech/internal/repositories"
	"github.com/hrishi-sarma/codeforedtech/internal/server"
	"github.com/hrishi-sarma/codeforedtech/internal/services"
	"github.com/hrishi-sarma/codeforedtech/internal/storage"
	log "github.com/sirupsen/logrus"
	"net/http"
	"os/signal"
	"syscall"
)

func newBlobStore(ctx context.Context, cfg config.StorageConfig, dbContext *repositories.DbContext) (storage.BlobStore, func()) {
	if cfg.Backend == config.StorageGCS {
		store, err := storage.NewGCSStore(ctx, cfg.Buckets, cfg.CredentialsFile)
		if err != nil {
			log.Fatalf("can't create cloud storage client: %v", err)
		}
		return store, func() { _ = store.Close() }
	}
	return storage.NewDBStore(repositories.NewBlobsRepository(dbContext.DB)), func() {}
}

func newScoringClient(cfg config.ScoringConfig) *scoring.Client {
	client := scoring.NewClient(cfg.JobBaseURLs, cfg.ResumeBaseURLs)
	client.SetRateLimit(cfg.MaxRequestsPerSecond)
	client.SetTimeouts(cfg.ProbeTimeout, cfg.RequestTimeout)
	client.SetResolveCacheTTL(cfg.ResolveCacheTTL)
	return client
}

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Get()

	logger.Setup(ctx, cfg.Logger)
	defer logger.Cleanup()

	if cfg.Metrics.Enabled {
		metricsServer := metrics.StartMetricsServer(cfg.Metrics.Address)
		defer metricsServer.Close()
	}

	dbContext, err := repositories.NewDbContext(cfg.DB.ConnectionString, cfg.DB.LogQueries)
	if err != nil {
		log.Fatalf("can't create db context: %v", err)
	}
	defer dbContext.Close()

	err = dbContext.Migrate()
	if err != nil {
		log.Fatalf("can't migrate db context: %v", err)
	}

	blobs, closeBlobs := newBlobStore(ctx, cfg.Storage, dbContext)
	defer closeBlobs()

	jobs := repositories.NewJobsRepository(dbContext.DB)
	applications := repositories.NewApplicationsRepository(dbContext.DB)
	profiles := repositories.NewProfilesRepository(dbContext.DB)
	documents := repositories.NewDocumentsRepository(dbContext.DB)
	bus := EventBus.New()

	scoringClient := newScoringClient(cfg.Scoring)

	authService := auth.NewService(
		repositories.NewAccountsRepository(dbContext.DB),
		profiles,
		auth.NewTokens(cfg.Auth.SecretKey, cfg.Auth.Issuer, cfg.Auth.TokenTTL),
		auth.NewRevocationList(),
		cfg.Auth.AdminEmails,
		cfg.Auth.BcryptCost,
	)

	counts, err := services.NewCountSynchronizer(jobs, bus, cfg.Jobs.CountResyncSchedule)
	if err != nil {
		log.Fatalf("can't create count synchronizer: %v", err)
	}
	defer counts.Stop()

	personal := services.NewPersonal(
		repositories.NewNotesRepository(dbContext.DB),
		repositories.NewUpdatesRepository(dbContext.DB),
		repositories.NewTasksRepository(dbContext.DB),
		jobs,
	)
	if err := personal.SubscribeToApplications(bus); err != nil {
		log.Fatalf("can't subscribe personal updates: %v", err)
	}

	applicationService := services.NewApplications(jobs, applications, profiles, bus)

	httpServer := server.New(cfg, server.Dependencies{
		Auth:         authService,
		Applications: applicationService,
		Resumes:      services.NewResumes(profiles, blobs),
		Jobs:         services.NewJobs(jobs, applications, documents, blobs, authService, scoringClient, counts, bus),
		Workflow: services.NewWorkflow(applicationService, applications, scoringClient,
			cfg.Jobs.PollInterval, cfg.Jobs.PollTimeout),
		Personal:   personal,
		Dashboards: services.NewDashboards(applicationService, profiles, personal, jobs, applications, authService),
		Scoring:    scoringClient,
	}).HTTPServer()

	go func() {
		log.Infof("http server listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down services...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("http server shutdown: %v", err)
	}
	log.Info("Services stopped.")
}
