package server

import (
	"context"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hrishi-sarma/codeforedtech/internal/auth"
	"github.com/hrishi-sarma/codeforedtech/internal/clients/scoring"
	"github.com/hrishi-sarma/codeforedtech/internal/config"
	"github.com/hrishi-sarma/codeforedtech/internal/services"
	"github.com/hrishi-sarma/codeforedtech/internal/storage"
	"net/http"
	"time"
)

type scoringProber interface {
	Probe(ctx context.Context) []scoring.ProbeResult
}

type Dependencies struct {
	Auth         *auth.Service
	Applications *services.Applications
	Resumes      *services.Resumes
	Jobs         *services.Jobs
	Workflow     *services.Workflow
	Personal     *services.Personal
	Dashboards   *services.Dashboards
	Scoring      scoringProber
}

type Server struct {
	config        config.ServerConfig
	shortlistSize int
	deps          Dependencies
}

func New(cfg *config.Config, deps Dependencies) *Server {
	return &Server{config: cfg.Server, shortlistSize: cfg.Jobs.ShortlistSize, deps: deps}
}

// HTTPServer wraps the router in an http.Server. The write timeout leaves
// room for the longest allowed score wait.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.config.Address,
		Handler:           s.RegisterRoutes(),
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		IdleTimeout:       time.Minute,
		WriteTimeout:      s.config.MaxPollTimeout + 30*time.Second,
	}
}

func (s *Server) RegisterRoutes() http.Handler {
	if s.config.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestMetrics(), SafeHeader())

	if len(s.config.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     s.config.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
			AllowHeaders:     []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	v1.Use(Authenticate(s.deps.Auth), RateLimiter(s.config.RequestsPerSecond))
	{
		authRoute := v1.Group("/auth")
		{
			authRoute.POST("/signup", s.signUp)
			authRoute.POST("/signin", s.signIn)
			authRoute.POST("/signout", RequireAuth(), s.signOut)
			authRoute.GET("/me", RequireAuth(), s.me)
		}

		v1.GET("/jobs/recommended", s.recommendedJobs)

		needAuth := v1.Group("")
		needAuth.Use(RequireAuth())
		{
			needAuth.GET("/jobs/applied", s.appliedJobs)
			needAuth.GET("/jobs/:id", s.getJob)

			applications := needAuth.Group("/applications/:job_id")
			{
				applications.POST("", s.apply)
				applications.GET("", s.applicationStatus)
				applications.POST("/process", s.processApplication)
				applications.GET("/wait", s.waitForScore)
			}

			resume := needAuth.Group("/resume")
			{
				resume.POST("", SizeLimit(storage.ResumeSizeLimit), s.uploadResume)
				resume.GET("", s.downloadResume)
				resume.DELETE("", s.deleteResume)
			}

			needAuth.GET("/notes", s.listNotes)
			needAuth.POST("/notes", s.addNote)
			needAuth.DELETE("/notes/:id", s.removeNote)
			needAuth.GET("/updates", s.listUpdates)
			needAuth.PATCH("/updates/:id/read", s.markUpdateRead)
			needAuth.GET("/tasks", s.listTasks)
			needAuth.POST("/tasks", s.addTask)
			needAuth.PATCH("/tasks/:id/done", s.completeTask)

			needAuth.GET("/dashboard/student", s.studentDashboard)
		}

		admin := v1.Group("")
		admin.Use(RequireAuth(), RequireAdmin(s.deps.Auth))
		{
			admin.GET("/dashboard/admin", s.adminDashboard)

			jobs := admin.Group("/admin/jobs")
			{
				jobs.GET("", s.listJobs)
				jobs.POST("", SizeLimit(storage.JobDocumentSizeLimit), s.createJob)
				jobs.PATCH("/:id/status", s.setJobStatus)
				jobs.DELETE("/:id", s.deleteJob)
				jobs.GET("/:id/documents", s.listJobDocuments)
				jobs.POST("/:id/documents", SizeLimit(storage.JobDocumentSizeLimit), s.uploadJobDocument)
				jobs.POST("/:id/ingest", s.ingestJob)
				jobs.GET("/:id/analytics", s.jobAnalytics)
				jobs.GET("/:id/shortlist", s.shortlist)
			}
			admin.DELETE("/admin/documents/:id", s.deleteJobDocument)
			admin.POST("/admin/resync-counts", s.resyncCounts)
			admin.GET("/admin/scoring/health", s.scoringHealth)
		}
	}

	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) scoringHealth(c *gin.Context) {
	results := s.deps.Scoring.Probe(c.Request.Context())
	c.JSON(http.StatusOK, results)
}
