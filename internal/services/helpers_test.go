package services

import (
	"bytes"
	"context"
	"github.com/asaskevich/EventBus"
	"github.com/hrishi-sarma/codeforedtech/internal/auth"
	"github.com/hrishi-sarma/codeforedtech/internal/clients/scoring"
	"github.com/hrishi-sarma/codeforedtech/internal/entities"
	"github.com/hrishi-sarma/codeforedtech/internal/repositories"
	"github.com/hrishi-sarma/codeforedtech/internal/storage"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"io"
	"path/filepath"
	"testing"
	"time"
)

type testEnv struct {
	db           *repositories.DbContext
	jobs         *repositories.Jobs
	applications *repositories.Applications
	profiles     *repositories.Profiles
	documents    *repositories.Documents
	blobs        *flakyStore
	bus          EventBus.Bus
	scorer       *mockScorer

	applicationService *Applications
	resumeService      *Resumes
	jobService         *Jobs
	counts             *CountSynchronizer
	personal           *Personal
	workflow           *Workflow
	dashboards         *Dashboards
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dbCtx, err := repositories.NewDbContext(filepath.Join(t.TempDir(), "services.db"), false)
	require.NoError(t, err)
	require.NoError(t, dbCtx.Migrate())

	env := &testEnv{
		db:           dbCtx,
		jobs:         repositories.NewJobsRepository(dbCtx.DB),
		applications: repositories.NewApplicationsRepository(dbCtx.DB),
		profiles:     repositories.NewProfilesRepository(dbCtx.DB),
		documents:    repositories.NewDocumentsRepository(dbCtx.DB),
		blobs:        &flakyStore{BlobStore: storage.NewDBStore(repositories.NewBlobsRepository(dbCtx.DB))},
		bus:          EventBus.New(),
		scorer:       &mockScorer{},
	}
	admins := auth.NewService(repositories.NewAccountsRepository(dbCtx.DB), env.profiles,
		auth.NewTokens("services-test-secret-0123456789", "test", time.Hour), auth.NewRevocationList(), nil, bcrypt.MinCost)

	env.counts, err = NewCountSynchronizer(env.jobs, env.bus, "@every 1h")
	require.NoError(t, err)
	t.Cleanup(func() {
		env.counts.Stop()
		_ = dbCtx.Close()
	})

	env.applicationService = NewApplications(env.jobs, env.applications, env.profiles, env.bus)
	env.resumeService = NewResumes(env.profiles, env.blobs)
	env.jobService = NewJobs(env.jobs, env.applications, env.documents, env.blobs, admins, &stubIngester{}, env.counts, env.bus)
	env.personal = NewPersonal(repositories.NewNotesRepository(dbCtx.DB), repositories.NewUpdatesRepository(dbCtx.DB),
		repositories.NewTasksRepository(dbCtx.DB), env.jobs)
	env.workflow = NewWorkflow(env.applicationService, env.applications, env.scorer, 0, 0)
	env.dashboards = NewDashboards(env.applicationService, env.profiles, env.personal, env.jobs, env.applications, admins)
	return env
}

func (env *testEnv) user(t *testing.T, id string, role entities.Role) *auth.Identity {
	t.Helper()
	require.NoError(t, env.profiles.Create(context.Background(), &entities.UserProfile{ID: id, Role: role}))
	return &auth.Identity{UserID: id, Email: id + "@example.com"}
}

func (env *testEnv) student(t *testing.T, id string) *auth.Identity {
	t.Helper()
	identity := env.user(t, id, entities.RoleUser)
	_, err := env.resumeService.UploadResume(context.Background(), identity, pdf("resume.pdf", 2<<20))
	require.NoError(t, err)
	return identity
}

func (env *testEnv) job(t *testing.T, title string, status entities.JobStatus) *entities.Job {
	t.Helper()
	job := &entities.Job{Title: title, Status: status, CompanyName: "Acme"}
	require.NoError(t, env.jobs.Create(context.Background(), job))
	return job
}

func (env *testEnv) score(t *testing.T, userID string, jobID int64, total, experience float64) {
	t.Helper()
	require.NoError(t, env.db.DB.Model(&entities.Application{}).
		Where("user_id = ? AND job_id = ?", userID, jobID).
		Updates(map[string]any{"total_score": total, "experience": experience}).Error)
}

func pdf(name string, size int) *storage.Upload {
	return &storage.Upload{
		FileName:    name,
		ContentType: storage.MimePDF,
		Size:        int64(size),
		Content:     bytes.NewReader(bytes.Repeat([]byte("x"), size)),
	}
}

// flakyStore fails uploads on demand and otherwise delegates.
type flakyStore struct {
	storage.BlobStore
	failUploads bool
}

func (s *flakyStore) Upload(ctx context.Context, bucket, key string, content io.Reader, contentType string) error {
	if s.failUploads {
		return errors.New("bucket unavailable")
	}
	return s.BlobStore.Upload(ctx, bucket, key, content, contentType)
}

type mockScorer struct {
	mock.Mock
}

func (m *mockScorer) ProcessResume(ctx context.Context, userID string, jobID int64) (*scoring.ProcessResponse, error) {
	args := m.Called(ctx, userID, jobID)
	response, _ := args.Get(0).(*scoring.ProcessResponse)
	return response, args.Error(1)
}

type stubIngester struct {
	response *scoring.UpdateJobResponse
	err      error
}

func (s *stubIngester) UpdateJob(ctx context.Context, jobID int64) (*scoring.UpdateJobResponse, error) {
	return s.response, s.err
}
