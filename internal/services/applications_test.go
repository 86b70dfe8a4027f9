package services

import (
	"context"
	"github.com/hrishi-sarma/codeforedtech/internal/apperrors"
	"github.com/hrishi-sarma/codeforedtech/internal/entities"
	"github.com/hrishi-sarma/codeforedtech/internal/metrics"
	"github.com/hrishi-sarma/codeforedtech/internal/storage"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sync"
	"testing"
	"time"
)

func Test_ApplyToJob_CreatesPendingApplicationOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student := env.student(t, "s1")
	job := env.job(t, "Backend Engineer", entities.JobActive)

	application, err := env.applicationService.ApplyToJob(ctx, student, job.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.AcceptancePending, application.Acceptance)
	assert.Equal(t, entities.ApplicationStatusPending, application.Status)
	assert.Zero(t, application.TotalScore)

	_, err = env.applicationService.ApplyToJob(ctx, student, job.ID)
	assert.ErrorIs(t, err, apperrors.ErrDuplicateApplication)

	rows, err := env.applications.ListByJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func Test_ApplyToJob_PreconditionErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	noResume := env.user(t, "no-resume", entities.RoleUser)
	student := env.student(t, "s1")
	inactive := env.job(t, "Closed", entities.JobInactive)
	processing := env.job(t, "Processing", entities.JobProcessing)

	_, err := env.applicationService.ApplyToJob(ctx, nil, inactive.ID)
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)

	_, err = env.applicationService.ApplyToJob(ctx, noResume, inactive.ID)
	assert.ErrorIs(t, err, apperrors.ErrResumeMissing, "resume is checked before job status")

	_, err = env.applicationService.ApplyToJob(ctx, student, inactive.ID)
	assert.ErrorIs(t, err, apperrors.ErrJobInactive)

	_, err = env.applicationService.ApplyToJob(ctx, student, processing.ID)
	assert.ErrorIs(t, err, apperrors.ErrJobInactive)

	_, err = env.applicationService.ApplyToJob(ctx, student, 9999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func Test_ApplyToJob_ResyncsApplicationsCount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job := env.job(t, "Backend Engineer", entities.JobActive)

	for _, id := range []string{"s1", "s2", "s3"} {
		_, err := env.applicationService.ApplyToJob(ctx, env.student(t, id), job.ID)
		require.NoError(t, err)
	}
	env.bus.WaitAsync()

	stored, err := env.jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stored.ApplicationsCount)
}

// staleApplications misses existing rows in the pre-check, as a concurrent
// apply would, so only the unique constraint can catch the duplicate.
type staleApplications struct {
	applicationRepository
}

func (s staleApplications) Exists(context.Context, string, int64) (bool, error) {
	return false, nil
}

func Test_ApplyToJob_UniqueConstraintCatchesMissedDuplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student := env.student(t, "s1")
	job := env.job(t, "Backend Engineer", entities.JobActive)
	service := NewApplications(env.jobs, staleApplications{env.applications}, env.profiles, env.bus)
	caught := metrics.DuplicateApplicationsCounter.WithLabelValues("constraint")
	before := testutil.ToFloat64(caught)

	_, err := service.ApplyToJob(ctx, student, job.ID)
	require.NoError(t, err)

	_, err = service.ApplyToJob(ctx, student, job.ID)
	assert.ErrorIs(t, err, apperrors.ErrDuplicateApplication)
	assert.Equal(t, before+1, testutil.ToFloat64(caught))

	rows, err := env.applications.ListByJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func Test_ApplyToJob_ConcurrentAppliesCreateOneRow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student := env.student(t, "s1")
	job := env.job(t, "Backend Engineer", entities.JobActive)

	const attempts = 8
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.applicationService.ApplyToJob(ctx, student, job.ID)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var created, duplicates int
	for err := range results {
		switch {
		case err == nil:
			created++
		case errors.Is(err, apperrors.ErrDuplicateApplication):
			duplicates++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, attempts-1, duplicates)

	rows, err := env.applications.ListByJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func Test_GetApplicationDetails_ReturnsNilWhenNotApplied(t *testing.T) {
	env := newTestEnv(t)
	job := env.job(t, "Backend Engineer", entities.JobActive)

	application, err := env.applicationService.GetApplicationDetails(context.Background(), "nobody", job.ID)
	assert.NoError(t, err)
	assert.Nil(t, application)

	acceptance, err := env.applicationService.GetApplicationStatus(context.Background(), "nobody", job.ID)
	assert.NoError(t, err)
	assert.Nil(t, acceptance)
}

func Test_GetRecommendedJobs_ExcludesAppliedAndInactive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student := env.student(t, "s1")
	applied := env.job(t, "Applied", entities.JobActive)
	open := env.job(t, "Open", entities.JobActive)
	env.job(t, "Closed", entities.JobInactive)

	_, err := env.applicationService.ApplyToJob(ctx, student, applied.ID)
	require.NoError(t, err)

	recommended, err := env.applicationService.GetRecommendedJobs(ctx, student)
	require.NoError(t, err)
	assert.Equal(t, []int64{open.ID}, lo.Map(recommended, func(j entities.Job, _ int) int64 { return j.ID }))

	anonymous, err := env.applicationService.GetRecommendedJobs(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, anonymous, 2)
}

func Test_GetAppliedJobs_PairsJobsWithOwnApplications(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student := env.student(t, "s1")
	other := env.student(t, "s2")
	first := env.job(t, "First", entities.JobActive)
	second := env.job(t, "Second", entities.JobActive)

	_, err := env.applicationService.ApplyToJob(ctx, student, first.ID)
	require.NoError(t, err)
	_, err = env.applicationService.ApplyToJob(ctx, other, first.ID)
	require.NoError(t, err)
	_, err = env.applicationService.ApplyToJob(ctx, student, second.ID)
	require.NoError(t, err)

	applied, err := env.applicationService.GetAppliedJobs(ctx, student)
	require.NoError(t, err)
	require.Len(t, applied, 2)
	assert.Equal(t, second.ID, applied[0].Job.ID, "most recent first")
	for _, a := range applied {
		assert.Equal(t, "s1", a.Application.UserID)
		assert.Equal(t, a.Job.ID, a.Application.JobID)
	}
}

func Test_UploadResume_ReplaceLeavesSingleBlob(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	identity := env.user(t, "s1", entities.RoleUser)

	first, err := env.resumeService.UploadResume(ctx, identity, pdf("first.pdf", 1024))
	require.NoError(t, err)
	env.resumeService.now = func() time.Time { return time.Now().Add(time.Second) }
	second, err := env.resumeService.UploadResume(ctx, identity, pdf("second.pdf", 2048))
	require.NoError(t, err)

	assert.NotEqual(t, *first.ResumeURL, *second.ResumeURL)

	keys, err := env.blobs.List(ctx, storage.BucketResumes, storage.UserPrefix("s1"))
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, storage.ObjectURL(storage.BucketResumes, keys[0]), *second.ResumeURL)

	file, err := env.resumeService.GetResume(ctx, identity)
	require.NoError(t, err)
	defer file.Content.Close()
	assert.Equal(t, storage.MimePDF, file.ContentType)
}

func Test_UploadResume_RejectsInvalidFilesBeforeStoring(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	identity := env.user(t, "s1", entities.RoleUser)

	tooBig := pdf("big.pdf", int(storage.ResumeSizeLimit)+1)
	_, err := env.resumeService.UploadResume(ctx, identity, tooBig)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	image := pdf("photo.png", 1024)
	image.ContentType = "image/png"
	_, err = env.resumeService.UploadResume(ctx, identity, image)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	keys, err := env.blobs.List(ctx, storage.BucketResumes, storage.UserPrefix("s1"))
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func Test_RemoveResume_ClearsPointerAndBlobs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student := env.student(t, "s1")

	require.NoError(t, env.resumeService.RemoveResume(ctx, student))

	profile, err := env.profiles.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, profile.HasResume())

	_, err = env.resumeService.GetResume(ctx, student)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
