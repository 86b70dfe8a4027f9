package services

import (
	"context"
	"errors"
	"github.com/asaskevich/EventBus"
	"github.com/hrishi-sarma/codeforedtech/internal/apperrors"
	"github.com/hrishi-sarma/codeforedtech/internal/auth"
	"github.com/hrishi-sarma/codeforedtech/internal/entities"
	"github.com/hrishi-sarma/codeforedtech/internal/events"
	"github.com/hrishi-sarma/codeforedtech/internal/metrics"
	"github.com/hrishi-sarma/codeforedtech/internal/repositories"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"time"
)

type Applications struct {
	jobs         jobRepository
	applications applicationRepository
	profiles     profileRepository
	bus          EventBus.Bus
	now          func() time.Time
}

func NewApplications(jobs jobRepository, applications applicationRepository, profiles profileRepository,
	bus EventBus.Bus) *Applications {
	return &Applications{
		jobs:         jobs,
		applications: applications,
		profiles:     profiles,
		bus:          bus,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// ApplyToJob creates the caller's application. Checks run in order:
// identity, resume, job existence and status, existing application. The
// unique constraint is the final authority on duplicates.
func (s *Applications) ApplyToJob(ctx context.Context, identity *auth.Identity, jobID int64) (*entities.Application, error) {
	if identity == nil {
		return nil, apperrors.ErrUnauthenticated
	}

	profile, err := s.profiles.Get(ctx, identity.UserID)
	if err != nil {
		return nil, dbError(err, "load profile")
	}
	if profile == nil || !profile.HasResume() {
		return nil, apperrors.ErrResumeMissing
	}

	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, dbError(err, "load job")
	}
	if job == nil {
		return nil, apperrors.New(apperrors.KindNotFound, "job %d not found", jobID)
	}
	if !job.AcceptsApplications() {
		return nil, apperrors.ErrJobInactive
	}

	exists, err := s.applications.Exists(ctx, identity.UserID, jobID)
	if err != nil {
		return nil, dbError(err, "check existing application")
	}
	if exists {
		metrics.DuplicateApplicationsCounter.WithLabelValues("precheck").Inc()
		return nil, apperrors.ErrDuplicateApplication
	}

	application := entities.NewApplication(identity.UserID, jobID, s.now())
	if err := s.applications.Create(ctx, &application); err != nil {
		if errors.Is(err, repositories.ErrDuplicateApplication) {
			metrics.DuplicateApplicationsCounter.WithLabelValues("constraint").Inc()
			return nil, apperrors.ErrDuplicateApplication
		}
		return nil, dbError(err, "create application")
	}

	metrics.ApplicationsCreatedCounter.Inc()
	log.Infof("user %s applied to job %d", identity.UserID, jobID)

	s.bus.Publish(events.ApplicationCreatedTopic, events.ApplicationCreated{
		ApplicationID: application.ID,
		UserID:        identity.UserID,
		JobID:         jobID,
	})

	return &application, nil
}

// GetApplicationDetails returns nil, nil when the user has not applied.
func (s *Applications) GetApplicationDetails(ctx context.Context, userID string, jobID int64) (*entities.Application, error) {
	application, err := s.applications.Get(ctx, userID, jobID)
	if err != nil {
		return nil, dbError(err, "load application")
	}
	return application, nil
}

func (s *Applications) GetApplicationStatus(ctx context.Context, userID string, jobID int64) (*entities.Acceptance, error) {
	application, err := s.GetApplicationDetails(ctx, userID, jobID)
	if err != nil || application == nil {
		return nil, err
	}
	return &application.Acceptance, nil
}

// GetRecommendedJobs lists active jobs the caller has not applied to.
// Anonymous callers get every active job.
func (s *Applications) GetRecommendedJobs(ctx context.Context, identity *auth.Identity) ([]entities.Job, error) {
	userID := ""
	if identity != nil {
		userID = identity.UserID
	}
	jobs, err := s.jobs.ListActiveNotAppliedBy(ctx, userID)
	if err != nil {
		return nil, dbError(err, "list recommended jobs")
	}
	return jobs, nil
}

// GetAppliedJobs returns each job the caller applied to with that
// application, most recent first.
func (s *Applications) GetAppliedJobs(ctx context.Context, identity *auth.Identity) ([]entities.AppliedJob, error) {
	if identity == nil {
		return nil, apperrors.ErrUnauthenticated
	}

	applications, err := s.applications.ListByUser(ctx, identity.UserID)
	if err != nil {
		return nil, dbError(err, "list applications")
	}

	jobIDs := lo.Map(applications, func(a entities.Application, _ int) int64 { return a.JobID })
	jobs, err := s.jobs.GetByIDs(ctx, jobIDs)
	if err != nil {
		return nil, dbError(err, "load applied jobs")
	}
	jobsByID := lo.KeyBy(jobs, func(j entities.Job) int64 { return j.ID })

	return lo.FilterMap(applications, func(a entities.Application, _ int) (entities.AppliedJob, bool) {
		job, ok := jobsByID[a.JobID]
		return entities.AppliedJob{Job: job, Application: a}, ok
	}), nil
}

func (s *Applications) GetJobByID(ctx context.Context, jobID int64) (*entities.Job, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, dbError(err, "load job")
	}
	if job == nil {
		return nil, apperrors.New(apperrors.KindNotFound, "job %d not found", jobID)
	}
	return job, nil
}
