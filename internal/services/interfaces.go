package services

import (
	"context"
	"github.com/hrishi-sarma/codeforedtech/internal/clients/scoring"
	"github.com/hrishi-sarma/codeforedtech/internal/entities"
)

type jobRepository interface {
	Create(ctx context.Context, job *entities.Job) error
	GetByID(ctx context.Context, id int64) (*entities.Job, error)
	GetByIDs(ctx context.Context, ids []int64) ([]entities.Job, error)
	List(ctx context.Context) ([]entities.Job, error)
	ListActiveNotAppliedBy(ctx context.Context, userID string) ([]entities.Job, error)
	SetStatus(ctx context.Context, id int64, status entities.JobStatus) error
	SetDetailedDescription(ctx context.Context, id int64, description string) error
	SetExtracted(ctx context.Context, id int64, extracted map[string]any) error
	CountByStatus(ctx context.Context) (map[entities.JobStatus]int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
}

type applicationRepository interface {
	Create(ctx context.Context, application *entities.Application) error
	Get(ctx context.Context, userID string, jobID int64) (*entities.Application, error)
	Exists(ctx context.Context, userID string, jobID int64) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]entities.Application, error)
	ListByJob(ctx context.Context, jobID int64) ([]entities.Application, error)
	CountAll(ctx context.Context) (int64, error)
	DeleteByJob(ctx context.Context, jobID int64) (int64, error)
}

type profileRepository interface {
	Get(ctx context.Context, userID string) (*entities.UserProfile, error)
	SetResumeURL(ctx context.Context, userID string, url *string) error
}

type documentRepository interface {
	Create(ctx context.Context, document *entities.JobDocument) error
	GetByID(ctx context.Context, id int64) (*entities.JobDocument, error)
	ListByJob(ctx context.Context, jobID int64) ([]entities.JobDocument, error)
	Delete(ctx context.Context, id int64) error
}

type countRepository interface {
	ListIDs(ctx context.Context) ([]int64, error)
	RecountApplications(ctx context.Context, id int64) (before int64, after int64, err error)
}

type adminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

type jobIngester interface {
	UpdateJob(ctx context.Context, jobID int64) (*scoring.UpdateJobResponse, error)
}

type resumeScorer interface {
	ProcessResume(ctx context.Context, userID string, jobID int64) (*scoring.ProcessResponse, error)
}

type countResyncer interface {
	ResyncApplicationsCount(ctx context.Context, jobID int64) error
	ResyncAllApplicationCounts(ctx context.Context) (*ResyncReport, error)
}
