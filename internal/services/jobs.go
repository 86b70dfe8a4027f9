package services

import (
	"context"
	"errors"
	"fmt"
	"github.com/asaskevich/EventBus"
	"github.com/go-playground/validator/v10"
	"github.com/hrishi-sarma/codeforedtech/internal/apperrors"
	"github.com/hrishi-sarma/codeforedtech/internal/auth"
	"github.com/hrishi-sarma/codeforedtech/internal/entities"
	"github.com/hrishi-sarma/codeforedtech/internal/events"
	"github.com/hrishi-sarma/codeforedtech/internal/logger"
	"github.com/hrishi-sarma/codeforedtech/internal/storage"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"strings"
	"time"
)

type NewJobInput struct {
	Title               string  `json:"title" form:"title" validate:"required,max=200"`
	CompanyName         string  `json:"company_name" form:"company_name" validate:"max=200"`
	DetailedDescription string  `json:"detailed_description" form:"detailed_description"`
	Criteria            string  `json:"criteria" form:"criteria"`
	SalaryRange         *string `json:"salary_range" form:"salary_range" validate:"omitempty,max=100"`
}

// Jobs is the admin side of the job lifecycle. Every mutating method checks
// the caller's role against the profile store before doing anything.
type Jobs struct {
	jobs         jobRepository
	applications applicationRepository
	documents    documentRepository
	blobs        storage.BlobStore
	admins       adminChecker
	scoring      jobIngester
	counts       countResyncer
	bus          EventBus.Bus
	validate     *validator.Validate
	now          func() time.Time
}

func NewJobs(jobs jobRepository, applications applicationRepository, documents documentRepository,
	blobs storage.BlobStore, admins adminChecker, scoring jobIngester, counts countResyncer, bus EventBus.Bus) *Jobs {
	return &Jobs{
		jobs:         jobs,
		applications: applications,
		documents:    documents,
		blobs:        blobs,
		admins:       admins,
		scoring:      scoring,
		counts:       counts,
		bus:          bus,
		validate:     validator.New(),
		now:          time.Now,
	}
}

func (s *Jobs) ListJobs(ctx context.Context, identity *auth.Identity) ([]entities.Job, error) {
	if err := requireAdmin(ctx, s.admins, identity, "list jobs"); err != nil {
		return nil, err
	}
	jobs, err := s.jobs.List(ctx)
	if err != nil {
		return nil, dbError(err, "list jobs")
	}
	return jobs, nil
}

// CreateNewJobWithPdf inserts the job as processing, attaches the document
// and then moves the job to inactive. A failed document upload is recorded in
// the description and never aborts creation. The upload is validated before
// anything is written.
func (s *Jobs) CreateNewJobWithPdf(ctx context.Context, identity *auth.Identity, input NewJobInput,
	upload *storage.Upload) (*entities.Job, *entities.JobDocument, error) {

	if err := requireAdmin(ctx, s.admins, identity, "create jobs"); err != nil {
		return nil, nil, err
	}
	input.Title = strings.TrimSpace(input.Title)
	if err := s.validate.Struct(input); err != nil {
		return nil, nil, apperrors.Wrap(apperrors.KindValidation, err, "invalid job")
	}
	if upload != nil {
		if err := storage.ValidateUpload(upload, storage.JobDocumentSizeLimit); err != nil {
			return nil, nil, err
		}
	}

	job := &entities.Job{
		Title:               input.Title,
		CompanyName:         strings.TrimSpace(input.CompanyName),
		DetailedDescription: input.DetailedDescription,
		Criteria:            input.Criteria,
		SalaryRange:         input.SalaryRange,
		Status:              entities.JobProcessing,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, nil, dbError(err, "create job")
	}

	// the job exists from here on, so the remaining phases run to completion
	// even if the caller goes away
	bg := context.WithoutCancel(ctx)

	var document *entities.JobDocument
	if upload != nil {
		var err error
		document, err = s.attachDocument(bg, job.ID, upload)
		if err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeStorage).
				Errorf("document upload for job %d failed: %v", job.ID, err)
			job.DetailedDescription = appendLine(job.DetailedDescription, "Document upload failed: "+err.Error())
			if err := s.jobs.SetDetailedDescription(bg, job.ID, job.DetailedDescription); err != nil {
				log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
					Errorf("failed to record document failure for job %d: %v", job.ID, err)
			}
		}
	}

	if err := s.jobs.SetStatus(bg, job.ID, entities.JobInactive); err != nil {
		return nil, nil, dbError(err, "mark job inactive")
	}

	created, err := s.jobs.GetByID(bg, job.ID)
	if err != nil || created == nil {
		job.Status = entities.JobInactive
		return job, document, nil
	}
	log.Infof("job %d created by %s", created.ID, identity.UserID)
	return created, document, nil
}

// SetJobStatus moves a job between active and inactive. The write always
// happens so updated_at is refreshed even when nothing changes.
func (s *Jobs) SetJobStatus(ctx context.Context, identity *auth.Identity, jobID int64, status entities.JobStatus) (*entities.Job, error) {
	if err := requireAdmin(ctx, s.admins, identity, "change job status"); err != nil {
		return nil, err
	}
	if status != entities.JobActive && status != entities.JobInactive {
		return nil, apperrors.New(apperrors.KindValidation, "status must be %q or %q", entities.JobActive, entities.JobInactive)
	}

	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status == entities.JobProcessing && status == entities.JobActive {
		return nil, apperrors.New(apperrors.KindValidation, "job %d is still processing and cannot be activated", jobID)
	}

	if err := s.jobs.SetStatus(ctx, jobID, status); err != nil {
		return nil, dbError(err, "update job status")
	}
	log.Infof("job %d set to %s by %s", jobID, status, identity.UserID)
	return s.getJob(ctx, jobID)
}

// DeleteJobWithPdfs removes documents (blob, then row), then applications,
// then the job itself.
func (s *Jobs) DeleteJobWithPdfs(ctx context.Context, identity *auth.Identity, jobID int64) error {
	if err := requireAdmin(ctx, s.admins, identity, "delete jobs"); err != nil {
		return err
	}
	if _, err := s.getJob(ctx, jobID); err != nil {
		return err
	}

	documents, err := s.documents.ListByJob(ctx, jobID)
	if err != nil {
		return dbError(err, "list job documents")
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(4)
	for _, document := range documents {
		document := document
		group.Go(func() error {
			if err := s.deleteDocumentBlob(groupCtx, document); err != nil {
				log.WithField(logger.ErrorTypeField, logger.ErrorTypeStorage).
					Errorf("failed to delete blob of document %d: %v", document.ID, err)
			}
			return nil
		})
	}
	_ = group.Wait()

	for _, document := range documents {
		if err := s.documents.Delete(ctx, document.ID); err != nil {
			return dbError(err, "delete job document")
		}
	}

	s.sweepJobPrefix(ctx, jobID)

	removed, err := s.applications.DeleteByJob(ctx, jobID)
	if err != nil {
		return dbError(err, "delete applications")
	}
	if _, err := s.jobs.Delete(ctx, jobID); err != nil {
		return dbError(err, "delete job")
	}

	s.bus.Publish(events.JobDeletedTopic, events.JobDeleted{
		JobID:             jobID,
		DocumentsCount:    len(documents),
		ApplicationsCount: removed,
	})
	return nil
}

func (s *Jobs) UploadJobDocument(ctx context.Context, identity *auth.Identity, jobID int64,
	upload *storage.Upload) (*entities.JobDocument, error) {

	if err := requireAdmin(ctx, s.admins, identity, "upload job documents"); err != nil {
		return nil, err
	}
	if err := storage.ValidateUpload(upload, storage.JobDocumentSizeLimit); err != nil {
		return nil, err
	}
	if _, err := s.getJob(ctx, jobID); err != nil {
		return nil, err
	}

	document, err := s.attachDocument(ctx, jobID, upload)
	if err != nil {
		return nil, apperrors.Store(err, "upload job document")
	}
	return document, nil
}

func (s *Jobs) DeleteJobDocument(ctx context.Context, identity *auth.Identity, documentID int64) error {
	if err := requireAdmin(ctx, s.admins, identity, "delete job documents"); err != nil {
		return err
	}
	document, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return dbError(err, "load job document")
	}
	if document == nil {
		return apperrors.New(apperrors.KindNotFound, "document %d not found", documentID)
	}

	if err := s.deleteDocumentBlob(ctx, *document); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeStorage).Errorf("failed to delete document blob: %v", err)
		return apperrors.Store(err, "delete document file")
	}
	if err := s.documents.Delete(ctx, documentID); err != nil {
		return dbError(err, "delete job document")
	}
	return nil
}

func (s *Jobs) ListJobDocuments(ctx context.Context, jobID int64) ([]entities.JobDocument, error) {
	documents, err := s.documents.ListByJob(ctx, jobID)
	if err != nil {
		return nil, dbError(err, "list job documents")
	}
	return documents, nil
}

// IngestJob asks the scoring service to extract the job's document. The
// service writes the extracted columns itself; the structured result is kept
// on the job as well.
func (s *Jobs) IngestJob(ctx context.Context, identity *auth.Identity, jobID int64) (*entities.Job, error) {
	if err := requireAdmin(ctx, s.admins, identity, "ingest jobs"); err != nil {
		return nil, err
	}
	if _, err := s.getJob(ctx, jobID); err != nil {
		return nil, err
	}

	response, err := s.scoring.UpdateJob(ctx, jobID)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeScoringApi).Errorf("job %d ingestion failed: %v", jobID, err)
		return nil, err
	}

	if response.StructuredJSON != nil {
		if err := s.jobs.SetExtracted(ctx, jobID, response.StructuredJSON); err != nil {
			return nil, dbError(err, "store extracted job data")
		}
	}
	return s.getJob(ctx, jobID)
}

func (s *Jobs) ResyncCounts(ctx context.Context, identity *auth.Identity, jobID *int64) (*ResyncReport, error) {
	if err := requireAdmin(ctx, s.admins, identity, "resync application counts"); err != nil {
		return nil, err
	}
	if jobID != nil {
		if _, err := s.getJob(ctx, *jobID); err != nil {
			return nil, err
		}
		if err := s.counts.ResyncApplicationsCount(ctx, *jobID); err != nil {
			return nil, apperrors.Store(err, "resync applications count")
		}
		return &ResyncReport{Checked: 1, Repaired: []int64{}, Failed: []int64{}}, nil
	}
	report, err := s.counts.ResyncAllApplicationCounts(ctx)
	if err != nil {
		return nil, apperrors.Store(err, "resync applications counts")
	}
	return report, nil
}

func (s *Jobs) attachDocument(ctx context.Context, jobID int64, upload *storage.Upload) (*entities.JobDocument, error) {
	key := storage.JobDocumentKey(jobID, s.now(), upload.FileName)
	if err := s.blobs.Upload(ctx, storage.BucketJobDocuments, key, upload.Content, upload.ContentType); err != nil {
		return nil, fmt.Errorf("storing %s: %w", upload.FileName, err)
	}

	size := upload.Size
	document := &entities.JobDocument{
		JobID:     jobID,
		FileName:  upload.FileName,
		JobPdfURL: storage.ObjectURL(storage.BucketJobDocuments, key),
		FileSize:  &size,
	}
	if err := s.documents.Create(ctx, document); err != nil {
		if cleanupErr := s.blobs.Delete(ctx, storage.BucketJobDocuments, key); cleanupErr != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeStorage).
				Errorf("failed to remove orphaned document %s: %v", key, cleanupErr)
		}
		return nil, fmt.Errorf("recording %s: %w", upload.FileName, err)
	}
	return document, nil
}

func (s *Jobs) deleteDocumentBlob(ctx context.Context, document entities.JobDocument) error {
	bucket, key, err := storage.ParseObjectURL(document.JobPdfURL)
	if err != nil {
		return err
	}
	return s.blobs.Delete(ctx, bucket, key)
}

func (s *Jobs) sweepJobPrefix(ctx context.Context, jobID int64) {
	keys, err := s.blobs.List(ctx, storage.BucketJobDocuments, storage.JobPrefix(jobID))
	if err == nil && len(keys) > 0 {
		err = s.blobs.Delete(ctx, storage.BucketJobDocuments, keys...)
	}
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeStorage).
			Warnf("failed to sweep leftover documents of job %d: %v", jobID, err)
	}
}

func (s *Jobs) getJob(ctx context.Context, jobID int64) (*entities.Job, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, dbError(err, "load job")
	}
	if job == nil {
		return nil, apperrors.New(apperrors.KindNotFound, "job %d not found", jobID)
	}
	return job, nil
}

func dbError(err error, operation string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.Wrap(apperrors.KindNotFound, err, "%s: not found", operation)
	}
	log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to %s: %v", operation, err)
	return apperrors.Store(err, operation)
}

func appendLine(text, line string) string {
	if strings.TrimSpace(text) == "" {
		return line
	}
	return text + "\n\n" + line
}
