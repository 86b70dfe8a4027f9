package services

import (
	"context"
	"errors"
	"github.com/hrishi-sarma/codeforedtech/internal/apperrors"
	"github.com/hrishi-sarma/codeforedtech/internal/auth"
	"github.com/hrishi-sarma/codeforedtech/internal/entities"
	"github.com/hrishi-sarma/codeforedtech/internal/logger"
	"github.com/hrishi-sarma/codeforedtech/internal/storage"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"io"
	"path"
	"time"
)

type Resumes struct {
	profiles profileRepository
	blobs    storage.BlobStore
	now      func() time.Time
}

func NewResumes(profiles profileRepository, blobs storage.BlobStore) *Resumes {
	return &Resumes{profiles: profiles, blobs: blobs, now: time.Now}
}

type ResumeFile struct {
	FileName    string
	ContentType string
	Content     io.ReadCloser
}

// UploadResume replaces the caller's resume. Old blobs are purged first; a
// failed purge is logged and the sweep after the upload removes leftovers, so
// only the new blob stays live.
func (s *Resumes) UploadResume(ctx context.Context, identity *auth.Identity, upload *storage.Upload) (*entities.UserProfile, error) {
	if identity == nil {
		return nil, apperrors.ErrUnauthenticated
	}
	if err := storage.ValidateUpload(upload, storage.ResumeSizeLimit); err != nil {
		return nil, err
	}

	if _, err := s.DeleteAllUserResumes(ctx, identity.UserID); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeStorage).
			Warnf("failed to purge old resumes of user %s before upload: %v", identity.UserID, err)
	}

	key := storage.ResumeKey(identity.UserID, s.now(), storage.Extension(upload.ContentType))
	if err := s.blobs.Upload(ctx, storage.BucketResumes, key, upload.Content, upload.ContentType); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeStorage).Errorf("failed to upload resume: %v", err)
		return nil, apperrors.Store(err, "upload resume")
	}

	url := storage.ObjectURL(storage.BucketResumes, key)
	if err := s.profiles.SetResumeURL(ctx, identity.UserID, &url); err != nil {
		if cleanupErr := s.blobs.Delete(context.WithoutCancel(ctx), storage.BucketResumes, key); cleanupErr != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeStorage).
				Errorf("failed to remove orphaned resume %s: %v", key, cleanupErr)
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "profile not found")
		}
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to set resume url: %v", err)
		return nil, apperrors.Store(err, "save resume url")
	}

	s.sweep(ctx, identity.UserID, key)

	profile, err := s.profiles.Get(ctx, identity.UserID)
	if err != nil {
		return nil, apperrors.Store(err, "load profile")
	}
	log.Infof("user %s uploaded resume %s", identity.UserID, key)
	return profile, nil
}

// DeleteAllUserResumes removes every blob under the user's prefix and returns
// how many were removed. The profile pointer is left untouched.
func (s *Resumes) DeleteAllUserResumes(ctx context.Context, userID string) (int, error) {
	keys, err := s.blobs.List(ctx, storage.BucketResumes, storage.UserPrefix(userID))
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := s.blobs.Delete(ctx, storage.BucketResumes, keys...); err != nil {
		return 0, err
	}
	return len(keys), nil
}

// RemoveResume purges the caller's resumes and clears resume_url.
func (s *Resumes) RemoveResume(ctx context.Context, identity *auth.Identity) error {
	if identity == nil {
		return apperrors.ErrUnauthenticated
	}
	if _, err := s.DeleteAllUserResumes(ctx, identity.UserID); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeStorage).Errorf("failed to delete resumes: %v", err)
		return apperrors.Store(err, "delete resumes")
	}
	if err := s.profiles.SetResumeURL(ctx, identity.UserID, nil); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.New(apperrors.KindNotFound, "profile not found")
		}
		return apperrors.Store(err, "clear resume url")
	}
	return nil
}

// GetResume opens the caller's current resume. The caller closes Content.
func (s *Resumes) GetResume(ctx context.Context, identity *auth.Identity) (*ResumeFile, error) {
	if identity == nil {
		return nil, apperrors.ErrUnauthenticated
	}
	profile, err := s.profiles.Get(ctx, identity.UserID)
	if err != nil {
		return nil, apperrors.Store(err, "load profile")
	}
	if profile == nil || !profile.HasResume() {
		return nil, apperrors.New(apperrors.KindNotFound, "no resume uploaded")
	}

	bucket, key, err := storage.ParseObjectURL(*profile.ResumeURL)
	if err != nil {
		return nil, apperrors.Store(err, "parse resume url")
	}
	content, err := s.blobs.Download(ctx, bucket, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "resume file is missing")
		}
		return nil, apperrors.Store(err, "download resume")
	}

	return &ResumeFile{
		FileName:    path.Base(key),
		ContentType: contentTypeFor(key),
		Content:     content,
	}, nil
}

func (s *Resumes) sweep(ctx context.Context, userID, keep string) {
	keys, err := s.blobs.List(ctx, storage.BucketResumes, storage.UserPrefix(userID))
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeStorage).Warnf("failed to list resumes for sweep: %v", err)
		return
	}
	stale := lo.Without(keys, keep)
	if len(stale) == 0 {
		return
	}
	if err := s.blobs.Delete(ctx, storage.BucketResumes, stale...); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeStorage).
			Errorf("failed to sweep %d stale resumes of user %s: %v", len(stale), userID, err)
	}
}

func contentTypeFor(key string) string {
	switch path.Ext(key) {
	case ".pdf":
		return storage.MimePDF
	case ".doc":
		return storage.MimeDOC
	case ".docx":
		return storage.MimeDOCX
	}
	return "application/octet-stream"
}
