package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	BucketResumes      = "resumes"
	BucketJobDocuments = "job-pdfs"
)

var ErrObjectNotFound = errors.New("object not found")

type BlobStore interface {
	Upload(ctx context.Context, bucket, key string, content io.Reader, contentType string) error
	Download(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	List(ctx context.Context, bucket, prefix string) ([]string, error)
	// Delete ignores keys that do not exist.
	Delete(ctx context.Context, bucket string, keys ...string) error
}

// ObjectURL is the value stored in resume_url and job_pdf_url.
func ObjectURL(bucket, key string) string {
	return bucket + "/" + key
}

func ParseObjectURL(url string) (bucket string, key string, err error) {
	bucket, key, found := strings.Cut(url, "/")
	if !found || bucket == "" || key == "" {
		return "", "", fmt.Errorf("malformed object url %q", url)
	}
	return bucket, key, nil
}

func UserPrefix(userID string) string {
	return userID + "/"
}

func ResumeKey(userID string, now time.Time, extension string) string {
	return fmt.Sprintf("%sresume_%d.%s", UserPrefix(userID), now.UnixMilli(), extension)
}

func JobPrefix(jobID int64) string {
	return fmt.Sprintf("job_%d/", jobID)
}

func JobDocumentKey(jobID int64, now time.Time, fileName string) string {
	return fmt.Sprintf("%sjob_document_%d_%s", JobPrefix(jobID), now.UnixMilli(), SanitizeFileName(fileName))
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func SanitizeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "document"
	}
	return name
}
