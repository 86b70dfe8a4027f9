package storage

import (
	"bytes"
	"context"
	"github.com/hrishi-sarma/codeforedtech/internal/apperrors"
	"github.com/hrishi-sarma/codeforedtech/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func upload(name, contentType string, size int64) *Upload {
	return &Upload{FileName: name, ContentType: contentType, Size: size, Content: strings.NewReader("x")}
}

func Test_ValidateUpload(t *testing.T) {
	tests := []struct {
		name    string
		upload  *Upload
		limit   int64
		wantErr bool
	}{
		{"pdf within limit", upload("resume.pdf", MimePDF, 2<<20), ResumeSizeLimit, false},
		{"docx within limit", upload("cv.docx", MimeDOCX, 1024), ResumeSizeLimit, false},
		{"doc resolved from extension", upload("cv.doc", "application/octet-stream", 1024), ResumeSizeLimit, false},
		{"content type with parameters", upload("cv.pdf", "application/pdf; charset=binary", 1024), ResumeSizeLimit, false},
		{"exactly at limit", upload("jd.pdf", MimePDF, JobDocumentSizeLimit), JobDocumentSizeLimit, false},
		{"image rejected", upload("me.png", "image/png", 1024), ResumeSizeLimit, true},
		{"resume over 5MB", upload("big.pdf", MimePDF, ResumeSizeLimit+1), ResumeSizeLimit, true},
		{"job document over 10MB", upload("big.pdf", MimePDF, JobDocumentSizeLimit+1), JobDocumentSizeLimit, true},
		{"empty file", upload("empty.pdf", MimePDF, 0), ResumeSizeLimit, true},
		{"missing file", nil, ResumeSizeLimit, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpload(tt.upload, tt.limit)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func Test_Keys(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	assert.Equal(t, "u1/resume_1700000000123.pdf", ResumeKey("u1", now, "pdf"))
	assert.Equal(t, "job_7/job_document_1700000000123_Senior_Dev_JD_.pdf",
		JobDocumentKey(7, now, "../Senior Dev (JD).pdf"))
	assert.Equal(t, "document", SanitizeFileName("..."))
}

func Test_ObjectURL_RoundTrip(t *testing.T) {
	bucket, key, err := ParseObjectURL(ObjectURL(BucketJobDocuments, "job_1/job_document_1_a.pdf"))
	require.NoError(t, err)
	assert.Equal(t, BucketJobDocuments, bucket)
	assert.Equal(t, "job_1/job_document_1_a.pdf", key)

	_, _, err = ParseObjectURL("no-key")
	assert.Error(t, err)
}

func Test_DBStore(t *testing.T) {
	dbCtx, err := repositories.NewDbContext(filepath.Join(t.TempDir(), "blobs.db"), false)
	require.NoError(t, err)
	require.NoError(t, dbCtx.Migrate())
	defer dbCtx.Close()

	store := NewDBStore(repositories.NewBlobsRepository(dbCtx.DB))
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, BucketResumes, "u1/resume_1.pdf", bytes.NewReader([]byte("first")), MimePDF))
	require.NoError(t, store.Upload(ctx, BucketResumes, "u1/resume_2.pdf", bytes.NewReader([]byte("second")), MimePDF))
	require.NoError(t, store.Upload(ctx, BucketResumes, "u2/resume_1.pdf", bytes.NewReader([]byte("other")), MimePDF))

	keys, err := store.List(ctx, BucketResumes, UserPrefix("u1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"u1/resume_1.pdf", "u1/resume_2.pdf"}, keys)

	reader, err := store.Download(ctx, BucketResumes, "u1/resume_2.pdf")
	require.NoError(t, err)
	content, _ := io.ReadAll(reader)
	assert.Equal(t, "second", string(content))

	require.NoError(t, store.Delete(ctx, BucketResumes, keys...))
	_, err = store.Download(ctx, BucketResumes, "u1/resume_2.pdf")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	keys, err = store.List(ctx, BucketResumes, UserPrefix("u2"))
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}
