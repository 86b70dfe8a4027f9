package storage

import (
	"fmt"
	"github.com/hrishi-sarma/codeforedtech/internal/apperrors"
	"io"
	"path/filepath"
	"strings"
)

const (
	ResumeSizeLimit      int64 = 5 << 20
	JobDocumentSizeLimit int64 = 10 << 20
)

const (
	MimePDF  = "application/pdf"
	MimeDOC  = "application/msword"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var extensions = map[string]string{
	MimePDF:  "pdf",
	MimeDOC:  "doc",
	MimeDOCX: "docx",
}

type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// ValidateUpload checks type and size before any I/O happens. A missing or
// generic content type is resolved from the file extension.
func ValidateUpload(upload *Upload, limit int64) error {
	if upload == nil || upload.Content == nil {
		return apperrors.New(apperrors.KindValidation, "a file is required")
	}

	upload.ContentType = normalizeContentType(upload.ContentType, upload.FileName)
	if _, ok := extensions[upload.ContentType]; !ok {
		return apperrors.New(apperrors.KindValidation,
			"unsupported file type %q: only PDF, DOC and DOCX files are accepted", upload.ContentType)
	}

	if upload.Size <= 0 {
		return apperrors.New(apperrors.KindValidation, "file %q is empty", upload.FileName)
	}
	if upload.Size > limit {
		return apperrors.New(apperrors.KindValidation,
			"file %q is %s, the limit is %s", upload.FileName, humanSize(upload.Size), humanSize(limit))
	}
	return nil
}

func Extension(contentType string) string {
	return extensions[contentType]
}

func normalizeContentType(contentType, fileName string) string {
	contentType = strings.TrimSpace(strings.ToLower(strings.Split(contentType, ";")[0]))
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return MimePDF
	case ".doc":
		return MimeDOC
	case ".docx":
		return MimeDOCX
	}
	return contentType
}

func humanSize(size int64) string {
	if size >= 1<<20 {
		return fmt.Sprintf("%.1fMB", float64(size)/float64(1<<20))
	}
	return fmt.Sprintf("%dKB", size>>10)
}
