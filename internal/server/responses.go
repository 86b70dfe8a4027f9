package server

import (
	"errors"
	"github.com/gin-gonic/gin"
	"github.com/hrishi-sarma/codeforedtech/internal/apperrors"
	"github.com/hrishi-sarma/codeforedtech/internal/storage"
	log "github.com/sirupsen/logrus"
	"net/http"
	"strconv"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func abortWithError(c *gin.Context, err error) {
	var maxBytesError *http.MaxBytesError
	if errors.As(err, &maxBytesError) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "File is too large"})
		return
	}

	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Errorf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: apperrors.UserMessage(err)})
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.New(apperrors.KindValidation, "invalid %s", name)
	}
	return id, nil
}

// formUpload opens a multipart file. The returned close func is never nil.
func formUpload(c *gin.Context, field string, required bool) (*storage.Upload, func(), error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) && !required {
			return nil, func() {}, nil
		}
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			return nil, func() {}, err
		}
		return nil, func() {}, apperrors.Wrap(apperrors.KindValidation, err, "a %q file is required", field)
	}

	file, err := header.Open()
	if err != nil {
		return nil, func() {}, apperrors.Wrap(apperrors.KindValidation, err, "failed to read %q", field)
	}

	return &storage.Upload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     file,
	}, func() { _ = file.Close() }, nil
}
