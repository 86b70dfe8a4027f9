package server

import (
	"bytes"
	"context"
	"encoding/json"
	"github.com/asaskevich/EventBus"
	"github.com/gin-gonic/gin"
	"github.com/hrishi-sarma/codeforedtech/internal/auth"
	"github.com/hrishi-sarma/codeforedtech/internal/clients/scoring"
	"github.com/hrishi-sarma/codeforedtech/internal/config"
	"github.com/hrishi-sarma/codeforedtech/internal/repositories"
	"github.com/hrishi-sarma/codeforedtech/internal/services"
	"github.com/hrishi-sarma/codeforedtech/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

const adminEmail = "admin@example.com"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbCtx, err := repositories.NewDbContext(filepath.Join(t.TempDir(), "server.db"), false)
	require.NoError(t, err)
	require.NoError(t, dbCtx.Migrate())

	jobs := repositories.NewJobsRepository(dbCtx.DB)
	applications := repositories.NewApplicationsRepository(dbCtx.DB)
	profiles := repositories.NewProfilesRepository(dbCtx.DB)
	documents := repositories.NewDocumentsRepository(dbCtx.DB)
	blobs := storage.NewDBStore(repositories.NewBlobsRepository(dbCtx.DB))
	bus := EventBus.New()

	authService := auth.NewService(repositories.NewAccountsRepository(dbCtx.DB), profiles,
		auth.NewTokens("server-test-secret-123456", "test", time.Hour), auth.NewRevocationList(),
		[]string{adminEmail}, bcrypt.MinCost)

	counts, err := services.NewCountSynchronizer(jobs, bus, "@every 1h")
	require.NoError(t, err)
	t.Cleanup(func() {
		counts.Stop()
		_ = dbCtx.Close()
	})

	scoringClient := scoring.NewClient([]string{"http://127.0.0.1:1"}, []string{"http://127.0.0.1:1"})
	applicationService := services.NewApplications(jobs, applications, profiles, bus)
	personal := services.NewPersonal(repositories.NewNotesRepository(dbCtx.DB),
		repositories.NewUpdatesRepository(dbCtx.DB), repositories.NewTasksRepository(dbCtx.DB), jobs)

	cfg := &config.Config{
		Server: config.ServerConfig{
			Address:           ":0",
			RequestsPerSecond: 1000,
			ReadHeaderTimeout: time.Second,
			ShutdownTimeout:   time.Second,
			MaxPollTimeout:    time.Second,
		},
		Jobs: config.JobsConfig{ShortlistSize: 5},
	}
	return New(cfg, Dependencies{
		Auth:         authService,
		Applications: applicationService,
		Resumes:      services.NewResumes(profiles, blobs),
		Jobs:         services.NewJobs(jobs, applications, documents, blobs, authService, scoringClient, counts, bus),
		Workflow:     services.NewWorkflow(applicationService, applications, scoringClient, 50*time.Millisecond, time.Second),
		Personal:     personal,
		Dashboards:   services.NewDashboards(applicationService, profiles, personal, jobs, applications, authService),
		Scoring:      scoringClient,
	}).RegisterRoutes()
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func doMultipart(t *testing.T, router http.Handler, path, token string, fields map[string]string,
	fileField, fileName, contentType string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if fileField != "" {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="`+fileField+`"; filename="`+fileName+`"`)
		header.Set("Content-Type", contentType)
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func signUp(t *testing.T, router http.Handler, email string) string {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/v1/auth/signup", "",
		map[string]string{"email": email, "password": "password123"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var session auth.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	return session.AccessToken
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var response ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response.Error
}

func Test_Health(t *testing.T) {
	router := newTestRouter(t)
	w := doJSON(t, router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func Test_Auth_RequiredAndRejectedTokens(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/jobs/applied", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, decodeError(t, w))

	w = doJSON(t, router, http.MethodGet, "/api/v1/jobs/recommended", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/jobs/recommended", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	token := signUp(t, router, "student@example.com")
	w = doJSON(t, router, http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/signout", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, router, http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func Test_AdminRoutes_ForbiddenForUsers(t *testing.T) {
	router := newTestRouter(t)
	token := signUp(t, router, "student@example.com")

	w := doJSON(t, router, http.MethodGet, "/api/v1/admin/jobs", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/dashboard/admin", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func Test_ApplicationFlow(t *testing.T) {
	router := newTestRouter(t)
	admin := signUp(t, router, adminEmail)
	student := signUp(t, router, "student@example.com")
	pdf := bytes.Repeat([]byte("%PDF"), 256)

	w := doMultipart(t, router, "/api/v1/admin/jobs", admin,
		map[string]string{"title": "Backend Engineer", "company_name": "Acme"},
		"document", "jd.pdf", storage.MimePDF, pdf)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created createJobResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "inactive", string(created.Job.Status))
	require.NotNil(t, created.Document)

	jobPath := "/api/v1/applications/" + itoa(created.Job.ID)

	w = doJSON(t, router, http.MethodPost, jobPath, student, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "no resume yet")

	w = doMultipart(t, router, "/api/v1/resume", student, nil, "resume", "cv.pdf", storage.MimePDF, pdf)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodPost, jobPath, student, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "job is inactive")

	w = doJSON(t, router, http.MethodPatch, "/api/v1/admin/jobs/"+itoa(created.Job.ID)+"/status", admin,
		map[string]string{"status": "active"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodPost, jobPath, student, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var view services.ApplicationView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, services.StateAppliedScorePending, view.State)

	w = doJSON(t, router, http.MethodPost, jobPath, student, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already applied to this job", decodeError(t, w))

	w = doJSON(t, router, http.MethodGet, jobPath+"/wait?interval=20ms&timeout=100ms", student, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, services.StateAppliedScorePending, view.State)

	w = doJSON(t, router, http.MethodPost, jobPath+"/process", student, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code, "scoring service is unreachable")

	w = doJSON(t, router, http.MethodGet, jobPath, student, nil)
	assert.Equal(t, http.StatusOK, w.Code, "application survives scoring failure")

	w = doJSON(t, router, http.MethodDelete, "/api/v1/admin/jobs/"+itoa(created.Job.ID), admin, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/jobs/"+itoa(created.Job.ID), student, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func Test_UploadResume_RejectsUnsupportedType(t *testing.T) {
	router := newTestRouter(t)
	token := signUp(t, router, "student@example.com")

	w := doMultipart(t, router, "/api/v1/resume", token, nil, "resume", "cv.png", "image/png", []byte("png"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w), "unsupported file type")
}

func Test_WaitForScore_StopsWhenClientLeaves(t *testing.T) {
	router := newTestRouter(t)
	token := signUp(t, router, "student@example.com")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/applications/1/wait?timeout=1s", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	router.ServeHTTP(httptest.NewRecorder(), req)
	assert.Less(t, time.Since(start), 900*time.Millisecond)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
