package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"github.com/hrishi-sarma/codeforedtech/internal/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

type mockHTTPClient struct {
	mock.Mock
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	resp, _ := args.Get(0).(*http.Response)
	return resp, args.Error(1)
}

func fileResponse(t *testing.T, name string) *http.Response {
	file, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewBuffer(file))}
}

func statusResponse(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body))}
}

func request(method, url string) func(req *http.Request) bool {
	return func(req *http.Request) bool {
		return req.Method == method && req.URL.String() == url
	}
}

func Test_ScoringClient_UpdateJob_ShouldSendFormAndDecodeResponse(t *testing.T) {
	mockClient := &mockHTTPClient{}
	mockClient.On("Do", mock.MatchedBy(request(http.MethodGet, "http://localhost:8000/health"))).
		Return(statusResponse(http.StatusOK, `{"status":"ok"}`), nil)
	mockClient.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		if req.Method != http.MethodPost || req.URL.String() != "http://localhost:8000/update_job" {
			return false
		}
		if err := req.ParseMultipartForm(1 << 20); err != nil {
			return false
		}
		return req.FormValue("job_id") == "12"
	})).Return(fileResponse(t, "update_job.json"), nil)

	client := NewClient([]string{"http://localhost:8000/"}, []string{"http://localhost:8001"})
	client.SetHTTPClient(mockClient)

	response, err := client.UpdateJob(context.Background(), 12)
	require.NoError(t, err)

	assert.Equal(t, int64(12), response.JobID)
	assert.Equal(t, "Innomatics Research Labs", response.StructuredJSON["Company Name"])
	assert.Len(t, response.UpdatedRow, 1)
	mockClient.AssertExpectations(t)
}

func Test_ScoringClient_ProcessResume_ShouldFallBackToNextCandidate(t *testing.T) {
	refused := errors.New("dial tcp 127.0.0.1:8001: connect: connection refused")

	mockClient := &mockHTTPClient{}
	mockClient.On("Do", mock.MatchedBy(request(http.MethodGet, "http://localhost:8001/health"))).Return(nil, refused)
	mockClient.On("Do", mock.MatchedBy(request(http.MethodOptions, "http://localhost:8001/process_pdfs"))).Return(nil, refused)
	mockClient.On("Do", mock.MatchedBy(request(http.MethodGet, "http://127.0.0.1:8001/health"))).
		Return(statusResponse(http.StatusNotFound, ""), nil)
	mockClient.On("Do", mock.MatchedBy(request(http.MethodOptions, "http://127.0.0.1:8001/process_pdfs"))).
		Return(statusResponse(http.StatusMethodNotAllowed, ""), nil)
	processCall := mock.MatchedBy(func(req *http.Request) bool {
		if req.Method != http.MethodPost || req.URL.String() != "http://127.0.0.1:8001/process_pdfs" {
			return false
		}
		if req.GetBody == nil {
			return false
		}
		reader, err := req.GetBody()
		if err != nil {
			return false
		}
		var body processRequest
		if err := json.NewDecoder(reader).Decode(&body); err != nil {
			return false
		}
		return body.UserID == "user-1" && body.JobID == 12 && req.Header.Get("Content-Type") == "application/json"
	})
	// each call gets its own body; a drained one cannot be read twice
	mockClient.On("Do", processCall).Return(fileResponse(t, "process_pdfs.json"), nil).Once()
	mockClient.On("Do", processCall).Return(fileResponse(t, "process_pdfs.json"), nil).Once()

	client := NewClient(nil, []string{"http://localhost:8001", "http://127.0.0.1:8001"})
	client.SetHTTPClient(mockClient)

	response, err := client.ProcessResume(context.Background(), "user-1", 12)
	require.NoError(t, err)
	assert.Equal(t, "success", response.Status)
	assert.Equal(t, 71.5, response.Extra["total_score"])

	// the resolved base URL is cached, so no further probes are sent
	_, err = client.ProcessResume(context.Background(), "user-1", 12)
	require.NoError(t, err)
	mockClient.AssertNumberOfCalls(t, "Do", 6)
}

func Test_ScoringClient_ClassifiesFailures(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(m *mockHTTPClient)
		expected error
	}{
		{
			name: "unreachable",
			setup: func(m *mockHTTPClient) {
				m.On("Do", mock.Anything).Return(nil, errors.New("connection refused"))
			},
			expected: apperrors.ErrUpstreamUnavailable,
		},
		{
			name: "non-2xx with detail",
			setup: func(m *mockHTTPClient) {
				m.On("Do", mock.MatchedBy(request(http.MethodGet, "http://scoring/health"))).
					Return(statusResponse(http.StatusOK, ""), nil)
				m.On("Do", mock.MatchedBy(request(http.MethodPost, "http://scoring/process_pdfs"))).
					Return(statusResponse(http.StatusBadRequest, `{"detail":"Resume not found."}`), nil)
			},
			expected: apperrors.ErrUpstreamError,
		},
		{
			name: "malformed body",
			setup: func(m *mockHTTPClient) {
				m.On("Do", mock.MatchedBy(request(http.MethodGet, "http://scoring/health"))).
					Return(statusResponse(http.StatusOK, ""), nil)
				m.On("Do", mock.MatchedBy(request(http.MethodPost, "http://scoring/process_pdfs"))).
					Return(statusResponse(http.StatusOK, `<html>`), nil)
			},
			expected: apperrors.ErrUpstreamError,
		},
		{
			name: "unsuccessful status",
			setup: func(m *mockHTTPClient) {
				m.On("Do", mock.MatchedBy(request(http.MethodGet, "http://scoring/health"))).
					Return(statusResponse(http.StatusOK, ""), nil)
				m.On("Do", mock.MatchedBy(request(http.MethodPost, "http://scoring/process_pdfs"))).
					Return(statusResponse(http.StatusOK, `{"status":"error"}`), nil)
			},
			expected: apperrors.ErrUpstreamError,
		},
		{
			name: "deadline",
			setup: func(m *mockHTTPClient) {
				m.On("Do", mock.MatchedBy(request(http.MethodGet, "http://scoring/health"))).
					Return(statusResponse(http.StatusOK, ""), nil)
				m.On("Do", mock.MatchedBy(request(http.MethodPost, "http://scoring/process_pdfs"))).
					Return(nil, context.DeadlineExceeded)
			},
			expected: apperrors.ErrUpstreamTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockClient := &mockHTTPClient{}
			tt.setup(mockClient)

			client := NewClient(nil, []string{"http://scoring"})
			client.SetHTTPClient(mockClient)

			_, err := client.ProcessResume(context.Background(), "user-1", 1)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func Test_ScoringClient_RequestTimeoutAgainstRealServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := NewClient([]string{server.URL}, nil)
	client.SetTimeouts(time.Second, 100*time.Millisecond)

	_, err := client.UpdateJob(context.Background(), 3)
	assert.ErrorIs(t, err, apperrors.ErrUpstreamTimeout)
	assert.Contains(t, apperrors.UserMessage(err), "longer than expected")
}

func Test_ScoringClient_Probe(t *testing.T) {
	mockClient := &mockHTTPClient{}
	mockClient.On("Do", mock.MatchedBy(request(http.MethodGet, "http://jobs/health"))).
		Return(statusResponse(http.StatusOK, ""), nil)
	mockClient.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		return strings.HasPrefix(req.URL.String(), "http://resumes/")
	})).Return(statusResponse(http.StatusInternalServerError, ""), nil)

	client := NewClient([]string{"http://jobs"}, []string{"http://resumes"})
	client.SetHTTPClient(mockClient)

	results := client.Probe(context.Background())
	require.Len(t, results, 2)
	assert.True(t, results[0].Reachable)
	assert.Equal(t, "health", results[0].Via)
	assert.False(t, results[1].Reachable)
	assert.NotEmpty(t, results[1].Error)
}
