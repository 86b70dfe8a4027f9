package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/hrishi-sarma/codeforedtech/internal/apperrors"
	"github.com/hrishi-sarma/codeforedtech/internal/metrics"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	endpointUpdateJob   = "/update_job"
	endpointProcessPdfs = "/process_pdfs"
	endpointHealth      = "/health"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	httpClient     HTTPClient
	rateLimiter    *rate.Limiter
	jobBaseURLs    []string
	resumeBaseURLs []string
	probeTimeout   time.Duration
	requestTimeout time.Duration
	resolved       *gocache.Cache
}

// NewClient takes the candidate base URLs of the job ingestion and resume
// scoring endpoints. Candidates are probed in order before each real request
// and the first reachable one is remembered for a while.
func NewClient(jobBaseURLs, resumeBaseURLs []string) *Client {
	return &Client{
		httpClient:     &http.Client{},
		jobBaseURLs:    trimAll(jobBaseURLs),
		resumeBaseURLs: trimAll(resumeBaseURLs),
		probeTimeout:   3 * time.Second,
		requestTimeout: 2 * time.Minute,
		resolved:       gocache.New(time.Minute, 5*time.Minute),
	}
}

func (c *Client) SetHTTPClient(client HTTPClient) {
	c.httpClient = client
}

func (c *Client) SetRateLimit(maxRequestsPerSecond float32) {
	if maxRequestsPerSecond <= 0 {
		c.rateLimiter = nil
		return
	}
	c.rateLimiter = rate.NewLimiter(rate.Limit(maxRequestsPerSecond), 1)
}

func (c *Client) SetTimeouts(probe, request time.Duration) {
	if probe > 0 {
		c.probeTimeout = probe
	}
	if request > 0 {
		c.requestTimeout = request
	}
}

func (c *Client) SetResolveCacheTTL(ttl time.Duration) {
	if ttl > 0 {
		c.resolved = gocache.New(ttl, 2*ttl)
	}
}

// UpdateJob asks the service to extract structured fields from the job's
// document and write them into the jobs row.
func (c *Client) UpdateJob(ctx context.Context, jobID int64) (*UpdateJobResponse, error) {
	start := time.Now()
	defer metrics.ObserveSince(metrics.ScoringRequestDuration.WithLabelValues(endpointUpdateJob), start)

	baseURL, err := c.resolve(ctx, c.jobBaseURLs, endpointUpdateJob)
	if err != nil {
		return nil, c.fail(endpointUpdateJob, err)
	}

	var form bytes.Buffer
	writer := multipart.NewWriter(&form)
	if err := writer.WriteField("job_id", strconv.FormatInt(jobID, 10)); err != nil {
		return nil, fmt.Errorf("error building form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("error building form: %w", err)
	}

	body, err := c.sendRequest(ctx, http.MethodPost, baseURL+endpointUpdateJob, &form, writer.FormDataContentType())
	if err != nil {
		return nil, c.fail(endpointUpdateJob, err)
	}

	var response UpdateJobResponse
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&response); err != nil {
		return nil, c.fail(endpointUpdateJob, malformed(err))
	}
	if response.Status != statusSuccess {
		return nil, c.fail(endpointUpdateJob, apperrors.New(apperrors.KindUpstreamError,
			"update_job returned status %q", response.Status))
	}
	return &response, nil
}

// ProcessResume asks the service to score the user's resume against the job.
// The service writes scores and acceptance into the application row itself.
func (c *Client) ProcessResume(ctx context.Context, userID string, jobID int64) (*ProcessResponse, error) {
	start := time.Now()
	defer metrics.ObserveSince(metrics.ScoringRequestDuration.WithLabelValues(endpointProcessPdfs), start)

	baseURL, err := c.resolve(ctx, c.resumeBaseURLs, endpointProcessPdfs)
	if err != nil {
		return nil, c.fail(endpointProcessPdfs, err)
	}

	payload, err := json.Marshal(processRequest{UserID: userID, JobID: jobID})
	if err != nil {
		return nil, err
	}

	body, err := c.sendRequest(ctx, http.MethodPost, baseURL+endpointProcessPdfs, bytes.NewReader(payload), "application/json")
	if err != nil {
		return nil, c.fail(endpointProcessPdfs, err)
	}

	var extra map[string]any
	if err := json.Unmarshal(body, &extra); err != nil {
		return nil, c.fail(endpointProcessPdfs, malformed(err))
	}
	response := ProcessResponse{Extra: extra}
	response.Status, _ = extra["status"].(string)
	response.Message, _ = extra["message"].(string)

	if response.Status != statusSuccess {
		return nil, c.fail(endpointProcessPdfs, apperrors.New(apperrors.KindUpstreamError,
			"process_pdfs returned status %q", response.Status))
	}
	return &response, nil
}

// Probe reports reachability of every configured candidate without using
// the resolution cache.
func (c *Client) Probe(ctx context.Context) []ProbeResult {
	var results []ProbeResult
	groups := []struct {
		bases    []string
		endpoint string
	}{
		{c.jobBaseURLs, endpointUpdateJob},
		{c.resumeBaseURLs, endpointProcessPdfs},
	}
	for _, group := range groups {
		for _, base := range group.bases {
			via, err := c.probe(ctx, base, group.endpoint)
			result := ProbeResult{BaseURL: base, Reachable: err == nil, Via: via}
			if err != nil {
				result.Error = err.Error()
			}
			results = append(results, result)
		}
	}
	return results
}

func (c *Client) resolve(ctx context.Context, candidates []string, endpoint string) (string, error) {
	if len(candidates) == 0 {
		return "", apperrors.New(apperrors.KindUpstreamUnavailable, "no base URL configured for %s", endpoint)
	}

	cacheKey := endpoint
	if value, found := c.resolved.Get(cacheKey); found {
		return value.(string), nil
	}

	var errs []error
	for _, base := range candidates {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if _, err := c.probe(ctx, base, endpoint); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", base, err))
			continue
		}
		c.resolved.Set(cacheKey, base, gocache.DefaultExpiration)
		return base, nil
	}

	return "", apperrors.Wrap(apperrors.KindUpstreamUnavailable, errors.Join(errs...),
		"scoring service is not reachable at any of %s", strings.Join(candidates, ", "))
}

// probe tries GET /health first, then an OPTIONS request on the endpoint.
// A 405 on OPTIONS still proves the route exists.
func (c *Client) probe(ctx context.Context, base, endpoint string) (string, error) {
	status, healthErr := c.probeRequest(ctx, http.MethodGet, base+endpointHealth)
	if healthErr == nil && status >= 200 && status < 300 {
		return "health", nil
	}

	status, optionsErr := c.probeRequest(ctx, http.MethodOptions, base+endpoint)
	if optionsErr == nil && (status < 300 || status == http.StatusMethodNotAllowed) {
		return "options", nil
	}

	if optionsErr != nil {
		return "", optionsErr
	}
	if healthErr != nil {
		return "", healthErr
	}
	return "", fmt.Errorf("probe returned status %d", status)
}

func (c *Client) probeRequest(ctx context.Context, method, url string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func (c *Client) sendRequest(ctx context.Context, method string, url string, body io.Reader, contentType string) ([]byte, error) {

	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return c.handleResponse(resp)
}

func (c *Client) handleResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := strings.TrimSpace(string(body))
		var parsed errorResponse
		if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
			detail = parsed.Detail
		}
		return nil, apperrors.New(apperrors.KindUpstreamError, "request failed with status %d: %s", resp.StatusCode, detail)
	}

	return body, nil
}

// fail classifies err into the upstream taxonomy and counts it.
func (c *Client) fail(endpoint string, err error) error {
	classified := classify(err)
	kind := string(apperrors.KindOf(classified))
	if kind == "" {
		kind = "other"
	}
	metrics.ScoringFailuresCounter.WithLabelValues(endpoint, kind).Inc()
	return classified
}

func classify(err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(apperrors.KindUpstreamTimeout, err, "scoring service timed out")
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.Wrap(apperrors.KindUpstreamTimeout, err, "scoring service timed out")
	}
	return apperrors.Wrap(apperrors.KindUpstreamUnavailable, err, "scoring service unreachable")
}

func malformed(err error) error {
	return apperrors.Wrap(apperrors.KindUpstreamError, err, "malformed response from scoring service")
}

func trimAll(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimRight(strings.TrimSpace(u), "/")
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}
