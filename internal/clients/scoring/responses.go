package scoring

type UpdateJobResponse struct {
	Status         string           `json:"status"`
	JobID          int64            `json:"job_id"`
	UpdatedRow     []map[string]any `json:"updated_row"`
	StructuredJSON map[string]any   `json:"structured_json"`
}

type ProcessResponse struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Extra   map[string]any `json:"-"`
}

type processRequest struct {
	UserID string `json:"user_id"`
	JobID  int64  `json:"job_id"`
}

// errorResponse is the body returned by the service on non-2xx statuses.
type errorResponse struct {
	Detail string `json:"detail"`
}

type ProbeResult struct {
	BaseURL   string `json:"base_url"`
	Reachable bool   `json:"reachable"`
	Via       string `json:"via,omitempty"`
	Error     string `json:"error,omitempty"`
}

const statusSuccess = "success"
