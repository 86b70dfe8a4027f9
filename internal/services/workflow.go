package services

import (
	"context"
	"github.com/hrishi-sarma/codeforedtech/internal/apperrors"
	"github.com/hrishi-sarma/codeforedtech/internal/auth"
	"github.com/hrishi-sarma/codeforedtech/internal/entities"
	"github.com/hrishi-sarma/codeforedtech/internal/logger"
	"github.com/hrishi-sarma/codeforedtech/internal/metrics"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"strings"
	"time"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultPollTimeout  = 300 * time.Second
)

type State string

const (
	StateNotApplied          State = "not_applied"
	StateApplying            State = "applying"
	StateAppliedScorePending State = "applied_score_pending"
	StateAppliedScored       State = "applied_scored"
	StateAccepted            State = "accepted"
	StateRejected            State = "rejected"
)

// DeriveState maps a stored application to its workflow state. Acceptance
// wins over scores since it is only set after scoring.
func DeriveState(application *entities.Application) State {
	switch {
	case application == nil:
		return StateNotApplied
	case application.Acceptance == entities.AcceptanceAccepted:
		return StateAccepted
	case application.Acceptance == entities.AcceptanceRejected:
		return StateRejected
	case application.IsScored():
		return StateAppliedScored
	default:
		return StateAppliedScorePending
	}
}

type ApplicationView struct {
	JobID       int64                 `json:"job_id"`
	State       State                 `json:"state"`
	Message     string                `json:"message"`
	Application *entities.Application `json:"application,omitempty"`
	Tips        []string              `json:"tips,omitempty"`
}

func NewApplicationView(jobID int64, application *entities.Application) ApplicationView {
	state := DeriveState(application)
	view := ApplicationView{
		JobID:       jobID,
		State:       state,
		Message:     stateMessage(state),
		Application: application,
	}
	if application != nil && application.Remarks != nil {
		view.Tips = tips(*application.Remarks)
	}
	return view
}

func stateMessage(state State) string {
	switch state {
	case StateNotApplied:
		return "You have not applied to this job yet."
	case StateApplying:
		return "Submitting your application."
	case StateAppliedScorePending:
		return "Application submitted. Your resume is waiting to be scored."
	case StateAppliedScored:
		return "Your resume has been scored. A decision is pending."
	case StateAccepted:
		return "Congratulations, you have been shortlisted for this job."
	case StateRejected:
		return "Unfortunately you were not shortlisted for this job."
	}
	return ""
}

// tips splits the scoring remarks into separate improvement suggestions.
func tips(remarks string) []string {
	lines := strings.Split(remarks, "\n")
	return lo.FilterMap(lines, func(line string, _ int) (string, bool) {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*•"))
		return line, line != ""
	})
}

// Workflow drives a single user's application through scoring. It keeps no
// state of its own; every answer comes from a fresh read of the store.
type Workflow struct {
	applications *Applications
	rows         applicationRepository
	scorer       resumeScorer
	interval     time.Duration
	timeout      time.Duration
}

func NewWorkflow(applications *Applications, rows applicationRepository, scorer resumeScorer,
	interval, timeout time.Duration) *Workflow {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	return &Workflow{
		applications: applications,
		rows:         rows,
		scorer:       scorer,
		interval:     interval,
		timeout:      timeout,
	}
}

func (w *Workflow) Apply(ctx context.Context, identity *auth.Identity, jobID int64) (*ApplicationView, error) {
	application, err := w.applications.ApplyToJob(ctx, identity, jobID)
	if err != nil {
		return nil, err
	}
	view := NewApplicationView(jobID, application)
	return &view, nil
}

// Process asks the scoring service to score the caller's resume against the
// job and returns whatever the store holds afterwards. Scoring failures are
// returned as they are; the application row stays.
func (w *Workflow) Process(ctx context.Context, identity *auth.Identity, jobID int64) (*ApplicationView, error) {
	if identity == nil {
		return nil, apperrors.ErrUnauthenticated
	}

	application, err := w.applications.GetApplicationDetails(ctx, identity.UserID, jobID)
	if err != nil {
		return nil, err
	}
	if application == nil {
		return nil, apperrors.New(apperrors.KindNotFound, "no application to job %d", jobID)
	}

	if _, err := w.scorer.ProcessResume(ctx, identity.UserID, jobID); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeScoringApi).
			Errorf("scoring of user %s for job %d failed: %v", identity.UserID, jobID, err)
		return nil, err
	}

	return w.Status(ctx, identity, jobID)
}

func (w *Workflow) Status(ctx context.Context, identity *auth.Identity, jobID int64) (*ApplicationView, error) {
	if identity == nil {
		return nil, apperrors.ErrUnauthenticated
	}
	application, err := w.applications.GetApplicationDetails(ctx, identity.UserID, jobID)
	if err != nil {
		return nil, err
	}
	view := NewApplicationView(jobID, application)
	return &view, nil
}

// Wait polls with the controller's configured interval and timeout.
func (w *Workflow) Wait(ctx context.Context, identity *auth.Identity, jobID int64, interval, timeout time.Duration) (*ApplicationView, error) {
	if identity == nil {
		return nil, apperrors.ErrUnauthenticated
	}
	if interval <= 0 {
		interval = w.interval
	}
	if timeout <= 0 || timeout > w.timeout {
		timeout = w.timeout
	}

	application, err := w.WaitForScoreProcessing(ctx, identity.UserID, jobID, interval, timeout)
	if err != nil {
		return nil, err
	}
	if application == nil {
		return w.Status(ctx, identity, jobID)
	}
	view := NewApplicationView(jobID, application)
	return &view, nil
}

// WaitForScoreProcessing re-reads the application every interval until it
// has a positive total score. It returns nil, nil when timeout elapses first
// and ctx.Err() when ctx is done. One last read happens at the deadline.
func (w *Workflow) WaitForScoreProcessing(ctx context.Context, userID string, jobID int64,
	interval, timeout time.Duration) (*entities.Application, error) {

	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}

	start := time.Now()
	outcome := "timeout"
	defer func() {
		metrics.ScorePollDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}()

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if application := w.readScored(ctx, userID, jobID); application != nil {
			outcome = "scored"
			return application, nil
		}

		select {
		case <-ctx.Done():
			outcome = "cancelled"
			return nil, ctx.Err()
		case <-deadline.C:
			if application := w.readScored(ctx, userID, jobID); application != nil {
				outcome = "scored"
				return application, nil
			}
			return nil, nil
		case <-ticker.C:
		}
	}
}

func (w *Workflow) readScored(ctx context.Context, userID string, jobID int64) *entities.Application {
	application, err := w.rows.Get(ctx, userID, jobID)
	if err != nil {
		if ctx.Err() == nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
				Warnf("score poll read for user %s and job %d failed: %v", userID, jobID, err)
		}
		return nil
	}
	if application == nil || !application.IsScored() {
		return nil
	}
	return application
}
