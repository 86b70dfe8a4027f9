package services

import (
	"cmp"
	"context"
	"github.com/hrishi-sarma/codeforedtech/internal/apperrors"
	"github.com/hrishi-sarma/codeforedtech/internal/auth"
	"github.com/hrishi-sarma/codeforedtech/internal/entities"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"slices"
)

const (
	DefaultShortlistSize = 5
	analyticsConcurrency = 4
)

type AppliedJobView struct {
	entities.AppliedJob
	Progress ApplicationView `json:"progress"`
}

type StudentDashboard struct {
	HasResume     bool             `json:"has_resume"`
	Recommended   []entities.Job   `json:"recommended"`
	Applied       []AppliedJobView `json:"applied"`
	UnreadUpdates int64            `json:"unread_updates"`
}

type JobAnalytics struct {
	JobID             int64                       `json:"job_id"`
	Title             string                      `json:"title"`
	Status            entities.JobStatus          `json:"status"`
	TotalApplications int                         `json:"total_applications"`
	Scored            int                         `json:"scored"`
	AverageScore      float64                     `json:"average_score"`
	MaxScore          float64                     `json:"max_score"`
	ByAcceptance      map[entities.Acceptance]int `json:"by_acceptance"`
}

type AdminDashboard struct {
	Jobs              []entities.Job               `json:"jobs"`
	CountsByStatus    map[entities.JobStatus]int64 `json:"counts_by_status"`
	TotalApplications int64                        `json:"total_applications"`
	Analytics         []JobAnalytics               `json:"analytics"`
}

type Dashboards struct {
	applications *Applications
	profiles     profileRepository
	personal     *Personal
	jobs         jobRepository
	rows         applicationRepository
	admins       adminChecker
}

func NewDashboards(applications *Applications, profiles profileRepository, personal *Personal,
	jobs jobRepository, rows applicationRepository, admins adminChecker) *Dashboards {
	return &Dashboards{
		applications: applications,
		profiles:     profiles,
		personal:     personal,
		jobs:         jobs,
		rows:         rows,
		admins:       admins,
	}
}

func (s *Dashboards) Student(ctx context.Context, identity *auth.Identity) (*StudentDashboard, error) {
	if identity == nil {
		return nil, apperrors.ErrUnauthenticated
	}

	dashboard := &StudentDashboard{}
	var applied []entities.AppliedJob

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		profile, err := s.profiles.Get(groupCtx, identity.UserID)
		if err != nil {
			return dbError(err, "load profile")
		}
		dashboard.HasResume = profile != nil && profile.HasResume()
		return nil
	})
	group.Go(func() error {
		jobs, err := s.applications.GetRecommendedJobs(groupCtx, identity)
		dashboard.Recommended = jobs
		return err
	})
	group.Go(func() error {
		var err error
		applied, err = s.applications.GetAppliedJobs(groupCtx, identity)
		return err
	})
	group.Go(func() error {
		count, err := s.personal.CountUnreadUpdates(groupCtx, identity.UserID)
		dashboard.UnreadUpdates = count
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	dashboard.Applied = lo.Map(applied, func(a entities.AppliedJob, _ int) AppliedJobView {
		application := a.Application
		return AppliedJobView{AppliedJob: a, Progress: NewApplicationView(a.Job.ID, &application)}
	})
	return dashboard, nil
}

func (s *Dashboards) Admin(ctx context.Context, identity *auth.Identity) (*AdminDashboard, error) {
	if err := requireAdmin(ctx, s.admins, identity, "view the admin dashboard"); err != nil {
		return nil, err
	}

	dashboard := &AdminDashboard{}
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		jobs, err := s.jobs.List(groupCtx)
		if err != nil {
			return dbError(err, "list jobs")
		}
		dashboard.Jobs = jobs
		return nil
	})
	group.Go(func() error {
		counts, err := s.jobs.CountByStatus(groupCtx)
		if err != nil {
			return dbError(err, "count jobs by status")
		}
		dashboard.CountsByStatus = counts
		return nil
	})
	group.Go(func() error {
		total, err := s.rows.CountAll(groupCtx)
		if err != nil {
			return dbError(err, "count applications")
		}
		dashboard.TotalApplications = total
		return nil
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	dashboard.Analytics = make([]JobAnalytics, len(dashboard.Jobs))
	group, groupCtx = errgroup.WithContext(ctx)
	group.SetLimit(analyticsConcurrency)
	for i, job := range dashboard.Jobs {
		i, job := i, job
		group.Go(func() error {
			applications, err := s.rows.ListByJob(groupCtx, job.ID)
			if err != nil {
				return dbError(err, "list job applications")
			}
			dashboard.Analytics[i] = analyze(job, applications)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return dashboard, nil
}

func (s *Dashboards) JobAnalytics(ctx context.Context, identity *auth.Identity, jobID int64) (*JobAnalytics, error) {
	if err := requireAdmin(ctx, s.admins, identity, "view applicant analytics"); err != nil {
		return nil, err
	}
	job, err := s.applications.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	applications, err := s.rows.ListByJob(ctx, jobID)
	if err != nil {
		return nil, dbError(err, "list job applications")
	}
	analytics := analyze(*job, applications)
	return &analytics, nil
}

// Shortlist previews the top n scored applicants of a job. Nothing is
// written; acceptance decisions are made elsewhere.
func (s *Dashboards) Shortlist(ctx context.Context, identity *auth.Identity, jobID int64, n int) ([]entities.Application, error) {
	if err := requireAdmin(ctx, s.admins, identity, "view the shortlist"); err != nil {
		return nil, err
	}
	if n <= 0 {
		n = DefaultShortlistSize
	}
	if _, err := s.applications.GetJobByID(ctx, jobID); err != nil {
		return nil, err
	}
	applications, err := s.rows.ListByJob(ctx, jobID)
	if err != nil {
		return nil, dbError(err, "list job applications")
	}
	return RankApplicants(applications, n), nil
}

// RankApplicants orders scored applications by total score, then experience,
// then earliest application, and keeps the first n.
func RankApplicants(applications []entities.Application, n int) []entities.Application {
	scored := lo.Filter(applications, func(a entities.Application, _ int) bool { return a.IsScored() })
	slices.SortStableFunc(scored, func(a, b entities.Application) int {
		if c := cmp.Compare(b.TotalScore, a.TotalScore); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Experience, a.Experience); c != 0 {
			return c
		}
		return a.AppliedAt.Compare(b.AppliedAt)
	})
	if len(scored) > n {
		scored = scored[:n]
	}
	return scored
}

func analyze(job entities.Job, applications []entities.Application) JobAnalytics {
	analytics := JobAnalytics{
		JobID:             job.ID,
		Title:             job.Title,
		Status:            job.Status,
		TotalApplications: len(applications),
		ByAcceptance: map[entities.Acceptance]int{
			entities.AcceptancePending:  0,
			entities.AcceptanceAccepted: 0,
			entities.AcceptanceRejected: 0,
		},
	}
	for _, a := range applications {
		analytics.ByAcceptance[a.Acceptance]++
	}

	scores := lo.FilterMap(applications, func(a entities.Application, _ int) (float64, bool) {
		return a.TotalScore, a.IsScored()
	})
	analytics.Scored = len(scores)
	if len(scores) > 0 {
		analytics.AverageScore = lo.Sum(scores) / float64(len(scores))
		analytics.MaxScore = lo.Max(scores)
	}
	return analytics
}
