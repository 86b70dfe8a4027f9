package entities

import "time"

type Acceptance string

const (
	AcceptancePending  Acceptance = "pending"
	AcceptanceAccepted Acceptance = "accepted"
	AcceptanceRejected Acceptance = "rejected"
)

const ApplicationStatusPending = "pending"

// Application rows are created here with zero scores; the scoring service
// fills in the section scores, remarks and acceptance later.
type Application struct {
	ID                    int64      `gorm:"primaryKey" json:"id"`
	UserID                string     `gorm:"not null;uniqueIndex:idx_application_user_job" json:"user_id"`
	JobID                 int64      `gorm:"not null;uniqueIndex:idx_application_user_job;index" json:"job_id"`
	AppliedAt             time.Time  `gorm:"not null" json:"applied_at"`
	Status                string     `gorm:"not null;default:pending" json:"status"`
	HireabilityPercentage float64    `gorm:"not null;default:0" json:"hireability_percentage"`
	Experience            float64    `gorm:"not null;default:0" json:"experience"`
	Skills                float64    `gorm:"not null;default:0" json:"skills"`
	Education             float64    `gorm:"not null;default:0" json:"education"`
	TotalScore            float64    `gorm:"not null;default:0" json:"total_score"`
	Remarks               *string    `json:"remarks,omitempty"`
	Acceptance            Acceptance `gorm:"not null;default:pending" json:"acceptance"`
}

func (Application) TableName() string {
	return "job_applications"
}

func NewApplication(userID string, jobID int64, now time.Time) Application {
	return Application{
		UserID:     userID,
		JobID:      jobID,
		AppliedAt:  now,
		Status:     ApplicationStatusPending,
		Acceptance: AcceptancePending,
	}
}

func (a Application) IsScored() bool {
	return a.TotalScore > 0
}

// AppliedJob is a job together with the caller's own application to it.
type AppliedJob struct {
	Job         Job         `json:"job"`
	Application Application `json:"application"`
}
