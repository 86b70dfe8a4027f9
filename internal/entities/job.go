package entities

import (
	"time"

	"gorm.io/datatypes"
)

type JobStatus string

const (
	JobProcessing JobStatus = "processing"
	JobInactive   JobStatus = "inactive"
	JobActive     JobStatus = "active"
)

func (s JobStatus) Valid() bool {
	switch s {
	case JobProcessing, JobInactive, JobActive:
		return true
	}
	return false
}

type Job struct {
	ID                  int64             `gorm:"primaryKey" json:"id"`
	Title               string            `gorm:"not null" json:"title"`
	DetailedDescription string            `json:"detailed_description"`
	Criteria            string            `json:"criteria"`
	Status              JobStatus         `gorm:"not null;default:processing;index" json:"status"`
	ApplicationsCount   int64             `gorm:"not null;default:0" json:"applications_count"`
	CompanyName         string            `json:"company_name"`
	SalaryRange         *string           `json:"salary_range,omitempty"`
	Extracted           datatypes.JSONMap `json:"extracted,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

func (Job) TableName() string {
	return "jobs"
}

func (j Job) AcceptsApplications() bool {
	return j.Status == JobActive
}

// JobDocument is a file attached to a job and stored in the job-pdfs bucket.
type JobDocument struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	JobID     int64     `gorm:"not null;index" json:"job_id"`
	FileName  string    `gorm:"not null" json:"file_name"`
	JobPdfURL string    `gorm:"column:job_pdf_url;not null" json:"job_pdf_url"`
	FileSize  *int64    `json:"file_size,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (JobDocument) TableName() string {
	return "job_pdfs"
}
