package server

import (
	"github.com/gin-gonic/gin"
	"github.com/hrishi-sarma/codeforedtech/internal/apperrors"
	"github.com/hrishi-sarma/codeforedtech/internal/entities"
	"github.com/hrishi-sarma/codeforedtech/internal/services"
	"net/http"
	"strconv"
	"time"
)

type credentials struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) signUp(c *gin.Context) {
	var request credentials
	if err := c.ShouldBindJSON(&request); err != nil {
		abortWithError(c, apperrors.Wrap(apperrors.KindValidation, err, "email and password are required"))
		return
	}
	session, err := s.deps.Auth.SignUp(c.Request.Context(), request.Email, request.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (s *Server) signIn(c *gin.Context) {
	var request credentials
	if err := c.ShouldBindJSON(&request); err != nil {
		abortWithError(c, apperrors.Wrap(apperrors.KindValidation, err, "email and password are required"))
		return
	}
	session, err := s.deps.Auth.SignIn(c.Request.Context(), request.Email, request.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (s *Server) signOut(c *gin.Context) {
	if err := s.deps.Auth.SignOut(currentIdentity(c)); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Signed out"})
}

func (s *Server) me(c *gin.Context) {
	profile, err := s.deps.Auth.Profile(c.Request.Context(), currentIdentity(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) recommendedJobs(c *gin.Context) {
	jobs, err := s.deps.Applications.GetRecommendedJobs(c.Request.Context(), currentIdentity(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, jobs)
}

func (s *Server) appliedJobs(c *gin.Context) {
	applied, err := s.deps.Applications.GetAppliedJobs(c.Request.Context(), currentIdentity(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, applied)
}

func (s *Server) getJob(c *gin.Context) {
	jobID, err := pathID(c, "id")
	if err != nil {
		abortWithError(c, err)
		return
	}
	job, err := s.deps.Applications.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) apply(c *gin.Context) {
	jobID, err := pathID(c, "job_id")
	if err != nil {
		abortWithError(c, err)
		return
	}
	view, err := s.deps.Workflow.Apply(c.Request.Context(), currentIdentity(c), jobID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (s *Server) applicationStatus(c *gin.Context) {
	jobID, err := pathID(c, "job_id")
	if err != nil {
		abortWithError(c, err)
		return
	}
	view, err := s.deps.Workflow.Status(c.Request.Context(), currentIdentity(c), jobID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) processApplication(c *gin.Context) {
	jobID, err := pathID(c, "job_id")
	if err != nil {
		abortWithError(c, err)
		return
	}
	view, err := s.deps.Workflow.Process(c.Request.Context(), currentIdentity(c), jobID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// waitForScore long-polls until the application is scored. The wait ends as
// soon as the client disconnects.
func (s *Server) waitForScore(c *gin.Context) {
	jobID, err := pathID(c, "job_id")
	if err != nil {
		abortWithError(c, err)
		return
	}
	interval, err := durationQuery(c, "interval")
	if err != nil {
		abortWithError(c, err)
		return
	}
	timeout, err := durationQuery(c, "timeout")
	if err != nil {
		abortWithError(c, err)
		return
	}
	if timeout > s.config.MaxPollTimeout {
		timeout = s.config.MaxPollTimeout
	}

	view, err := s.deps.Workflow.Wait(c.Request.Context(), currentIdentity(c), jobID, interval, timeout)
	if err != nil {
		if c.Request.Context().Err() != nil {
			c.Abort()
			return
		}
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func durationQuery(c *gin.Context, name string) (time.Duration, error) {
	value := c.Query(name)
	if value == "" {
		return 0, nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil || duration < 0 {
		return 0, apperrors.New(apperrors.KindValidation, "invalid %s %q", name, value)
	}
	return duration, nil
}

func (s *Server) uploadResume(c *gin.Context) {
	upload, closeFile, err := formUpload(c, "resume", true)
	defer closeFile()
	if err != nil {
		abortWithError(c, err)
		return
	}
	profile, err := s.deps.Resumes.UploadResume(c.Request.Context(), currentIdentity(c), upload)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) downloadResume(c *gin.Context) {
	file, err := s.deps.Resumes.GetResume(c.Request.Context(), currentIdentity(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	defer file.Content.Close()

	c.DataFromReader(http.StatusOK, -1, file.ContentType, file.Content, map[string]string{
		"Content-Disposition": `attachment; filename="` + file.FileName + `"`,
	})
}

func (s *Server) deleteResume(c *gin.Context) {
	if err := s.deps.Resumes.RemoveResume(c.Request.Context(), currentIdentity(c)); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listNotes(c *gin.Context) {
	notes, err := s.deps.Personal.GetNotes(c.Request.Context(), currentIdentity(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, notes)
}

func (s *Server) addNote(c *gin.Context) {
	var input services.NoteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithError(c, apperrors.Wrap(apperrors.KindValidation, err, "invalid note"))
		return
	}
	note, err := s.deps.Personal.AddNote(c.Request.Context(), currentIdentity(c), input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

func (s *Server) removeNote(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		abortWithError(c, err)
		return
	}
	if err := s.deps.Personal.RemoveNote(c.Request.Context(), currentIdentity(c), id); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listUpdates(c *gin.Context) {
	updates, err := s.deps.Personal.GetUpdates(c.Request.Context(), currentIdentity(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, updates)
}

func (s *Server) markUpdateRead(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		abortWithError(c, err)
		return
	}
	if err := s.deps.Personal.MarkUpdateRead(c.Request.Context(), currentIdentity(c), id); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listTasks(c *gin.Context) {
	tasks, err := s.deps.Personal.GetTasks(c.Request.Context(), currentIdentity(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (s *Server) addTask(c *gin.Context) {
	var input services.TaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithError(c, apperrors.Wrap(apperrors.KindValidation, err, "invalid task"))
		return
	}
	task, err := s.deps.Personal.AddTask(c.Request.Context(), currentIdentity(c), input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (s *Server) completeTask(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		abortWithError(c, err)
		return
	}
	if err := s.deps.Personal.CompleteTask(c.Request.Context(), currentIdentity(c), id); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) studentDashboard(c *gin.Context) {
	dashboard, err := s.deps.Dashboards.Student(c.Request.Context(), currentIdentity(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

func (s *Server) adminDashboard(c *gin.Context) {
	dashboard, err := s.deps.Dashboards.Admin(c.Request.Context(), currentIdentity(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

func (s *Server) listJobs(c *gin.Context) {
	jobs, err := s.deps.Jobs.ListJobs(c.Request.Context(), currentIdentity(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, jobs)
}

type createJobResponse struct {
	Job      *entities.Job         `json:"job"`
	Document *entities.JobDocument `json:"document,omitempty"`
}

func (s *Server) createJob(c *gin.Context) {
	var input services.NewJobInput
	if err := c.ShouldBind(&input); err != nil {
		abortWithError(c, apperrors.Wrap(apperrors.KindValidation, err, "invalid job"))
		return
	}
	upload, closeFile, err := formUpload(c, "document", false)
	defer closeFile()
	if err != nil {
		abortWithError(c, err)
		return
	}

	job, document, err := s.deps.Jobs.CreateNewJobWithPdf(c.Request.Context(), currentIdentity(c), input, upload)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, createJobResponse{Job: job, Document: document})
}

type statusRequest struct {
	Status entities.JobStatus `json:"status" binding:"required"`
}

func (s *Server) setJobStatus(c *gin.Context) {
	jobID, err := pathID(c, "id")
	if err != nil {
		abortWithError(c, err)
		return
	}
	var request statusRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		abortWithError(c, apperrors.Wrap(apperrors.KindValidation, err, "status is required"))
		return
	}
	job, err := s.deps.Jobs.SetJobStatus(c.Request.Context(), currentIdentity(c), jobID, request.Status)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) deleteJob(c *gin.Context) {
	jobID, err := pathID(c, "id")
	if err != nil {
		abortWithError(c, err)
		return
	}
	if err := s.deps.Jobs.DeleteJobWithPdfs(c.Request.Context(), currentIdentity(c), jobID); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listJobDocuments(c *gin.Context) {
	jobID, err := pathID(c, "id")
	if err != nil {
		abortWithError(c, err)
		return
	}
	documents, err := s.deps.Jobs.ListJobDocuments(c.Request.Context(), jobID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, documents)
}

func (s *Server) uploadJobDocument(c *gin.Context) {
	jobID, err := pathID(c, "id")
	if err != nil {
		abortWithError(c, err)
		return
	}
	upload, closeFile, err := formUpload(c, "document", true)
	defer closeFile()
	if err != nil {
		abortWithError(c, err)
		return
	}
	document, err := s.deps.Jobs.UploadJobDocument(c.Request.Context(), currentIdentity(c), jobID, upload)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, document)
}

func (s *Server) deleteJobDocument(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		abortWithError(c, err)
		return
	}
	if err := s.deps.Jobs.DeleteJobDocument(c.Request.Context(), currentIdentity(c), id); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) ingestJob(c *gin.Context) {
	jobID, err := pathID(c, "id")
	if err != nil {
		abortWithError(c, err)
		return
	}
	job, err := s.deps.Jobs.IngestJob(c.Request.Context(), currentIdentity(c), jobID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) jobAnalytics(c *gin.Context) {
	jobID, err := pathID(c, "id")
	if err != nil {
		abortWithError(c, err)
		return
	}
	analytics, err := s.deps.Dashboards.JobAnalytics(c.Request.Context(), currentIdentity(c), jobID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, analytics)
}

func (s *Server) shortlist(c *gin.Context) {
	jobID, err := pathID(c, "id")
	if err != nil {
		abortWithError(c, err)
		return
	}
	n := s.shortlistSize
	if value := c.Query("n"); value != "" {
		n, err = strconv.Atoi(value)
		if err != nil || n <= 0 {
			abortWithError(c, apperrors.New(apperrors.KindValidation, "n must be a positive number"))
			return
		}
	}
	shortlist, err := s.deps.Dashboards.Shortlist(c.Request.Context(), currentIdentity(c), jobID, n)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, shortlist)
}

func (s *Server) resyncCounts(c *gin.Context) {
	var jobID *int64
	if value := c.Query("job_id"); value != "" {
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil || id <= 0 {
			abortWithError(c, apperrors.New(apperrors.KindValidation, "invalid job_id"))
			return
		}
		jobID = &id
	}
	report, err := s.deps.Jobs.ResyncCounts(c.Request.Context(), currentIdentity(c), jobID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
