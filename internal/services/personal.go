package services

import (
	"context"
	"fmt"
	"github.com/asaskevich/EventBus"
	"github.com/go-playground/validator/v10"
	"github.com/hrishi-sarma/codeforedtech/internal/apperrors"
	"github.com/hrishi-sarma/codeforedtech/internal/auth"
	"github.com/hrishi-sarma/codeforedtech/internal/entities"
	"github.com/hrishi-sarma/codeforedtech/internal/events"
	"github.com/hrishi-sarma/codeforedtech/internal/logger"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"strings"
	"time"
)

type noteRepository interface {
	Add(ctx context.Context, note *entities.Note) error
	GetByUser(ctx context.Context, userID string) ([]entities.Note, error)
	Remove(ctx context.Context, userID string, id int64) (bool, error)
}

type updateRepository interface {
	Add(ctx context.Context, update *entities.Update) error
	GetByUser(ctx context.Context, userID string) ([]entities.Update, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID string, id int64) (bool, error)
}

type taskRepository interface {
	Add(ctx context.Context, task *entities.Task) error
	GetByUser(ctx context.Context, userID string) ([]entities.Task, error)
	Complete(ctx context.Context, userID string, id int64) (bool, error)
}

type NoteInput struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"max=10000"`
}

type TaskInput struct {
	Title string     `json:"title" validate:"required,max=200"`
	DueAt *time.Time `json:"due_at"`
}

// Personal holds the per-user notes, updates and tasks. Every lookup is
// scoped to the caller so one user can never touch another user's rows.
type Personal struct {
	notes    noteRepository
	updates  updateRepository
	tasks    taskRepository
	jobs     jobRepository
	validate *validator.Validate
}

func NewPersonal(notes noteRepository, updates updateRepository, tasks taskRepository, jobs jobRepository) *Personal {
	return &Personal{
		notes:    notes,
		updates:  updates,
		tasks:    tasks,
		jobs:     jobs,
		validate: validator.New(),
	}
}

func (s *Personal) AddNote(ctx context.Context, identity *auth.Identity, input NoteInput) (*entities.Note, error) {
	if identity == nil {
		return nil, apperrors.ErrUnauthenticated
	}
	input.Title = strings.TrimSpace(input.Title)
	if err := s.validate.Struct(input); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, err, "invalid note")
	}
	note := &entities.Note{UserID: identity.UserID, Title: input.Title, Content: input.Content}
	if err := s.notes.Add(ctx, note); err != nil {
		return nil, dbError(err, "add note")
	}
	return note, nil
}

func (s *Personal) GetNotes(ctx context.Context, identity *auth.Identity) ([]entities.Note, error) {
	if identity == nil {
		return nil, apperrors.ErrUnauthenticated
	}
	notes, err := s.notes.GetByUser(ctx, identity.UserID)
	if err != nil {
		return nil, dbError(err, "list notes")
	}
	return notes, nil
}

func (s *Personal) RemoveNote(ctx context.Context, identity *auth.Identity, id int64) error {
	if identity == nil {
		return apperrors.ErrUnauthenticated
	}
	removed, err := s.notes.Remove(ctx, identity.UserID, id)
	if err != nil {
		return dbError(err, "remove note")
	}
	if !removed {
		return apperrors.New(apperrors.KindNotFound, "note %d not found", id)
	}
	return nil
}

func (s *Personal) GetUpdates(ctx context.Context, identity *auth.Identity) ([]entities.Update, error) {
	if identity == nil {
		return nil, apperrors.ErrUnauthenticated
	}
	updates, err := s.updates.GetByUser(ctx, identity.UserID)
	if err != nil {
		return nil, dbError(err, "list updates")
	}
	return updates, nil
}

func (s *Personal) CountUnreadUpdates(ctx context.Context, userID string) (int64, error) {
	count, err := s.updates.CountUnread(ctx, userID)
	if err != nil {
		return 0, dbError(err, "count unread updates")
	}
	return count, nil
}

func (s *Personal) MarkUpdateRead(ctx context.Context, identity *auth.Identity, id int64) error {
	if identity == nil {
		return apperrors.ErrUnauthenticated
	}
	found, err := s.updates.MarkRead(ctx, identity.UserID, id)
	if err != nil {
		return dbError(err, "mark update read")
	}
	if !found {
		return apperrors.New(apperrors.KindNotFound, "update %d not found", id)
	}
	return nil
}

func (s *Personal) AddTask(ctx context.Context, identity *auth.Identity, input TaskInput) (*entities.Task, error) {
	if identity == nil {
		return nil, apperrors.ErrUnauthenticated
	}
	input.Title = strings.TrimSpace(input.Title)
	if err := s.validate.Struct(input); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, err, "invalid task")
	}
	task := &entities.Task{UserID: identity.UserID, Title: input.Title, DueAt: input.DueAt}
	if err := s.tasks.Add(ctx, task); err != nil {
		return nil, dbError(err, "add task")
	}
	return task, nil
}

func (s *Personal) GetTasks(ctx context.Context, identity *auth.Identity) ([]entities.Task, error) {
	if identity == nil {
		return nil, apperrors.ErrUnauthenticated
	}
	tasks, err := s.tasks.GetByUser(ctx, identity.UserID)
	if err != nil {
		return nil, dbError(err, "list tasks")
	}
	return tasks, nil
}

func (s *Personal) CompleteTask(ctx context.Context, identity *auth.Identity, id int64) error {
	if identity == nil {
		return apperrors.ErrUnauthenticated
	}
	found, err := s.tasks.Complete(ctx, identity.UserID, id)
	if err != nil {
		return dbError(err, "complete task")
	}
	if !found {
		return apperrors.New(apperrors.KindNotFound, "task %d not found", id)
	}
	return nil
}

// SubscribeToApplications posts an update to the applicant's feed for every
// new application.
func (s *Personal) SubscribeToApplications(bus EventBus.Bus) error {
	if err := bus.SubscribeAsync(events.ApplicationCreatedTopic, s.onApplicationCreated, false); err != nil {
		return errors.Wrap(err, "failed to subscribe to application events")
	}
	return nil
}

func (s *Personal) onApplicationCreated(event events.ApplicationCreated) {
	ctx, cancel := context.WithTimeout(context.Background(), resyncTimeout)
	defer cancel()

	message := fmt.Sprintf("Your application to job #%d was received.", event.JobID)
	if job, err := s.jobs.GetByID(ctx, event.JobID); err == nil && job != nil {
		message = fmt.Sprintf("Your application to %q was received.", job.Title)
	}

	if err := s.updates.Add(ctx, &entities.Update{UserID: event.UserID, Message: message}); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to post application update for user %s: %v", event.UserID, err)
	}
}
