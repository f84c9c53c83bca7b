package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	mqcontract "todoapp/contracts/mq"
	"todoapp/internal/authz"
	"todoapp/internal/model"
	"todoapp/pkg/logger"
	"todoapp/pkg/metrics"
)

// TaskStore is implemented by the PostgreSQL and SQLite repositories.
// UpdateCompleted and Delete only touch rows still owned by userID.
type TaskStore interface {
	Insert(ctx context.Context, t *model.Task) error
	FindByID(ctx context.Context, id int) (*model.Task, error)
	ListByUser(ctx context.Context, userID int) ([]model.Task, error)
	ListPendingDue(ctx context.Context, userID int, due model.DueRange) ([]model.Task, error)
	ListCompleted(ctx context.Context, userID int) ([]model.Task, error)
	UpdateCompleted(ctx context.Context, id, userID int, completed bool) (*model.Task, error)
	Delete(ctx context.Context, id, userID int) error
}

// EventPublisher receives task lifecycle events. Delivery is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, any) error { return nil }

// Classification is every bucket of one user's tasks, computed against one instant.
type Classification struct {
	All       []model.Task `json:"allTodos"`
	Overdue   []model.Task `json:"overdue"`
	DueToday  []model.Task `json:"dueToday"`
	DueLater  []model.Task `json:"dueLater"`
	Completed []model.Task `json:"completedItems"`
}

// StatusTask is a task annotated with its bucket.
type StatusTask struct {
	model.Task
	Status string `json:"status"`
}

type TodoService struct {
	store      TaskStore
	events     EventPublisher
	classifier Classifier
	now        func() time.Time
	logger     *zap.Logger
}

func NewTodoService(store TaskStore, events EventPublisher, classifier Classifier, logger *zap.Logger) *TodoService {
	if events == nil {
		events = nopPublisher{}
	}
	return &TodoService{
		store:      store,
		events:     events,
		classifier: classifier,
		now:        time.Now,
		logger:     logger,
	}
}

// SetClock replaces the time source used for classification.
func (s *TodoService) SetClock(now func() time.Time) {
	s.now = now
}

// AddTask creates a pending task for ownerID.
func (s *TodoService) AddTask(ctx context.Context, ownerID int, title string, dueDate time.Time) (*model.Task, error) {
	var verr model.ValidationError
	title = strings.TrimSpace(title)
	if title == "" {
		verr.Add("title", "Title is required")
	}
	if dueDate.IsZero() {
		verr.Add("dueDate", "Due date is required")
	}
	return s.add(ctx, ownerID, title, dueDate, verr)
}

// AddTaskFromInput parses a submitted due date and reports title and date
// problems together.
func (s *TodoService) AddTaskFromInput(ctx context.Context, ownerID int, title, dueDate string) (*model.Task, error) {
	var (
		verr model.ValidationError
		due  time.Time
	)
	title = strings.TrimSpace(title)
	if title == "" {
		verr.Add("title", "Title is required")
	}
	if dueDate = strings.TrimSpace(dueDate); dueDate == "" {
		verr.Add("dueDate", "Due date is required")
	} else if parsed, err := s.classifier.ParseDueDate(dueDate); err != nil {
		verr.Add("dueDate", "Due date is not a valid date")
	} else {
		due = parsed
	}
	return s.add(ctx, ownerID, title, due, verr)
}

func (s *TodoService) add(ctx context.Context, ownerID int, title string, due time.Time, verr model.ValidationError) (*model.Task, error) {
	log := logger.WithTrace(ctx, s.logger)
	if err := authz.RequireRequester(ownerID); err != nil {
		s.record("add", err)
		return nil, err
	}
	if err := verr.OrNil(); err != nil {
		s.record("add", err)
		return nil, err
	}

	t := &model.Task{
		Title:     title,
		DueDate:   model.NormalizeTime(due),
		Completed: false,
		UserID:    ownerID,
	}
	if err := s.store.Insert(ctx, t); err != nil {
		s.record("add", err)
		return nil, err
	}
	s.record("add", nil)
	log.Info("Todo created", zap.Int("todo_id", t.ID), zap.Int("user_id", ownerID))

	s.publish(ctx, mqcontract.RoutingTodoCreated, mqcontract.TodoCreatedPayload{
		TodoID:  t.ID,
		UserID:  t.UserID,
		Title:   t.Title,
		DueDate: t.DueDate,
	})
	return t, nil
}

// ListTasks returns every task of ownerID ordered by id.
func (s *TodoService) ListTasks(ctx context.Context, ownerID int) ([]model.Task, error) {
	if err := authz.RequireRequester(ownerID); err != nil {
		return nil, err
	}
	return s.store.ListByUser(ctx, ownerID)
}

func (s *TodoService) Overdue(ctx context.Context, ownerID int) ([]model.Task, error) {
	overdue, _, _ := s.classifier.Windows(s.now())
	return s.pending(ctx, ownerID, overdue)
}

func (s *TodoService) DueToday(ctx context.Context, ownerID int) ([]model.Task, error) {
	_, today, _ := s.classifier.Windows(s.now())
	return s.pending(ctx, ownerID, today)
}

func (s *TodoService) DueLater(ctx context.Context, ownerID int) ([]model.Task, error) {
	_, _, later := s.classifier.Windows(s.now())
	return s.pending(ctx, ownerID, later)
}

func (s *TodoService) CompletedItems(ctx context.Context, ownerID int) ([]model.Task, error) {
	if err := authz.RequireRequester(ownerID); err != nil {
		return nil, err
	}
	return s.store.ListCompleted(ctx, ownerID)
}

func (s *TodoService) pending(ctx context.Context, ownerID int, r model.DueRange) ([]model.Task, error) {
	if err := authz.RequireRequester(ownerID); err != nil {
		return nil, err
	}
	return s.store.ListPendingDue(ctx, ownerID, r)
}

// Classify runs every classification query against the same instant.
func (s *TodoService) Classify(ctx context.Context, ownerID int) (*Classification, error) {
	if err := authz.RequireRequester(ownerID); err != nil {
		return nil, err
	}
	overdueR, todayR, laterR := s.classifier.Windows(s.now())

	var (
		c   Classification
		err error
	)
	if c.All, err = s.store.ListByUser(ctx, ownerID); err != nil {
		return nil, err
	}
	if c.Overdue, err = s.store.ListPendingDue(ctx, ownerID, overdueR); err != nil {
		return nil, err
	}
	if c.DueToday, err = s.store.ListPendingDue(ctx, ownerID, todayR); err != nil {
		return nil, err
	}
	if c.DueLater, err = s.store.ListPendingDue(ctx, ownerID, laterR); err != nil {
		return nil, err
	}
	if c.Completed, err = s.store.ListCompleted(ctx, ownerID); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListWithStatus returns all of ownerID's tasks, each tagged with its bucket.
func (s *TodoService) ListWithStatus(ctx context.Context, ownerID int) ([]StatusTask, error) {
	tasks, err := s.ListTasks(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]StatusTask, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, StatusTask{Task: t, Status: s.classifier.StatusOf(t, now)})
	}
	return out, nil
}

// Task loads a task for requesterID. Missing tasks yield model.ErrNotFound,
// other users' tasks an *authz.AuthorizationError.
func (s *TodoService) Task(ctx context.Context, id, requesterID int) (*model.Task, error) {
	if err := authz.RequireRequester(requesterID); err != nil {
		return nil, err
	}
	t, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireOwner(t, requesterID); err != nil {
		return nil, err
	}
	return t, nil
}

// SetCompletionStatus flips the completed flag of t if requesterID owns it.
func (s *TodoService) SetCompletionStatus(ctx context.Context, t *model.Task, completed bool, requesterID int) (*model.Task, error) {
	log := logger.WithTrace(ctx, s.logger)
	if err := authz.RequireOwner(t, requesterID); err != nil {
		s.record("set_completion", err)
		log.Warn("Rejected completion change",
			zap.Int("user_id", requesterID),
			zap.Error(err),
		)
		return nil, err
	}

	updated, err := s.store.UpdateCompleted(ctx, t.ID, requesterID, completed)
	if err != nil {
		s.record("set_completion", err)
		return nil, err
	}
	s.record("set_completion", nil)
	log.Info("Todo completion changed",
		zap.Int("todo_id", updated.ID),
		zap.Bool("completed", completed),
	)

	s.publish(ctx, mqcontract.RoutingTodoCompletionChanged, mqcontract.TodoCompletionChangedPayload{
		TodoID:    updated.ID,
		UserID:    updated.UserID,
		Completed: updated.Completed,
	})
	return updated, nil
}

// RemoveTask deletes t if requesterID owns it.
func (s *TodoService) RemoveTask(ctx context.Context, t *model.Task, requesterID int) error {
	log := logger.WithTrace(ctx, s.logger)
	if err := authz.RequireOwner(t, requesterID); err != nil {
		s.record("remove", err)
		log.Warn("Rejected todo removal",
			zap.Int("user_id", requesterID),
			zap.Error(err),
		)
		return err
	}

	if err := s.store.Delete(ctx, t.ID, requesterID); err != nil {
		s.record("remove", err)
		return err
	}
	s.record("remove", nil)
	log.Info("Todo removed", zap.Int("todo_id", t.ID))

	s.publish(ctx, mqcontract.RoutingTodoRemoved, mqcontract.TodoRemovedPayload{
		TodoID: t.ID,
		UserID: t.UserID,
	})
	return nil
}

func (s *TodoService) publish(ctx context.Context, routingKey string, payload any) {
	if err := s.events.Publish(ctx, routingKey, payload); err != nil {
		logger.WithTrace(ctx, s.logger).Warn("Failed to publish todo event",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
	}
}

func (s *TodoService) record(op string, err error) {
	metrics.IncrementTodoOperation(op, resultLabel(err))
}

func resultLabel(err error) string {
	var verr *model.ValidationError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &verr):
		return "invalid"
	case authz.IsForbidden(err):
		return "forbidden"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
