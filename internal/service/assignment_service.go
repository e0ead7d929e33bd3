package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/atempo-hq/workcal-api/internal/dto"
	"github.com/atempo-hq/workcal-api/internal/models"
	"github.com/atempo-hq/workcal-api/internal/repository"
	"github.com/atempo-hq/workcal-api/pkg/calendar"
	appErrors "github.com/atempo-hq/workcal-api/pkg/errors"
)

type assignmentRepo interface {
	FindByID(ctx context.Context, id string) (*models.AssignmentDetail, error)
	FindOverlapping(ctx context.Context, userID string, start, end time.Time) (*models.Assignment, error)
	List(ctx context.Context) ([]models.AssignmentDetail, error)
	ListByUser(ctx context.Context, userID string) ([]models.AssignmentDetail, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id string) error
}

type projectReader interface {
	FindByID(ctx context.Context, id string) (*models.Project, error)
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}


// AssignmentService manages project assignments and the no-overlap
// rule that keeps one approval chain per user per day.
type AssignmentService struct {
	assignments assignmentRepo
	projects    projectReader
	users       userReader
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAssignmentService creates a service instance.
func NewAssignmentService(assignments assignmentRepo, projects projectReader, users userReader, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		assignments: assignments,
		projects:    projects,
		users:       users,
		validator:   validate,
		logger:      logger,
	}
}

// Create assigns a user to a project over an inclusive date range.
func (s *AssignmentService) Create(ctx context.Context, actor models.Actor, req dto.CreateAssignmentRequest) (*models.AssignmentDetail, error) {
	if actor.Role == models.RoleEmployee {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins or project managers can assign users to projects")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	start, err := calendar.ParseDay(req.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := calendar.ParseDay(req.EndDate)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not be before start_date")
	}

	project, err := s.projects.FindByID(ctx, req.ProjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project")
	}
	if actor.Role == models.RoleProjectManager && project.ReferringEmployeeID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "project managers can only assign users to their projects")
	}

	if _, err := s.users.FindByID(ctx, req.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if _, err := s.assignments.FindOverlapping(ctx, req.UserID, start, end); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "user already assigned to a project during this period")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment overlap")
	}

	assignment := &models.Assignment{
		UserID:    req.UserID,
		ProjectID: req.ProjectID,
		StartDate: start,
		EndDate:   end,
	}
	if err := s.assignments.Create(ctx, assignment); err != nil {
		if errors.Is(err, repository.ErrAssignmentOverlap) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "user already assigned to a project during this period")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}

	detail, err := s.assignments.FindByID(ctx, assignment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload assignment")
	}
	return detail, nil
}

// ListForActor returns assignments visible to the actor: employees see
// only their own.
func (s *AssignmentService) ListForActor(ctx context.Context, actor models.Actor) ([]models.AssignmentDetail, error) {
	var (
		details []models.AssignmentDetail
		err     error
	)
	if actor.Role == models.RoleEmployee {
		details, err = s.assignments.ListByUser(ctx, actor.ID)
	} else {
		details, err = s.assignments.List(ctx)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return details, nil
}

// GetForActor returns one assignment, restricting employees to their own.
func (s *AssignmentService) GetForActor(ctx context.Context, actor models.Actor, id string) (*models.AssignmentDetail, error) {
	detail, err := s.assignments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if actor.Role == models.RoleEmployee && detail.UserID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you do not have access to this assignment")
	}
	return detail, nil
}

// Remove deletes an assignment. Admins may remove any; project
// managers only those of their own projects.
func (s *AssignmentService) Remove(ctx context.Context, actor models.Actor, id string) error {
	if actor.Role == models.RoleEmployee {
		return appErrors.Clone(appErrors.ErrForbidden, "only admins or project managers can remove assignments")
	}

	detail, err := s.assignments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if actor.Role == models.RoleProjectManager && detail.ReferringEmployeeID != actor.ID {
		return appErrors.Clone(appErrors.ErrForbidden, "project managers can only remove assignments of their projects")
	}

	if err := s.assignments.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}
	return nil
}
