package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/atempo-hq/workcal-api/internal/dto"
	"github.com/atempo-hq/workcal-api/internal/models"
	appErrors "github.com/atempo-hq/workcal-api/pkg/errors"
)

type projectRepo interface {
	FindByID(ctx context.Context, id string) (*models.Project, error)
	FindByName(ctx context.Context, name string) (*models.Project, error)
	ListActive(ctx context.Context) ([]models.Project, error)
	ListActiveByAssignedUser(ctx context.Context, userID string) ([]models.Project, error)
	HasAssignment(ctx context.Context, projectID, userID string) (bool, error)
	Create(ctx context.Context, project *models.Project) error
	Update(ctx context.Context, project *models.Project) error
}


// ProjectService manages projects and their referring employees.
type ProjectService struct {
	projects  projectRepo
	users     userReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProjectService creates a service instance.
func NewProjectService(projects projectRepo, users userReader, validate *validator.Validate, logger *zap.Logger) *ProjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectService{projects: projects, users: users, validator: validate, logger: logger}
}

// Create registers a new project under a referring employee holding at
// least the project manager role.
func (s *ProjectService) Create(ctx context.Context, req dto.CreateProjectRequest) (*models.Project, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid project payload")
	}

	referrer, err := s.loadReferrer(ctx, req.ReferringEmployeeID)
	if err != nil {
		return nil, err
	}

	if _, err := s.projects.FindByName(ctx, req.Name); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a project with this name already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check project name")
	}

	project := &models.Project{
		Name:                req.Name,
		Description:         req.Description,
		ReferringEmployeeID: referrer.ID,
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create project")
	}
	return project, nil
}

// ListForActor returns active projects: employees only see projects
// they hold an assignment on.
func (s *ProjectService) ListForActor(ctx context.Context, actor models.Actor) ([]models.Project, error) {
	var (
		projects []models.Project
		err      error
	)
	if actor.Role == models.RoleEmployee {
		projects, err = s.projects.ListActiveByAssignedUser(ctx, actor.ID)
	} else {
		projects, err = s.projects.ListActive(ctx)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list projects")
	}
	return projects, nil
}

// GetForActor returns one active project, restricting employees to
// projects they are assigned to.
func (s *ProjectService) GetForActor(ctx context.Context, actor models.Actor, id string) (*models.Project, error) {
	project, err := s.findActive(ctx, id)
	if err != nil {
		return nil, err
	}

	if actor.Role == models.RoleEmployee {
		assigned, err := s.projects.HasAssignment(ctx, id, actor.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check project access")
		}
		if !assigned {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "you do not have access to this project")
		}
	}
	return project, nil
}

// Update mutates name, description or referrer. Project managers may
// only touch their own projects.
func (s *ProjectService) Update(ctx context.Context, actor models.Actor, id string, req dto.UpdateProjectRequest) (*models.Project, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid project payload")
	}

	project, err := s.findActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleProjectManager && project.ReferringEmployeeID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "project managers can only update their own projects")
	}

	if req.Name != nil && *req.Name != project.Name {
		if existing, err := s.projects.FindByName(ctx, *req.Name); err == nil && existing.ID != id {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a project with this name already exists")
		} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check project name")
		}
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = req.Description
	}
	if req.ReferringEmployeeID != nil {
		referrer, err := s.loadReferrer(ctx, *req.ReferringEmployeeID)
		if err != nil {
			return nil, err
		}
		project.ReferringEmployeeID = referrer.ID
	}

	if err := s.projects.Update(ctx, project); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update project")
	}
	return project, nil
}

// Archive soft-hides a project from listings.
func (s *ProjectService) Archive(ctx context.Context, id string) (*models.Project, error) {
	project, err := s.projects.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project")
	}

	project.Archived = true
	if err := s.projects.Update(ctx, project); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive project")
	}
	return project, nil
}

func (s *ProjectService) findActive(ctx context.Context, id string) (*models.Project, error) {
	project, err := s.projects.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project")
	}
	if project.Archived {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
	}
	return project, nil
}

func (s *ProjectService) loadReferrer(ctx context.Context, id string) (*models.User, error) {
	referrer, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "referring employee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load referring employee")
	}
	if !referrer.Role.Privileged() {
		return nil, appErrors.Clone(appErrors.ErrInvalidOperation, "referring employee must be at least a project manager")
	}
	return referrer, nil
}
