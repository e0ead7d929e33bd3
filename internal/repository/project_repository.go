package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/atempo-hq/workcal-api/internal/models"
)

// ProjectRepository persists projects.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository constructs the repository.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectColumns = `id, name, description, referring_employee_id, archived, created_at, updated_at`

// FindByID returns a project regardless of its archived flag.
func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*models.Project, error) {
	query := fmt.Sprintf(`SELECT %s FROM projects WHERE id = $1 LIMIT 1`, projectColumns)
	var project models.Project
	if err := r.db.GetContext(ctx, &project, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find project by id: %w", err)
	}
	return &project, nil
}

// FindByName returns a project by its unique name.
func (r *ProjectRepository) FindByName(ctx context.Context, name string) (*models.Project, error) {
	query := fmt.Sprintf(`SELECT %s FROM projects WHERE name = $1 LIMIT 1`, projectColumns)
	var project models.Project
	if err := r.db.GetContext(ctx, &project, query, name); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find project by name: %w", err)
	}
	return &project, nil
}

// ListActive returns unarchived projects, newest first.
func (r *ProjectRepository) ListActive(ctx context.Context) ([]models.Project, error) {
	query := fmt.Sprintf(`SELECT %s FROM projects WHERE archived = FALSE ORDER BY created_at DESC`, projectColumns)
	var projects []models.Project
	if err := r.db.SelectContext(ctx, &projects, query); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// ListActiveByAssignedUser returns the unarchived projects a user is
// assigned to.
func (r *ProjectRepository) ListActiveByAssignedUser(ctx context.Context, userID string) ([]models.Project, error) {
	const query = `
SELECT DISTINCT p.id, p.name, p.description, p.referring_employee_id, p.archived, p.created_at, p.updated_at
FROM projects p
JOIN project_users pu ON pu.project_id = p.id
WHERE pu.user_id = $1 AND p.archived = FALSE
ORDER BY p.created_at DESC`
	var projects []models.Project
	if err := r.db.SelectContext(ctx, &projects, query, userID); err != nil {
		return nil, fmt.Errorf("list projects by assigned user: %w", err)
	}
	return projects, nil
}

// HasAssignment reports whether the user holds any assignment on the project.
func (r *ProjectRepository) HasAssignment(ctx context.Context, projectID, userID string) (bool, error) {
	const query = `SELECT 1 FROM project_users WHERE project_id = $1 AND user_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, projectID, userID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check project assignment: %w", err)
	}
	return true, nil
}

// Create inserts a new project.
func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) error {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	project.UpdatedAt = now
	const query = `INSERT INTO projects (id, name, description, referring_employee_id, archived, created_at, updated_at)
		VALUES (:id, :name, :description, :referring_employee_id, :archived, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, project); err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// Update persists name, description, referrer and archived flag.
func (r *ProjectRepository) Update(ctx context.Context, project *models.Project) error {
	project.UpdatedAt = time.Now().UTC()
	const query = `UPDATE projects SET name = :name, description = :description,
		referring_employee_id = :referring_employee_id, archived = :archived, updated_at = :updated_at
		WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, project)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated project rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
