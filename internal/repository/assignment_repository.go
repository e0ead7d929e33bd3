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

// AssignmentRepository persists user-to-project assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

const assignmentDetailQuery = `
SELECT pu.id, pu.user_id, pu.project_id, pu.start_date, pu.end_date, pu.created_at, pu.updated_at,
       p.name AS project_name, p.referring_employee_id
FROM project_users pu
JOIN projects p ON p.id = pu.project_id`

// FindByID returns an assignment joined with its project.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.AssignmentDetail, error) {
	query := assignmentDetailQuery + ` WHERE pu.id = $1 LIMIT 1`
	var detail models.AssignmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find assignment by id: %w", err)
	}
	return &detail, nil
}

// FindOverlapping returns any assignment for the user whose inclusive
// range intersects [start, end].
func (r *AssignmentRepository) FindOverlapping(ctx context.Context, userID string, start, end time.Time) (*models.Assignment, error) {
	const query = `SELECT id, user_id, project_id, start_date, end_date, created_at, updated_at
FROM project_users
WHERE user_id = $1 AND start_date <= $2 AND end_date >= $3
LIMIT 1`
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, userID, end, start); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find overlapping assignment: %w", err)
	}
	return &assignment, nil
}

// FindCoveringDate returns the assignment whose range covers the given
// day, joined with the managing project.
func (r *AssignmentRepository) FindCoveringDate(ctx context.Context, userID string, date time.Time) (*models.AssignmentDetail, error) {
	query := assignmentDetailQuery + ` WHERE pu.user_id = $1 AND $2 BETWEEN pu.start_date AND pu.end_date LIMIT 1`
	var detail models.AssignmentDetail
	if err := r.db.GetContext(ctx, &detail, query, userID, date); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find assignment covering date: %w", err)
	}
	return &detail, nil
}

// List returns all assignments joined with their projects.
func (r *AssignmentRepository) List(ctx context.Context) ([]models.AssignmentDetail, error) {
	query := assignmentDetailQuery + ` ORDER BY pu.start_date DESC`
	var details []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &details, query); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return details, nil
}

// ListByUser returns one user's assignments joined with their projects.
func (r *AssignmentRepository) ListByUser(ctx context.Context, userID string) ([]models.AssignmentDetail, error) {
	query := assignmentDetailQuery + ` WHERE pu.user_id = $1 ORDER BY pu.start_date DESC`
	var details []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &details, query, userID); err != nil {
		return nil, fmt.Errorf("list assignments by user: %w", err)
	}
	return details, nil
}

// Create inserts a new assignment. The range-exclusion constraint on
// (user_id, daterange) turns concurrent overlaps into
// ErrAssignmentOverlap.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = now
	}
	assignment.UpdatedAt = now
	const query = `INSERT INTO project_users (id, user_id, project_id, start_date, end_date, created_at, updated_at)
		VALUES (:id, :user_id, :project_id, :start_date, :end_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		if isPGViolation(err, pgExclusionViolation, pgUniqueViolation) {
			return ErrAssignmentOverlap
		}
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// Delete removes an assignment.
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM project_users WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted assignment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
