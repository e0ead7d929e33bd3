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

// EventRepository persists single-day calendar events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs the repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, date, event_type, event_status, description, user_id, created_at, updated_at`

// FindByID returns a single event.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events WHERE id = $1 LIMIT 1`, eventColumns)
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find event by id: %w", err)
	}
	return &event, nil
}

// FindByUserAndDate returns the event occupying a user's day, if any.
func (r *EventRepository) FindByUserAndDate(ctx context.Context, userID string, date time.Time) (*models.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events WHERE user_id = $1 AND date = $2 LIMIT 1`, eventColumns)
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, userID, date); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find event by user and date: %w", err)
	}
	return &event, nil
}

// CountByUserTypeAndRange counts a user's events of one type inside an
// inclusive date range.
func (r *EventRepository) CountByUserTypeAndRange(ctx context.Context, userID string, eventType models.EventType, start, end time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM events WHERE user_id = $1 AND event_type = $2 AND date BETWEEN $3 AND $4`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID, string(eventType), start, end); err != nil {
		return 0, fmt.Errorf("count events in range: %w", err)
	}
	return count, nil
}

// List returns all events ordered by date.
func (r *EventRepository) List(ctx context.Context) ([]models.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events ORDER BY date ASC`, eventColumns)
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// ListByUserAndRange returns a user's events inside an inclusive range.
func (r *EventRepository) ListByUserAndRange(ctx context.Context, userID string, start, end time.Time) ([]models.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events WHERE user_id = $1 AND date BETWEEN $2 AND $3 ORDER BY date ASC`, eventColumns)
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, userID, start, end); err != nil {
		return nil, fmt.Errorf("list events by user and range: %w", err)
	}
	return events, nil
}

// Create inserts a new event. The unique index on (user_id, date)
// turns concurrent duplicates into ErrDuplicateEvent.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
	const query = `INSERT INTO events (id, date, event_type, event_status, description, user_id, created_at, updated_at)
		VALUES (:id, :date, :event_type, :event_status, :description, :user_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		if isPGViolation(err, pgUniqueViolation) {
			return ErrDuplicateEvent
		}
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// UpdateStatus transitions the approval status of an event.
func (r *EventRepository) UpdateStatus(ctx context.Context, id string, status models.EventStatus) error {
	const query = `UPDATE events SET event_status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, string(status), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update event status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated event rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an event.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM events WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted event rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
