package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/atempo-hq/workcal-api/internal/dto"
	"github.com/atempo-hq/workcal-api/internal/models"
	"github.com/atempo-hq/workcal-api/internal/repository"
	"github.com/atempo-hq/workcal-api/pkg/calendar"
	appErrors "github.com/atempo-hq/workcal-api/pkg/errors"
)

// remoteWeeklyQuota caps remote work events per user per ISO week.
const remoteWeeklyQuota = 2

// acceptedLeaveNoticeDays is the minimum notice, in days, for an owner
// to cancel an already accepted paid leave.
const acceptedLeaveNoticeDays = 7

type eventRepo interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
	FindByUserAndDate(ctx context.Context, userID string, date time.Time) (*models.Event, error)
	CountByUserTypeAndRange(ctx context.Context, userID string, eventType models.EventType, start, end time.Time) (int, error)
	List(ctx context.Context) ([]models.Event, error)
	Create(ctx context.Context, event *models.Event) error
	UpdateStatus(ctx context.Context, id string, status models.EventStatus) error
	Delete(ctx context.Context, id string) error
}

type assignmentResolver interface {
	FindCoveringDate(ctx context.Context, userID string, date time.Time) (*models.AssignmentDetail, error)
}

type voucherCacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}


// EventService enforces the calendar event rules: one event per user
// per day, the weekly remote work quota, and the paid leave approval
// workflow.
type EventService struct {
	events      eventRepo
	assignments assignmentResolver
	cache       voucherCacheInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewEventService creates a service instance.
func NewEventService(events eventRepo, assignments assignmentResolver, cache voucherCacheInvalidator, validate *validator.Validate, logger *zap.Logger) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{
		events:      events,
		assignments: assignments,
		cache:       cache,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// Create records a new event for the acting user. Remote work is
// self-service and capped by the weekly quota; paid leave requested by
// an employee starts pending, privileged actors auto-approve.
func (s *EventService) Create(ctx context.Context, actor models.Actor, req dto.CreateEventRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	if !req.Type.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown event type")
	}

	day, err := calendar.ParseDay(req.Date)
	if err != nil {
		return nil, err
	}

	if _, err := s.events.FindByUserAndDate(ctx, actor.ID, day); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "an event already exists for this user on the selected date")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check event uniqueness")
	}

	if req.Type == models.EventRemoteWork {
		weekStart, weekEnd := calendar.WeekBounds(day)
		count, err := s.events.CountByUserTypeAndRange(ctx, actor.ID, models.EventRemoteWork, weekStart, weekEnd)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count remote work events")
		}
		if count >= remoteWeeklyQuota {
			return nil, appErrors.Clone(appErrors.ErrQuotaExceeded, "remote work quota exceeded for this week")
		}
	}

	event := &models.Event{
		Date:        day,
		Type:        req.Type,
		Status:      initialStatus(req.Type, actor.Role),
		Description: req.Description,
		UserID:      actor.ID,
	}
	if err := s.events.Create(ctx, event); err != nil {
		if errors.Is(err, repository.ErrDuplicateEvent) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "an event already exists for this user on the selected date")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}

	s.invalidateVouchers(ctx, actor.ID)
	return event, nil
}

// initialStatus is the explicit creation-time status rule: remote work
// never waits for approval, paid leave does unless a privileged role
// files it.
func initialStatus(eventType models.EventType, role models.UserRole) models.EventStatus {
	if eventType == models.EventRemoteWork {
		return models.EventAccepted
	}
	if role == models.RoleEmployee {
		return models.EventPending
	}
	return models.EventAccepted
}

// List returns all events ordered by date.
func (s *EventService) List(ctx context.Context) ([]models.Event, error) {
	events, err := s.events.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	return events, nil
}

// Get returns a single event.
func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}

// Validate approves a pending paid leave.
func (s *EventService) Validate(ctx context.Context, id string, approver models.Actor) (*models.Event, error) {
	return s.updateStatus(ctx, id, models.EventAccepted, approver)
}

// Decline rejects a pending paid leave.
func (s *EventService) Decline(ctx context.Context, id string, approver models.Actor) (*models.Event, error) {
	return s.updateStatus(ctx, id, models.EventDeclined, approver)
}

func (s *EventService) updateStatus(ctx context.Context, id string, status models.EventStatus, approver models.Actor) (*models.Event, error) {
	if !approver.Role.Privileged() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins or project managers can process events")
	}

	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if event.Type != models.EventPaidLeave {
		return nil, appErrors.Clone(appErrors.ErrInvalidOperation, "only paid leave events can be validated or declined")
	}
	if event.Status != models.EventPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidOperation, "event status can no longer be updated")
	}

	assignment, err := s.coveringAssignment(ctx, event.UserID, event.Date)
	if err != nil {
		return nil, err
	}
	if assignment == nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidOperation, "the user is not assigned to any project on the event date")
	}
	if approver.Role == models.RoleProjectManager && assignment.ReferringEmployeeID != approver.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "project managers can only process events for their projects")
	}

	if err := s.events.UpdateStatus(ctx, event.ID, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event status")
	}

	event.Status = status
	s.invalidateVouchers(ctx, event.UserID)
	return event, nil
}

// Cancel removes an event, applying the type- and role-specific date
// rules, and returns the deleted snapshot.
func (s *EventService) Cancel(ctx context.Context, id string, actor models.Actor) (*models.Event, error) {
	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	isOwner := actor.ID == event.UserID
	isAdmin := actor.Role == models.RoleAdmin
	isManager := actor.Role == models.RoleProjectManager

	if !isOwner && !isAdmin && !isManager {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you are not allowed to cancel this event")
	}

	today := calendar.Normalize(s.now())

	switch event.Type {
	case models.EventRemoteWork:
		if event.Date.Before(today) {
			return nil, appErrors.Clone(appErrors.ErrInvalidOperation, "remote work in the past can no longer be cancelled")
		}

	case models.EventPaidLeave:
		switch {
		case isAdmin:
			// unconditional

		case isManager:
			assignment, err := s.coveringAssignment(ctx, event.UserID, event.Date)
			if err != nil {
				return nil, err
			}
			if assignment == nil || assignment.ReferringEmployeeID != actor.ID {
				return nil, appErrors.Clone(appErrors.ErrForbidden, "project managers can only cancel paid leaves for their projects")
			}

		default:
			if event.Date.Before(today) {
				return nil, appErrors.Clone(appErrors.ErrInvalidOperation, "paid leave in the past can no longer be cancelled")
			}
			if event.Status == models.EventAccepted && calendar.DaysUntil(today, event.Date) < acceptedLeaveNoticeDays {
				return nil, appErrors.Clone(appErrors.ErrInvalidOperation, "accepted paid leave can only be cancelled up to one week before; contact an admin or your project manager")
			}
		}

	default:
		return nil, appErrors.Clone(appErrors.ErrInvalidOperation, "this type of event cannot be cancelled")
	}

	if err := s.events.Delete(ctx, event.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete event")
	}

	s.invalidateVouchers(ctx, event.UserID)
	return event, nil
}

func (s *EventService) coveringAssignment(ctx context.Context, userID string, date time.Time) (*models.AssignmentDetail, error) {
	assignment, err := s.assignments.FindCoveringDate(ctx, userID, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve assignment")
	}
	return assignment, nil
}

func (s *EventService) invalidateVouchers(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, fmt.Sprintf("vouchers:%s:*", userID)); err != nil {
		s.logger.Warn("failed to invalidate voucher cache", zap.String("user_id", userID), zap.Error(err))
	}
}
