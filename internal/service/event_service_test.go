package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atempo-hq/workcal-api/internal/dto"
	"github.com/atempo-hq/workcal-api/internal/models"
	appErrors "github.com/atempo-hq/workcal-api/pkg/errors"
)

type mockEventRepo struct {
	items   map[string]*models.Event
	deleted []string
}

func (m *mockEventRepo) FindByID(ctx context.Context, id string) (*models.Event, error) {
	if event, ok := m.items[id]; ok {
		cp := *event
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEventRepo) FindByUserAndDate(ctx context.Context, userID string, date time.Time) (*models.Event, error) {
	for _, event := range m.items {
		if event.UserID == userID && event.Date.Equal(date) {
			cp := *event
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockEventRepo) CountByUserTypeAndRange(ctx context.Context, userID string, eventType models.EventType, start, end time.Time) (int, error) {
	count := 0
	for _, event := range m.items {
		if event.UserID == userID && event.Type == eventType &&
			!event.Date.Before(start) && !event.Date.After(end) {
			count++
		}
	}
	return count, nil
}

func (m *mockEventRepo) List(ctx context.Context) ([]models.Event, error) {
	out := make([]models.Event, 0, len(m.items))
	for _, event := range m.items {
		out = append(out, *event)
	}
	return out, nil
}

func (m *mockEventRepo) Create(ctx context.Context, event *models.Event) error {
	if m.items == nil {
		m.items = make(map[string]*models.Event)
	}
	if event.ID == "" {
		event.ID = fmt.Sprintf("generated-%d", len(m.items)+1)
	}
	cp := *event
	m.items[event.ID] = &cp
	return nil
}

func (m *mockEventRepo) UpdateStatus(ctx context.Context, id string, status models.EventStatus) error {
	event, ok := m.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	event.Status = status
	return nil
}

func (m *mockEventRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockAssignmentResolver struct {
	covering *models.AssignmentDetail
}

func (m *mockAssignmentResolver) FindCoveringDate(ctx context.Context, userID string, date time.Time) (*models.AssignmentDetail, error) {
	if m.covering == nil {
		return nil, sql.ErrNoRows
	}
	cp := *m.covering
	return &cp, nil
}

type mockCacheInvalidator struct {
	patterns []string
}

func (m *mockCacheInvalidator) DeleteByPattern(ctx context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	return nil
}

func newEventService(repo *mockEventRepo, assignments *mockAssignmentResolver, cache *mockCacheInvalidator) *EventService {
	return NewEventService(repo, assignments, cache, validator.New(), zap.NewNop())
}

func errorCode(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	return appErrors.FromError(err).Code
}

func TestEventServiceCreateInitialStatus(t *testing.T) {
	tests := []struct {
		name      string
		eventType models.EventType
		role      models.UserRole
		want      models.EventStatus
	}{
		{"remote work by employee", models.EventRemoteWork, models.RoleEmployee, models.EventAccepted},
		{"remote work by admin", models.EventRemoteWork, models.RoleAdmin, models.EventAccepted},
		{"paid leave by employee", models.EventPaidLeave, models.RoleEmployee, models.EventPending},
		{"paid leave by manager", models.EventPaidLeave, models.RoleProjectManager, models.EventAccepted},
		{"paid leave by admin", models.EventPaidLeave, models.RoleAdmin, models.EventAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockEventRepo{}
			service := newEventService(repo, &mockAssignmentResolver{}, &mockCacheInvalidator{})

			event, err := service.Create(context.Background(), models.Actor{ID: "u1", Role: tt.role}, dto.CreateEventRequest{
				Date: "2026-03-10",
				Type: tt.eventType,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, event.Status)
			assert.Equal(t, "u1", event.UserID)
		})
	}
}

func TestEventServiceCreateDuplicateDate(t *testing.T) {
	repo := &mockEventRepo{}
	service := newEventService(repo, &mockAssignmentResolver{}, &mockCacheInvalidator{})
	actor := models.Actor{ID: "u1", Role: models.RoleEmployee}

	_, err := service.Create(context.Background(), actor, dto.CreateEventRequest{Date: "2026-03-10", Type: models.EventRemoteWork})
	require.NoError(t, err)

	_, err = service.Create(context.Background(), actor, dto.CreateEventRequest{Date: "2026-03-10", Type: models.EventPaidLeave})
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(t, err))
}

func TestEventServiceCreateRemoteQuota(t *testing.T) {
	repo := &mockEventRepo{}
	cache := &mockCacheInvalidator{}
	service := newEventService(repo, &mockAssignmentResolver{}, cache)
	actor := models.Actor{ID: "u1", Role: models.RoleEmployee}

	// 2026-03-09 is a Monday.
	for _, date := range []string{"2026-03-09", "2026-03-10"} {
		_, err := service.Create(context.Background(), actor, dto.CreateEventRequest{Date: date, Type: models.EventRemoteWork})
		require.NoError(t, err)
	}

	_, err := service.Create(context.Background(), actor, dto.CreateEventRequest{Date: "2026-03-11", Type: models.EventRemoteWork})
	assert.Equal(t, appErrors.ErrQuotaExceeded.Code, errorCode(t, err))

	// Next Monday starts a fresh quota window.
	_, err = service.Create(context.Background(), actor, dto.CreateEventRequest{Date: "2026-03-16", Type: models.EventRemoteWork})
	assert.NoError(t, err)

	assert.Contains(t, cache.patterns, "vouchers:u1:*")
}

func TestEventServiceCreateQuotaIgnoresPaidLeave(t *testing.T) {
	repo := &mockEventRepo{}
	service := newEventService(repo, &mockAssignmentResolver{}, &mockCacheInvalidator{})
	actor := models.Actor{ID: "u1", Role: models.RoleEmployee}

	for _, date := range []string{"2026-03-09", "2026-03-10"} {
		_, err := service.Create(context.Background(), actor, dto.CreateEventRequest{Date: date, Type: models.EventPaidLeave})
		require.NoError(t, err)
	}

	_, err := service.Create(context.Background(), actor, dto.CreateEventRequest{Date: "2026-03-11", Type: models.EventRemoteWork})
	assert.NoError(t, err)
}

func TestEventServiceCreateInvalidInput(t *testing.T) {
	service := newEventService(&mockEventRepo{}, &mockAssignmentResolver{}, &mockCacheInvalidator{})
	actor := models.Actor{ID: "u1", Role: models.RoleEmployee}

	_, err := service.Create(context.Background(), actor, dto.CreateEventRequest{Date: "10/03/2026", Type: models.EventRemoteWork})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))

	_, err = service.Create(context.Background(), actor, dto.CreateEventRequest{Date: "2026-03-10", Type: "SICK_LEAVE"})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))
}

func pendingLeave(id, userID, date string) *models.Event {
	day, _ := time.Parse("2006-01-02", date)
	return &models.Event{
		ID:     id,
		Date:   day,
		Type:   models.EventPaidLeave,
		Status: models.EventPending,
		UserID: userID,
	}
}

func TestEventServiceValidate(t *testing.T) {
	repo := &mockEventRepo{items: map[string]*models.Event{
		"e1": pendingLeave("e1", "u1", "2026-04-01"),
	}}
	assignments := &mockAssignmentResolver{covering: &models.AssignmentDetail{
		Assignment:          models.Assignment{ID: "a1", UserID: "u1", ProjectID: "p1"},
		ReferringEmployeeID: "pm1",
	}}
	cache := &mockCacheInvalidator{}
	service := newEventService(repo, assignments, cache)

	event, err := service.Validate(context.Background(), "e1", models.Actor{ID: "pm1", Role: models.RoleProjectManager})
	require.NoError(t, err)
	assert.Equal(t, models.EventAccepted, event.Status)
	assert.Equal(t, models.EventAccepted, repo.items["e1"].Status)
	assert.Contains(t, cache.patterns, "vouchers:u1:*")
}

func TestEventServiceDecline(t *testing.T) {
	repo := &mockEventRepo{items: map[string]*models.Event{
		"e1": pendingLeave("e1", "u1", "2026-04-01"),
	}}
	assignments := &mockAssignmentResolver{covering: &models.AssignmentDetail{
		Assignment:          models.Assignment{ID: "a1", UserID: "u1", ProjectID: "p1"},
		ReferringEmployeeID: "pm1",
	}}
	service := newEventService(repo, assignments, &mockCacheInvalidator{})

	event, err := service.Decline(context.Background(), "e1", models.Actor{ID: "admin", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, models.EventDeclined, event.Status)
}

func TestEventServiceValidatePreconditions(t *testing.T) {
	accepted := pendingLeave("e2", "u1", "2026-04-02")
	accepted.Status = models.EventAccepted
	remote := pendingLeave("e3", "u1", "2026-04-03")
	remote.Type = models.EventRemoteWork
	remote.Status = models.EventAccepted

	repo := &mockEventRepo{items: map[string]*models.Event{
		"e1": pendingLeave("e1", "u1", "2026-04-01"),
		"e2": accepted,
		"e3": remote,
	}}
	assignments := &mockAssignmentResolver{covering: &models.AssignmentDetail{
		Assignment:          models.Assignment{ID: "a1", UserID: "u1", ProjectID: "p1"},
		ReferringEmployeeID: "pm1",
	}}
	service := newEventService(repo, assignments, &mockCacheInvalidator{})
	admin := models.Actor{ID: "admin", Role: models.RoleAdmin}

	_, err := service.Validate(context.Background(), "e1", models.Actor{ID: "u2", Role: models.RoleEmployee})
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(t, err))

	_, err = service.Validate(context.Background(), "e2", admin)
	assert.Equal(t, appErrors.ErrInvalidOperation.Code, errorCode(t, err))

	_, err = service.Validate(context.Background(), "e3", admin)
	assert.Equal(t, appErrors.ErrInvalidOperation.Code, errorCode(t, err))

	_, err = service.Validate(context.Background(), "missing", admin)
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))

	_, err = service.Validate(context.Background(), "e1", models.Actor{ID: "pm2", Role: models.RoleProjectManager})
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(t, err))
}

func TestEventServiceValidateWithoutAssignment(t *testing.T) {
	repo := &mockEventRepo{items: map[string]*models.Event{
		"e1": pendingLeave("e1", "u1", "2026-04-01"),
	}}
	service := newEventService(repo, &mockAssignmentResolver{}, &mockCacheInvalidator{})

	_, err := service.Validate(context.Background(), "e1", models.Actor{ID: "admin", Role: models.RoleAdmin})
	assert.Equal(t, appErrors.ErrInvalidOperation.Code, errorCode(t, err))
}

func cancelFixture(t *testing.T, event *models.Event, covering *models.AssignmentDetail, today string) (*EventService, *mockEventRepo) {
	t.Helper()
	repo := &mockEventRepo{items: map[string]*models.Event{event.ID: event}}
	service := newEventService(repo, &mockAssignmentResolver{covering: covering}, &mockCacheInvalidator{})
	now, err := time.Parse("2006-01-02", today)
	require.NoError(t, err)
	service.now = func() time.Time { return now }
	return service, repo
}

func TestEventServiceCancelRemoteWork(t *testing.T) {
	owner := models.Actor{ID: "u1", Role: models.RoleEmployee}

	future := pendingLeave("e1", "u1", "2026-04-10")
	future.Type = models.EventRemoteWork
	future.Status = models.EventAccepted
	service, repo := cancelFixture(t, future, nil, "2026-04-01")

	event, err := service.Cancel(context.Background(), "e1", owner)
	require.NoError(t, err)
	assert.Equal(t, "e1", event.ID)
	assert.Empty(t, repo.items)

	past := pendingLeave("e2", "u1", "2026-03-20")
	past.Type = models.EventRemoteWork
	past.Status = models.EventAccepted
	service, _ = cancelFixture(t, past, nil, "2026-04-01")

	_, err = service.Cancel(context.Background(), "e2", owner)
	assert.Equal(t, appErrors.ErrInvalidOperation.Code, errorCode(t, err))
}

func TestEventServiceCancelAcceptedLeaveNotice(t *testing.T) {
	owner := models.Actor{ID: "u1", Role: models.RoleEmployee}

	// 6 days of notice is inside the protected window.
	near := pendingLeave("e1", "u1", "2026-04-07")
	near.Status = models.EventAccepted
	service, _ := cancelFixture(t, near, nil, "2026-04-01")

	_, err := service.Cancel(context.Background(), "e1", owner)
	assert.Equal(t, appErrors.ErrInvalidOperation.Code, errorCode(t, err))

	// 7 days of notice is allowed.
	far := pendingLeave("e2", "u1", "2026-04-08")
	far.Status = models.EventAccepted
	service, repo := cancelFixture(t, far, nil, "2026-04-01")

	_, err = service.Cancel(context.Background(), "e2", owner)
	require.NoError(t, err)
	assert.Empty(t, repo.items)
}

func TestEventServiceCancelPendingLeaveByOwner(t *testing.T) {
	owner := models.Actor{ID: "u1", Role: models.RoleEmployee}

	// Pending leave escapes the notice rule but not the past rule.
	tomorrow := pendingLeave("e1", "u1", "2026-04-02")
	service, _ := cancelFixture(t, tomorrow, nil, "2026-04-01")

	_, err := service.Cancel(context.Background(), "e1", owner)
	assert.NoError(t, err)

	past := pendingLeave("e2", "u1", "2026-03-20")
	service, _ = cancelFixture(t, past, nil, "2026-04-01")

	_, err = service.Cancel(context.Background(), "e2", owner)
	assert.Equal(t, appErrors.ErrInvalidOperation.Code, errorCode(t, err))
}

func TestEventServiceCancelLeaveByAdmin(t *testing.T) {
	past := pendingLeave("e1", "u1", "2026-03-20")
	past.Status = models.EventAccepted
	service, repo := cancelFixture(t, past, nil, "2026-04-01")

	_, err := service.Cancel(context.Background(), "e1", models.Actor{ID: "admin", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Empty(t, repo.items)
}

func TestEventServiceCancelLeaveByManager(t *testing.T) {
	covering := &models.AssignmentDetail{
		Assignment:          models.Assignment{ID: "a1", UserID: "u1", ProjectID: "p1"},
		ReferringEmployeeID: "pm1",
	}

	leave := pendingLeave("e1", "u1", "2026-03-20")
	leave.Status = models.EventAccepted
	service, _ := cancelFixture(t, leave, covering, "2026-04-01")

	_, err := service.Cancel(context.Background(), "e1", models.Actor{ID: "pm1", Role: models.RoleProjectManager})
	assert.NoError(t, err)

	other := pendingLeave("e2", "u1", "2026-03-20")
	other.Status = models.EventAccepted
	service, _ = cancelFixture(t, other, covering, "2026-04-01")

	_, err = service.Cancel(context.Background(), "e2", models.Actor{ID: "pm2", Role: models.RoleProjectManager})
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(t, err))
}

func TestEventServiceCancelByStranger(t *testing.T) {
	leave := pendingLeave("e1", "u1", "2026-04-10")
	service, _ := cancelFixture(t, leave, nil, "2026-04-01")

	_, err := service.Cancel(context.Background(), "e1", models.Actor{ID: "u2", Role: models.RoleEmployee})
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(t, err))
}
