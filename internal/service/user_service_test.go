package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/atempo-hq/workcal-api/internal/dto"
	"github.com/atempo-hq/workcal-api/internal/models"
	appErrors "github.com/atempo-hq/workcal-api/pkg/errors"
)

type mockUserRepo struct {
	items   map[string]*models.User
	deleted []string
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.items[id]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) ExistsByEmailOrUsername(ctx context.Context, email, username, excludeID string) (bool, error) {
	for _, user := range m.items {
		if user.ID == excludeID {
			continue
		}
		if user.Email == email || user.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepo) List(ctx context.Context) ([]models.User, error) {
	out := make([]models.User, 0, len(m.items))
	for _, user := range m.items {
		out = append(out, *user)
	}
	return out, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.items == nil {
		m.items = make(map[string]*models.User)
	}
	if user.ID == "" {
		user.ID = "generated"
	}
	cp := *user
	m.items[user.ID] = &cp
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	cp := *user
	m.items[user.ID] = &cp
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func TestUserServiceCreate(t *testing.T) {
	repo := &mockUserRepo{}
	service := NewUserService(repo, validator.New(), zap.NewNop())

	user, err := service.Create(context.Background(), dto.CreateUserRequest{
		Username: "jdoe",
		Email:    "jdoe@example.com",
		Password: "secret-password",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleEmployee, user.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret-password")))
}

func TestUserServiceCreateConflict(t *testing.T) {
	repo := &mockUserRepo{items: map[string]*models.User{
		"u1": {ID: "u1", Username: "jdoe", Email: "jdoe@example.com"},
	}}
	service := NewUserService(repo, validator.New(), zap.NewNop())

	_, err := service.Create(context.Background(), dto.CreateUserRequest{
		Username: "someone",
		Email:    "jdoe@example.com",
		Password: "secret-password",
	})
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(t, err))
}

func TestUserServiceCreateInvalid(t *testing.T) {
	service := NewUserService(&mockUserRepo{}, validator.New(), zap.NewNop())

	_, err := service.Create(context.Background(), dto.CreateUserRequest{
		Username: "jdoe",
		Email:    "not-an-email",
		Password: "secret-password",
	})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))

	_, err = service.Create(context.Background(), dto.CreateUserRequest{
		Username: "jdoe",
		Email:    "jdoe@example.com",
		Password: "secret-password",
		Role:     "SUPERUSER",
	})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))
}

func TestUserServiceUpdate(t *testing.T) {
	repo := &mockUserRepo{items: map[string]*models.User{
		"u1": {ID: "u1", Username: "jdoe", Email: "jdoe@example.com", Role: models.RoleEmployee},
		"u2": {ID: "u2", Username: "asmith", Email: "asmith@example.com", Role: models.RoleEmployee},
	}}
	service := NewUserService(repo, validator.New(), zap.NewNop())

	email := "asmith@example.com"
	_, err := service.Update(context.Background(), "u1", dto.UpdateUserRequest{Email: &email})
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(t, err))

	role := models.RoleProjectManager
	password := "new-password-123"
	user, err := service.Update(context.Background(), "u1", dto.UpdateUserRequest{Role: &role, Password: &password})
	require.NoError(t, err)
	assert.Equal(t, models.RoleProjectManager, user.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)))

	_, err = service.Update(context.Background(), "missing", dto.UpdateUserRequest{})
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
}

func TestUserServiceDelete(t *testing.T) {
	repo := &mockUserRepo{items: map[string]*models.User{
		"u1": {ID: "u1", Username: "jdoe", Email: "jdoe@example.com"},
	}}
	service := NewUserService(repo, validator.New(), zap.NewNop())

	require.NoError(t, service.Delete(context.Background(), "u1"))
	assert.Empty(t, repo.items)

	err := service.Delete(context.Background(), "u1")
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
}
