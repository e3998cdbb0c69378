package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/student-clubs-api/internal/models"
	appErrors "github.com/noah-isme/student-clubs-api/pkg/errors"
)

type mockUserRepo struct {
	users     map[string]*models.User
	deleted   []string
	auditLogs []*models.AuditLog
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var users []models.User
	for _, u := range m.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		users = append(users, *u)
	}
	return users, len(users), nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		copy := *user
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	m.users[id].Active = false
	return nil
}

func (m *mockUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func newUserFixture() *mockUserRepo {
	return &mockUserRepo{users: map[string]*models.User{
		"1": {ID: "1", Email: "stu@example.com", FullName: "Stu", Role: models.RoleStudent, Active: true},
		"2": {ID: "2", Email: "lec@example.com", FullName: "Lec", Role: models.RoleLecturer, Active: true},
	}}
}

func TestUserServiceList(t *testing.T) {
	svc := NewUserService(newUserFixture(), validator.New(), zap.NewNop())

	role := models.RoleLecturer
	users, pagination, err := svc.List(context.Background(), models.UserFilter{Role: &role})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.Equal(t, 20, pagination.PageSize)

	bogus := models.UserRole("janitor")
	_, _, err = svc.List(context.Background(), models.UserFilter{Role: &bogus})
	assert.Error(t, err)
}

func TestUserServiceUpdate(t *testing.T) {
	repo := newUserFixture()
	svc := NewUserService(repo, nil, nil)

	inactive := false
	user, err := svc.Update(context.Background(), "1", UpdateUserRequest{FullName: "Stu Dent", Role: models.RoleLecturer, Active: &inactive}, "admin", models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.RoleLecturer, user.Role)
	assert.False(t, user.Active)
	require.Len(t, repo.auditLogs, 1)

	_, err = svc.Update(context.Background(), "1", UpdateUserRequest{FullName: "x", Role: "SUPERADMIN"}, "admin", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceDelete(t *testing.T) {
	repo := newUserFixture()
	svc := NewUserService(repo, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "1", "2", models.LoginRequest{}))
	assert.Equal(t, []string{"1"}, repo.deleted)
	assert.False(t, repo.users["1"].Active)

	err := svc.Delete(context.Background(), "missing", "2", models.LoginRequest{})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUserServiceCannotDeleteSelf(t *testing.T) {
	repo := newUserFixture()
	svc := NewUserService(repo, nil, nil)

	err := svc.Delete(context.Background(), "2", "2", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)
}
