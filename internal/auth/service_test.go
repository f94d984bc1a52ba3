package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"character-chat-server/internal/models"
)

// fakeUserRepo - in-memory реализация UserRepository для тестов.
type fakeUserRepo struct {
	byName map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byName: make(map[string]*models.User)}
}

func (r *fakeUserRepo) CreateUser(_ context.Context, user *models.User) error {
	if _, ok := r.byName[user.Username]; ok {
		return models.ErrUserAlreadyExists
	}
	r.byName[user.Username] = user
	return nil
}

func (r *fakeUserRepo) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	if u, ok := r.byName[username]; ok {
		return u, nil
	}
	return nil, models.ErrUserNotFound
}

func (r *fakeUserRepo) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	for _, u := range r.byName {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func newTestService(repo UserRepository) *Service {
	return NewService(repo, "test-secret", time.Hour, zap.NewNop())
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(newFakeUserRepo())
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "pass1234")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NotEqual(t, "pass1234", user.PasswordHash)

	token, loggedIn, err := svc.Login(ctx, "alice", "pass1234")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, user.ID, loggedIn.ID)

	claims, err := svc.VerifyToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc := newTestService(newFakeUserRepo())
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "pass1234")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "other456")
	assert.ErrorIs(t, err, models.ErrUserAlreadyExists)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(newFakeUserRepo())
	ctx := context.Background()

	_, err := svc.Register(ctx, "ab", "pass1234")
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = svc.Register(ctx, "bad name!", "pass1234")
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = svc.Register(ctx, "alice", "abc")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestService(newFakeUserRepo())
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "pass1234")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody", "pass1234")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestVerifyTokenExpired(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo, "test-secret", -time.Minute, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "pass1234")
	require.NoError(t, err)

	token, _, err := svc.Login(ctx, "alice", "pass1234")
	require.NoError(t, err)

	_, err = svc.VerifyToken(ctx, token)
	assert.ErrorIs(t, err, models.ErrTokenExpired)
}

func TestVerifyTokenGarbage(t *testing.T) {
	svc := newTestService(newFakeUserRepo())

	_, err := svc.VerifyToken(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, models.ErrTokenMalformed)
}
