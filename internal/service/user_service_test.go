package service

import (
	"context"
	"testing"
	"time"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserService(t *testing.T) (UserService, *testEnv) {
	t.Helper()
	env := newTestEnv(t)
	return NewUserService(repository.NewUserRepository(env.db)), env
}

func TestCreateUser_HashesPasswordAndValidates(t *testing.T) {
	svc, env := newUserService(t)
	ctx := context.Background()

	resp, err := svc.CreateUser(ctx, CreateUserRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "secret123",
		Role:     model.RolePortal,
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.Username)
	assert.Equal(t, model.RolePortal, resp.Role)

	var stored model.User
	require.NoError(t, env.db.First(&stored, "username = ?", "alice").Error)
	assert.NotEqual(t, "secret123", stored.Password)

	_, err = svc.CreateUser(ctx, CreateUserRequest{
		Username: "alice", Email: "alice2@example.com", Password: "secret123", Role: model.RolePortal,
	})
	assert.EqualError(t, err, "username already exists")

	_, err = svc.CreateUser(ctx, CreateUserRequest{
		Username: "alice2", Email: "alice@example.com", Password: "secret123", Role: model.RolePortal,
	})
	assert.EqualError(t, err, "email already exists")

	_, err = svc.CreateUser(ctx, CreateUserRequest{
		Username: "bob", Email: "bob@example.com", Password: "secret123", Role: "SUPERUSER",
	})
	assert.EqualError(t, err, "invalid role: must be ADMIN, INTERNAL, or PORTAL")
}

func TestLogin_IssuesTokenPair(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserRequest{
		Username: "carol", Email: "carol@example.com", Password: "secret123", Role: model.RoleInternal,
	})
	require.NoError(t, err)

	tokens, err := svc.Login(ctx, LoginUserRequest{Email: "carol@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.Token)
	assert.NotEmpty(t, tokens.RefreshToken)

	_, err = svc.Login(ctx, LoginUserRequest{Email: "carol@example.com", Password: "wrong"})
	assert.EqualError(t, err, "invalid email or password")
}

func TestRefreshToken_RotatesToken(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserRequest{
		Username: "dave", Email: "dave@example.com", Password: "secret123", Role: model.RolePortal,
	})
	require.NoError(t, err)

	tokens, err := svc.Login(ctx, LoginUserRequest{Email: "dave@example.com", Password: "secret123"})
	require.NoError(t, err)

	rotated, err := svc.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	// The presented token was consumed; replaying it fails.
	_, err = svc.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	assert.EqualError(t, err, "invalid refresh token")
}

func TestRefreshToken_ExpiredTokenRejected(t *testing.T) {
	svc, env := newUserService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserRequest{
		Username: "erin", Email: "erin@example.com", Password: "secret123", Role: model.RolePortal,
	})
	require.NoError(t, err)
	tokens, err := svc.Login(ctx, LoginUserRequest{Email: "erin@example.com", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, env.db.Model(&model.RefreshToken{}).
		Where("token = ?", tokens.RefreshToken).
		Update("expires_at", time.Now().Add(-time.Hour)).Error)

	_, err = svc.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	assert.EqualError(t, err, "refresh token expired")
}
