package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/scolaris-dev/scolaris-api/internal/models"
	appErrors "github.com/scolaris-dev/scolaris-api/pkg/errors"
)

type stubAuthRepo struct {
	user             *models.User
	findByEmailErr   error
	refreshTokens    map[string]*models.RefreshToken
	lastLoginUpdated bool
	auditLogs        []*models.AuditLog
}

func (s *stubAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.findByEmailErr != nil {
		return nil, s.findByEmailErr
	}
	return s.user, nil
}

func (s *stubAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.user, nil
}

func (s *stubAuthRepo) UpdateLastLogin(ctx context.Context, id string) error {
	s.lastLoginUpdated = true
	return nil
}

func (s *stubAuthRepo) StoreRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if s.refreshTokens == nil {
		s.refreshTokens = make(map[string]*models.RefreshToken)
	}
	s.refreshTokens[token.Token] = token
	return nil
}

func (s *stubAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	stored, ok := s.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return stored, nil
}

func (s *stubAuthRepo) RevokeRefreshToken(ctx context.Context, token string) error {
	if stored, ok := s.refreshTokens[token]; ok {
		now := time.Now().UTC()
		stored.RevokedAt = &now
	}
	return nil
}

func (s *stubAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.auditLogs = append(s.auditLogs, log)
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		Secret:             "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "scolaris-test",
	}
}

func activeUser(t *testing.T) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "u1",
		Email:        "admin@example.com",
		FullName:     "Admin",
		Role:         models.RoleAdmin,
		PasswordHash: string(hash),
		Active:       true,
	}
}

func TestAuthServiceLogin(t *testing.T) {
	repo := &stubAuthRepo{user: activeUser(t)}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "u1", resp.User.ID)
	assert.True(t, repo.lastLoginUpdated)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionLogin, repo.auditLogs[0].Action)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := &stubAuthRepo{user: activeUser(t)}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "wrong"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
	assert.Empty(t, repo.auditLogs)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	user := activeUser(t)
	user.Active = false
	repo := &stubAuthRepo{user: user}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "s3cret-pass"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	repo := &stubAuthRepo{user: activeUser(t)}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)

	resp, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEqual(t, login.RefreshToken, resp.RefreshToken)

	used := repo.refreshTokens[login.RefreshToken]
	require.NotNil(t, used)
	assert.NotNil(t, used.RevokedAt)

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
}

func TestAuthServiceRefreshExpiredToken(t *testing.T) {
	repo := &stubAuthRepo{
		user: activeUser(t),
		refreshTokens: map[string]*models.RefreshToken{
			"stale": {UserID: "u1", Token: "stale", ExpiresAt: time.Now().UTC().Add(-time.Hour)},
		},
	}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestAuthServiceLogoutChecksOwnership(t *testing.T) {
	repo := &stubAuthRepo{
		user: activeUser(t),
		refreshTokens: map[string]*models.RefreshToken{
			"tok": {UserID: "u1", Token: "tok", ExpiresAt: time.Now().UTC().Add(time.Hour)},
		},
	}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	err := svc.Logout(context.Background(), "tok", "someone-else")
	require.Error(t, err)
	assert.Nil(t, repo.refreshTokens["tok"].RevokedAt)

	require.NoError(t, svc.Logout(context.Background(), "tok", "u1"))
	assert.NotNil(t, repo.refreshTokens["tok"].RevokedAt)
}

func TestAuthServiceValidateTokenRejectsForgedSecret(t *testing.T) {
	repo := &stubAuthRepo{user: activeUser(t)}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)

	other := NewAuthService(repo, nil, nil, AuthConfig{Secret: "other-secret", AccessTokenExpiry: time.Minute, RefreshTokenExpiry: time.Hour})
	_, err = other.ValidateToken(login.AccessToken)
	require.Error(t, err)
}
