package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/edukoala/internal/models"
	"github.com/noah-isme/edukoala/internal/repository"
	appErrors "github.com/noah-isme/edukoala/pkg/errors"
)

type mockUserRepo struct {
	users     map[string]*models.User
	createErr error
	nextID    int64
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: map[string]*models.User{}}
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	user, ok := m.users[username]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	user.ID = m.nextID
	m.users[user.Username] = user
	return nil
}

type mockSessionRepo struct {
	sessions map[string]*models.Session
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: map[string]*models.Session{}}
}

func (m *mockSessionRepo) Create(ctx context.Context, session *models.Session) error {
	m.sessions[session.ID] = session
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*models.Session, error) {
	session, ok := m.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return session, nil
}

func (m *mockSessionRepo) Revoke(ctx context.Context, id string) error {
	if session, ok := m.sessions[id]; ok {
		now := time.Now()
		session.Revoked = true
		session.RevokedAt = &now
	}
	return nil
}

func newTestAuthService(users *mockUserRepo, sessions *mockSessionRepo) *AuthService {
	return NewAuthService(users, sessions, validator.New(), zap.NewNop(), nil, AuthConfig{
		SessionSecret: "secret",
		SessionTTL:    time.Hour,
		BcryptCost:    bcrypt.MinCost,
	})
}

func assertAppError(t *testing.T, err error, target *appErrors.Error, message string) {
	t.Helper()
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, target.Code, appErr.Code)
	assert.Equal(t, message, appErr.Message)
}

func TestAuthServiceSignupValidation(t *testing.T) {
	svc := newTestAuthService(newMockUserRepo(), newMockSessionRepo())

	cases := []struct {
		name     string
		username string
		password string
		message  string
	}{
		{"empty username", "", "secret1", "Username is required."},
		{"space in username", "al ice", "secret1", "Username cannot contain spaces."},
		{"tab in username", "al\tice", "secret1", "Username cannot contain spaces."},
		{"long username", strings.Repeat("a", 65), "secret1", "Username must be at most 64 characters long."},
		{"username checked first", "a b", "1", "Username cannot contain spaces."},
		{"empty password", "alice", "", "Password must be at least 6 characters long."},
		{"short password", "alice", "abc12", "Password must be at least 6 characters long."},
		{"long password", "alice", strings.Repeat("a", 73), "Password must be at most 72 characters long."},
		{"digits only", "alice", "123456", "Password must contain at least one letter."},
		{"non ascii letters only", "alice", "123456ß", "Password must contain at least one letter."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Signup(context.Background(), models.SignupRequest{Username: tc.username, Password: tc.password})
			assertAppError(t, err, appErrors.ErrValidation, tc.message)
		})
	}
}

func TestAuthServiceSignupRejectsAnyWhitespace(t *testing.T) {
	svc := newTestAuthService(newMockUserRepo(), newMockSessionRepo())
	for _, ws := range []string{" ", "\t", "\n", "\r", "\v", "\f", " ", " "} {
		for _, name := range []string{ws + "bob", "bo" + ws + "b", "bob" + ws} {
			_, err := svc.Signup(context.Background(), models.SignupRequest{Username: name, Password: "secret1"})
			assertAppError(t, err, appErrors.ErrValidation, "Username cannot contain spaces.")
		}
	}
}

func TestAuthServiceSignupConflict(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestAuthService(users, newMockSessionRepo())

	_, err := svc.Signup(context.Background(), models.SignupRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Signup(context.Background(), models.SignupRequest{Username: "alice", Password: "another1"})
	assertAppError(t, err, appErrors.ErrConflict, "Username already exists.")
}

func TestAuthServiceSignupConflictFromConstraint(t *testing.T) {
	users := newMockUserRepo()
	users.createErr = repository.ErrDuplicate
	svc := newTestAuthService(users, newMockSessionRepo())

	_, err := svc.Signup(context.Background(), models.SignupRequest{Username: "alice", Password: "secret1"})
	assertAppError(t, err, appErrors.ErrConflict, "Username already exists.")
}

func TestAuthServiceSignupThenLogin(t *testing.T) {
	users := newMockUserRepo()
	sessions := newMockSessionRepo()
	svc := newTestAuthService(users, sessions)

	user, err := svc.Signup(context.Background(), models.SignupRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", user.PasswordHash)

	res, err := svc.Login(context.Background(), models.LoginRequest{Username: "alice", Password: "secret1", IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Equal(t, user.Info(), res.User)
	require.Len(t, sessions.sessions, 1)

	claims, err := svc.ValidateSession(context.Background(), res.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Contains(t, sessions.sessions, claims.SessionID())
}

func TestAuthServiceLoginErrors(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestAuthService(users, newMockSessionRepo())
	_, err := svc.Signup(context.Background(), models.SignupRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{Username: "bob", Password: "secret1"})
	assertAppError(t, err, appErrors.ErrInvalidCredentials, "Incorrect username.")

	_, err = svc.Login(context.Background(), models.LoginRequest{Username: "alice", Password: "wrong12"})
	assertAppError(t, err, appErrors.ErrInvalidCredentials, "Incorrect password.")
}

func TestAuthServiceLogoutRevokesSession(t *testing.T) {
	sessions := newMockSessionRepo()
	svc := newTestAuthService(newMockUserRepo(), sessions)
	_, err := svc.Signup(context.Background(), models.SignupRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	res, err := svc.Login(context.Background(), models.LoginRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), res.Token))

	_, err = svc.ValidateSession(context.Background(), res.Token)
	assertAppError(t, err, appErrors.ErrUnauthorized, "session is expired or revoked")

	assert.NoError(t, svc.Logout(context.Background(), ""))
	assert.NoError(t, svc.Logout(context.Background(), "garbage"))
}

func TestValidateSessionRejectsForeignTokens(t *testing.T) {
	svc := newTestAuthService(newMockUserRepo(), newMockSessionRepo())

	claims := &models.SessionClaims{
		UserID:   1,
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "sid",
			Issuer:    "edukoala",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	wrongKey, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other"))
	require.NoError(t, err)
	_, err = svc.ValidateSession(context.Background(), wrongKey)
	assertAppError(t, err, appErrors.ErrUnauthorized, "invalid session")

	wrongAlg, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.ValidateSession(context.Background(), wrongAlg)
	assertAppError(t, err, appErrors.ErrUnauthorized, "invalid session")

	unknown, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.ValidateSession(context.Background(), unknown)
	assertAppError(t, err, appErrors.ErrUnauthorized, "session not found")
}

func TestValidateSessionExpired(t *testing.T) {
	sessions := newMockSessionRepo()
	svc := newTestAuthService(newMockUserRepo(), sessions)
	_, err := svc.Signup(context.Background(), models.SignupRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	res, err := svc.Login(context.Background(), models.LoginRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	_, err = svc.ValidateSession(context.Background(), res.Token)
	assertAppError(t, err, appErrors.ErrUnauthorized, "invalid session")
}
