package auth

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/safar/go-sql-shop/internal/config"
	"github.com/safar/go-sql-shop/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userColumns = []string{"id", "name", "email", "password_hash", "role", "created_at"}

type fakeMailer struct {
	to, token string
	err       error
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, to, token string) error {
	m.to, m.token = to, token
	return m.err
}

type fakeThrottle struct {
	blockedFor time.Duration
	failures   int
	resets     int
}

func (f *fakeThrottle) Blocked(context.Context, string) (time.Duration, error) {
	return f.blockedFor, nil
}

func (f *fakeThrottle) RecordFailure(context.Context, string) error {
	f.failures++
	return nil
}

func (f *fakeThrottle) Reset(context.Context, string) error {
	f.resets++
	return nil
}

func newTestService(t *testing.T, mailer Mailer, throttle Throttle) (*Service, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := NewService(db, config.AuthConfig{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  30 * time.Minute,
		RefreshTokenTTL: time.Hour,
		ResetTokenTTL:   30 * time.Minute,
	}, mailer, throttle)
	return svc, mock, db
}

func TestSignupValidation(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t, &fakeMailer{}, nil)

	cases := []SignupInput{
		{Name: "", Email: "a@example.com", Password: "secret1"},
		{Name: "Ann", Email: "not-an-email", Password: "secret1"},
		{Name: "Ann", Email: "a@example.com", Password: "short"},
		{Name: "Ann", Email: "a@example.com", Password: "secret1", Role: "ROOT"},
	}
	for _, in := range cases {
		_, err := svc.Signup(context.Background(), in)
		assert.ErrorIs(t, err, ErrValidation, "input %+v", in)
	}
}

func TestSignupDefaultsRoleAndRejectsDuplicate(t *testing.T) {
	t.Parallel()

	svc, mock, _ := newTestService(t, &fakeMailer{}, nil)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WithArgs("Ann", "ann@example.com", sqlmock.AnyArg(), models.RoleUser).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(1, "Ann", "ann@example.com", "hash", models.RoleUser, time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnError(&pq.Error{Code: "23505"})

	user, err := svc.Signup(context.Background(), SignupInput{Name: "Ann", Email: " Ann@Example.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, user.Role)

	_, err = svc.Signup(context.Background(), SignupInput{Name: "Ann", Email: "ann@example.com", Password: "secret1"})
	require.ErrorIs(t, err, ErrEmailTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSigninIssuesTokens(t *testing.T) {
	t.Parallel()

	throttle := &fakeThrottle{}
	svc, mock, _ := newTestService(t, &fakeMailer{}, throttle)

	hash, err := HashPassword("secret1")
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email = $1`)).
		WithArgs("ann@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(7, "Ann", "ann@example.com", hash, models.RoleAdmin, time.Now()))

	session, err := svc.Signin(context.Background(), "ann@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "bearer", session.TokenType)
	assert.Equal(t, int64(7), session.User.ID)
	assert.Equal(t, 1, throttle.resets)

	claims, err := svc.tokens.ParseAccess(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestSigninRejectsBadCredentials(t *testing.T) {
	t.Parallel()

	throttle := &fakeThrottle{}
	svc, mock, _ := newTestService(t, &fakeMailer{}, throttle)

	hash, err := HashPassword("secret1")
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email = $1`)).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(7, "Ann", "ann@example.com", hash, models.RoleUser, time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email = $1`)).
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err = svc.Signin(context.Background(), "ann@example.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Signin(context.Background(), "nobody@example.com", "secret1")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	assert.Equal(t, 2, throttle.failures)
}

func TestSigninBlockedByThrottle(t *testing.T) {
	t.Parallel()

	svc, mock, _ := newTestService(t, &fakeMailer{}, &fakeThrottle{blockedFor: time.Minute})

	_, err := svc.Signin(context.Background(), "ann@example.com", "secret1")

	var tooMany *TooManyAttemptsError
	require.ErrorAs(t, err, &tooMany)
	assert.Equal(t, time.Minute, tooMany.RetryAfter)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestForgotPassword(t *testing.T) {
	t.Parallel()

	mailer := &fakeMailer{}
	svc, mock, _ := newTestService(t, mailer, nil)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email = $1`)).
		WithArgs("ann@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(7, "Ann", "ann@example.com", "hash", models.RoleUser, time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO password_reset_tokens`)).
		WithArgs(int64(7), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token", "expires_at", "used", "created_at"}).
			AddRow(1, 7, "tok", time.Now().Add(30*time.Minute), false, time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email = $1`)).
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns))

	require.NoError(t, svc.ForgotPassword(context.Background(), "ann@example.com"))
	assert.Equal(t, "ann@example.com", mailer.to)
	assert.NotEmpty(t, mailer.token)

	require.ErrorIs(t, svc.ForgotPassword(context.Background(), "ghost@example.com"), ErrEmailNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResetPassword(t *testing.T) {
	t.Parallel()

	svc, mock, _ := newTestService(t, &fakeMailer{}, nil)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE password_reset_tokens SET used = TRUE`)).
		WithArgs("good", now).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(7))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET password_hash = $1 WHERE id = $2`)).
		WithArgs(sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE password_reset_tokens SET used = TRUE`)).
		WithArgs("good", now).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))
	mock.ExpectRollback()

	require.NoError(t, svc.ResetPassword(context.Background(), "good", "newsecret"))
	require.ErrorIs(t, svc.ResetPassword(context.Background(), "good", "newsecret"), ErrInvalidResetToken)
	require.ErrorIs(t, svc.ResetPassword(context.Background(), "good", "123"), ErrValidation)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	svc, mock, _ := newTestService(t, &fakeMailer{}, nil)
	pair, err := svc.tokens.Issue(&models.User{ID: 3, Role: models.RoleUser})
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(3, "Bob", "bob@example.com", "hash", models.RoleUser, time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(userColumns))

	user, err := svc.Authenticate(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "Bob", user.Name)

	_, err = svc.Authenticate(context.Background(), pair.AccessToken)
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.Authenticate(context.Background(), "nope")
	require.ErrorIs(t, err, ErrInvalidToken)
	require.False(t, errors.Is(err, ErrUserNotFound))
}
