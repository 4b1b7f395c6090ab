// Package auth handles accounts, credentials and bearer tokens.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/safar/go-sql-shop/internal/config"
	"github.com/safar/go-sql-shop/internal/database"
	"github.com/safar/go-sql-shop/internal/logging"
	"github.com/safar/go-sql-shop/internal/models"
	"github.com/safar/go-sql-shop/internal/store"
)

const minPasswordLength = 6

var (
	ErrValidation         = errors.New("validation")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid authentication credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailNotFound      = errors.New("email not found")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
)

// TooManyAttemptsError is returned by Signin while an address is locked.
type TooManyAttemptsError struct {
	RetryAfter time.Duration
}

func (e *TooManyAttemptsError) Error() string {
	return fmt.Sprintf("too many failed sign-in attempts, retry in %s", e.RetryAfter.Round(time.Second))
}

type Mailer interface {
	SendPasswordReset(ctx context.Context, to, token string) error
}

// Throttle tracks failed sign-ins per email address.
type Throttle interface {
	Blocked(ctx context.Context, email string) (time.Duration, error)
	RecordFailure(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

type SignupInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

type Session struct {
	TokenPair
	User *models.User `json:"user"`
}

type Service struct {
	db       *sql.DB
	tokens   *TokenManager
	mailer   Mailer
	throttle Throttle
	resetTTL time.Duration
	now      func() time.Time
}

// NewService wires the auth service. throttle may be nil to disable sign-in
// throttling.
func NewService(db *sql.DB, cfg config.AuthConfig, mailer Mailer, throttle Throttle) *Service {
	return &Service{
		db:       db,
		tokens:   NewTokenManager(cfg),
		mailer:   mailer,
		throttle: throttle,
		resetTTL: cfg.ResetTokenTTL,
		now:      time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}
	return nil
}

func (s *Service) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	email := normalizeEmail(in.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email", ErrValidation)
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	role := strings.ToUpper(strings.TrimSpace(in.Role))
	switch role {
	case "":
		role = models.RoleUser
	case models.RoleUser, models.RoleAdmin:
	default:
		return nil, fmt.Errorf("%w: role must be %s or %s", ErrValidation, models.RoleAdmin, models.RoleUser)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user, err := store.CreateUser(ctx, s.db, name, email, hash, role)
	if err != nil {
		if errors.Is(err, database.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	logging.FromContext(ctx).Info("user signed up", "user_id", user.ID, "role", user.Role)
	return user, nil
}

func (s *Service) Signin(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	l := logging.FromContext(ctx)

	if s.throttle != nil {
		wait, err := s.throttle.Blocked(ctx, email)
		if err != nil {
			l.Error("signin throttle unavailable", "error", err)
		} else if wait > 0 {
			return nil, &TooManyAttemptsError{RetryAfter: wait}
		}
	}

	user, err := store.GetUserByEmail(ctx, s.db, email)
	if err != nil && !errors.Is(err, database.ErrUserNotFound) {
		return nil, err
	}
	if user == nil || !CheckPassword(user.PasswordHash, password) {
		s.recordFailure(ctx, email)
		return nil, ErrInvalidCredentials
	}

	if s.throttle != nil {
		if err := s.throttle.Reset(ctx, email); err != nil {
			l.Error("signin throttle reset failed", "error", err)
		}
	}

	pair, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	l.Info("user signed in", "user_id", user.ID)
	return &Session{TokenPair: *pair, User: user}, nil
}

func (s *Service) recordFailure(ctx context.Context, email string) {
	if s.throttle == nil {
		return
	}
	if err := s.throttle.RecordFailure(ctx, email); err != nil {
		logging.FromContext(ctx).Error("signin throttle update failed", "error", err)
	}
}

// Refresh exchanges a valid refresh token for a new token pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	userID, _ := claims.UserID()

	user, err := store.GetUser(ctx, s.db, userID)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	pair, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &Session{TokenPair: *pair, User: user}, nil
}

// Authenticate resolves an access token to a user that still exists.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.tokens.ParseAccess(accessToken)
	if err != nil {
		return nil, err
	}
	userID, _ := claims.UserID()

	user, err := store.GetUser(ctx, s.db, userID)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// ForgotPassword stores a single-use reset token for the account and mails
// it to the account's address.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := store.GetUserByEmail(ctx, s.db, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return ErrEmailNotFound
		}
		return err
	}

	token := uuid.NewString()
	if _, err := store.CreateResetToken(ctx, s.db, user.ID, token, s.now().Add(s.resetTTL)); err != nil {
		return err
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, token); err != nil {
		return err
	}

	logging.FromContext(ctx).Info("password reset requested", "user_id", user.ID)
	return nil
}

// ResetPassword consumes the token and sets the new password atomically.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	var userID int64
	err = database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var err error
		userID, err = store.ConsumeResetToken(ctx, tx, token, s.now())
		if err != nil {
			return err
		}
		return store.UpdatePassword(ctx, tx, userID, hash)
	})
	if err != nil {
		if errors.Is(err, database.ErrResetTokenNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}

	logging.FromContext(ctx).Info("password reset", "user_id", userID)
	return nil
}
