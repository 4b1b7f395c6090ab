package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/safar/go-sql-shop/internal/database"
	"github.com/safar/go-sql-shop/internal/models"
)

func CreateResetToken(ctx context.Context, db DBTX, userID int64, token string, expiresAt time.Time) (*models.PasswordResetToken, error) {
	t := &models.PasswordResetToken{}

	query := `
		INSERT INTO password_reset_tokens (user_id, token, expires_at, used, created_at)
		VALUES ($1, $2, $3, FALSE, NOW())
		RETURNING id, user_id, token, expires_at, used, created_at`

	err := db.QueryRowContext(ctx, query, userID, token, expiresAt).Scan(
		&t.ID,
		&t.UserID,
		&t.Token,
		&t.ExpiresAt,
		&t.Used,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create reset token: %w", err)
	}

	return t, nil
}

// ConsumeResetToken marks an unused, unexpired token as used and returns the
// user it belongs to. A token can be consumed at most once.
func ConsumeResetToken(ctx context.Context, db DBTX, token string, now time.Time) (int64, error) {
	var userID int64

	err := db.QueryRowContext(ctx,
		`UPDATE password_reset_tokens
		 SET used = TRUE
		 WHERE token = $1
		   AND used = FALSE
		   AND expires_at > $2
		 RETURNING user_id`,
		token, now).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, database.ErrResetTokenNotFound
		}
		return 0, fmt.Errorf("consume reset token: %w", err)
	}

	return userID, nil
}
