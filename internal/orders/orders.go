// Package orders exposes a user's order history.
package orders

import (
	"context"
	"database/sql"

	"github.com/safar/go-sql-shop/internal/database"
	"github.com/safar/go-sql-shop/internal/models"
	"github.com/safar/go-sql-shop/internal/store"
)

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

func (s *Service) List(ctx context.Context, userID int64) ([]models.Order, error) {
	return store.ListOrders(ctx, s.db, userID)
}

func (s *Service) Page(ctx context.Context, userID int64, cursor string, limit int) (*store.CursorPage, error) {
	return store.ListOrdersCursor(ctx, s.db, userID, cursor, limit)
}

// Get reads the order and its items from one snapshot.
func (s *Service) Get(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	opts := database.TxOptions{IsolationLevel: sql.LevelRepeatableRead, ReadOnly: true}

	var order *models.Order
	err := database.WithTransaction(ctx, s.db, opts, func(tx *sql.Tx) error {
		var err error
		order, err = store.GetUserOrder(ctx, tx, userID, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}
