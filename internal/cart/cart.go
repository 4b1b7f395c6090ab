// Package cart manages a user's shopping cart.
package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/go-sql-shop/internal/database"
	"github.com/safar/go-sql-shop/internal/models"
	"github.com/safar/go-sql-shop/internal/store"
	"github.com/shopspring/decimal"
)

var (
	ErrValidation = errors.New("validation")
	ErrEmptyCart  = errors.New("cart is empty")
)

type View struct {
	Items       []models.CartLine `json:"items"`
	TotalItems  int               `json:"total_items"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
}

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Add puts quantity units of a product in the cart, merging with an existing
// line. The merged quantity must not exceed the product's stock.
func (s *Service) Add(ctx context.Context, userID, productID int64, quantity int) (*models.CartItem, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be greater than 0", ErrValidation)
	}

	product, err := store.GetProduct(ctx, s.db, productID)
	if err != nil {
		return nil, err
	}
	if quantity > product.Stock {
		return nil, database.ErrInsufficientStock
	}

	current := 0
	existing, err := store.GetCartItem(ctx, s.db, userID, productID)
	switch {
	case err == nil:
		current = existing.Quantity
	case !errors.Is(err, database.ErrCartItemNotFound):
		return nil, err
	}

	if quantity > product.Stock-current {
		return nil, database.ErrInsufficientStock
	}

	return store.AddCartItem(ctx, s.db, userID, productID, quantity)
}

func (s *Service) Update(ctx context.Context, userID, productID int64, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be greater than 0", ErrValidation)
	}

	if _, err := store.GetCartItem(ctx, s.db, userID, productID); err != nil {
		return err
	}

	product, err := store.GetProduct(ctx, s.db, productID)
	if err != nil {
		return err
	}
	if quantity > product.Stock {
		return database.ErrInsufficientStock
	}

	return store.SetCartItemQuantity(ctx, s.db, userID, productID, quantity)
}

func (s *Service) Remove(ctx context.Context, userID, productID int64) error {
	return store.RemoveCartItem(ctx, s.db, userID, productID)
}

func (s *Service) View(ctx context.Context, userID int64) (*View, error) {
	lines, err := store.ListCartLines(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	view := &View{Items: lines, TotalAmount: decimal.Zero}
	for _, line := range lines {
		view.TotalItems += line.Quantity
		view.TotalAmount = view.TotalAmount.Add(line.Subtotal)
	}
	return view, nil
}
