// Package checkout turns a user's cart into a paid order. The whole
// operation either completes or leaves stock, orders and the cart as they
// were.
package checkout

import (
	"context"
	"database/sql"
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/safar/go-sql-shop/internal/database"
	"github.com/safar/go-sql-shop/internal/events"
	"github.com/safar/go-sql-shop/internal/logging"
	"github.com/safar/go-sql-shop/internal/models"
	"github.com/safar/go-sql-shop/internal/store"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart      = errors.New("cart is empty")
	ErrPaymentFailed  = errors.New("payment failed")
	ErrCheckoutFailed = errors.New("checkout failed")
)

// InsufficientStockError names the first cart line whose quantity exceeds
// the product's stock. It matches database.ErrInsufficientStock.
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s", e.ProductName)
}

func (e *InsufficientStockError) Unwrap() error {
	return database.ErrInsufficientStock
}

// Gateway charges an amount and returns a transaction reference.
type Gateway interface {
	Charge(ctx context.Context, amount decimal.Decimal) (string, error)
}

type Receipt struct {
	OrderID     int64           `json:"order_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status"`
}

type Service struct {
	db       *sql.DB
	payments Gateway
	events   events.Publisher
}

func NewService(db *sql.DB, payments Gateway, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{db: db, payments: payments, events: publisher}
}

// Checkout validates the cart against current stock, charges the total and
// then, in one transaction, records the order, decrements stock and empties
// the cart. Nothing is retried.
func (s *Service) Checkout(ctx context.Context, userID int64) (*Receipt, error) {
	l := logging.FromContext(ctx).With("component", "checkout", "user_id", userID)

	lines, err := store.ListCartLines(ctx, s.db, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: load cart: %w", ErrCheckoutFailed, err)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	total := decimal.Zero
	for _, line := range lines {
		if line.ProductStock < line.Quantity {
			l.Info("checkout rejected", "reason", "insufficient_stock", "product_id", line.ProductID,
				"requested", line.Quantity, "available", line.ProductStock)
			return nil, &InsufficientStockError{ProductID: line.ProductID, ProductName: line.ProductName}
		}
		total = total.Add(line.ProductPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	ref, err := s.payments.Charge(ctx, total)
	if err != nil {
		l.Warn("checkout rejected", "reason", "payment_failed", "amount", total.String(), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrPaymentFailed, err)
	}
	l.Info("payment approved", "amount", total.String(), "payment_ref", ref)

	// The charge already happened; finish persisting even if the client goes away.
	txCtx := context.WithoutCancel(ctx)

	// Product rows are locked in id order so concurrent checkouts of the
	// same products cannot deadlock.
	locked := slices.Clone(lines)
	slices.SortFunc(locked, func(a, b models.CartLine) int {
		return cmp.Compare(a.ProductID, b.ProductID)
	})

	var order *models.Order
	err = database.WithTransaction(txCtx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var err error
		order, err = store.CreateOrder(txCtx, tx, userID, total, models.OrderStatusPaid)
		if err != nil {
			return err
		}

		for _, line := range locked {
			if _, err := store.AddOrderItem(txCtx, tx, order.ID, line.ProductID, line.Quantity, line.ProductPrice); err != nil {
				return err
			}
			if err := store.DecrementStock(txCtx, tx, line.ProductID, line.Quantity); err != nil {
				if errors.Is(err, database.ErrInsufficientStock) {
					return &InsufficientStockError{ProductID: line.ProductID, ProductName: line.ProductName}
				}
				return err
			}
		}

		if _, err := store.ClearCart(txCtx, tx, userID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		var stockErr *InsufficientStockError
		if errors.As(err, &stockErr) {
			l.Warn("checkout rolled back", "reason", "insufficient_stock", "product_id", stockErr.ProductID, "payment_ref", ref)
			return nil, stockErr
		}
		l.Error("checkout rolled back", "reason", "persistence", "payment_ref", ref, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrCheckoutFailed, err)
	}

	l.Info("order created", "order_id", order.ID, "total_amount", total.String(), "items", len(lines))
	s.publishOrderCreated(txCtx, order, lines)

	return &Receipt{
		OrderID:     order.ID,
		TotalAmount: total,
		Status:      models.OrderStatusPaid,
	}, nil
}

func (s *Service) publishOrderCreated(ctx context.Context, order *models.Order, lines []models.CartLine) {
	items := make([]events.OrderLine, 0, len(lines))
	for _, line := range lines {
		items = append(items, events.OrderLine{
			ProductID:       line.ProductID,
			Quantity:        line.Quantity,
			PriceAtPurchase: line.ProductPrice,
		})
	}

	err := s.events.Publish(ctx, events.NewOrderCreated(events.OrderCreated{
		OrderID:     order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		Items:       items,
	}))
	if err != nil {
		logging.FromContext(ctx).Error("publish order event failed", "order_id", order.ID, "error", err)
	}
}
