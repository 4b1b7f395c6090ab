package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/go-sql-shop/internal/database"
	"github.com/safar/go-sql-shop/internal/models"
	"github.com/shopspring/decimal"
)

func CreateOrder(ctx context.Context, db DBTX, userID int64, total decimal.Decimal, status string) (*models.Order, error) {
	order := &models.Order{
		UserID:      userID,
		TotalAmount: total,
		Status:      status,
	}

	err := db.QueryRowContext(ctx,
		`INSERT INTO orders (user_id, total_amount, status, created_at)
		 VALUES ($1, $2, $3, NOW())
		 RETURNING id, created_at`,
		userID, total, status).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	return order, nil
}

func AddOrderItem(ctx context.Context, db DBTX, orderID, productID int64, quantity int, priceAtPurchase decimal.Decimal) (int64, error) {
	var id int64

	err := db.QueryRowContext(ctx,
		`INSERT INTO order_items (order_id, product_id, quantity, price_at_purchase)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		orderID, productID, quantity, priceAtPurchase).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create order item: %w", err)
	}

	return id, nil
}

func scanOrders(rows *sql.Rows) ([]models.Order, error) {
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var order models.Order
		err := rows.Scan(
			&order.ID,
			&order.UserID,
			&order.TotalAmount,
			&order.Status,
			&order.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

// ListOrders returns every order of the user, newest first.
func ListOrders(ctx context.Context, db DBTX, userID int64) ([]models.Order, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, user_id, total_amount, status, created_at
		 FROM orders
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	return scanOrders(rows)
}

func ListOrdersCursor(ctx context.Context, db DBTX, userID int64, cursor string, limit int) (*CursorPage, error) {
	var (
		rows *sql.Rows
		err  error
	)

	if cursor == "" {
		rows, err = db.QueryContext(ctx,
			`SELECT id, user_id, total_amount, status, created_at
			 FROM orders
			 WHERE user_id = $1
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2`,
			userID, limit+1)
	} else {
		cursorData, decodeErr := DecodeCursor(cursor)
		if decodeErr != nil {
			return nil, decodeErr
		}

		rows, err = db.QueryContext(ctx,
			`SELECT id, user_id, total_amount, status, created_at
			 FROM orders
			 WHERE user_id = $1
			   AND (created_at, id) < ($2, $3)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $4`,
			userID, cursorData.CreatedAt, cursorData.ID, limit+1)
	}
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: lastOrder.CreatedAt,
			ID:        lastOrder.ID,
		})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// GetUserOrder loads an order with its items. Orders owned by another user
// are reported as not found. Items whose product was deleted keep their
// recorded price and get UnavailableProductName as their name.
func GetUserOrder(ctx context.Context, db DBTX, userID, orderID int64) (*models.Order, error) {
	order := &models.Order{}

	err := db.QueryRowContext(ctx,
		`SELECT id, user_id, total_amount, status, created_at
		 FROM orders
		 WHERE id = $1 AND user_id = $2`,
		orderID, userID).Scan(
		&order.ID,
		&order.UserID,
		&order.TotalAmount,
		&order.Status,
		&order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.quantity, oi.price_at_purchase
		 FROM order_items oi
		 LEFT JOIN products p ON p.id = oi.product_id
		 WHERE oi.order_id = $1
		 ORDER BY oi.id`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var (
			item models.OrderItem
			name sql.NullString
		)
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&name,
			&item.Quantity,
			&item.PriceAtPurchase,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}

		item.ProductName = models.UnavailableProductName
		if name.Valid {
			item.ProductName = name.String
		}
		item.Subtotal = item.PriceAtPurchase.Mul(decimal.NewFromInt(int64(item.Quantity)))
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	order.Items = items

	return order, nil
}
