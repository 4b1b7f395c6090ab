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

func GetCartItem(ctx context.Context, db DBTX, userID, productID int64) (*models.CartItem, error) {
	item := &models.CartItem{}

	err := db.QueryRowContext(ctx,
		`SELECT id, user_id, product_id, quantity, created_at
		 FROM cart_items
		 WHERE user_id = $1 AND product_id = $2`,
		userID, productID).Scan(
		&item.ID,
		&item.UserID,
		&item.ProductID,
		&item.Quantity,
		&item.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrCartItemNotFound
		}
		return nil, fmt.Errorf("get cart item: %w", err)
	}

	return item, nil
}

// AddCartItem inserts a cart line or, when the product is already in the
// cart, adds quantity to the existing line.
func AddCartItem(ctx context.Context, db DBTX, userID, productID int64, quantity int) (*models.CartItem, error) {
	item := &models.CartItem{}

	err := db.QueryRowContext(ctx,
		`INSERT INTO cart_items (user_id, product_id, quantity, created_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (user_id, product_id)
		 DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		 RETURNING id, user_id, product_id, quantity, created_at`,
		userID, productID, quantity).Scan(
		&item.ID,
		&item.UserID,
		&item.ProductID,
		&item.Quantity,
		&item.CreatedAt,
	)
	if err != nil {
		// The product was deleted after it was looked up.
		if database.ClassifyError(err) == database.ErrorClassForeignKeyViolation {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("add cart item: %w", err)
	}

	return item, nil
}

func SetCartItemQuantity(ctx context.Context, db DBTX, userID, productID int64, quantity int) error {
	result, err := db.ExecContext(ctx,
		`UPDATE cart_items SET quantity = $1 WHERE user_id = $2 AND product_id = $3`,
		quantity, userID, productID)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrCartItemNotFound
	}

	return nil
}

func RemoveCartItem(ctx context.Context, db DBTX, userID, productID int64) error {
	result, err := db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`,
		userID, productID)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrCartItemNotFound
	}

	return nil
}

// ListCartLines returns the user's cart joined with the current name, price
// and stock of each product.
func ListCartLines(ctx context.Context, db DBTX, userID int64) ([]models.CartLine, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT ci.id, ci.product_id, p.name, p.price, p.stock, ci.quantity
		 FROM cart_items ci
		 JOIN products p ON p.id = ci.product_id
		 WHERE ci.user_id = $1
		 ORDER BY ci.id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	defer rows.Close()

	var lines []models.CartLine
	for rows.Next() {
		var line models.CartLine
		err := rows.Scan(
			&line.ID,
			&line.ProductID,
			&line.ProductName,
			&line.ProductPrice,
			&line.ProductStock,
			&line.Quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		line.Subtotal = line.ProductPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return lines, nil
}

func ClearCart(ctx context.Context, db DBTX, userID int64) (int64, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("clear cart: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}

	return rowsAffected, nil
}
