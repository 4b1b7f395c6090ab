package database

import (
	"errors"

	"github.com/lib/pq"
)

type ErrorClass int

const (
	ErrorClassOther ErrorClass = iota
	ErrorClassUniqueViolation
	ErrorClassForeignKeyViolation
	ErrorClassCheckViolation
	ErrorClassSerialization
)

// ClassifyError maps PostgreSQL error codes to the classes the store layer
// cares about. Anything that is not a *pq.Error is ErrorClassOther.
func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassOther
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return ErrorClassUniqueViolation
		case "23503":
			return ErrorClassForeignKeyViolation
		case "23514":
			return ErrorClassCheckViolation
		case "40001", "40P01":
			return ErrorClassSerialization
		}
	}

	return ErrorClassOther
}

func IsUniqueViolation(err error) bool {
	return ClassifyError(err) == ErrorClassUniqueViolation
}

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrProductNotFound    = errors.New("product not found")
	ErrCartItemNotFound   = errors.New("cart item not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrResetTokenNotFound = errors.New("reset token not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
)
