// Package catalog manages products: admin maintenance and public browsing.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/safar/go-sql-shop/internal/events"
	"github.com/safar/go-sql-shop/internal/logging"
	"github.com/safar/go-sql-shop/internal/models"
	"github.com/safar/go-sql-shop/internal/store"
	"github.com/shopspring/decimal"
)

var ErrValidation = errors.New("validation")

type Service struct {
	db     *sql.DB
	events events.Publisher
}

func NewService(db *sql.DB, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{db: db, events: publisher}
}

func validateName(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%w: %s must not be empty", ErrValidation, field)
	}
	return nil
}

// maxPrice is the first value that no longer fits NUMERIC(12,2).
var maxPrice = decimal.New(1, 10)

func validatePrice(p decimal.Decimal) error {
	switch {
	case !p.IsPositive():
		return fmt.Errorf("%w: price must be greater than 0", ErrValidation)
	case !p.Equal(p.Truncate(2)):
		return fmt.Errorf("%w: price must have at most 2 decimal places", ErrValidation)
	case p.GreaterThanOrEqual(maxPrice):
		return fmt.Errorf("%w: price must be less than %s", ErrValidation, maxPrice)
	}
	return nil
}

func validateStock(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrValidation)
	}
	return nil
}

func validateInput(in store.ProductInput) error {
	return errors.Join(
		validateName("name", in.Name),
		validateName("category", in.Category),
		validatePrice(in.Price),
		validateStock(in.Stock),
	)
}

func validatePatch(p store.ProductPatch) error {
	var errs []error
	if p.Name != nil {
		errs = append(errs, validateName("name", *p.Name))
	}
	if p.Category != nil {
		errs = append(errs, validateName("category", *p.Category))
	}
	if p.Price != nil {
		errs = append(errs, validatePrice(*p.Price))
	}
	if p.Stock != nil {
		errs = append(errs, validateStock(*p.Stock))
	}
	return errors.Join(errs...)
}

func (s *Service) Create(ctx context.Context, in store.ProductInput) (*models.Product, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	product, err := store.CreateProduct(ctx, s.db, in)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.TypeProductCreated, product.ID, &product.Stock)
	return product, nil
}

func (s *Service) Update(ctx context.Context, id int64, patch store.ProductPatch) (*models.Product, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	product, err := store.UpdateProduct(ctx, s.db, id, patch)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.TypeProductUpdated, product.ID, &product.Stock)
	return product, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := store.DeleteProduct(ctx, s.db, id); err != nil {
		return err
	}

	s.publish(ctx, events.TypeProductDeleted, id, nil)
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*models.Product, error) {
	return store.GetProduct(ctx, s.db, id)
}

func (s *Service) List(ctx context.Context, page, pageSize int) (*store.OffsetPage, error) {
	return store.ListProducts(ctx, s.db, page, pageSize)
}

func (s *Service) Browse(ctx context.Context, f store.ProductFilter) ([]models.Product, error) {
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return nil, fmt.Errorf("%w: min_price must not exceed max_price", ErrValidation)
	}
	return store.FilterProducts(ctx, s.db, f)
}

func (s *Service) Search(ctx context.Context, keyword string) ([]models.Product, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, fmt.Errorf("%w: keyword is required", ErrValidation)
	}
	return store.SearchProducts(ctx, s.db, keyword)
}

func (s *Service) publish(ctx context.Context, eventType string, productID int64, stock *int) {
	err := s.events.Publish(ctx, events.NewProductChanged(eventType, events.ProductChanged{
		ProductID: productID,
		Stock:     stock,
	}))
	if err != nil {
		logging.FromContext(ctx).Error("publish catalog event failed", "type", eventType, "product_id", productID, "error", err)
	}
}
