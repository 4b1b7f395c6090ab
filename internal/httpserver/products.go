package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/safar/go-sql-shop/internal/logging"
	"github.com/safar/go-sql-shop/internal/models"
	"github.com/safar/go-sql-shop/internal/store"
	"github.com/shopspring/decimal"
)

type productHTTP struct {
	svc CatalogService
}

type productListResponse struct {
	Products []models.Product `json:"products"`
	Total    int              `json:"total"`
}

type createProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"image_url"`
}

type updateProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	Category    *string          `json:"category"`
	ImageURL    *string          `json:"image_url"`
}

func listResponse(products []models.Product) productListResponse {
	if products == nil {
		products = []models.Product{}
	}
	return productListResponse{Products: products, Total: len(products)}
}

// Browse lists products, optionally filtered by category and price range.
func (h *productHTTP) Browse(c echo.Context) error {
	minPrice, err := queryDecimal(c, "min_price")
	if err != nil {
		return err
	}
	maxPrice, err := queryDecimal(c, "max_price")
	if err != nil {
		return err
	}

	products, err := h.svc.Browse(c.Request().Context(), store.ProductFilter{
		Category: c.QueryParam("category"),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		SortBy:   c.QueryParam("sort_by"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listResponse(products))
}

func (h *productHTTP) Search(c echo.Context) error {
	products, err := h.svc.Search(c.Request().Context(), c.QueryParam("keyword"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listResponse(products))
}

func (h *productHTTP) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	product, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, product)
}

func (h *productHTTP) List(c echo.Context) error {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return err
	}
	size, err := queryInt(c, "page_size", defaultPageSize)
	if err != nil {
		return err
	}

	result, err := h.svc.List(c.Request().Context(), max(page, 1), clamp(size, 1, maxPageSize))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (h *productHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()

	var req createProductRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}

	product, err := h.svc.Create(ctx, store.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		return err
	}

	logging.FromContext(ctx).With("handler", "admin.create_product").Info("product created", "product_id", product.ID)
	return c.JSON(http.StatusCreated, product)
}

func (h *productHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req updateProductRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}

	product, err := h.svc.Update(ctx, id, store.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		return err
	}

	logging.FromContext(ctx).With("handler", "admin.update_product").Info("product updated", "product_id", id)
	return c.JSON(http.StatusOK, product)
}

func (h *productHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.svc.Delete(ctx, id); err != nil {
		return err
	}

	logging.FromContext(ctx).With("handler", "admin.delete_product").Info("product deleted", "product_id", id)
	return c.JSON(http.StatusOK, messageResponse{Message: "Product deleted successfully"})
}
