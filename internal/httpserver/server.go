// Package httpserver exposes the shop over HTTP with echo.
package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/safar/go-sql-shop/internal/auth"
	"github.com/safar/go-sql-shop/internal/cart"
	"github.com/safar/go-sql-shop/internal/checkout"
	"github.com/safar/go-sql-shop/internal/models"
	"github.com/safar/go-sql-shop/internal/store"
)

type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
}

type AuthService interface {
	Authenticator
	Signup(ctx context.Context, in auth.SignupInput) (*models.User, error)
	Signin(ctx context.Context, email, password string) (*auth.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.Session, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type CatalogService interface {
	Create(ctx context.Context, in store.ProductInput) (*models.Product, error)
	Update(ctx context.Context, id int64, patch store.ProductPatch) (*models.Product, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*models.Product, error)
	List(ctx context.Context, page, pageSize int) (*store.OffsetPage, error)
	Browse(ctx context.Context, f store.ProductFilter) ([]models.Product, error)
	Search(ctx context.Context, keyword string) ([]models.Product, error)
}

type CartService interface {
	Add(ctx context.Context, userID, productID int64, quantity int) (*models.CartItem, error)
	Update(ctx context.Context, userID, productID int64, quantity int) error
	Remove(ctx context.Context, userID, productID int64) error
	View(ctx context.Context, userID int64) (*cart.View, error)
}

type CheckoutService interface {
	Checkout(ctx context.Context, userID int64) (*checkout.Receipt, error)
}

type OrderService interface {
	List(ctx context.Context, userID int64) ([]models.Order, error)
	Page(ctx context.Context, userID int64, cursor string, limit int) (*store.CursorPage, error)
	Get(ctx context.Context, userID, orderID int64) (*models.Order, error)
}

// Pinger reports whether a dependency is reachable; *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Deps struct {
	Auth     AuthService
	Catalog  CatalogService
	Cart     CartService
	Checkout CheckoutService
	Orders   OrderService
	DB       Pinger
	Logger   *slog.Logger
}

// New builds the echo instance with every route registered.
func New(d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(RequestLogger(d.Logger))
	e.Use(echomw.CORS())

	Register(e, d)
	return e
}

func Register(e *echo.Echo, d *Deps) {
	health := &healthHTTP{db: d.DB}
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", health.Ready)

	authH := &authHTTP{svc: d.Auth}
	a := e.Group("/auth")
	a.POST("/signup", authH.Signup)
	a.POST("/signin", authH.Signin)
	a.POST("/refresh", authH.Refresh)
	a.POST("/forgot-password", authH.ForgotPassword)
	a.POST("/reset-password", authH.ResetPassword)

	productsH := &productHTTP{svc: d.Catalog}
	products := e.Group("/products")
	products.GET("", productsH.Browse)
	products.GET("/search", productsH.Search)
	products.GET("/:id", productsH.Get)

	requireUser := RequireUser(d.Auth)

	admin := e.Group("/admin/products", requireUser, RequireAdmin)
	admin.POST("", productsH.Create)
	admin.GET("", productsH.List)
	admin.GET("/:id", productsH.Get)
	admin.PUT("/:id", productsH.Update)
	admin.DELETE("/:id", productsH.Delete)

	cartH := &cartHTTP{svc: d.Cart}
	c := e.Group("/cart", requireUser)
	c.POST("", cartH.Add)
	c.GET("", cartH.View)
	c.PUT("/:product_id", cartH.Update)
	c.DELETE("/:product_id", cartH.Remove)

	checkoutH := &checkoutHTTP{svc: d.Checkout}
	e.POST("/checkout", checkoutH.Checkout, requireUser)

	ordersH := &orderHTTP{svc: d.Orders}
	o := e.Group("/orders", requireUser)
	o.GET("", ordersH.List)
	o.GET("/:id", ordersH.Get)
}
