package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/safar/go-sql-shop/internal/auth"
	"github.com/safar/go-sql-shop/internal/logging"
)

type authHTTP struct {
	svc AuthService
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (h *authHTTP) Signup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}

	user, err := h.svc.Signup(c.Request().Context(), auth.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

func (h *authHTTP) Signin(c echo.Context) error {
	var req signinRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}

	session, err := h.svc.Signin(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session)
}

func (h *authHTTP) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return errInvalidBody
	}

	session, err := h.svc.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session.TokenPair)
}

func (h *authHTTP) ForgotPassword(c echo.Context) error {
	ctx := c.Request().Context()

	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}

	if err := h.svc.ForgotPassword(ctx, req.Email); err != nil {
		return err
	}

	logging.FromContext(ctx).With("handler", "auth.forgot_password").Info("reset link sent")
	return c.JSON(http.StatusOK, messageResponse{Message: "Password reset link has been sent. Please check your email."})
}

func (h *authHTTP) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return errInvalidBody
	}

	if err := h.svc.ResetPassword(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Password reset successfully"})
}
