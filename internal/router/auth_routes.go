package router

import (
	"github.com/labstack/echo/v4"

	"github.com/nammaooru/offers-api/internal/handler"
	"github.com/nammaooru/offers-api/internal/middleware"
)

// RegisterAuth registers the /auth endpoints. Registration, OTP
// verification, login and the password reset flow are unauthenticated;
// /auth/me requires a valid token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/auth")
	g.POST("/register", a.Register)
	g.POST("/verify-otp", a.VerifyOTP)
	g.POST("/resend-otp", a.ResendOTP)
	g.POST("/login", a.Login)
	g.POST("/forgot-password", a.ForgotPassword)
	g.POST("/reset-password", a.ResetPassword)
	g.GET("/logout", a.Logout)

	g.GET("/me", a.Me, middleware.JWTAuth(jwtSecret))
}
