package handler

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nammaooru/offers-api/internal/config"
	"github.com/nammaooru/offers-api/internal/model"
	"github.com/nammaooru/offers-api/internal/queue"
	"github.com/nammaooru/offers-api/internal/repository"
	queue_publisher "github.com/nammaooru/offers-api/internal/service"
	"github.com/nammaooru/offers-api/internal/utils"
)

// referralCounter is the counters-table key backing referral code numbers.
const referralCounter = "referral_code"

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Users    *repository.UserRepo
	Counters *repository.CounterRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, ctr *repository.CounterRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Counters: ctr}
}

// ----- DTOs -----

type registerReq struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Phone        string `json:"phone"`
	ReferralCode string `json:"referralCode"`
}
type otpReq struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type forgotReq struct {
	Email string `json:"email"`
}
type resetReq struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type userPart struct {
	ID       uint64  `json:"id"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Role     string  `json:"role"`
	Points   int64   `json:"points"`
	StoreID  *uint64 `json:"storeId,omitempty"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

func toUserPart(u model.User) userPart {
	return userPart{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role, Points: u.Points, StoreID: u.StoreID}
}

// register creates an unverified account with the given role and mails
// an OTP. Shared by the public registration endpoint (role "user") and
// the admin store-account bootstrap (role "store").
func (h *AuthHandler) register(c echo.Context, role string) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username, email and password are required"})
	}
	if len(req.Username) < 3 || len(req.Username) > 30 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username must be 3-30 characters"})
	}
	if len(req.Password) < 6 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 6 characters"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// Resolve referral before creating the account so an invalid code
	// fails the whole registration rather than being silently dropped.
	var referredBy *uint64
	var referralCode *string
	if code := strings.ToUpper(strings.TrimSpace(req.ReferralCode)); code != "" {
		ref, err := h.Users.GetByReferralCode(ctx, code)
		if err != nil {
			if err == sql.ErrNoRows {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid referral code"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		referredBy = &ref.ID
		referralCode = &code
	}

	seq, err := h.Counters.Next(ctx, referralCounter)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "referral code allocation failed"})
	}
	otp, err := utils.GenerateOTP()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "otp generation failed"})
	}

	var phone *string
	if p := strings.TrimSpace(req.Phone); p != "" {
		phone = &p
	}
	uid, err := h.Users.Create(ctx, repository.NewUserParams{
		Username:       req.Username,
		Email:          req.Email,
		Password:       req.Password,
		Phone:          phone,
		Role:           role,
		ReferralCode:   referralCode,
		ReferredBy:     referredBy,
		MyReferralCode: utils.FormatReferralCode(seq),
		OTPCode:        otp,
		OTPExpiresAt:   time.Now().UTC().Add(time.Duration(h.Cfg.OTPTTLMin) * time.Minute),
		BcryptCost:     h.Cfg.BcryptCost,
	})
	if err != nil {
		if err == repository.ErrEmailExists {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	// Referrer reward is credited up front; the new account is worthless
	// to a farmer until its OTP is verified, and the email unique index
	// caps one reward per address.
	if referredBy != nil {
		if err := h.Users.AddPoints(ctx, *referredBy, 100); err != nil {
			c.Logger().Errorf("referral credit failed for user %d: %v", *referredBy, err)
		}
	}

	h.sendOTPMail(req.Email, otp)

	return c.JSON(http.StatusCreated, echo.Map{
		"id":      uid,
		"email":   req.Email,
		"message": "verification code sent",
	})
}

// Register handles POST /auth/register for customer accounts.
func (h *AuthHandler) Register(c echo.Context) error {
	return h.register(c, model.RoleUser)
}

// RegisterStore handles POST /store/create. It provisions a store-role
// account going through the same OTP verification as a customer; the
// store profile itself is added later via /store/add.
func (h *AuthHandler) RegisterStore(c echo.Context) error {
	return h.register(c, model.RoleStore)
}

// VerifyOTP handles POST /auth/verify-otp. A correct, unexpired code
// marks the account verified and logs the user in.
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req otpReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.OTP = strings.TrimSpace(req.OTP)
	if req.Email == "" || req.OTP == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and otp are required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if u.IsVerified {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "account already verified"})
	}
	if u.OTPCode == nil || *u.OTPCode != req.OTP ||
		u.OTPExpiresAt == nil || time.Now().UTC().After(*u.OTPExpiresAt) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or expired otp"})
	}

	if err := h.Users.MarkVerified(ctx, u.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	u.IsVerified = true

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	return c.JSON(http.StatusOK, authResp{User: toUserPart(u), Token: access.Token, Expires: access.Exp})
}

// ResendOTP handles POST /auth/resend-otp. Sends are throttled per
// account to keep the mail queue from being used as a spam relay.
func (h *AuthHandler) ResendOTP(c echo.Context) error {
	var req forgotReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if u.IsVerified {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "account already verified"})
	}
	if u.OTPSentAt != nil {
		wait := time.Duration(h.Cfg.OTPResendSec)*time.Second - time.Now().UTC().Sub(*u.OTPSentAt)
		if wait > 0 {
			retry := int(wait.Seconds()) + 1
			c.Response().Header().Set("Retry-After", strconv.Itoa(retry))
			return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "otp recently sent, try again later"})
		}
	}

	otp, err := utils.GenerateOTP()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "otp generation failed"})
	}
	expires := time.Now().UTC().Add(time.Duration(h.Cfg.OTPTTLMin) * time.Minute)
	if err := h.Users.StoreOTP(ctx, u.ID, otp, expires); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	h.sendOTPMail(u.Email, otp)
	return c.JSON(http.StatusOK, echo.Map{"message": "verification code sent"})
}

// Login handles POST /auth/login. Only verified accounts may log in.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if !u.IsVerified {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account not verified"})
	}
	if !u.IsActive {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account disabled"})
	}

	if err := h.Users.TouchLogin(ctx, u.ID); err != nil {
		c.Logger().Errorf("touch login failed for user %d: %v", u.ID, err)
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	return c.JSON(http.StatusOK, authResp{User: toUserPart(u), Token: access.Token, Expires: access.Exp})
}

// ForgotPassword handles POST /auth/forgot-password. The raw reset
// token goes out by mail; only its hash is stored.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	reset, err := utils.NewResetToken(h.Cfg.ResetTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	if err := h.Users.SetResetToken(ctx, u.ID, utils.HashResetRaw(reset.Raw), reset.Exp); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	link := strings.TrimRight(h.Cfg.FrontendURL, "/") + "/reset-password/" + reset.Raw
	h.sendMail(u.Email, "password_reset", "Reset your password",
		fmt.Sprintf("Use this link within %d minutes to reset your password: %s", h.Cfg.ResetTTLMin, link))

	return c.JSON(http.StatusOK, echo.Map{"message": "reset link sent"})
}

// ResetPassword handles POST /auth/reset-password. The conditional
// update in the repository consumes the token, so a link can be used
// at most once.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Token == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token and password are required"})
	}
	if len(req.Password) < 6 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 6 characters"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err := h.Users.ResetPassword(ctx, utils.HashResetRaw(req.Token), req.Password, h.Cfg.BcryptCost)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or expired token"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toUserPart(u))
}

// Logout handles GET /auth/logout. Tokens are client-held; there is
// nothing to invalidate server-side.
func (h *AuthHandler) Logout(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *AuthHandler) sendOTPMail(to, otp string) {
	h.sendMail(to, "otp", "Your verification code",
		fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", otp, h.Cfg.OTPTTLMin))
}

// sendMail enqueues a transactional email without blocking the request.
func (h *AuthHandler) sendMail(to, kind, subject, body string) {
	ev := queue.EmailEvent{
		To:      to,
		Kind:    kind,
		Subject: subject,
		Body:    body,
		SentAt:  time.Now().UTC().Format(time.RFC3339),
	}
	go func() { _ = queue_publisher.PublishEmail(context.Background(), ev) }()
}
