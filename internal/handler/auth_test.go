package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nammaooru/offers-api/internal/config"
	"github.com/nammaooru/offers-api/internal/repository"
	"github.com/nammaooru/offers-api/internal/utils"
)

func newAuthHandler(t *testing.T) (*AuthHandler, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	cfg := config.Config{
		JWTSecret:    "test-secret",
		AccessTTLMin: 60,
		BcryptCost:   4,
		OTPTTLMin:    10,
		OTPResendSec: 60,
		ResetTTLMin:  10,
	}
	h := NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewCounterRepo(db))
	return h, mock, func() { db.Close() }
}

var userCols = []string{
	"id", "username", "email", "password_hash", "phone", "role", "points",
	"is_verified", "is_active", "referral_code", "referred_by", "my_referral_code",
	"otp_code", "otp_expires_at", "otp_sent_at", "store_id", "last_login",
	"created_at", "updated_at",
}

type userRowOpts struct {
	verified bool
	otp      string
	otpExp   time.Time
	otpSent  time.Time
	passHash string
}

func userRow(o userRowOpts) *sqlmock.Rows {
	now := time.Now().UTC()
	var otp interface{}
	var otpExp, otpSent interface{}
	if o.otp != "" {
		otp = o.otp
		otpExp = o.otpExp
		otpSent = o.otpSent
	}
	hash := o.passHash
	if hash == "" {
		hash = "$2a$04$invalidinvalidinvalidinvalidinvalid"
	}
	return sqlmock.NewRows(userCols).AddRow(
		7, "tester", "a@b.com", hash, nil, "user", 100,
		o.verified, true, nil, nil, "NOO0007",
		otp, otpExp, otpSent, nil, nil,
		now, now,
	)
}

func TestVerifyOTPSuccess(t *testing.T) {
	h, mock, done := newAuthHandler(t)
	defer done()

	mock.ExpectQuery(`FROM users WHERE email=`).
		WithArgs("a@b.com").
		WillReturnRows(userRow(userRowOpts{
			otp:    "123456",
			otpExp: time.Now().UTC().Add(5 * time.Minute),
		}))
	mock.ExpectExec(`UPDATE users SET is_verified=1`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, rec := jsonContext(t, http.MethodPost, "/auth/verify-otp",
		map[string]interface{}{"email": "A@B.com", "otp": "123456"}, 0, "")

	require.NoError(t, h.VerifyOTP(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "token")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyOTPWrongCode(t *testing.T) {
	h, mock, done := newAuthHandler(t)
	defer done()

	mock.ExpectQuery(`FROM users WHERE email=`).
		WithArgs("a@b.com").
		WillReturnRows(userRow(userRowOpts{
			otp:    "123456",
			otpExp: time.Now().UTC().Add(5 * time.Minute),
		}))

	c, rec := jsonContext(t, http.MethodPost, "/auth/verify-otp",
		map[string]interface{}{"email": "a@b.com", "otp": "999999"}, 0, "")

	require.NoError(t, h.VerifyOTP(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid or expired otp", errorMessage(t, rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyOTPExpiredCode(t *testing.T) {
	h, mock, done := newAuthHandler(t)
	defer done()

	mock.ExpectQuery(`FROM users WHERE email=`).
		WithArgs("a@b.com").
		WillReturnRows(userRow(userRowOpts{
			otp:    "123456",
			otpExp: time.Now().UTC().Add(-time.Minute),
		}))

	c, rec := jsonContext(t, http.MethodPost, "/auth/verify-otp",
		map[string]interface{}{"email": "a@b.com", "otp": "123456"}, 0, "")

	require.NoError(t, h.VerifyOTP(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResendOTPThrottled(t *testing.T) {
	h, mock, done := newAuthHandler(t)
	defer done()

	mock.ExpectQuery(`FROM users WHERE email=`).
		WithArgs("a@b.com").
		WillReturnRows(userRow(userRowOpts{
			otp:     "123456",
			otpExp:  time.Now().UTC().Add(5 * time.Minute),
			otpSent: time.Now().UTC().Add(-10 * time.Second),
		}))

	c, rec := jsonContext(t, http.MethodPost, "/auth/resend-otp",
		map[string]interface{}{"email": "a@b.com"}, 0, "")

	require.NoError(t, h.ResendOTP(c))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginUnverifiedAccount(t *testing.T) {
	h, mock, done := newAuthHandler(t)
	defer done()

	hash, err := utils.HashPassword("secret1", 4)
	require.NoError(t, err)

	mock.ExpectQuery(`FROM users WHERE email=`).
		WithArgs("a@b.com").
		WillReturnRows(userRow(userRowOpts{passHash: hash}))

	c, rec := jsonContext(t, http.MethodPost, "/auth/login",
		map[string]interface{}{"email": "a@b.com", "password": "secret1"}, 0, "")

	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "account not verified", errorMessage(t, rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}
