package handler

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nammaooru/offers-api/internal/model"
	"github.com/nammaooru/offers-api/internal/repository"
)

func newRedemptionHandler(t *testing.T) (*RedemptionHandler, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	h := NewRedemptionHandler(
		repository.NewRedemptionRepo(db),
		repository.NewCouponRepo(db),
		repository.NewUserRepo(db),
		repository.NewStoreRepo(db),
	)
	return h, mock, func() { db.Close() }
}

func jsonContext(t *testing.T, method, target string, body interface{}, userID uint64, role string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var payload string
	if s, ok := body.(string); ok {
		payload = s
	} else {
		bs, err := json.Marshal(body)
		require.NoError(t, err)
		payload = string(bs)
	}
	req := httptest.NewRequest(method, target, strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.Set("user_id", userID)
	c.Set("role", role)
	return c, rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	msg, _ := body["error"].(string)
	return msg
}

func futureDate() string {
	return time.Now().UTC().Add(48 * time.Hour).Format(time.RFC3339)
}

func TestRedeemMissingStoreID(t *testing.T) {
	h, mock, done := newRedemptionHandler(t)
	defer done()

	c, rec := jsonContext(t, http.MethodPost, "/coupon/redeem", map[string]interface{}{
		"userId":         7,
		"couponId":       3,
		"redemptionCode": "SAVE20",
		"expiryDate":     futureDate(),
	}, 7, model.RoleUser)

	require.NoError(t, h.Redeem(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing required fields", errorMessage(t, rec))
	// No transaction, no insert.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeemExpiredDateRejectedBeforeLookup(t *testing.T) {
	h, mock, done := newRedemptionHandler(t)
	defer done()

	c, rec := jsonContext(t, http.MethodPost, "/coupon/redeem", map[string]interface{}{
		"userId":         7,
		"couponId":       3,
		"storeId":        2,
		"redemptionCode": "SAVE20",
		"expiryDate":     "2020-01-01",
	}, 7, model.RoleUser)

	require.NoError(t, h.Redeem(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "coupon is expired", errorMessage(t, rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeemUnknownCoupon(t *testing.T) {
	h, mock, done := newRedemptionHandler(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT usage_limit, store_id FROM coupons`).
		WithArgs(uint64(3)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	c, rec := jsonContext(t, http.MethodPost, "/coupon/redeem", map[string]interface{}{
		"userId":         7,
		"couponId":       3,
		"storeId":        2,
		"redemptionCode": "SAVE20",
		"expiryDate":     futureDate(),
	}, 7, model.RoleUser)

	require.NoError(t, h.Redeem(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "coupon not found", errorMessage(t, rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeemDuplicatePreCheck(t *testing.T) {
	h, mock, done := newRedemptionHandler(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT usage_limit, store_id FROM coupons`).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"usage_limit", "store_id"}).AddRow(5, 2))
	mock.ExpectQuery(`SELECT 1 FROM redeemed_coupons`).
		WithArgs(uint64(7), uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectRollback()

	c, rec := jsonContext(t, http.MethodPost, "/coupon/redeem", map[string]interface{}{
		"userId":         7,
		"couponId":       3,
		"storeId":        2,
		"redemptionCode": "SAVE20",
		"expiryDate":     futureDate(),
	}, 7, model.RoleUser)

	require.NoError(t, h.Redeem(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "coupon already redeemed", errorMessage(t, rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeemUsageLimitReached(t *testing.T) {
	h, mock, done := newRedemptionHandler(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT usage_limit, store_id FROM coupons`).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"usage_limit", "store_id"}).AddRow(1, 2))
	mock.ExpectQuery(`SELECT 1 FROM redeemed_coupons`).
		WithArgs(uint64(8), uint64(3)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM redeemed_coupons`).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	// usageLimit=1 and user A already redeemed; user B is turned away.
	c, rec := jsonContext(t, http.MethodPost, "/coupon/redeem", map[string]interface{}{
		"userId":         8,
		"couponId":       3,
		"storeId":        2,
		"redemptionCode": "SAVE20",
		"expiryDate":     futureDate(),
	}, 8, model.RoleUser)

	require.NoError(t, h.Redeem(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "coupon usage limit reached", errorMessage(t, rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// The advisory pre-check can pass while a concurrent request wins the
// insert; the unique index rejection must surface as the same
// "already redeemed" error, not a 500.
func TestRedeemUniqueIndexIsAuthoritative(t *testing.T) {
	h, mock, done := newRedemptionHandler(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT usage_limit, store_id FROM coupons`).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"usage_limit", "store_id"}).AddRow(5, 2))
	mock.ExpectQuery(`SELECT 1 FROM redeemed_coupons`).
		WithArgs(uint64(7), uint64(3)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM redeemed_coupons`).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO redeemed_coupons`).
		WillReturnError(sqlmockDuplicateErr{})
	mock.ExpectRollback()

	c, rec := jsonContext(t, http.MethodPost, "/coupon/redeem", map[string]interface{}{
		"userId":         7,
		"couponId":       3,
		"storeId":        2,
		"redemptionCode": "SAVE20",
		"expiryDate":     futureDate(),
	}, 7, model.RoleUser)

	require.NoError(t, h.Redeem(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "coupon already redeemed", errorMessage(t, rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

type sqlmockDuplicateErr struct{}

func (sqlmockDuplicateErr) Error() string {
	return "Error 1062 (23000): Duplicate entry '7-3' for key 'redeemed_coupons.uniq_user_coupon'"
}

func TestRedeemSuccess(t *testing.T) {
	h, mock, done := newRedemptionHandler(t)
	defer done()

	now := time.Now().UTC()
	expiry := now.Add(48 * time.Hour).Truncate(time.Second)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT usage_limit, store_id FROM coupons`).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"usage_limit", "store_id"}).AddRow(5, 2))
	mock.ExpectQuery(`SELECT 1 FROM redeemed_coupons`).
		WithArgs(uint64(7), uint64(3)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM redeemed_coupons`).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec(`INSERT INTO redeemed_coupons`).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectQuery(`SELECT id, user_id, coupon_id, store_id, redemption_code, status`).
		WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "coupon_id", "store_id", "redemption_code", "status",
			"redeemed_at", "expiry_date", "used_on", "created_at", "updated_at",
		}).AddRow(42, 7, 3, 2, "SAVE20", model.RedemptionActive, now, expiry, nil, now, now))
	mock.ExpectCommit()

	c, rec := jsonContext(t, http.MethodPost, "/coupon/redeem", map[string]interface{}{
		"userId":         7,
		"couponId":       3,
		"storeId":        2,
		"redemptionCode": "save20",
		"expiryDate":     expiry.Format(time.RFC3339),
	}, 7, model.RoleUser)

	require.NoError(t, h.Redeem(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp redemptionResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(42), resp.ID)
	assert.Equal(t, model.RedemptionActive, resp.Status)
	assert.Equal(t, "SAVE20", resp.RedemptionCode)
	assert.Nil(t, resp.UsedOnDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeemForAnotherUser(t *testing.T) {
	h, mock, done := newRedemptionHandler(t)
	defer done()

	c, rec := jsonContext(t, http.MethodPost, "/coupon/redeem", map[string]interface{}{
		"userId":         99,
		"couponId":       3,
		"storeId":        2,
		"redemptionCode": "SAVE20",
		"expiryDate":     futureDate(),
	}, 7, model.RoleUser)

	require.NoError(t, h.Redeem(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func ledgerRow(status string, usedOn interface{}) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "user_id", "coupon_id", "store_id", "redemption_code", "status",
		"redeemed_at", "expiry_date", "used_on", "created_at", "updated_at",
	}).AddRow(42, 7, 3, 2, "SAVE20", status, now, now.Add(time.Hour), usedOn, now, now)
}

func TestUpdateStatusCreditsPointsOnce(t *testing.T) {
	h, mock, done := newRedemptionHandler(t)
	defer done()

	now := time.Now().UTC()

	mock.ExpectQuery(`FROM redeemed_coupons WHERE id=`).
		WithArgs(uint64(42), uint64(7)).
		WillReturnRows(ledgerRow(model.RedemptionActive, nil))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE redeemed_coupons SET status=`).
		WithArgs(model.RedemptionUsed, uint64(42), uint64(7), model.RedemptionUsed).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users SET points=points`).
		WithArgs(int64(model.PointsPerUse), uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(`FROM redeemed_coupons WHERE id=`).
		WithArgs(uint64(42), uint64(7)).
		WillReturnRows(ledgerRow(model.RedemptionUsed, now))

	c, rec := jsonContext(t, http.MethodPut, "/coupon/redeemed/update-status/42",
		map[string]interface{}{"status": "used", "userId": 7}, 10, model.RoleStore)
	c.SetParamNames("redeemedCouponId")
	c.SetParamValues("42")

	require.NoError(t, h.UpdateStatus(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		RedeemedCoupon redemptionResp `json:"redeemedCoupon"`
		PointsAwarded  bool           `json:"pointsAwarded"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.PointsAwarded)
	assert.Equal(t, model.RedemptionUsed, body.RedeemedCoupon.Status)
	assert.NotNil(t, body.RedeemedCoupon.UsedOnDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A repeat transition finds zero affected rows, so no point credit is
// issued and used_on keeps its original value.
func TestUpdateStatusIdempotent(t *testing.T) {
	h, mock, done := newRedemptionHandler(t)
	defer done()

	now := time.Now().UTC()

	mock.ExpectQuery(`FROM redeemed_coupons WHERE id=`).
		WithArgs(uint64(42), uint64(7)).
		WillReturnRows(ledgerRow(model.RedemptionUsed, now))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE redeemed_coupons SET status=`).
		WithArgs(model.RedemptionUsed, uint64(42), uint64(7), model.RedemptionUsed).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectQuery(`FROM redeemed_coupons WHERE id=`).
		WithArgs(uint64(42), uint64(7)).
		WillReturnRows(ledgerRow(model.RedemptionUsed, now))

	c, rec := jsonContext(t, http.MethodPut, "/coupon/redeemed/update-status/42",
		map[string]interface{}{"status": "used", "userId": 7}, 10, model.RoleStore)
	c.SetParamNames("redeemedCouponId")
	c.SetParamValues("42")

	require.NoError(t, h.UpdateStatus(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		PointsAwarded bool `json:"pointsAwarded"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.PointsAwarded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusScopedToUser(t *testing.T) {
	h, mock, done := newRedemptionHandler(t)
	defer done()

	mock.ExpectQuery(`FROM redeemed_coupons WHERE id=`).
		WithArgs(uint64(42), uint64(99)).
		WillReturnError(sql.ErrNoRows)

	c, rec := jsonContext(t, http.MethodPut, "/coupon/redeemed/update-status/42",
		map[string]interface{}{"status": "used", "userId": 99}, 10, model.RoleStore)
	c.SetParamNames("redeemedCouponId")
	c.SetParamValues("42")

	require.NoError(t, h.UpdateStatus(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "redeemed coupon not found for this user", errorMessage(t, rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusRejectsOtherStatuses(t *testing.T) {
	h, mock, done := newRedemptionHandler(t)
	defer done()

	for _, status := range []string{"expired", "active", "cancelled"} {
		c, rec := jsonContext(t, http.MethodPut, "/coupon/redeemed/update-status/42",
			map[string]interface{}{"status": status, "userId": 7}, 10, model.RoleStore)
		c.SetParamNames("redeemedCouponId")
		c.SetParamValues("42")

		require.NoError(t, h.UpdateStatus(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "status %q", status)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}
