package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nammaooru/offers-api/internal/model"
	"github.com/nammaooru/offers-api/internal/repository"
)

func newCouponHandler(t *testing.T) (*CouponHandler, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	h := NewCouponHandler(repository.NewCouponRepo(db), repository.NewStoreRepo(db))
	return h, mock, func() { db.Close() }
}

func TestCouponCreateValidation(t *testing.T) {
	h, mock, done := newCouponHandler(t)
	defer done()

	expiry := time.Now().UTC().Add(72 * time.Hour).Format(time.RFC3339)
	cases := []struct {
		name string
		body map[string]interface{}
		want string
	}{
		{
			name: "missing title",
			body: map[string]interface{}{"usageLimit": 5, "redemptionCode": "SAVE20", "expiryDate": expiry},
			want: "title is required",
		},
		{
			name: "zero usage limit",
			body: map[string]interface{}{"title": "Deal", "usageLimit": 0, "redemptionCode": "SAVE20", "expiryDate": expiry},
			want: "usageLimit must be at least 1",
		},
		{
			name: "malformed redemption code",
			body: map[string]interface{}{"title": "Deal", "usageLimit": 5, "redemptionCode": "no spaces!", "expiryDate": expiry},
			want: "redemptionCode must be 4-20 characters (A-Z, 0-9, _ or -)",
		},
		{
			name: "unparseable expiry",
			body: map[string]interface{}{"title": "Deal", "usageLimit": 5, "redemptionCode": "SAVE20", "expiryDate": "soon"},
			want: "expiryDate must be a valid date",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := jsonContext(t, http.MethodPost, "/coupon/create/2", tc.body, 10, model.RoleStore)
			c.SetParamNames("storeId")
			c.SetParamValues("2")

			require.NoError(t, h.Create(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.want, errorMessage(t, rec))
		})
	}
	// Validation failures never reach the database.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCouponCreateForeignStore(t *testing.T) {
	h, mock, done := newCouponHandler(t)
	defer done()

	mock.ExpectQuery(`SELECT owner_id FROM stores`).
		WithArgs(uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow(55))

	c, rec := jsonContext(t, http.MethodPost, "/coupon/create/2", map[string]interface{}{
		"title":          "Deal",
		"usageLimit":     5,
		"redemptionCode": "SAVE20",
		"expiryDate":     time.Now().UTC().Add(72 * time.Hour).Format(time.RFC3339),
	}, 10, model.RoleStore)
	c.SetParamNames("storeId")
	c.SetParamValues("2")

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCouponEditNotFound(t *testing.T) {
	h, mock, done := newCouponHandler(t)
	defer done()

	mock.ExpectQuery(`FROM coupons WHERE id=`).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	c, rec := jsonContext(t, http.MethodPut, "/coupon/edit/3", map[string]interface{}{
		"title":          "Deal",
		"usageLimit":     5,
		"redemptionCode": "SAVE20",
		"expiryDate":     time.Now().UTC().Add(72 * time.Hour).Format(time.RFC3339),
	}, 10, model.RoleStore)
	c.SetParamNames("couponId")
	c.SetParamValues("3")

	require.NoError(t, h.Edit(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "coupon not found", errorMessage(t, rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}
