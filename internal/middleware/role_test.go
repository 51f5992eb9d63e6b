package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roleContext(role interface{}) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	if role != nil {
		c.Set("role", role)
	}
	return c, rec
}

func TestRequireRole(t *testing.T) {
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	mw := RequireRole("store", "admin")(next)

	t.Run("allowed role passes", func(t *testing.T) {
		c, rec := roleContext("admin")
		require.NoError(t, mw(c))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("disallowed role is rejected", func(t *testing.T) {
		c, rec := roleContext("user")
		require.NoError(t, mw(c))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing role is rejected", func(t *testing.T) {
		c, rec := roleContext(nil)
		require.NoError(t, mw(c))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("non-string role is rejected", func(t *testing.T) {
		c, rec := roleContext(42)
		require.NoError(t, mw(c))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
