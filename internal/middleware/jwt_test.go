package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nammaooru/offers-api/internal/utils"
)

const testSecret = "unit-test-secret"

func runJWT(t *testing.T, authHeader string) (echo.Context, *httptest.ResponseRecorder, bool) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	reached := false
	next := func(c echo.Context) error {
		reached = true
		return c.NoContent(http.StatusOK)
	}
	require.NoError(t, JWTAuth(testSecret)(next)(c))
	return c, rec, reached
}

func TestJWTAuthValidToken(t *testing.T) {
	tok, err := utils.NewAccessToken(testSecret, 7, "user", 5)
	require.NoError(t, err)

	c, rec, reached := runJWT(t, "Bearer "+tok.Token)
	assert.True(t, reached)
	assert.Equal(t, http.StatusOK, rec.Code)
	// Claims decoded from JSON arrive as float64.
	assert.EqualValues(t, 7, c.Get("user_id"))
	assert.Equal(t, "user", c.Get("role"))
}

func TestJWTAuthMissingHeader(t *testing.T) {
	_, rec, reached := runJWT(t, "")
	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthWrongSecret(t *testing.T) {
	tok, err := utils.NewAccessToken("some-other-secret", 7, "user", 5)
	require.NoError(t, err)

	_, rec, reached := runJWT(t, "Bearer "+tok.Token)
	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthExpiredToken(t *testing.T) {
	tok, err := utils.NewAccessToken(testSecret, 7, "user", -5)
	require.NoError(t, err)

	_, rec, reached := runJWT(t, "Bearer "+tok.Token)
	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
