package tokens

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/getbuildcamp/billinghub/db/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func callWithToken(t *testing.T, token string) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := Middleware(testSecret)(func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"user_id": c.Get("UserID"),
			"org_id":  c.Get("OrgID"),
		})
	})
	return rec, handler(c)
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateAccessToken(testSecret, 3600, &models.User{ID: 12, OrgID: 4})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	rec, err := callWithToken(t, token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":12`)
	assert.Contains(t, rec.Body.String(), `"org_id":4`)
}

func TestExpiredTokenRejected(t *testing.T) {
	token, err := GenerateAccessToken(testSecret, -60, &models.User{ID: 12, OrgID: 4})
	require.NoError(t, err)

	_, err = callWithToken(t, token)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestWrongSecretRejected(t *testing.T) {
	token, err := GenerateAccessToken([]byte("other-secret"), 3600, &models.User{ID: 12, OrgID: 4})
	require.NoError(t, err)

	_, err = callWithToken(t, token)
	require.Error(t, err)
}

func TestMissingHeaderRejected(t *testing.T) {
	_, err := callWithToken(t, "")
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}
