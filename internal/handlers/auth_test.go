package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaguard-back/internal/models"
)

func TestRegisterStoresHashOnly(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(t, db, newTestConfig(), nil)

	w := doJSON(r, http.MethodPost, "/api/v1/users/register", "",
		[]byte(`{"name":"Alice","email":"Alice@Example.com","password":"secret1"}`))
	require.Equal(t, http.StatusCreated, w.Code)

	// Projection never contains a password field.
	assert.NotContains(t, w.Body.String(), "secret1")
	assert.NotContains(t, w.Body.String(), "password")

	var user models.User
	require.NoError(t, db.Where("email = ?", "alice@example.com").First(&user).Error)
	assert.NotEqual(t, "secret1", user.Password)
	assert.NotEmpty(t, user.Password)
	assert.Equal(t, "alice@example.com", user.Email, "email normalized")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(t, db, newTestConfig(), nil)

	body := []byte(`{"name":"Alice","email":"alice@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, doJSON(r, http.MethodPost, "/api/v1/users/register", "", body).Code)
	assert.Equal(t, http.StatusConflict, doJSON(r, http.MethodPost, "/api/v1/users/register", "", body).Code)
}

func TestRegisterValidation(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(t, db, newTestConfig(), nil)

	// short password
	w := doJSON(r, http.MethodPost, "/api/v1/users/register", "",
		[]byte(`{"name":"A","email":"a@b.c","password":"short"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// bad email
	w = doJSON(r, http.MethodPost, "/api/v1/users/register", "",
		[]byte(`{"name":"A","email":"not-an-email","password":"secret1"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginFlow(t *testing.T) {
	db := newTestDB(t)
	cfg := newTestConfig()
	r := newTestRouter(t, db, cfg, nil)

	require.Equal(t, http.StatusCreated, doJSON(r, http.MethodPost, "/api/v1/users/register", "",
		[]byte(`{"name":"Alice","email":"alice@example.com","password":"secret1"}`)).Code)

	w := doJSON(r, http.MethodPost, "/api/v1/users/login", "",
		[]byte(`{"email":"alice@example.com","password":"secret1"}`))
	require.Equal(t, http.StatusOK, w.Code)

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	assert.Equal(t, "alice@example.com", resp.User.Email)

	// The returned token is accepted by the session middleware.
	profile := doJSON(r, http.MethodGet, "/api/v1/users/get-profile", resp.Token, nil)
	require.Equal(t, http.StatusOK, profile.Code)
	assert.Contains(t, profile.Body.String(), "alice@example.com")
	assert.NotContains(t, profile.Body.String(), "password")

	// Session cookie was set.
	cookies := w.Result().Cookies()
	var found bool
	for _, c := range cookies {
		if c.Name == "jwtToken" {
			found = true
			assert.True(t, c.HttpOnly)
		}
	}
	assert.True(t, found, "jwtToken cookie set on login")
}

func TestLoginFailures(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(t, db, newTestConfig(), nil)
	createTestUser(t, db, "alice@example.com", "secret1")

	w := doJSON(r, http.MethodPost, "/api/v1/users/login", "",
		[]byte(`{"email":"nobody@example.com","password":"secret1"}`))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotContains(t, w.Body.String(), "token")

	w = doJSON(r, http.MethodPost, "/api/v1/users/login", "",
		[]byte(`{"email":"alice@example.com","password":"wrongpass"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotContains(t, w.Body.String(), "token")
}

func TestLoginGoogleOnlyAccount(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(t, db, newTestConfig(), nil)

	sub := "google-sub-1"
	require.NoError(t, db.Create(&models.User{Email: "g@example.com", GoogleID: &sub}).Error)

	w := doJSON(r, http.MethodPost, "/api/v1/users/login", "",
		[]byte(`{"email":"g@example.com","password":"anything"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthMiddlewareRejects(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(t, db, newTestConfig(), nil)

	assert.Equal(t, http.StatusUnauthorized, doJSON(r, http.MethodGet, "/api/v1/users/get-profile", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, doJSON(r, http.MethodGet, "/api/v1/users/get-profile", "garbage.token.here", nil).Code)
}

func TestUpdateProfilePartial(t *testing.T) {
	db := newTestDB(t)
	cfg := newTestConfig()
	r := newTestRouter(t, db, cfg, nil)

	user := createTestUser(t, db, "alice@example.com", "secret1")
	token := sessionToken(t, cfg, user.ID)

	w := doJSON(r, http.MethodPut, "/api/v1/users/update-profile", token,
		[]byte(`{"phone":"+15551234"}`))
	require.Equal(t, http.StatusOK, w.Code)

	var updated models.User
	require.NoError(t, db.First(&updated, user.ID).Error)
	assert.Equal(t, "+15551234", updated.Phone)
	assert.Equal(t, "Test User", updated.Name, "absent fields left unchanged")
	assert.Equal(t, user.Password, updated.Password)
}

func TestUpdateProfilePassword(t *testing.T) {
	db := newTestDB(t)
	cfg := newTestConfig()
	r := newTestRouter(t, db, cfg, nil)

	user := createTestUser(t, db, "alice@example.com", "secret1")
	token := sessionToken(t, cfg, user.ID)

	w := doJSON(r, http.MethodPut, "/api/v1/users/update-profile", token,
		[]byte(`{"password":"short"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPut, "/api/v1/users/update-profile", token,
		[]byte(`{"password":"newsecret"}`))
	require.Equal(t, http.StatusOK, w.Code)

	// New password works, old does not.
	assert.Equal(t, http.StatusOK, doJSON(r, http.MethodPost, "/api/v1/users/login", "",
		[]byte(`{"email":"alice@example.com","password":"newsecret"}`)).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodPost, "/api/v1/users/login", "",
		[]byte(`{"email":"alice@example.com","password":"secret1"}`)).Code)
}

func TestLogoutClearsCookie(t *testing.T) {
	db := newTestDB(t)
	cfg := newTestConfig()
	r := newTestRouter(t, db, cfg, nil)

	user := createTestUser(t, db, "alice@example.com", "secret1")
	token := sessionToken(t, cfg, user.ID)

	w := doJSON(r, http.MethodPost, "/api/v1/users/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var cleared bool
	for _, c := range w.Result().Cookies() {
		if c.Name == "jwtToken" {
			cleared = true
			assert.Empty(t, c.Value)
			assert.Negative(t, c.MaxAge)
		}
	}
	assert.True(t, cleared)
}
