package handler_test

import (
	"net/http"
	"testing"

	"storerate-service/internal/handler"
	"storerate-service/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	validName     = "Johnathan Storefront Example"
	validPassword = "Password1!"
)

func TestRegisterStoresHashedPassword(t *testing.T) {
	mock := setupMockDB(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	// Insert order follows the model's fields: name, email, password,
	// address, role, created_at, updated_at.
	mock.ExpectQuery(`INSERT INTO "users"`).
		WithArgs(
			validName,
			"john@example.com",
			bcryptHashOf{plaintext: validPassword},
			"12 Market Street",
			model.RoleUser,
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	c, rec := newJSONContext(http.MethodPost, "/auth/register",
		`{"name":"`+validName+`","email":"john@example.com","password":"`+validPassword+`","address":"12 Market Street"}`)

	require.NoError(t, handler.Register(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token"`)
	// The hash is excluded from the response entirely.
	assert.NotContains(t, rec.Body.String(), validPassword)
	assert.NotContains(t, rec.Body.String(), `"password"`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterRejectsInvalidFields(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"short name", `{"name":"Too Short","email":"a@example.com","password":"Password1!","address":""}`},
		{"bad email", `{"name":"` + validName + `","email":"nope","password":"Password1!","address":""}`},
		{"weak password", `{"name":"` + validName + `","email":"a@example.com","password":"password","address":""}`},
		{"unknown role", `{"name":"` + validName + `","email":"a@example.com","password":"Password1!","address":"","role":"superuser"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newJSONContext(http.MethodPost, "/auth/register", tc.body)
			require.NoError(t, handler.Register(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRegisterDuplicateEmailConflict(t *testing.T) {
	mock := setupMockDB(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	c, rec := newJSONContext(http.MethodPost, "/auth/register",
		`{"name":"`+validName+`","email":"john@example.com","password":"`+validPassword+`","address":""}`)

	require.NoError(t, handler.Register(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginSuccess(t *testing.T) {
	mock := setupMockDB(t)

	hash, err := bcrypt.GenerateFromPassword([]byte(validPassword), bcrypt.DefaultCost)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password", "role"}).
			AddRow(5, validName, "john@example.com", string(hash), model.RoleUser))

	c, rec := newJSONContext(http.MethodPost, "/auth/login",
		`{"email":"john@example.com","password":"`+validPassword+`"}`)

	require.NoError(t, handler.Login(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token"`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginWrongPassword(t *testing.T) {
	mock := setupMockDB(t)

	hash, err := bcrypt.GenerateFromPassword([]byte(validPassword), bcrypt.DefaultCost)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password", "role"}).
			AddRow(5, validName, "john@example.com", string(hash), model.RoleUser))

	c, rec := newJSONContext(http.MethodPost, "/auth/login",
		`{"email":"john@example.com","password":"Password2!"}`)

	require.NoError(t, handler.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid credentials")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginUnknownUserSameResponse(t *testing.T) {
	mock := setupMockDB(t)

	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	c, rec := newJSONContext(http.MethodPost, "/auth/login",
		`{"email":"nobody@example.com","password":"`+validPassword+`"}`)

	require.NoError(t, handler.Login(c))
	// Same status and body as a wrong password, so accounts cannot be probed.
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid credentials")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangePasswordValidatesComplexity(t *testing.T) {
	c, rec := newJSONContext(http.MethodPut, "/auth/password", `{"password":"weak"}`)
	setAuthenticatedUser(c, &model.User{ID: 5, Role: model.RoleUser})

	require.NoError(t, handler.ChangePassword(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChangePasswordSuccess(t *testing.T) {
	mock := setupMockDB(t)

	mock.ExpectExec(`UPDATE "users" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, rec := newJSONContext(http.MethodPut, "/auth/password", `{"password":"NewSecret1!"}`)
	setAuthenticatedUser(c, &model.User{ID: 5, Role: model.RoleUser})

	require.NoError(t, handler.ChangePassword(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProfileReturnsCurrentUser(t *testing.T) {
	c, rec := newJSONContext(http.MethodGet, "/auth/profile", "")
	setAuthenticatedUser(c, &model.User{ID: 5, Name: validName, Email: "john@example.com", Role: model.RoleUser})

	require.NoError(t, handler.GetProfile(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "john@example.com")
	assert.NotContains(t, rec.Body.String(), `"password"`)
}
