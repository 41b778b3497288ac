package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"storerate-service/internal/model"
	"storerate-service/pkg/config"
	"storerate-service/pkg/database"
	"storerate-service/pkg/jwtutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db, PreferSimpleProtocol: true}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	database.DB = gdb
	t.Cleanup(func() {
		database.DB = nil
		db.Close()
	})
	return mock
}

func newAuthContext(token string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func okHandler(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	c, rec := newAuthContext("")

	err := AuthMiddleware(okHandler)(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareMalformedHeader(t *testing.T) {
	c, rec := newAuthContext("Basic abcdef")

	err := AuthMiddleware(okHandler)(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareInvalidToken(t *testing.T) {
	jwtutil.Initialize(&config.JWTConfig{SigningKey: "middleware-test-key", ExpirationHours: 1})
	c, rec := newAuthContext("Bearer not-a-real-token")

	err := AuthMiddleware(okHandler)(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid or expired token")
}

func TestAuthMiddlewareDeletedUser(t *testing.T) {
	jwtutil.Initialize(&config.JWTConfig{SigningKey: "middleware-test-key", ExpirationHours: 1})
	mock := setupMockDB(t)

	token, err := jwtutil.GenerateToken(12, "gone@example.com", model.RoleUser)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	c, rec := newAuthContext("Bearer " + token)
	err = AuthMiddleware(okHandler)(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "user not found")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthMiddlewareResolvesRoleFromDatabase(t *testing.T) {
	jwtutil.Initialize(&config.JWTConfig{SigningKey: "middleware-test-key", ExpirationHours: 1})
	mock := setupMockDB(t)

	// Token claims a stale role; the database row is authoritative.
	token, err := jwtutil.GenerateToken(12, "user@example.com", model.RoleUser)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role"}).
			AddRow(12, "Johnathan Storefront Example", "user@example.com", model.RoleAdmin))

	c, rec := newAuthContext("Bearer " + token)
	var resolved *model.User
	err = AuthMiddleware(func(c echo.Context) error {
		u, ok := CurrentUser(c)
		require.True(t, ok)
		resolved = u
		return c.NoContent(http.StatusOK)
	})(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, resolved)
	assert.Equal(t, model.RoleAdmin, resolved.Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequireRoleForbidden(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user", &model.User{ID: 3, Role: model.RoleUser})

	err := RequireRole(model.RoleAdmin)(okHandler)(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRoleAllowed(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ratings/store/1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user", &model.User{ID: 3, Role: model.RoleStoreOwner})

	err := RequireRole(model.RoleStoreOwner, model.RoleAdmin)(okHandler)(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRoleUnauthenticated(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := RequireRole(model.RoleAdmin)(okHandler)(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
