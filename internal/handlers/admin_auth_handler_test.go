package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/bakano/consultancy-backend/internal/database"
	"github.com/bakano/consultancy-backend/internal/middleware"
	"github.com/bakano/consultancy-backend/internal/models"
	"github.com/bakano/consultancy-backend/internal/services"
	"github.com/bakano/consultancy-backend/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var adminColumns = []string{"id", "email", "password_hash", "full_name", "is_active", "last_login_at", "created_at", "updated_at"}

func setupAdminAuthTest(t *testing.T) (*gin.Engine, sqlmock.Sqlmock, *jwt.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	db := sqlx.NewDb(mockDB, "sqlmock")

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	jwtService := jwt.NewService("test-secret", "test-refresh-secret", time.Hour, 7*24*time.Hour)
	service := services.NewAdminAuthService(
		database.NewAdminUserRepository(db),
		database.NewAdminRefreshTokenRepository(db),
		jwtService,
		logger,
	)
	handler := NewAdminAuthHandler(service, logger)

	router := gin.New()
	router.POST("/login", handler.Login)
	router.POST("/refresh", handler.RefreshToken)
	protected := router.Group("", middleware.AuthMiddleware(jwtService))
	protected.GET("/profile", handler.GetProfile)
	protected.POST("/create", handler.CreateAdmin)
	return router, mock, jwtService
}

func postJSON(router http.Handler, path string, body interface{}, token string) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAdminLogin_Success(t *testing.T) {
	router, mock, jwtService := setupAdminAuthTest(t)

	adminID := uuid.New()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM admin_users WHERE email = \\$1").
		WithArgs("ops@bakano.ec").
		WillReturnRows(sqlmock.NewRows(adminColumns).
			AddRow(adminID, "ops@bakano.ec", string(hash), "Operaciones", true, nil, now, now))
	mock.ExpectExec("INSERT INTO admin_refresh_tokens").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE admin_users SET last_login_at").
		WithArgs(adminID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := postJSON(router, "/login", models.AdminLoginRequest{Email: "Ops@Bakano.ec", Password: "correct-horse"}, "")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp models.AdminLoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, adminID, resp.AdminUser.ID)
	assert.NotContains(t, w.Body.String(), "password")

	claims, err := jwtService.ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.AdminRole, claims.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminLogin_UnknownEmail(t *testing.T) {
	router, mock, _ := setupAdminAuthTest(t)

	mock.ExpectQuery("SELECT (.+) FROM admin_users WHERE email = \\$1").
		WillReturnRows(sqlmock.NewRows(adminColumns))

	w := postJSON(router, "/login", models.AdminLoginRequest{Email: "nobody@bakano.ec", Password: "whatever"}, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid email or password")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminLogin_InvalidBody(t *testing.T) {
	router, _, _ := setupAdminAuthTest(t)

	w := postJSON(router, "/login", map[string]string{"email": "not-an-email"}, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid request body")
}

func TestAdminLogin_DatabaseFailureIsGeneric(t *testing.T) {
	router, mock, _ := setupAdminAuthTest(t)

	mock.ExpectQuery("SELECT (.+) FROM admin_users").
		WillReturnError(assert.AnError)

	w := postJSON(router, "/login", models.AdminLoginRequest{Email: "ops@bakano.ec", Password: "correct-horse"}, "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Login failed")
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

func TestAdminRefresh_GarbageToken(t *testing.T) {
	router, _, _ := setupAdminAuthTest(t)

	w := postJSON(router, "/refresh", models.AdminRefreshRequest{RefreshToken: "garbage"}, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid refresh token")
}

func TestAdminGetProfile(t *testing.T) {
	router, mock, jwtService := setupAdminAuthTest(t)

	adminID := uuid.New()
	token, err := jwtService.GenerateAccessToken(adminID, "ops@bakano.ec", models.AdminRole)
	require.NoError(t, err)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM admin_users WHERE id = \\$1").
		WithArgs(adminID).
		WillReturnRows(sqlmock.NewRows(adminColumns).
			AddRow(adminID, "ops@bakano.ec", "hash", "Operaciones", true, now, now, now))

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Operaciones")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminCreate_Conflict(t *testing.T) {
	router, mock, jwtService := setupAdminAuthTest(t)

	token, err := jwtService.GenerateAccessToken(uuid.New(), "ops@bakano.ec", models.AdminRole)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO admin_users").
		WillReturnError(&pq.Error{Code: "23505"})

	w := postJSON(router, "/create", models.AdminCreateRequest{
		Email:    "ops@bakano.ec",
		Password: "long-enough",
		FullName: "Otro",
	}, token)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already exists")
}

func TestAdminCreate_RequiresAuth(t *testing.T) {
	router, _, _ := setupAdminAuthTest(t)

	w := postJSON(router, "/create", models.AdminCreateRequest{
		Email:    "new@bakano.ec",
		Password: "long-enough",
		FullName: "Nuevo",
	}, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "MISSING_AUTH_HEADER")
}
