package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trailhq/trail-api/internal/models"
	"github.com/trailhq/trail-api/internal/service"
)

func newTestRouter(authSvc *service.AuthService, roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	group := r.Group("/protected", JWT(authSvc))
	if len(roles) > 0 {
		group.Use(RequireRoles(roles...))
	}
	group.GET("", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func issueToken(t *testing.T, secret string, role models.UserRole) string {
	t.Helper()
	now := time.Now().UTC()
	claims := &models.JWTClaims{
		UserID: "u1",
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestJWTMiddlewareRejectsMissingHeader(t *testing.T) {
	authSvc := service.NewAuthService(nil, nil, zap.NewNop(), service.AuthConfig{TokenSecret: "secret", TokenExpiry: time.Hour})
	router := newTestRouter(authSvc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddlewareRejectsMalformedHeader(t *testing.T) {
	authSvc := service.NewAuthService(nil, nil, zap.NewNop(), service.AuthConfig{TokenSecret: "secret", TokenExpiry: time.Hour})
	router := newTestRouter(authSvc)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRolesBlocksWrongRole(t *testing.T) {
	authSvc := service.NewAuthService(nil, nil, zap.NewNop(), service.AuthConfig{TokenSecret: "secret", TokenExpiry: time.Hour})
	router := newTestRouter(authSvc, models.RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, "secret", models.RoleStaff))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

type memoryUserRepo struct {
	users map[string]*models.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: map[string]*models.User{}}
}

func (r *memoryUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if user, ok := r.users[email]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (r *memoryUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	for _, user := range r.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *memoryUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	_, ok := r.users[email]
	return ok, nil
}

func (r *memoryUserRepo) Create(_ context.Context, user *models.User) error {
	user.ID = "u-" + user.Email
	r.users[user.Email] = user
	return nil
}

func (r *memoryUserRepo) UpdateLastLogin(_ context.Context, _ string, _ time.Time) error {
	return nil
}

func (r *memoryUserRepo) UpdatePassword(_ context.Context, _, _ string, _ time.Time) error {
	return nil
}

// A freshly registered account must be able to log in and reach the admin
// surface without any manual role assignment.
func TestRegisteredAccountReachesAdminRoutes(t *testing.T) {
	authSvc := service.NewAuthService(newMemoryUserRepo(), nil, zap.NewNop(), service.AuthConfig{TokenSecret: "secret", TokenExpiry: time.Hour})
	router := newTestRouter(authSvc, models.RoleAdmin)

	_, err := authSvc.Register(context.Background(), models.RegisterRequest{
		FullName: "Ann Admin",
		Email:    "ann@example.com",
		Password: "password",
	})
	require.NoError(t, err)

	login, err := authSvc.Login(context.Background(), models.LoginRequest{
		Email:    "ann@example.com",
		Password: "password",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+login.AccessToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRolesAllowsMatchingRole(t *testing.T) {
	authSvc := service.NewAuthService(nil, nil, zap.NewNop(), service.AuthConfig{TokenSecret: "secret", TokenExpiry: time.Hour})
	router := newTestRouter(authSvc, models.RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, "secret", models.RoleAdmin))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
