package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hugh/staff-manager/internal/auth"
	"github.com/hugh/staff-manager/internal/database"
	"github.com/hugh/staff-manager/internal/database/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const TestPassword = "testpassword123"

var dbCounter atomic.Int64

// SetupTestDB creates an isolated in-memory SQLite database with the schema and roles in place.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Named shared-cache databases keep one schema per test across pooled connections.
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", dbCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	if err := database.EnsureRoles(context.Background(), db); err != nil {
		t.Fatalf("failed to seed roles: %v", err)
	}

	t.Cleanup(func() { CleanupTestDB(t, db) })
	return db
}

// CleanupTestDB closes the test database connection
func CleanupTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Logf("warning: failed to get sql.DB: %v", err)
		return
	}
	sqlDB.Close()
}

// TestLogger discards everything.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// GetRole loads one of the seeded roles.
func GetRole(t *testing.T, db *gorm.DB, name string) *models.Role {
	t.Helper()

	var role models.Role
	if err := db.Where("name = ?", name).First(&role).Error; err != nil {
		t.Fatalf("failed to load role %s: %v", name, err)
	}
	return &role
}

// CreateTestDepartment creates a department under parent, or a root when parent is nil.
func CreateTestDepartment(t *testing.T, db *gorm.DB, name string, parent *models.Department) *models.Department {
	t.Helper()

	dept := &models.Department{Name: name}
	if parent != nil {
		dept.ParentID = &parent.ID
	}
	if err := db.Create(dept).Error; err != nil {
		t.Fatalf("failed to create test department: %v", err)
	}
	return dept
}

// UserOption tweaks a test user before it is inserted.
type UserOption func(*models.User)

func WithDepartment(dept *models.Department) UserOption {
	return func(u *models.User) { u.DepartmentID = &dept.ID }
}

func WithName(first, last string) UserOption {
	return func(u *models.User) {
		u.FirstName = first
		u.LastName = last
	}
}

func WithEmail(email string) UserOption {
	return func(u *models.User) { u.Email = email }
}

// CreateTestUser creates a user holding role, with password TestPassword.
func CreateTestUser(t *testing.T, db *gorm.DB, role string, opts ...UserOption) *models.User {
	t.Helper()

	hash, err := auth.HashPassword(TestPassword)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	r := GetRole(t, db, role)
	n := dbCounter.Add(1)
	user := &models.User{
		Email:        fmt.Sprintf("user%d@example.com", n),
		PasswordHash: hash,
		UserName:     fmt.Sprintf("user%d", n),
		FirstName:    "Test",
		LastName:     "User",
		RoleID:       &r.ID,
	}
	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	user.Role = r
	return user
}

// CreateTestJWTService creates a token service with distinct test keys.
func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService(auth.TokenConfig{
		AccessKey:  "test-access-key-for-testing",
		RefreshKey: "test-refresh-key-for-testing",
		Issuer:     "staff-manager-test",
		Audience:   "staff-manager-test-web",
		AccessTTL:  30 * time.Minute,
		RefreshTTL: 14 * 24 * time.Hour,
	})
}

// ExpiredAccessToken signs an access token with the test keys that expired a minute ago.
func ExpiredAccessToken(t *testing.T, userID uint, role string) string {
	t.Helper()

	expired := auth.NewJWTService(auth.TokenConfig{
		AccessKey:  "test-access-key-for-testing",
		RefreshKey: "test-refresh-key-for-testing",
		Issuer:     "staff-manager-test",
		Audience:   "staff-manager-test-web",
		AccessTTL:  -time.Minute,
		RefreshTTL: -time.Minute,
	})
	token, err := expired.GenerateAccessToken(userID, role)
	if err != nil {
		t.Fatalf("failed to generate expired token: %v", err)
	}
	return token
}

// GenerateTestToken generates a valid access token for the given user
func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, user *models.User) string {
	t.Helper()

	token, err := jwtService.GenerateAccessToken(user.ID, user.RoleName())
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}

	return token
}

// AuthenticatedRequest creates an HTTP request with authentication
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// UnauthenticatedRequest creates an HTTP request without authentication
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// AssertStatus checks if the response has the expected status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestSetup holds all the common test dependencies
type TestSetup struct {
	DB         *gorm.DB
	JWTService *auth.JWTService
	Admin      *models.User
	AdminToken string
	User       *models.User
	UserToken  string
}

// NewTestContext creates a database with one ADMIN and one USER plus their access tokens.
func NewTestContext(t *testing.T) *TestSetup {
	t.Helper()

	db := SetupTestDB(t)
	jwtService := CreateTestJWTService()
	admin := CreateTestUser(t, db, models.RoleAdmin, WithName("Ada", "Admin"))
	user := CreateTestUser(t, db, models.RoleUser, WithName("Uma", "User"))

	return &TestSetup{
		DB:         db,
		JWTService: jwtService,
		Admin:      admin,
		AdminToken: GenerateTestToken(t, jwtService, admin),
		User:       user,
		UserToken:  GenerateTestToken(t, jwtService, user),
	}
}
