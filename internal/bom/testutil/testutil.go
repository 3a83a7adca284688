package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/replaysMike/Binner-sub003/internal/bom/entity"
	"github.com/replaysMike/Binner-sub003/internal/config"
	"github.com/replaysMike/Binner-sub003/internal/middleware"
)

const (
	TestSchema  = "test_binner"
	JWTSecret   = "binner-test-jwt-secret"
	TestUserID  = "test-user-001"
	OtherUserID = "test-user-002"
)

// TestEnv bundles what an integration test needs.
type TestEnv struct {
	DB     *gorm.DB
	Router *gin.Engine
	T      *testing.T
}

// loadDotEnv loads the first .env found walking up from this file, so tests
// see the same database settings as the server.
func loadDotEnv() {
	_, file, _, _ := runtime.Caller(0)
	for dir := filepath.Dir(file); ; dir = filepath.Dir(dir) {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			_ = godotenv.Load(filepath.Join(dir, ".env"))
			return
		}
		if filepath.Dir(dir) == dir {
			return
		}
	}
}

func testDatabaseConfig() config.DatabaseConfig {
	port, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		port = 5432
	}
	return config.DatabaseConfig{
		Host:     getEnv("DB_HOST", "127.0.0.1"),
		Port:     port,
		User:     getEnv("DB_USER", "binner"),
		Password: getEnv("DB_PASSWORD", "binner"),
		DBName:   getEnv("DB_NAME", "binner"),
		SSLMode:  "disable",
	}
}

func openSilent(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

// SetupTestDB returns a connection whose search_path is a fresh schema holding
// the BOM tables. The schema is dropped when the test ends; the test is
// skipped when Postgres is not reachable.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	loadDotEnv()

	baseDSN := testDatabaseConfig().DSN() + " connect_timeout=3"
	admin, err := openSilent(baseDSN)
	if err != nil {
		t.Skipf("database unavailable: %v", err)
	}
	defer closeDB(admin)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if sqlDB, err := admin.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		t.Skip("database unavailable")
	}

	schema := fmt.Sprintf("%s_%d", TestSchema, time.Now().UnixNano()%1000000)
	if err := admin.Exec("CREATE SCHEMA IF NOT EXISTS " + schema).Error; err != nil {
		t.Fatalf("create schema %s: %v", schema, err)
	}

	// search_path in the DSN applies to every pooled connection
	db, err := openSilent(baseDSN + " search_path=" + schema)
	if err != nil {
		t.Fatalf("connect to test schema: %v", err)
	}
	if err := db.AutoMigrate(entity.Models()...); err != nil {
		t.Fatalf("migrate test schema: %v", err)
	}

	t.Cleanup(func() {
		closeDB(db)
		if cleanup, err := openSilent(baseDSN); err == nil {
			cleanup.Exec("DROP SCHEMA IF EXISTS " + schema + " CASCADE")
			closeDB(cleanup)
		}
	})
	return db
}

// SetupRouter creates a gin test router
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// AuthGroup creates an API group with JWT auth middleware for testing
func AuthGroup(r *gin.Engine, path string) *gin.RouterGroup {
	return r.Group(path, middleware.JWTAuth(JWTSecret))
}

// GenerateTestToken signs a day-long token for userID with JWTSecret.
func GenerateTestToken(userID, name, email string) string {
	now := time.Now()
	claims := middleware.JWTClaims{
		UserID: userID,
		Name:   name,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    "binner",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
		},
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(JWTSecret))
	return token
}

// DefaultTestToken returns a token for the default test user
func DefaultTestToken() string {
	return GenerateTestToken(TestUserID, "Test User", "user@test.com")
}

// DoRequest sends body as JSON to h and records the response. An empty token
// sends no Authorization header.
func DoRequest(h http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// ParseResponse parses the JSON response body into a handler.Response-like map
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// SeedPart creates an inventory part owned by userID
func SeedPart(t *testing.T, db *gorm.DB, userID, partNumber string, quantity int64, cost string) *entity.Part {
	t.Helper()
	part := &entity.Part{
		UserID:     userID,
		PartNumber: partNumber,
		Quantity:   quantity,
		Cost:       decimal.RequireFromString(cost),
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := db.Create(part).Error; err != nil {
		t.Fatalf("Failed to seed part: %v", err)
	}
	return part
}

// SeedProject creates an empty project owned by userID
func SeedProject(t *testing.T, db *gorm.DB, userID, name string) *entity.Project {
	t.Helper()
	project := &entity.Project{
		UserID:    userID,
		Name:      name,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := db.Create(project).Error; err != nil {
		t.Fatalf("Failed to seed project: %v", err)
	}
	return project
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
