package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/crucial707/hci-account/internal/config"
	"github.com/crucial707/hci-account/internal/models"
	"github.com/crucial707/hci-account/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

var userCols = []string{"id", "name", "email", "password_hash", "profile_photo_url", "created_at"}

const selectByEmail = `SELECT id, name, email, password_hash, profile_photo_url, created_at FROM users WHERE email = \$1`

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		StorageBackend:   config.StorageLocal,
		StorageRoot:      t.TempDir(),
		PhotoURLPrefix:   "/uploads/profile-photos/",
		MaxUploadBytes:   1 << 20,
		ResetTokenSecret: "test-secret-for-integration",
		ResetTokenTTL:    time.Minute,
		BcryptCost:       bcrypt.MinCost,
	}
}

func newTestServer(t *testing.T, db *sqlmockDB) (*httptest.Server, storage.Store) {
	t.Helper()
	cfg := testConfig(t)
	photos, err := storage.NewLocalStore(cfg.StorageRoot)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	srv := httptest.NewServer(newRouter(db.DB, cfg, photos, slog.New(slog.NewTextHandler(io.Discard, nil))))
	t.Cleanup(srv.Close)
	return srv, photos
}

// TestAPI_SignupLoginUploadProfile is an integration test: it builds the full router with a
// sqlmock-backed DB and walks a user through every account endpoint.
func TestAPI_SignupLoginUploadProfile(t *testing.T) {
	db := newSqlmock(t)
	mock := db.mock

	hash, _ := bcrypt.GenerateFromPassword([]byte("pw123"), bcrypt.MinCost)
	photoURL := "/uploads/profile-photos/x_me.png"

	// Signup
	mock.ExpectQuery(selectByEmail).WithArgs("al@x.com").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("Al", "al@x.com", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(1, "Al", "al@x.com", string(hash), nil, time.Now()))
	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs(int64(1), models.AuditSignup, "").
		WillReturnResult(sqlmock.NewResult(1, 1))

	// Login
	mock.ExpectQuery(selectByEmail).WithArgs("al@x.com").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(1, "Al", "al@x.com", string(hash), nil, time.Now()))
	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs(int64(1), models.AuditLogin, "").
		WillReturnResult(sqlmock.NewResult(2, 1))

	// Upload
	mock.ExpectQuery(selectByEmail).WithArgs("al@x.com").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(1, "Al", "al@x.com", string(hash), nil, time.Now()))
	mock.ExpectQuery(`UPDATE users`).
		WithArgs(sqlmock.AnyArg(), 1).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(1, "Al", "al@x.com", string(hash), photoURL, time.Now()))
	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs(int64(1), models.AuditProfilePhotoUploaded, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(3, 1))

	// Profile
	mock.ExpectQuery(selectByEmail).WithArgs("al@x.com").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(1, "Al", "al@x.com", string(hash), photoURL, time.Now()))

	srv, _ := newTestServer(t, db)

	// 1) Signup
	resp := postJSON(t, srv.URL+"/auth/signup", map[string]string{"name": "Al", "email": "Al@X.com", "password": "pw123"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("signup status: got %d, want 200", resp.StatusCode)
	}
	var signupOut struct {
		ID    int    `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	decode(t, resp, &signupOut)
	if signupOut.ID != 1 || signupOut.Email != "al@x.com" || signupOut.Name != "Al" {
		t.Errorf("unexpected signup response: %+v", signupOut)
	}

	// 2) Login
	resp = postJSON(t, srv.URL+"/auth/login", map[string]string{"email": "al@x.com", "password": "pw123"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status: got %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	// 3) Upload
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("email", "al@x.com")
	fw, _ := mw.CreateFormFile("profilePhoto", "me.png")
	fw.Write([]byte("png-bytes"))
	mw.Close()
	resp, err := http.Post(srv.URL+"/user/profile-photo", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("upload request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status: got %d, want 200", resp.StatusCode)
	}
	var uploadOut struct {
		PhotoURL string `json:"photoUrl"`
	}
	decode(t, resp, &uploadOut)
	if !strings.HasPrefix(uploadOut.PhotoURL, "/uploads/profile-photos/") {
		t.Errorf("unexpected photoUrl: %q", uploadOut.PhotoURL)
	}

	// 4) The stored photo is served back
	resp, err = http.Get(srv.URL + uploadOut.PhotoURL)
	if err != nil {
		t.Fatalf("photo request: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "png-bytes" {
		t.Errorf("photo: got %d %q", resp.StatusCode, body)
	}

	// 5) Profile
	resp, err = http.Get(srv.URL + "/user/profile?email=al@x.com")
	if err != nil {
		t.Fatalf("profile request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("profile status: got %d, want 200", resp.StatusCode)
	}
	var profile models.Profile
	decode(t, resp, &profile)
	if profile.ID != 1 || profile.ProfilePhotoURL != photoURL {
		t.Errorf("unexpected profile: %+v", profile)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAPI_HealthAndReady(t *testing.T) {
	db := newSqlmockPing(t)
	srv, _ := newTestServer(t, db)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status: got %d, want 200", resp.StatusCode)
	}

	db.mock.ExpectPing()
	resp, err = http.Get(srv.URL + "/ready")
	if err != nil {
		t.Fatalf("ready request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("ready status: got %d, want 200", resp.StatusCode)
	}

	db.mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	resp, err = http.Get(srv.URL + "/ready")
	if err != nil {
		t.Fatalf("ready request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("ready status with db down: got %d, want 503", resp.StatusCode)
	}
}

func TestAPI_Metrics(t *testing.T) {
	db := newSqlmock(t)
	srv, _ := newTestServer(t, db)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), `http_requests_total{method="GET",path="/health",status="200"}`) {
		t.Errorf("metrics output missing /health request counter")
	}
}

func TestAPI_SecurityHeaders(t *testing.T) {
	db := newSqlmock(t)
	srv, _ := newTestServer(t, db)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options: got %q", got)
	}
}

func TestAPI_UploadTooLarge(t *testing.T) {
	db := newSqlmock(t)
	srv, _ := newTestServer(t, db)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("email", "al@x.com")
	fw, _ := mw.CreateFormFile("profilePhoto", "big.png")
	fw.Write(bytes.Repeat([]byte("x"), 2<<20))
	mw.Close()

	resp, err := http.Post(srv.URL+"/user/profile-photo", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("upload request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("upload status: got %d, want 413", resp.StatusCode)
	}
	if err := db.mock.ExpectationsWereMet(); err != nil {
		t.Errorf("no queries expected: %v", err)
	}
}

// ==========================
// helpers
// ==========================

type sqlmockDB struct {
	DB   *sql.DB
	mock sqlmock.Sqlmock
}

func newSqlmock(t *testing.T) *sqlmockDB {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &sqlmockDB{DB: db, mock: mock}
}

func newSqlmockPing(t *testing.T) *sqlmockDB {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &sqlmockDB{DB: db, mock: mock}
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	b, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}
