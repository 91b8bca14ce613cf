package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	StorageLocal = "local"
	StorageS3    = "s3"

	defaultResetSecret = "dev-reset-secret"
)

type Config struct {
	Port string

	DBHost string
	DBPort string
	DBName string
	DBUser string
	DBPass string

	// DBMaxOpenConns is the maximum number of open connections to the database (default 25).
	DBMaxOpenConns int
	// DBMaxIdleConns is the maximum number of idle connections (default 5).
	DBMaxIdleConns int

	// MigrateOnStart applies pending migrations before serving (default true).
	MigrateOnStart bool

	// Env is "dev" (default) or "prod". When "prod", RESET_TOKEN_SECRET must be set and not the default.
	Env string

	// TLSCertFile and TLSKeyFile enable HTTPS when both are set.
	// When empty, the API listens with plain HTTP.
	TLSCertFile string
	TLSKeyFile  string

	// LogFormat is "text" (default) or "json" for structured logging.
	LogFormat string

	// CORSAllowedOrigins is a list of origins allowed for CORS (e.g. https://app.example.com, http://localhost:8081).
	// Set via CORS_ALLOWED_ORIGINS (comma-separated). When empty, no CORS headers are sent (same-origin only).
	CORSAllowedOrigins []string

	// StorageBackend selects where profile photos live: "local" (default) or "s3".
	StorageBackend string
	// StorageRoot is the directory for the local backend (default uploads/profile-photos).
	StorageRoot string
	// PhotoURLPrefix is prepended to stored filenames to build profilePhotoUrl.
	PhotoURLPrefix string
	// MaxUploadBytes caps multipart upload size (default 10 MiB).
	MaxUploadBytes int

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Prefix    string

	ResetTokenSecret string
	ResetTokenTTL    time.Duration

	// BcryptCost of 0 means bcrypt.DefaultCost.
	BcryptCost int

	// PhotoSweepCron is a cron expression for removing orphaned photos (default @hourly). "off" disables the sweeper.
	PhotoSweepCron   string
	PhotoSweepMinAge time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real env vars take precedence.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port: getEnv("PORT", "8080"),

		DBHost: getEnv("DB_HOST", "localhost"),
		DBPort: getEnv("DB_PORT", "5432"),
		DBName: getEnv("DB_NAME", "accountdb"),
		DBUser: getEnv("DB_USER", "accountuser"),
		DBPass: getEnv("DB_PASS", "accountpass"),

		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", true),

		Env: getEnv("ENV", "dev"),

		// Optional TLS configuration for HTTPS.
		TLSCertFile: getEnv("TLS_CERT_FILE", ""),
		TLSKeyFile:  getEnv("TLS_KEY_FILE", ""),

		LogFormat: getEnv("LOG_FORMAT", "text"),

		CORSAllowedOrigins: parseCORSOrigins(getEnv("CORS_ALLOWED_ORIGINS", "")),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", StorageLocal)),
		StorageRoot:    getEnv("STORAGE_ROOT", "uploads/profile-photos"),
		PhotoURLPrefix: getEnv("PHOTO_URL_PREFIX", "/uploads/profile-photos/"),
		MaxUploadBytes: getEnvInt("MAX_UPLOAD_BYTES", 10<<20),

		S3Bucket:    getEnv("S3_BUCKET", "profile-photos"),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),
		S3Prefix:    getEnv("S3_PREFIX", "profile-photos/"),

		ResetTokenSecret: getEnv("RESET_TOKEN_SECRET", defaultResetSecret),
		ResetTokenTTL:    time.Duration(getEnvInt("RESET_TOKEN_TTL_MINUTES", 30)) * time.Minute,

		BcryptCost: getEnvInt("BCRYPT_COST", 0),

		PhotoSweepCron:   getEnv("PHOTO_SWEEP_CRON", "@hourly"),
		PhotoSweepMinAge: time.Duration(getEnvInt("PHOTO_SWEEP_MIN_AGE_MINUTES", 60)) * time.Minute,
	}
}

// Validate reports settings that would make the server unsafe or unable to start.
func (c Config) Validate() error {
	var errs []error
	if c.Env == "prod" && (c.ResetTokenSecret == "" || c.ResetTokenSecret == defaultResetSecret) {
		errs = append(errs, errors.New("RESET_TOKEN_SECRET must be set in prod"))
	}
	switch c.StorageBackend {
	case StorageLocal:
		if c.StorageRoot == "" {
			errs = append(errs, errors.New("STORAGE_ROOT must not be empty"))
		}
	case StorageS3:
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET must be set for the s3 backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend))
	}
	// The prefix doubles as the route photos are served from.
	if !strings.HasPrefix(c.PhotoURLPrefix, "/") || !strings.HasSuffix(c.PhotoURLPrefix, "/") ||
		strings.ContainsAny(c.PhotoURLPrefix, "{}*") {
		errs = append(errs, fmt.Errorf("PHOTO_URL_PREFIX %q must be a path starting and ending with '/'", c.PhotoURLPrefix))
	} else if c.PhotoURLPrefix == "/" || strings.HasPrefix(c.PhotoURLPrefix, "/auth/") || strings.HasPrefix(c.PhotoURLPrefix, "/user/") {
		errs = append(errs, fmt.Errorf("PHOTO_URL_PREFIX %q overlaps the API routes", c.PhotoURLPrefix))
	}
	if c.BcryptCost != 0 && (c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost) {
		errs = append(errs, fmt.Errorf("BCRYPT_COST %d out of range %d..%d", c.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost))
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		errs = append(errs, errors.New("TLS_CERT_FILE and TLS_KEY_FILE must be set together"))
	}
	return errors.Join(errs...)
}

// DatabaseURL returns a postgres URL suitable for golang-migrate.
func (c Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName)
}

// parseCORSOrigins splits a comma-separated list of origins and trims spaces. Empty strings are omitted.
func parseCORSOrigins(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if o := strings.TrimSpace(p); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
