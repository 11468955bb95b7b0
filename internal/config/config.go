package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

const (
	BlobModeLocal = "local"
	BlobModeS3    = "s3"
	BlobModeAuto  = "auto"
)

type S3Config struct {
	Endpoint          string
	Region            string
	Bucket            string
	AccessKeyID       string
	SecretAccessKey   string
	PublicBaseURL     string
	PresignTTLSeconds int
	PreferPublicURL   bool
}

func (c S3Config) MissingRequired() []string {
	missing := make([]string, 0, 6)
	if strings.TrimSpace(c.Endpoint) == "" {
		missing = append(missing, "S3_ENDPOINT")
	}
	if strings.TrimSpace(c.Region) == "" {
		missing = append(missing, "S3_REGION")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		missing = append(missing, "S3_BUCKET")
	}
	if strings.TrimSpace(c.AccessKeyID) == "" {
		missing = append(missing, "S3_ACCESS_KEY_ID")
	}
	if strings.TrimSpace(c.SecretAccessKey) == "" {
		missing = append(missing, "S3_SECRET_ACCESS_KEY")
	}
	if strings.TrimSpace(c.PublicBaseURL) == "" {
		missing = append(missing, "S3_PUBLIC_BASE_URL")
	}
	return missing
}

func (c S3Config) IsConfigured() bool {
	return len(c.MissingRequired()) == 0
}

func (c S3Config) Diagnostics() (level string, code string, msg string) {
	allEmpty := strings.TrimSpace(c.Endpoint) == "" &&
		strings.TrimSpace(c.Region) == "" &&
		strings.TrimSpace(c.Bucket) == "" &&
		strings.TrimSpace(c.AccessKeyID) == "" &&
		strings.TrimSpace(c.SecretAccessKey) == "" &&
		strings.TrimSpace(c.PublicBaseURL) == ""

	if allEmpty {
		return "INFO", "s3_not_configured", "not configured (all empty)"
	}

	missing := c.MissingRequired()
	if len(missing) > 0 {
		return "WARN", "s3_partial_config", fmt.Sprintf("partial config, missing=%v", missing)
	}

	return "INFO", "s3_ready", "ready"
}

// DiagnosticsSummary returns a detailed summary for logging (no secrets)
func (c S3Config) DiagnosticsSummary() string {
	accessKeyStatus := "not set"
	if strings.TrimSpace(c.AccessKeyID) != "" {
		accessKeyStatus = "set"
	}
	secretKeyStatus := "not set"
	if strings.TrimSpace(c.SecretAccessKey) != "" {
		secretKeyStatus = "set"
	}

	return fmt.Sprintf("endpoint=%s region=%s bucket=%s public_base_url=%s presign_ttl=%ds prefer_public_url=%t access_key_id=%s secret_access_key=%s",
		nonEmptyOrDash(c.Endpoint),
		nonEmptyOrDash(c.Region),
		nonEmptyOrDash(c.Bucket),
		nonEmptyOrDash(c.PublicBaseURL),
		c.PresignTTLSeconds,
		c.PreferPublicURL,
		accessKeyStatus,
		secretKeyStatus,
	)
}

func nonEmptyOrDash(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "-"
	}
	return v
}

type BlobConfig struct {
	Mode string // local|s3|auto
	S3   S3Config
}

const (
	StorageModeMemory   = "memory"
	StorageModeFile     = "file"
	StorageModePostgres = "postgres"
	StorageModeMongo    = "mongo"
	StorageModeAuto     = "auto"
)

const (
	LockModeLocal = "local"
	LockModeRedis = "redis"
)

const (
	AuthModeNone  = "none"
	AuthModeAdmin = "admin"
)

// Insecure demo defaults; cmd/api refuses them outside local.
const (
	DefaultAdminPassword = "cityfix123"
	DefaultJWTSecret     = "change_me"
)

// Config содержит конфигурацию приложения
type Config struct {
	Env      string // local | staging | prod
	Port     int
	LogLevel string

	// Storage
	StorageMode           string // memory | file | postgres | mongo | auto
	StorageTimeoutSeconds int
	SQLitePath            string
	MongoURI              string
	MongoDB               string

	// Database
	DatabaseURL       string // runtime connection (resolved: pooled > url > direct)
	DatabaseURLRaw    string // DATABASE_URL as provided
	DatabaseURLPooled string // DATABASE_URL_POOLED as provided
	DatabaseURLDirect string // for migrations / DDL (may be empty)

	// Dedup locking
	DedupLockMode       string // local | redis
	RedisURL            string
	DedupLockTTLSeconds int

	// CORS
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	// Rate Limiting
	RateLimitRPS   int
	RateLimitBurst int

	// Photos (S3 or memory)
	Blob BlobConfig

	// Uploads / Reports
	UploadMaxMB       int
	UploadAllowedMime string
	ReportMaxImages   int

	// Admin authentication
	AuthMode      string // none | admin
	AdminUsername string
	AdminPassword string
	JWTSecret     string
	JWTIssuer     string
	JWTTTLMinutes int

	// Classifier
	ClassifierMode string // mock | none

	// Mail
	EmailSenderMode      string // local | smtp | resend
	SMTPHost             string
	SMTPPort             int
	SMTPUsername         string
	SMTPPassword         string
	SMTPFrom             string
	SMTPUseTLS           bool
	ResendAPIKey         string
	ResendFrom           string
	EmergencyNotifyEmail string

	// Migrations
	RunMigrationsOnStartup bool
}

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	// APP_ENV (fallback to ENV for backward compat, default: local)
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = os.Getenv("ENV")
	}
	if env == "" {
		env = "local"
	}

	// PORT (default: 8080)
	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		if p, err := strconv.Atoi(portStr); err == nil {
			port = p
		}
	}

	// LOG_LEVEL (default: debug)
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "debug"
	}

	// ---------- Database ----------
	// Priority: DATABASE_URL_POOLED > DATABASE_URL > DATABASE_URL_DIRECT
	dbPooled := strings.TrimSpace(os.Getenv("DATABASE_URL_POOLED"))
	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	dbDirect := strings.TrimSpace(os.Getenv("DATABASE_URL_DIRECT"))

	runtimeDB := dbPooled
	if runtimeDB == "" {
		runtimeDB = dbURL
	}
	if runtimeDB == "" {
		runtimeDB = dbDirect
	}

	// ---------- Storage ----------
	storageMode := parseEnum("STORAGE_MODE", StorageModeAuto,
		StorageModeMemory, StorageModeFile, StorageModePostgres, StorageModeMongo, StorageModeAuto)

	storageTimeout := envInt("STORAGE_TIMEOUT_SECONDS", 5)
	if storageTimeout <= 0 {
		storageTimeout = 5
	}

	sqlitePath := strings.TrimSpace(os.Getenv("SQLITE_PATH"))
	if sqlitePath == "" {
		sqlitePath = "cityfix.db"
	}

	mongoURI := strings.TrimSpace(os.Getenv("MONGO_URI"))
	mongoDB := strings.TrimSpace(os.Getenv("MONGO_DB"))
	if mongoDB == "" {
		mongoDB = "cityfix"
	}

	// ---------- Migrations ----------
	runMigrationsOnStartup := parseBoolEnv("RUN_MIGRATIONS_ON_STARTUP")

	// ---------- Dedup locking ----------
	dedupLockMode := parseEnum("DEDUP_LOCK_MODE", LockModeLocal, LockModeLocal, LockModeRedis)
	redisURL := strings.TrimSpace(os.Getenv("REDIS_URL"))
	if dedupLockMode == LockModeRedis && redisURL == "" {
		log.Fatal("REDIS_URL is required when DEDUP_LOCK_MODE=redis")
	}
	dedupLockTTL := envInt("DEDUP_LOCK_TTL_SECONDS", 10)
	if dedupLockTTL <= 0 {
		dedupLockTTL = 10
	}

	// ---------- CORS ----------
	corsOrigins := parseCORSOrigins(os.Getenv("CORS_ALLOWED_ORIGINS"), env)
	corsAllowCreds := os.Getenv("CORS_ALLOW_CREDENTIALS") == "1"

	// ---------- Rate Limiting ----------
	rateLimitRPS := envInt("RATE_LIMIT_RPS", 0)
	rateLimitBurst := envInt("RATE_LIMIT_BURST", 0)

	// ---------- Blob / S3 ----------
	blobMode := parseEnum("BLOB_MODE", BlobModeLocal, BlobModeLocal, BlobModeS3, BlobModeAuto)

	// S3_PRESIGN_TTL_SECONDS (default: 900, enforce > 0)
	s3PresignTTL := envInt("S3_PRESIGN_TTL_SECONDS", 900)
	if s3PresignTTL <= 0 {
		s3PresignTTL = 900
	}

	s3Cfg := S3Config{
		Endpoint:          strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
		Region:            strings.TrimSpace(os.Getenv("S3_REGION")),
		Bucket:            strings.TrimSpace(os.Getenv("S3_BUCKET")),
		AccessKeyID:       strings.TrimSpace(os.Getenv("S3_ACCESS_KEY_ID")),
		SecretAccessKey:   strings.TrimSpace(os.Getenv("S3_SECRET_ACCESS_KEY")),
		PublicBaseURL:     strings.TrimSpace(os.Getenv("S3_PUBLIC_BASE_URL")),
		PresignTTLSeconds: s3PresignTTL,
		PreferPublicURL:   parseBoolEnv("S3_PREFER_PUBLIC_URL"),
	}

	// UPLOAD_MAX_MB (default: 10)
	uploadMaxMB := envInt("UPLOAD_MAX_MB", 10)

	// UPLOAD_ALLOWED_MIME (default: image/jpeg,image/png,image/heic)
	uploadAllowedMime := os.Getenv("UPLOAD_ALLOWED_MIME")
	if uploadAllowedMime == "" {
		uploadAllowedMime = "image/jpeg,image/png,image/heic"
	}

	// REPORT_MAX_IMAGES (default: 3)
	reportMaxImages := envInt("REPORT_MAX_IMAGES", 3)
	if reportMaxImages <= 0 {
		reportMaxImages = 3
	}

	// ---------- Admin auth ----------
	authMode := parseEnum("AUTH_MODE", AuthModeAdmin, AuthModeNone, AuthModeAdmin)

	adminUsername := strings.TrimSpace(os.Getenv("ADMIN_USERNAME"))
	if adminUsername == "" {
		adminUsername = "admin"
	}
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = DefaultAdminPassword
		if env != "local" && authMode != AuthModeNone {
			log.Println("WARNING: ADMIN_PASSWORD is not set in non-local environment, using the demo password!")
		}
	}

	// JWT_SECRET
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = DefaultJWTSecret
	}
	// Warn if using default in non-local environment
	if jwtSecret == DefaultJWTSecret && env != "local" {
		log.Println("WARNING: JWT_SECRET is set to 'change_me' in non-local environment!")
	}

	// JWT_ISSUER (default: "cityfix")
	jwtIssuer := os.Getenv("JWT_ISSUER")
	if jwtIssuer == "" {
		jwtIssuer = "cityfix"
	}

	// JWT_TTL_MINUTES (default: 720 = 12 hours)
	jwtTTLMinutes := envInt("JWT_TTL_MINUTES", 720)
	if jwtTTLMinutes <= 0 {
		jwtTTLMinutes = 720
	}

	// ---------- Classifier ----------
	classifierMode := parseEnum("CLASSIFIER_MODE", "mock", "mock", "none")

	// ---------- Mail ----------
	emailSenderMode := parseEnum("EMAIL_SENDER_MODE", "local", "local", "smtp", "resend")
	resendAPIKey := strings.TrimSpace(os.Getenv("RESEND_API_KEY"))
	resendFrom := strings.TrimSpace(os.Getenv("RESEND_FROM"))
	if resendFrom == "" {
		resendFrom = "CityFix <onboarding@resend.dev>"
	}
	if emailSenderMode == "resend" && resendAPIKey == "" {
		log.Fatal("RESEND_API_KEY is required when EMAIL_SENDER_MODE=resend")
	}
	smtpHost := strings.TrimSpace(os.Getenv("SMTP_HOST"))
	smtpPort := envInt("SMTP_PORT", 587)
	if smtpPort <= 0 {
		smtpPort = 587
	}
	smtpFrom := strings.TrimSpace(os.Getenv("SMTP_FROM"))
	if smtpFrom == "" {
		smtpFrom = "CityFix <no-reply@cityfix.local>"
	}

	return &Config{
		Env:      env,
		Port:     port,
		LogLevel: logLevel,

		StorageMode:           storageMode,
		StorageTimeoutSeconds: storageTimeout,
		SQLitePath:            sqlitePath,
		MongoURI:              mongoURI,
		MongoDB:               mongoDB,

		DatabaseURL:       runtimeDB,
		DatabaseURLRaw:    dbURL,
		DatabaseURLPooled: dbPooled,
		DatabaseURLDirect: dbDirect,

		DedupLockMode:       dedupLockMode,
		RedisURL:            redisURL,
		DedupLockTTLSeconds: dedupLockTTL,

		CORSAllowedOrigins:   corsOrigins,
		CORSAllowCredentials: corsAllowCreds,

		RateLimitRPS:   rateLimitRPS,
		RateLimitBurst: rateLimitBurst,

		Blob: BlobConfig{Mode: blobMode, S3: s3Cfg},

		UploadMaxMB:       uploadMaxMB,
		UploadAllowedMime: uploadAllowedMime,
		ReportMaxImages:   reportMaxImages,

		AuthMode:      authMode,
		AdminUsername: adminUsername,
		AdminPassword: adminPassword,
		JWTSecret:     jwtSecret,
		JWTIssuer:     jwtIssuer,
		JWTTTLMinutes: jwtTTLMinutes,

		ClassifierMode: classifierMode,

		EmailSenderMode:      emailSenderMode,
		SMTPHost:             smtpHost,
		SMTPPort:             smtpPort,
		SMTPUsername:         strings.TrimSpace(os.Getenv("SMTP_USERNAME")),
		SMTPPassword:         strings.TrimSpace(os.Getenv("SMTP_PASSWORD")),
		SMTPFrom:             smtpFrom,
		SMTPUseTLS:           parseBoolEnv("SMTP_USE_TLS"),
		ResendAPIKey:         resendAPIKey,
		ResendFrom:           resendFrom,
		EmergencyNotifyEmail: strings.TrimSpace(os.Getenv("EMERGENCY_NOTIFY_EMAIL")),

		RunMigrationsOnStartup: runMigrationsOnStartup,
	}
}

// ResolvedStorageMode раскрывает auto (и пустое значение): postgres при заданном DATABASE_URL, иначе memory.
func (c *Config) ResolvedStorageMode() string {
	if c.StorageMode != StorageModeAuto && c.StorageMode != "" {
		return c.StorageMode
	}
	if c.DatabaseURL != "" {
		return StorageModePostgres
	}
	return StorageModeMemory
}

// parseCORSOrigins parses CORS_ALLOWED_ORIGINS env var.
// In local mode, defaults to localhost origins if empty.
func parseCORSOrigins(raw, env string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if env == "local" {
			return []string{"http://localhost:3000", "http://localhost:8081"}
		}
		return nil // prod: deny by default
	}

	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

// parseEnum reads a lower-cased enum value, falling back to defaultVal on
// empty or unknown input.
func parseEnum(key string, defaultVal string, allowed ...string) string {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if mode == "" {
		return defaultVal
	}
	for _, a := range allowed {
		if mode == a {
			return mode
		}
	}
	log.Printf("WARNING: unknown %s=%q, fallback to %s", key, mode, defaultVal)
	return defaultVal
}

// envInt reads an int env var with a default value.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

func parseBoolEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}
