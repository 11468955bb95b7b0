package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/fdg312/cityfix/internal/config"
	"github.com/fdg312/cityfix/internal/httpserver"
)

func main() {
	cfg := config.Load()

	printStartupBanner(cfg)
	validateProductionConfig(cfg)

	server, err := httpserver.New(cfg)
	if err != nil {
		log.Fatalf("FATAL startup: %v", err)
	}
	defer server.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			server.Close()
			log.Fatalf("FATAL server: %v", err)
		}
	case <-ctx.Done():
		log.Println("shutdown: signal received, draining requests")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("WARN shutdown: %v", err)
		}
	}
}

// printStartupBanner logs a one-time summary of the resolved configuration.
// Secrets are only reported as "set" / "not set".
func printStartupBanner(cfg *config.Config) {
	log.Println("========== CityFix API ==========")
	log.Printf("  env              = %s", cfg.Env)
	log.Printf("  port             = %d", cfg.Port)

	// ---- Storage ----
	log.Println("---- storage ----")
	log.Printf("  storage_mode     = %s (resolved=%s)", cfg.StorageMode, cfg.ResolvedStorageMode())
	log.Printf("  storage_timeout  = %ds", cfg.StorageTimeoutSeconds)
	switch cfg.ResolvedStorageMode() {
	case config.StorageModeFile:
		log.Printf("  sqlite_path      = %s", cfg.SQLitePath)
	case config.StorageModePostgres:
		log.Printf("  runtime_url      = %s", describeDBURL(cfg.DatabaseURL, cfg.DatabaseURLPooled))
		log.Printf("  direct           = %s", setOrNot(cfg.DatabaseURLDirect))
		log.Printf("  migrations_on_startup = %t", cfg.RunMigrationsOnStartup)
	case config.StorageModeMongo:
		log.Printf("  mongo_uri        = %s", setOrNot(cfg.MongoURI))
		log.Printf("  mongo_db         = %s", nonEmptyOrDash(cfg.MongoDB))
	}
	log.Printf("  dedup_lock_mode  = %s", cfg.DedupLockMode)
	if cfg.DedupLockMode == config.LockModeRedis {
		log.Printf("  redis_url        = %s", setOrNot(cfg.RedisURL))
		log.Printf("  lock_ttl         = %ds", cfg.DedupLockTTLSeconds)
	}

	// ---- Auth ----
	log.Println("---- auth ----")
	log.Printf("  auth_mode        = %s", cfg.AuthMode)
	log.Printf("  admin_username   = %s", nonEmptyOrDash(cfg.AdminUsername))
	log.Printf("  admin_password   = %s", secretStatus(cfg.AdminPassword, config.DefaultAdminPassword))
	log.Printf("  jwt_secret       = %s", secretStatus(cfg.JWTSecret, config.DefaultJWTSecret))

	// ---- Blob / S3 ----
	log.Println("---- blob ----")
	log.Printf("  blob_mode        = %s", cfg.Blob.Mode)
	if cfg.Blob.Mode != config.BlobModeLocal {
		log.Printf("  s3: %s", cfg.Blob.S3.DiagnosticsSummary())
	}
	log.Printf("  upload_max_mb    = %d", cfg.UploadMaxMB)
	log.Printf("  classifier       = %s", cfg.ClassifierMode)

	// ---- Mailer ----
	log.Println("---- mailer ----")
	log.Printf("  emergency_to     = %s", nonEmptyOrDash(cfg.EmergencyNotifyEmail))
	log.Printf("  email_sender     = %s", cfg.EmailSenderMode)
	switch cfg.EmailSenderMode {
	case "smtp":
		log.Printf("  smtp_host        = %s", nonEmptyOrDash(cfg.SMTPHost))
		log.Printf("  smtp_port        = %d", cfg.SMTPPort)
		log.Printf("  smtp_from        = %s", nonEmptyOrDash(cfg.SMTPFrom))
		log.Printf("  smtp_username    = %s", setOrNot(cfg.SMTPUsername))
		log.Printf("  smtp_password    = %s", setOrNot(cfg.SMTPPassword))
		log.Printf("  smtp_use_tls     = %t", cfg.SMTPUseTLS)
	case "resend":
		log.Printf("  resend_api_key   = %s", setOrNot(cfg.ResendAPIKey))
		log.Printf("  resend_from      = %s", nonEmptyOrDash(cfg.ResendFrom))
	default:
		log.Printf("  (emergency emails will be printed to the server console)")
	}

	log.Println("=================================")
}

// validateProductionConfig performs fatal checks that only matter in non-local envs.
func validateProductionConfig(cfg *config.Config) {
	isProd := cfg.Env == "production" || cfg.Env == "prod" || cfg.Env == "staging"

	// S3 hard-mode validation
	if cfg.Blob.Mode == config.BlobModeS3 {
		if missing := cfg.Blob.S3.MissingRequired(); len(missing) > 0 {
			log.Fatalf("FATAL blob: BLOB_MODE is 's3' but S3 config is incomplete, missing: %s", strings.Join(missing, ", "))
		}
	}

	// SMTP validation when enabled
	if cfg.EmailSenderMode == "smtp" {
		var missing []string
		if strings.TrimSpace(cfg.SMTPHost) == "" {
			missing = append(missing, "SMTP_HOST")
		}
		if cfg.SMTPPort <= 0 {
			missing = append(missing, "SMTP_PORT")
		}
		if strings.TrimSpace(cfg.SMTPFrom) == "" {
			missing = append(missing, "SMTP_FROM")
		}
		if len(missing) > 0 {
			log.Fatalf("FATAL mailer: EMAIL_SENDER_MODE=smtp but config is incomplete, missing: %s", strings.Join(missing, ", "))
		}
	}

	// Resend validation when enabled
	if cfg.EmailSenderMode == "resend" && strings.TrimSpace(cfg.ResendAPIKey) == "" {
		log.Fatal("FATAL mailer: EMAIL_SENDER_MODE=resend but RESEND_API_KEY is not set")
	}

	if !isProd {
		return
	}

	// Default admin credentials must not reach production
	if cfg.AuthMode == config.AuthModeNone {
		log.Fatalf("FATAL auth: AUTH_MODE=none is not allowed in %s", cfg.Env)
	}
	if cfg.JWTSecret == config.DefaultJWTSecret {
		log.Fatalf("FATAL auth: JWT_SECRET must not be the default in %s", cfg.Env)
	}
	if cfg.AdminPassword == config.DefaultAdminPassword {
		log.Fatalf("FATAL auth: ADMIN_PASSWORD must not be the default in %s", cfg.Env)
	}

	// In-memory storage loses reports on restart
	if cfg.ResolvedStorageMode() == config.StorageModeMemory {
		log.Fatalf("FATAL storage: in-memory storage is not allowed in %s, set STORAGE_MODE", cfg.Env)
	}
}

// ---- helpers (no secrets) ----

func setOrNot(v string) string {
	if strings.TrimSpace(v) == "" {
		return "not set"
	}
	return "set"
}

func nonEmptyOrDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

func secretStatus(v, insecureDefault string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "not set"
	}
	if v == insecureDefault {
		return fmt.Sprintf("set (DEFAULT, insecure '%s')", insecureDefault)
	}
	return "set (custom)"
}

func describeDBURL(runtime, pooled string) string {
	if runtime == "" {
		return "not set"
	}
	if pooled != "" && runtime == pooled {
		return "set (via DATABASE_URL_POOLED)"
	}
	return "set"
}
