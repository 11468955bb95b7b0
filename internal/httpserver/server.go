package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/fdg312/cityfix/internal/analytics"
	"github.com/fdg312/cityfix/internal/assistant"
	"github.com/fdg312/cityfix/internal/auth"
	"github.com/fdg312/cityfix/internal/blob"
	"github.com/fdg312/cityfix/internal/classifier"
	"github.com/fdg312/cityfix/internal/config"
	"github.com/fdg312/cityfix/internal/dedup"
	"github.com/fdg312/cityfix/internal/images"
	"github.com/fdg312/cityfix/internal/mailer"
	"github.com/fdg312/cityfix/internal/reports"
	"github.com/fdg312/cityfix/internal/storage"
	"github.com/fdg312/cityfix/internal/storage/backend"
)

// Server представляет HTTP сервер
type Server struct {
	config         *config.Config
	mux            *http.ServeMux
	storage        storage.ReportsStorage
	storageMode    string
	locker         dedup.Locker
	reports        *reports.Service
	authMiddleware *auth.Middleware
	httpServer     *http.Server
}

// New создаёт новый HTTP сервер: открывает хранилище, собирает сервисы и
// регистрирует маршруты.
func New(cfg *config.Config) (*Server, error) {
	s := &Server{
		config: cfg,
		mux:    http.NewServeMux(),
	}

	if err := s.initStorage(); err != nil {
		return nil, err
	}
	if err := s.initLocker(); err != nil {
		s.storage.Close()
		return nil, err
	}

	notifier, err := s.initNotifier()
	if err != nil {
		s.Close()
		return nil, err
	}
	s.reports = reports.NewService(s.storage, s.locker, notifier, cfg)

	if err := s.routes(); err != nil {
		s.Close()
		return nil, err
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// initStorage открывает адаптер хранилища по STORAGE_MODE.
func (s *Server) initStorage() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, mode, err := backend.Open(ctx, s.config, log.Default())
	if err != nil {
		return fmt.Errorf("storage init: %w", err)
	}
	s.storage = st
	s.storageMode = mode
	return nil
}

// initLocker выбирает блокировки дедупликации: in-process или Redis для
// нескольких реплик.
func (s *Server) initLocker() error {
	if s.config.DedupLockMode != config.LockModeRedis {
		log.Println("INFO dedup: lock_mode=local")
		s.locker = dedup.NewLocalLocker()
		return nil
	}

	ttl := time.Duration(s.config.DedupLockTTLSeconds) * time.Second
	locker, err := dedup.NewRedisLocker(s.config.RedisURL, ttl, log.Default())
	if err != nil {
		return fmt.Errorf("redis locker init: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := locker.Ping(ctx); err != nil {
		locker.Close()
		return fmt.Errorf("redis locker ping: %w", err)
	}

	log.Println("INFO dedup: lock_mode=redis")
	s.locker = locker
	return nil
}

// initNotifier включает письма об экстренных заявках, только если задан
// EMERGENCY_NOTIFY_EMAIL.
func (s *Server) initNotifier() (reports.Notifier, error) {
	if s.config.EmergencyNotifyEmail == "" {
		return nil, nil
	}

	sender, err := mailer.NewSenderFromConfig(s.config, log.Default())
	if err != nil {
		return nil, fmt.Errorf("email sender init: %w", err)
	}
	log.Printf("INFO mailer: emergency notifications to=%s mode=%s", s.config.EmergencyNotifyEmail, s.config.EmailSenderMode)
	return mailer.NewEmergencyNotifier(sender, s.config.EmergencyNotifyEmail), nil
}

// routes регистрирует маршруты
func (s *Server) routes() error {
	// Health check (no auth required)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)

	// Admin auth
	authService, err := auth.NewService(s.config)
	if err != nil {
		return fmt.Errorf("auth init: %w", err)
	}
	s.authMiddleware = auth.NewMiddleware(s.config, authService)
	authHandlers := auth.NewHandlers(authService)
	s.mux.HandleFunc("POST /v1/admin/login", authHandlers.HandleLogin)

	// Photos
	blobStore, blobMode, err := blob.NewBlobStore(s.config.Blob, log.Default())
	if err != nil {
		return fmt.Errorf("blob store init: %w", err)
	}
	log.Printf("INFO images: blob_mode=%s classifier=%s", blobMode, s.config.ClassifierMode)
	imagesService := images.NewService(blobStore, classifier.NewProvider(s.config), s.config.UploadMaxMB, s.config.UploadAllowedMime)
	imagesHandlers := images.NewHandlers(imagesService)
	s.mux.HandleFunc("POST /v1/images", imagesHandlers.HandleUpload)
	s.mux.HandleFunc("GET /v1/images/{id}", imagesHandlers.HandleDownload)

	// Reports: citizens submit and read, admins triage
	reportsHandlers := reports.NewHandlers(s.reports)
	s.mux.Handle("POST /v1/reports", s.authMiddleware.OptionalAdmin(http.HandlerFunc(reportsHandlers.HandleCreate)))
	s.mux.HandleFunc("GET /v1/reports", reportsHandlers.HandleList)
	s.mux.HandleFunc("GET /v1/reports/{id}", reportsHandlers.HandleGet)
	s.mux.Handle("PATCH /v1/reports/{id}/status", s.authMiddleware.RequireAdmin(http.HandlerFunc(reportsHandlers.HandleUpdateStatus)))
	s.mux.Handle("DELETE /v1/reports/{id}", s.authMiddleware.RequireAdmin(http.HandlerFunc(reportsHandlers.HandleDelete)))

	// Statistics and export
	analyticsHandlers := analytics.NewHandlers(analytics.NewService(s.reports))
	s.mux.Handle("GET /v1/admin/stats", s.authMiddleware.RequireAdmin(http.HandlerFunc(analyticsHandlers.HandleStats)))
	s.mux.Handle("GET /v1/admin/export", s.authMiddleware.RequireAdmin(http.HandlerFunc(analyticsHandlers.HandleExport)))

	// Assistant answers everyone; admin commands need a token
	assistantHandler := assistant.NewHandler(assistant.NewService(s.reports, nil))
	s.mux.HandleFunc("GET /v1/assistant", assistantHandler.HandleGreeting)
	s.mux.Handle("POST /v1/assistant/messages", s.authMiddleware.OptionalAdmin(http.HandlerFunc(assistantHandler.HandleMessage)))

	return nil
}

// handleHealthz возвращает статус сервера и хранилища
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	count, err := s.reports.Count(r.Context())
	if err != nil {
		log.Printf("WARN healthz: storage check failed: %v", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "degraded",
			"storage": s.storageMode,
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"storage": s.storageMode,
		"reports": count,
	})
}

// Handler возвращает роутер, обёрнутый в middleware (снаружи внутрь):
// CORS → Rate Limit → Router. Админская авторизация навешана на маршруты.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.mux
	handler = RateLimitMiddleware(s.config, handler)
	handler = CORSMiddleware(s.config, handler)
	return handler
}

// Start запускает HTTP сервер
func (s *Server) Start() error {
	addr := s.httpServer.Addr

	log.Printf("Сервер запущен на http://localhost%s\n", addr)
	log.Printf("Health check: http://localhost%s/healthz\n", addr)
	log.Printf("Reports API: http://localhost%s/v1/reports\n", addr)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown останавливает приём запросов и дожидается активных.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Close закрывает storage и освобождает ресурсы
func (s *Server) Close() error {
	if c, ok := s.locker.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Printf("WARN dedup: close locker: %v", err)
		}
	}
	if s.storage != nil {
		return s.storage.Close()
	}
	return nil
}
