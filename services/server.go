package services

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/avashista/jobquest/backend/interview"
	"github.com/avashista/jobquest/backend/repository"
	ws "github.com/avashista/jobquest/backend/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"
)

// Server holds all server dependencies
type Server struct {
	config               *Config
	gormDB               *repository.GORMRepository
	rawDB                interface{} // raw GORM DB, used for health checks
	geminiService        *GeminiService
	engine               *interview.Engine
	watchdog             *SessionWatchdog
	websocketHandler     *WebSocketHandler
	authService          *AuthService
	authEndpoints        *AuthEndpoints
	sessionEndpoints     *SessionEndpoints
	applicationEndpoints *ApplicationEndpoints
	wsHub                *ws.Hub
	upgrader             websocket.Upgrader
}

// NewServer creates a new server instance
func NewServer(config *Config) *Server {
	return &Server{
		config: config,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return checkOrigin(r, config.WebSocket.AllowedOrigins)
			},
		},
	}
}

// SetDatabase sets the database connection
func (s *Server) SetDatabase(db *repository.GORMRepository, rawDB interface{}) {
	s.gormDB = db
	s.rawDB = rawDB
}

// InitializeServices initializes all server services
func (s *Server) InitializeServices() error {
	if s.config.AI.GeminiAPIKey != "" {
		s.geminiService = NewGeminiService(s.config.AI.GeminiAPIKey, s.config.AI.GeminiModel)
		slog.Info("Gemini service initialized", "model", s.config.AI.GeminiModel)
	} else {
		slog.Warn("Gemini API key not configured, AI features disabled")
	}

	if s.config.JWT.Secret != "" && s.gormDB != nil {
		s.authService = NewAuthService(s.gormDB, s.config.JWT.Secret)
		s.authEndpoints = NewAuthEndpoints(s.authService)
		s.sessionEndpoints = NewSessionEndpoints(s.gormDB)
		s.applicationEndpoints = NewApplicationEndpoints(s.gormDB, s.geminiService)
		slog.Info("Authentication service initialized")
	}

	if s.gormDB != nil && s.geminiService != nil {
		s.engine = interview.NewEngine(s.gormDB, s.geminiService, s.geminiService, s.geminiService, nil, nil)
		s.websocketHandler = NewWebSocketHandler(s.engine)
		slog.Info("Interview engine initialized")
	}

	if s.gormDB != nil && s.config.Interview.AbandonAfterMinutes > 0 {
		s.watchdog = NewSessionWatchdog(s.gormDB, time.Duration(s.config.Interview.AbandonAfterMinutes)*time.Minute)
		go s.watchdog.Start()
	}

	s.wsHub = ws.NewHub()
	go s.wsHub.Run()

	return nil
}

// SetupRoutes configures all HTTP routes
func (s *Server) SetupRoutes() *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health endpoint
	r.Get("/health", s.healthHandler)

	// API v1 route group
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.apiV1Handler)

		// Authentication routes
		if s.authEndpoints != nil {
			r.Route("/auth", func(r chi.Router) {
				r.Post("/login", s.authEndpoints.LoginHandler)
				r.Post("/signup", s.authEndpoints.SignupHandler)
				r.Post("/refresh", s.authEndpoints.RefreshHandler)
				r.Post("/logout", s.authEndpoints.LogoutHandler)

				r.Group(func(r chi.Router) {
					r.Use(s.authService.Middleware)
					r.Get("/me", s.authEndpoints.MeHandler)
				})
			})
		}

		// Protected routes
		if s.authService != nil {
			r.Group(func(r chi.Router) {
				r.Use(s.authService.Middleware)

				if s.applicationEndpoints != nil {
					s.applicationEndpoints.RegisterRoutes(r)
				}
				if s.sessionEndpoints != nil {
					s.sessionEndpoints.RegisterRoutes(r)
				}

				// Interview action stream
				r.Get("/interview/ws", s.websocketHandlerFunc)
			})
		}
	})

	return r
}

// Start starts the HTTP server
func (s *Server) Start() {
	port := s.config.Server.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: s.SetupRoutes(),
	}

	// Graceful shutdown
	go func() {
		slog.Info("Starting server", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")
	if s.watchdog != nil {
		s.watchdog.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exited")
}

// checkOrigin validates the origin of WebSocket connections to prevent CSRF attacks
func checkOrigin(r *http.Request, allowedOriginsStr string) bool {
	origin := r.Header.Get("Origin")

	// If no allowed origins are configured, deny all requests for security
	if allowedOriginsStr == "" {
		slog.Warn("WebSocket connection rejected: no allowed origins configured", "origin", origin)
		return false
	}

	allowedOrigins := strings.Split(allowedOriginsStr, ",")
	for i := range allowedOrigins {
		allowedOrigins[i] = strings.TrimSpace(allowedOrigins[i])
	}

	for _, allowed := range allowedOrigins {
		if allowed == origin {
			return true
		}
	}

	slog.Warn("WebSocket connection rejected: origin not allowed", "origin", origin, "allowed_origins", allowedOriginsStr)
	return false
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "not configured"

	if s.rawDB != nil {
		if gormDB, ok := s.rawDB.(*gorm.DB); ok {
			if sqlDB, err := gormDB.DB(); err == nil {
				if err := sqlDB.Ping(); err != nil {
					dbStatus = "down"
					status = "degraded"
				} else {
					dbStatus = "up"
				}
			} else {
				dbStatus = "down"
				status = "degraded"
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"` + status + `","database":"` + dbStatus + `"}`))
}

func (s *Server) apiV1Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message":"API v1","version":"1.0.0"}`))
}

func (s *Server) websocketHandlerFunc(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		slog.Error("WebSocket connection failed - user not found in context")
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	if s.websocketHandler == nil {
		http.Error(w, "Interview engine is not available", http.StatusServiceUnavailable)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "Session ID is required", http.StatusBadRequest)
		return
	}

	// Ownership check happens before the upgrade so a plain HTTP error can
	// still be returned.
	session, err := s.gormDB.GetInterviewSessionForUser(r.Context(), sessionID, user.ID)
	if err != nil {
		http.Error(w, "Failed to load session", http.StatusInternalServerError)
		return
	}
	if session == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	slog.Info("WebSocket connection established", "user_id", user.ID, "session_id", sessionID)

	client := s.wsHub.RegisterClient(conn, user.ID, sessionID)
	client.MessageHandler = s.websocketHandler.HandleWebSocketMessage

	go client.ReadPump()
	go client.WritePump()
}
