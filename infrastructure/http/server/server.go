// Package server exposes the chat services over HTTP and websocket.
package server

import (
	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/observability"
	"chat-relay/services"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Options are the transport settings of the HTTP server.
type Options struct {
	Addr                 string
	AllowedOrigins       []string
	MediaDir             string
	ConnectionBufferSize int
	MaxUploadBytes       int64
	ShutdownTimeout      time.Duration
}

// Dependencies are the services served over HTTP.
type Dependencies struct {
	Auth       services.IAuthService
	Chat       services.IChatService
	Uploads    services.IUploadService
	Tokens     *auth.TokenIssuer
	Subscriber contract.Subscriber
	Metrics    *observability.Metrics
}

type Server struct {
	log      *slog.Logger
	opts     Options
	deps     Dependencies
	engine   *gin.Engine
	upgrader websocket.Upgrader
}

func New(log *slog.Logger, opts Options, deps Dependencies) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		log:    log,
		opts:   opts,
		deps:   deps,
		engine: gin.New(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	if opts.MaxUploadBytes > 0 {
		s.engine.MaxMultipartMemory = opts.MaxUploadBytes
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(RequestID())
	s.engine.Use(RequestLogger(log))
	s.engine.Use(cors.New(s.corsConfig()))
	s.routes()
	return s
}

// Handler returns the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", "address", s.opts.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.log.Info("Shutting down HTTP server")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func (s *Server) routes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	s.engine.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	if s.opts.MediaDir != "" {
		s.engine.Static("/media", s.opts.MediaDir)
	}

	api := s.engine.Group("/api")
	api.POST("/auth/register", s.register)
	api.POST("/auth/login", s.login)

	authed := api.Group("", auth.RequireUser(s.deps.Tokens))
	authed.GET("/auth/me", s.me)
	authed.GET("/users", s.contacts)
	authed.GET("/messages/:partnerId", s.messages)
	authed.GET("/messages/:partnerId/search", s.search)
	authed.POST("/messages", s.send)
	authed.POST("/sign-upload-params", s.signUploadParams)
	authed.POST("/uploads", s.upload)

	s.engine.GET("/ws", auth.RequireUser(s.deps.Tokens), s.serveChannels)
}

func (s *Server) allowAllOrigins() bool {
	return len(s.opts.AllowedOrigins) == 0 || slices.Contains(s.opts.AllowedOrigins, "*")
}

func (s *Server) corsConfig() cors.Config {
	config := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", RequestIDHeader},
		ExposeHeaders: []string{RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if s.allowAllOrigins() {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = s.opts.AllowedOrigins
	}
	return config
}

// checkOrigin accepts clients sending no Origin, which are not browsers.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || s.allowAllOrigins() {
		return true
	}
	return slices.Contains(s.opts.AllowedOrigins, origin)
}
