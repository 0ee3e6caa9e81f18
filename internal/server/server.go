// Package server exposes the bridge channels over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/user/vpn-bridge/internal/bridge"
	"github.com/user/vpn-bridge/internal/logger"
)

// Bridge serves channel calls and event streams.
type Bridge interface {
	Call(ctx context.Context, channel, method string, args json.RawMessage) (any, error)
	Subscribe(channel string) (<-chan any, func(), error)
}

// Config configures the HTTP listener.
type Config struct {
	Listen         string
	AllowedOrigins []string
}

// CallRequest is the body of a channel call.
type CallRequest struct {
	Method    string          `json:"method" binding:"required"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// CallResult is the body of a successful call.
type CallResult struct {
	Result any `json:"result"`
}

// CallFailure is the body of a failed call or subscription.
type CallFailure struct {
	Error CallError `json:"error"`
}

// CallError describes a failed call.
type CallError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Server is the HTTP front of the bridge.
type Server struct {
	cfg    Config
	bridge Bridge
	router *gin.Engine
	server *http.Server
	ln     net.Listener
}

// New creates a server and its routes.
func New(cfg Config, b Bridge) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{cfg: cfg, bridge: b}
	s.router = s.newRouter()
	return s
}

func (s *Server) newRouter() *gin.Engine {
	router := gin.New()
	router.Use(requestLogger())
	router.Use(gin.CustomRecovery(func(c *gin.Context, err any) {
		logger.WithFields(logrus.Fields{"path": c.Request.URL.Path}).Errorf("Recovered from panic: %v", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, CallFailure{
			Error: CallError{Code: bridge.CodeInternal, Message: "internal server error"},
		})
	}))

	if len(s.cfg.AllowedOrigins) > 0 {
		logger.WithFields(logrus.Fields{"allowedOrigins": s.cfg.AllowedOrigins}).Debug("CORS configuration")
		router.Use(cors.New(cors.Config{
			AllowOrigins: s.cfg.AllowedOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{
				"Origin",
				"Content-Length",
				"Content-Type",
				"Accept",
				"Cache-Control",
			},
			AllowCredentials: false,
		}))
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")
	v1.POST("/channels/*channel", s.handleCall)
	v1.GET("/events/*channel", s.handleEvents)

	return router
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Listen, err)
	}
	s.ln = ln
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		defer logger.Recover("http-server")
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server stopped: %v", err)
		}
	}()

	logger.Info("Bridge listening on %s", ln.Addr())
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Stop shuts the server down, waiting up to five seconds for calls in flight.
// Event streams end when their request contexts are cancelled.
func (s *Server) Stop() {
	if s.server == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		logger.Warning("Server shutdown: %v", err)
		s.server.Close()
	}
	logger.Info("Bridge server stopped")
}

func channelParam(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("channel"), "/")
}

func (s *Server) handleCall(c *gin.Context) {
	channel := channelParam(c)

	var req CallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, CallFailure{
			Error: CallError{Code: bridge.CodeBadArguments, Message: err.Error()},
		})
		return
	}

	result, err := s.bridge.Call(c.Request.Context(), channel, req.Method, req.Arguments)
	if err != nil {
		code := bridge.Code(err)
		logger.WithFields(logrus.Fields{
			"channel": channel,
			"method":  req.Method,
			"code":    code,
		}).Warnf("Channel call failed: %v", err)
		c.JSON(statusFor(code), CallFailure{Error: CallError{Code: code, Message: err.Error()}})
		return
	}

	c.JSON(http.StatusOK, CallResult{Result: result})
}

func statusFor(code string) int {
	switch code {
	case bridge.CodeNotImplemented:
		return http.StatusNotImplemented
	case bridge.CodeBadArguments:
		return http.StatusBadRequest
	case bridge.CodeUnknownChannel:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleEvents(c *gin.Context) {
	channel := channelParam(c)

	events, stop, err := s.bridge.Subscribe(channel)
	if err != nil {
		code := bridge.Code(err)
		c.JSON(statusFor(code), CallFailure{Error: CallError{Code: code, Message: err.Error()}})
		return
	}
	defer stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case v, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(channel, v)
			return true
		case <-ctx.Done():
			return false
		}
	})
}

// requestLogger logs each request at debug level through the bridge logger.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		}).Debug("HTTP request")
	}
}
