// Package server exposes the chat service over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/chatcore-ai/chatcore/pkg/chat"
	"github.com/chatcore-ai/chatcore/pkg/errs"
)

const shutdownGrace = 10 * time.Second

// Server is the HTTP front end of the chat service.
type Server struct {
	echo    *echo.Echo
	service *chat.Service
	listen  string
	logger  *zap.Logger
}

type chatRequest struct {
	UserID  string `json:"user_id"`
	Content string `json:"content"`
}

type errorResponse struct {
	ErrorType string `json:"error_type"`
	Message   string `json:"message"`
}

// New builds a Server around svc. Routes are registered here; the
// listener starts in Start.
func New(svc *chat.Service, listen string, logger *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{echo: e, service: svc, listen: listen, logger: logger}

	e.GET("/", s.handleRoot)
	e.POST("/chat", s.handleChat)
	e.GET("/history/:user_id", s.handleHistory)
	e.GET("/health", s.handleHealth)

	return s
}

// Start serves until ctx is canceled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(s.listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.logger.Info("http server listening", zap.String("addr", s.listen))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}

// Handler exposes the routing tree for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// handleRoot is a liveness probe: it answers as soon as the process
// serves, independent of dependency health.
func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"service": "chatcore", "status": "ok"})
}

func (s *Server) handleChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{
			ErrorType: "validation",
			Message:   "malformed request body",
		})
	}

	result, err := s.service.ProcessMessage(c.Request().Context(), req.UserID, req.Content)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleHistory(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, errorResponse{
				ErrorType: "validation",
				Message:   "limit must be a positive integer",
			})
		}
		limit = n
	}

	history, err := s.service.GetHistory(c.Request().Context(), c.Param("user_id"), limit)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":      c.Param("user_id"),
		"interactions": history,
	})
}

func (s *Server) handleHealth(c echo.Context) error {
	status := s.service.HealthCheck(c.Request().Context())
	code := http.StatusOK
	if !status.Storage || !status.LLM {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, status)
}

// writeError maps the error taxonomy onto HTTP. Internal detail stays in
// the log; the client sees the category and a terse message.
func (s *Server) writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return c.JSON(http.StatusBadRequest, errorResponse{
			ErrorType: "validation",
			Message:   err.Error(),
		})
	case errors.Is(err, errs.ErrProvider):
		s.logger.Error("provider failure", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, errorResponse{
			ErrorType: "provider",
			Message:   "text generation is temporarily unavailable",
		})
	case errors.Is(err, errs.ErrStorage):
		s.logger.Error("storage failure", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, errorResponse{
			ErrorType: "storage",
			Message:   "persistence is temporarily unavailable",
		})
	default:
		s.logger.Error("unhandled failure", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{
			ErrorType: "internal",
			Message:   "internal error",
		})
	}
}
