// Package server exposes the message router over HTTP and WebSocket.
//
//	POST /api/messages  one Message in, one Response out (202 when none follows)
//	GET  /api/events    WebSocket: broadcasts out, Messages in, Responses out
//	GET  /metrics       Prometheus metrics
//	GET  /healthz       backend name and capability status
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dtnitsch/news-insight/models"
	"github.com/dtnitsch/news-insight/pkg/gateway"
	"github.com/dtnitsch/news-insight/pkg/router"
	"github.com/dtnitsch/news-insight/pkg/settings"
)

const (
	writeTimeout   = 10 * time.Second
	maxMessageSize = 4 << 20
)

// Health reports which model backend is in use.
type Health interface {
	Backend() string
	Status(ctx context.Context) map[gateway.CapabilityName]gateway.Availability
}

type Server struct {
	echo     *echo.Echo
	router   *router.Router
	hub      *settings.Hub
	health   Health
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func New(r *router.Router, hub *settings.Hub, health Health, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		echo:   echo.New(),
		router: r,
		hub:    hub,
		health: health,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser extensions connect from their own origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("4M"))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				logger.Error("Request failed", "method", v.Method, "uri", v.URI, "status", v.Status, "error", v.Error)
				return nil
			}
			logger.Debug("Request completed", "method", v.Method, "uri", v.URI, "status", v.Status,
				"latency_ms", v.Latency.Milliseconds())
			return nil
		},
	}))

	e.POST("/api/messages", s.postMessage)
	e.GET("/api/events", s.events)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/healthz", s.healthz)
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info("Listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, disconnects subscribers and waits for
// in-flight handlers.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.echo.Shutdown(ctx)
	s.hub.Close()
	s.router.Wait()
	return err
}

func (s *Server) postMessage(c echo.Context) error {
	var msg models.Message
	if err := json.NewDecoder(c.Request().Body).Decode(&msg); err != nil {
		te := &router.TransportError{Op: "decode message", Err: err}
		return c.JSON(http.StatusBadRequest, models.ErrorResponse(te.Error()))
	}

	ctx := c.Request().Context()
	done := make(chan models.Response, 1)
	// Handlers outlive the caller; a late response is dropped.
	if !s.router.Handle(context.WithoutCancel(ctx), msg, func(resp models.Response) { done <- resp }) {
		return c.NoContent(http.StatusAccepted)
	}

	select {
	case resp := <-done:
		return c.JSON(http.StatusOK, resp)
	case <-ctx.Done():
		s.logger.Debug("Caller went away, discarding response", "type", msg.Type)
		return nil
	}
}

func (s *Server) healthz(c echo.Context) error {
	body := map[string]any{"status": "ok"}
	if s.health != nil {
		body["backend"] = s.health.Backend()
		body["capabilities"] = s.health.Status(c.Request().Context())
	}
	return c.JSON(http.StatusOK, body)
}

// wsClient serializes writes to one connection.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *wsClient) send(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return w.conn.WriteJSON(v)
}

func (s *Server) events(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", "error", err)
		return nil
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	client := &wsClient{conn: conn}
	sub := s.hub.Subscribe(0)
	defer sub.Close()
	s.logger.Info("Event subscriber connected", "remote", c.RealIP())

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.readLoop(context.WithoutCancel(c.Request().Context()), client)
	}()

	for {
		select {
		case msg, ok := <-sub.C():
			if !ok {
				// Dropped by the hub.
				conn.Close()
				<-done
				return nil
			}
			if err := client.send(msg); err != nil {
				s.logger.Debug("Event delivery failed", "error", &router.TransportError{Op: "send event", Err: err})
				conn.Close()
				<-done
				return nil
			}
		case <-done:
			s.logger.Info("Event subscriber disconnected", "remote", c.RealIP())
			return nil
		}
	}
}

// readLoop routes messages sent over the socket. Responses go back on the
// same connection and are lost if it has closed.
func (s *Server) readLoop(ctx context.Context, client *wsClient) {
	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg models.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			te := &router.TransportError{Op: "decode message", Err: err}
			if err := client.send(models.ErrorResponse(te.Error())); err != nil {
				return
			}
			continue
		}
		s.router.Handle(ctx, msg, func(resp models.Response) {
			if err := client.send(resp); err != nil {
				s.logger.Debug("Discarding response", "request_id", resp.RequestID,
					"error", &router.TransportError{Op: "send response", Err: err})
			}
		})
	}
}
