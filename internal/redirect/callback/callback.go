// Package callback serves the local return path of redirect surfaces. The
// gateway webapp sends the customer to /callback/:correlationID and a
// closed surface hits /dismiss/:correlationID; both resolve the matching
// continuation in the redirect registry.
package callback

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yourorg/checkout-orchestrator/internal/logger"
	"github.com/yourorg/checkout-orchestrator/internal/redirect"
)

const paramCorrelationID = "correlationID"

// NewRouter builds the callback listener routes.
func NewRouter(reg *redirect.Registry, serviceName string, log logger.Interface) *gin.Engine {
	if reg == nil {
		panic("callback: registry cannot be nil")
	}
	log = logger.OrNop(log).Named("callback")

	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware(serviceName))

	router.GET("/callback/:"+paramCorrelationID, func(c *gin.Context) {
		id := c.Param(paramCorrelationID)
		received := absoluteURL(c.Request)
		if !reg.Deliver(id, redirect.CallbackEvent{URL: received}) {
			log.Warn("callback for unknown or resolved redirect", "correlation_id", id)
			c.JSON(http.StatusNotFound, gin.H{"error": "no pending redirect for this correlation ID"})
			return
		}
		log.Info("redirect callback delivered", "correlation_id", id)
		c.JSON(http.StatusOK, gin.H{"status": "received", "message": "You can return to the application."})
	})

	dismiss := func(c *gin.Context) {
		id := c.Param(paramCorrelationID)
		if !reg.Deliver(id, redirect.CallbackEvent{Dismissed: true}) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no pending redirect for this correlation ID"})
			return
		}
		log.Info("redirect surface dismissed", "correlation_id", id)
		c.JSON(http.StatusOK, gin.H{"status": "dismissed"})
	}
	router.GET("/dismiss/:"+paramCorrelationID, dismiss)
	router.POST("/dismiss/:"+paramCorrelationID, dismiss)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "pending": reg.Pending()})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

func absoluteURL(r *http.Request) *url.URL {
	u := *r.URL
	if u.Scheme == "" {
		u.Scheme = "http"
		if r.TLS != nil {
			u.Scheme = "https"
		}
	}
	if u.Host == "" {
		u.Host = r.Host
	}
	return &u
}

// Server runs the callback router on a local address.
type Server struct {
	srv *http.Server
	ln  net.Listener
	log logger.Interface
}

// Listen binds addr. Use "127.0.0.1:0" for an ephemeral port.
func Listen(addr string, handler http.Handler, log logger.Interface) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		srv: &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second},
		ln:  ln,
		log: logger.OrNop(log).Named("callback"),
	}, nil
}

// Addr is the bound address.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// BaseURL is the root URL redirect surfaces return to.
func (s *Server) BaseURL() string { return "http://" + s.Addr() }

// Serve blocks until Shutdown.
func (s *Server) Serve() error {
	s.log.Info("callback listener started", "addr", s.Addr())
	if err := s.srv.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
