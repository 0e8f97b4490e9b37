// Package httpserver runs the plain HTTP side of the server: a health
// check for orchestrators and the Prometheus scrape endpoint.
package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	address  string
	db       Pinger
	gatherer prometheus.Gatherer
	logger   logging.Logger
	requests *prometheus.CounterVec
}

// New builds the server. Its own request counter is registered on reg;
// /metrics exposes everything gatherer knows.
func New(address string, db Pinger, reg prometheus.Registerer, gatherer prometheus.Gatherer, l logging.Logger) *Server {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gophnotes",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by path and status.",
	}, []string{"path", "status"})
	reg.MustRegister(requests)

	return &Server{
		address:  address,
		db:       db,
		gatherer: gatherer,
		logger:   l.With("module", "http_server"),
		requests: requests,
	}
}

func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.countRequests)

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	return r
}

func (s *Server) countRequests(c *gin.Context) {
	c.Next()
	path := c.FullPath()
	if path == "" {
		path = "unmatched"
	}
	s.requests.WithLabelValues(path, strconv.Itoa(c.Writer.Status())).Inc()
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Warn(ctx, "health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Run serves until ctx is cancelled, then shuts down within five seconds.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
