package health

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	livenessText      = "Vibe tribeee"
	readHeaderTimeout = 5 * time.Second
)

// StatusFunc returns the number of guilds with an active playback session.
type StatusFunc func() int

type Server struct {
	srv *http.Server
}

func NewRouter(activeQueues StatusFunc) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, livenessText)
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":        "ok",
			"active_queues": activeQueues(),
		})
	})
	return r
}

func NewServer(port string, activeQueues StatusFunc) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              net.JoinHostPort("", port),
			Handler:           NewRouter(activeQueues),
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}
}

// Start serves in the background until Shutdown.
func (s *Server) Start() {
	go func() {
		slog.Info("health server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("health server failed", "error", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
