// Package server exposes a running simulation over HTTP. All endpoints
// read the last published snapshot except POST /api/advance, which asks
// the runner to tick.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/elektrokombinacija/trafficsim/internal/core"
	"github.com/elektrokombinacija/trafficsim/internal/optimize"
	"github.com/elektrokombinacija/trafficsim/internal/vehicle"
)

// Config configures the HTTP surface.
type Config struct {
	// AllowOrigins lists CORS origins. Empty allows all.
	AllowOrigins []string

	// MaxAdvance caps the ticks one POST /api/advance may request.
	MaxAdvance int

	Optimize optimize.Options
	Logger   *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		MaxAdvance: 10000,
		Optimize:   optimize.DefaultOptions(),
	}
}

// Server serves a Runner.
type Server struct {
	runner *Runner
	config Config
	log    *slog.Logger
	engine *gin.Engine
}

func New(runner *Runner, config Config) *Server {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.MaxAdvance <= 0 {
		config.MaxAdvance = DefaultConfig().MaxAdvance
	}
	s := &Server{runner: runner, config: config, log: config.Logger}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	r := gin.Default()

	corsConfig := cors.DefaultConfig()
	if len(s.config.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = s.config.AllowOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(corsConfig))

	r.GET("/health", s.handleHealth)

	api := r.Group("/api")
	api.GET("/snapshot", s.handleSnapshot)
	api.GET("/vehicles", s.handleVehicles)
	api.GET("/intersections", s.handleIntersections)
	api.GET("/intersections/:id", s.handleIntersection)
	api.GET("/metrics", s.handleMetrics)
	api.GET("/suggestions", s.handleSuggestions)
	api.POST("/advance", s.handleAdvance)
	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "tick": s.runner.Snapshot().Tick})
}

func (s *Server) handleSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, s.runner.Snapshot())
}

// handleVehicles lists active vehicles, optionally filtered by
// ?state=EN_ROUTE (case-insensitive).
func (s *Server) handleVehicles(c *gin.Context) {
	snap := s.runner.Snapshot()
	vehicles := snap.Vehicles
	if want := c.Query("state"); want != "" {
		vehicles = lo.Filter(vehicles, func(v vehicle.View, _ int) bool {
			return strings.EqualFold(v.State.String(), want)
		})
	}
	c.JSON(http.StatusOK, gin.H{"tick": snap.Tick, "vehicles": vehicles})
}

func (s *Server) handleIntersections(c *gin.Context) {
	snap := s.runner.Snapshot()
	c.JSON(http.StatusOK, gin.H{"tick": snap.Tick, "intersections": snap.Intersections})
}

func (s *Server) handleIntersection(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid intersection id"})
		return
	}
	snap := s.runner.Snapshot()
	ix, ok := snap.Intersection(core.NodeID(id))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no intersection at node " + c.Param("id")})
		return
	}
	c.JSON(http.StatusOK, ix)
}

func (s *Server) handleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.runner.Metrics())
}

func (s *Server) handleSuggestions(c *gin.Context) {
	snap := s.runner.Snapshot()
	suggestions := optimize.Suggest(snap.Edges, snap.Intersections, s.runner.Records(), s.config.Optimize)
	if suggestions == nil {
		suggestions = []optimize.Suggestion{}
	}
	c.JSON(http.StatusOK, gin.H{"tick": snap.Tick, "suggestions": suggestions})
}

func (s *Server) handleAdvance(c *gin.Context) {
	n := 1
	if q := c.Query("ticks"); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil || v < 1 || v > s.config.MaxAdvance {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "ticks must be an integer between 1 and " + strconv.Itoa(s.config.MaxAdvance),
			})
			return
		}
		n = v
	}
	tick := s.runner.Advance(n)
	c.JSON(http.StatusOK, gin.H{"tick": tick})
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
