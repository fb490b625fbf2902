package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/rhesis-ai/traceplay/internal/config"
	"github.com/rhesis-ai/traceplay/internal/graph"
	"github.com/rhesis-ai/traceplay/internal/playback"
)

// Server is the dashboard backend.
type Server struct {
	echo *echo.Echo
	cfg  *config.Config
	reg  *Registry
}

// NewServer wires the routes over a loaded registry.
func NewServer(cfg *config.Config, reg *Registry) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	s := &Server{
		echo: e,
		cfg:  cfg,
		reg:  reg,
	}

	e.GET("/health", s.handleHealth)
	e.GET("/api/traces", s.handleListTraces)
	e.GET("/api/traces/:id/graph", s.handleGraph)
	e.GET("/api/traces/:id/frame", s.handleFrame)
	e.GET("/api/traces/:id/ws", s.handlePlaybackSocket)

	return s
}

// Start starts the HTTP server on the configured address.
func (s *Server) Start() error {
	return s.echo.Start(s.cfg.Server.Addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status": "healthy",
		"traces": s.reg.Len(),
	})
}

// TraceSummary is one row in the trace listing.
type TraceSummary struct {
	TraceID         string  `json:"trace_id"`
	States          int     `json:"states"`
	Transitions     int     `json:"transitions"`
	DurationSeconds float64 `json:"duration_seconds"`
}

func (s *Server) handleListTraces(c echo.Context) error {
	summaries := make([]TraceSummary, 0, s.reg.Len())
	for _, id := range s.reg.IDs() {
		e, _ := s.reg.Get(id)
		summaries = append(summaries, TraceSummary{
			TraceID:         e.TraceID,
			States:          len(e.Extraction.States),
			Transitions:     len(e.Extraction.Transitions),
			DurationSeconds: e.Extraction.Range.Duration().Seconds(),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"traces": summaries})
}

// GraphResponse bundles the assembled graph with the layout engine's
// input shape so the renderer makes one round trip per trace.
type GraphResponse struct {
	TraceID string       `json:"trace_id"`
	Graph   *graph.Graph `json:"graph"`
	Layout  LayoutShape  `json:"layout"`
}

// LayoutShape is the layout engine input (self-loops excluded).
type LayoutShape struct {
	Nodes []graph.LayoutNode `json:"nodes"`
	Edges []graph.LayoutEdge `json:"edges"`
}

func (s *Server) handleGraph(c echo.Context) error {
	e, ok := s.reg.Get(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "trace not found"})
	}

	nodes, edges := e.Graph.LayoutInput()
	return c.JSON(http.StatusOK, GraphResponse{
		TraceID: e.TraceID,
		Graph:   e.Graph,
		Layout:  LayoutShape{Nodes: nodes, Edges: edges},
	})
}

// handleFrame projects a single frame at ?cursor=<seconds from trace
// start>. Out-of-range cursors are clamped, matching seek semantics.
func (s *Server) handleFrame(c echo.Context) error {
	e, ok := s.reg.Get(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "trace not found"})
	}

	raw := c.QueryParam("cursor")
	seconds := 0.0
	if raw != "" {
		var err error
		seconds, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "cursor must be a number of seconds"})
		}
	}

	// A one-shot frame is a paused scrub: no clock is involved.
	rng := e.Extraction.Range
	cursor := rng.Clamp(rng.Start.Add(time.Duration(seconds * float64(time.Second))))
	return c.JSON(http.StatusOK, newFrameMessage(e, cursor, playback.StatePaused, 1))
}
