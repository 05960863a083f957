package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/saurabh-kaul-yral/onboarding-counter/internal/counter"
	"github.com/saurabh-kaul-yral/onboarding-counter/internal/observability"
)

// actionRequest is the POST body for /api/counter.
type actionRequest struct {
	Action counter.Action `json:"action"`
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.startedAt).String(),
			"service": "counter-api",
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api")
	api.GET("/counter", s.handleAction(counter.ActionGet))
	api.POST("/counter", s.handleCounterPost)
	api.GET("/whoami", s.handleWhoAmI)
}

// handleAction serves a fixed action; GET /api/counter reads without a body.
func (s *Server) handleAction(action counter.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.execute(c, action)
	}
}

func (s *Server) handleCounterPost(c *gin.Context) {
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.execute(c, req.Action)
}

// execute runs one action and maps the outcome onto a status code. Remote
// failures are 502: the API is up, the canister call is not.
func (s *Server) execute(c *gin.Context, action counter.Action) {
	start := time.Now()
	outcome := s.dispatcher.Execute(c.Request.Context(), action)
	observability.RecordCanisterAction(action.String(), outcome.Success, time.Since(start))

	status := http.StatusOK
	if !outcome.Success {
		status = http.StatusBadGateway
	}
	c.JSON(status, outcome)
}

func (s *Server) handleWhoAmI(c *gin.Context) {
	sender, err := s.client.WhoAmI()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	counterID, relayID := s.client.Identities()
	c.JSON(http.StatusOK, gin.H{
		"sender":              sender.String(),
		"counter_canister_id": counterID.String(),
		"caller_canister_id":  relayID.String(),
	})
}
