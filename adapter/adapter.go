// Package adapter exposes provider clients behind an HTTP surface. It is
// the embedding half of the error classification: internal provider-API
// failures are mapped to a small set of outward statuses (401 for auth
// failures, 502 for upstream errors, 424 for upstream client errors) and
// everything unrecognized falls back to a generic 500.
package adapter

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/remotefiles/gateway-client-go/apierror"
	"github.com/remotefiles/gateway-client-go/provider"
)

// Server routes provider requests to the matching client.
type Server struct {
	clients map[string]*provider.Client
	engine  *gin.Engine
}

// New creates a server fronting the given clients, keyed by provider id.
func New(clients ...*provider.Client) *Server {
	s := &Server{
		clients: make(map[string]*provider.Client, len(clients)),
	}
	for _, c := range clients {
		s.clients[c.ID()] = c
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	engine.GET("/:provider/files/*id", s.handleGet)
	engine.POST("/:provider/logout", s.handleLogout)
	engine.GET("/:provider/status", s.handleStatus)

	s.engine = engine
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) client(c *gin.Context) (*provider.Client, bool) {
	client, ok := s.clients[c.Param("provider")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		return nil, false
	}
	return client, true
}

// handleGet fetches one resource through the authenticated request path
// and forwards the provider's response body.
func (s *Server) handleGet(c *gin.Context) {
	client, ok := s.client(c)
	if !ok {
		return
	}

	id := strings.TrimPrefix(c.Param("id"), "/")
	resp, err := client.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(resp.StatusCode, contentType, resp.Body)
}

// handleLogout ends the provider session and forwards its response.
func (s *Server) handleLogout(c *gin.Context) {
	client, ok := s.client(c)
	if !ok {
		return
	}

	resp, err := client.Logout(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	c.Data(resp.StatusCode, contentType, resp.Body)
}

// handleStatus reports the client's session state.
func (s *Server) handleStatus(c *gin.Context) {
	client, ok := s.client(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"provider":      client.ID(),
		"name":          client.Name(),
		"authenticated": client.Authenticated(),
	})
}

// writeError translates an internal failure into the outward status. The
// mapping never guesses: unrecognized errors get the generic fallback.
func writeError(c *gin.Context, err error) {
	if code, message, ok := apierror.MapToStatus(err); ok {
		c.JSON(code, gin.H{"error": message})
		return
	}

	log.WithField("path", c.Request.URL.Path).Errorf("unmapped provider error: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// requestLogger logs one line per request at debug level.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.WithFields(log.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		}).Debug("request")
	}
}
