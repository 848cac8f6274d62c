// Package api exposes the stream controller over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rewired-gh/tradestream/internal/models"
	"github.com/rewired-gh/tradestream/internal/stream"
)

// Controller is the part of stream.Controller served over HTTP.
type Controller interface {
	Connect(rawURL string) error
	Disconnect() error
	ClearTrades() error
	Snapshot() (stream.Snapshot, error)
}

// Archive is the read side of the trade archive.
type Archive interface {
	RecentTrades(symbol string, limit int) ([]models.Trade, error)
}

// NewServer builds the router and an unstarted server on addr. archive may be nil.
func NewServer(addr string, ctrl Controller, archive Archive) (*gin.Engine, *http.Server) {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := &handler{ctrl: ctrl, archive: archive}
	h.registerRoutes(r.Group("/api/v1"))

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}
	return r, srv
}
