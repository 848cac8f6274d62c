package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/rewired-gh/tradestream/internal/logger"
	"github.com/rewired-gh/tradestream/internal/stream"
)

const (
	defaultArchiveLimit = 100
	maxArchiveLimit     = 1000
)

type handler struct {
	ctrl    Controller
	archive Archive
}

func (h *handler) registerRoutes(rg *gin.RouterGroup) {
	rg.GET("/state", h.handleState)
	rg.GET("/trades", h.handleTrades)
	rg.POST("/connect", h.handleConnect)
	rg.POST("/disconnect", h.handleDisconnect)
	rg.POST("/clear", h.handleClear)
	rg.GET("/archive", h.handleArchive)
}

func (h *handler) handleState(ctx *gin.Context) {
	snap, err := h.ctrl.Snapshot()
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, snap)
}

func (h *handler) handleTrades(ctx *gin.Context) {
	snap, err := h.ctrl.Snapshot()
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"trades":      snap.Trades,
		"highlighted": snap.Highlighted,
	})
}

func (h *handler) handleConnect(ctx *gin.Context) {
	var req struct {
		URL string `json:"url"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.ctrl.Connect(req.URL); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusAccepted, gin.H{"status": "connecting"})
}

func (h *handler) handleDisconnect(ctx *gin.Context) {
	if err := h.ctrl.Disconnect(); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (h *handler) handleClear(ctx *gin.Context) {
	if err := h.ctrl.ClearTrades(); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (h *handler) handleArchive(ctx *gin.Context) {
	if h.archive == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "trade archive is not enabled"})
		return
	}

	limit := defaultArchiveLimit
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxArchiveLimit)
	}

	trades, err := h.archive.RecentTrades(ctx.Query("symbol"), limit)
	if err != nil {
		logger.Error("Failed to read trade archive: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"trades": trades})
}

func writeError(ctx *gin.Context, err error) {
	ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, stream.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, stream.ErrTransportOpen):
		return http.StatusBadGateway
	case errors.Is(err, stream.ErrStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func requestLogger() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		logger.Debug("%s %s %d (%v)", ctx.Request.Method, ctx.Request.URL.Path, ctx.Writer.Status(), time.Since(start))
	}
}
