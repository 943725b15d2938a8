package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const healthTimeout = 2 * time.Second

func (api *TaskAPI) healthCheck(ctx *gin.Context) {
	body := gin.H{
		"status":    "ok",
		"storage":   api.cfg.Storage,
		"version":   api.cfg.Version,
		"timestamp": time.Now().UTC(),
	}
	if api.health == nil {
		ctx.JSON(http.StatusOK, body)
		return
	}

	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), healthTimeout)
	defer cancel()
	if err := api.health.Ping(pingCtx); err != nil {
		api.logger.Warn("хранилище недоступно", zap.String("storage", api.cfg.Storage), zap.Error(err))
		body["status"] = "unavailable"
		ctx.JSON(http.StatusServiceUnavailable, body)
		return
	}
	ctx.JSON(http.StatusOK, body)
}
