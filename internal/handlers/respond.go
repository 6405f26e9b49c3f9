package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pathwise/pathwise-backend/internal/apperr"
	"github.com/pathwise/pathwise-backend/internal/logger"
)

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// respondErr maps an error chain to the HTTP taxonomy. Internal detail goes
// to the server log; the client gets the kind's generic message.
func respondErr(c *gin.Context, log *logger.Logger, err error) {
	kind := apperr.KindOf(err)
	status := apperr.Status(kind)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "path", c.FullPath(), "kind", string(kind), "err", err)
	} else {
		log.Debug("request rejected", "path", c.FullPath(), "kind", string(kind), "err", err)
	}
	c.JSON(status, gin.H{"success": false, "error": apperr.ClientMessage(err), "code": string(kind)})
}

func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg, "code": string(apperr.InvalidInput)})
}

// HealthCheck is the unauthenticated liveness probe.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
