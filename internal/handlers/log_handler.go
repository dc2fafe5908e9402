package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rex103240/IronLock-Server/internal/service"
	"github.com/rex103240/IronLock-Server/internal/store"
)

type LogHandler struct {
	admin *service.AdminService
}

func NewLogHandler(admin *service.AdminService) *LogHandler {
	return &LogHandler{admin: admin}
}

// GetLogs returns the live log feed, newest first.
func (h *LogHandler) GetLogs(c *gin.Context) {
	logs, err := h.admin.Logs(c.Request.Context(), queryInt(c, "limit", store.DefaultLogLimit))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

func (h *LogHandler) GetGyms(c *gin.Context) {
	gyms, err := h.admin.Gyms(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gyms)
}

func (h *LogHandler) GetStats(c *gin.Context) {
	stats, err := h.admin.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
