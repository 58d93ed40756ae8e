package reminder

import (
	"log/slog"
	"net/http"

	"appointly/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
	log     *slog.Logger
}

func NewHandler(service *Service, log *slog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/reminders/rating", h.Scan)
	rg.POST("/reminders/rating", h.Scan)
}

type ScanResponse struct {
	Processed     int     `json:"processed"`
	ReminderHours float64 `json:"reminder_hours"`
}

func (h *Handler) Scan(c *gin.Context) {
	limit := h.service.ParseLimit(c.Query("limit"))

	processed, err := h.service.Scan(c.Request.Context(), limit)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, ScanResponse{
		Processed:     processed,
		ReminderHours: h.service.GraceHours(),
	})
}
