package booking

import (
	"encoding/json"
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
	rg.POST("/appointments", h.Book)
}

func (h *Handler) Book(c *gin.Context) {
	var req BookRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		response.FromError(c, h.log, ErrInvalidJSON.WithDetails(err.Error()))
		return
	}

	appt, err := h.service.Book(c.Request.Context(), req)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, appt)
}
