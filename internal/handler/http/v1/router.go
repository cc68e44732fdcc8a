package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API v1
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	// Обращения граждан
	reports := api.Group("/reports")
	{
		reports.POST("", h.submitReport)
		reports.GET("/:id", h.getReport)
	}

	// Происшествия и отзывы по ним
	incidents := api.Group("/incidents")
	{
		incidents.POST("", h.createIncident)
		incidents.GET("", h.listIncidents)
		incidents.GET("/:id", h.getIncident)
		incidents.POST("/:id/feedback", h.submitFeedback)
		incidents.GET("/:id/feedback", h.listFeedback)
	}

	// Маршрут Health-check
	api.GET("/system/health", h.healthCheck)
}
