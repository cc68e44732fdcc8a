package v1

import (
	"net/http"
	"strconv"

	"github.com/civicsignal/incident_reporting_system/internal/apperr"
	"github.com/civicsignal/incident_reporting_system/internal/config"
	"github.com/civicsignal/incident_reporting_system/internal/models"
	"github.com/civicsignal/incident_reporting_system/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	reportService   service.ReportService
	incidentService service.IncidentService
	feedbackService service.FeedbackService
	logger          *logrus.Logger
	validate        *validator.Validate
	cfg             *config.Config
}

func NewHandler(
	reportService service.ReportService,
	incidentService service.IncidentService,
	feedbackService service.FeedbackService,
	logger *logrus.Logger,
	cfg *config.Config,
) *Handler {
	return &Handler{
		reportService:   reportService,
		incidentService: incidentService,
		feedbackService: feedbackService,
		logger:          logger,
		validate:        validator.New(),
		cfg:             cfg,
	}
}

// respondError переводит доменные ошибки в HTTP-статусы.
// Внутренние детали операционных ошибок наружу не отдаются.
func (h *Handler) respondError(c *gin.Context, log *logrus.Entry, err error) {
	switch {
	case apperr.IsValidation(err):
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperr.IsNotFound(err):
		log.WithError(err).Warn("Resource not found")
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperr.IsConflict(err):
		log.WithError(err).Warn("Conflicting state")
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.WithError(err).Error("Unexpected service error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// @Summary Submit a citizen report
// @Description Submit a report about an incident. The report is clustered into an existing occurrence within 50 meters or opens a new one.
// @Tags Reports
// @Accept json
// @Produce json
// @Param report body SubmitReportRequest true "Report submission request"
// @Success 201 {object} SubmitReportResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /reports [post]
func (h *Handler) submitReport(c *gin.Context) {
	var input SubmitReportRequest
	log := h.logger.WithField("method", "submitReport")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report := &models.Report{
		UserID:      input.UserID,
		Title:       input.Title,
		Description: input.Description,
		Type:        models.IncidentType(input.Type),
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
	}

	result, err := h.reportService.Submit(c.Request.Context(), report)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, SubmitResultToResponse(result))
}

// @Summary Get report by ID
// @Description Get a single report by its ID.
// @Tags Reports
// @Accept json
// @Produce json
// @Param id path int true "Report ID"
// @Success 200 {object} ReportResponse
// @Failure 400 {object} map[string]string "Invalid report ID"
// @Failure 404 {object} map[string]string "Report not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /reports/{id} [get]
func (h *Handler) getReport(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report ID"})
		return
	}
	log := h.logger.WithField("method", "getReport").WithField("id", id)

	report, err := h.reportService.GetReport(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToReportResponse(report))
}

// @Summary Create an incident manually
// @Description Create an incident directly, without an anchoring report. Intended for operators.
// @Tags Incidents
// @Accept json
// @Produce json
// @Param incident body CreateIncidentRequest true "Incident creation request"
// @Success 201 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents [post]
func (h *Handler) createIncident(c *gin.Context) {
	var input CreateIncidentRequest
	log := h.logger.WithField("method", "createIncident")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	incident := &models.Incident{
		Title:           input.Title,
		Description:     input.Description,
		Type:            models.IncidentType(input.Type),
		Latitude:        input.Latitude,
		Longitude:       input.Longitude,
		ProximityRadius: input.ProximityRadius,
	}

	created, err := h.incidentService.CreateManual(c.Request.Context(), incident)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToIncidentResponse(created))
}

// @Summary Get a list of incidents
// @Description Get a paginated list of incidents, optionally filtered by status and type.
// @Tags Incidents
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Number of items per page" default(10)
// @Param status query string false "Filter by status"
// @Param type query string false "Filter by incident type"
// @Success 200 {array} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid filter value"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents [get]
func (h *Handler) listIncidents(c *gin.Context) {
	log := h.logger.WithField("method", "listIncidents")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "10"))

	var status *models.IncidentStatus
	if raw := c.Query("status"); raw != "" {
		s := models.IncidentStatus(raw)
		if !s.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
			return
		}
		status = &s
	}

	var incidentType *models.IncidentType
	if raw := c.Query("type"); raw != "" {
		t := models.IncidentType(raw)
		if !t.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid type filter"})
			return
		}
		incidentType = &t
	}

	incidents, err := h.incidentService.ListIncidents(c.Request.Context(), page, pageSize, status, incidentType)
	if err != nil {
		h.respondError(c, log, err)
		return
	}

	c.JSON(http.StatusOK, ModelsToIncidentResponses(incidents))
}

// @Summary Get incident by ID
// @Description Get a single incident by its ID.
// @Tags Incidents
// @Accept json
// @Produce json
// @Param id path int true "Incident ID"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id} [get]
func (h *Handler) getIncident(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "getIncident").WithField("id", id)

	incident, err := h.incidentService.GetIncident(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Submit feedback on an incident
// @Description Confirm or deny an incident. Enough denials close the occurrence.
// @Tags Feedback
// @Accept json
// @Produce json
// @Param id path int true "Incident ID"
// @Param feedback body SubmitFeedbackRequest true "Feedback submission request"
// @Success 201 {object} FeedbackResponse
// @Failure 400 {object} map[string]string "Invalid request body, validation error or rate limit"
// @Failure 404 {object} map[string]string "User or incident not found"
// @Failure 409 {object} map[string]string "Incident not yet confirmed"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id}/feedback [post]
func (h *Handler) submitFeedback(c *gin.Context) {
	incidentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "submitFeedback").WithField("incident_id", incidentID)

	var input SubmitFeedbackRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	feedback, status, err := h.feedbackService.Submit(c.Request.Context(), input.UserID, incidentID, *input.Confirmed)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToFeedbackResponse(feedback, status))
}

// @Summary List feedback for an incident
// @Description Get all feedback entries submitted for an incident.
// @Tags Feedback
// @Accept json
// @Produce json
// @Param id path int true "Incident ID"
// @Success 200 {array} FeedbackResponse
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id}/feedback [get]
func (h *Handler) listFeedback(c *gin.Context) {
	incidentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "listFeedback").WithField("incident_id", incidentID)

	feedbacks, err := h.feedbackService.ListByIncident(c.Request.Context(), incidentID)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToFeedbackResponses(feedbacks))
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "Status OK"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
