package v1

import (
	"github.com/civicsignal/incident_reporting_system/internal/models"
	"github.com/civicsignal/incident_reporting_system/internal/service"
)

// ModelToReportResponse преобразует доменную модель сообщения в DTO для ответа
func ModelToReportResponse(model *models.Report) *ReportResponse {
	return &ReportResponse{
		ID:        model.ID,
		UserID:    model.UserID,
		Title:     model.Title,
		Type:      string(model.Type),
		Latitude:  model.Latitude,
		Longitude: model.Longitude,
		CreatedAt: model.CreatedAt,
	}
}

// ModelToIncidentResponse преобразует доменную модель происшествия в DTO для ответа
func ModelToIncidentResponse(model *models.Incident) *IncidentResponse {
	return &IncidentResponse{
		ID:              model.ID,
		Title:           model.Title,
		Description:     model.Description,
		Type:            string(model.Type),
		Status:          string(model.Status),
		Priority:        string(model.Priority),
		ProximityRadius: model.ProximityRadius,
		ReportCount:     model.ReportCount,
		Latitude:        model.Latitude,
		Longitude:       model.Longitude,
		CreatedAt:       model.CreatedAt,
		EndedAt:         model.EndedAt,
	}
}

// ModelsToIncidentResponses преобразует слайс моделей в слайс DTO
func ModelsToIncidentResponses(models []*models.Incident) []*IncidentResponse {
	responses := make([]*IncidentResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToIncidentResponse(model)
	}
	return responses
}

// ModelToEntityResponse преобразует ответственную службу в DTO для ответа
func ModelToEntityResponse(model *models.ResponsibleEntity) *EntityResponse {
	return &EntityResponse{
		ID:       model.ID,
		Name:     model.Name,
		Category: string(model.Category),
		Email:    model.Email,
		Phone:    model.Phone,
		Address:  model.Address,
	}
}

// SubmitResultToResponse собирает ответ на подачу сообщения
func SubmitResultToResponse(result *service.SubmitResult) *SubmitReportResponse {
	resp := &SubmitReportResponse{
		Report:   ModelToReportResponse(result.Report),
		Incident: ModelToIncidentResponse(result.Incident),
	}
	if result.Entity != nil {
		resp.ResponsibleEntity = ModelToEntityResponse(result.Entity)
	}
	return resp
}

// ModelToFeedbackResponse преобразует отзыв в DTO для ответа
func ModelToFeedbackResponse(model *models.Feedback, status models.IncidentStatus) *FeedbackResponse {
	return &FeedbackResponse{
		ID:             model.ID,
		IncidentID:     model.IncidentID,
		UserID:         model.UserID,
		Confirmed:      model.Confirmed,
		CreatedAt:      model.CreatedAt,
		IncidentStatus: string(status),
	}
}

// ModelsToFeedbackResponses преобразует слайс отзывов в слайс DTO
func ModelsToFeedbackResponses(models []*models.Feedback) []*FeedbackResponse {
	responses := make([]*FeedbackResponse, len(models))
	for i, model := range models {
		responses[i] = &FeedbackResponse{
			ID:         model.ID,
			IncidentID: model.IncidentID,
			UserID:     model.UserID,
			Confirmed:  model.Confirmed,
			CreatedAt:  model.CreatedAt,
		}
	}
	return responses
}
