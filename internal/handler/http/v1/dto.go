package v1

import (
	"time"
)

// SubmitReportRequest DTO для подачи сообщения о происшествии
// @Description DTO для подачи сообщения о происшествии
type SubmitReportRequest struct {
	UserID      int64   `json:"user_id" validate:"required,gt=0"`
	Title       string  `json:"title" validate:"required,min=2,max=255"`
	Description string  `json:"description" validate:"required"`
	Type        string  `json:"type" validate:"required"`
	Latitude    float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude   float64 `json:"longitude" validate:"min=-180,max=180"`
}

// CreateIncidentRequest DTO для ручного создания происшествия оператором
// @Description DTO для ручного создания происшествия оператором
type CreateIncidentRequest struct {
	Title           string  `json:"title" validate:"required,min=2,max=255"`
	Description     string  `json:"description" validate:"required"`
	Type            string  `json:"type" validate:"required"`
	Latitude        float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude       float64 `json:"longitude" validate:"min=-180,max=180"`
	ProximityRadius float64 `json:"proximity_radius" validate:"required,gt=0"`
}

// SubmitFeedbackRequest DTO для подтверждения или опровержения происшествия
// @Description DTO для подтверждения или опровержения происшествия
type SubmitFeedbackRequest struct {
	UserID    int64 `json:"user_id" validate:"required,gt=0"`
	Confirmed *bool `json:"confirmed" validate:"required"`
}

// ReportResponse DTO для ответа с информацией о сообщении
// @Description DTO для ответа с информацией о сообщении
type ReportResponse struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	Type      string    `json:"type"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`
}

// EntityResponse DTO с контактами ответственной службы
// @Description DTO с контактами ответственной службы
type EntityResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`
}

// IncidentResponse DTO для ответа с информацией о происшествии
// @Description DTO для ответа с информацией о происшествии
type IncidentResponse struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	Type            string     `json:"type"`
	Status          string     `json:"status"`
	Priority        string     `json:"priority"`
	ProximityRadius float64    `json:"proximity_radius"`
	ReportCount     int        `json:"report_count"`
	Latitude        float64    `json:"latitude"`
	Longitude       float64    `json:"longitude"`
	CreatedAt       time.Time  `json:"created_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
}

// SubmitReportResponse DTO для ответа на подачу сообщения
// @Description DTO для ответа на подачу сообщения
type SubmitReportResponse struct {
	Report            *ReportResponse   `json:"report"`
	Incident          *IncidentResponse `json:"incident"`
	ResponsibleEntity *EntityResponse   `json:"responsible_entity,omitempty"`
}

// FeedbackResponse DTO для ответа с информацией об отзыве
// @Description DTO для ответа с информацией об отзыве
type FeedbackResponse struct {
	ID             int64     `json:"id"`
	IncidentID     int64     `json:"incident_id"`
	UserID         int64     `json:"user_id"`
	Confirmed      bool      `json:"confirmed"`
	CreatedAt      time.Time `json:"created_at"`
	IncidentStatus string    `json:"incident_status,omitempty"`
}
