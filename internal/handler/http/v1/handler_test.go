package v1

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/civicsignal/incident_reporting_system/internal/apperr"
	"github.com/civicsignal/incident_reporting_system/internal/config"
	"github.com/civicsignal/incident_reporting_system/internal/models"
	"github.com/civicsignal/incident_reporting_system/internal/service"
	"github.com/civicsignal/incident_reporting_system/internal/service/mocks"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type handlerMocks struct {
	reports   *mocks.MockReportService
	incidents *mocks.MockIncidentService
	feedback  *mocks.MockFeedbackService
}

// newTestHandler создает новый экземпляр Handler с мокированными сервисами
func newTestHandler(t *testing.T) (*handlerMocks, *gin.Engine) {
	ctrl := gomock.NewController(t)
	m := &handlerMocks{
		reports:   mocks.NewMockReportService(ctrl),
		incidents: mocks.NewMockIncidentService(ctrl),
		feedback:  mocks.NewMockFeedbackService(ctrl),
	}

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{
		ActivationThreshold: 3,
	}

	handler := NewHandler(m.reports, m.incidents, m.feedback, logger, cfg)

	// Настройка Gin роутера для тестов
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	return m, router
}

// makeRequest - вспомогательная функция для выполнения HTTP-запросов
func makeRequest(router *gin.Engine, method, url string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func validSubmitReportRequest() SubmitReportRequest {
	return SubmitReportRequest{
		UserID:      1,
		Title:       "Street flooded",
		Description: "Water level above the curb",
		Type:        "FLOOD",
		Latitude:    41.3678,
		Longitude:   -8.2012,
	}
}

func TestSubmitReport_Success(t *testing.T) {
	m, router := newTestHandler(t)
	reqBody := validSubmitReportRequest()
	anchorID := int64(11)
	result := &service.SubmitResult{
		Report: &models.Report{
			ID: 11, UserID: 1, Title: reqBody.Title,
			Type: models.TypeFlood, Latitude: reqBody.Latitude, Longitude: reqBody.Longitude,
			CreatedAt: time.Now().UTC(),
		},
		Incident: &models.Incident{
			ID: 42, Title: reqBody.Title, Type: models.TypeFlood,
			Status: models.StatusWaiting, Priority: models.PriorityHigh,
			ReportCount: 1, AnchorReportID: &anchorID,
			Latitude: reqBody.Latitude, Longitude: reqBody.Longitude,
		},
		Entity: &models.ResponsibleEntity{
			ID: 9, Name: "Civil Protection North", Category: models.CategoryCivilProtection,
			Email: "north@civil.example",
		},
	}

	m.reports.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(result, nil).Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/reports", bytes.NewBuffer(bodyBytes))

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp SubmitReportResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, int64(11), resp.Report.ID)
	assert.Equal(t, int64(42), resp.Incident.ID)
	assert.Equal(t, "WAITING", resp.Incident.Status)
	require.NotNil(t, resp.ResponsibleEntity)
	assert.Equal(t, "Civil Protection North", resp.ResponsibleEntity.Name)
}

func TestSubmitReport_InvalidJSON(t *testing.T) {
	m, router := newTestHandler(t)

	m.reports.EXPECT().Submit(gomock.Any(), gomock.Any()).Times(0) // Сервис не должен вызываться

	w := makeRequest(router, "POST", "/api/v1/reports", bytes.NewBufferString(`{"title": "test"`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestSubmitReport_MissingTitle(t *testing.T) {
	m, router := newTestHandler(t)
	reqBody := validSubmitReportRequest()
	reqBody.Title = ""

	m.reports.EXPECT().Submit(gomock.Any(), gomock.Any()).Times(0) // Сервис не должен вызываться

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/reports", bytes.NewBuffer(bodyBytes))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Error:Field validation for 'Title' failed on the 'required' tag")
}

func TestSubmitReport_ServiceValidationError(t *testing.T) {
	m, router := newTestHandler(t)
	reqBody := validSubmitReportRequest()

	m.reports.EXPECT().
		Submit(gomock.Any(), gomock.Any()).
		Return(nil, apperr.Validation("unknown incident type")).
		Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/reports", bytes.NewBuffer(bodyBytes))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown incident type")
}

func TestSubmitReport_ServiceError(t *testing.T) {
	m, router := newTestHandler(t)
	reqBody := validSubmitReportRequest()
	serviceError := errors.New("database unavailable")

	m.reports.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(nil, serviceError).Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/reports", bytes.NewBuffer(bodyBytes))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
}

func TestGetReport_Success(t *testing.T) {
	m, router := newTestHandler(t)
	expected := &models.Report{
		ID: 11, UserID: 1, Title: "Street flooded", Type: models.TypeFlood,
		Latitude: 41.3678, Longitude: -8.2012,
	}

	m.reports.EXPECT().GetReport(gomock.Any(), int64(11)).Return(expected, nil).Times(1)

	w := makeRequest(router, "GET", "/api/v1/reports/11", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp ReportResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, int64(11), resp.ID)
	assert.Equal(t, "FLOOD", resp.Type)
}

func TestGetReport_InvalidID(t *testing.T) {
	m, router := newTestHandler(t)

	m.reports.EXPECT().GetReport(gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, "GET", "/api/v1/reports/not-a-number", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid report ID")
}

func TestGetReport_NotFound(t *testing.T) {
	m, router := newTestHandler(t)

	m.reports.EXPECT().
		GetReport(gomock.Any(), int64(11)).
		Return(nil, apperr.NotFound("report", int64(11))).
		Times(1)

	w := makeRequest(router, "GET", "/api/v1/reports/11", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateIncident_Success(t *testing.T) {
	m, router := newTestHandler(t)
	reqBody := CreateIncidentRequest{
		Title:           "Planned road closure",
		Description:     "Civil protection exercise",
		Type:            "FLOOD",
		Latitude:        41.3678,
		Longitude:       -8.2012,
		ProximityRadius: 500,
	}

	m.incidents.EXPECT().
		CreateManual(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, inc *models.Incident) (*models.Incident, error) {
			assert.Equal(t, models.TypeFlood, inc.Type)
			assert.Equal(t, 500.0, inc.ProximityRadius)
			inc.ID = 42
			inc.Status = models.StatusWaiting
			inc.Priority = models.PriorityHigh
			return inc, nil
		}).Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBuffer(bodyBytes))

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp IncidentResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, int64(42), resp.ID)
	assert.Equal(t, "WAITING", resp.Status)
	assert.Zero(t, resp.ReportCount)
}

func TestCreateIncident_MissingRadius(t *testing.T) {
	m, router := newTestHandler(t)
	reqBody := CreateIncidentRequest{
		Title:       "Planned road closure",
		Description: "Civil protection exercise",
		Type:        "FLOOD",
		Latitude:    41.3678,
		Longitude:   -8.2012,
	}

	m.incidents.EXPECT().CreateManual(gomock.Any(), gomock.Any()).Times(0)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBuffer(bodyBytes))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "ProximityRadius")
}

func TestGetIncident_Success(t *testing.T) {
	m, router := newTestHandler(t)
	expected := &models.Incident{
		ID: 42, Title: "Street flooded", Type: models.TypeFlood,
		Status: models.StatusActive, Priority: models.PriorityHigh, ReportCount: 3,
	}

	m.incidents.EXPECT().GetIncident(gomock.Any(), int64(42)).Return(expected, nil).Times(1)

	w := makeRequest(router, "GET", "/api/v1/incidents/42", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp IncidentResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, int64(42), resp.ID)
	assert.Equal(t, "ACTIVE", resp.Status)
}

func TestGetIncident_InvalidID(t *testing.T) {
	m, router := newTestHandler(t)

	m.incidents.EXPECT().GetIncident(gomock.Any(), gomock.Any()).Times(0) // Сервис не должен вызываться

	w := makeRequest(router, "GET", "/api/v1/incidents/not-a-number", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid incident ID")
}

func TestGetIncident_NotFound(t *testing.T) {
	m, router := newTestHandler(t)

	m.incidents.EXPECT().
		GetIncident(gomock.Any(), int64(42)).
		Return(nil, apperr.NotFound("incident", int64(42))).
		Times(1)

	w := makeRequest(router, "GET", "/api/v1/incidents/42", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListIncidents_Success(t *testing.T) {
	m, router := newTestHandler(t)
	expected := []*models.Incident{
		{ID: 42, Title: "Incident 1", Type: models.TypeFlood, Status: models.StatusActive},
		{ID: 43, Title: "Incident 2", Type: models.TypeFlood, Status: models.StatusWaiting},
	}

	m.incidents.EXPECT().
		ListIncidents(gomock.Any(), 1, 10, gomock.Nil(), gomock.Nil()).
		Return(expected, nil).Times(1)

	w := makeRequest(router, "GET", "/api/v1/incidents?page=1&pageSize=10", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp []IncidentResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Len(t, resp, 2)
	assert.Equal(t, "Incident 1", resp[0].Title)
}

func TestListIncidents_WithFilters(t *testing.T) {
	m, router := newTestHandler(t)

	m.incidents.EXPECT().
		ListIncidents(gomock.Any(), 1, 10, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, _, _ int, status *models.IncidentStatus, incidentType *models.IncidentType) ([]*models.Incident, error) {
			require.NotNil(t, status)
			require.NotNil(t, incidentType)
			assert.Equal(t, models.StatusActive, *status)
			assert.Equal(t, models.TypeFlood, *incidentType)
			return nil, nil
		}).Times(1)

	w := makeRequest(router, "GET", "/api/v1/incidents?status=ACTIVE&type=FLOOD", nil)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListIncidents_InvalidStatusFilter(t *testing.T) {
	m, router := newTestHandler(t)

	m.incidents.EXPECT().ListIncidents(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, "GET", "/api/v1/incidents?status=BOGUS", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid status filter")
}

func TestSubmitFeedback_Success(t *testing.T) {
	m, router := newTestHandler(t)
	confirmed := false
	reqBody := SubmitFeedbackRequest{UserID: 1, Confirmed: &confirmed}
	feedback := &models.Feedback{
		ID: 7, IncidentID: 42, UserID: 1, Confirmed: false, CreatedAt: time.Now().UTC(),
	}

	m.feedback.EXPECT().
		Submit(gomock.Any(), int64(1), int64(42), false).
		Return(feedback, models.StatusClosed, nil).Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/incidents/42/feedback", bytes.NewBuffer(bodyBytes))

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp FeedbackResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, int64(7), resp.ID)
	assert.Equal(t, "CLOSED", resp.IncidentStatus)
}

func TestSubmitFeedback_MissingConfirmed(t *testing.T) {
	m, router := newTestHandler(t)

	m.feedback.EXPECT().Submit(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, "POST", "/api/v1/incidents/42/feedback", bytes.NewBufferString(`{"user_id": 1}`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Confirmed")
}

func TestSubmitFeedback_WaitingConflict(t *testing.T) {
	m, router := newTestHandler(t)
	confirmed := true
	reqBody := SubmitFeedbackRequest{UserID: 1, Confirmed: &confirmed}

	m.feedback.EXPECT().
		Submit(gomock.Any(), int64(1), int64(42), true).
		Return(nil, models.IncidentStatus(""), apperr.Conflict("incident %d has not been activated yet", int64(42))).
		Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/incidents/42/feedback", bytes.NewBuffer(bodyBytes))

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSubmitFeedback_RateLimited(t *testing.T) {
	m, router := newTestHandler(t)
	confirmed := true
	reqBody := SubmitFeedbackRequest{UserID: 1, Confirmed: &confirmed}

	m.feedback.EXPECT().
		Submit(gomock.Any(), int64(1), int64(42), true).
		Return(nil, models.IncidentStatus(""), apperr.Validation("feedback already submitted within the last 1h0m0s")).
		Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/incidents/42/feedback", bytes.NewBuffer(bodyBytes))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitFeedback_UserNotFound(t *testing.T) {
	m, router := newTestHandler(t)
	confirmed := true
	reqBody := SubmitFeedbackRequest{UserID: 99, Confirmed: &confirmed}

	m.feedback.EXPECT().
		Submit(gomock.Any(), int64(99), int64(42), true).
		Return(nil, models.IncidentStatus(""), apperr.NotFound("user", int64(99))).
		Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/incidents/42/feedback", bytes.NewBuffer(bodyBytes))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListFeedback_Success(t *testing.T) {
	m, router := newTestHandler(t)
	expected := []*models.Feedback{
		{ID: 1, IncidentID: 42, UserID: 1, Confirmed: true},
		{ID: 2, IncidentID: 42, UserID: 2, Confirmed: false},
	}

	m.feedback.EXPECT().ListByIncident(gomock.Any(), int64(42)).Return(expected, nil).Times(1)

	w := makeRequest(router, "GET", "/api/v1/incidents/42/feedback", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp []FeedbackResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Len(t, resp, 2)
}

func TestHealthCheck_Success(t *testing.T) {
	_, router := newTestHandler(t)

	w := makeRequest(router, "GET", "/api/v1/system/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}
