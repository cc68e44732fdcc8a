package service_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/civicsignal/incident_reporting_system/internal/apperr"
	"github.com/civicsignal/incident_reporting_system/internal/config"
	"github.com/civicsignal/incident_reporting_system/internal/models"
	"github.com/civicsignal/incident_reporting_system/internal/notifier"
	notifier_mocks "github.com/civicsignal/incident_reporting_system/internal/notifier/mocks"
	"github.com/civicsignal/incident_reporting_system/internal/service"
	"github.com/civicsignal/incident_reporting_system/internal/service/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type reportServiceMocks struct {
	reports   *mocks.MockReportRepository
	incidents *mocks.MockIncidentService
	entities  *mocks.MockEntityRepository
	resolver  *mocks.MockEntityResolver
	publisher *notifier_mocks.MockPublisher
}

// newTestReportService — вспомогательная функция для создания инстанса сервиса с моками.
func newTestReportService(t *testing.T) (service.ReportService, *reportServiceMocks) {
	ctrl := gomock.NewController(t)
	m := &reportServiceMocks{
		reports:   mocks.NewMockReportRepository(ctrl),
		incidents: mocks.NewMockIncidentService(ctrl),
		entities:  mocks.NewMockEntityRepository(ctrl),
		resolver:  mocks.NewMockEntityResolver(ctrl),
		publisher: notifier_mocks.NewMockPublisher(ctrl),
	}

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{
		DuplicateRadiusMeters: 50,
		ActivationThreshold:   3,
	}

	svc := service.NewReportService(m.reports, m.incidents, m.entities, m.resolver, m.publisher, logger, cfg)
	return svc, m
}

func newFloodReport() *models.Report {
	return &models.Report{
		UserID:      1,
		Title:       "Улица затоплена",
		Description: "Вода поднялась выше бордюра",
		Type:        models.TypeFlood,
		Latitude:    41.3678,
		Longitude:   -8.2012,
	}
}

func TestSubmit_ValidationRejectsBadInput(t *testing.T) {
	// Подготовка
	svc, _ := newTestReportService(t)
	ctx := context.Background()

	cases := map[string]func(r *models.Report){
		"blank title":       func(r *models.Report) { r.Title = "  " },
		"blank description": func(r *models.Report) { r.Description = "" },
		"bad user":          func(r *models.Report) { r.UserID = 0 },
		"unknown type":      func(r *models.Report) { r.Type = "VOLCANO" },
		"bad latitude":      func(r *models.Report) { r.Latitude = 1000 },
		"bad longitude":     func(r *models.Report) { r.Longitude = -1000 },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			report := newFloodReport()
			mutate(report)

			// Действие
			result, err := svc.Submit(ctx, report)

			// Проверки
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, apperr.IsValidation(err))
		})
	}
}

func TestSubmit_OpensNewIncidentWhenNoCandidates(t *testing.T) {
	// Подготовка
	svc, m := newTestReportService(t)
	ctx := context.Background()
	report := newFloodReport()

	// Ожидания
	m.resolver.EXPECT().
		Resolve(ctx, models.TypeFlood, report.Latitude, report.Longitude).
		Return(nil, nil).Times(1)
	m.incidents.EXPECT().
		GetOpenByType(ctx, models.TypeFlood).
		Return(nil, nil).Times(1)
	m.reports.EXPECT().
		Create(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, r *models.Report) error {
			r.ID = 11
			return nil
		}).Times(1)
	m.incidents.EXPECT().
		Create(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, inc *models.Incident) (*models.Incident, error) {
			assert.Equal(t, models.StatusWaiting, inc.Status)
			assert.Equal(t, 1, inc.ReportCount)
			require.NotNil(t, inc.AnchorReportID)
			assert.Equal(t, int64(11), *inc.AnchorReportID)
			assert.Nil(t, inc.ResponsibleEntityID)
			inc.ID = 42
			return inc, nil
		}).Times(1)

	// Действие
	result, err := svc.Submit(ctx, report)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, int64(42), result.Incident.ID)
	assert.Equal(t, int64(11), result.Report.ID)
	assert.Nil(t, result.Entity)
}

func TestSubmit_FoldsIntoNearbyIncident(t *testing.T) {
	// Подготовка
	svc, m := newTestReportService(t)
	ctx := context.Background()
	report := newFloodReport()
	anchorID := int64(11)
	candidate := &models.Incident{
		ID: 42, Type: models.TypeFlood,
		Status: models.StatusWaiting, ReportCount: 1, AnchorReportID: &anchorID,
	}

	// Ожидания
	m.resolver.EXPECT().Resolve(ctx, models.TypeFlood, report.Latitude, report.Longitude).Return(nil, nil).Times(1)
	m.incidents.EXPECT().GetOpenByType(ctx, models.TypeFlood).Return([]*models.Incident{candidate}, nil).Times(1)
	// Якорный отчет примерно в 14 метрах от нового
	m.reports.EXPECT().
		GetByID(ctx, anchorID).
		Return(&models.Report{ID: anchorID, Latitude: 41.3679, Longitude: -8.2013}, nil).Times(1)
	m.reports.EXPECT().
		Create(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, r *models.Report) error {
			r.ID = 12
			return nil
		}).Times(1)
	m.incidents.EXPECT().
		RegisterDuplicate(ctx, int64(42)).
		Return(&models.Incident{
			ID: 42, Type: models.TypeFlood,
			Status: models.StatusWaiting, ReportCount: 2, AnchorReportID: &anchorID,
		}, false, nil).Times(1)
	// Порог не пересечен: эскалации нет
	m.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	// Действие
	result, err := svc.Submit(ctx, report)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, int64(42), result.Incident.ID)
	assert.Equal(t, 2, result.Incident.ReportCount)
}

func TestSubmit_NearestCandidateWins(t *testing.T) {
	// Подготовка
	svc, m := newTestReportService(t)
	ctx := context.Background()
	report := newFloodReport()
	nearAnchor, farAnchor := int64(11), int64(21)
	near := &models.Incident{ID: 42, Type: models.TypeFlood, Status: models.StatusWaiting, AnchorReportID: &nearAnchor}
	far := &models.Incident{ID: 43, Type: models.TypeFlood, Status: models.StatusWaiting, AnchorReportID: &farAnchor}

	// Ожидания
	m.resolver.EXPECT().Resolve(ctx, models.TypeFlood, report.Latitude, report.Longitude).Return(nil, nil).Times(1)
	// Дальний кандидат отдается первым: порядок списка не должен влиять
	m.incidents.EXPECT().GetOpenByType(ctx, models.TypeFlood).Return([]*models.Incident{far, near}, nil).Times(1)
	// ~28 метров
	m.reports.EXPECT().
		GetByID(ctx, farAnchor).
		Return(&models.Report{ID: farAnchor, Latitude: 41.3680, Longitude: -8.2014}, nil).Times(1)
	// ~14 метров
	m.reports.EXPECT().
		GetByID(ctx, nearAnchor).
		Return(&models.Report{ID: nearAnchor, Latitude: 41.3679, Longitude: -8.2013}, nil).Times(1)
	m.reports.EXPECT().Create(ctx, gomock.Any()).Return(nil).Times(1)
	m.incidents.EXPECT().
		RegisterDuplicate(ctx, int64(42)).
		Return(&models.Incident{ID: 42, Type: models.TypeFlood, Status: models.StatusWaiting, ReportCount: 2}, false, nil).
		Times(1)

	// Действие
	result, err := svc.Submit(ctx, report)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, int64(42), result.Incident.ID)
}

func TestSubmit_FarReportOpensNewIncident(t *testing.T) {
	// Подготовка
	svc, m := newTestReportService(t)
	ctx := context.Background()
	report := newFloodReport()
	anchorID := int64(11)
	candidate := &models.Incident{
		ID: 42, Type: models.TypeFlood,
		Status: models.StatusWaiting, AnchorReportID: &anchorID,
	}

	// Ожидания
	m.resolver.EXPECT().Resolve(ctx, models.TypeFlood, report.Latitude, report.Longitude).Return(nil, nil).Times(1)
	m.incidents.EXPECT().GetOpenByType(ctx, models.TypeFlood).Return([]*models.Incident{candidate}, nil).Times(1)
	// Якорь более чем в километре: не дубликат
	m.reports.EXPECT().
		GetByID(ctx, anchorID).
		Return(&models.Report{ID: anchorID, Latitude: 41.3778, Longitude: -8.2012}, nil).Times(1)
	m.reports.EXPECT().Create(ctx, gomock.Any()).Return(nil).Times(1)
	m.incidents.EXPECT().
		Create(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, inc *models.Incident) (*models.Incident, error) {
			inc.ID = 43
			return inc, nil
		}).Times(1)

	// Действие
	result, err := svc.Submit(ctx, report)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, int64(43), result.Incident.ID)
}

func TestSubmit_SkipsCandidatesWithoutAnchor(t *testing.T) {
	// Подготовка
	svc, m := newTestReportService(t)
	ctx := context.Background()
	report := newFloodReport()
	// Ручной инцидент без якорного отчета в дедупликации не участвует
	manual := &models.Incident{ID: 42, Type: models.TypeFlood, Status: models.StatusWaiting}

	// Ожидания
	m.resolver.EXPECT().Resolve(ctx, models.TypeFlood, report.Latitude, report.Longitude).Return(nil, nil).Times(1)
	m.incidents.EXPECT().GetOpenByType(ctx, models.TypeFlood).Return([]*models.Incident{manual}, nil).Times(1)
	m.reports.EXPECT().Create(ctx, gomock.Any()).Return(nil).Times(1)
	m.incidents.EXPECT().
		Create(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, inc *models.Incident) (*models.Incident, error) {
			inc.ID = 43
			return inc, nil
		}).Times(1)

	// Действие
	result, err := svc.Submit(ctx, report)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, int64(43), result.Incident.ID)
}

func TestSubmit_ActivationPublishesEscalation(t *testing.T) {
	// Подготовка
	svc, m := newTestReportService(t)
	ctx := context.Background()
	report := newFloodReport()
	anchorID, entityID := int64(11), int64(9)
	candidate := &models.Incident{
		ID: 42, Type: models.TypeFlood,
		Status: models.StatusWaiting, AnchorReportID: &anchorID,
	}
	entity := &models.ResponsibleEntity{ID: entityID, Name: "Civil Protection North", Category: models.CategoryCivilProtection}

	// Ожидания
	m.resolver.EXPECT().Resolve(ctx, models.TypeFlood, report.Latitude, report.Longitude).Return(nil, nil).Times(1)
	m.incidents.EXPECT().GetOpenByType(ctx, models.TypeFlood).Return([]*models.Incident{candidate}, nil).Times(1)
	m.reports.EXPECT().
		GetByID(ctx, anchorID).
		Return(&models.Report{ID: anchorID, Latitude: 41.3679, Longitude: -8.2013}, nil).Times(1)
	m.reports.EXPECT().Create(ctx, gomock.Any()).Return(nil).Times(1)
	m.incidents.EXPECT().
		RegisterDuplicate(ctx, int64(42)).
		Return(&models.Incident{
			ID: 42, Title: "Улица затоплена", Type: models.TypeFlood,
			Status: models.StatusActive, ReportCount: 3,
			ResponsibleEntityID: &entityID,
			Latitude:            41.3679, Longitude: -8.2013,
		}, true, nil).Times(1)
	m.entities.EXPECT().GetByID(ctx, entityID).Return(entity, nil).Times(1)
	m.publisher.EXPECT().
		Publish(ctx, gomock.Any()).
		Do(func(_ context.Context, event notifier.Event) {
			assert.Equal(t, int64(42), event.IncidentID)
			assert.Equal(t, entityID, event.EntityID)
			assert.Equal(t, models.CategoryCivilProtection, event.Category)
			assert.Equal(t, "Civil Protection North", event.EntityName)
		}).Return(nil).Times(1)

	// Действие
	result, err := svc.Submit(ctx, report)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, result.Incident.Status)
	assert.Equal(t, entity, result.Entity)
}

func TestSubmit_UnassignedActivationIsNotEscalated(t *testing.T) {
	// Подготовка
	svc, m := newTestReportService(t)
	ctx := context.Background()
	report := newFloodReport()
	anchorID := int64(11)
	candidate := &models.Incident{
		ID: 42, Type: models.TypeFlood,
		Status: models.StatusWaiting, AnchorReportID: &anchorID,
	}

	// Ожидания
	m.resolver.EXPECT().Resolve(ctx, models.TypeFlood, report.Latitude, report.Longitude).Return(nil, nil).Times(1)
	m.incidents.EXPECT().GetOpenByType(ctx, models.TypeFlood).Return([]*models.Incident{candidate}, nil).Times(1)
	m.reports.EXPECT().
		GetByID(ctx, anchorID).
		Return(&models.Report{ID: anchorID, Latitude: 41.3679, Longitude: -8.2013}, nil).Times(1)
	m.reports.EXPECT().Create(ctx, gomock.Any()).Return(nil).Times(1)
	// Порог пересечен, но организация не назначена
	m.incidents.EXPECT().
		RegisterDuplicate(ctx, int64(42)).
		Return(&models.Incident{
			ID: 42, Type: models.TypeFlood,
			Status: models.StatusActive, ReportCount: 3,
		}, true, nil).Times(1)
	m.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	// Действие
	result, err := svc.Submit(ctx, report)

	// Проверки
	require.NoError(t, err)
	assert.Nil(t, result.Entity)
}

func TestSubmit_DuplicateUpdateFailureIsPartial(t *testing.T) {
	// Подготовка
	svc, m := newTestReportService(t)
	ctx := context.Background()
	report := newFloodReport()
	anchorID := int64(11)
	candidate := &models.Incident{
		ID: 42, Type: models.TypeFlood,
		Status: models.StatusWaiting, AnchorReportID: &anchorID,
	}
	updateError := fmt.Errorf("deadlock detected")

	// Ожидания
	m.resolver.EXPECT().Resolve(ctx, models.TypeFlood, report.Latitude, report.Longitude).Return(nil, nil).Times(1)
	m.incidents.EXPECT().GetOpenByType(ctx, models.TypeFlood).Return([]*models.Incident{candidate}, nil).Times(1)
	m.reports.EXPECT().
		GetByID(ctx, anchorID).
		Return(&models.Report{ID: anchorID, Latitude: 41.3679, Longitude: -8.2013}, nil).Times(1)
	m.reports.EXPECT().
		Create(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, r *models.Report) error {
			r.ID = 12
			return nil
		}).Times(1)
	m.incidents.EXPECT().RegisterDuplicate(ctx, int64(42)).Return(nil, false, updateError).Times(1)

	// Действие
	result, err := svc.Submit(ctx, report)

	// Проверки
	// Отчет сохранен, но инцидент не обновлен: ошибка сообщает об обоих фактах
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorContains(t, err, "report 12 stored but occurrence update failed")
}

func TestSubmit_ClosedIncidentsAreIgnored(t *testing.T) {
	// Подготовка
	svc, m := newTestReportService(t)
	ctx := context.Background()
	report := newFloodReport()
	anchorID := int64(11)
	closed := &models.Incident{
		ID: 42, Type: models.TypeFlood,
		Status: models.StatusClosed, AnchorReportID: &anchorID,
	}

	// Ожидания
	m.resolver.EXPECT().Resolve(ctx, models.TypeFlood, report.Latitude, report.Longitude).Return(nil, nil).Times(1)
	m.incidents.EXPECT().GetOpenByType(ctx, models.TypeFlood).Return([]*models.Incident{closed}, nil).Times(1)
	m.reports.EXPECT().Create(ctx, gomock.Any()).Return(nil).Times(1)
	m.incidents.EXPECT().
		Create(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, inc *models.Incident) (*models.Incident, error) {
			inc.ID = 43
			return inc, nil
		}).Times(1)

	// Действие
	result, err := svc.Submit(ctx, report)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, int64(43), result.Incident.ID)
}

func TestGetReport_NotFoundPassesThrough(t *testing.T) {
	// Подготовка
	svc, m := newTestReportService(t)
	ctx := context.Background()

	// Ожидания
	m.reports.EXPECT().GetByID(ctx, int64(11)).Return(nil, apperr.NotFound("report", int64(11))).Times(1)

	// Действие
	report, err := svc.GetReport(ctx, 11)

	// Проверки
	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, apperr.IsNotFound(err))
}
