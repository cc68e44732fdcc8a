package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/civicsignal/incident_reporting_system/internal/apperr"
	"github.com/civicsignal/incident_reporting_system/internal/config"
	"github.com/civicsignal/incident_reporting_system/internal/geo"
	"github.com/civicsignal/incident_reporting_system/internal/models"
	"github.com/civicsignal/incident_reporting_system/internal/notifier"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ReportRepository определяет контракт для работы с бд отчетов граждан
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id int64) (*models.Report, error)
}

// SubmitResult - итог подачи отчета: сохраненный отчет, инцидент, в
// который он попал, и назначенная организация (nil, если не назначена)
type SubmitResult struct {
	Report   *models.Report
	Incident *models.Incident
	Entity   *models.ResponsibleEntity
}

// ReportService определяет контракт движка кластеризации отчетов
type ReportService interface {
	Submit(ctx context.Context, report *models.Report) (*SubmitResult, error)
	GetReport(ctx context.Context, id int64) (*models.Report, error)
}

type reportService struct {
	reports   ReportRepository
	incidents IncidentService
	entities  EntityRepository
	resolver  EntityResolver
	publisher notifier.Publisher
	logger    *logrus.Logger
	cfg       *config.Config
}

// NewReportService создает сервис подачи отчетов
func NewReportService(
	reports ReportRepository,
	incidents IncidentService,
	entities EntityRepository,
	resolver EntityResolver,
	publisher notifier.Publisher,
	logger *logrus.Logger,
	cfg *config.Config,
) ReportService {
	return &reportService{
		reports:   reports,
		incidents: incidents,
		entities:  entities,
		resolver:  resolver,
		publisher: publisher,
		logger:    logger,
		cfg:       cfg,
	}
}

// Submit принимает отчет гражданина и решает, дублирует ли он открытый
// инцидент того же типа в пределах радиуса дедупликации, или начинает
// новый. Отчет сохраняется всегда; сбой обновления инцидента после этого
// возвращается обернутой ошибкой, а не маскируется.
func (s *reportService) Submit(ctx context.Context, report *models.Report) (*SubmitResult, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "report",
		"method":  "Submit",
	})

	if err := validateReport(report); err != nil {
		return nil, err
	}
	log = log.WithFields(logrus.Fields{"type": report.Type, "user_id": report.UserID})

	// Организация разрешается заранее: результат нужен только при
	// создании нового инцидента
	entity, err := s.resolver.Resolve(ctx, report.Type, report.Latitude, report.Longitude)
	if err != nil {
		return nil, err
	}

	duplicate, err := s.findNearestDuplicate(ctx, report)
	if err != nil {
		return nil, err
	}

	report.CreatedAt = time.Now().UTC()
	if err := s.reports.Create(ctx, report); err != nil {
		log.WithError(err).Error("Failed to create report in repository")
		return nil, fmt.Errorf("service: could not create report: %w", err)
	}
	log = log.WithField("report_id", report.ID)

	if duplicate != nil {
		return s.handleDuplicate(ctx, log, report, duplicate)
	}

	incident := &models.Incident{
		Title:          report.Title,
		Description:    report.Description,
		Type:           report.Type,
		Status:         models.StatusWaiting,
		ReportCount:    1,
		AnchorReportID: &report.ID,
		Latitude:       report.Latitude,
		Longitude:      report.Longitude,
	}
	if entity != nil {
		incident.ResponsibleEntityID = &entity.ID
	}

	created, err := s.incidents.Create(ctx, incident)
	if err != nil {
		// Отчет уже долговечен: сообщаем о частичном завершении явно
		log.WithError(err).Error("Report stored but occurrence creation failed")
		return nil, fmt.Errorf("report %d stored but occurrence creation failed: %w", report.ID, err)
	}

	log.WithField("incident_id", created.ID).Info("New incident created from report")
	return &SubmitResult{Report: report, Incident: created, Entity: entity}, nil
}

// handleDuplicate засчитывает отчет существующему инциденту и запускает
// эскалацию, если именно этот отчет пересек порог активации
func (s *reportService) handleDuplicate(ctx context.Context, log *logrus.Entry, report *models.Report, duplicate *models.Incident) (*SubmitResult, error) {
	incident, activated, err := s.incidents.RegisterDuplicate(ctx, duplicate.ID)
	if err != nil {
		log.WithError(err).Error("Report stored but occurrence update failed")
		return nil, fmt.Errorf("report %d stored but occurrence update failed: %w", report.ID, err)
	}

	log = log.WithField("incident_id", incident.ID)
	log.WithField("report_count", incident.ReportCount).Info("Report folded into existing incident")

	var entity *models.ResponsibleEntity
	if incident.Assigned() {
		entity, err = s.entities.GetByID(ctx, *incident.ResponsibleEntityID)
		if err != nil {
			// Детали организации нужны только для ответа и уведомления
			log.WithError(err).Warn("Failed to load assigned responsible entity")
			entity = nil
		}
	}

	// Неназначенный инцидент не эскалируется
	if activated && incident.Assigned() {
		s.publishEscalation(ctx, log, incident, entity)
	}

	return &SubmitResult{Report: report, Incident: incident, Entity: entity}, nil
}

// findNearestDuplicate ищет среди открытых инцидентов того же типа
// ближайший, чей якорный отчет лежит в пределах радиуса дедупликации.
// Снимок кандидатов читается вне блокировок: пропущенный дубликат -
// деградация кластеризации, а не повреждение данных.
func (s *reportService) findNearestDuplicate(ctx context.Context, report *models.Report) (*models.Incident, error) {
	candidates, err := s.incidents.GetOpenByType(ctx, report.Type)
	if err != nil {
		return nil, err
	}

	var (
		best     *models.Incident
		bestDist float64
	)
	for _, candidate := range candidates {
		if !candidate.Status.Open() {
			continue
		}
		// Ручные инциденты без якорного отчета в дедупликации не участвуют
		if candidate.AnchorReportID == nil {
			continue
		}

		anchor, err := s.reports.GetByID(ctx, *candidate.AnchorReportID)
		if err != nil {
			if apperr.IsNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("service: could not load anchor report %d: %w", *candidate.AnchorReportID, err)
		}

		d := geo.DistanceMeters(report.Latitude, report.Longitude, anchor.Latitude, anchor.Longitude)
		if d > s.cfg.DuplicateRadiusMeters {
			continue
		}
		if best == nil || d < bestDist {
			best = candidate
			bestDist = d
		}
	}

	return best, nil
}

// publishEscalation ставит событие эскалации в очередь. Сбой публикации
// логируется и не доходит до гражданина, подавшего отчет.
func (s *reportService) publishEscalation(ctx context.Context, log *logrus.Entry, incident *models.Incident, entity *models.ResponsibleEntity) {
	event := notifier.Event{
		ID:              uuid.New(),
		IncidentID:      incident.ID,
		Title:           incident.Title,
		EntityID:        *incident.ResponsibleEntityID,
		Latitude:        incident.Latitude,
		Longitude:       incident.Longitude,
		ProximityRadius: incident.ProximityRadius,
		Message:         fmt.Sprintf("Incident %d activated after repeated reports.", incident.ID),
		Timestamp:       time.Now().UTC(),
	}
	if entity != nil {
		event.Category = entity.Category
		event.EntityName = entity.Name
	} else if category, err := models.ResponsibleCategory(incident.Type); err == nil {
		event.Category = category
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		log.WithError(err).Error("Failed to publish escalation event")
		return
	}
	log.WithField("event_id", event.ID).Info("Escalation event published")
}

// GetReport получает отчет по ID
func (s *reportService) GetReport(ctx context.Context, id int64) (*models.Report, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("service: could not get report: %w", err)
	}
	return report, nil
}

// validateReport проверяет входные поля отчета до любых мутаций
func validateReport(report *models.Report) error {
	if report == nil {
		return apperr.Validation("report is required")
	}
	if strings.TrimSpace(report.Title) == "" {
		return apperr.Validation("title is required")
	}
	if strings.TrimSpace(report.Description) == "" {
		return apperr.Validation("description is required")
	}
	if report.UserID <= 0 {
		return apperr.Validation("user id must be greater than zero")
	}
	if !report.Type.Valid() {
		return apperr.Validation("unknown incident type %q", report.Type)
	}
	if err := geo.ValidateCoordinates(report.Latitude, report.Longitude); err != nil {
		return apperr.Validation("%v", err)
	}
	return nil
}
