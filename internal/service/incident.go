package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/civicsignal/incident_reporting_system/internal/apperr"
	"github.com/civicsignal/incident_reporting_system/internal/config"
	"github.com/civicsignal/incident_reporting_system/internal/geo"
	"github.com/civicsignal/incident_reporting_system/internal/models"
	"github.com/sirupsen/logrus"
)

// stateUpdateRetries - число повторов обновления состояния инцидента при
// проигрыше optimistic-concurrency гонки
const stateUpdateRetries = 5

// IncidentRepository определяет контракт для работы с бд инцидентов
type IncidentRepository interface {
	Create(ctx context.Context, incident *models.Incident) error
	GetByID(ctx context.Context, id int64) (*models.Incident, error)
	ListOpenByType(ctx context.Context, incidentType models.IncidentType) ([]*models.Incident, error)
	List(ctx context.Context, page, pageSize int, status *models.IncidentStatus, incidentType *models.IncidentType) ([]*models.Incident, error)
	// UpdateState перезаписывает изменяемые поля инцидента с проверкой
	// версии строки; при проигрыше гонки возвращает apperr.ErrVersionConflict
	UpdateState(ctx context.Context, incident *models.Incident) error
	GetIncidentFromCache(ctx context.Context, id int64) (*models.Incident, error)
	SetIncidentCache(ctx context.Context, incident *models.Incident) error
	InvalidateIncidentCache(ctx context.Context, id int64) error
}

// IncidentService определяет контракт для бизнес-логики жизненного цикла инцидентов
type IncidentService interface {
	Create(ctx context.Context, incident *models.Incident) (*models.Incident, error)
	CreateManual(ctx context.Context, incident *models.Incident) (*models.Incident, error)
	GetIncident(ctx context.Context, id int64) (*models.Incident, error)
	ListIncidents(ctx context.Context, page, pageSize int, status *models.IncidentStatus, incidentType *models.IncidentType) ([]*models.Incident, error)
	GetOpenByType(ctx context.Context, incidentType models.IncidentType) ([]*models.Incident, error)
	// RegisterDuplicate засчитывает дубликат-отчет: инкремент счетчика и,
	// при пересечении порога активации из статуса WAITING, переход в
	// ACTIVE. Возвращает обновленный инцидент и признак того, что порог
	// был пересечен именно этим вызовом.
	RegisterDuplicate(ctx context.Context, id int64) (*models.Incident, bool, error)
	// CloseFromFeedback переводит инцидент в CLOSED и ставит время
	// завершения, если он еще не завершен.
	CloseFromFeedback(ctx context.Context, id int64) (*models.Incident, error)
}

type incidentService struct {
	repo     IncidentRepository
	resolver EntityResolver
	logger   *logrus.Logger
	cfg      *config.Config
}

// NewIncidentService создает сервис инцидентов
func NewIncidentService(repo IncidentRepository, resolver EntityResolver, logger *logrus.Logger, cfg *config.Config) IncidentService {
	return &incidentService{
		repo:     repo,
		resolver: resolver,
		logger:   logger,
		cfg:      cfg,
	}
}

// Create создает инцидент из отчета гражданина. Вызывается движком
// кластеризации, когда дубликат не найден.
func (s *incidentService) Create(ctx context.Context, incident *models.Incident) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "Create",
		"type":    incident.Type,
	})

	if err := validateIncidentFields(incident); err != nil {
		return nil, err
	}
	if incident.ReportCount < 1 {
		return nil, apperr.Validation("report-created incident must have at least one report")
	}

	incident.CreatedAt = time.Now().UTC()
	if incident.EndedAt != nil && !incident.EndedAt.After(incident.CreatedAt) {
		return nil, apperr.Validation("end time must be later than creation time")
	}
	if incident.Status == "" {
		incident.Status = models.StatusWaiting
	}
	incident.Priority = models.ComputePriority(incident.Type, incident.ReportCount)
	if incident.ProximityRadius <= 0 {
		incident.ProximityRadius = models.ComputeProximityRadius(incident.Type, incident.Priority)
	}

	if err := s.repo.Create(ctx, incident); err != nil {
		log.WithError(err).Error("Failed to create incident in repository")
		return nil, fmt.Errorf("service: could not create incident: %w", err)
	}

	log.WithField("incident_id", incident.ID).Info("Incident created")
	return incident, nil
}

// CreateManual создает инцидент из полей, заданных оператором.
// Административный путь: отдельная, более строгая валидация, счетчик
// отчетов равен нулю и якорного отчета нет.
func (s *incidentService) CreateManual(ctx context.Context, incident *models.Incident) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "CreateManual",
		"type":    incident.Type,
	})
	log.Info("Attempting to create a manual incident")

	if err := validateIncidentFields(incident); err != nil {
		return nil, err
	}
	if incident.ProximityRadius <= 0 {
		return nil, apperr.Validation("proximity radius must be positive")
	}
	if incident.Status == "" {
		incident.Status = models.StatusWaiting
	}
	if !incident.Status.Valid() {
		return nil, apperr.Validation("unknown incident status %q", incident.Status)
	}

	entity, err := s.resolver.Resolve(ctx, incident.Type, incident.Latitude, incident.Longitude)
	if err != nil {
		return nil, err
	}
	if entity != nil {
		incident.ResponsibleEntityID = &entity.ID
	} else {
		incident.ResponsibleEntityID = nil
	}

	incident.AnchorReportID = nil
	incident.ReportCount = 0
	incident.CreatedAt = time.Now().UTC()
	incident.EndedAt = nil
	incident.Priority = models.ComputePriority(incident.Type, incident.ReportCount)

	if err := s.repo.Create(ctx, incident); err != nil {
		log.WithError(err).Error("Failed to create manual incident in repository")
		return nil, fmt.Errorf("service: could not create manual incident: %w", err)
	}

	log.WithField("incident_id", incident.ID).Info("Manual incident created")
	return incident, nil
}

// GetIncident получает инцидент по ID, сначала из кеша
func (s *incidentService) GetIncident(ctx context.Context, id int64) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "GetIncident",
		"incident_id": id,
	})

	cached, err := s.repo.GetIncidentFromCache(ctx, id)
	if err != nil {
		// Промах или недоступность кеша не фатальны, идем в бд
		log.WithError(err).Warn("Failed to read incident from cache")
	}
	if cached != nil {
		return cached, nil
	}

	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, err
		}
		log.WithError(err).Error("Failed to get incident from repository")
		return nil, fmt.Errorf("service: could not get incident: %w", err)
	}

	if err := s.repo.SetIncidentCache(ctx, incident); err != nil {
		log.WithError(err).Warn("Failed to cache incident")
	}
	return incident, nil
}

// ListIncidents возвращает список инцидентов с пагинацией и фильтрами
func (s *incidentService) ListIncidents(ctx context.Context, page, pageSize int, status *models.IncidentStatus, incidentType *models.IncidentType) ([]*models.Incident, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	log := s.logger.WithFields(logrus.Fields{
		"service":   "incident",
		"method":    "ListIncidents",
		"page":      page,
		"page_size": pageSize,
	})

	incidents, err := s.repo.List(ctx, page, pageSize, status, incidentType)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from repository")
		return nil, fmt.Errorf("service: could not list incidents: %w", err)
	}

	return incidents, nil
}

// GetOpenByType возвращает открытые (не CLOSED/RESOLVED) инциденты типа.
// Снимок может быть приблизительным: чтение идет вне блокировок.
func (s *incidentService) GetOpenByType(ctx context.Context, incidentType models.IncidentType) ([]*models.Incident, error) {
	incidents, err := s.repo.ListOpenByType(ctx, incidentType)
	if err != nil {
		return nil, fmt.Errorf("service: could not list open incidents of type %s: %w", incidentType, err)
	}
	return incidents, nil
}

// RegisterDuplicate применяет дубликат-отчет к инциденту через
// compare-and-swap по версии строки: перечитать, инкрементировать,
// записать. Потерянных обновлений нет - два конкурентных отчета не могут
// затереть счетчик друг друга.
func (s *incidentService) RegisterDuplicate(ctx context.Context, id int64) (*models.Incident, bool, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "RegisterDuplicate",
		"incident_id": id,
	})

	for attempt := 0; attempt < stateUpdateRetries; attempt++ {
		incident, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, false, fmt.Errorf("failed to process occurrence status update: %w", err)
		}

		incident.ReportCount++
		// Порог активации пересекается ровно один раз: только переход
		// из WAITING засчитывается как активация
		activated := incident.ReportCount >= s.cfg.ActivationThreshold &&
			incident.Status == models.StatusWaiting
		if activated {
			incident.Status = models.StatusActive
		}
		incident.Priority = models.ComputePriority(incident.Type, incident.ReportCount)

		err = s.repo.UpdateState(ctx, incident)
		if errors.Is(err, apperr.ErrVersionConflict) {
			log.WithField("attempt", attempt+1).Debug("Version conflict on duplicate registration, retrying")
			continue
		}
		if err != nil {
			log.WithError(err).Error("Failed to persist duplicate registration")
			return nil, false, fmt.Errorf("failed to process occurrence status update: %w", err)
		}

		if err := s.repo.InvalidateIncidentCache(ctx, id); err != nil {
			log.WithError(err).Warn("Failed to invalidate incident cache")
		}
		return incident, activated, nil
	}

	return nil, false, fmt.Errorf("failed to process occurrence status update: %w", apperr.ErrVersionConflict)
}

// CloseFromFeedback закрывает инцидент по накопленному отрицательному
// фидбеку. Уже завершенный инцидент не перезакрывается.
func (s *incidentService) CloseFromFeedback(ctx context.Context, id int64) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "CloseFromFeedback",
		"incident_id": id,
	})

	for attempt := 0; attempt < stateUpdateRetries; attempt++ {
		incident, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to process occurrence status update: %w", err)
		}

		if incident.EndedAt != nil {
			return incident, nil
		}

		now := time.Now().UTC()
		incident.Status = models.StatusClosed
		incident.EndedAt = &now

		err = s.repo.UpdateState(ctx, incident)
		if errors.Is(err, apperr.ErrVersionConflict) {
			log.WithField("attempt", attempt+1).Debug("Version conflict on close, retrying")
			continue
		}
		if err != nil {
			log.WithError(err).Error("Failed to persist incident closure")
			return nil, fmt.Errorf("failed to process occurrence status update: %w", err)
		}

		if err := s.repo.InvalidateIncidentCache(ctx, id); err != nil {
			log.WithError(err).Warn("Failed to invalidate incident cache")
		}
		log.Info("Incident closed by citizen feedback")
		return incident, nil
	}

	return nil, fmt.Errorf("failed to process occurrence status update: %w", apperr.ErrVersionConflict)
}

// validateIncidentFields - общая проверка полей инцидента для обоих путей создания
func validateIncidentFields(incident *models.Incident) error {
	if incident == nil {
		return apperr.Validation("incident is required")
	}
	if strings.TrimSpace(incident.Title) == "" {
		return apperr.Validation("title is required")
	}
	if strings.TrimSpace(incident.Description) == "" {
		return apperr.Validation("description is required")
	}
	if !incident.Type.Valid() {
		return apperr.Validation("unknown incident type %q", incident.Type)
	}
	if err := geo.ValidateCoordinates(incident.Latitude, incident.Longitude); err != nil {
		return apperr.Validation("%v", err)
	}
	return nil
}
