package service

import (
	"context"
	"fmt"

	"github.com/civicsignal/incident_reporting_system/internal/apperr"
	"github.com/civicsignal/incident_reporting_system/internal/geo"
	"github.com/civicsignal/incident_reporting_system/internal/models"
	"github.com/sirupsen/logrus"
)

// EntityRepository определяет контракт для работы с бд ответственных организаций
type EntityRepository interface {
	ListByCategory(ctx context.Context, category models.EntityCategory) ([]*models.ResponsibleEntity, error)
	GetByID(ctx context.Context, id int64) (*models.ResponsibleEntity, error)
}

// EntityResolver определяет контракт для поиска ответственной организации
// по типу инцидента и координате. Операция - чистый запрос: хранимые
// сущности и инциденты не модифицируются.
type EntityResolver interface {
	Resolve(ctx context.Context, incidentType models.IncidentType, lat, lon float64) (*models.ResponsibleEntity, error)
}

type entityResolver struct {
	repo   EntityRepository
	logger *logrus.Logger
}

// NewEntityResolver создает резолвер ответственных организаций
func NewEntityResolver(repo EntityRepository, logger *logrus.Logger) EntityResolver {
	return &entityResolver{
		repo:   repo,
		logger: logger,
	}
}

// Resolve находит организацию, чья категория соответствует типу инцидента
// и чья зона обслуживания содержит точку. Отсутствие совпадения - не
// ошибка: возвращается (nil, nil), и инцидент остается неназначенным.
func (r *entityResolver) Resolve(ctx context.Context, incidentType models.IncidentType, lat, lon float64) (*models.ResponsibleEntity, error) {
	log := r.logger.WithFields(logrus.Fields{
		"service": "resolver",
		"method":  "Resolve",
		"type":    incidentType,
	})

	if err := geo.ValidateCoordinates(lat, lon); err != nil {
		return nil, apperr.Validation("%v", err)
	}

	category, err := models.ResponsibleCategory(incidentType)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}

	entities, err := r.repo.ListByCategory(ctx, category)
	if err != nil {
		log.WithError(err).Error("Failed to list responsible entities by category")
		return nil, fmt.Errorf("resolver: could not list entities of category %s: %w", category, err)
	}

	for _, entity := range entities {
		// Организация без зоны обслуживания никогда не совпадает.
		// При пересечении зон одной категории побеждает первая найденная:
		// зоны внутри категории по договоренности не пересекаются.
		if entity.Area != nil && entity.Area.Contains(lat, lon) {
			log.WithField("entity_id", entity.ID).Debug("Responsible entity resolved")
			return entity, nil
		}
	}

	log.Debug("No responsible entity covers the point")
	return nil, nil
}
