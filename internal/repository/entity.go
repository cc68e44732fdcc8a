package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/civicsignal/incident_reporting_system/internal/apperr"
	"github.com/civicsignal/incident_reporting_system/internal/geo"
	"github.com/civicsignal/incident_reporting_system/internal/models"
	"github.com/civicsignal/incident_reporting_system/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EntityRepository struct {
	db *pgxpool.Pool
}

func NewEntityRepository(db *pgxpool.Pool) service.EntityRepository {
	return &EntityRepository{db: db}
}

// ListByCategory возвращает организации категории вместе с разобранной
// геометрией зоны обслуживания. Зона хранится как GeoJSON; строка с
// нечитаемой геометрией возвращается без зоны и потому никогда не
// совпадает с точкой.
func (r *EntityRepository) ListByCategory(ctx context.Context, category models.EntityCategory) ([]*models.ResponsibleEntity, error) {
	query := `
		SELECT id, name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(address, ''), category, geo_area
		FROM responsible_entities
		WHERE category = $1
		ORDER BY id;
	`
	rows, err := r.db.Query(ctx, query, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities by category: %w", err)
	}
	defer rows.Close()

	entities := make([]*models.ResponsibleEntity, 0)
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entity row: %w", err)
		}
		entities = append(entities, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error entity rows iteration: %w", err)
	}
	return entities, nil
}

// GetByID возвращает организацию по ее идентификатору
func (r *EntityRepository) GetByID(ctx context.Context, id int64) (*models.ResponsibleEntity, error) {
	query := `
		SELECT id, name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(address, ''), category, geo_area
		FROM responsible_entities
		WHERE id = $1;
	`
	entity, err := scanEntity(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("responsible entity", id)
		}
		return nil, fmt.Errorf("failed to get entity by id: %w", err)
	}
	return entity, nil
}

func scanEntity(row pgx.Row) (*models.ResponsibleEntity, error) {
	entity := &models.ResponsibleEntity{}
	var rawArea []byte
	err := row.Scan(
		&entity.ID,
		&entity.Name,
		&entity.Email,
		&entity.Phone,
		&entity.Address,
		&entity.Category,
		&rawArea,
	)
	if err != nil {
		return nil, err
	}

	if len(rawArea) > 0 {
		area, err := geo.ParseServiceArea(rawArea)
		if err == nil {
			entity.Area = area
		}
	}
	return entity, nil
}
