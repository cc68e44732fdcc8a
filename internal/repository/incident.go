package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/civicsignal/incident_reporting_system/internal/apperr"
	"github.com/civicsignal/incident_reporting_system/internal/models"
	"github.com/civicsignal/incident_reporting_system/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const incidentColumns = `
		id,
		title,
		description,
		type,
		status,
		priority,
		proximity_radius,
		report_count,
		anchor_report_id,
		responsible_entity_id,
		latitude,
		longitude,
		created_at,
		ended_at,
		version`

type IncidentRepository struct {
	db          *pgxpool.Pool
	redisClient *redis.Client
	cacheTTL    time.Duration
}

func NewIncidentRepository(db *pgxpool.Pool, redisClient *redis.Client, cacheTTL time.Duration) service.IncidentRepository {
	return &IncidentRepository{
		db:          db,
		redisClient: redisClient,
		cacheTTL:    cacheTTL,
	}
}

// Create создает новую запись об инциденте в бд
func (r *IncidentRepository) Create(ctx context.Context, incident *models.Incident) error {
	query := `
		INSERT INTO incidents (
			title, description, type, status, priority, proximity_radius,
			report_count, anchor_report_id, responsible_entity_id,
			latitude, longitude, created_at, ended_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, version;
	`
	err := r.db.QueryRow(ctx, query,
		incident.Title,
		incident.Description,
		incident.Type,
		incident.Status,
		incident.Priority,
		incident.ProximityRadius,
		incident.ReportCount,
		incident.AnchorReportID,
		incident.ResponsibleEntityID,
		incident.Latitude,
		incident.Longitude,
		incident.CreatedAt,
		incident.EndedAt,
	).Scan(&incident.ID, &incident.Version)
	if err != nil {
		return fmt.Errorf("failed to create incident: %w", err)
	}
	return nil
}

// GetByID возвращает инцидент по его идентификатору
func (r *IncidentRepository) GetByID(ctx context.Context, id int64) (*models.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1;`

	incident, err := scanIncident(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("incident", id)
		}
		return nil, fmt.Errorf("failed to get incident by id: %w", err)
	}
	return incident, nil
}

// ListOpenByType возвращает открытые инциденты указанного типа.
// Закрытые и разрешенные инциденты в кластеризации не участвуют.
func (r *IncidentRepository) ListOpenByType(ctx context.Context, incidentType models.IncidentType) ([]*models.Incident, error) {
	query := `
		SELECT ` + incidentColumns + `
		FROM incidents
		WHERE type = $1 AND status NOT IN ($2, $3)
		ORDER BY created_at;
	`
	rows, err := r.db.Query(ctx, query, incidentType, models.StatusClosed, models.StatusResolved)
	if err != nil {
		return nil, fmt.Errorf("failed to list open incidents by type: %w", err)
	}
	defer rows.Close()

	return collectIncidents(rows)
}

// List возвращает инциденты с пагинацией и необязательными фильтрами
func (r *IncidentRepository) List(ctx context.Context, page, pageSize int, status *models.IncidentStatus, incidentType *models.IncidentType) ([]*models.Incident, error) {
	offset := (page - 1) * pageSize

	query := `SELECT ` + incidentColumns + ` FROM incidents`
	args := make([]any, 0, 4)
	where := ""
	if status != nil {
		args = append(args, *status)
		where = ` WHERE status = $` + strconv.Itoa(len(args))
	}
	if incidentType != nil {
		args = append(args, *incidentType)
		if where == "" {
			where = ` WHERE type = $` + strconv.Itoa(len(args))
		} else {
			where += ` AND type = $` + strconv.Itoa(len(args))
		}
	}
	args = append(args, pageSize, offset)
	query += where + fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d;`, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	defer rows.Close()

	return collectIncidents(rows)
}

// UpdateState перезаписывает изменяемые поля инцидента с проверкой версии
// строки. Конкурентное обновление той же строки возвращает
// apperr.ErrVersionConflict, и вызывающая сторона повторяет попытку с
// перечитанным состоянием.
func (r *IncidentRepository) UpdateState(ctx context.Context, incident *models.Incident) error {
	query := `
		UPDATE incidents SET
			title = $1,
			description = $2,
			status = $3,
			priority = $4,
			proximity_radius = $5,
			report_count = $6,
			responsible_entity_id = $7,
			ended_at = $8,
			version = version + 1
		WHERE id = $9 AND version = $10;
	`
	cmdTag, err := r.db.Exec(ctx, query,
		incident.Title,
		incident.Description,
		incident.Status,
		incident.Priority,
		incident.ProximityRadius,
		incident.ReportCount,
		incident.ResponsibleEntityID,
		incident.EndedAt,
		incident.ID,
		incident.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update incident state: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		// Либо строки нет, либо версия ушла вперед
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM incidents WHERE id = $1);`, incident.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check incident existence: %w", err)
		}
		if !exists {
			return apperr.NotFound("incident", incident.ID)
		}
		return apperr.ErrVersionConflict
	}

	incident.Version++
	return nil
}

// GetIncidentFromCache пытается получить инцидент из Redis
func (r *IncidentRepository) GetIncidentFromCache(ctx context.Context, id int64) (*models.Incident, error) {
	key := incidentCacheKey(id)
	val, err := r.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get incident from cache: %w", err)
	}

	incident := &models.Incident{}
	if err := json.Unmarshal(val, incident); err != nil {
		return nil, fmt.Errorf("failed to unmarshal incident from cache: %w", err)
	}
	return incident, nil
}

// SetIncidentCache сохраняет инцидент в Redis
func (r *IncidentRepository) SetIncidentCache(ctx context.Context, incident *models.Incident) error {
	val, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("failed to marshal incident for cache: %w", err)
	}
	if err := r.redisClient.Set(ctx, incidentCacheKey(incident.ID), val, r.cacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to set incident in cache: %w", err)
	}
	return nil
}

// InvalidateIncidentCache удаляет инцидент из Redis кэша
func (r *IncidentRepository) InvalidateIncidentCache(ctx context.Context, id int64) error {
	if err := r.redisClient.Del(ctx, incidentCacheKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate incident cache: %w", err)
	}
	return nil
}

func incidentCacheKey(id int64) string {
	return fmt.Sprintf("incident:%d", id)
}

func scanIncident(row pgx.Row) (*models.Incident, error) {
	incident := &models.Incident{}
	err := row.Scan(
		&incident.ID,
		&incident.Title,
		&incident.Description,
		&incident.Type,
		&incident.Status,
		&incident.Priority,
		&incident.ProximityRadius,
		&incident.ReportCount,
		&incident.AnchorReportID,
		&incident.ResponsibleEntityID,
		&incident.Latitude,
		&incident.Longitude,
		&incident.CreatedAt,
		&incident.EndedAt,
		&incident.Version,
	)
	if err != nil {
		return nil, err
	}
	return incident, nil
}

func collectIncidents(rows pgx.Rows) ([]*models.Incident, error) {
	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident row: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error incident rows iteration: %w", err)
	}
	return incidents, nil
}
