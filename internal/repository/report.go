package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/civicsignal/incident_reporting_system/internal/apperr"
	"github.com/civicsignal/incident_reporting_system/internal/models"
	"github.com/civicsignal/incident_reporting_system/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReportRepository struct {
	db *pgxpool.Pool
}

func NewReportRepository(db *pgxpool.Pool) service.ReportRepository {
	return &ReportRepository{db: db}
}

// Create создает новую запись об отчете в бд. Отчеты append-only:
// обновления и удаления в репозитории отсутствуют намеренно.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	query := `
		INSERT INTO reports (title, description, type, user_id, latitude, longitude, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id;
	`
	err := r.db.QueryRow(ctx, query,
		report.Title,
		report.Description,
		report.Type,
		report.UserID,
		report.Latitude,
		report.Longitude,
		report.CreatedAt,
	).Scan(&report.ID)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

// GetByID возвращает отчет по его идентификатору
func (r *ReportRepository) GetByID(ctx context.Context, id int64) (*models.Report, error) {
	report := &models.Report{}
	query := `
		SELECT id, title, description, type, user_id, latitude, longitude, created_at
		FROM reports
		WHERE id = $1;
	`
	err := r.db.QueryRow(ctx, query, id).Scan(
		&report.ID,
		&report.Title,
		&report.Description,
		&report.Type,
		&report.UserID,
		&report.Latitude,
		&report.Longitude,
		&report.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("report", id)
		}
		return nil, fmt.Errorf("failed to get report by id: %w", err)
	}
	return report, nil
}
