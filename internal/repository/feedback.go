package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/civicsignal/incident_reporting_system/internal/models"
	"github.com/civicsignal/incident_reporting_system/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FeedbackRepository struct {
	db *pgxpool.Pool
}

func NewFeedbackRepository(db *pgxpool.Pool) service.FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Create создает новую запись фидбека в бд
func (r *FeedbackRepository) Create(ctx context.Context, feedback *models.Feedback) error {
	query := `
		INSERT INTO feedbacks (incident_id, user_id, confirmed, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id;
	`
	err := r.db.QueryRow(ctx, query,
		feedback.IncidentID,
		feedback.UserID,
		feedback.Confirmed,
		feedback.CreatedAt,
	).Scan(&feedback.ID)
	if err != nil {
		return fmt.Errorf("failed to create feedback: %w", err)
	}
	return nil
}

// HasRecent проверяет, оставлял ли пользователь фидбек по инциденту в
// пределах окна ограничения
func (r *FeedbackRepository) HasRecent(ctx context.Context, userID, incidentID int64, window time.Duration) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM feedbacks
			WHERE user_id = $1 AND incident_id = $2 AND created_at >= $3
		);
	`
	var exists bool
	err := r.db.QueryRow(ctx, query, userID, incidentID, time.Now().UTC().Add(-window)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check recent feedback: %w", err)
	}
	return exists, nil
}

// CountNegative возвращает число опровергающих записей фидбека по инциденту
func (r *FeedbackRepository) CountNegative(ctx context.Context, incidentID int64) (int, error) {
	query := `SELECT COUNT(*) FROM feedbacks WHERE incident_id = $1 AND confirmed = FALSE;`

	var count int
	if err := r.db.QueryRow(ctx, query, incidentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count negative feedback: %w", err)
	}
	return count, nil
}

// ListByIncident возвращает фидбек по инциденту в порядке поступления
func (r *FeedbackRepository) ListByIncident(ctx context.Context, incidentID int64) ([]*models.Feedback, error) {
	query := `
		SELECT id, incident_id, user_id, confirmed, created_at
		FROM feedbacks
		WHERE incident_id = $1
		ORDER BY created_at;
	`
	rows, err := r.db.Query(ctx, query, incidentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback by incident: %w", err)
	}
	defer rows.Close()

	feedbacks := make([]*models.Feedback, 0)
	for rows.Next() {
		feedback := &models.Feedback{}
		err := rows.Scan(
			&feedback.ID,
			&feedback.IncidentID,
			&feedback.UserID,
			&feedback.Confirmed,
			&feedback.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feedback row: %w", err)
		}
		feedbacks = append(feedbacks, feedback)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error feedback rows iteration: %w", err)
	}
	return feedbacks, nil
}
