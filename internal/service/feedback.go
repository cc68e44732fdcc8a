package service

import (
	"context"
	"fmt"
	"time"

	"github.com/civicsignal/incident_reporting_system/internal/apperr"
	"github.com/civicsignal/incident_reporting_system/internal/config"
	"github.com/civicsignal/incident_reporting_system/internal/models"
	"github.com/sirupsen/logrus"
)

// FeedbackRepository определяет контракт для работы с бд фидбека
type FeedbackRepository interface {
	Create(ctx context.Context, feedback *models.Feedback) error
	// HasRecent сообщает, оставлял ли пользователь фидбек по инциденту
	// в пределах окна ограничения
	HasRecent(ctx context.Context, userID, incidentID int64, window time.Duration) (bool, error)
	CountNegative(ctx context.Context, incidentID int64) (int, error)
	ListByIncident(ctx context.Context, incidentID int64) ([]*models.Feedback, error)
}

// UserRepository определяет контракт проверки существования пользователя
type UserRepository interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// FeedbackService определяет контракт движка закрытия инцидентов по фидбеку
type FeedbackService interface {
	Submit(ctx context.Context, userID, incidentID int64, confirmed bool) (*models.Feedback, models.IncidentStatus, error)
	ListByIncident(ctx context.Context, incidentID int64) ([]*models.Feedback, error)
}

type feedbackService struct {
	feedbacks    FeedbackRepository
	users        UserRepository
	incidentRepo IncidentRepository
	incidents    IncidentService
	logger       *logrus.Logger
	cfg          *config.Config
}

// NewFeedbackService создает сервис фидбека
func NewFeedbackService(
	feedbacks FeedbackRepository,
	users UserRepository,
	incidentRepo IncidentRepository,
	incidents IncidentService,
	logger *logrus.Logger,
	cfg *config.Config,
) FeedbackService {
	return &feedbackService{
		feedbacks:    feedbacks,
		users:        users,
		incidentRepo: incidentRepo,
		incidents:    incidents,
		logger:       logger,
		cfg:          cfg,
	}
}

// Submit сохраняет фидбек гражданина и, при накоплении достаточного числа
// опровержений, закрывает инцидент. Подтверждающий фидбек инцидент не
// закрывает никогда.
func (s *feedbackService) Submit(ctx context.Context, userID, incidentID int64, confirmed bool) (*models.Feedback, models.IncidentStatus, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "feedback",
		"method":      "Submit",
		"user_id":     userID,
		"incident_id": incidentID,
	})

	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Failed to check user existence")
		return nil, "", fmt.Errorf("service: could not check user existence: %w", err)
	}
	if !exists {
		return nil, "", apperr.NotFound("user", userID)
	}

	// Статус читается напрямую из бд: кешированный снимок мог устареть
	incident, err := s.incidentRepo.GetByID(ctx, incidentID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, "", err
		}
		log.WithError(err).Error("Failed to get incident for feedback")
		return nil, "", fmt.Errorf("service: could not get incident: %w", err)
	}

	// Гражданин не может дать фидбек по еще не активированному инциденту
	if incident.Status == models.StatusWaiting {
		return nil, "", apperr.Conflict("incident %d has not been activated yet", incidentID)
	}

	recent, err := s.feedbacks.HasRecent(ctx, userID, incidentID, s.cfg.FeedbackRateLimit)
	if err != nil {
		log.WithError(err).Error("Failed to check recent feedback")
		return nil, "", fmt.Errorf("service: could not check recent feedback: %w", err)
	}
	if recent {
		return nil, "", apperr.Validation("feedback for incident %d already submitted within the last %s", incidentID, s.cfg.FeedbackRateLimit)
	}

	feedback := &models.Feedback{
		IncidentID: incidentID,
		UserID:     userID,
		Confirmed:  confirmed,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.feedbacks.Create(ctx, feedback); err != nil {
		log.WithError(err).Error("Failed to create feedback in repository")
		return nil, "", fmt.Errorf("service: could not create feedback: %w", err)
	}
	log = log.WithField("feedback_id", feedback.ID)
	log.Info("Feedback stored")

	status := incident.Status
	if !confirmed {
		// Фидбек уже долговечен: сбои ниже возвращаются обернутыми,
		// запись не откатывается
		negatives, err := s.feedbacks.CountNegative(ctx, incidentID)
		if err != nil {
			log.WithError(err).Error("Feedback stored but negative recount failed")
			return nil, "", fmt.Errorf("feedback %d stored but occurrence status update failed: %w", feedback.ID, err)
		}

		if negatives >= s.cfg.CloseThreshold && incident.EndedAt == nil {
			closed, err := s.incidents.CloseFromFeedback(ctx, incidentID)
			if err != nil {
				log.WithError(err).Error("Feedback stored but incident closure failed")
				return nil, "", fmt.Errorf("feedback %d stored but occurrence status update failed: %w", feedback.ID, err)
			}
			status = closed.Status
		}
	}

	return feedback, status, nil
}

// ListByIncident возвращает фидбек по инциденту
func (s *feedbackService) ListByIncident(ctx context.Context, incidentID int64) ([]*models.Feedback, error) {
	feedbacks, err := s.feedbacks.ListByIncident(ctx, incidentID)
	if err != nil {
		return nil, fmt.Errorf("service: could not list feedback for incident %d: %w", incidentID, err)
	}
	return feedbacks, nil
}
