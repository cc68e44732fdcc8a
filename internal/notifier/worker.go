package notifier

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/civicsignal/incident_reporting_system/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Worker снимает события эскалации с очереди и прогоняет для каждого
// окно уведомлений: повторные доставки ответственной организации до
// истечения окна или отмены. Ошибки доставки логируются и не
// распространяются - окно всегда завершается само.
type Worker struct {
	redisClient *redis.Client
	logger      *logrus.Logger
	cfg         *config.Config
	httpClient  *http.Client
}

// NewWorker создает новый Worker
func NewWorker(redisClient *redis.Client, logger *logrus.Logger, cfg *config.Config) *Worker {
	return &Worker{
		redisClient: redisClient,
		logger:      logger,
		cfg:         cfg,
		httpClient: &http.Client{
			Timeout: cfg.NotifierTimeout,
		},
	}
}

// Start запускает горутину для обработки очереди эскалаций
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Starting escalation worker...")
	go func() {
		for {
			select {
			case <-ctx.Done():
				w.logger.Info("Stopping escalation worker.")
				return
			default:
				// BRPOP - блокирующее извлечение из правой части очереди,
				// 0 означает бесконечное ожидание
				result, err := w.redisClient.BRPop(ctx, 0, escalationQueueKey).Result()
				if err != nil {
					if errors.Is(err, context.Canceled) {
						continue
					}
					w.logger.WithError(err).Error("Failed to pop escalation event from Redis")
					time.Sleep(w.cfg.NotifierTimeout)
					continue
				}

				// result[0] - ключ, result[1] - значение
				var event Event
				if err := json.Unmarshal([]byte(result[1]), &event); err != nil {
					w.logger.WithError(err).Error("Failed to unmarshal escalation event from Redis")
					continue
				}

				// Каждое окно живет в своей горутине, чтобы пятиминутное
				// окно одного инцидента не задерживало очередь
				go w.runWindow(ctx, event)
			}
		}
	}()
}

// runWindow доставляет уведомления для события до истечения окна или
// отмены контекста. Первая доставка происходит сразу.
func (w *Worker) runWindow(ctx context.Context, event Event) {
	log := w.logger.WithFields(logrus.Fields{
		"event_id":    event.ID,
		"incident_id": event.IncidentID,
		"entity_id":   event.EntityID,
	})
	log.Info("Escalation window opened")

	windowCtx, cancel := context.WithTimeout(ctx, w.cfg.EscalationWindow)
	defer cancel()

	w.deliver(windowCtx, event, log)

	ticker := time.NewTicker(w.cfg.EscalationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-windowCtx.Done():
			log.Info("Escalation window closed")
			return
		case <-ticker.C:
			w.deliver(windowCtx, event, log)
		}
	}
}

// deliver выполняет одну доставку уведомления. Ошибка доставки
// логируется и проглатывается: следующая попытка придет по тикеру.
func (w *Worker) deliver(ctx context.Context, event Event, log *logrus.Entry) {
	if w.cfg.NotifierURL == "" {
		log.Warn("Notifier URL is not configured. Skipping escalation delivery.")
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.WithError(err).Error("Failed to marshal escalation notification")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.NotifierURL, bytes.NewReader(payload))
	if err != nil {
		log.WithError(err).Error("Failed to create escalation notification request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	// Добавляем HMAC подпись, если NOTIFIER_SECRET задан
	if w.cfg.NotifierSecret != "" {
		req.Header.Set("X-Notification-Signature", generateHMACSHA256(payload, w.cfg.NotifierSecret))
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Warn("Escalation notification delivery failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		log.Debug("Escalation notification delivered")
	} else {
		log.Warnf("Escalation notification rejected with status code %d", resp.StatusCode)
	}
}

// generateHMACSHA256 генерирует HMAC-SHA256 подпись для данных
func generateHMACSHA256(data []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
