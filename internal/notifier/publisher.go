package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/civicsignal/incident_reporting_system/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	escalationQueueKey = "escalation_events"
)

// Event - событие эскалации: инцидент пересек порог активации и
// ответственная организация должна быть уведомлена в течение окна.
type Event struct {
	ID              uuid.UUID             `json:"id"`
	IncidentID      int64                 `json:"incident_id"`
	Title           string                `json:"title"`
	Category        models.EntityCategory `json:"category"`
	EntityID        int64                 `json:"entity_id"`
	EntityName      string                `json:"entity_name,omitempty"`
	Latitude        float64               `json:"latitude"`
	Longitude       float64               `json:"longitude"`
	ProximityRadius float64               `json:"proximity_radius"`
	Message         string                `json:"message"`
	Timestamp       time.Time             `json:"timestamp"`
}

// Publisher - интерфейс для публикации событий эскалации
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// RedisPublisher - реализация Publisher, использующая очередь Redis
type RedisPublisher struct {
	redisClient *redis.Client
}

// NewRedisPublisher создает новый RedisPublisher
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{
		redisClient: client,
	}
}

// Publish публикует событие эскалации в очередь Redis
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal escalation event: %w", err)
	}

	if err := p.redisClient.LPush(ctx, escalationQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish escalation event to Redis: %w", err)
	}
	return nil
}
