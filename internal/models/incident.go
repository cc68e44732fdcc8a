package models

import (
	"time"
)

// Incident - кластеризованное реальное событие, агрегирующее один или
// несколько отчетов граждан. Координата берется из якорного отчета
// (первого отчета, создавшего инцидент).
type Incident struct {
	ID                  int64          `json:"id"`
	Title               string         `json:"title"`
	Description         string         `json:"description"`
	Type                IncidentType   `json:"type"`
	Status              IncidentStatus `json:"status"`
	Priority            PriorityLevel  `json:"priority"`
	ProximityRadius     float64        `json:"proximity_radius"`
	ReportCount         int            `json:"report_count"`
	AnchorReportID      *int64         `json:"anchor_report_id,omitempty"`
	ResponsibleEntityID *int64         `json:"responsible_entity_id,omitempty"`
	Latitude            float64        `json:"latitude"`
	Longitude           float64        `json:"longitude"`
	CreatedAt           time.Time      `json:"created_at"`
	EndedAt             *time.Time     `json:"ended_at,omitempty"`

	// Version - номер версии строки для optimistic concurrency,
	// инкрементируется при каждом успешном обновлении состояния
	Version int64 `json:"-"`
}

// Assigned сообщает, назначена ли инциденту ответственная организация.
// Отсутствие организации - нормальное состояние, а не ошибка.
func (i *Incident) Assigned() bool {
	return i.ResponsibleEntityID != nil
}
