package models

import "time"

// Report - единичное обращение гражданина. Неизменяем после создания:
// ядро никогда не модифицирует сохраненный отчет.
type Report struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Type        IncidentType `json:"type"`
	UserID      int64        `json:"user_id"`
	Latitude    float64      `json:"latitude"`
	Longitude   float64      `json:"longitude"`
	CreatedAt   time.Time    `json:"created_at"`
}
