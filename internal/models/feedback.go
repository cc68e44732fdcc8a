package models

import "time"

// Feedback - подтверждение или опровержение гражданином того, что
// инцидент все еще происходит. Неизменяем после создания.
type Feedback struct {
	ID         int64     `json:"id"`
	IncidentID int64     `json:"incident_id"`
	UserID     int64     `json:"user_id"`
	Confirmed  bool      `json:"confirmed"`
	CreatedAt  time.Time `json:"created_at"`
}
