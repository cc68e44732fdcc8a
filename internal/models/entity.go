package models

import "github.com/civicsignal/incident_reporting_system/internal/geo"

// ResponsibleEntity - организация, отвечающая за обработку инцидентов
// своей категории в пределах своей зоны обслуживания. Любое из
// контактных полей может отсутствовать.
type ResponsibleEntity struct {
	ID       int64          `json:"id"`
	Name     string         `json:"name"`
	Email    string         `json:"email,omitempty"`
	Phone    string         `json:"phone,omitempty"`
	Address  string         `json:"address,omitempty"`
	Category EntityCategory `json:"category"`

	// Area - зона обслуживания (полигон или мультиполигон).
	// Организация без зоны никогда не сопоставляется с точкой.
	Area *geo.ServiceArea `json:"-"`
}
