package models

import "fmt"

// IncidentType - категория происшествия, заявленная гражданином
type IncidentType string

const (
	TypeForestFire          IncidentType = "FOREST_FIRE"
	TypeUrbanFire           IncidentType = "URBAN_FIRE"
	TypeFlood               IncidentType = "FLOOD"
	TypeLandslide           IncidentType = "LANDSLIDE"
	TypeRoadAccident        IncidentType = "ROAD_ACCIDENT"
	TypeVehicleBreakdown    IncidentType = "VEHICLE_BREAKDOWN"
	TypeAnimalOnRoad        IncidentType = "ANIMAL_ON_ROAD"
	TypeRoadObstruction     IncidentType = "ROAD_OBSTRUCTION"
	TypeTrafficCongestion   IncidentType = "TRAFFIC_CONGESTION"
	TypePublicLighting      IncidentType = "PUBLIC_LIGHTING"
	TypeSanitation          IncidentType = "SANITATION"
	TypeElectricalNetwork   IncidentType = "ELECTRICAL_NETWORK"
	TypeRoadDamage          IncidentType = "ROAD_DAMAGE"
	TypeTrafficLightFailure IncidentType = "TRAFFIC_LIGHT_FAILURE"
	TypeCrime               IncidentType = "CRIME"
	TypePublicDisturbance   IncidentType = "PUBLIC_DISTURBANCE"
	TypeDomesticViolence    IncidentType = "DOMESTIC_VIOLENCE"
	TypeLostAnimal          IncidentType = "LOST_ANIMAL"
	TypeInjuredAnimal       IncidentType = "INJURED_ANIMAL"
	TypePollution           IncidentType = "POLLUTION"
	TypeMedicalEmergency    IncidentType = "MEDICAL_EMERGENCY"
	TypeWorkAccident        IncidentType = "WORK_ACCIDENT"
)

// IncidentStatus - статус жизненного цикла инцидента
type IncidentStatus string

const (
	StatusWaiting    IncidentStatus = "WAITING"
	StatusActive     IncidentStatus = "ACTIVE"
	StatusInProgress IncidentStatus = "IN_PROGRESS"
	StatusResolved   IncidentStatus = "RESOLVED"
	StatusClosed     IncidentStatus = "CLOSED"
)

// Open сообщает, участвует ли инцидент еще в кластеризации новых отчетов
func (s IncidentStatus) Open() bool {
	return s != StatusClosed && s != StatusResolved
}

// Valid проверяет, что статус является одним из известных значений
func (s IncidentStatus) Valid() bool {
	switch s {
	case StatusWaiting, StatusActive, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// PriorityLevel - уровень приоритета инцидента
type PriorityLevel string

const (
	PriorityLow    PriorityLevel = "LOW"
	PriorityMedium PriorityLevel = "MEDIUM"
	PriorityHigh   PriorityLevel = "HIGH"
)

// EntityCategory - категория ответственной организации
type EntityCategory string

const (
	CategoryFireBrigade     EntityCategory = "FIRE_BRIGADE"
	CategoryCivilProtection EntityCategory = "CIVIL_PROTECTION"
	CategoryPolice          EntityCategory = "POLICE"
	CategoryMunicipality    EntityCategory = "MUNICIPALITY"
	CategoryInfrastructure  EntityCategory = "INFRASTRUCTURE"
	CategoryVeterinary      EntityCategory = "VETERINARY_SERVICES"
	CategoryEnvironment     EntityCategory = "ENVIRONMENT"
	CategoryMedical         EntityCategory = "MEDICAL_SERVICE"
	CategoryLaborAuthority  EntityCategory = "LABOR_AUTHORITY"
)

// responsibleCategories - статическая таблица соответствия типа инцидента
// и категории ответственной организации. Таблица тотальна: каждый тип
// обязан иметь ровно одну категорию.
var responsibleCategories = map[IncidentType]EntityCategory{
	TypeForestFire: CategoryFireBrigade,
	TypeUrbanFire:  CategoryFireBrigade,

	TypeFlood:     CategoryCivilProtection,
	TypeLandslide: CategoryCivilProtection,

	TypeRoadAccident:      CategoryPolice,
	TypeAnimalOnRoad:      CategoryPolice,
	TypeTrafficCongestion: CategoryPolice,
	TypeCrime:             CategoryPolice,
	TypePublicDisturbance: CategoryPolice,
	TypeDomesticViolence:  CategoryPolice,

	TypePublicLighting: CategoryMunicipality,
	TypeSanitation:     CategoryMunicipality,

	TypeRoadDamage:          CategoryInfrastructure,
	TypeRoadObstruction:     CategoryInfrastructure,
	TypeTrafficLightFailure: CategoryInfrastructure,
	TypeElectricalNetwork:   CategoryInfrastructure,
	TypeVehicleBreakdown:    CategoryInfrastructure,

	TypeLostAnimal:    CategoryVeterinary,
	TypeInjuredAnimal: CategoryVeterinary,

	TypePollution: CategoryEnvironment,

	TypeMedicalEmergency: CategoryMedical,

	TypeWorkAccident: CategoryLaborAuthority,
}

// Valid проверяет, что тип инцидента известен системе. Известность
// определяется таблицей responsibleCategories, поэтому тип без
// назначенной категории невалиден по построению.
func (t IncidentType) Valid() bool {
	_, ok := responsibleCategories[t]
	return ok
}

// ResponsibleCategory возвращает категорию организации, отвечающей за
// данный тип инцидента. Тип без категории - ошибка конфигурации, а не
// молчаливое "none".
func ResponsibleCategory(t IncidentType) (EntityCategory, error) {
	c, ok := responsibleCategories[t]
	if !ok {
		return "", fmt.Errorf("no responsible category mapped for incident type %q", t)
	}
	return c, nil
}

// IncidentTypes возвращает все известные типы инцидентов
func IncidentTypes() []IncidentType {
	types := make([]IncidentType, 0, len(responsibleCategories))
	for t := range responsibleCategories {
		types = append(types, t)
	}
	return types
}
