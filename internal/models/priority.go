package models

// basePriority возвращает базовый приоритет для типа инцидента
func basePriority(t IncidentType) PriorityLevel {
	switch t {
	case TypeForestFire, TypeUrbanFire, TypeFlood, TypeLandslide,
		TypeRoadAccident, TypeCrime, TypeDomesticViolence,
		TypeMedicalEmergency, TypeWorkAccident:
		return PriorityHigh
	case TypeVehicleBreakdown, TypeAnimalOnRoad, TypeRoadObstruction,
		TypeTrafficCongestion, TypeElectricalNetwork, TypeSanitation,
		TypePublicDisturbance, TypeInjuredAnimal, TypePollution:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// ComputePriority вычисляет приоритет инцидента: базовый приоритет типа,
// повышенный при накоплении дубликатов (MEDIUM -> HIGH от 5 отчетов,
// LOW -> MEDIUM от 7).
func ComputePriority(t IncidentType, reportCount int) PriorityLevel {
	switch basePriority(t) {
	case PriorityHigh:
		return PriorityHigh
	case PriorityMedium:
		if reportCount >= 5 {
			return PriorityHigh
		}
		return PriorityMedium
	default:
		if reportCount >= 7 {
			return PriorityMedium
		}
		return PriorityLow
	}
}

// ComputeProximityRadius вычисляет радиус зоны действия инцидента в метрах,
// исходя из типа и приоритета. Радиус используется для отображения зоны и
// для полезной нагрузки уведомлений, а не для порога дедупликации.
func ComputeProximityRadius(t IncidentType, priority PriorityLevel) float64 {
	var base float64
	switch t {
	case TypeForestFire:
		base = 2500.0
	case TypeUrbanFire:
		base = 1500.0
	case TypeFlood:
		base = 2000.0
	case TypeLandslide:
		base = 500.0
	case TypeRoadAccident:
		base = 400.0
	case TypeVehicleBreakdown:
		base = 125.0
	case TypeAnimalOnRoad:
		base = 150.0
	case TypeRoadObstruction, TypeTrafficCongestion, TypeRoadDamage, TypeDomesticViolence:
		base = 200.0
	case TypePublicLighting, TypeTrafficLightFailure:
		base = 100.0
	case TypeSanitation:
		base = 150.0
	case TypeElectricalNetwork, TypeCrime, TypePublicDisturbance, TypeInjuredAnimal, TypeWorkAccident:
		base = 300.0
	case TypeLostAnimal:
		base = 250.0
	case TypePollution:
		base = 750.0
	case TypeMedicalEmergency:
		base = 1000.0
	default:
		base = 300.0
	}

	switch priority {
	case PriorityHigh:
		return base * 2.0
	case PriorityMedium:
		return base * 1.5
	default:
		return base
	}
}
