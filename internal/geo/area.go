package geo

import (
	"fmt"

	"github.com/golang/geo/s2"
	geojson "github.com/paulmach/go.geojson"
)

// ServiceArea - зона обслуживания организации: один полигон или
// мультиполигон, загруженный из GeoJSON. Точка считается внутри зоны,
// если она содержится хотя бы в одном из полигонов.
type ServiceArea struct {
	loops []*s2.Loop
}

// ParseServiceArea разбирает геометрию GeoJSON (Polygon или MultiPolygon)
// в зону обслуживания.
func ParseServiceArea(raw []byte) (*ServiceArea, error) {
	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service area geometry: %w", err)
	}

	switch {
	case g.IsPolygon():
		loop, err := loopFromRings(g.Polygon)
		if err != nil {
			return nil, err
		}
		return &ServiceArea{loops: []*s2.Loop{loop}}, nil
	case g.IsMultiPolygon():
		loops := make([]*s2.Loop, 0, len(g.MultiPolygon))
		for _, rings := range g.MultiPolygon {
			loop, err := loopFromRings(rings)
			if err != nil {
				return nil, err
			}
			loops = append(loops, loop)
		}
		return &ServiceArea{loops: loops}, nil
	default:
		return nil, fmt.Errorf("unsupported service area geometry type: %s", g.Type)
	}
}

// loopFromRings строит s2-петлю по внешнему кольцу полигона.
// Дырки (внутренние кольца) для зон обслуживания не используются.
func loopFromRings(rings [][][]float64) (*s2.Loop, error) {
	if len(rings) == 0 {
		return nil, fmt.Errorf("polygon has no rings")
	}

	ring := rings[0]
	// GeoJSON замыкает кольцо повтором первой точки, s2 этого не ожидает
	if len(ring) > 1 {
		first, last := ring[0], ring[len(ring)-1]
		if first[0] == last[0] && first[1] == last[1] {
			ring = ring[:len(ring)-1]
		}
	}
	if len(ring) < 3 {
		return nil, fmt.Errorf("polygon ring needs at least 3 distinct points, got %d", len(ring))
	}

	points := make([]s2.Point, 0, len(ring))
	for _, coord := range ring {
		if len(coord) < 2 {
			return nil, fmt.Errorf("malformed coordinate in polygon ring")
		}
		// GeoJSON хранит координаты как [lon, lat]
		points = append(points, s2.PointFromLatLng(s2.LatLngFromDegrees(coord[1], coord[0])))
	}

	loop := s2.LoopFromPoints(points)
	// Нормализация фиксирует ориентацию кольца: иначе полигон, обходимый
	// по часовой стрелке, покрывал бы всю сферу за вычетом своей площади
	loop.Normalize()
	return loop, nil
}

// Contains сообщает, содержится ли точка в зоне обслуживания
func (a *ServiceArea) Contains(lat, lon float64) bool {
	if a == nil || len(a.loops) == 0 {
		return false
	}
	p := s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lon))
	for _, loop := range a.loops {
		if loop.ContainsPoint(p) {
			return true
		}
	}
	return false
}
