// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package swarmtypes

// ZoneRole tags the purpose of a Zone for boundary enforcement, §4.5.
type ZoneRole string

const (
	ZoneSafe       ZoneRole = "SAFE"
	ZoneRestricted ZoneRole = "RESTRICTED"
	ZoneCharging   ZoneRole = "CHARGING"
	ZoneMission    ZoneRole = "MISSION"
	ZoneSpawn      ZoneRole = "SPAWN"
)

// ZoneShapeKind selects which of Rect/Circle on Zone is populated.
type ZoneShapeKind string

const (
	ShapeRectangle ZoneShapeKind = "RECTANGLE"
	ShapeCircle    ZoneShapeKind = "CIRCLE"
)

// Zone is a named region with a role, tagged as either a rectangle (Min,Max
// corners) or a circle (Center, Radius).
type Zone struct {
	ID    string
	Shape ZoneShapeKind
	Role  ZoneRole

	// Rectangle fields, valid when Shape == ShapeRectangle.
	Min Point2
	Max Point2

	// Circle fields, valid when Shape == ShapeCircle.
	Center Point2
	Radius float64
}

// Contains reports whether p lies within the zone's shape, edges inclusive.
func (z Zone) Contains(p Point2) bool {
	switch z.Shape {
	case ShapeCircle:
		return p.DistanceSq(z.Center) <= z.Radius*z.Radius
	default: // ShapeRectangle
		return p.X >= z.Min.X && p.X <= z.Max.X && p.Y >= z.Min.Y && p.Y <= z.Max.Y
	}
}
