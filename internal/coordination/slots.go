// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package coordination

import (
	"math"

	"swarmsim/pkg/swarmtypes"
)

// SlotPosition computes the world position for slot within a formation of
// the given kind, center, heading, spacing, and total membership, §4.7
// ("slot → world position is a pure function of (kind, center, heading,
// spacing, slot)"; total is folded in because every kind's layout depends
// on how many members share it — a formation of 3 and a formation of 8
// both have a "slot 0", but it sits in a different place).
func SlotPosition(kind swarmtypes.FormationKind, center swarmtypes.Point2, heading, spacing float64, slot, total int) swarmtypes.Point2 {
	forward := swarmtypes.Vec2{X: math.Cos(heading), Y: math.Sin(heading)}
	perp := swarmtypes.Vec2{X: -forward.Y, Y: forward.X}

	switch kind {
	case swarmtypes.FormationCircle:
		return circleSlot(center, heading, spacing, slot, total)
	case swarmtypes.FormationWedge:
		return wedgeSlot(center, forward, perp, spacing, slot)
	case swarmtypes.FormationGrid:
		return gridSlot(center, forward, perp, spacing, slot, total)
	default: // FormationLine
		return lineSlot(center, perp, spacing, slot, total)
	}
}

func lineSlot(center swarmtypes.Point2, perp swarmtypes.Vec2, spacing float64, slot, total int) swarmtypes.Point2 {
	offset := (float64(slot) - float64(total-1)/2) * spacing
	return center.Add(perp.Scale(offset))
}

func circleSlot(center swarmtypes.Point2, heading, spacing float64, slot, total int) swarmtypes.Point2 {
	if total < 1 {
		total = 1
	}
	// Radius chosen so adjacent members are spacing units apart along the
	// circumference.
	radius := spacing * float64(total) / (2 * math.Pi)
	angle := heading + 2*math.Pi*float64(slot)/float64(total)
	return center.Add(swarmtypes.Vec2{X: math.Cos(angle), Y: math.Sin(angle)}.Scale(radius))
}

func wedgeSlot(center swarmtypes.Point2, forward, perp swarmtypes.Vec2, spacing float64, slot int) swarmtypes.Point2 {
	if slot == 0 {
		return center
	}
	rank := float64((slot + 1) / 2)
	side := -1.0
	if slot%2 == 0 {
		side = 1.0
	}
	back := forward.Scale(-spacing * rank)
	lateral := perp.Scale(side * spacing * rank)
	return center.Add(back).Add(lateral)
}

func gridSlot(center swarmtypes.Point2, forward, perp swarmtypes.Vec2, spacing float64, slot, total int) swarmtypes.Point2 {
	if total < 1 {
		total = 1
	}
	cols := int(math.Ceil(math.Sqrt(float64(total))))
	if cols < 1 {
		cols = 1
	}
	rows := int(math.Ceil(float64(total) / float64(cols)))
	row := slot / cols
	col := slot % cols

	colOffset := (float64(col) - float64(cols-1)/2) * spacing
	rowOffset := (float64(row) - float64(rows-1)/2) * spacing

	return center.Add(perp.Scale(colOffset)).Add(forward.Scale(-rowOffset))
}
