// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package swarmtypes

import "swarmsim/pkg/vec2"

// Vec2 and Point2 are re-exported here so callers that only need the data
// model don't have to import pkg/vec2 directly.
type (
	Vec2   = vec2.Vec2
	Point2 = vec2.Point2
)
