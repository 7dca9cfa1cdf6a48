// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package swarmtypes

import "time"

// EventKind identifies which typed channel on the event bus a payload
// belongs to, §4.3/§6. The bus dispatches by exact kind match.
type EventKind string

const (
	EventAgentStateUpdate     EventKind = "AGENT_STATE_UPDATE"
	EventTaskCompletionReport EventKind = "TASK_COMPLETION_REPORT"
	EventSystemEvent          EventKind = "SYSTEM_EVENT"
	EventCommunicationEvent   EventKind = "COMMUNICATION_EVENT"
)

// UpdateKind narrows an AgentStateUpdate to the part of the agent that
// changed, letting subscribers skip deserializing the whole snapshot.
type UpdateKind string

const (
	UpdateFull     UpdateKind = "FULL"
	UpdatePosition UpdateKind = "POSITION"
	UpdateStatus   UpdateKind = "STATUS"
	UpdateBattery  UpdateKind = "BATTERY"
)

// AgentStateUpdate is published once per tick per agent that is not FAILED.
type AgentStateUpdate struct {
	AgentID    AgentID
	Snapshot   Snapshot
	UpdateKind UpdateKind
	TS         time.Time
}

// Severity classifies a SystemEvent for filtering/alerting.
type Severity string

const (
	SeverityDebug   Severity = "DEBUG"
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// SystemEvent carries warnings, errors, and lifecycle notices (agent
// created/destroyed, boundary violation, recovery outcome, performance tier
// change) that don't fit a narrower event type.
type SystemEvent struct {
	KindTag  string
	AgentID  *AgentID
	Severity Severity
	Message  string
	Metadata map[string]string
	TS       time.Time
}

// CommunicationEvent models inter-agent messaging observed on the bus
// (range-limited, e.g. for flocking consensus); the core does not itself
// produce these — they're here for UI/hardware adapters to publish.
type CommunicationEvent struct {
	Sender     AgentID
	Receiver   AgentID
	MessageTag string
	Payload    map[string]any
	Range      float64
	TS         time.Time
}

// Well-known SystemEvent KindTag values.
const (
	TagAgentCreated           = "AGENT_CREATED"
	TagAgentDestroyed         = "AGENT_DESTROYED"
	TagBoundaryViolation      = "BOUNDARY_VIOLATION"
	TagAgentPermanentlyFailed = "AGENT_PERMANENTLY_FAILED"
	TagPerformanceStatusChg   = "PERFORMANCE_STATUS_CHANGED"
	TagFormationCreated       = "FORMATION_CREATED"
	TagFormationDissolved     = "FORMATION_DISSOLVED"
)
