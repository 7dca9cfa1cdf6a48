// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package swarmtypes

import "errors"

// Sentinel error kinds returned by the control API. Tick-internal failures
// are localized and never surface through these — they become SystemEvents
// and TaskCompletionReports instead.
var (
	ErrNotFound             = errors.New("swarmsim: not found")
	ErrInvalidArgument      = errors.New("swarmsim: invalid argument")
	ErrInvalidState         = errors.New("swarmsim: invalid state")
	ErrQueueFull            = errors.New("swarmsim: queue full")
	ErrTimeout              = errors.New("swarmsim: timeout")
	ErrConfigInvalid        = errors.New("swarmsim: invalid configuration")
	ErrHardwareDisconnected = errors.New("swarmsim: hardware disconnected")
	ErrRecoveryExhausted    = errors.New("swarmsim: recovery attempts exhausted")
)
