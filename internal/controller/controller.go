// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package controller wires every subsystem (registry, boundary, spatial
// cache, coordination, failure recovery, performance monitor) into the
// control API of §6 and drives the fixed-rate simulation tick. The
// start/pause/resume/stop lifecycle and the panic-to-ERROR-event path are
// grounded on the teacher's OpenCode server pool (healthCheckLoop run
// under a context, Shutdown draining in place); the worker-group shape
// (tick loop + periodic housekeeping, both cancelled together) is grounded
// on the teacher's client.Sync websocket pump
// (golang.org/x/sync/errgroup.WithContext).
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/robfig/cron"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"swarmsim/internal/boundary"
	"swarmsim/internal/config"
	"swarmsim/internal/coordination"
	"swarmsim/internal/eventbus"
	"swarmsim/internal/failure"
	"swarmsim/internal/perfmon"
	"swarmsim/internal/registry"
	"swarmsim/internal/spatialcache"
	"swarmsim/internal/telemetry"
	"swarmsim/pkg/agent"
	"swarmsim/pkg/swarmtypes"
)

// tracerName identifies controller spans in the telemetry backend.
const tracerName = "swarm-sim.controller"

// housekeepingInterval is how often the cron-scheduled cache sweep and
// heartbeat-timeout check run.
const housekeepingInterval = "@every 1s"

// shutdownGrace bounds how long Stop waits for the worker group to return
// before giving up and reporting ErrTimeout.
const shutdownGrace = 5 * time.Second

// State is the simulation's run state, §6 start/pause/resume/stop.
type State string

const (
	StateStopped State = "STOPPED"
	StateRunning State = "RUNNING"
	StatePaused  State = "PAUSED"
)

// Controller is the assembled simulation core: every subsystem named in §4,
// reachable only through the operations named in §6.
type Controller struct {
	mu    sync.RWMutex
	state State

	cfg *config.Config

	bus        *eventbus.Bus
	registry   *registry.Registry
	boundary   *boundary.Manager
	cache      *spatialcache.Cache
	formations *coordination.Manager
	detector   *failure.Detector
	recovery   *failure.Controller
	perf       *perfmon.Monitor

	tickSeq int64

	tickCounter   metric.Int64Counter
	frameDuration metric.Float64Histogram

	cancel context.CancelFunc
	group  *errgroup.Group
}

// New assembles a Controller from cfg. The simulation starts in StateStopped;
// call Start to begin ticking.
func New(cfg *config.Config) *Controller {
	bus := eventbus.New()
	reg := registry.New(bus)
	cache := spatialcache.New(
		time.Duration(cfg.CacheTTLMs)*time.Millisecond,
		cfg.CacheCellSize,
		cfg.CacheMaxEntries,
	)

	worldMin := swarmtypes.Point2{}
	worldMax := swarmtypes.Point2{X: cfg.WorldWidth, Y: cfg.WorldHeight}
	bman := boundary.New(bus, boundary.ModeMedium, worldMin, worldMax)

	formations := coordination.New(reg, bus)
	detector := failure.NewDetector(time.Duration(cfg.HeartbeatTimeoutMs) * time.Millisecond)
	recovery := failure.NewController(reg, bman, formations, detector, bus,
		time.Duration(cfg.RecoveryTimeoutMs)*time.Millisecond, cfg.MaxRecoveryAttempts)
	perf := perfmon.New(60, memoryRatio, bus, true)

	s := &Controller{
		state:      StateStopped,
		cfg:        cfg,
		bus:        bus,
		registry:   reg,
		boundary:   bman,
		cache:      cache,
		formations: formations,
		detector:   detector,
		recovery:   recovery,
		perf:       perf,
	}

	detector.Subscribe(bus)
	bus.Subscribe(swarmtypes.EventAgentStateUpdate, func(payload any) {
		upd, ok := payload.(swarmtypes.AgentStateUpdate)
		if !ok {
			return
		}
		s.cache.Put(upd.AgentID, upd.Snapshot, time.Duration(cfg.CacheTTLMs)*time.Millisecond)
	})

	meter := telemetry.GetMeter(tracerName)
	var err error
	s.tickCounter, err = meter.Int64Counter("swarm.ticks.total", metric.WithDescription("simulation ticks advanced"))
	if err != nil {
		slog.Debug("tick counter instrument unavailable", "error", err)
	}
	s.frameDuration, err = meter.Float64Histogram("swarm.frame.duration_ms", metric.WithDescription("wall-clock duration of a single tick"))
	if err != nil {
		slog.Debug("frame duration instrument unavailable", "error", err)
	}
	agentGauge, err := meter.Int64ObservableGauge("swarm.agents.active", metric.WithDescription("live agent count"))
	if err != nil {
		slog.Debug("agent gauge instrument unavailable", "error", err)
	} else {
		_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
			o.ObserveInt64(agentGauge, int64(len(reg.Snapshot())))
			return nil
		}, agentGauge)
		if err != nil {
			slog.Debug("agent gauge callback registration failed", "error", err)
		}
	}

	return s
}

func memoryRatio() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	if m.Sys == 0 {
		return 0
	}
	return float64(m.HeapAlloc) / float64(m.Sys)
}

// State reports the simulation's current run state.
func (s *Controller) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Start launches the tick loop and housekeeping cron in the background,
// returning immediately. ErrInvalidState if already running or paused.
func (s *Controller) Start() error {
	s.mu.Lock()
	if s.state != StateStopped {
		s.mu.Unlock()
		return swarmtypes.ErrInvalidState
	}
	ctx, cancel := context.WithCancel(context.Background())
	group, groupCtx := errgroup.WithContext(ctx)
	s.cancel = cancel
	s.group = group
	s.state = StateRunning
	s.mu.Unlock()

	group.Go(func() error { return s.run(groupCtx) })
	group.Go(func() error { return s.runHousekeeping(groupCtx) })
	return nil
}

// Pause suspends ticking without tearing down the worker group; housekeeping
// continues so stale agents are still detected while paused.
func (s *Controller) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning {
		return swarmtypes.ErrInvalidState
	}
	s.state = StatePaused
	return nil
}

// Resume un-suspends a paused simulation.
func (s *Controller) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePaused {
		return swarmtypes.ErrInvalidState
	}
	s.state = StateRunning
	return nil
}

// Stop cancels the worker group and waits up to shutdownGrace for it to
// return, reporting ErrTimeout if it doesn't.
func (s *Controller) Stop() error {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return nil
	}
	cancel, group := s.cancel, s.group
	s.state = StateStopped
	s.mu.Unlock()

	cancel()

	done := make(chan error, 1)
	go func() { done <- group.Wait() }()

	select {
	case err := <-done:
		return err
	case <-time.After(shutdownGrace):
		return swarmtypes.ErrTimeout
	}
}

// run advances the simulation at cfg.TargetFPS, recovering from any
// per-tick panic by transitioning to StateStopped and publishing an ERROR
// SystemEvent rather than taking the whole process down.
func (s *Controller) run(ctx context.Context) (err error) {
	limiter := rate.NewLimiter(rate.Limit(s.cfg.TargetFPS), 1)

	defer func() {
		if r := recover(); r != nil {
			spanCtx, span := telemetry.StartSpan(context.Background(), tracerName, "TickLoopPanic")
			panicErr := fmt.Errorf("controller: tick loop panic: %v", r)
			telemetry.RecordError(spanCtx, panicErr)
			span.End()

			s.mu.Lock()
			s.state = StateStopped
			s.mu.Unlock()
			s.bus.Publish(swarmtypes.EventSystemEvent, swarmtypes.SystemEvent{
				KindTag:  "TICK_LOOP_PANIC",
				Severity: swarmtypes.SeverityError,
				Message:  fmt.Sprintf("tick loop recovered from panic: %v", r),
				TS:       time.Now(),
			})
			err = panicErr
		}
	}()

	last := time.Now()
	for {
		if err := limiter.Wait(ctx); err != nil {
			return nil // context cancelled: clean shutdown
		}

		if s.State() == StatePaused {
			last = time.Now()
			continue
		}

		now := time.Now()
		dt := now.Sub(last).Seconds()
		last = now

		s.Tick(dt)
	}
}

// Tick advances every live agent exactly once by dt, records the frame's
// duration with the performance monitor, and increments the tick
// sequence. Exported so tests (and S3's single-tick scenario) can drive
// the simulation deterministically without waiting on the rate limiter.
func (s *Controller) Tick(dt float64) {
	frameStart := time.Now()
	s.registry.TickAll(dt, agent.TickDeps{Boundary: s.boundary, Bus: s.bus})
	elapsed := time.Since(frameStart)
	s.perf.RecordFrame(elapsed)

	s.mu.Lock()
	s.tickSeq++
	seq := s.tickSeq
	s.mu.Unlock()

	ctx := context.Background()
	if s.tickCounter != nil {
		s.tickCounter.Add(ctx, 1, metric.WithAttributes(telemetry.AttrTickSeq.Int64(seq)))
	}
	if s.frameDuration != nil {
		s.frameDuration.Record(ctx, float64(elapsed.Microseconds())/1000.0)
	}
}

// runHousekeeping runs the cron-scheduled low-cadence sweeps: spatial-cache
// eviction and heartbeat-timeout detection feeding the recovery controller.
func (s *Controller) runHousekeeping(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(housekeepingInterval, func() {
		s.cache.Cleanup()
		for _, id := range s.detector.CheckTimeouts(s.registry.Snapshot()) {
			if err := s.recovery.Report(id, swarmtypes.FailureTimeout); err != nil {
				slog.Debug("timeout recovery not started", "agent_id", id, "error", err)
			}
		}
	}); err != nil {
		return fmt.Errorf("controller: schedule housekeeping: %w", err)
	}

	c.Start()
	<-ctx.Done()
	c.Stop()
	return nil
}
