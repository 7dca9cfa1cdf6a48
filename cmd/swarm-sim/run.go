// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"swarmsim/internal/config"
	"swarmsim/internal/controller"
	"swarmsim/pkg/swarmtypes"
)

// exitRuntimeFatal is returned by runSimulation when the controller itself
// reports a failure that is not a config problem (e.g. Stop timing out).
var exitRuntimeFatal = errors.New("swarm-sim: runtime fatal")

var runCmd = &cobra.Command{
	Use:   "run",
	Args:  cobra.NoArgs,
	Short: "Start the swarm simulation",
	Long:  `Loads configuration, assembles the simulation controller, and runs it until interrupted or --duration elapses.`,
	RunE:  runSimulation,
}

func init() {
	runCmd.Flags().Int("fps", 0, "override targetFPS (0 keeps the config value)")
	runCmd.Flags().Int("agents", 0, "spawn N agents on a fixed 7x7 grid across the world on startup")
	runCmd.Flags().Float64Slice("world", nil, "override world bounds as WIDTH,HEIGHT")
	runCmd.Flags().Bool("headless", false, "run without periodically printing a snapshot to stdout")
	runCmd.Flags().Duration("duration", 0, "stop automatically after this long (0 runs until interrupted)")
}

func runSimulation(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err // IsConfigInvalid(err) drives the exit code
	}

	fps, _ := cmd.Flags().GetInt("fps")
	if fps > 0 {
		cfg.TargetFPS = fps
	}
	world, _ := cmd.Flags().GetFloat64Slice("world")
	if len(world) == 2 {
		cfg.WorldWidth, cfg.WorldHeight = world[0], world[1]
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	headless, _ := cmd.Flags().GetBool("headless")
	duration, _ := cmd.Flags().GetDuration("duration")
	numAgents, _ := cmd.Flags().GetInt("agents")

	c := controller.New(cfg)

	for i := 0; i < numAgents; i++ {
		x := cfg.WorldWidth * float64(i%7) / 7
		y := cfg.WorldHeight * float64((i/7)%7) / 7
		c.SpawnAgent(x, y)
	}

	logger.Info("starting simulation", "target_fps", cfg.TargetFPS, "world_width", cfg.WorldWidth, "world_height", cfg.WorldHeight, "agents", numAgents)

	if err := c.Start(); err != nil {
		return fmt.Errorf("%w: %v", exitRuntimeFatal, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	var printTicker *time.Ticker
	if !headless {
		printTicker = time.NewTicker(time.Second)
		defer printTicker.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("stopping simulation")
			if err := c.Stop(); err != nil {
				return fmt.Errorf("%w: %v", exitRuntimeFatal, err)
			}
			return nil
		case <-tickerChan(printTicker):
			printSnapshot(c.Snapshot())
		}
	}
}

func tickerChan(t *time.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

func printSnapshot(upd swarmtypes.VisualizationUpdate) {
	line, err := json.Marshal(struct {
		TickSeq int64   `json:"tick"`
		Agents  int     `json:"agents"`
		FPS     float64 `json:"fps"`
		Tier    string  `json:"tier"`
	}{
		TickSeq: upd.TickSeq,
		Agents:  len(upd.Agents),
		FPS:     upd.Metrics.CurrentFPS,
		Tier:    upd.Metrics.Tier,
	})
	if err != nil {
		return
	}
	fmt.Println(string(line))
}

func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return 0
	case config.IsConfigInvalid(err):
		return 2
	case errors.Is(err, exitRuntimeFatal):
		return 3
	default:
		return 1
	}
}
