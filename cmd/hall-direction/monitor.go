package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/hall-direction/internal/gpio"
	"github.com/sweeney/hall-direction/internal/logic"
)

func newMonitorCmd(fo *flagOverrides) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Report each sensor's triggers until interrupted (wiring check)",
		Long: `Polls both sensors without direction detection and logs every trigger
with a running count. By default a trigger is a debounced activation; with
--raw every active sample counts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, *fo)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Logging, os.Stderr)

			reader, err := gpio.NewRealReader(pinsFromConfig(cfg.Sensors))
			if err != nil {
				return fmt.Errorf("init gpio: %w", err)
			}
			defer reader.Close()

			ticker := time.NewTicker(cfg.Sampling.Poll)
			defer ticker.Stop()
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			logger.Info("monitoring sensors", "poll", cfg.Sampling.Poll, "debounce", cfg.Sampling.Debounce, "raw", raw)
			counts := monitorLoop(reader, cfg.Sampling.Debounce, raw, time.Now, ticker.C, sigCh, logger)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "LEFT: %d, RIGHT: %d\n", counts.Left, counts.Right)
			return err
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Count every active sample instead of debounced activations")
	return cmd
}

// triggerCounts holds per-sensor trigger totals.
type triggerCounts struct {
	Left  int
	Right int
}

type sensorMonitor struct {
	sensor   logic.Sensor
	debounce *logic.Debouncer
	prev     bool
	count    int
}

// sample reports whether this sample counts as a trigger.
func (m *sensorMonitor) sample(active bool, now time.Time, raw bool) bool {
	if raw {
		if active {
			m.count++
		}
		return active
	}
	stable := m.debounce.Update(active, now)
	rise := stable && !m.prev
	m.prev = stable
	if rise {
		m.count++
	}
	return rise
}

// monitorLoop samples each sensor independently until stop fires and
// returns the trigger totals.
func monitorLoop(reader gpio.Reader, debounce time.Duration, raw bool, now func() time.Time, tick <-chan time.Time, stop <-chan os.Signal, logger *slog.Logger) triggerCounts {
	if logger == nil {
		logger = slog.Default()
	}
	left := &sensorMonitor{sensor: logic.SensorLeft, debounce: logic.NewDebouncer(debounce)}
	right := &sensorMonitor{sensor: logic.SensorRight, debounce: logic.NewDebouncer(debounce)}

	for {
		select {
		case s := <-stop:
			logger.Info("monitor stopped", "signal", s.String(), "left", left.count, "right", right.count)
			return triggerCounts{Left: left.count, Right: right.count}

		case <-tick:
			t := now()
			l, r, err := reader.Read()
			if err != nil {
				logger.Warn("gpio read error", "error", err)
				continue
			}
			for _, m := range []struct {
				mon    *sensorMonitor
				active bool
			}{{left, l}, {right, r}} {
				if m.mon.sample(m.active, t, raw) {
					logger.Info("sensor triggered", "sensor", m.mon.sensor, "count", m.mon.count)
				}
			}
		}
	}
}
