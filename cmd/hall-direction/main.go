// Command hall-direction samples two hall-effect sensors and broadcasts
// "Moved left!" / "Moved right!" to every connected websocket peer.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/hall-direction/internal/broadcast"
	"github.com/sweeney/hall-direction/internal/config"
	"github.com/sweeney/hall-direction/internal/gpio"
	"github.com/sweeney/hall-direction/internal/logic"
	"github.com/sweeney/hall-direction/internal/mqtt"
	"github.com/sweeney/hall-direction/internal/netready"
	"github.com/sweeney/hall-direction/internal/status"
	"github.com/sweeney/hall-direction/internal/web"
	"github.com/sweeney/hall-direction/internal/ws"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// flagOverrides holds command-line values that replace config file values
// when the flag was given explicitly.
type flagOverrides struct {
	configPath string
	poll       time.Duration
	debounce   time.Duration
	broker     string
	heartbeat  time.Duration
	httpAddr   string
	pinLeft    int
	pinRight   int
	activeLow  bool
	logLevel   string
}

func newRootCmd() *cobra.Command {
	var fo flagOverrides

	root := &cobra.Command{
		Use:          "hall-direction",
		Short:        "Detect movement direction past two hall sensors and broadcast it",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, fo)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Logging, os.Stderr)
			slog.SetDefault(logger)
			return run(cfg, netready.NewChecker(), logger)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&fo.configPath, "config", "c", "", "YAML config file")
	pf.IntVar(&fo.pinLeft, "pin-left", gpio.DefaultPinLeft, "BCM pin number for the left sensor")
	pf.IntVar(&fo.pinRight, "pin-right", gpio.DefaultPinRight, "BCM pin number for the right sensor")
	pf.BoolVar(&fo.activeLow, "active-low", gpio.DefaultActiveLow,
		"Sensors pull their line low while a magnet is present (pulled-up open-drain wiring); use --active-low=false for sensors that drive the line high")
	pf.StringVar(&fo.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	f := root.Flags()
	f.DurationVar(&fo.poll, "poll", 50*time.Millisecond, "GPIO polling interval")
	f.DurationVar(&fo.debounce, "debounce", 100*time.Millisecond, "Debounce duration")
	f.StringVar(&fo.broker, "broker", "", "MQTT broker address (empty disables the mirror)")
	f.DurationVar(&fo.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	f.StringVar(&fo.httpAddr, "http", ":8080", "Websocket and status address (empty to disable)")

	root.AddCommand(newStateCmd(&fo), newMonitorCmd(&fo))
	return root
}

func newStateCmd(fo *flagOverrides) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the current sensor states and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, *fo)
			if err != nil {
				return err
			}
			reader, err := gpio.NewRealReader(pinsFromConfig(cfg.Sensors))
			if err != nil {
				return fmt.Errorf("init gpio: %w", err)
			}
			defer reader.Close()
			return printState(cmd.OutOrStdout(), reader)
		},
	}
}

// loadConfig reads the config file and applies any flags that were set.
func loadConfig(cmd *cobra.Command, fo flagOverrides) (config.Config, error) {
	cfg, err := config.Load(fo.configPath)
	if err != nil {
		return config.Config{}, err
	}

	changed := func(name string) bool {
		fl := cmd.Flags().Lookup(name)
		return fl != nil && fl.Changed
	}
	if changed("poll") {
		cfg.Sampling.Poll = fo.poll
	}
	if changed("debounce") {
		cfg.Sampling.Debounce = fo.debounce
	}
	if changed("broker") {
		cfg.MQTT.Broker = fo.broker
	}
	if changed("heartbeat") {
		cfg.MQTT.Heartbeat = fo.heartbeat
	}
	if changed("http") {
		cfg.Server.Addr = fo.httpAddr
	}
	if changed("pin-left") {
		cfg.Sensors.LeftPin = fo.pinLeft
	}
	if changed("pin-right") {
		cfg.Sensors.RightPin = fo.pinRight
	}
	if changed("active-low") {
		cfg.Sensors.ActiveLow = fo.activeLow
	}
	if changed("log-level") {
		cfg.Logging.Level = fo.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newLogger(lc config.Logging, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func pinsFromConfig(s config.Sensors) gpio.Pins {
	return gpio.Pins{
		Chip:      s.Chip,
		Left:      s.LeftPin,
		Right:     s.RightPin,
		ActiveLow: s.ActiveLow,
	}
}

func printState(w io.Writer, reader gpio.Reader) error {
	left, right, err := reader.Read()
	if err != nil {
		return fmt.Errorf("read gpio: %w", err)
	}
	_, err = fmt.Fprintf(w, "LEFT: %s, RIGHT: %s\n", status.SensorString(left), status.SensorString(right))
	return err
}

// connector reports the host address once the network is usable.
type connector interface {
	Connect() (net.IP, error)
	Info() *status.NetworkInfo
}

func run(cfg config.Config, network connector, logger *slog.Logger) error {
	// Nothing starts until the network is up; there is no retry.
	ip, err := network.Connect()
	if err != nil {
		logger.Error("network not ready, halting", "error", err)
		return fmt.Errorf("network readiness: %w", err)
	}
	logger.Info("network ready", "ip", ip.String())

	reader, err := gpio.NewRealReader(pinsFromConfig(cfg.Sensors))
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer reader.Close()

	var publisher interface {
		mqtt.Publisher
		mqtt.ConnectionStatus
	} = mqtt.NopPublisher{}
	if cfg.MQTT.Broker != "" {
		publisher = mqtt.NewRealPublisher(mqtt.Options{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
		}, logger)
	}
	defer publisher.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      cfg.Sampling.Poll.Milliseconds(),
		DebounceMs:  cfg.Sampling.Debounce.Milliseconds(),
		HeartbeatMs: cfg.MQTT.Heartbeat.Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.Server.Addr,
		PinLeft:     cfg.Sensors.LeftPin,
		PinRight:    cfg.Sensors.RightPin,
	})
	tracker.SetNetwork(network.Info())

	snap := tracker.Snapshot()
	startup := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		logger.Warn("failed to publish startup event", "error", err)
	}

	hub := broadcast.New(logger)

	if cfg.Server.Addr != "" {
		events := ws.NewHandler(hub, ws.Options{
			WriteTimeout: cfg.Server.WriteTimeout,
			QueueSize:    cfg.Server.QueueSize,
		}, logger)
		srv := web.New(cfg.Server.Addr, tracker, events)
		if stop := serve(srv, cfg.Server.Addr, logger); stop != nil {
			defer stop()
		}
	}

	logger.Info("started",
		"poll", cfg.Sampling.Poll,
		"debounce", cfg.Sampling.Debounce,
		"broker", cfg.MQTT.Broker,
		"heartbeat", cfg.MQTT.Heartbeat,
		"addr", cfg.Server.Addr)

	ticker := time.NewTicker(cfg.Sampling.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(loopDeps{
		reader:     reader,
		hub:        hub,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		network:    network.Info,
		debounce:   cfg.Sampling.Debounce,
		heartbeat:  cfg.MQTT.Heartbeat,
		now:        time.Now,
		logger:     logger,
	}, ticker.C, sigCh)
}

// serve binds addr and serves in the background. A bind or accept failure
// is logged and sampling carries on without subscribers. The returned func
// shuts the server down; it is nil when binding failed.
func serve(srv *web.Server, addr string, logger *slog.Logger) func() {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("listen failed, continuing without subscribers", "addr", addr, "error", err)
		return nil
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	logger.Info("listening", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Debug("http shutdown", "error", err)
		}
	}
}

// loopDeps is everything the sampling loop touches. tracker, mqttStatus
// and network may be nil.
type loopDeps struct {
	reader     gpio.Reader
	hub        *broadcast.Broadcaster
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	network    func() *status.NetworkInfo
	debounce   time.Duration
	heartbeat  time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// runLoop samples the sensors on every tick until a signal arrives. Nothing
// inside a tick blocks: broadcast sends only enqueue, dropping a subscriber
// only signals its writer, and MQTT publishes complete asynchronously.
func runLoop(d loopDeps, tick <-chan time.Time, sig <-chan os.Signal) error {
	logger := d.logger
	if logger == nil {
		logger = slog.Default()
	}
	sampler := logic.NewSampler(d.debounce, d.now())

	refresh := func() {
		if d.tracker == nil {
			return
		}
		left, right, state := sampler.CurrentState()
		d.tracker.Update(left, right, state, sampler.EventCountsSnapshot())
		d.tracker.SetSubscribers(d.hub.Len())
		if d.mqttStatus != nil {
			d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
		}
	}

	for {
		select {
		case s := <-sig:
			signalName := "UNKNOWN"
			switch s {
			case syscall.SIGINT:
				signalName = "SIGINT"
			case syscall.SIGTERM:
				signalName = "SIGTERM"
			}
			logger.Info("shutting down", "signal", signalName)

			event := mqtt.SystemEvent{
				Timestamp: d.now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if d.tracker != nil {
				refresh()
				event.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), "SHUTDOWN", signalName)
			}
			if err := d.publisher.PublishSystem(event); err != nil {
				logger.Warn("failed to publish shutdown event", "error", err)
			}
			return nil

		case <-tick:
			t := d.now()
			left, right, err := d.reader.Read()
			if err != nil {
				logger.Warn("gpio read error", "error", err)
				continue
			}

			if event, ok := sampler.Process(logic.Input{Left: left, Right: right, Time: t}); ok {
				msg := event.Direction.Message()
				delivered := d.hub.Broadcast(msg)
				logger.Info("movement", "direction", event.Direction, "delivered", delivered)

				if err := d.publisher.Publish(event); err != nil {
					logger.Warn("publish error", "error", err)
				}
				if d.tracker != nil {
					d.tracker.RecordEvent(event)
				}
			}

			if hb := sampler.CheckHeartbeat(t, d.heartbeat); hb != nil {
				logger.Info("heartbeat",
					"uptime", hb.Uptime,
					"left", hb.Counts.Left,
					"right", hb.Counts.Right,
					"subscribers", d.hub.Len())

				hbEvent := mqtt.SystemEvent{Timestamp: hb.Timestamp, Event: "HEARTBEAT"}
				if d.tracker != nil {
					if d.network != nil {
						d.tracker.SetNetwork(d.network())
					}
					refresh()
					hbEvent.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), "HEARTBEAT", "")
				}
				if err := d.publisher.PublishSystem(hbEvent); err != nil {
					logger.Warn("heartbeat publish error", "error", err)
				}
			}

			refresh()
		}
	}
}
