// Command led-sequencer drives three GPIO outputs as a button-triggered
// crossing or a free-running traffic light and publishes transitions to MQTT.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"github.com/sweeney/led-sequencer/internal/config"
	"github.com/sweeney/led-sequencer/internal/gpio"
	"github.com/sweeney/led-sequencer/internal/logic"
	"github.com/sweeney/led-sequencer/internal/metrics"
	"github.com/sweeney/led-sequencer/internal/mqtt"
	"github.com/sweeney/led-sequencer/internal/status"
	"github.com/sweeney/led-sequencer/internal/web"
)

func main() {
	fs := pflag.NewFlagSet("led-sequencer", pflag.ExitOnError)
	configPath := fs.String("config", "", "TOML config file (flags override it)")
	printState := fs.Bool("print-state", false, "Print the button level and exit")
	config.BindFlags(fs)
	fs.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if err := config.ApplyFlags(&cfg, fs); err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: invalid config: %v", err)
	}

	if *printState {
		err = printButton(cfg)
	} else {
		err = run(cfg)
	}
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// connPublisher is a publisher that can report its connection state.
type connPublisher interface {
	mqtt.Publisher
	mqtt.ConnectionStatus
}

func run(cfg config.Config) error {
	lights, err := gpio.NewRealLights(cfg.Chip, cfg.Pins.First, cfg.Pins.Second, cfg.Pins.Third)
	if err != nil {
		return fmt.Errorf("init outputs: %w", err)
	}
	defer lights.Close()

	var button gpio.Button
	if cfg.Mode == logic.ModeCrossing {
		b, err := gpio.NewRealButton(cfg.Chip, cfg.Pins.Button)
		if err != nil {
			return fmt.Errorf("init button: %w", err)
		}
		defer b.Close()
		button = b
	}

	var publisher connPublisher = mqtt.Discard{}
	if cfg.MQTT.Broker != "" {
		p, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		publisher = p
	}
	defer publisher.Close()

	start := time.Now()
	tracker := status.NewTracker(start, statusConfig(cfg))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	met := metrics.New(reg)

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, reg)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	log.Printf("started: mode=%s poll=%v debounce=%v step=%v restart=%v broker=%q heartbeat=%v",
		cfg.Mode, cfg.Timing.Poll(), cfg.Timing.Debounce(), cfg.Timing.Step(), cfg.Timing.Restart(),
		cfg.MQTT.Broker, cfg.Timing.Heartbeat())

	ticker := time.NewTicker(cfg.Timing.Poll())
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	d := &daemon{
		seq:         newSequencer(cfg),
		button:      button,
		lights:      lights,
		pub:         publisher,
		mqttStatus:  publisher,
		tracker:     tracker,
		met:         met,
		heartbeat:   cfg.Timing.Heartbeat(),
		statusEvery: cfg.Timing.Status(),
	}
	return runLoop(d, start, ticker.C, wakeAt, sigCh)
}

func newSequencer(cfg config.Config) logic.Sequencer {
	if cfg.Mode == logic.ModeTraffic {
		return logic.NewTrafficLight(cfg.Timing.Step())
	}
	return logic.NewCrossing(cfg.Timing.Step(), cfg.Timing.Restart(), cfg.Timing.Debounce())
}

func statusConfig(cfg config.Config) status.Config {
	return status.Config{
		Mode:        cfg.Mode,
		PollMs:      cfg.Timing.PollMs,
		DebounceMs:  cfg.Timing.DebounceMs,
		StepMs:      cfg.Timing.StepMs,
		RestartMs:   cfg.Timing.RestartMs,
		HeartbeatMs: cfg.Timing.HeartbeatMs,
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP.Addr,
	}
}

// wakeAt returns a channel that delivers the wall time once deadline passes.
func wakeAt(deadline time.Time) <-chan time.Time {
	return time.After(time.Until(deadline))
}

func printButton(cfg config.Config) error {
	button, err := gpio.NewRealButton(cfg.Chip, cfg.Pins.Button)
	if err != nil {
		return fmt.Errorf("init button: %w", err)
	}
	defer button.Close()

	level, err := button.Level()
	if err != nil {
		return fmt.Errorf("read button: %w", err)
	}
	fmt.Printf("button: %s\n", buttonString(level))
	return nil
}

// buttonString names a button level. The input is pulled up, so Low is pressed.
func buttonString(l logic.Level) string {
	if l == logic.Low {
		return "PRESSED"
	}
	return "RELEASED"
}
