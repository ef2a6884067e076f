// Package config loads daemon settings. Defaults are overlaid by an optional
// TOML file, which is overlaid by command-line flags the user actually set.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"
	"github.com/sweeney/led-sequencer/internal/gpio"
	"github.com/sweeney/led-sequencer/internal/logic"
	"github.com/sweeney/led-sequencer/internal/mqtt"
)

// Config is the complete daemon configuration.
type Config struct {
	Mode   string `toml:"mode"`
	Chip   string `toml:"chip"`
	Pins   Pins   `toml:"pins"`
	Timing Timing `toml:"timing"`
	MQTT   MQTT   `toml:"mqtt"`
	HTTP   HTTP   `toml:"http"`
}

// Pins are GPIO line offsets on Chip.
type Pins struct {
	Button int `toml:"button"`
	First  int `toml:"first"`
	Second int `toml:"second"`
	Third  int `toml:"third"`
}

// Timing values are in milliseconds.
type Timing struct {
	PollMs      int64 `toml:"poll_ms"`
	DebounceMs  int64 `toml:"debounce_ms"`
	StepMs      int64 `toml:"step_ms"`
	RestartMs   int64 `toml:"restart_ms"`
	HeartbeatMs int64 `toml:"heartbeat_ms"`
	StatusMs    int64 `toml:"status_ms"`
}

func ms(n int64) time.Duration { return time.Duration(n) * time.Millisecond }

func (t Timing) Poll() time.Duration      { return ms(t.PollMs) }
func (t Timing) Debounce() time.Duration  { return ms(t.DebounceMs) }
func (t Timing) Step() time.Duration      { return ms(t.StepMs) }
func (t Timing) Restart() time.Duration   { return ms(t.RestartMs) }
func (t Timing) Heartbeat() time.Duration { return ms(t.HeartbeatMs) }
func (t Timing) Status() time.Duration    { return ms(t.StatusMs) }

// MQTT settings. An empty Broker disables publishing.
type MQTT struct {
	Broker   string `toml:"broker"`
	ClientID string `toml:"client_id"`
}

// HTTP settings. An empty Addr disables the status server.
type HTTP struct {
	Addr string `toml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Mode: logic.ModeCrossing,
		Chip: gpio.DefaultChip,
		Pins: Pins{
			Button: gpio.DefaultPinButton,
			First:  gpio.DefaultPinFirst,
			Second: gpio.DefaultPinSecond,
			Third:  gpio.DefaultPinThird,
		},
		Timing: Timing{
			PollMs:      5,
			DebounceMs:  logic.DefaultDebounce.Milliseconds(),
			StepMs:      logic.DefaultStep.Milliseconds(),
			RestartMs:   logic.DefaultRestartDelay.Milliseconds(),
			HeartbeatMs: (15 * time.Minute).Milliseconds(),
		},
		MQTT: MQTT{
			Broker:   "tcp://localhost:1883",
			ClientID: mqtt.DefaultClientID,
		},
		HTTP: HTTP{Addr: ":8080"},
	}
}

// Load returns the defaults overlaid with the TOML file at path.
// An empty path yields the defaults. Unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return cfg, fmt.Errorf("parse config %s: %s", path, strict.String())
		}
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first setting the daemon cannot run with.
func (c Config) Validate() error {
	switch c.Mode {
	case logic.ModeCrossing, logic.ModeTraffic:
	default:
		return fmt.Errorf("unknown mode %q (want %s or %s)", c.Mode, logic.ModeCrossing, logic.ModeTraffic)
	}
	if c.Chip == "" {
		return errors.New("chip must not be empty")
	}

	timings := []struct {
		name string
		ms   int64
	}{
		{"timing.poll_ms", c.Timing.PollMs},
		{"timing.debounce_ms", c.Timing.DebounceMs},
		{"timing.step_ms", c.Timing.StepMs},
		{"timing.restart_ms", c.Timing.RestartMs},
	}
	for _, t := range timings {
		if t.ms <= 0 {
			return fmt.Errorf("%s must be positive, got %d", t.name, t.ms)
		}
	}
	if c.Timing.HeartbeatMs < 0 {
		return fmt.Errorf("timing.heartbeat_ms must not be negative, got %d", c.Timing.HeartbeatMs)
	}
	if c.Timing.StatusMs < 0 {
		return fmt.Errorf("timing.status_ms must not be negative, got %d", c.Timing.StatusMs)
	}

	pins := []struct {
		name string
		pin  int
	}{
		{"pins.button", c.Pins.Button},
		{"pins.first", c.Pins.First},
		{"pins.second", c.Pins.Second},
		{"pins.third", c.Pins.Third},
	}
	seen := make(map[int]string, len(pins))
	for _, p := range pins {
		if p.pin < 0 {
			return fmt.Errorf("%s must not be negative, got %d", p.name, p.pin)
		}
		if other, dup := seen[p.pin]; dup {
			return fmt.Errorf("%s and %s both use line %d", other, p.name, p.pin)
		}
		seen[p.pin] = p.name
	}

	if c.MQTT.Broker != "" && c.MQTT.ClientID == "" {
		return errors.New("mqtt.client_id must be set when mqtt.broker is")
	}
	return nil
}

// BindFlags registers one flag per setting on fs. Flag defaults mirror
// Default so --help shows them; only flags the user sets override the file.
func BindFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("mode", d.Mode, "sequencer mode: crossing or traffic")
	fs.String("chip", d.Chip, "GPIO character device")
	fs.Int("pin-button", d.Pins.Button, "line offset of the crossing button (pull-up, active low)")
	fs.Int("pin-first", d.Pins.First, "line offset of the first output")
	fs.Int("pin-second", d.Pins.Second, "line offset of the second output")
	fs.Int("pin-third", d.Pins.Third, "line offset of the third output")
	fs.Duration("poll", d.Timing.Poll(), "button polling interval")
	fs.Duration("debounce", d.Timing.Debounce(), "minimum spacing between accepted presses")
	fs.Duration("step", d.Timing.Step(), "crossing step duration and traffic light period")
	fs.Duration("restart", d.Timing.Restart(), "delay before a queued crossing restart")
	fs.Duration("heartbeat", d.Timing.Heartbeat(), "heartbeat interval (0 to disable)")
	fs.Duration("status", d.Timing.Status(), "status log interval (0 to disable)")
	fs.String("broker", d.MQTT.Broker, "MQTT broker address (empty to disable)")
	fs.String("client-id", d.MQTT.ClientID, "MQTT client id")
	fs.String("http", d.HTTP.Addr, "HTTP status address (empty to disable)")
}

// ApplyFlags copies every flag the user set on fs into cfg.
// Flags not registered by BindFlags are ignored.
func ApplyFlags(cfg *Config, fs *pflag.FlagSet) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err == nil {
			err = applyFlag(cfg, fs, f.Name)
		}
	})
	return err
}

func applyFlag(cfg *Config, fs *pflag.FlagSet, name string) error {
	var err error
	switch name {
	case "mode":
		cfg.Mode, err = fs.GetString(name)
	case "chip":
		cfg.Chip, err = fs.GetString(name)
	case "pin-button":
		cfg.Pins.Button, err = fs.GetInt(name)
	case "pin-first":
		cfg.Pins.First, err = fs.GetInt(name)
	case "pin-second":
		cfg.Pins.Second, err = fs.GetInt(name)
	case "pin-third":
		cfg.Pins.Third, err = fs.GetInt(name)
	case "poll":
		cfg.Timing.PollMs, err = getMs(fs, name)
	case "debounce":
		cfg.Timing.DebounceMs, err = getMs(fs, name)
	case "step":
		cfg.Timing.StepMs, err = getMs(fs, name)
	case "restart":
		cfg.Timing.RestartMs, err = getMs(fs, name)
	case "heartbeat":
		cfg.Timing.HeartbeatMs, err = getMs(fs, name)
	case "status":
		cfg.Timing.StatusMs, err = getMs(fs, name)
	case "broker":
		cfg.MQTT.Broker, err = fs.GetString(name)
	case "client-id":
		cfg.MQTT.ClientID, err = fs.GetString(name)
	case "http":
		cfg.HTTP.Addr, err = fs.GetString(name)
	}
	if err != nil {
		return fmt.Errorf("flag --%s: %w", name, err)
	}
	return nil
}

// getMs reads a duration flag as whole milliseconds, the resolution of the
// timing settings.
func getMs(fs *pflag.FlagSet, name string) (int64, error) {
	d, err := fs.GetDuration(name)
	if err != nil {
		return 0, err
	}
	if d%time.Millisecond != 0 {
		return 0, fmt.Errorf("%v is not a whole number of milliseconds", d)
	}
	return d.Milliseconds(), nil
}
