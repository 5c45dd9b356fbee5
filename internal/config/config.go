// Package config loads the daemon configuration from YAML and validates it.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/hall-direction/internal/gpio"
)

// Config is the full daemon configuration.
type Config struct {
	Sensors  Sensors  `yaml:"sensors"`
	Sampling Sampling `yaml:"sampling"`
	Server   Server   `yaml:"server"`
	MQTT     MQTT     `yaml:"mqtt"`
	Logging  Logging  `yaml:"logging"`
}

// Sensors selects the GPIO lines for the two hall sensors. ActiveLow
// (default true) means a sensor pulls its line low while a magnet is
// present; set it false for push-pull sensors that drive the line high.
type Sensors struct {
	Chip      string `yaml:"chip" validate:"required"`
	LeftPin   int    `yaml:"left_pin" validate:"gte=0,nefield=RightPin"`
	RightPin  int    `yaml:"right_pin" validate:"gte=0"`
	ActiveLow bool   `yaml:"active_low"`
}

// Sampling controls the polling loop.
type Sampling struct {
	Poll     time.Duration `yaml:"poll" validate:"gt=0"`
	Debounce time.Duration `yaml:"debounce" validate:"gte=0"`
}

// Server configures the websocket/HTTP listener. An empty Addr disables it.
type Server struct {
	Addr         string        `yaml:"addr" validate:"omitempty,hostname_port|startswith=:"`
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"gt=0"`
	QueueSize    int           `yaml:"queue_size" validate:"gte=1,lte=1024"`
}

// MQTT configures the optional event mirror. An empty Broker disables it.
type MQTT struct {
	Broker    string        `yaml:"broker" validate:"omitempty,url"`
	ClientID  string        `yaml:"client_id" validate:"required"`
	Heartbeat time.Duration `yaml:"heartbeat" validate:"gte=0"`
}

// Logging configures the slog handler.
type Logging struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Sensors: Sensors{
			Chip:      gpio.DefaultChip,
			LeftPin:   gpio.DefaultPinLeft,
			RightPin:  gpio.DefaultPinRight,
			ActiveLow: gpio.DefaultActiveLow,
		},
		Sampling: Sampling{
			Poll:     50 * time.Millisecond,
			Debounce: 100 * time.Millisecond,
		},
		Server: Server{
			Addr:         ":8080",
			WriteTimeout: 2 * time.Second,
			QueueSize:    16,
		},
		MQTT: MQTT{
			ClientID:  "hall-direction",
			Heartbeat: 15 * time.Minute,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML file at path over the defaults and validates the
// result. An empty path yields the validated defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := Parse(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML into cfg. Fields absent from data keep their current
// values. Unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field constraint and reports all violations at once.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
