package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Mavwarf/stillness/internal/paths"
)

const (
	// DefaultVolume is the default playback volume (0-100).
	DefaultVolume = 100
	// DefaultSampleRate is the default output and synthesis rate.
	DefaultSampleRate = 44100
	// DefaultAutoResetSeconds is how long "complete" stays on screen.
	DefaultAutoResetSeconds = 10
	// DefaultFrameRate is the terminal and server render cadence.
	DefaultFrameRate = 30
	// DefaultPort matches the port mobile home-screen shortcuts were saved with.
	DefaultPort = 8443
	// DefaultTopic is the MQTT topic prefix.
	DefaultTopic = "stillness"
	// DefaultMessage is the hook message template.
	DefaultMessage = "{event} {phase} {remaining}"
)

// Audio backends.
const (
	BackendPrerendered = "prerendered"
	BackendScheduled   = "scheduled"
	BackendSilent      = "silent"
)

// History storage kinds.
const (
	StorageSQLite = "sqlite"
	StorageFile   = "file"
	StorageNone   = "none"
)

// MQTT holds broker settings for session event publishing. Publishing is
// off while Broker is empty.
type MQTT struct {
	Broker   string `json:"broker,omitempty" yaml:"broker,omitempty"`
	ClientID string `json:"client_id,omitempty" yaml:"client_id,omitempty"`
	Topic    string `json:"topic,omitempty" yaml:"topic,omitempty"`
	QoS      int    `json:"qos,omitempty" yaml:"qos,omitempty"`
	Retain   bool   `json:"retain,omitempty" yaml:"retain,omitempty"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	Message  string `json:"message,omitempty" yaml:"message,omitempty"`
}

// Webhook holds the endpoint session events are POSTed to. Off while URL
// is empty.
type Webhook struct {
	URL     string            `json:"url,omitempty" yaml:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Message string            `json:"message,omitempty" yaml:"message,omitempty"`
	// Format selects the payload shape: "" (plain text), "json",
	// "discord" or "slack".
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// Server holds the web front-end settings.
type Server struct {
	Port int    `json:"port,omitempty" yaml:"port,omitempty"`
	TLS  bool   `json:"tls" yaml:"tls"`
	Bind string `json:"bind,omitempty" yaml:"bind,omitempty"`
}

// Config holds the application configuration.
type Config struct {
	Volume           int     `json:"volume" yaml:"volume"`
	Backend          string  `json:"backend,omitempty" yaml:"backend,omitempty"`
	SampleRate       int     `json:"sample_rate,omitempty" yaml:"sample_rate,omitempty"`
	BellFile         string  `json:"bell_file,omitempty" yaml:"bell_file,omitempty"`
	WaitForTail      bool    `json:"wait_for_tail" yaml:"wait_for_tail"`
	AutoResetSeconds int     `json:"auto_reset_seconds,omitempty" yaml:"auto_reset_seconds,omitempty"`
	FrameRate        int     `json:"frame_rate,omitempty" yaml:"frame_rate,omitempty"`
	Storage          string  `json:"storage,omitempty" yaml:"storage,omitempty"`
	DesktopNotify    bool    `json:"desktop_notify" yaml:"desktop_notify"`
	MQTT             MQTT    `json:"mqtt,omitempty" yaml:"mqtt,omitempty"`
	Webhook          Webhook `json:"webhook,omitempty" yaml:"webhook,omitempty"`
	Server           Server  `json:"server,omitempty" yaml:"server,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Volume:           DefaultVolume,
		Backend:          BackendPrerendered,
		SampleRate:       DefaultSampleRate,
		WaitForTail:      true,
		AutoResetSeconds: DefaultAutoResetSeconds,
		FrameRate:        DefaultFrameRate,
		Storage:          StorageSQLite,
		MQTT:             MQTT{ClientID: "stillness", Topic: DefaultTopic, Message: DefaultMessage},
		Webhook:          Webhook{Message: DefaultMessage},
		Server:           Server{Port: DefaultPort, TLS: true, Bind: "0.0.0.0"},
	}
}

// UnmarshalJSON sets defaults then decodes the JSON structure.
// Go's json.Unmarshal merges into existing struct fields, so only
// values present in JSON override the defaults.
func (c *Config) UnmarshalJSON(data []byte) error {
	*c = Default()
	type Alias Config
	return json.Unmarshal(data, (*Alias)(c))
}

// Parse decodes data as YAML when name ends in .yaml or .yml, JSON
// otherwise.
func Parse(name string, data []byte) (Config, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		cfg := Default()
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
		return cfg, nil
	default:
		var cfg Config
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
		return cfg, nil
	}
}

// fileNames are tried in order in each search directory.
var fileNames = []string{
	paths.ConfigBaseName + ".json",
	paths.ConfigBaseName + ".yaml",
	paths.ConfigBaseName + ".yml",
}

// Load reads and parses a config file. It tries, in order:
//  1. explicitPath (if non-empty; it must exist)
//  2. stillness-config.{json,yaml,yml} next to the running binary
//  3. the same names in the data directory
//
// When nothing is found the defaults are returned with an empty path.
func Load(explicitPath string) (Config, string, error) {
	if explicitPath != "" {
		cfg, err := readConfig(explicitPath)
		return cfg, explicitPath, err
	}

	var dirs []string
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	dirs = append(dirs, paths.DataDir())

	for _, dir := range dirs {
		for _, name := range fileNames {
			p := filepath.Join(dir, name)
			if _, err := os.Stat(p); err == nil {
				cfg, err := readConfig(p)
				return cfg, p, err
			}
		}
	}
	return Default(), "", nil
}

func readConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := Parse(path, data)
	if err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if c.Volume < 0 || c.Volume > 100 {
		errs = append(errs, fmt.Errorf("volume %d out of range 0-100", c.Volume))
	}
	switch c.Backend {
	case BackendPrerendered, BackendScheduled, BackendSilent:
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q (want %s, %s or %s)",
			c.Backend, BackendPrerendered, BackendScheduled, BackendSilent))
	}
	if c.SampleRate < 8000 || c.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("sample_rate %d out of range 8000-192000", c.SampleRate))
	}
	switch c.Storage {
	case StorageSQLite, StorageFile, StorageNone:
	default:
		errs = append(errs, fmt.Errorf("unknown storage %q", c.Storage))
	}
	if c.AutoResetSeconds < 0 {
		errs = append(errs, fmt.Errorf("auto_reset_seconds must not be negative"))
	}
	if c.FrameRate < 1 || c.FrameRate > 240 {
		errs = append(errs, fmt.Errorf("frame_rate %d out of range 1-240", c.FrameRate))
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, fmt.Errorf("mqtt qos %d out of range 0-2", c.MQTT.QoS))
	}
	switch c.Webhook.Format {
	case "", "json", "discord", "slack":
	default:
		errs = append(errs, fmt.Errorf("unknown webhook format %q", c.Webhook.Format))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port %d out of range", c.Server.Port))
	}
	if c.BellFile != "" {
		if _, err := os.Stat(c.BellFile); err != nil {
			errs = append(errs, fmt.Errorf("bell_file: %w", err))
		}
	}
	return errors.Join(errs...)
}

// VolumeFraction returns Volume scaled to 0.0-1.0.
func (c Config) VolumeFraction() float64 {
	return float64(c.Volume) / 100
}

// TailGrace is how long completion waits after the last bell.
func (c Config) TailGrace(bell time.Duration) time.Duration {
	if c.WaitForTail {
		return bell
	}
	return 0
}

// AutoReset returns the complete → idle delay; negative disables it.
func (c Config) AutoReset() time.Duration {
	if c.AutoResetSeconds == 0 {
		return -1
	}
	return time.Duration(c.AutoResetSeconds) * time.Second
}
