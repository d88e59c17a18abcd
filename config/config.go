// Package config loads the kioskd TOML configuration.
package config

import (
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// Config is the daemon configuration.
type Config struct {
	// DropDir is the directory watched for displayable files.
	DropDir string `toml:"drop_dir"`
	// Journal is the path of the flock-guarded device log.
	Journal string `toml:"journal"`

	Display  Display  `toml:"display"`
	GPIO     GPIO     `toml:"gpio"`
	Watchdog Watchdog `toml:"watchdog"`
}

// Display configures the display server.
type Display struct {
	// InitCommands run through the timeout watchdog before the first file
	// can be shown (DPMS off, cursor hide and the like).
	InitCommands []string `toml:"init_commands"`
	// Viewers maps a lowercase file extension (without the dot) to the
	// viewer command. A {file} placeholder is replaced with the quoted path;
	// without one, the path is appended.
	Viewers map[string]string `toml:"viewers"`
}

// GPIO configures the web control panel.
type GPIO struct {
	Bind string `toml:"bind"`
	Pins []Pin  `toml:"pins"`
}

// Pin describes one exposed GPIO pin.
type Pin struct {
	Number    int    `toml:"number"`
	Direction string `toml:"direction"` // "in" or "out"
	Label     string `toml:"label"`
}

// Watchdog configures the supervision core.
type Watchdog struct {
	// RebootPolicy is one of "any", "ssh" or "none": which logged-in users
	// defer a pending reboot.
	RebootPolicy string `toml:"reboot_policy"`
	// PollSeconds is the interval between blocking-user polls while a
	// reboot is deferred.
	PollSeconds int `toml:"poll_seconds"`
	// GraceSeconds is the last-chance window before the reboot command.
	GraceSeconds int `toml:"grace_seconds"`
	// CommandTimeoutSeconds is the default deadline for timed commands.
	CommandTimeoutSeconds int `toml:"command_timeout"`
	// RebootCommand is the privileged reboot invocation.
	RebootCommand string `toml:"reboot_command"`
}

// Default returns a runnable configuration.
func Default() Config {
	return Config{
		DropDir: "/var/lib/kioskd/drop",
		Journal: "/var/lib/kioskd/journal.json",
		Display: Display{
			InitCommands: nil,
			Viewers: map[string]string{
				"png":  "feh -F {file}",
				"jpg":  "feh -F {file}",
				"jpeg": "feh -F {file}",
				"gif":  "feh -F {file}",
				"pdf":  "xpdf -fullscreen {file}",
				"mp4":  "mpv --fs --loop {file}",
				"webm": "mpv --fs --loop {file}",
				"html": "surf -F {file}",
			},
		},
		GPIO: GPIO{
			Bind: "127.0.0.1:8088",
		},
		Watchdog: Watchdog{
			RebootPolicy:          "any",
			PollSeconds:           10,
			GraceSeconds:          60,
			CommandTimeoutSeconds: 60,
			RebootCommand:         "sudo reboot",
		},
	}
}

// Load reads the TOML file at path over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "failed to read config")
	}

	if err := toml.Unmarshal(b, &cfg); err != nil {
		return cfg, errors.Wrap(err, "failed to parse config")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks the fields that would otherwise fail deep inside the
// daemon.
func (cfg Config) Validate() error {
	switch cfg.Watchdog.RebootPolicy {
	case "any", "ssh", "none":
	default:
		return errors.Errorf("unknown reboot_policy %q", cfg.Watchdog.RebootPolicy)
	}

	for _, pin := range cfg.GPIO.Pins {
		if pin.Direction != "in" && pin.Direction != "out" {
			return errors.Errorf("pin %d: unknown direction %q", pin.Number, pin.Direction)
		}
	}

	for ext, command := range cfg.Display.Viewers {
		if command == "" {
			return errors.Errorf("viewer for %q has an empty command", ext)
		}
	}

	return nil
}

// PollInterval returns the watch-loop poll interval as a duration.
func (w Watchdog) PollInterval() time.Duration {
	return time.Duration(w.PollSeconds) * time.Second
}

// GracePeriod returns the pre-reboot grace window as a duration.
func (w Watchdog) GracePeriod() time.Duration {
	return time.Duration(w.GraceSeconds) * time.Second
}

// CommandTimeout returns the timed-command deadline as a duration.
func (w Watchdog) CommandTimeout() time.Duration {
	return time.Duration(w.CommandTimeoutSeconds) * time.Second
}
