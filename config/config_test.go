package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatal("default config does not validate:", err)
	}

	if cfg.Watchdog.PollInterval() != 10*time.Second {
		t.Error("unexpected poll interval:", cfg.Watchdog.PollInterval())
	}
	if cfg.Watchdog.GracePeriod() != 60*time.Second {
		t.Error("unexpected grace period:", cfg.Watchdog.GracePeriod())
	}
	if cfg.Display.Viewers["png"] == "" {
		t.Error("default config has no png viewer")
	}
}

func TestLoad(t *testing.T) {
	write := func(t *testing.T, body string) string {
		t.Helper()

		path := filepath.Join(t.TempDir(), "kioskd.toml")
		if err := os.WriteFile(path, []byte(body), 0600); err != nil {
			t.Fatal("failed to write config:", err)
		}
		return path
	}

	t.Run("overlays defaults", func(t *testing.T) {
		path := write(t, `
drop_dir = "/srv/drop"

[watchdog]
reboot_policy = "ssh"
grace_seconds = 30

[gpio]
bind = "0.0.0.0:8088"

[[gpio.pins]]
number = 17
direction = "out"
label = "relay"
`)

		cfg, err := Load(path)
		if err != nil {
			t.Fatal("failed to load:", err)
		}

		if cfg.DropDir != "/srv/drop" {
			t.Error("drop_dir not overridden:", cfg.DropDir)
		}
		if cfg.Watchdog.RebootPolicy != "ssh" {
			t.Error("reboot_policy not overridden:", cfg.Watchdog.RebootPolicy)
		}
		if cfg.Watchdog.GracePeriod() != 30*time.Second {
			t.Error("grace_seconds not overridden:", cfg.Watchdog.GraceSeconds)
		}
		// Untouched keys keep their defaults.
		if cfg.Watchdog.PollSeconds != 10 {
			t.Error("poll_seconds default lost:", cfg.Watchdog.PollSeconds)
		}
		if len(cfg.GPIO.Pins) != 1 || cfg.GPIO.Pins[0].Number != 17 {
			t.Errorf("pins not loaded: %#v", cfg.GPIO.Pins)
		}
	})

	t.Run("rejects unknown policy", func(t *testing.T) {
		path := write(t, `
[watchdog]
reboot_policy = "sometimes"
`)

		if _, err := Load(path); err == nil {
			t.Fatal("expected a validation error")
		}
	})

	t.Run("rejects bad pin direction", func(t *testing.T) {
		path := write(t, `
[[gpio.pins]]
number = 4
direction = "sideways"
`)

		if _, err := Load(path); err == nil {
			t.Fatal("expected a validation error")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Fatal("expected an error for a missing file")
		}
	})
}
