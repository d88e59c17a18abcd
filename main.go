package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"

	"kioskd/config"
	"kioskd/display"
	"kioskd/gpio"
	"kioskd/sessions"
	"kioskd/supervisor"
	"kioskd/supervisor/journal"
)

var configFile string

func init() {
	flag.StringVar(&configFile, "c", "", "config file path (TOML); defaults apply without one")
	flag.Usage = func() {
		f := func(f string, v ...interface{}) {
			fmt.Fprintf(flag.CommandLine.Output(), f, v...)
		}

		f("Usage:\n")
		f("  %s [-c <config>] [|systemd]\n", filepath.Base(os.Args[0]))
		f("\n")
		f("Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()
}

func main() {
	var err error
	switch flag.Arg(0) {
	case "systemd":
		err = systemd()
	case "":
		err = start()
	default:
		log.Fatalf("unknown subcommand %q\n", flag.Arg(0))
	}

	if err != nil {
		log.Fatalln(err)
	}
}

// systemd prints a unit file pointing at the current binary.
func systemd() error {
	exe, err := os.Executable()
	if err != nil {
		return errors.Wrap(err, "failed to locate binary")
	}

	args := ""
	if configFile != "" {
		args = " -c " + configFile
	}

	fmt.Printf(`[Unit]
Description=kioskd display and GPIO daemon
After=network.target

[Service]
ExecStart=%s%s
Restart=always

[Install]
WantedBy=multi-user.target
`, exe, args)

	return nil
}

func start() error {
	cfg := config.Default()
	if configFile != "" {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return err
		}
	}

	j, err := journal.NewFileLockJournaler(cfg.Journal)
	if err != nil {
		if errors.Is(err, journal.ErrLockedElsewhere) {
			// Non-fatal error.
			log.Println("kioskd is already running")
			return nil
		}

		return errors.Wrap(err, "failed to acquire journal lock")
	}
	defer j.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Every escalation message must reach the device log, the boot console
	// and standard output, even if one of them is broken.
	sinks := journal.MultiWriter(
		j,
		journal.NewConsoleWriter(os.Stderr),
		journal.NewHumanWriter("stdout", os.Stdout),
	)

	sinks.Write(&supervisor.EventAcquired{})

	sup := supervisor.New(ctx, sinks)
	sup.Policy = supervisor.BlockingPolicy(cfg.Watchdog.RebootPolicy)
	sup.PollInterval = cfg.Watchdog.PollInterval()
	sup.GracePeriod = cfg.Watchdog.GracePeriod()
	sup.RebootCommand = cfg.Watchdog.RebootCommand
	sup.Users = &sessions.Who{Runner: sup}

	if err := sup.Start(); err != nil {
		return errors.Wrap(err, "failed to start supervisor")
	}
	defer sup.TerminateAll()

	if err := os.MkdirAll(cfg.DropDir, 0755); err != nil {
		return errors.Wrap(err, "failed to create drop dir")
	}

	ds := display.NewServer(sup, sinks, cfg.DropDir, cfg.Display.Viewers, cfg.Display.InitCommands)
	ds.InitTimeout = cfg.Watchdog.CommandTimeout()

	if err := ds.Init(); err != nil {
		return err
	}
	if err := ds.Start(ctx); err != nil {
		return err
	}

	pins := make([]gpio.Pin, len(cfg.GPIO.Pins))
	for i, pin := range cfg.GPIO.Pins {
		pins[i] = gpio.Pin{Number: pin.Number, Direction: pin.Direction, Label: pin.Label}
	}

	bank := gpio.NewBank(gpio.SysfsRoot, sinks, pins)
	if len(pins) > 0 {
		if err := bank.Setup(); err != nil {
			return err
		}
	}

	gs := gpio.NewServer(bank, sinks)
	go func() {
		if err := gs.ListenAndServe(ctx, cfg.GPIO.Bind); err != nil {
			sinks.Write(&supervisor.EventWarning{
				Component: "gpio",
				Error:     err.Error(),
			})
		}
	}()

	<-ctx.Done()
	return nil
}
