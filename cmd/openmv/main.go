package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/kevmo314/go-openmv"
	"github.com/kevmo314/go-openmv/pkg/config"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "openmv.yaml", "path to the config file")
	stop := flag.Bool("stop", false, "stop the running script")
	reset := flag.Bool("reset", false, "reset the camera")
	boot := flag.Bool("boot", false, "reboot into the bootloader")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: openmv [flags] [script.py]")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	logrus.SetLevel(cfg.LogLevel())
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	dev, err := openmv.Open(cfg.DeviceOptions(logrus.StandardLogger())...)
	if err != nil {
		logrus.Fatalf("Failed to open device: %v", err)
	}
	defer dev.Close()

	switch {
	case *reset:
		if err := dev.Reset(ctx); err != nil {
			logrus.Fatalf("Reset failed: %v", err)
		}
		logrus.Info("Camera reset")
	case *boot:
		if err := dev.EnterBootloader(ctx); err != nil {
			logrus.Fatalf("Bootloader request failed: %v", err)
		}
		logrus.Info("Camera is in the bootloader")
	case *stop:
		if err := dev.StopScript(ctx); err != nil {
			logrus.Fatalf("Stop failed: %v", err)
		}
		logrus.Info("Script stopped")
	case flag.NArg() == 1:
		script, err := os.ReadFile(flag.Arg(0))
		if err != nil {
			logrus.Fatalf("Failed to read script: %v", err)
		}
		if err := dev.ExecScript(ctx, script); err != nil {
			logrus.Fatalf("Exec failed: %v", err)
		}
		logrus.Infof("Running %s (%d bytes)", flag.Arg(0), len(script))
	default:
		flag.Usage()
		os.Exit(2)
	}
}
