package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/openmuon/mumasp/internal/buildinfo"
	"github.com/openmuon/mumasp/internal/config"
	"github.com/openmuon/mumasp/internal/hw/adc"
	"github.com/openmuon/mumasp/internal/hw/alarm"
	"github.com/openmuon/mumasp/internal/hw/clock"
	"github.com/openmuon/mumasp/internal/hw/endswitch"
	"github.com/openmuon/mumasp/internal/hw/gpio"
	"github.com/openmuon/mumasp/internal/hw/stepper"
	"github.com/openmuon/mumasp/internal/hw/trigger"
	"github.com/openmuon/mumasp/internal/logging"
	"github.com/openmuon/mumasp/internal/logic/axis"
	"github.com/openmuon/mumasp/internal/logic/eventlog"
	"github.com/openmuon/mumasp/internal/monitor"
	"github.com/openmuon/mumasp/internal/server"
)

func main() {
	var (
		cfgPath  string
		listen   string
		mock     bool
		logLevel string
	)

	root := &cobra.Command{
		Use:     "mumaspd",
		Short:   "Onboard controller for the MuMaSP muon telescope frame",
		Version: buildinfo.Version(),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}
			if mock {
				cfg.MockGPIO = true
				cfg.ADC.Mock = true
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			return run(cmd.Context(), cfg)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "configs/default.yaml", "path to config file")
	root.Flags().StringVar(&listen, "listen", "", "override the command endpoint address")
	root.Flags().BoolVar(&mock, "mock", false, "force mock GPIO and ADC (development off the hardware)")
	root.Flags().StringVar(&logLevel, "log-level", "", "override the log level")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	var broadcaster *monitor.StatusBroadcaster
	var log zerolog.Logger
	if cfg.Monitor != "" {
		broadcaster = monitor.NewStatusBroadcaster()
		log = logging.New(cfg.LogLevel, broadcaster.Writer())
	} else {
		log = logging.New(cfg.LogLevel)
	}
	log.Info().Str("version", buildinfo.Version()).Msg("mumaspd starting")

	gpioDriver, err := gpio.NewDriver(cfg.MockGPIO, log)
	if err != nil {
		return fmt.Errorf("init GPIO: %w", err)
	}
	defer func() {
		if err := gpioDriver.Close(); err != nil {
			log.Error().Err(err).Msg("closing GPIO driver failed")
		}
	}()

	axisA := buildAxis(axis.A, cfg.AxisA, gpioDriver, log)
	axisB := buildAxis(axis.B, cfg.AxisB, gpioDriver, log)

	events := eventlog.New(alarm.New(gpioDriver, cfg.AlarmPin))
	clk := clock.NewAdjusted()

	var analog adc.Reader
	if cfg.ADC.Mock || cfg.MockGPIO {
		analog = &adc.MockReader{}
	} else {
		spiReader, err := adc.NewSPIReader(cfg.ADC.SPISpeedHz, uint8(cfg.ADC.ChipSelect))
		if err != nil {
			return fmt.Errorf("init ADC: %w", err)
		}
		defer spiReader.Close()
		analog = spiReader
	}

	watcher, err := trigger.New(gpioDriver, cfg.TriggerPin, 0, events.OnTrigger, log)
	if err != nil {
		return fmt.Errorf("init trigger input: %w", err)
	}
	go watcher.Run(ctx)

	if cfg.Monitor != "" {
		mon := monitor.NewServer(cfg.Monitor, broadcaster)
		go func() {
			if err := mon.Run(ctx); err != nil {
				log.Error().Err(err).Msg("monitor server failed")
			}
		}()
		log.Info().Str("addr", cfg.Monitor).Msg("monitor endpoint enabled")
	}

	handler := server.NewHandler(buildinfo.Version(), axisA, axisB, events, clk, analog, log)
	srv, err := server.Listen(cfg.Listen, handler, log)
	if err != nil {
		return err
	}

	return srv.Run(ctx, events, clk)
}

func buildAxis(id axis.ID, cfg config.AxisConfig, g gpio.Driver, log zerolog.Logger) *axis.Controller {
	motor := stepper.NewStepper(g, stepper.Config{
		StepPin:   cfg.StepPin,
		DirPin:    cfg.DirPin,
		EnablePin: cfg.EnablePin,
		StepDelay: cfg.StepDelay(),
	}, log)
	sw := endswitch.New(g, cfg.SwitchPin, !cfg.SwitchHigh)
	return axis.NewController(id, motor, sw, cfg.HomeDir, log)
}
