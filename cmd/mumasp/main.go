package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openmuon/mumasp/internal/buildinfo"
	"github.com/openmuon/mumasp/internal/client"
	"github.com/openmuon/mumasp/internal/logging"
	"github.com/openmuon/mumasp/internal/measure"
)

func main() {
	var (
		addr     string
		timeout  time.Duration
		logLevel string
	)

	var tel *client.Telescope

	root := &cobra.Command{
		Use:     "mumasp",
		Short:   "Operate the MuMaSP muon telescope from the host",
		Version: buildinfo.Version(),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			tel = client.New(addr, timeout, logging.New(logLevel))
		},
	}
	root.PersistentFlags().StringVar(&addr, "addr", client.DefaultAddr, "controller address")
	root.PersistentFlags().DurationVar(&timeout, "timeout", client.DefaultTimeout, "per-command timeout")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level")

	root.AddCommand(
		infoCmd(&tel),
		calibrateCmd(&tel),
		moveCmd(&tel),
		countCmd(&tel),
		readCmd(&tel),
		clearCmd(&tel),
		dateCmd(&tel),
		analogCmd(&tel),
		switchesCmd(&tel),
		measureCmd(&tel),
		scanCmd(&tel),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func infoCmd(tel **client.Telescope) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print the controller's version and command table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			help, err := (*tel).Help(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(help)
			return nil
		},
	}
}

func calibrateCmd(tel **client.Telescope) *cobra.Command {
	return &cobra.Command{
		Use:   "calibrate",
		Short: "Home both axes against their end switches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return (*tel).Calibrate(cmd.Context())
		},
	}
}

func moveCmd(tel **client.Telescope) *cobra.Command {
	var theta, phi float64
	var calibrate bool
	cmd := &cobra.Command{
		Use:   "move",
		Short: "Point the frame at theta/phi (degrees)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if calibrate {
				if err := (*tel).Calibrate(cmd.Context()); err != nil {
					return err
				}
			} else {
				(*tel).AssumeCalibrated()
			}
			return (*tel).MoveTo(cmd.Context(), theta, phi)
		},
	}
	cmd.Flags().Float64Var(&theta, "theta", 0, "azimuthal angle in degrees")
	cmd.Flags().Float64Var(&phi, "phi", 0, "polar angle in degrees")
	cmd.Flags().BoolVar(&calibrate, "calibrate", false, "run a calibration before moving")
	return cmd
}

func countCmd(tel **client.Telescope) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of buffered muon events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := (*tel).EventCount(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		},
	}
}

func readCmd(tel **client.Telescope) *cobra.Command {
	return &cobra.Command{
		Use:   "read",
		Short: "Drain the muon event buffer and print the timestamps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			timestamps, err := (*tel).ReadBuffer(cmd.Context())
			if err != nil {
				return err
			}
			for _, ts := range timestamps {
				fmt.Println(ts)
			}
			return nil
		},
	}
}

func clearCmd(tel **client.Telescope) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the muon event buffer and the alarm",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return (*tel).ClearBuffer(cmd.Context())
		},
	}
}

func dateCmd(tel **client.Telescope) *cobra.Command {
	var set string
	var now bool
	cmd := &cobra.Command{
		Use:   "date",
		Short: "Read or set the controller clock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case now:
				return (*tel).SetDate(cmd.Context(), time.Now())
			case set != "":
				t, err := time.ParseInLocation("2006-01-02 15:04:05", set, time.Local)
				if err != nil {
					return fmt.Errorf("parse --set value: %w", err)
				}
				return (*tel).SetDate(cmd.Context(), t)
			default:
				t, err := (*tel).Date(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Println(t.Format("2006-01-02 15:04:05"))
				return nil
			}
		},
	}
	cmd.Flags().StringVar(&set, "set", "", `set the clock to "YYYY-MM-DD HH:MM:SS"`)
	cmd.Flags().BoolVar(&now, "now", false, "set the clock to the host's current time")
	return cmd
}

func analogCmd(tel **client.Telescope) *cobra.Command {
	return &cobra.Command{
		Use:   "analog",
		Short: "Print the four analog front-end samples",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			samples, err := (*tel).ReadAnalog(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("%d,%d,%d,%d\n", samples[0], samples[1], samples[2], samples[3])
			return nil
		},
	}
}

func switchesCmd(tel **client.Telescope) *cobra.Command {
	return &cobra.Command{
		Use:   "switches",
		Short: "Print both end-switch states",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			states, err := (*tel).ReadSwitches(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("A=%v B=%v\n", states[0], states[1])
			return nil
		},
	}
}

func measureFlags(cmd *cobra.Command, opts *measure.Options) {
	cmd.Flags().DurationVar(&opts.MaxDuration, "max-duration", time.Hour, "stop after this long")
	cmd.Flags().IntVar(&opts.MaxTriggers, "max-triggers", 10000, "stop after this many triggers")
	cmd.Flags().DurationVar(&opts.ReadInterval, "read-interval", 10*time.Second, "buffer poll period")
	cmd.Flags().IntVar(&opts.ReadThreshold, "read-threshold", 100, "drain the buffer at this level")
}

func measureCmd(tel **client.Telescope) *cobra.Command {
	var opts measure.Options
	cmd := &cobra.Command{
		Use:   "measure",
		Short: "Count muons at the current pointing and print the timestamps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := measure.Measure(cmd.Context(), *tel, opts, logging.New("info"))
			if err != nil {
				return err
			}
			for _, ts := range res.Timestamps {
				fmt.Println(ts)
			}
			return nil
		},
	}
	measureFlags(cmd, &opts)
	return cmd
}

func scanCmd(tel **client.Telescope) *cobra.Command {
	var opts measure.ScanOptions
	var thetas, phis string
	var dir string
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Raster-scan a theta/phi grid, one measurement file per pointing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			thetaVals, err := parseFloats(thetas)
			if err != nil {
				return fmt.Errorf("parse --thetas: %w", err)
			}
			phiVals, err := parseFloats(phis)
			if err != nil {
				return fmt.Errorf("parse --phis: %w", err)
			}

			if err := (*tel).Calibrate(cmd.Context()); err != nil {
				return err
			}
			positions := measure.Raster(thetaVals, phiVals)
			return measure.Scan(cmd.Context(), *tel, positions, dir, opts, logging.New("info"))
		},
	}
	cmd.Flags().StringVar(&thetas, "thetas", "", "comma-separated theta values in degrees")
	cmd.Flags().StringVar(&phis, "phis", "", "comma-separated phi values in degrees")
	cmd.Flags().StringVar(&dir, "dir", "", "output directory (must not exist)")
	cmd.Flags().BoolVar(&opts.SkipExisting, "skip-existing", false, "resume into an existing directory")
	measureFlags(cmd, &opts.Options)
	_ = cmd.MarkFlagRequired("thetas")
	_ = cmd.MarkFlagRequired("phis")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}

func parseFloats(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
