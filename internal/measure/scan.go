package measure

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/openmuon/mumasp/internal/buildinfo"
	"github.com/openmuon/mumasp/internal/client"
)

// ScanOptions extends Options with scan-level behavior.
type ScanOptions struct {
	Options

	// SkipExisting skips pointings whose output file already exists,
	// so an interrupted scan can be resumed into the same directory.
	SkipExisting bool
}

// fileInfo is the JSON header line of one measurement file.
type fileInfo struct {
	ThetaDeg  float64 `json:"theta_deg"`
	PhiDeg    float64 `json:"phi_deg"`
	NTriggers int     `json:"n_triggers"`
	TStartS   int64   `json:"t_start_s"`
	TElapsedS float64 `json:"t_elapsed_s"`
	Version   string  `json:"version"`
}

// Scan measures every pointing in positions and writes one file per
// pointing into saveDir: a JSON info line followed by one Unix
// timestamp per line. saveDir must not exist yet unless SkipExisting
// resumes into it. A scan log is written alongside the data.
func Scan(ctx context.Context, c Controller, positions []client.Position, saveDir string, opts ScanOptions, log zerolog.Logger) error {
	if _, err := os.Stat(saveDir); err == nil {
		if !opts.SkipExisting {
			return fmt.Errorf("output directory %q already exists; choose a different one or delete it to continue", saveDir)
		}
	} else if err := os.MkdirAll(saveDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	logFile, err := os.OpenFile(filepath.Join(saveDir, "mumasp.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open scan log: %w", err)
	}
	defer logFile.Close()
	scanLog := log.Output(zerolog.MultiLevelWriter(zerolog.ConsoleWriter{Out: os.Stderr}, logFile))

	n := len(positions)
	for k, pos := range positions {
		outPath := filepath.Join(saveDir, fmt.Sprintf("meas_t%.2f_p%.2f.txt", pos.Theta, pos.Phi))
		if opts.SkipExisting {
			if _, err := os.Stat(outPath); err == nil {
				scanLog.Info().Int("k", k).Int("n", n).
					Float64("theta", pos.Theta).Float64("phi", pos.Phi).
					Msg("skipped pointing, output file exists")
				continue
			}
		}

		scanLog.Info().Int("k", k).Int("n", n).
			Float64("theta", pos.Theta).Float64("phi", pos.Phi).
			Msg("starting measurement")

		if err := c.MoveTo(ctx, pos.Theta, pos.Phi); err != nil {
			return err
		}

		res, err := Measure(ctx, c, opts.Options, scanLog)
		if err != nil {
			return err
		}

		if err := writeResult(outPath, pos, res); err != nil {
			return err
		}
		scanLog.Info().Str("path", outPath).Int("triggers", len(res.Timestamps)).Msg("measurement written")
	}

	return nil
}

func writeResult(path string, pos client.Position, res Result) error {
	info, err := json.Marshal(fileInfo{
		ThetaDeg:  pos.Theta,
		PhiDeg:    pos.Phi,
		NTriggers: len(res.Timestamps),
		TStartS:   res.Start.Unix(),
		TElapsedS: res.Elapsed.Seconds(),
		Version:   buildinfo.Version(),
	})
	if err != nil {
		return err
	}

	var b strings.Builder
	b.Write(info)
	b.WriteByte('\n')
	for _, ts := range res.Timestamps {
		b.WriteString(strconv.FormatInt(ts, 10))
		b.WriteByte('\n')
	}

	return os.WriteFile(path, []byte(b.String()), 0o644)
}
