package server

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/openmuon/mumasp/internal/hw/adc"
	"github.com/openmuon/mumasp/internal/hw/clock"
	"github.com/openmuon/mumasp/internal/logic/axis"
	"github.com/openmuon/mumasp/internal/logic/eventlog"
	"github.com/openmuon/mumasp/internal/proto"
)

// Handler dispatches parsed commands to the axis controllers, the
// event log, the clock and the analog front-end. It is the only actor
// that calls into any of them.
type Handler struct {
	version string
	axes    [2]*axis.Controller
	events  *eventlog.Log
	clock   clock.Clock
	adc     adc.Reader
	log     zerolog.Logger
}

func NewHandler(version string, axisA, axisB *axis.Controller, events *eventlog.Log, clk clock.Clock, analog adc.Reader, log zerolog.Logger) *Handler {
	return &Handler{
		version: version,
		axes:    [2]*axis.Controller{axisA, axisB},
		events:  events,
		clock:   clk,
		adc:     analog,
		log:     log,
	}
}

// Handle parses one buffered request and writes its response lines.
// Unrecognized opcodes produce no response at all.
func (h *Handler) Handle(buf []byte, w io.Writer) {
	cmd, err := proto.Parse(buf)
	if err != nil {
		var se *proto.StatusError
		if errors.As(err, &se) {
			h.log.Warn().Bytes("request", buf).Int("code", int(se.Status)).Msg("malformed request")
			h.respondStatus(w, se.Status)
			return
		}
		h.log.Warn().Bytes("request", buf).Msg("unrecognized opcode, closing without response")
		return
	}

	switch c := cmd.(type) {
	case proto.Help:
		h.handleHelp(w)
	case proto.ReadAnalog:
		h.handleReadAnalog(w)
	case proto.Calibrate:
		h.handleCalibrate(w, c)
	case proto.ReadSwitches:
		h.handleReadSwitches(w)
	case proto.Move:
		h.handleMove(w, c)
	case proto.ReadClock:
		h.handleReadClock(w)
	case proto.SetClock:
		h.handleSetClock(w, c)
	case proto.ClearEvents:
		h.events.Clear()
		h.respondStatus(w, proto.StatusOK)
	case proto.EventCount:
		fmt.Fprintf(w, "%d\n", h.events.Count())
	case proto.DrainEvents:
		h.handleDrainEvents(w)
	}
}

func (h *Handler) respondStatus(w io.Writer, st proto.Status) {
	fmt.Fprintf(w, "%d\n", int(st))
}

func (h *Handler) handleHelp(w io.Writer) {
	fmt.Fprintf(w, "MuMaSP telescope controller %s\n", h.version)
	io.WriteString(w, ""+
		"?              print this help\n"+
		"a              read the four analog inputs\n"+
		"c<axis>        calibrate axis 0 or 1 against its end switch\n"+
		"e              read both end switch states\n"+
		"m<axis>,<pos>  move axis to an angle in step units (0..12799)\n"+
		"n              number of buffered muon events\n"+
		"h              read and clear the muon event buffer\n"+
		"r              read the controller clock\n"+
		"s<Y,m,d,H,M,S> set the controller clock\n"+
		"x              clear the muon event buffer and alarm\n")
}

func (h *Handler) handleReadAnalog(w io.Writer) {
	samples, err := h.adc.Sample()
	if err != nil {
		h.log.Error().Err(err).Msg("analog sampling failed")
	}
	fmt.Fprintf(w, "%d,%d,%d,%d\n", samples[0], samples[1], samples[2], samples[3])
}

func (h *Handler) handleCalibrate(w io.Writer, c proto.Calibrate) {
	h.log.Info().Int("axis", c.Axis).Msg("calibration requested")
	if err := h.axes[c.Axis].Calibrate(); err != nil {
		h.log.Error().Err(err).Int("axis", c.Axis).Msg("calibration failed")
		h.respondStatus(w, proto.StatusInvalid)
		return
	}
	h.respondStatus(w, proto.StatusOK)
}

func (h *Handler) handleReadSwitches(w io.Writer) {
	states := [2]int{}
	for i, ax := range h.axes {
		engaged, err := ax.ReadEndSwitch()
		if err != nil {
			h.log.Error().Err(err).Int("axis", i).Msg("end switch read failed")
		}
		if engaged {
			states[i] = 1
		}
	}
	fmt.Fprintf(w, "%d,%d\n", states[0], states[1])
}

func (h *Handler) handleMove(w io.Writer, c proto.Move) {
	if err := h.axes[c.Axis].MoveTo(c.Position); err != nil {
		h.log.Error().Err(err).Int("axis", c.Axis).Int("position", c.Position).Msg("move failed")
		h.respondStatus(w, proto.StatusInvalid)
		return
	}
	h.respondStatus(w, proto.StatusOK)
}

func (h *Handler) handleReadClock(w io.Writer) {
	t := h.clock.Now()
	fmt.Fprintf(w, "%d,%d,%d,%d,%d,%d\n",
		t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
}

func (h *Handler) handleSetClock(w io.Writer, c proto.SetClock) {
	t := time.Date(c.Year, time.Month(c.Month), c.Day, c.Hour, c.Minute, c.Second, 0, time.Local)
	if err := h.clock.Set(t); err != nil {
		h.log.Error().Err(err).Time("to", t).Msg("setting clock failed")
		h.respondStatus(w, proto.StatusInvalid)
		return
	}
	h.log.Info().Time("to", t).Msg("clock set")
	h.respondStatus(w, proto.StatusOK)
}

func (h *Handler) handleDrainEvents(w io.Writer) {
	timestamps := h.events.Drain()
	fmt.Fprintf(w, "%d\n", len(timestamps))
	for _, ts := range timestamps {
		fmt.Fprintf(w, "%d\n", ts)
	}
}
