// Package proto implements the one-letter wire grammar of the command
// channel: an opcode byte, optional comma-separated decimal arguments,
// newline-terminated response lines.
package proto

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/openmuon/mumasp/internal/logic/axis"
)

// Status is a wire-level response code. Failures are plain negative
// integers on the wire; there are no partial responses.
type Status int

const (
	StatusOK      Status = 0
	StatusNoArg   Status = -1 // required argument bytes not available
	StatusBadArg  Status = -2 // argument bytes present but unparsable
	StatusInvalid Status = -3 // arguments out of range, or hardware failure
)

// Argument length limits, counted after the opcode byte.
const (
	maxMoveArgLen     = 10
	maxSetClockArgLen = 29
)

// ErrUnknownOpcode marks a request whose opcode is not in the command
// table. The connection is closed without any response.
var ErrUnknownOpcode = errors.New("unrecognized opcode")

// StatusError carries the wire code to answer a malformed request with.
type StatusError struct {
	Status Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("malformed request (code %d)", int(e.Status))
}

// Command is the closed set of protocol commands, parsed and validated
// before dispatch.
type Command interface {
	isCommand()
}

type (
	// Help requests the version line and opcode table ('?').
	Help struct{}
	// ReadAnalog requests the four 14-bit analog samples ('a').
	ReadAnalog struct{}
	// Calibrate homes one axis ('c').
	Calibrate struct{ Axis int }
	// ReadSwitches reads both end-switch states ('e').
	ReadSwitches struct{}
	// Move drives one axis to an absolute angle in step units ('m').
	Move struct{ Axis, Position int }
	// ReadClock reads the controller date-time ('r').
	ReadClock struct{}
	// SetClock sets the controller date-time ('s').
	SetClock struct{ Year, Month, Day, Hour, Minute, Second int }
	// ClearEvents resets the event buffer and alarm ('x').
	ClearEvents struct{}
	// EventCount reads the buffered event count ('n').
	EventCount struct{}
	// DrainEvents reads and clears the event buffer ('h').
	DrainEvents struct{}
)

func (Help) isCommand()         {}
func (ReadAnalog) isCommand()   {}
func (Calibrate) isCommand()    {}
func (ReadSwitches) isCommand() {}
func (Move) isCommand()         {}
func (ReadClock) isCommand()    {}
func (SetClock) isCommand()     {}
func (ClearEvents) isCommand()  {}
func (EventCount) isCommand()   {}
func (DrainEvents) isCommand()  {}

// Parse interprets exactly one request from the bytes available in a
// single poll. There is no cross-read buffering: argument bytes that
// have not arrived yet make the request malformed (StatusNoArg) rather
// than causing a wait. A slow byte-by-byte sender can therefore see
// spurious -1/-2 answers; that limitation is part of the protocol.
func Parse(buf []byte) (Command, error) {
	if len(buf) == 0 {
		return nil, ErrUnknownOpcode
	}
	op := buf[0]
	args := argBlock(buf[1:])

	switch op {
	case '?':
		return Help{}, nil
	case 'a':
		return ReadAnalog{}, nil
	case 'c':
		return parseCalibrate(args)
	case 'e':
		return ReadSwitches{}, nil
	case 'm':
		return parseMove(args)
	case 'r':
		return ReadClock{}, nil
	case 's':
		return parseSetClock(args)
	case 'x':
		return ClearEvents{}, nil
	case 'n':
		return EventCount{}, nil
	case 'h':
		return DrainEvents{}, nil
	}
	return nil, ErrUnknownOpcode
}

// argBlock cuts the argument bytes at the first CR or LF.
func argBlock(rest []byte) string {
	for i, b := range rest {
		if b == '\r' || b == '\n' {
			return string(rest[:i])
		}
	}
	return string(rest)
}

func parseCalibrate(args string) (Command, error) {
	if len(args) == 0 {
		return nil, &StatusError{StatusNoArg}
	}
	// Only the first byte is the axis selector.
	switch args[0] {
	case '0':
		return Calibrate{Axis: 0}, nil
	case '1':
		return Calibrate{Axis: 1}, nil
	}
	return nil, &StatusError{StatusBadArg}
}

func parseMove(args string) (Command, error) {
	if len(args) == 0 || len(args) > maxMoveArgLen {
		return nil, &StatusError{StatusNoArg}
	}
	fields, err := splitInts(args, 2)
	if err != nil {
		return nil, &StatusError{StatusBadArg}
	}
	ax, pos := fields[0], fields[1]
	if ax != 0 && ax != 1 {
		return nil, &StatusError{StatusInvalid}
	}
	if pos < 0 || pos >= axis.StepsPerTurn {
		return nil, &StatusError{StatusInvalid}
	}
	return Move{Axis: ax, Position: pos}, nil
}

func parseSetClock(args string) (Command, error) {
	if len(args) == 0 || len(args) > maxSetClockArgLen {
		return nil, &StatusError{StatusNoArg}
	}
	fields, err := splitInts(args, 6)
	if err != nil {
		return nil, &StatusError{StatusBadArg}
	}
	return SetClock{
		Year:   fields[0],
		Month:  fields[1],
		Day:    fields[2],
		Hour:   fields[3],
		Minute: fields[4],
		Second: fields[5],
	}, nil
}

func splitInts(s string, n int) ([]int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("want %d fields, got %d", n, len(parts))
	}
	out := make([]int, n)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
