package gpio

import (
	"sync"

	"github.com/rs/zerolog"
)

// Level represents the logical state of a GPIO pin.
type Level bool

const (
	Low  Level = false
	High Level = true
)

// PinMode indicates whether a GPIO is input or output.
type PinMode int

const (
	Input PinMode = iota
	Output
)

// Driver defines the abstract interface for controlling GPIOs.
// This allows plugging in a real Raspberry Pi implementation
// or a mock for development on PC.
type Driver interface {
	SetupPin(pin int, mode PinMode) error
	WritePin(pin int, level Level) error
	ReadPin(pin int) (Level, error)
	// WatchPin arms rising-edge detection on an input pin.
	WatchPin(pin int) error
	// EdgeDetected reports and clears a pending edge on a watched pin.
	EdgeDetected(pin int) (bool, error)
	Close() error
}

// NewDriver creates a GPIO driver based on the chosen mode.
// If mock is true, returns a MockDriver (for dev/test).
// If mock is false, returns a real RPiDriver (for Raspberry Pi).
func NewDriver(mock bool, log zerolog.Logger) (Driver, error) {
	if mock {
		log.Info().Msg("using mock GPIO driver (development mode)")
		return NewMockDriver(log), nil
	}
	return NewRPiDriver(log)
}

// MockDriver is an in-memory implementation with settable input levels.
// Used for development on PC and in tests.
type MockDriver struct {
	mu     sync.Mutex
	levels map[int]Level
	edges  map[int]bool
	log    zerolog.Logger
}

func NewMockDriver(log zerolog.Logger) *MockDriver {
	return &MockDriver{
		levels: make(map[int]Level),
		edges:  make(map[int]bool),
		log:    log,
	}
}

func (m *MockDriver) SetupPin(pin int, mode PinMode) error {
	m.log.Trace().Int("pin", pin).Int("mode", int(mode)).Msg("gpio setup")
	return nil
}

func (m *MockDriver) WritePin(pin int, level Level) error {
	m.mu.Lock()
	m.levels[pin] = level
	m.mu.Unlock()
	m.log.Trace().Int("pin", pin).Bool("level", bool(level)).Msg("gpio write")
	return nil
}

func (m *MockDriver) ReadPin(pin int) (Level, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.levels[pin], nil
}

func (m *MockDriver) WatchPin(pin int) error {
	m.log.Trace().Int("pin", pin).Msg("gpio watch")
	return nil
}

func (m *MockDriver) EdgeDetected(pin int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.edges[pin] {
		m.edges[pin] = false
		return true, nil
	}
	return false, nil
}

func (m *MockDriver) Close() error {
	m.log.Trace().Msg("gpio close (mock)")
	return nil
}

// SetLevel simulates an external signal on an input pin.
func (m *MockDriver) SetLevel(pin int, level Level) {
	m.mu.Lock()
	m.levels[pin] = level
	m.mu.Unlock()
}

// InjectEdge simulates a rising edge on a watched pin.
func (m *MockDriver) InjectEdge(pin int) {
	m.mu.Lock()
	m.edges[pin] = true
	m.mu.Unlock()
}
