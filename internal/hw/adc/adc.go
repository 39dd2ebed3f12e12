package adc

// Channels is the number of analog inputs exposed by the front-end
// board (scintillator HV monitors and PMT levels).
const Channels = 4

// SampleMax is the full-scale value of one 14-bit sample.
const SampleMax = 1<<14 - 1

// Reader samples the four analog front-end channels.
type Reader interface {
	Sample() ([Channels]uint16, error)
}

// MockReader returns fixed values, for development off the hardware.
type MockReader struct {
	Values [Channels]uint16
}

func (m *MockReader) Sample() ([Channels]uint16, error) {
	return m.Values, nil
}
