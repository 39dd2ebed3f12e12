package adc

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"
)

// SPIReader samples an MCP3464 4-channel 14-bit converter on SPI0.
// The GPIO memory map must already be open (the gpio driver does that).
type SPIReader struct {
	speedHz int
	cs      uint8
}

// NewSPIReader claims SPI0 and configures bus speed and chip select.
func NewSPIReader(speedHz int, chipSelect uint8) (*SPIReader, error) {
	if err := rpio.SpiBegin(rpio.Spi0); err != nil {
		return nil, fmt.Errorf("claim SPI0: %w", err)
	}
	if speedHz <= 0 {
		speedHz = 1_000_000
	}
	rpio.SpiSpeed(speedHz)
	rpio.SpiChipSelect(chipSelect)
	return &SPIReader{speedHz: speedHz, cs: chipSelect}, nil
}

// Sample reads all four channels sequentially. Each conversion is one
// three-byte exchange: command byte selecting the channel, then two
// data bytes holding the left-justified 14-bit result.
func (r *SPIReader) Sample() ([Channels]uint16, error) {
	var out [Channels]uint16
	for ch := 0; ch < Channels; ch++ {
		buf := []byte{0x80 | byte(ch)<<3, 0x00, 0x00}
		rpio.SpiExchange(buf)
		out[ch] = (uint16(buf[1])<<8 | uint16(buf[2])) >> 2 & SampleMax
	}
	return out, nil
}

// Close releases the SPI bus.
func (r *SPIReader) Close() {
	rpio.SpiEnd(rpio.Spi0)
}
