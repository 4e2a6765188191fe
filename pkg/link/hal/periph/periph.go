// Package periph implements the link HAL on periph.io for Linux hosts.
package periph

import (
	"flag"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/robotalks/picobridge/pkg/link/hal"
)

// Config selects the bus port and signal pins.
type Config struct {
	Port       string
	SpeedHz    int
	PendingPin string
	ReadyPin   string
}

// NewConfig creates a Config with defaults matching the reference wiring:
// SPI0 CE0 at 1MHz, IRQ on GPIO25, READY on GPIO24.
func NewConfig() *Config {
	return &Config{
		Port:       "SPI0.0",
		SpeedHz:    1000000,
		PendingPin: "GPIO25",
		ReadyPin:   "GPIO24",
	}
}

// SetupFlags registers flags to override the defaults.
func (c *Config) SetupFlags() *Config {
	flag.StringVar(&c.Port, "spi", c.Port, "SPI port name.")
	flag.IntVar(&c.SpeedHz, "spi-hz", c.SpeedHz, "SPI clock in Hz.")
	flag.StringVar(&c.PendingPin, "pin-pending", c.PendingPin, "Data-pending input pin.")
	flag.StringVar(&c.ReadyPin, "pin-ready", c.ReadyPin, "Response-ready input pin.")
	return c
}

// Open initializes the host drivers and opens the bus and both lines.
func (c *Config) Open() (bus hal.Bus, pending, ready hal.Line, err error) {
	if _, err = host.Init(); err != nil {
		return nil, nil, nil, fmt.Errorf("host init: %w", err)
	}
	port, err := spireg.Open(c.Port)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open %s: %w", c.Port, err)
	}
	// the PL022 slave requires mode 1 or 3 for multi-byte transfers
	conn, err := port.Connect(physic.Frequency(c.SpeedHz)*physic.Hertz, spi.Mode3, 8)
	if err != nil {
		port.Close()
		return nil, nil, nil, fmt.Errorf("connect %s: %w", c.Port, err)
	}
	b := &spiBus{port: port, conn: conn}
	if pending, err = openLine(c.PendingPin); err != nil {
		b.Close()
		return nil, nil, nil, err
	}
	if ready, err = openLine(c.ReadyPin); err != nil {
		pending.Close()
		b.Close()
		return nil, nil, nil, err
	}
	return b, pending, ready, nil
}

type spiBus struct {
	port spi.PortCloser
	conn spi.Conn
}

func (b *spiBus) Xfer(tx, rx []byte) error {
	return b.conn.Tx(tx, rx)
}

func (b *spiBus) Close() error {
	return b.port.Close()
}

type inputLine struct {
	pin gpio.PinIn
}

func openLine(name string) (hal.Line, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("no pin %q", name)
	}
	if err := pin.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return nil, fmt.Errorf("configure %s: %w", name, err)
	}
	return &inputLine{pin: pin}, nil
}

func (l *inputLine) Asserted() (bool, error) {
	return l.pin.Read() == gpio.Low, nil
}

func (l *inputLine) WaitAssert(timeout time.Duration) (bool, error) {
	if l.pin.Read() == gpio.Low {
		return true, nil
	}
	return l.pin.WaitForEdge(timeout), nil
}

func (l *inputLine) Close() error {
	return l.pin.Halt()
}
