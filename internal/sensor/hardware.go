package sensor

import (
	"errors"
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"
)

// ErrSensorInit marks a failure to bring up the sensor bus or a device on it.
var ErrSensorInit = errors.New("sensor init failed")

const (
	gasMaxVoltage = 5 * physic.Volt
	gasSampleRate = 128 * physic.Hertz
)

var gasChannels = [...]ads1x15.Channel{
	ads1x15.Channel0,
	ads1x15.Channel1,
	ads1x15.Channel2,
	ads1x15.Channel3,
}

// HardwareConfig selects the bus and device addresses.
type HardwareConfig struct {
	Bus            string // "" opens the default bus, usually /dev/i2c-1
	BME280Address  uint16
	ADS1115Address uint16
	GasChannel     int
}

// Hardware owns the I2C bus and the devices opened on it.
type Hardware struct {
	bus i2c.BusCloser
	bme *bmxx80.Dev
	adc *ads1x15.Dev
	gas ads1x15.PinADC
}

// Open initializes the periph host and both sensors. Every error wraps
// ErrSensorInit; anything already opened is released before returning.
func Open(cfg HardwareConfig) (*Hardware, error) {
	if cfg.GasChannel < 0 || cfg.GasChannel >= len(gasChannels) {
		return nil, fmt.Errorf("%w: gas channel %d out of range", ErrSensorInit, cfg.GasChannel)
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: host init: %w", ErrSensorInit, err)
	}

	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return nil, fmt.Errorf("%w: i2c open %q: %w", ErrSensorInit, cfg.Bus, err)
	}
	hw := &Hardware{bus: bus}

	hw.bme, err = bmxx80.NewI2C(bus, cfg.BME280Address, &bmxx80.DefaultOpts)
	if err != nil {
		hw.Close()
		return nil, fmt.Errorf("%w: bme280 at %#x: %w", ErrSensorInit, cfg.BME280Address, err)
	}
	slog.Info("bme280 initialized", "addr", fmt.Sprintf("0x%02X", cfg.BME280Address), "device", hw.bme.String())

	opts := ads1x15.DefaultOpts
	opts.I2cAddress = cfg.ADS1115Address
	hw.adc, err = ads1x15.NewADS1115(bus, &opts)
	if err != nil {
		hw.Close()
		return nil, fmt.Errorf("%w: ads1115 at %#x: %w", ErrSensorInit, cfg.ADS1115Address, err)
	}

	hw.gas, err = hw.adc.PinForChannel(gasChannels[cfg.GasChannel], gasMaxVoltage, gasSampleRate, ads1x15.SaveEnergy)
	if err != nil {
		hw.Close()
		return nil, fmt.Errorf("%w: ads1115 channel %d: %w", ErrSensorInit, cfg.GasChannel, err)
	}
	slog.Info("gas sensor adc initialized",
		"addr", fmt.Sprintf("0x%02X", cfg.ADS1115Address),
		"channel", cfg.GasChannel,
	)

	return hw, nil
}

// Reader returns a Reader bound to the opened devices.
func (h *Hardware) Reader() *Reader {
	return NewReader(h.bme, h.gas)
}

// Close halts the devices and releases the bus. Safe on a partly opened Hardware.
func (h *Hardware) Close() {
	if h.gas != nil {
		if err := h.gas.Halt(); err != nil {
			slog.Warn("gas pin halt", "error", err)
		}
	}
	if h.adc != nil {
		if err := h.adc.Halt(); err != nil {
			slog.Warn("ads1115 halt", "error", err)
		}
	}
	if h.bme != nil {
		if err := h.bme.Halt(); err != nil {
			slog.Warn("bme280 halt", "error", err)
		}
	}
	if h.bus != nil {
		if err := h.bus.Close(); err != nil {
			slog.Warn("i2c bus close", "error", err)
		}
	}
}
