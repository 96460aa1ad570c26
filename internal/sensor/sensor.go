package sensor

import (
	"context"
	"log/slog"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/physic"

	"cloudpico-station/internal/station"
)

// EnvSensor is satisfied by *bmxx80.Dev.
type EnvSensor interface {
	Sense(env *physic.Env) error
}

// GasSensor is an analog input; ads1x15 pins satisfy it.
type GasSensor interface {
	Read() (analog.Sample, error)
}

// Reader samples the gas sensor and the BME280 into the station state.
type Reader struct {
	env EnvSensor
	gas GasSensor
}

func NewReader(env EnvSensor, gas GasSensor) *Reader {
	return &Reader{env: env, gas: gas}
}

// Read overwrites AirQuality, LocalTemp and LocalPressure. A failed bus
// transaction is only logged; whatever the driver left in the sample is
// stored anyway.
func (r *Reader) Read(_ context.Context, s *station.State) {
	slog.Info("reading local sensors")

	sample, err := r.gas.Read()
	if err != nil {
		slog.Warn("gas sensor read failed", "error", err)
	}

	var e physic.Env
	if err := r.env.Sense(&e); err != nil {
		slog.Warn("bme280 sense failed", "error", err)
	}

	s.AirQuality = int(sample.Raw)
	s.LocalTemp = e.Temperature.Celsius()
	s.LocalPressure = hectopascals(e.Pressure)

	slog.Info("local sensors read",
		"local_temp_c", s.LocalTemp,
		"local_pressure_hpa", s.LocalPressure,
		"air_quality_raw", s.AirQuality,
	)
}

// physic.Pressure is stored in nano Pascal.
func hectopascals(p physic.Pressure) float64 {
	pa := float64(p) / float64(physic.Pascal)
	return pa / 100.0
}
