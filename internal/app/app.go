package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"cloudpico-station/internal/cloudsync"
	"cloudpico-station/internal/config"
	"cloudpico-station/internal/scheduler"
	"cloudpico-station/internal/sensor"
	"cloudpico-station/internal/weather"
)

// Sensors is the opened local hardware.
type Sensors interface {
	Reader() scheduler.LocalReader
	Close()
}

// Cloud is the sync collaborator as the app drives it.
type Cloud interface {
	scheduler.Cloud
	InitProperties(cb cloudsync.Callbacks)
	Begin(ctx context.Context)
	PrintDebugInfo()
	Close()
}

// Options replaces the real collaborators in tests. Nil fields use the defaults.
type Options struct {
	OpenSensors func(cfg config.Config) (Sensors, error)
	NewCloud    func(cfg config.Config) Cloud
	HTTPClient  *http.Client
	Clock       scheduler.Clock
}

func Run(ctx context.Context, cfg config.Config) error {
	return RunWith(ctx, cfg, Options{})
}

// RunWith sets up the cloud link and sensors, then runs the scheduler until
// ctx is done. A sensor init failure is returned before the loop starts.
func RunWith(ctx context.Context, cfg config.Config, opts Options) error {
	if opts.OpenSensors == nil {
		opts.OpenSensors = openHardware
	}
	if opts.NewCloud == nil {
		opts.NewCloud = func(cfg config.Config) Cloud { return cloudsync.New(cfg, slog.Default()) }
	}

	cloud := opts.NewCloud(cfg)
	cloud.InitProperties(cloudsync.Callbacks{
		OnAirQualityChange:    func() {},
		OnLocalTempChange:     func() {},
		OnLocalPressureChange: func() {},
		OnWebDataChange:       func() {},
	})
	cloud.Begin(ctx)
	defer cloud.Close()
	cloud.PrintDebugInfo()

	slog.Info("starting all sensors")
	sensors, err := opts.OpenSensors(cfg)
	if err != nil {
		slog.Error("sensor initialization failed, check wiring", "error", err)
		return err
	}
	defer sensors.Close()
	slog.Info("sensors initialized successfully")

	fetcher := weather.New(cfg.WeatherAPIURL, cfg.WeatherHTTPTimeout, opts.HTTPClient)
	sched := scheduler.New(cloud, sensors.Reader(), fetcher, opts.Clock)

	slog.Info("setup complete, waiting for cloud connection",
		"sensor_read_interval", scheduler.SensorReadInterval,
		"web_fetch_interval", scheduler.WebFetchInterval,
		"loop_interval", cfg.LoopInterval,
	)
	return sched.Run(ctx, cfg.LoopInterval)
}

type hardware struct {
	*sensor.Hardware
}

func (h hardware) Reader() scheduler.LocalReader { return h.Hardware.Reader() }

func openHardware(cfg config.Config) (Sensors, error) {
	hw, err := sensor.Open(sensor.HardwareConfig{
		Bus:            cfg.I2CBus,
		BME280Address:  cfg.BME280Address,
		ADS1115Address: cfg.ADS1115Address,
		GasChannel:     cfg.GasSensorChannel,
	})
	if err != nil {
		return nil, fmt.Errorf("open sensors: %w", err)
	}
	return hardware{hw}, nil
}
