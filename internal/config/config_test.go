package config

import (
	"log/slog"
	"testing"
	"time"
)

var allKeys = []string{
	"APP_ENV", "LOG_LEVEL",
	"MQTT_BROKER", "MQTT_PORT", "MQTT_CLIENT_ID", "MQTT_USERNAME", "MQTT_PASSWORD",
	"DEVICE_STATION_ID", "I2C_BUS", "BME280_ADDRESS", "ADS1115_ADDRESS", "GAS_SENSOR_CHANNEL",
	"WEATHER_API_URL", "WEATHER_HTTP_TIMEOUT", "LOOP_INTERVAL",
}

// clearEnv blanks every variable and sets the one required value.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
	t.Setenv("WEATHER_API_URL", "http://api.example.com/weather")
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}

	if got.AppEnv != "dev" {
		t.Errorf("AppEnv = %q, want %q", got.AppEnv, "dev")
	}
	if got.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", got.LogLevel, slog.LevelInfo)
	}
	if got.MQTTBroker != "localhost" {
		t.Errorf("MQTTBroker = %q, want %q", got.MQTTBroker, "localhost")
	}
	if got.MQTTPort != 1883 {
		t.Errorf("MQTTPort = %d, want %d", got.MQTTPort, 1883)
	}
	if got.MQTTClientID != "cloudpico-station" {
		t.Errorf("MQTTClientID = %q, want %q", got.MQTTClientID, "cloudpico-station")
	}
	if got.DeviceStationID != "home" {
		t.Errorf("DeviceStationID = %q, want %q", got.DeviceStationID, "home")
	}
	if got.BME280Address != 0x76 {
		t.Errorf("BME280Address = %#x, want %#x", got.BME280Address, 0x76)
	}
	if got.ADS1115Address != 0x48 {
		t.Errorf("ADS1115Address = %#x, want %#x", got.ADS1115Address, 0x48)
	}
	if got.GasSensorChannel != 0 {
		t.Errorf("GasSensorChannel = %d, want 0", got.GasSensorChannel)
	}
	if got.WeatherHTTPTimeout != 0 {
		t.Errorf("WeatherHTTPTimeout = %v, want 0 (no timeout)", got.WeatherHTTPTimeout)
	}
	if got.LoopInterval != 10*time.Millisecond {
		t.Errorf("LoopInterval = %v, want %v", got.LoopInterval, 10*time.Millisecond)
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", " prod ")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MQTT_BROKER", "broker.lan")
	t.Setenv("MQTT_PORT", "8883")
	t.Setenv("MQTT_USERNAME", "station")
	t.Setenv("MQTT_PASSWORD", "secret")
	t.Setenv("DEVICE_STATION_ID", "balcony")
	t.Setenv("I2C_BUS", "/dev/i2c-3")
	t.Setenv("BME280_ADDRESS", "0x77")
	t.Setenv("ADS1115_ADDRESS", "73")
	t.Setenv("GAS_SENSOR_CHANNEL", "2")
	t.Setenv("WEATHER_HTTP_TIMEOUT", "15s")
	t.Setenv("LOOP_INTERVAL", "50ms")

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}

	if got.AppEnv != "prod" {
		t.Errorf("AppEnv = %q, want %q", got.AppEnv, "prod")
	}
	if got.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want %v", got.LogLevel, slog.LevelDebug)
	}
	if got.MQTTBroker != "broker.lan" || got.MQTTPort != 8883 {
		t.Errorf("broker = %s:%d, want broker.lan:8883", got.MQTTBroker, got.MQTTPort)
	}
	if got.MQTTUsername != "station" || got.MQTTPassword != "secret" {
		t.Errorf("credentials = %q/%q, want station/secret", got.MQTTUsername, got.MQTTPassword)
	}
	if got.DeviceStationID != "balcony" {
		t.Errorf("DeviceStationID = %q, want %q", got.DeviceStationID, "balcony")
	}
	if got.I2CBus != "/dev/i2c-3" {
		t.Errorf("I2CBus = %q, want %q", got.I2CBus, "/dev/i2c-3")
	}
	if got.BME280Address != 0x77 {
		t.Errorf("BME280Address = %#x, want %#x", got.BME280Address, 0x77)
	}
	if got.ADS1115Address != 73 {
		t.Errorf("ADS1115Address = %d, want 73", got.ADS1115Address)
	}
	if got.GasSensorChannel != 2 {
		t.Errorf("GasSensorChannel = %d, want 2", got.GasSensorChannel)
	}
	if got.WeatherHTTPTimeout != 15*time.Second {
		t.Errorf("WeatherHTTPTimeout = %v, want 15s", got.WeatherHTTPTimeout)
	}
	if got.LoopInterval != 50*time.Millisecond {
		t.Errorf("LoopInterval = %v, want 50ms", got.LoopInterval)
	}
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unknown app env", key: "APP_ENV", value: "staging"},
		{name: "uppercase app env", key: "APP_ENV", value: "DEV"},
		{name: "bad log level", key: "LOG_LEVEL", value: "loud"},
		{name: "non-numeric port", key: "MQTT_PORT", value: "abc"},
		{name: "port out of range", key: "MQTT_PORT", value: "70000"},
		{name: "bad bme280 address", key: "BME280_ADDRESS", value: "0xZZ"},
		{name: "bme280 address too wide", key: "BME280_ADDRESS", value: "0x80"},
		{name: "bad ads1115 address", key: "ADS1115_ADDRESS", value: "nope"},
		{name: "gas channel out of range", key: "GAS_SENSOR_CHANNEL", value: "4"},
		{name: "gas channel not a number", key: "GAS_SENSOR_CHANNEL", value: "a0"},
		{name: "missing weather url", key: "WEATHER_API_URL", value: ""},
		{name: "weather url without scheme", key: "WEATHER_API_URL", value: "api.example.com/weather"},
		{name: "bad weather timeout", key: "WEATHER_HTTP_TIMEOUT", value: "soon"},
		{name: "negative weather timeout", key: "WEATHER_HTTP_TIMEOUT", value: "-1s"},
		{name: "zero loop interval", key: "LOOP_INTERVAL", value: "0s"},
		{name: "bad loop interval", key: "LOOP_INTERVAL", value: "fast"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			if _, err := LoadFromEnv(); err == nil {
				t.Fatalf("LoadFromEnv() error = nil, want non-nil for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "info", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "  DeBuG \n", want: slog.LevelDebug},
		{in: "", want: slog.LevelInfo, wantErr: true},
		{in: "warns", want: slog.LevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLogLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
