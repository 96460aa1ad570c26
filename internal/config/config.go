package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level

	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string

	DeviceStationID string

	I2CBus           string
	BME280Address    uint16
	ADS1115Address   uint16
	GasSensorChannel int

	WeatherAPIURL      string
	WeatherHTTPTimeout time.Duration

	LoopInterval time.Duration
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	mqttBroker := strings.TrimSpace(os.Getenv("MQTT_BROKER"))
	if mqttBroker == "" {
		mqttBroker = "localhost"
	}

	mqttPortStr := strings.TrimSpace(os.Getenv("MQTT_PORT"))
	if mqttPortStr == "" {
		mqttPortStr = "1883"
	}
	mqttPort, err := strconv.Atoi(mqttPortStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %q: %w", mqttPortStr, err)
	}
	if mqttPort <= 0 || mqttPort > 65535 {
		return Config{}, fmt.Errorf("MQTT_PORT out of range: %d", mqttPort)
	}

	mqttClientID := strings.TrimSpace(os.Getenv("MQTT_CLIENT_ID"))
	if mqttClientID == "" {
		mqttClientID = "cloudpico-station"
	}

	deviceStationID := strings.TrimSpace(os.Getenv("DEVICE_STATION_ID"))
	if deviceStationID == "" {
		deviceStationID = "home"
	}

	bme280Address, err := parseAddress("BME280_ADDRESS", "0x76")
	if err != nil {
		return Config{}, err
	}
	ads1115Address, err := parseAddress("ADS1115_ADDRESS", "0x48")
	if err != nil {
		return Config{}, err
	}

	gasChannelStr := strings.TrimSpace(os.Getenv("GAS_SENSOR_CHANNEL"))
	if gasChannelStr == "" {
		gasChannelStr = "0"
	}
	gasChannel, err := strconv.Atoi(gasChannelStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid GAS_SENSOR_CHANNEL %q: %w", gasChannelStr, err)
	}
	if gasChannel < 0 || gasChannel > 3 {
		return Config{}, fmt.Errorf("GAS_SENSOR_CHANNEL must be 0-3, got %d", gasChannel)
	}

	weatherAPIURL := strings.TrimSpace(os.Getenv("WEATHER_API_URL"))
	if weatherAPIURL == "" {
		return Config{}, fmt.Errorf("WEATHER_API_URL is required")
	}
	u, err := url.Parse(weatherAPIURL)
	if err != nil {
		return Config{}, fmt.Errorf("invalid WEATHER_API_URL %q: %w", weatherAPIURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Config{}, fmt.Errorf("invalid WEATHER_API_URL %q (scheme must be http or https)", weatherAPIURL)
	}

	// 0 keeps the request unbounded.
	weatherTimeoutStr := strings.TrimSpace(os.Getenv("WEATHER_HTTP_TIMEOUT"))
	if weatherTimeoutStr == "" {
		weatherTimeoutStr = "0s"
	}
	weatherTimeout, err := time.ParseDuration(weatherTimeoutStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid WEATHER_HTTP_TIMEOUT %q: %w", weatherTimeoutStr, err)
	}
	if weatherTimeout < 0 {
		return Config{}, fmt.Errorf("WEATHER_HTTP_TIMEOUT must not be negative, got %v", weatherTimeout)
	}

	loopIntervalStr := strings.TrimSpace(os.Getenv("LOOP_INTERVAL"))
	if loopIntervalStr == "" {
		loopIntervalStr = "10ms"
	}
	loopInterval, err := time.ParseDuration(loopIntervalStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid LOOP_INTERVAL %q: %w", loopIntervalStr, err)
	}
	if loopInterval <= 0 {
		return Config{}, fmt.Errorf("LOOP_INTERVAL must be positive, got %v", loopInterval)
	}

	return Config{
		AppEnv:             appEnv,
		LogLevel:           level,
		MQTTBroker:         mqttBroker,
		MQTTPort:           mqttPort,
		MQTTClientID:       mqttClientID,
		MQTTUsername:       strings.TrimSpace(os.Getenv("MQTT_USERNAME")),
		MQTTPassword:       os.Getenv("MQTT_PASSWORD"),
		DeviceStationID:    deviceStationID,
		I2CBus:             strings.TrimSpace(os.Getenv("I2C_BUS")),
		BME280Address:      bme280Address,
		ADS1115Address:     ads1115Address,
		GasSensorChannel:   gasChannel,
		WeatherAPIURL:      weatherAPIURL,
		WeatherHTTPTimeout: weatherTimeout,
		LoopInterval:       loopInterval,
	}, nil
}

func parseAddress(key, def string) (uint16, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		s = def
	}
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	if v > 0x7F {
		return 0, fmt.Errorf("%s %q is not a 7-bit I2C address", key, s)
	}
	return uint16(v), nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
