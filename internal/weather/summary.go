package weather

import (
	"encoding/json"
	"fmt"
	"io"
)

// Parse decodes a weather body and returns its summary. A body that is not
// JSON, or lacks any of main.temp, main.humidity and main.pressure, yields
// ErrParse.
func Parse(r io.Reader) (string, error) {
	var p payload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return "", fmt.Errorf("%w: %w", ErrParse, err)
	}
	if p.Main == nil {
		return "", fmt.Errorf("%w: missing main", ErrParse)
	}
	m := p.Main
	if m.Temp == nil || m.Humidity == nil || m.Pressure == nil {
		return "", fmt.Errorf("%w: main needs temp, humidity and pressure", ErrParse)
	}
	return Summary(*m.Temp, *m.Humidity, *m.Pressure), nil
}

// Summary formats Kelvin, %RH and hPa as "T: 26.85 C, H: 55 %RH, P: 1013.25 hPa".
// Humidity is truncated toward zero.
func Summary(tempK, humidity, pressure float64) string {
	tempC := tempK - kelvinOffset
	return fmt.Sprintf("T: %.2f C, H: %d %%RH, P: %.2f hPa", tempC, int(humidity), pressure)
}
