// Package station holds the values a station publishes to the cloud.
package station

import (
	"encoding/json"
	"fmt"
)

// Property names as seen by the cloud.
const (
	PropAirQuality    = "airQuality"
	PropLocalTemp     = "localTemp"
	PropLocalPressure = "localPressure"
	PropWebData       = "webData"
)

// State is owned by the scheduler and written in place by the sensor reader
// and the weather fetcher. It is not safe for concurrent use.
type State struct {
	AirQuality    int     // raw ADC counts
	LocalTemp     float64 // °C
	LocalPressure float64 // hPa
	WebData       string  // "T: x C, H: y %RH, P: z hPa"
}

// Property is a single named value.
type Property struct {
	Name  string
	Value any
}

// Properties returns the four synced values in a fixed order.
func (s *State) Properties() []Property {
	return []Property{
		{Name: PropAirQuality, Value: s.AirQuality},
		{Name: PropLocalTemp, Value: s.LocalTemp},
		{Name: PropLocalPressure, Value: s.LocalPressure},
		{Name: PropWebData, Value: s.WebData},
	}
}

// SetProperty decodes raw as the type of the named property and stores it.
// The state is left unchanged on error.
func (s *State) SetProperty(name string, raw json.RawMessage) error {
	switch name {
	case PropAirQuality:
		var v int
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		s.AirQuality = v
	case PropLocalTemp:
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		s.LocalTemp = v
	case PropLocalPressure:
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		s.LocalPressure = v
	case PropWebData:
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		s.WebData = v
	default:
		return fmt.Errorf("unknown property %q", name)
	}
	return nil
}

// Value returns the current value of the named property.
func (s *State) Value(name string) (any, bool) {
	for _, p := range s.Properties() {
		if p.Name == name {
			return p.Value, true
		}
	}
	return nil, false
}
