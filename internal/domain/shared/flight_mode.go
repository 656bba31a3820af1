package shared

import (
	"encoding/json"
	"fmt"
	"math"
)

// FlightMode determines the fuel/time trade-off of a travel leg.
type FlightMode int

const (
	FlightModeCruise FlightMode = iota
	FlightModeDrift
	FlightModeBurn
	FlightModeStealth
)

var flightModeNames = map[FlightMode]string{
	FlightModeCruise:  "CRUISE",
	FlightModeDrift:   "DRIFT",
	FlightModeBurn:    "BURN",
	FlightModeStealth: "STEALTH",
}

// Name returns the wire name of the mode.
func (f FlightMode) Name() string {
	if name, ok := flightModeNames[f]; ok {
		return name
	}
	return "UNKNOWN"
}

func (f FlightMode) String() string {
	return f.Name()
}

// FuelCost returns the fuel consumed travelling distance units in this mode.
// Zero-distance moves (orbital hops) are free.
//
//	CRUISE/STEALTH: ceil(d), minimum 1
//	BURN:           2 * ceil(d)
//	DRIFT:          ceil(0.003 * d), minimum 1
func (f FlightMode) FuelCost(distance float64) int {
	if distance <= 0 {
		return 0
	}
	switch f {
	case FlightModeBurn:
		return 2 * int(math.Ceil(distance))
	case FlightModeDrift:
		cost := int(math.Ceil(distance * 0.003))
		if cost < 1 {
			return 1
		}
		return cost
	default:
		cost := int(math.Ceil(distance))
		if cost < 1 {
			return 1
		}
		return cost
	}
}

// TravelTime returns the travel time in seconds for distance at engineSpeed.
//
//	CRUISE:  floor(31*d / speed)
//	BURN:    floor(d / (2*speed)) + 25
//	DRIFT:   floor(10*d / speed) + 10
//	STEALTH: floor(50*d / speed)
//
// Zero-distance moves report zero here; the route planner assigns the 1 s
// orbital-hop cost itself.
func (f FlightMode) TravelTime(distance float64, engineSpeed int) int {
	if distance <= 0 {
		return 0
	}
	if engineSpeed < 1 {
		engineSpeed = 1
	}
	speed := float64(engineSpeed)
	switch f {
	case FlightModeBurn:
		return int(math.Floor(distance/(2*speed))) + 25
	case FlightModeDrift:
		return int(math.Floor(10*distance/speed)) + 10
	case FlightModeStealth:
		t := int(math.Floor(50 * distance / speed))
		if t < 1 {
			return 1
		}
		return t
	default:
		t := int(math.Floor(31 * distance / speed))
		if t < 1 {
			return 1
		}
		return t
	}
}

// MarshalJSON encodes the mode as its wire name.
func (f FlightMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Name())
}

func (f *FlightMode) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	mode, err := ParseFlightMode(name)
	if err != nil {
		return err
	}
	*f = mode
	return nil
}

// IsValidFlightModeName checks a wire name.
func IsValidFlightModeName(modeName string) bool {
	for _, name := range flightModeNames {
		if name == modeName {
			return true
		}
	}
	return false
}

// ParseFlightMode parses a wire name into a FlightMode.
func ParseFlightMode(modeName string) (FlightMode, error) {
	for mode, name := range flightModeNames {
		if name == modeName {
			return mode, nil
		}
	}
	return FlightModeCruise, fmt.Errorf("invalid flight mode: %s", modeName)
}
