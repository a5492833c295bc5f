// Package core defines the domain types shared by the traffic engine.
package core

// NodeID is a unique node (intersection) identifier.
type NodeID int

// EdgeID is a unique edge (road) identifier.
type EdgeID int

// VehicleID is a unique vehicle identifier.
type VehicleID int

// LightState is the signal shown to one approach.
type LightState int

const (
	Red LightState = iota
	Green
	Yellow
)

func (s LightState) String() string {
	if s < Red || s > Yellow {
		return "UNKNOWN"
	}
	return [...]string{"RED", "GREEN", "YELLOW"}[s]
}

// MarshalText renders the light as its name in JSON payloads.
func (s LightState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
