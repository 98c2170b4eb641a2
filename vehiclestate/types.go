package vehiclestate

// VehicleState is the cached fleet view: availability plus the odometer
// watermark, refreshed write-through on every transition.
type VehicleState struct {
	VehicleID    int64  `json:"vehicle_id"`
	Registration string `json:"registration"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	Available    bool   `json:"available"`
	ActiveTripID *int64 `json:"active_trip_id,omitempty"`
	Kilometers   int64  `json:"kilometers"`
}
