package store

import "time"

// WorkRecord is one stored unit of tracked work. Foreign keys point at the
// lookup entities (vehicles, rate configs, locations, employees); nilable
// fields are optional in the operational UI.
type WorkRecord struct {
	ID           int64
	WorkDate     time.Time
	VehicleID    *int64
	RateConfigID *int64
	LocationID   *int64
	EmployeeID   *int64
	Quantity     *float64
	TotalRevenue *float64
	FuelCost     *float64
	Notes        *string
}
