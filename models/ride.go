package models

import "time"

// Ride statuses.
const (
	RideStatusActive    = "active"
	RideStatusCancelled = "cancelled"
)

// PickupPoint is a named boarding location on a ride, expressed as an
// offset in minutes from the ride's departure time.
type PickupPoint struct {
	Name          string `bson:"name" json:"name"`
	OffsetMinutes int    `bson:"offset_minutes" json:"offset_minutes"`
}

// Ride is the capacity entity. SeatsAvailable is only ever mutated through
// the seat-reservation primitives so that concurrent bookings can never
// oversell it.
type Ride struct {
	ID             string        `bson:"id" json:"id"`
	DriverID       string        `bson:"driver_id" json:"driver_id"`
	Origin         string        `bson:"origin" json:"origin"`
	Destination    string        `bson:"destination" json:"destination"`
	PricePerSeat   float64       `bson:"price_per_seat" json:"price_per_seat"`
	Currency       string        `bson:"currency" json:"currency"`
	SeatsAvailable int           `bson:"seats_available" json:"seats_available"`
	DepartureTime  time.Time     `bson:"departure_time" json:"departure_time"`
	PickupPoints   []PickupPoint `bson:"pickup_points" json:"pickup_points"`
	Status         string        `bson:"status" json:"status"`
	CreatedAt      time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `bson:"updated_at" json:"updated_at"`
}

// PickupPointByName returns the ride's pickup point with the given name.
func (r *Ride) PickupPointByName(name string) (PickupPoint, bool) {
	for _, p := range r.PickupPoints {
		if p.Name == name {
			return p, true
		}
	}
	return PickupPoint{}, false
}
