package entity

import "time"

// CityAll is the sentinel availability entry every car carries.
const CityAll = "all"

// EntityRef is a denormalized parent reference: the id plus a copy of the
// parent's display name, so catalog reads never need a join. The name copy is
// kept in sync by a best-effort fan-out when the parent is renamed.
type EntityRef struct {
	ID   string
	Name string
}

type PriceRange struct {
	Min          float64
	Max          float64
	IsNegotiable bool
}

type Car struct {
	ID              string
	Name            string
	Slug            string
	Brand           EntityRef
	Model           EntityRef
	BodyType        EntityRef
	VendorID        string
	Price           PriceRange
	LaunchedAt      time.Time
	Tags            []string
	Cities          []string
	SeatingCapacity int
	FuelType        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
