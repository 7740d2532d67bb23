package geocoding

import (
	"context"
	"fmt"
)

// Coordinate is a latitude/longitude pair in degrees
type Coordinate struct {
	Lat float64 `json:"lat"` // -90 to 90
	Lng float64 `json:"lng"` // -180 to 180
}

// Valid reports whether both components are inside their ranges
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", c.Lat, c.Lng)
}

// ResolveStatus discriminates the outcome of one provider lookup
type ResolveStatus int

const (
	StatusResolved ResolveStatus = iota
	StatusNotFound
	StatusRateLimited
	StatusTransient
)

func (s ResolveStatus) String() string {
	switch s {
	case StatusResolved:
		return "resolved"
	case StatusNotFound:
		return "not_found"
	case StatusRateLimited:
		return "rate_limited"
	case StatusTransient:
		return "transient_error"
	}
	return "unknown"
}

// ResolveResult is the tagged outcome of a single lookup. Coord is only
// meaningful when Status is StatusResolved; Err is only set for
// StatusTransient. Contacted reports whether the lookup actually issued
// a request to the provider, so callers can tell a real round-trip from
// a fail-fast that never left the process.
type ResolveResult struct {
	Status    ResolveStatus
	Coord     Coordinate
	Err       error
	Contacted bool
}

// Resolver performs a single address lookup against the provider
type Resolver interface {
	Resolve(ctx context.Context, address string) ResolveResult
}
