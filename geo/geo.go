package geo

import (
	"context"
)

// Location is a delivery location as resolved by the external
// reverse-geocoding service. The core never geocodes; it only stores
// what the resolver hands back
type Location struct {
	Line1   string   `json:"line1"`
	City    string   `json:"city"`
	Pincode string   `json:"pincode"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

// Resolver looks up a Location for a pincode. Implementations wrap the
// external geocoding collaborator; nil result with nil error means the
// pincode could not be resolved
type Resolver interface {
	Resolve(ctx context.Context, pincode string) (*Location, error)
}

// StaticResolver is a fixed pincode table. It backs development mode and
// tests, where no geocoding service is reachable
type StaticResolver struct {
	locations map[string]Location
}

var _ Resolver = &StaticResolver{}

// NewStaticResolver returns a Resolver over a fixed pincode map
func NewStaticResolver(locations map[string]Location) *StaticResolver {
	if locations == nil {
		locations = make(map[string]Location)
	}
	return &StaticResolver{
		locations: locations,
	}
}

// Resolve returns the Location for the pincode, or nil if unknown
func (s *StaticResolver) Resolve(ctx context.Context, pincode string) (*Location, error) {
	loc, ok := s.locations[pincode]
	if !ok {
		return nil, nil
	}
	return &loc, nil
}
