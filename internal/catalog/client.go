// Package catalog cross-matches subject positions against external
// astronomical reference catalogs over their TAP query services.
package catalog

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/soniakeys/unit"
)

// Source is one row returned by a catalog cone search. Proper motion
// components are in milliarcseconds per year; missing astrometry is zero.
type Source struct {
	ID         string
	ObjectType string
	RA         float64 // degrees
	Dec        float64 // degrees
	PMRA       float64 // mas/yr
	PMDec      float64 // mas/yr
}

// TotalProperMotion returns the vector magnitude of the two proper-motion
// components, in mas/yr.
func (s Source) TotalProperMotion() float64 {
	return math.Hypot(s.PMRA, s.PMDec)
}

// Cone describes a cone search centered on a sky position.
type Cone struct {
	RA     float64 // degrees
	Dec    float64 // degrees
	Radius unit.Angle
}

// Querier is a remote reference catalog: it runs cone searches and knows
// which of its sources count as a match for candidate exclusion.
type Querier interface {
	// Name identifies the catalog in results, caches and configuration.
	Name() string
	// Epoch is the catalog's reference epoch as a decimal year; search
	// radii grow with time elapsed since it to cover proper-motion drift.
	Epoch() float64
	// Params fingerprints the matching parameters for cache keying.
	Params() string
	// Search returns all sources within the cone. Zero sources is a valid
	// result, not an error.
	Search(ctx context.Context, cone Cone) ([]Source, error)
	// Matches reports whether the source satisfies this catalog's
	// exclusion rule.
	Matches(src Source) bool
}

// Config holds the settings for a single catalog client.
type Config struct {
	// BaseURL overrides the catalog's default TAP endpoint.
	BaseURL string
	// Epoch overrides the catalog's default reference epoch.
	Epoch float64
	// Timeout bounds each individual query request.
	Timeout time.Duration
	// AcceptedTypes overrides the object-type codes counted as matches
	// (object-type catalogs only).
	AcceptedTypes []string
	// MinProperMotion overrides the total proper motion, in mas/yr, at or
	// above which a source counts as a match (astrometric catalogs only).
	MinProperMotion float64
}

// NewQuerier creates a catalog client by name.
func NewQuerier(catalog string, cfg Config) (Querier, error) {
	switch catalog {
	case CatalogSimbad:
		return NewSimbadClient(cfg)
	case CatalogGaia:
		return NewGaiaClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported catalog: %s", catalog)
	}
}
