package catalog

import (
	"time"

	"github.com/Veraticus/winnow/internal/model"
	"github.com/soniakeys/meeus/v3/angle"
	"github.com/soniakeys/unit"
)

// DefaultMaxProperMotion is the drift allowance used to pad search radii,
// in arcseconds per year. A source moving this fast since the catalog's
// reference epoch still falls inside the padded cone.
const DefaultMaxProperMotion = 5.0

// SearchRadius returns the cone radius for a subject: half its field of
// view plus the proper-motion drift accumulated since the catalog epoch.
func SearchRadius(fovArcsec, epoch, maxPM float64, now time.Time) unit.Angle {
	if fovArcsec <= 0 {
		fovArcsec = model.DefaultFOV
	}
	if maxPM <= 0 {
		maxPM = DefaultMaxProperMotion
	}
	years := decimalYear(now) - epoch
	if years < 0 {
		years = 0
	}
	return unit.AngleFromSec(fovArcsec/2 + maxPM*years)
}

// WithinRadius reports whether the source lies inside the cone. The
// boundary is inclusive: a source exactly at the radius is in.
func WithinRadius(cone Cone, src Source) bool {
	sep := Separation(cone.RA, cone.Dec, src.RA, src.Dec)
	return sep <= cone.Radius
}

// Separation returns the angular separation between two sky positions
// given in degrees.
func Separation(ra1, dec1, ra2, dec2 float64) unit.Angle {
	return angle.SepHav(
		unit.AngleFromDeg(ra1), unit.AngleFromDeg(dec1),
		unit.AngleFromDeg(ra2), unit.AngleFromDeg(dec2),
	)
}

func decimalYear(t time.Time) float64 {
	t = t.UTC()
	yearStart := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := time.Date(t.Year()+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	return float64(t.Year()) + t.Sub(yearStart).Seconds()/yearEnd.Sub(yearStart).Seconds()
}
