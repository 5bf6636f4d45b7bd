package catalog

import (
	"context"
	"fmt"
)

// CatalogGaia names the astrometric reference catalog.
const CatalogGaia = "gaia"

const (
	defaultGaiaURL = "https://gea.esac.esa.int/tap-server/tap"

	// gaiaEpoch is the Gaia DR3 reference epoch as a decimal year.
	gaiaEpoch = 2016.0

	// DefaultMinProperMotion is the total proper motion, in mas/yr, at or
	// above which a Gaia source counts as an already-known mover.
	DefaultMinProperMotion = 100.0
)

// GaiaClient queries the Gaia archive TAP service and matches on total
// proper motion.
type GaiaClient struct {
	tap   *tapClient
	epoch float64
	minPM float64
}

// NewGaiaClient creates a Gaia client from config, applying defaults for
// anything unset.
func NewGaiaClient(cfg Config) (*GaiaClient, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGaiaURL
	}
	epoch := cfg.Epoch
	if epoch == 0 {
		epoch = gaiaEpoch
	}
	minPM := cfg.MinProperMotion
	if minPM <= 0 {
		minPM = DefaultMinProperMotion
	}

	return &GaiaClient{
		tap:   newTAPClient(CatalogGaia, baseURL, cfg.Timeout),
		epoch: epoch,
		minPM: minPM,
	}, nil
}

// Name implements Querier.
func (c *GaiaClient) Name() string { return CatalogGaia }

// Epoch implements Querier.
func (c *GaiaClient) Epoch() float64 { return c.epoch }

// Params implements Querier.
func (c *GaiaClient) Params() string {
	return fmt.Sprintf("minpm=%.3f", c.minPM)
}

// Search runs a cone search against the Gaia source table.
func (c *GaiaClient) Search(ctx context.Context, cone Cone) ([]Source, error) {
	adql := fmt.Sprintf(
		"SELECT source_id, ra, dec, pmra, pmdec FROM gaiadr3.gaia_source "+
			"WHERE CONTAINS(POINT('ICRS', ra, dec), CIRCLE('ICRS', %.8f, %.8f, %.8f)) = 1",
		cone.RA, cone.Dec, cone.Radius.Deg())

	resp, err := c.tap.syncQuery(ctx, adql)
	if err != nil {
		return nil, err
	}

	idIdx := resp.columnIndex("source_id")
	raIdx := resp.columnIndex("ra")
	decIdx := resp.columnIndex("dec")
	pmraIdx := resp.columnIndex("pmra")
	pmdecIdx := resp.columnIndex("pmdec")

	sources := make([]Source, 0, len(resp.Data))
	for _, row := range resp.Data {
		sources = append(sources, Source{
			ID:    stringAt(row, idIdx),
			RA:    floatAt(row, raIdx),
			Dec:   floatAt(row, decIdx),
			PMRA:  floatAt(row, pmraIdx),
			PMDec: floatAt(row, pmdecIdx),
		})
	}
	return sources, nil
}

// Matches reports whether the source moves fast enough to be an
// already-known high-proper-motion object. The boundary is inclusive.
func (c *GaiaClient) Matches(src Source) bool {
	return src.TotalProperMotion() >= c.minPM
}
