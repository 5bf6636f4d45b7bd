package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// CatalogSimbad names the object-type reference catalog.
const CatalogSimbad = "simbad"

const (
	defaultSimbadURL = "https://simbad.cds.unistra.fr/simbad/sim-tap"

	// simbadEpoch is SIMBAD's J2000 reference epoch as a decimal year.
	simbadEpoch = 2000.0
)

// DefaultAcceptedTypes are the SIMBAD object-type codes that mark a source
// as an already-known brown dwarf or high-proper-motion object. The ? and *
// characters are part of SIMBAD's literal type codes, not wildcards.
var DefaultAcceptedTypes = []string{
	"BD*",
	"BD?",
	"BrownD*",
	"BrownD?",
	"BrownD*_Candidate",
	"PM*",
}

// SimbadClient queries the SIMBAD TAP service and matches on object type.
type SimbadClient struct {
	tap      *tapClient
	accepted map[string]struct{}
	params   string
	epoch    float64
}

// NewSimbadClient creates a SIMBAD client from config, applying defaults
// for anything unset.
func NewSimbadClient(cfg Config) (*SimbadClient, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultSimbadURL
	}
	epoch := cfg.Epoch
	if epoch == 0 {
		epoch = simbadEpoch
	}
	types := cfg.AcceptedTypes
	if len(types) == 0 {
		types = DefaultAcceptedTypes
	}

	accepted := make(map[string]struct{}, len(types))
	normalized := make([]string, 0, len(types))
	for _, t := range types {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		accepted[t] = struct{}{}
		normalized = append(normalized, t)
	}
	if len(accepted) == 0 {
		return nil, fmt.Errorf("no accepted object types configured")
	}
	sort.Strings(normalized)

	return &SimbadClient{
		tap:      newTAPClient(CatalogSimbad, baseURL, cfg.Timeout),
		epoch:    epoch,
		accepted: accepted,
		params:   "types=" + strings.Join(normalized, ","),
	}, nil
}

// Name implements Querier.
func (c *SimbadClient) Name() string { return CatalogSimbad }

// Epoch implements Querier.
func (c *SimbadClient) Epoch() float64 { return c.epoch }

// Params implements Querier.
func (c *SimbadClient) Params() string { return c.params }

// Search runs a cone search against SIMBAD's basic table.
func (c *SimbadClient) Search(ctx context.Context, cone Cone) ([]Source, error) {
	adql := fmt.Sprintf(
		"SELECT main_id, ra, dec, otype_txt FROM basic "+
			"WHERE CONTAINS(POINT('ICRS', ra, dec), CIRCLE('ICRS', %.8f, %.8f, %.8f)) = 1",
		cone.RA, cone.Dec, cone.Radius.Deg())

	resp, err := c.tap.syncQuery(ctx, adql)
	if err != nil {
		return nil, err
	}

	idIdx := resp.columnIndex("main_id")
	raIdx := resp.columnIndex("ra")
	decIdx := resp.columnIndex("dec")
	typeIdx := resp.columnIndex("otype_txt")

	sources := make([]Source, 0, len(resp.Data))
	for _, row := range resp.Data {
		sources = append(sources, Source{
			ID:         stringAt(row, idIdx),
			RA:         floatAt(row, raIdx),
			Dec:        floatAt(row, decIdx),
			ObjectType: stringAt(row, typeIdx),
		})
	}
	return sources, nil
}

// Matches reports whether the source's object type is in the accepted set.
func (c *SimbadClient) Matches(src Source) bool {
	_, ok := c.accepted[src.ObjectType]
	return ok
}
