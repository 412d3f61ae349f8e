package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"satlink/core-go/internal/sqlcgen"
)

// DedupPolicy selects the natural key used to skip already-known links.
type DedupPolicy string

const (
	// DedupApplEndpoints treats (appl_id, site_from, site_to) as the link
	// identity. Default.
	DedupApplEndpoints DedupPolicy = "appl-endpoints"
	// DedupEndpoints ignores appl_id, for feeds that reuse application IDs.
	DedupEndpoints DedupPolicy = "endpoints"
)

// ReadStore is the lookup subset of the query layer the pipeline needs.
// *sqlcgen.Queries satisfies it; lookups signal absence with pgx.ErrNoRows.
type ReadStore interface {
	GetClientByName(ctx context.Context, clientName string) (sqlcgen.Client, error)
	GetSite(ctx context.Context, siteID string) (sqlcgen.Site, error)
	FindLinkByNaturalKey(ctx context.Context, arg sqlcgen.FindLinkByNaturalKeyParams) (int64, error)
	FindLinkByEndpoints(ctx context.Context, arg sqlcgen.FindLinkByEndpointsParams) (int64, error)
}

// Store adds the writes used by Apply.
type Store interface {
	ReadStore
	CreateClient(ctx context.Context, clientName string) (sqlcgen.Client, error)
	CreateSite(ctx context.Context, arg sqlcgen.CreateSiteParams) (sqlcgen.Site, error)
	CreateLink(ctx context.Context, arg sqlcgen.CreateLinkParams) (sqlcgen.Link, error)
}

// Summary is what one apply (or a replay of the same file) did.
type Summary struct {
	RowsTotal      int        `json:"rows_total"`
	ClientsCreated int        `json:"clients_created"`
	SitesCreated   int        `json:"sites_created"`
	LinksCreated   int        `json:"links_created"`
	LinksSkipped   int        `json:"links_skipped"`
	RowsRejected   int        `json:"rows_rejected"`
	Rejected       []RowError `json:"rejected,omitempty"`
}

func (r Row) dedupKey(policy DedupPolicy) string {
	appl := ""
	if policy != DedupEndpoints && r.ApplID != nil {
		appl = *r.ApplID
	}
	return appl + "\x00" + r.From.SiteID + "\x00" + r.To.SiteID
}

// Apply writes a parsed batch through the store: clients and sites are
// created on first reference, links matching an existing row (or an
// earlier row of the same batch) under the dedup policy are skipped.
// Callers run it inside one transaction so a failure leaves nothing
// half-imported.
func Apply(ctx context.Context, store Store, batch *Batch, policy DedupPolicy) (Summary, error) {
	sum := Summary{
		RowsTotal:    len(batch.Rows) + len(batch.Rejected),
		RowsRejected: len(batch.Rejected),
		Rejected:     batch.Rejected,
	}

	clientIDs := make(map[string]int64)
	knownSites := make(map[string]struct{})
	seenLinks := make(map[string]struct{})

	for _, row := range batch.Rows {
		clientID, ok := clientIDs[row.ClientName]
		if !ok {
			var err error
			clientID, err = resolveClient(ctx, store, row.ClientName, &sum)
			if err != nil {
				return sum, err
			}
			clientIDs[row.ClientName] = clientID
		}

		for _, sf := range []SiteFields{row.From, row.To} {
			if _, ok := knownSites[sf.SiteID]; ok {
				continue
			}
			if err := resolveSite(ctx, store, sf, &sum); err != nil {
				return sum, err
			}
			knownSites[sf.SiteID] = struct{}{}
		}

		key := row.dedupKey(policy)
		if _, ok := seenLinks[key]; ok {
			sum.LinksSkipped++
			continue
		}

		exists, err := linkExists(ctx, store, row, policy)
		if err != nil {
			return sum, fmt.Errorf("line %d: look up link: %w", row.Line, err)
		}
		seenLinks[key] = struct{}{}
		if exists {
			sum.LinksSkipped++
			continue
		}

		if _, err := store.CreateLink(ctx, sqlcgen.CreateLinkParams{
			ApplID:    row.ApplID,
			ClientID:  clientID,
			SiteFrom:  row.From.SiteID,
			SiteTo:    row.To.SiteID,
			Freq:      row.Freq,
			FreqPair:  row.FreqPair,
			Bandwidth: row.Bandwidth,
			Model:     row.Model,
		}); err != nil {
			return sum, fmt.Errorf("line %d: create link: %w", row.Line, err)
		}
		sum.LinksCreated++
	}

	return sum, nil
}

func resolveClient(ctx context.Context, store Store, name string, sum *Summary) (int64, error) {
	c, err := store.GetClientByName(ctx, name)
	switch {
	case err == nil:
		return c.ClientID, nil
	case errors.Is(err, pgx.ErrNoRows):
		created, err := store.CreateClient(ctx, name)
		if err != nil {
			return 0, fmt.Errorf("create client %q: %w", name, err)
		}
		sum.ClientsCreated++
		return created.ClientID, nil
	default:
		return 0, fmt.Errorf("look up client %q: %w", name, err)
	}
}

func resolveSite(ctx context.Context, store Store, sf SiteFields, sum *Summary) error {
	_, err := store.GetSite(ctx, sf.SiteID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		name := sf.Name
		if _, err := store.CreateSite(ctx, sqlcgen.CreateSiteParams{
			SiteID:      sf.SiteID,
			SiteName:    &name,
			SiteAddress: sf.Address,
			LatDec:      sf.Lat,
			LongDec:     sf.Lon,
		}); err != nil {
			return fmt.Errorf("create site %q: %w", sf.SiteID, err)
		}
		sum.SitesCreated++
		return nil
	default:
		return fmt.Errorf("look up site %q: %w", sf.SiteID, err)
	}
}

func linkExists(ctx context.Context, store ReadStore, row Row, policy DedupPolicy) (bool, error) {
	var err error
	if policy == DedupEndpoints {
		_, err = store.FindLinkByEndpoints(ctx, sqlcgen.FindLinkByEndpointsParams{
			SiteFrom: row.From.SiteID,
			SiteTo:   row.To.SiteID,
		})
	} else {
		_, err = store.FindLinkByNaturalKey(ctx, sqlcgen.FindLinkByNaturalKeyParams{
			ApplID:   row.ApplID,
			SiteFrom: row.From.SiteID,
			SiteTo:   row.To.SiteID,
		})
	}
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, pgx.ErrNoRows):
		return false, nil
	default:
		return false, err
	}
}
