package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"satlink/core-go/internal/sqlcgen"
)

// RowPreview is the dry-run resolution of one accepted row.
type RowPreview struct {
	Line         int     `json:"line"`
	ClientName   string  `json:"client_name"`
	ClientExists bool    `json:"client_exists"`
	SiteFrom     string  `json:"site_from"`
	FromExists   bool    `json:"from_exists"`
	SiteTo       string  `json:"site_to"`
	ToExists     bool    `json:"to_exists"`
	ApplID       *string `json:"appl_id,omitempty"`
	Duplicate    bool    `json:"duplicate"`
}

// Preview is what a commit of the same file would do, computed without
// writing anything.
type Preview struct {
	Rows         []RowPreview `json:"rows"`
	Rejected     []RowError   `json:"rejected,omitempty"`
	RowsTotal    int          `json:"rows_total"`
	NewClients   int          `json:"new_clients"`
	NewSites     int          `json:"new_sites"`
	NewLinks     int          `json:"new_links"`
	LinksSkipped int          `json:"links_skipped"`
	RowsRejected int          `json:"rows_rejected"`
}

// BuildPreview resolves a parsed batch read-only: which clients and sites
// already exist and which links would be skipped as duplicates.
func BuildPreview(ctx context.Context, store ReadStore, batch *Batch, policy DedupPolicy) (Preview, error) {
	pv := Preview{
		Rejected:     batch.Rejected,
		RowsTotal:    len(batch.Rows) + len(batch.Rejected),
		RowsRejected: len(batch.Rejected),
	}

	clientExists := make(map[string]bool)
	siteExists := make(map[string]bool)
	seenLinks := make(map[string]struct{})

	for _, row := range batch.Rows {
		if _, ok := clientExists[row.ClientName]; !ok {
			_, err := store.GetClientByName(ctx, row.ClientName)
			switch {
			case err == nil:
				clientExists[row.ClientName] = true
			case errors.Is(err, pgx.ErrNoRows):
				clientExists[row.ClientName] = false
				pv.NewClients++
			default:
				return pv, fmt.Errorf("look up client %q: %w", row.ClientName, err)
			}
		}

		for _, sf := range []SiteFields{row.From, row.To} {
			if _, ok := siteExists[sf.SiteID]; ok {
				continue
			}
			_, err := store.GetSite(ctx, sf.SiteID)
			switch {
			case err == nil:
				siteExists[sf.SiteID] = true
			case errors.Is(err, pgx.ErrNoRows):
				siteExists[sf.SiteID] = false
				pv.NewSites++
			default:
				return pv, fmt.Errorf("look up site %q: %w", sf.SiteID, err)
			}
		}

		duplicate := false
		key := row.dedupKey(policy)
		if _, ok := seenLinks[key]; ok {
			duplicate = true
		} else {
			exists, err := linkExists(ctx, store, row, policy)
			if err != nil {
				return pv, fmt.Errorf("line %d: look up link: %w", row.Line, err)
			}
			duplicate = exists
			seenLinks[key] = struct{}{}
		}

		if duplicate {
			pv.LinksSkipped++
		} else {
			pv.NewLinks++
		}

		pv.Rows = append(pv.Rows, RowPreview{
			Line:         row.Line,
			ClientName:   row.ClientName,
			ClientExists: clientExists[row.ClientName],
			SiteFrom:     row.From.SiteID,
			FromExists:   siteExists[row.From.SiteID],
			SiteTo:       row.To.SiteID,
			ToExists:     siteExists[row.To.SiteID],
			ApplID:       row.ApplID,
			Duplicate:    duplicate,
		})
	}

	return pv, nil
}

var _ ReadStore = (*sqlcgen.Queries)(nil)
var _ Store = (*sqlcgen.Queries)(nil)
