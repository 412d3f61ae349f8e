// Package importer implements the CSV bulk-import pipeline: header
// validation, per-row mapping, client/site resolution and the
// transactional apply with duplicate-link skipping.
package importer

import (
	"sort"
	"strings"
)

// External CSV headers, fixed by the upstream spectrum-license export.
const (
	colClientName  = "CLNT_NAME"
	colSiteName    = "STN_NAME"
	colSiteAddress = "STN_ADDR"
	colLat         = "LAT_DEC"
	colLon         = "LONG_DEC"
	colPeerSite    = "STASIUN_LAWAN"
	colPeerLat     = "TO_LAT_DEC"
	colPeerLon     = "TO_LONG_DEC"
	colApplID      = "APPL_ID"
	colFreq        = "FREQ"
	colFreqPair    = "FREQ_PAIR"
	colBandwidth   = "BWIDTH"
	colModel       = "EQ_MDL"
)

// columnMapping declares the external-to-internal translation as data.
// Required columns fail the whole import when absent; optional ones
// default to NULL per row.
var columnMapping = []struct {
	Header   string
	Required bool
}{
	{colClientName, true},
	{colSiteName, true},
	{colSiteAddress, false},
	{colLat, true},
	{colLon, true},
	{colPeerSite, true},
	{colPeerLat, true},
	{colPeerLon, true},
	{colApplID, false},
	{colFreq, false},
	{colFreqPair, false},
	{colBandwidth, false},
	{colModel, false},
}

// SchemaError reports every missing required column at once; a file
// failing the schema check produces no writes at all.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return "csv missing required columns: " + strings.Join(e.Missing, ", ")
}

// header maps trimmed column names to their position in each record.
type header map[string]int

func parseHeader(record []string) (header, error) {
	idx := make(header, len(record))
	for i, name := range record {
		idx[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, col := range columnMapping {
		if !col.Required {
			continue
		}
		if _, ok := idx[col.Header]; !ok {
			missing = append(missing, col.Header)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &SchemaError{Missing: missing}
	}
	return idx, nil
}

func (h header) get(record []string, name string) string {
	i, ok := h[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
