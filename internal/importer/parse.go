package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Row is one validated CSV line mapped to internal fields.
type Row struct {
	Line       int
	ClientName string
	From       SiteFields
	To         SiteFields
	ApplID     *string
	Freq       *int32
	FreqPair   *int32
	Bandwidth  *int32
	Model      *string
}

// SiteFields is one endpoint of a row. The trimmed station name doubles as
// the site key; the peer side carries no address in the feed.
type SiteFields struct {
	SiteID  string
	Name    string
	Address *string
	Lat     *float64
	Lon     *float64
}

// RowError rejects a single line without failing the batch.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Batch is the outcome of parsing one file: rows ready to apply plus the
// lines rejected on the way.
type Batch struct {
	Rows     []Row
	Rejected []RowError
}

// Parse reads and validates a whole CSV file. A missing required column
// aborts with SchemaError; a bad field rejects only its own line.
func Parse(r io.Reader) (*Batch, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // short records reject per line, not fatally

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	idx, err := parseHeader(head)
	if err != nil {
		return nil, err
	}

	batch := &Batch{}
	// Line numbers are physical file lines, so a quoted field containing
	// newlines does not desync the report from the file the operator edits.
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				line = parseErr.Line
			}
			batch.Rejected = append(batch.Rejected, RowError{Line: line, Reason: "malformed csv record"})
			continue
		}
		line, _ = cr.FieldPos(0)
		row, rowErr := parseRow(idx, record, line)
		if rowErr != nil {
			batch.Rejected = append(batch.Rejected, *rowErr)
			continue
		}
		batch.Rows = append(batch.Rows, row)
	}
	return batch, nil
}

func parseRow(idx header, record []string, line int) (Row, *RowError) {
	reject := func(reason string) (Row, *RowError) {
		return Row{}, &RowError{Line: line, Reason: reason}
	}

	clientName := idx.get(record, colClientName)
	if clientName == "" {
		return reject("missing " + colClientName)
	}
	fromName := idx.get(record, colSiteName)
	if fromName == "" {
		return reject("missing " + colSiteName)
	}
	toName := idx.get(record, colPeerSite)
	if toName == "" {
		return reject("missing " + colPeerSite)
	}

	fromLat, err := optCoord(idx.get(record, colLat), -90, 90)
	if err != nil {
		return reject("invalid " + colLat)
	}
	fromLon, err := optCoord(idx.get(record, colLon), -180, 180)
	if err != nil {
		return reject("invalid " + colLon)
	}
	toLat, err := optCoord(idx.get(record, colPeerLat), -90, 90)
	if err != nil {
		return reject("invalid " + colPeerLat)
	}
	toLon, err := optCoord(idx.get(record, colPeerLon), -180, 180)
	if err != nil {
		return reject("invalid " + colPeerLon)
	}

	freq, err := optInt32(idx.get(record, colFreq))
	if err != nil {
		return reject("invalid " + colFreq)
	}
	freqPair, err := optInt32(idx.get(record, colFreqPair))
	if err != nil {
		return reject("invalid " + colFreqPair)
	}
	bandwidth, err := optInt32(idx.get(record, colBandwidth))
	if err != nil {
		return reject("invalid " + colBandwidth)
	}

	return Row{
		Line:       line,
		ClientName: clientName,
		From: SiteFields{
			SiteID:  fromName,
			Name:    fromName,
			Address: optString(idx.get(record, colSiteAddress)),
			Lat:     fromLat,
			Lon:     fromLon,
		},
		To: SiteFields{
			SiteID: toName,
			Name:   toName,
			Lat:    toLat,
			Lon:    toLon,
		},
		ApplID:    optString(idx.get(record, colApplID)),
		Freq:      freq,
		FreqPair:  freqPair,
		Bandwidth: bandwidth,
		Model:     optString(idx.get(record, colModel)),
	}, nil
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optCoord(s string, min, max float64) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	if v < min || v > max {
		return nil, fmt.Errorf("coordinate %v out of range [%v, %v]", v, min, max)
	}
	return &v, nil
}

func optInt32(s string) (*int32, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return nil, err
	}
	out := int32(v)
	return &out, nil
}
